package main

import (
	"log"
	"os"

	"github.com/lecternhq/lectern-go/internal/cli"
)

func main() {
	cfg := cli.LoadConfig()

	application, err := cli.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}
