package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lecternhq/lectern-go/pkg/cryptox"
	"github.com/lecternhq/lectern-go/pkg/lectern"
	"github.com/lecternhq/lectern-go/pkg/lectern/store/drivers/sqlite"
	"github.com/lecternhq/lectern-go/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"

	// sealSalt is the fixed argon2id salt for deriving the at-rest sealing
	// key from LECTERN_STATE_PASSPHRASE. The state file is per-user, not
	// shared, so a fixed salt is acceptable here.
	sealSalt = "lectern.session.v1"
)

// Application encapsulates the lectern CLI with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      *sqlite.Store
	manager *lectern.Manager
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "lectern-cli",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}

	client := lectern.NewClient(cfg.BaseURL)
	app.manager = lectern.NewManager(client, app.db, lectern.WithLogger(app.logger))

	return app, nil
}

// Run executes one subcommand and returns its error. The session is restored
// before dispatch so every command starts from persisted state.
func (app *Application) Run(args []string) error {
	defer app.close()

	if len(args) == 0 {
		printUsage()
		return fmt.Errorf("missing command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Timeout)
	defer cancel()

	// Transport-level logs carry the command that issued them.
	ctx = slogx.WithOperation(slogx.WithContext(ctx, app.logger), args[0])

	app.manager.Initialize(ctx)

	switch args[0] {
	case "login":
		return app.cmdLogin(ctx, args[1:])
	case "register":
		return app.cmdRegister(ctx, args[1:])
	case "logout":
		return app.cmdLogout(ctx)
	case "whoami":
		return app.cmdWhoami(ctx)
	case "courses":
		return app.cmdCourses(ctx, args[1:])
	case "upload":
		return app.cmdUpload(ctx, args[1:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// initStore opens the SQLite state file and applies migrations. A passphrase
// in the environment turns on sealing of the persisted tokens.
func (app *Application) initStore() error {
	var opts []sqlite.Option
	if app.cfg.Passphrase != "" {
		key := cryptox.DeriveKey([]byte(app.cfg.Passphrase), []byte(sealSalt))
		sealer, err := cryptox.NewSealer(key)
		if err != nil {
			return fmt.Errorf("failed to initialize state sealing: %w", err)
		}
		opts = append(opts, sqlite.WithSealer(sealer))
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.StateFile)
	db, err := sqlite.NewStore(dsn, opts...)
	if err != nil {
		return fmt.Errorf("failed to open state file: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply state migrations: %w", err)
	}

	return nil
}

func (app *Application) close() {
	app.manager.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing state file", "error", err)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `usage: lectern <command> [flags]

commands:
  login     -email <addr> -password <pw>   sign in and persist the session
  register  -first -last -email -password  create an account and sign in
  logout                                   revoke the session
  whoami                                   show the signed-in instructor
  courses   [list|create|delete] ...       manage courses
  upload    -course <id> <files...>        attach files to a course
`)
}
