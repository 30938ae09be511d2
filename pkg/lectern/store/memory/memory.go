// Package memory provides an in-process store.Store, used in tests and in
// programs that don't want the session to survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/lecternhq/lectern-go/pkg/lectern/store"
)

type Store struct {
	mu  sync.Mutex
	rec *store.Record
}

func New() *Store {
	return &Store{}
}

func (s *Store) Load(_ context.Context) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec == nil {
		return nil, store.ErrNotFound
	}

	cp := *s.rec
	return &cp, nil
}

func (s *Store) Save(_ context.Context, rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.rec = &cp
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec = nil
	return nil
}

func (s *Store) Close() error { return nil }
