// Package store defines the persistence contract for the session record.
// The session manager is the only writer; everything else observes the
// session through the manager, never through the store.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound reports that no session record has been persisted yet.
var ErrNotFound = errors.New("store: not found")

// Record is the serialized session as it survives process restarts. The user
// identity is kept as raw JSON so the store stays decoupled from the SDK's
// user type.
type Record struct {
	User          json.RawMessage
	AccessToken   string
	RefreshToken  string
	Authenticated bool
}

// Store is a durable single-record key-value store for the session. Concrete
// drivers (sqlite, memory) implement this.
type Store interface {
	// Load returns the persisted record, or ErrNotFound when nothing has
	// been saved since the last Clear.
	Load(ctx context.Context) (*Record, error)

	// Save replaces the persisted record atomically.
	Save(ctx context.Context, rec *Record) error

	// Clear removes the persisted record. Clearing an empty store is not an
	// error.
	Clear(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
