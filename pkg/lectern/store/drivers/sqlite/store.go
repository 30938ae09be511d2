// Package sqlite implements store.Store on a local SQLite database, so the
// session survives restarts of the client process. Tokens are sealed at rest
// when a cryptox.Sealer is configured.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lecternhq/lectern-go/pkg/cryptox"
	"github.com/lecternhq/lectern-go/pkg/lectern/store"
)

type Store struct {
	db     *sql.DB
	sealer *cryptox.Sealer
}

// Option configures a Store.
type Option func(*Store)

// WithSealer seals token columns at rest with the given Sealer. Load fails
// if the persisted record was sealed with a different key.
func WithSealer(s *cryptox.Sealer) Option {
	return func(st *Store) { st.sealer = s }
}

// NewStore opens (or creates) the session database at dsn.
func NewStore(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Single-record store, single writer. This also keeps ":memory:" DSNs
	// working, which would otherwise get a fresh database per pooled
	// connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Load(ctx context.Context) (*store.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_json, access_token, refresh_token, authenticated
		FROM session WHERE id = 1`)

	var (
		userJSON      []byte
		accessToken   []byte
		refreshToken  []byte
		authenticated bool
	)
	if err := row.Scan(&userJSON, &accessToken, &refreshToken, &authenticated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	access, err := s.open(accessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := s.open(refreshToken)
	if err != nil {
		return nil, err
	}

	return &store.Record{
		User:          userJSON,
		AccessToken:   string(access),
		RefreshToken:  string(refresh),
		Authenticated: authenticated,
	}, nil
}

func (s *Store) Save(ctx context.Context, rec *store.Record) error {
	access, err := s.seal([]byte(rec.AccessToken))
	if err != nil {
		return err
	}
	refresh, err := s.seal([]byte(rec.RefreshToken))
	if err != nil {
		return err
	}

	userJSON := rec.User
	if userJSON == nil {
		userJSON = []byte("null")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session (id, user_json, access_token, refresh_token, authenticated, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_json = excluded.user_json,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			authenticated = excluded.authenticated,
			updated_at = excluded.updated_at`,
		[]byte(userJSON), access, refresh, rec.Authenticated, time.Now().UTC())
	return err
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`)
	return err
}

func (s *Store) seal(plaintext []byte) ([]byte, error) {
	if s.sealer == nil {
		return plaintext, nil
	}
	return s.sealer.Seal(plaintext)
}

func (s *Store) open(data []byte) ([]byte, error) {
	if s.sealer == nil {
		return data, nil
	}
	return s.sealer.Open(data)
}
