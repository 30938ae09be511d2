package sqlite

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lecternhq/lectern-go/pkg/cryptox"
	"github.com/lecternhq/lectern-go/pkg/lectern/store"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	s, err := NewStore(":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func testRecord() *store.Record {
	return &store.Record{
		User:          json.RawMessage(`{"id":1,"email":"a@b.com"}`),
		AccessToken:   "access-1",
		RefreshToken:  "refresh-1",
		Authenticated: true,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := newTestStore(t)

	t.Run("empty store reports not found", func(t *testing.T) {
		_, err := s.Load(ctx)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("save then load", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, testRecord()))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, testRecord(), got)
	})

	t.Run("save replaces the previous record", func(t *testing.T) {
		rec := testRecord()
		rec.AccessToken = "access-2"
		rec.RefreshToken = "refresh-2"
		require.NoError(t, s.Save(ctx, rec))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, "access-2", got.AccessToken)
		require.Equal(t, "refresh-2", got.RefreshToken)
	})

	t.Run("clear removes the record", func(t *testing.T) {
		require.NoError(t, s.Clear(ctx))
		_, err := s.Load(ctx)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("clearing an empty store is fine", func(t *testing.T) {
		require.NoError(t, s.Clear(ctx))
	})
}

func TestStoreSealed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	key := cryptox.DeriveKey([]byte("passphrase"), []byte("test"))
	sealer, err := cryptox.NewSealer(key)
	require.NoError(t, err)

	s := newTestStore(t, WithSealer(sealer))
	require.NoError(t, s.Save(ctx, testRecord()))

	t.Run("tokens are not stored in the clear", func(t *testing.T) {
		var access, refresh []byte
		row := s.db.QueryRowContext(ctx,
			`SELECT access_token, refresh_token FROM session WHERE id = 1`)
		require.NoError(t, row.Scan(&access, &refresh))
		require.NotContains(t, string(access), "access-1")
		require.NotContains(t, string(refresh), "refresh-1")
	})

	t.Run("load unseals", func(t *testing.T) {
		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, testRecord(), got)
	})

	t.Run("wrong key fails to load", func(t *testing.T) {
		otherKey := cryptox.DeriveKey([]byte("other"), []byte("test"))
		other, err := cryptox.NewSealer(otherKey)
		require.NoError(t, err)

		s.sealer = other
		defer func() { s.sealer = sealer }()

		_, err = s.Load(ctx)
		require.Error(t, err)
	})
}
