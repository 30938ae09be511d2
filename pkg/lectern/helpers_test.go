package lectern

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/lecternhq/lectern-go/pkg/lectern/store"
	"github.com/lecternhq/lectern-go/pkg/lectern/store/memory"
)

// mintToken returns a decodable access token expiring at exp. The client
// never verifies signatures, so any signing key works.
func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// decodeBody unmarshals a JSON request body into target.
func decodeBody(t *testing.T, r *http.Request, target any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(target))
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

func writeAPIError(t *testing.T, w http.ResponseWriter, status int, code, message string) {
	t.Helper()
	writeJSON(t, w, status, map[string]string{"code": code, "message": message})
}

// newTestServer builds an API fake from a route table keyed by
// "METHOD /path".
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newTestManager wires a Manager to srv with an in-memory store and no rate
// limiting.
func newTestManager(t *testing.T, srv *httptest.Server, opts ...ManagerOption) (*Manager, *memory.Store) {
	t.Helper()

	client := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
	st := memory.New()
	m := NewManager(client, st, opts...)
	t.Cleanup(m.Close)
	return m, st
}

// seedSession persists an authenticated record so Initialize restores it.
func seedSession(t *testing.T, st store.Store, accessToken, refreshToken string) {
	t.Helper()

	require.NoError(t, st.Save(t.Context(), &store.Record{
		User:          json.RawMessage(`{"id":1,"email":"a@b.com"}`),
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		Authenticated: true,
	}))
}

// pendingTimer reports whether a renewal timer is currently armed.
func pendingTimer(m *Manager) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renew != nil
}
