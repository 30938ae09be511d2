package lectern

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lecternhq/lectern-go/pkg/lectern/store"
)

func TestInitialize(t *testing.T) {
	t.Parallel()

	t.Run("empty store yields anonymous session, no timer", func(t *testing.T) {
		srv := newTestServer(t, nil)
		m, _ := newTestManager(t, srv)

		s := m.Initialize(t.Context())

		require.False(t, s.Authenticated)
		require.Nil(t, s.User)
		require.Empty(t, s.AccessToken)
		require.Empty(t, s.RefreshToken)
		require.False(t, pendingTimer(m))
	})

	t.Run("restores a persisted session and arms renewal", func(t *testing.T) {
		srv := newTestServer(t, nil)
		m, st := newTestManager(t, srv)
		access := mintToken(t, time.Now().Add(time.Hour))
		seedSession(t, st, access, "R1")

		s := m.Initialize(t.Context())

		require.True(t, s.Authenticated)
		require.Equal(t, access, s.AccessToken)
		require.Equal(t, "R1", s.RefreshToken)
		require.NotNil(t, s.User)
		require.Equal(t, int64(1), s.User.ID)
		require.True(t, pendingTimer(m))
	})

	t.Run("incomplete record yields anonymous session", func(t *testing.T) {
		srv := newTestServer(t, nil)
		m, st := newTestManager(t, srv)
		require.NoError(t, st.Save(t.Context(), &store.Record{
			AccessToken:   "A1",
			Authenticated: true, // refresh token missing
		}))

		s := m.Initialize(t.Context())
		require.False(t, s.Authenticated)
	})

	t.Run("corrupt user record yields anonymous session", func(t *testing.T) {
		srv := newTestServer(t, nil)
		m, st := newTestManager(t, srv)
		require.NoError(t, st.Save(t.Context(), &store.Record{
			User:          json.RawMessage(`{broken`),
			AccessToken:   "A1",
			RefreshToken:  "R1",
			Authenticated: true,
		}))

		s := m.Initialize(t.Context())
		require.False(t, s.Authenticated)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("success replaces the session atomically", func(t *testing.T) {
		srv := newTestServer(t, map[string]http.HandlerFunc{
			"POST /auth/login": func(w http.ResponseWriter, r *http.Request) {
				var body struct {
					Email    string `json:"email"`
					Password string `json:"password"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, "a@b.com", body.Email)
				require.Equal(t, "secret1", body.Password)

				writeJSON(t, w, http.StatusOK, map[string]any{
					"user":         map[string]any{"id": 1},
					"accessToken":  "A1",
					"refreshToken": "R1",
				})
			},
		})
		m, st := newTestManager(t, srv)

		s, err := m.Login(t.Context(), "a@b.com", "secret1")
		require.NoError(t, err)

		require.True(t, s.Authenticated)
		require.Equal(t, int64(1), s.User.ID)
		require.Equal(t, "A1", s.AccessToken)
		require.Equal(t, "R1", s.RefreshToken)
		require.True(t, m.IsAuthenticated())

		rec, err := st.Load(t.Context())
		require.NoError(t, err)
		require.Equal(t, "A1", rec.AccessToken)
		require.Equal(t, "R1", rec.RefreshToken)
		require.True(t, rec.Authenticated)
	})

	t.Run("failure leaves the session untouched", func(t *testing.T) {
		srv := newTestServer(t, map[string]http.HandlerFunc{
			"POST /auth/login": func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(t, w, http.StatusUnauthorized,
					CodeInvalidCredentials, "invalid email or password")
			},
		})
		m, st := newTestManager(t, srv)

		_, err := m.Login(t.Context(), "a@b.com", "wrong")

		require.True(t, IsInvalidCredentials(err))
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "invalid email or password", apiErr.Message)

		require.False(t, m.IsAuthenticated())
		_, err = st.Load(t.Context())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("login then initialize restores the same session", func(t *testing.T) {
		access := mintToken(t, time.Now().Add(time.Hour))
		srv := newTestServer(t, map[string]http.HandlerFunc{
			"POST /auth/login": func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, http.StatusOK, map[string]any{
					"user":         map[string]any{"id": 1, "email": "a@b.com"},
					"accessToken":  access,
					"refreshToken": "R1",
				})
			},
		})
		m1, st := newTestManager(t, srv)

		first, err := m1.Login(t.Context(), "a@b.com", "secret1")
		require.NoError(t, err)
		m1.Close()

		// Simulated reload: a fresh manager over the same store.
		client := &Client{BaseURL: srv.URL, HTTPClient: srv.Client()}
		m2 := NewManager(client, st)
		t.Cleanup(m2.Close)

		second := m2.Initialize(t.Context())
		require.Equal(t, first, second)
	})
}

func TestRegister(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]http.HandlerFunc{
		"POST /auth/register": func(w http.ResponseWriter, r *http.Request) {
			var body RegisterRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "Ada", body.FirstName)

			writeJSON(t, w, http.StatusCreated, map[string]any{
				"user":         map[string]any{"id": 7, "firstName": "Ada"},
				"accessToken":  "A1",
				"refreshToken": "R1",
			})
		},
	})
	m, _ := newTestManager(t, srv)

	s, err := m.Register(t.Context(), RegisterRequest{
		FirstName: "Ada", LastName: "Lovelace",
		Email: "ada@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	require.True(t, s.Authenticated)
	require.Equal(t, int64(7), s.User.ID)
}

func TestEnsureValid(t *testing.T) {
	t.Parallel()

	t.Run("fast path makes no network call", func(t *testing.T) {
		var refreshCalls atomic.Int32
		srv := newTestServer(t, map[string]http.HandlerFunc{
			"POST /auth/refresh": func(w http.ResponseWriter, r *http.Request) {
				refreshCalls.Add(1)
				writeJSON(t, w, http.StatusOK, map[string]string{
					"accessToken":  mintToken(t, time.Now().Add(time.Hour)),
					"refreshToken": "R2",
				})
			},
		})
		m, st := newTestManager(t, srv)
		seedSession(t, st, mintToken(t, time.Now().Add(time.Hour)), "R1")
		m.Initialize(t.Context())

		require.True(t, m.EnsureValid(t.Context()))
		require.Equal(t, int32(0), refreshCalls.Load())
	})

	t.Run("anonymous session is simply invalid", func(t *testing.T) {
		srv := newTestServer(t, nil)
		m, _ := newTestManager(t, srv)

		require.False(t, m.EnsureValid(t.Context()))
	})

	t.Run("expired token triggers exactly one refresh", func(t *testing.T) {
		var refreshCalls atomic.Int32
		srv := newTestServer(t, map[string]http.HandlerFunc{
			"POST /auth/refresh": func(w http.ResponseWriter, r *http.Request) {
				refreshCalls.Add(1)

				var body struct {
					RefreshToken string `json:"refreshToken"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, "R1", body.RefreshToken)

				writeJSON(t, w, http.StatusOK, map[string]string{
					"accessToken":  "A2",
					"refreshToken": "R2",
				})
			},
		})
		m, st := newTestManager(t, srv)
		seedSession(t, st, mintToken(t, time.Now().Add(-time.Second)), "R1")
		m.Initialize(t.Context())

		require.True(t, m.EnsureValid(t.Context()))
		require.Equal(t, int32(1), refreshCalls.Load())

		s := m.Current()
		require.Equal(t, "A2", s.AccessToken)
		require.Equal(t, "R2", s.RefreshToken)
		require.True(t, s.Authenticated)
		require.Equal(t, int64(1), s.User.ID, "refresh must not touch the user")
	})

	t.Run("malformed token is treated as expired", func(t *testing.T) {
		var refreshCalls atomic.Int32
		srv := newTestServer(t, map[string]http.HandlerFunc{
			"POST /auth/refresh": func(w http.ResponseWriter, r *http.Request) {
				refreshCalls.Add(1)
				writeJSON(t, w, http.StatusOK, map[string]string{
					"accessToken":  mintToken(t, time.Now().Add(time.Hour)),
					"refreshToken": "R2",
				})
			},
		})
		m, st := newTestManager(t, srv)
		seedSession(t, st, "not-a-jwt", "R1")
		m.Initialize(t.Context())

		require.True(t, m.EnsureValid(t.Context()))
		require.Equal(t, int32(1), refreshCalls.Load())
	})

	t.Run("refresh rejection collapses to forced logout", func(t *testing.T) {
		srv := newTestServer(t, map[string]http.HandlerFunc{
			"POST /auth/refresh": func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(t, w, http.StatusUnauthorized,
					CodeInvalidGrant, "refresh token revoked")
			},
		})
		m, st := newTestManager(t, srv)
		seedSession(t, st, mintToken(t, time.Now().Add(-time.Second)), "R1")
		m.Initialize(t.Context())

		authed, cancel := m.Subscribe()
		defer cancel()

		require.False(t, m.EnsureValid(t.Context()))

		s := m.Current()
		require.Equal(t, Session{}, s)
		require.False(t, m.IsAuthenticated())

		select {
		case flag := <-authed:
			require.False(t, flag)
		case <-time.After(time.Second):
			t.Fatal("expected unauthenticated signal")
		}

		_, err := st.Load(t.Context())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent callers collapse onto one refresh", func(t *testing.T) {
		var refreshCalls atomic.Int32
		srv := newTestServer(t, map[string]http.HandlerFunc{
			"POST /auth/refresh": func(w http.ResponseWriter, r *http.Request) {
				refreshCalls.Add(1)
				time.Sleep(50 * time.Millisecond) // widen the race window
				writeJSON(t, w, http.StatusOK, map[string]string{
					"accessToken":  mintToken(t, time.Now().Add(time.Hour)),
					"refreshToken": "R2",
				})
			},
		})
		m, st := newTestManager(t, srv)
		seedSession(t, st, mintToken(t, time.Now().Add(-time.Second)), "R1")
		m.Initialize(t.Context())

		const callers = 10
		results := make([]bool, callers)
		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = m.EnsureValid(context.Background())
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), refreshCalls.Load(),
			"a single refresh exchange must serve all callers")
		for i, ok := range results {
			require.True(t, ok, "caller %d", i)
		}
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()

	t.Run("notifies the server and clears everything", func(t *testing.T) {
		var logoutCalls atomic.Int32
		srv := newTestServer(t, map[string]http.HandlerFunc{
			"POST /auth/logout": func(w http.ResponseWriter, r *http.Request) {
				logoutCalls.Add(1)

				var body struct {
					RefreshToken string `json:"refreshToken"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, "R1", body.RefreshToken)
				w.WriteHeader(http.StatusNoContent)
			},
		})
		m, st := newTestManager(t, srv)
		seedSession(t, st, mintToken(t, time.Now().Add(time.Hour)), "R1")
		m.Initialize(t.Context())
		require.True(t, pendingTimer(m))

		m.Logout(t.Context())

		require.Equal(t, int32(1), logoutCalls.Load())
		require.Equal(t, Session{}, m.Current())
		require.False(t, pendingTimer(m))
		_, err := st.Load(t.Context())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("idempotent", func(t *testing.T) {
		var logoutCalls atomic.Int32
		srv := newTestServer(t, map[string]http.HandlerFunc{
			"POST /auth/logout": func(w http.ResponseWriter, r *http.Request) {
				logoutCalls.Add(1)
				w.WriteHeader(http.StatusNoContent)
			},
		})
		m, st := newTestManager(t, srv)
		seedSession(t, st, mintToken(t, time.Now().Add(time.Hour)), "R1")
		m.Initialize(t.Context())

		m.Logout(t.Context())
		m.Logout(t.Context())

		require.Equal(t, int32(1), logoutCalls.Load(),
			"second logout has no refresh token to revoke")
		require.Equal(t, Session{}, m.Current())
	})

	t.Run("server failure still clears local state", func(t *testing.T) {
		srv := newTestServer(t, map[string]http.HandlerFunc{
			"POST /auth/logout": func(w http.ResponseWriter, r *http.Request) {
				writeAPIError(t, w, http.StatusInternalServerError,
					CodeServerError, "boom")
			},
		})
		m, st := newTestManager(t, srv)
		seedSession(t, st, mintToken(t, time.Now().Add(time.Hour)), "R1")
		m.Initialize(t.Context())

		m.Logout(t.Context())

		require.False(t, m.IsAuthenticated())
		_, err := st.Load(t.Context())
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestUnauthorizedResponseForcesLogout(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]http.HandlerFunc{
		"GET /courses": func(w http.ResponseWriter, r *http.Request) {
			writeAPIError(t, w, http.StatusUnauthorized,
				CodeInvalidGrant, "token revoked")
		},
	})
	m, st := newTestManager(t, srv)
	seedSession(t, st, mintToken(t, time.Now().Add(time.Hour)), "R1")
	m.Initialize(t.Context())

	authed, cancel := m.Subscribe()
	defer cancel()

	_, err := m.ListCourses(t.Context(), ListCoursesParams{})
	require.ErrorIs(t, err, ErrUnauthorized)

	require.False(t, m.IsAuthenticated())
	require.Equal(t, Session{}, m.Current())

	select {
	case flag := <-authed:
		require.False(t, flag)
	case <-time.After(time.Second):
		t.Fatal("expected unauthenticated signal")
	}

	_, loadErr := st.Load(t.Context())
	require.ErrorIs(t, loadErr, store.ErrNotFound)
}

func TestSubscribe(t *testing.T) {
	t.Parallel()

	access := mintToken(t, time.Now().Add(time.Hour))
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"POST /auth/login": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"user":         map[string]any{"id": 1},
				"accessToken":  access,
				"refreshToken": "R1",
			})
		},
		"POST /auth/logout": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	})
	m, _ := newTestManager(t, srv)

	authed, cancel := m.Subscribe()
	defer cancel()

	_, err := m.Login(t.Context(), "a@b.com", "secret1")
	require.NoError(t, err)
	require.True(t, <-authed)

	m.Logout(t.Context())
	require.False(t, <-authed)

	t.Run("cancelled subscriber receives nothing more", func(t *testing.T) {
		cancel()
		_, err := m.Login(t.Context(), "a@b.com", "secret1")
		require.NoError(t, err)

		select {
		case <-authed:
			t.Fatal("cancelled subscription must not receive")
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestLogoutDuringRefreshDiscardsResult(t *testing.T) {
	t.Parallel()

	refreshStarted := make(chan struct{})
	releaseRefresh := make(chan struct{})
	srv := newTestServer(t, map[string]http.HandlerFunc{
		"POST /auth/refresh": func(w http.ResponseWriter, r *http.Request) {
			close(refreshStarted)
			<-releaseRefresh
			writeJSON(t, w, http.StatusOK, map[string]string{
				"accessToken":  mintToken(t, time.Now().Add(time.Hour)),
				"refreshToken": "R2",
			})
		},
		"POST /auth/logout": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		},
	})
	m, st := newTestManager(t, srv)
	seedSession(t, st, mintToken(t, time.Now().Add(-time.Second)), "R1")
	m.Initialize(t.Context())

	result := make(chan bool, 1)
	go func() { result <- m.EnsureValid(context.Background()) }()

	<-refreshStarted
	m.Logout(t.Context())
	close(releaseRefresh)

	require.False(t, <-result, "a refresh that lands after logout must not resurrect the session")
	require.Equal(t, Session{}, m.Current())
}
