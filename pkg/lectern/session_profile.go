package lectern

import (
	"context"
	"net/http"
)

// CurrentUser fetches the instructor's profile from the server and replaces
// the session's user record with it. Tokens are untouched.
func (m *Manager) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := m.doAuthJSON(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}

	m.replaceUser(ctx, &user)
	return &user, nil
}

// UpdateProfile updates the instructor's profile. On success the session's
// user record is replaced and persisted; tokens are untouched.
func (m *Manager) UpdateProfile(ctx context.Context, input ProfileInput) (*User, error) {
	var user User
	if err := m.doAuthJSON(ctx, http.MethodPut, "/users/me", input, &user); err != nil {
		return nil, err
	}

	m.replaceUser(ctx, &user)
	return &user, nil
}

// replaceUser swaps the session's user identity in place. A session that
// ended while the request was in flight stays ended.
func (m *Manager) replaceUser(ctx context.Context, user *User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.session.Authenticated {
		return
	}
	m.session.User = user
	m.persistLocked(ctx)
}
