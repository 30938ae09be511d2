package lectern

import (
	"context"
	"fmt"
	"net/http"
)

// Login exchanges instructor credentials for a token pair. Credential
// rejections surface as *APIError (see IsInvalidCredentials).
func (c *Client) Login(ctx context.Context, email, password string) (*Credentials, error) {
	payload := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var creds Credentials
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", payload, &creds); err != nil {
		return nil, err
	}
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return nil, fmt.Errorf("login response missing tokens")
	}

	return &creds, nil
}

// Register creates a new instructor account and returns its first token pair.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Credentials, error) {
	var creds Credentials
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", req, &creds); err != nil {
		return nil, err
	}
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return nil, fmt.Errorf("register response missing tokens")
	}

	return &creds, nil
}

// Refresh exchanges a refresh token for a new token pair. Most refresh-token
// schemes invalidate the old token on use, so the caller must adopt the new
// pair or consider the session dead.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	payload := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}

	var pair TokenPair
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", payload, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, fmt.Errorf("refresh response missing tokens")
	}

	return &pair, nil
}

// Logout tells the server to revoke the refresh token. Callers treat this as
// best-effort; local session state is cleared regardless of the outcome.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	payload := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}

	return c.doJSON(ctx, http.MethodPost, "/auth/logout", payload, nil)
}
