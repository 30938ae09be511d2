package lectern

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// doAuthRequest is the single choke point for authenticated requests. It
// validates (and if needed refreshes) the access token, attaches the Bearer
// header, and maps any 401 response to a forced logout plus ErrUnauthorized.
// Network code never touches navigation; the UI layer reacts to the
// unauthenticated signal instead.
func (m *Manager) doAuthRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	if !m.EnsureValid(ctx) {
		return nil, ErrUnauthorized
	}

	m.mu.Lock()
	token := m.session.AccessToken
	m.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, method, m.client.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := m.client.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	// A 401 anywhere means the token pair is dead server-side. A dangling
	// session is worse than forcing re-authentication.
	if resp.StatusCode == http.StatusUnauthorized {
		_ = resp.Body.Close()
		m.log.Warn("server rejected access token, ending session")
		m.endSession(ctx)
		return nil, ErrUnauthorized
	}

	return resp, nil
}

// doAuthJSON wraps doAuthRequest for JSON request/response payloads.
func (m *Manager) doAuthJSON(
	ctx context.Context,
	method, path string,
	payload, target any,
) error {
	var body io.Reader
	headers := map[string]string{}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
		headers["Content-Type"] = "application/json"
	}

	resp, err := m.doAuthRequest(ctx, method, path, body, headers)
	if err != nil {
		return err
	}

	return decodeJSON(resp, target)
}
