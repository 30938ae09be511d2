package lectern

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// doJSON performs an unauthenticated JSON request with the Client's HTTP
// client and decodes the response into target (when target is non-nil).
// Error responses come back as typed *APIError values.
func (c *Client) doJSON(
	ctx context.Context,
	method, path string,
	payload, target any,
) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	return decodeJSON(resp, target)
}

// decodeJSON consumes a response body, converting non-2xx statuses into
// typed errors and decoding successful bodies into target.
func decodeJSON(resp *http.Response, target any) error {
	defer resp.Body.Close()

	// Read once so the body serves both error parsing and success decoding
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if err := parseErrorResponse(resp.StatusCode, bodyBytes); err != nil {
		return err
	}

	if target == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
