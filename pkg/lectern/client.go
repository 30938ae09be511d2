package lectern

import (
	"net/http"
	"strings"

	"github.com/lecternhq/lectern-go/pkg/httpx"
)

// userAgent identifies this SDK to the API.
const userAgent = "lectern-go/1"

// Client is the HTTP transport for the Lectern API. It performs the
// unauthenticated auth exchanges (login, register, refresh, logout) and
// carries the HTTP client that authenticated dispatch reuses.
//
// A Client on its own holds no credentials; session state lives in Manager.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a transport for the API at baseURL, using the SDK's
// default rate-limited HTTP client with a bounded timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: httpx.NewClient(userAgent),
	}
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}
