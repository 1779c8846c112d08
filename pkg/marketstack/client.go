package marketstack

import (
	"fmt"
	"net/http"
)

// DefaultBaseURL points at v1 of the MarketStack REST API.
//
// Full documentation is available at https://marketstack.com/documentation
const DefaultBaseURL = "https://api.marketstack.com/v1"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=marketstack_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the MarketStack REST API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// accessKey authenticates every request, sent as the `access_key`
	// query parameter.
	accessKey string
	// httpClient is the HTTP client used to issue requests.
	httpClient HTTPClient
}

// Option is a configuration option for the MarketStack client.
type Option func(c *Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a new MarketStack API client.
//
// The access key is required - refusing to construct a client without
// one surfaces a bad deployment at startup instead of on every cycle.
func NewClient(accessKey string, opts ...Option) (*Client, error) {
	if accessKey == "" {
		return nil, fmt.Errorf("access key must not be empty")
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		accessKey:  accessKey,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}
