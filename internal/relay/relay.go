// Package relay provides CORS-bypassing relay fetchers. A relay GETs a
// target URL on the caller's behalf and returns the target's response body
// as its own, which lets the health subsystem reach addons that block
// direct browser-side access.
//
// The default relay is the public allorigins.win service. Because its
// availability and rate limits are outside this system's control, the
// health packages depend only on the small Relay interface and the concrete
// client is swappable.
package relay

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/addonpulse/addonpulse/internal/resilience"
)

const (
	// DefaultBaseURL is the raw-passthrough endpoint of the allorigins
	// public relay.
	DefaultBaseURL = "https://api.allorigins.win/raw"

	// UpstreamName identifies the relay in the resilience registry.
	UpstreamName = "allorigins"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the relay client.
type ClientConfig struct {
	// BaseURL is the relay endpoint (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a default resilient client will be created.
	HTTPClient HTTPDoer

	// Timeout for individual relay requests (default: 10s).
	Timeout time.Duration

	// Registry receives the default resilient client's circuit state.
	// Ignored when HTTPClient is provided.
	Registry *resilience.Registry

	// Metrics records relay request durations and outcomes.
	// Ignored when HTTPClient is provided.
	Metrics *resilience.UpstreamMetrics
}

// Client fetches target URLs through a relay endpoint.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a relay client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:            UpstreamName,
			Timeout:         timeout,
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Registry:        cfg.Registry,
			Metrics:         cfg.Metrics,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the configured relay endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL returns the relay URL that fetches target.
func (c *Client) URL(target string) string {
	return c.baseURL + "?url=" + url.QueryEscape(target)
}

// Get fetches target through the relay. The returned response stands in
// for the target's own response and must be closed by the caller.
func (c *Client) Get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(target), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	return c.httpClient.Do(req)
}
