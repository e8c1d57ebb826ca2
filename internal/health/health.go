// Package health implements the addon health-probe engine: a single-URL
// endpoint prober, a cascading multi-tier checker, a bounded-concurrency
// batch scheduler, and a deeper functional verifier.
//
// None of the public entry points return a Go error. Every failure mode is
// folded into a structured result so that a single bad addon can never abort
// a batch sweep.
package health

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// TierTimeout is the budget given to each escalation tier of a check.
	TierTimeout = 10 * time.Second

	// BatchSize is the number of addons checked concurrently by CheckAll.
	// Each batch settles fully before the next one starts.
	BatchSize = 5

	// PendingGrace is how long a settled shared check stays joinable for
	// near-simultaneous callers before it is dropped from the registry.
	PendingGrace = 2 * time.Second
)

// manifestSuffix is the well-known manifest path of an addon endpoint.
const manifestSuffix = "/manifest.json"

// Status is the outcome of one reachability check.
type Status struct {
	Online bool   `json:"isOnline"`
	Error  string `json:"error,omitempty"`
}

// Report couples a Status with the moment it was produced. CheckAll returns
// one Report per input URL, in input order.
type Report struct {
	Status
	LastChecked time.Time
}

// HTTPDoer abstracts HTTP request execution so tests can substitute a fake
// transport and count calls.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Relay fetches a target URL through a CORS-bypassing relay service. The
// relay's response body stands in for the target's own response.
type Relay interface {
	Get(ctx context.Context, target string) (*http.Response, error)
}

// originOf derives scheme://host[:port] from an addon URL. Unparseable
// input falls back to the raw string so a malformed URL still produces a
// probe attempt rather than a skipped addon.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

// ManifestURL returns the manifest endpoint for an addon install URL,
// appending the manifest path unless the URL already ends with it.
func ManifestURL(installURL string) string {
	if strings.HasSuffix(installURL, manifestSuffix) {
		return installURL
	}
	return strings.TrimSuffix(installURL, "/") + manifestSuffix
}
