package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ProbeResult is the outcome of probing a single URL.
type ProbeResult struct {
	OK    bool
	Error string
}

// Prober determines reachability of exactly one URL within a timeout.
//
// It issues a HEAD request first and escalates to GET only when the HEAD
// response is inconclusive. Many addon servers do not implement HEAD and
// answer 405; that alone proves the server is alive, so 405 short-circuits
// without a GET.
type Prober struct {
	client HTTPDoer
}

// NewProber creates a prober. A nil client falls back to a plain
// http.Client; per-probe deadlines come from the context, not the client.
func NewProber(client HTTPDoer) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	return &Prober{client: client}
}

// Probe checks whether rawURL answers within timeout. The deadline spans
// both the HEAD attempt and the GET fallback; it is not reset between them.
// Probe never panics or returns a Go error.
func (p *Prober) Probe(ctx context.Context, rawURL string, timeout time.Duration) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status, err := p.request(ctx, http.MethodHead, rawURL)
	if err != nil {
		return probeFailure(err)
	}
	if success(status) || status == http.StatusMethodNotAllowed {
		return ProbeResult{OK: true}
	}

	status, err = p.request(ctx, http.MethodGet, rawURL)
	if err != nil {
		return probeFailure(err)
	}
	if success(status) {
		return ProbeResult{OK: true}
	}
	return ProbeResult{Error: fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))}
}

// request performs a single HTTP call and reports only the status code.
// The response body is discarded; a probe cares about liveness, not content.
func (p *Prober) request(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
	if err != nil {
		return 0, err
	}
	// A stale cached response must not mask a down server.
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// probeFailure converts a transport error into a structured result.
// Deadline expiry is reported distinctly so callers can tell slow-but-alive
// from unreachable.
func probeFailure(err error) ProbeResult {
	if errors.Is(err, context.DeadlineExceeded) {
		return ProbeResult{Error: "Request Timeout"}
	}
	msg := err.Error()
	if msg == "" {
		msg = "Unknown Network Error"
	}
	return ProbeResult{Error: msg}
}
