package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// probeMovieID is a long-established IMDb title used purely as a capability
// probe against addons that declare stream support but list no catalogs.
const probeMovieID = "tt0054215"

// FunctionalResult is the outcome of a functional verification.
type FunctionalResult struct {
	Healthy   bool   `json:"isHealthy"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency,omitempty"`
}

// Manifest is the subset of an addon manifest the verifier inspects.
type Manifest struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Catalogs  []ManifestCatalog `json:"catalogs"`
	Resources []json.RawMessage `json:"resources"`
}

// ManifestCatalog identifies one catalog an addon serves.
type ManifestCatalog struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// DeclaresStream reports whether the manifest declares stream capability.
// Resource entries come in two wire forms: a bare string ("stream") or an
// object with a name field.
func (m *Manifest) DeclaresStream() bool {
	for _, raw := range m.Resources {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			var obj struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(raw, &obj); err != nil {
				continue
			}
			name = obj.Name
		}
		if name == "stream" {
			return true
		}
	}
	return false
}

// Verifier performs the deep one-shot check: fetch manifest, pick a probe
// resource, fetch it, and validate the shape of the payload. It proves the
// addon serves usable data, not merely that the endpoint answers.
//
// The verifier is independent of the batch scheduler and carries no shared
// state across calls.
type Verifier struct {
	client  HTTPDoer
	relay   Relay
	logger  zerolog.Logger
	timeout time.Duration
}

// VerifierConfig holds configuration for a Verifier.
type VerifierConfig struct {
	// HTTPClient executes direct fetches. Nil uses a plain client.
	HTTPClient HTTPDoer

	// Relay is the fallback fetch path when a direct fetch fails.
	Relay Relay

	// Logger for verification outcomes.
	Logger zerolog.Logger

	// Timeout is the per-fetch budget (default TierTimeout).
	Timeout time.Duration
}

// NewVerifier creates a functional verifier.
func NewVerifier(cfg VerifierConfig) *Verifier {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = TierTimeout
	}
	return &Verifier{
		client:  client,
		relay:   cfg.Relay,
		logger:  cfg.Logger,
		timeout: timeout,
	}
}

// Verify runs the functional check for one addon install URL. It never
// returns a Go error.
func (v *Verifier) Verify(ctx context.Context, installURL string) FunctionalResult {
	start := time.Now()

	manifestURL := ManifestURL(installURL)
	body, err := v.fetch(ctx, manifestURL)
	if err != nil {
		return FunctionalResult{Message: "Manifest unreachable"}
	}

	var manifest Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Unknown Error"
		}
		return FunctionalResult{Message: msg}
	}

	base := strings.TrimSuffix(manifestURL, manifestSuffix)

	var resourceURL string
	switch {
	case len(manifest.Catalogs) > 0:
		// Catalogs are preferred: an addon's own catalog is the resource
		// it is most certain to serve.
		first := manifest.Catalogs[0]
		resourceURL = fmt.Sprintf("%s/catalog/%s/%s.json", base, first.Type, first.ID)
	case manifest.DeclaresStream():
		resourceURL = fmt.Sprintf("%s/stream/movie/%s.json", base, probeMovieID)
	default:
		return FunctionalResult{
			Healthy:   true,
			Message:   "Manifest OK (No verifiable resources found)",
			LatencyMS: time.Since(start).Milliseconds(),
		}
	}

	payload, err := v.fetch(ctx, resourceURL)
	if err != nil {
		return FunctionalResult{Message: "Manifest OK but Resource Fetch Failed"}
	}

	var probe struct {
		Metas   json.RawMessage `json:"metas"`
		Streams json.RawMessage `json:"streams"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return FunctionalResult{Message: "Manifest OK but Resource Fetch Failed"}
	}

	if present(probe.Metas) || present(probe.Streams) {
		v.logger.Debug().
			Str("install_url", installURL).
			Str("resource_url", resourceURL).
			Msg("functional verification passed")
		return FunctionalResult{
			Healthy:   true,
			Message:   "Functional (Returned Data)",
			LatencyMS: time.Since(start).Milliseconds(),
		}
	}
	return FunctionalResult{Message: "Manifest OK but Resource Fetch Failed"}
}

// fetch GETs target directly and, on any failure, retries once through the
// relay. Each attempt gets its own timeout budget.
func (v *Verifier) fetch(ctx context.Context, target string) ([]byte, error) {
	body, err := v.fetchDirect(ctx, target)
	if err == nil {
		return body, nil
	}
	if v.relay == nil {
		return nil, err
	}
	return v.fetchRelayed(ctx, target)
}

func (v *Verifier) fetchDirect(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}

func (v *Verifier) fetchRelayed(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	resp, err := v.relay.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !success(resp.StatusCode) {
		return nil, fmt.Errorf("relay HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return io.ReadAll(resp.Body)
}

// present mirrors the truthiness the dashboard expects of a payload key:
// the key must exist with any value other than null, false, zero, or the
// empty string. An empty array still counts as present.
func present(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}
