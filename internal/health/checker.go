package health

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Checker decides online/offline for one addon URL using three escalating
// strategies, each with its own TierTimeout budget:
//
//  1. Origin probe: scheme+host only, path "/". Cheapest, least flooding,
//     and short-circuits the rest when it succeeds.
//  2. Manifest probe: the addon's manifest endpoint.
//  3. Relay probe: GET through a CORS-bypassing relay, the last resort for
//     addons blocked by browser-side CORS or mixed-content rules.
type Checker struct {
	prober  *Prober
	relay   Relay
	logger  zerolog.Logger
	timeout time.Duration
	grace   time.Duration
}

// CheckerConfig holds configuration for a Checker.
type CheckerConfig struct {
	// HTTPClient executes direct probe requests. Nil uses a plain client.
	HTTPClient HTTPDoer

	// Relay executes the tier-3 relayed fetch. Required.
	Relay Relay

	// Logger for per-addon check outcomes.
	Logger zerolog.Logger

	// TierTimeout overrides the per-tier budget (default TierTimeout).
	TierTimeout time.Duration

	// PendingGrace overrides the shared-check grace window (default
	// PendingGrace). Tests shrink this to avoid real sleeps.
	PendingGrace time.Duration
}

// NewChecker creates a cascading health checker.
func NewChecker(cfg CheckerConfig) *Checker {
	timeout := cfg.TierTimeout
	if timeout == 0 {
		timeout = TierTimeout
	}
	grace := cfg.PendingGrace
	if grace == 0 {
		grace = PendingGrace
	}
	return &Checker{
		prober:  NewProber(cfg.HTTPClient),
		relay:   cfg.Relay,
		logger:  cfg.Logger,
		timeout: timeout,
		grace:   grace,
	}
}

// CheckAddon runs the tier cascade for one addon install URL. It never
// returns a Go error; all failures resolve to an offline Status.
func (c *Checker) CheckAddon(ctx context.Context, installURL string) Status {
	origin := originOf(installURL)

	if res := c.prober.Probe(ctx, origin+"/", c.timeout); res.OK {
		return Status{Online: true}
	}

	manifestRes := c.prober.Probe(ctx, ManifestURL(installURL), c.timeout)
	if manifestRes.OK {
		return Status{Online: true}
	}

	if c.relayReachable(ctx, origin) {
		return Status{Online: true}
	}

	// The manifest tier addresses the addon's actual endpoint, so its
	// error is the most specific one to report. Relay failures say more
	// about the relay than about the addon and never override it.
	errMsg := manifestRes.Error
	if errMsg == "" {
		errMsg = "Connection Failed"
	}

	c.logger.Debug().
		Str("install_url", installURL).
		Str("error", errMsg).
		Msg("addon offline after all tiers")

	return Status{Online: false, Error: errMsg}
}

// relayReachable runs the tier-3 relayed GET against the addon origin.
func (c *Checker) relayReachable(ctx context.Context, origin string) bool {
	if c.relay == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.relay.Get(ctx, origin)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return success(resp.StatusCode)
}
