package health

import (
	"sync"
	"time"
)

// sharedCheck is one in-flight (or just-settled) origin check that multiple
// addons may join. Status is valid only after done is closed.
type sharedCheck struct {
	done   chan struct{}
	status Status
}

func (s *sharedCheck) wait() Status {
	<-s.done
	return s.status
}

// pendingChecks collapses concurrent checks against the same origin into a
// single network operation. It is a request-coalescing registry, not a
// result cache: an entry lives only while its check is outstanding, plus a
// short grace window so near-simultaneous callers still join it.
//
// Checks run on separate goroutines, so the check-then-insert must be
// atomic; the mutex guards it.
type pendingChecks struct {
	mu       sync.Mutex
	inflight map[string]*sharedCheck
	grace    time.Duration
}

func newPendingChecks(grace time.Duration) *pendingChecks {
	return &pendingChecks{
		inflight: make(map[string]*sharedCheck),
		grace:    grace,
	}
}

// getOrStart joins the in-flight check for origin, starting one via fn when
// none exists. Removal from the registry is scheduled grace after fn
// settles.
func (p *pendingChecks) getOrStart(origin string, fn func() Status) *sharedCheck {
	p.mu.Lock()
	if sc, ok := p.inflight[origin]; ok {
		p.mu.Unlock()
		return sc
	}
	sc := &sharedCheck{done: make(chan struct{})}
	p.inflight[origin] = sc
	p.mu.Unlock()

	go func() {
		sc.status = fn()
		close(sc.done)
		time.AfterFunc(p.grace, func() {
			p.mu.Lock()
			delete(p.inflight, origin)
			p.mu.Unlock()
		})
	}()

	return sc
}

// originCache records origins confirmed online within one batch sweep.
// Write-once positive only: a failed origin-level check never poisons the
// cache, because each addon may still succeed on its own URL.
type originCache struct {
	mu     sync.Mutex
	online map[string]bool
}

func newOriginCache() *originCache {
	return &originCache{online: make(map[string]bool)}
}

func (c *originCache) isOnline(origin string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online[origin]
}

func (c *originCache) markOnline(origin string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.online[origin] = true
}
