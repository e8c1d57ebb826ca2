package health

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPendingChecks_CoalescesConcurrentCallers(t *testing.T) {
	pending := newPendingChecks(50 * time.Millisecond)

	var started int32
	release := make(chan struct{})
	fn := func() Status {
		atomic.AddInt32(&started, 1)
		<-release
		return Status{Online: true}
	}

	var wg sync.WaitGroup
	results := make([]Status, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = pending.getOrStart("https://x.example", fn).wait()
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&started))
	for _, r := range results {
		assert.True(t, r.Online)
	}
}

func TestPendingChecks_GraceWindowThenExpiry(t *testing.T) {
	pending := newPendingChecks(40 * time.Millisecond)

	var runs int32
	fn := func() Status {
		atomic.AddInt32(&runs, 1)
		return Status{Online: true}
	}

	first := pending.getOrStart("https://x.example", fn)
	first.wait()

	// Within the grace window a new caller still joins the settled check.
	second := pending.getOrStart("https://x.example", fn)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))

	// After expiry the origin is checked anew.
	time.Sleep(100 * time.Millisecond)
	third := pending.getOrStart("https://x.example", fn)
	third.wait()
	assert.Equal(t, int32(2), atomic.LoadInt32(&runs))
}

func TestOriginCache_PositiveOnly(t *testing.T) {
	cache := newOriginCache()

	assert.False(t, cache.isOnline("https://x.example"))
	cache.markOnline("https://x.example")
	assert.True(t, cache.isOnline("https://x.example"))
	assert.False(t, cache.isOnline("https://y.example"))
}

func TestOriginOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://x.example/addon/manifest.json", "https://x.example"},
		{"http://x.example:7000/manifest.json", "http://x.example:7000"},
		{"not a url", "not a url"},
		{"/relative/path", "/relative/path"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, originOf(tt.in), tt.in)
	}
}
