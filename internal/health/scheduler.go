package health

import (
	"context"
	"sync"
	"time"
)

// Progress is invoked after each settled batch with the cumulative number
// of completed checks and the total.
type Progress func(completed, total int)

// CheckAll runs the tier cascade over a set of addon install URLs with
// bounded parallelism and returns one Report per URL, in input order.
//
// URLs are processed in fixed batches of BatchSize; a batch settles fully
// before the next one starts, and onProgress fires once per settled batch.
//
// Within one call, origins confirmed online are cached and concurrent
// checks of the same origin are coalesced. Both structures are local to the
// call, so separate sweeps stay independent.
func (c *Checker) CheckAll(ctx context.Context, installURLs []string, onProgress Progress) []Report {
	total := len(installURLs)
	reports := make([]Report, total)

	confirmed := newOriginCache()
	pending := newPendingChecks(c.grace)

	for start := 0; start < total; start += BatchSize {
		end := start + BatchSize
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int, installURL string) {
				defer wg.Done()
				reports[i] = Report{
					Status:      c.checkCoalesced(ctx, installURL, confirmed, pending),
					LastChecked: time.Now(),
				}
			}(i, installURLs[i])
		}
		wg.Wait()

		if onProgress != nil {
			onProgress(end, total)
		}
	}

	return reports
}

// checkCoalesced checks one addon, reusing per-origin results where safe.
func (c *Checker) checkCoalesced(ctx context.Context, installURL string, confirmed *originCache, pending *pendingChecks) Status {
	origin := originOf(installURL)

	if confirmed.isOnline(origin) {
		return Status{Online: true}
	}

	shared := pending.getOrStart(origin, func() Status {
		status := c.CheckAddon(ctx, installURL)
		if status.Online {
			confirmed.markOnline(origin)
		}
		return status
	})

	status := shared.wait()
	if status.Online {
		return status
	}

	// A shared negative result must never condemn a sibling: addons are
	// coalesced by origin but checked by full URL, and this addon's path
	// may differ from the one that failed. Re-run it independently.
	status = c.CheckAddon(ctx, installURL)
	if status.Online {
		confirmed.markOnline(origin)
	}
	return status
}
