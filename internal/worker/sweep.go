// Package worker provides background job processing for AddonPulse.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/addonpulse/addonpulse/internal/addon"
	"github.com/addonpulse/addonpulse/internal/health"
)

// AddonStore is the slice of the addon repository the sweep needs.
type AddonStore interface {
	List(ctx context.Context) ([]*addon.Addon, error)
	SaveHealth(ctx context.Context, id string, h addon.Health) error
}

// HealthChecker runs reachability checks over a set of install URLs.
type HealthChecker interface {
	CheckAll(ctx context.Context, installURLs []string, onProgress health.Progress) []health.Report
}

// SweepJob runs periodic health sweeps over the addon registry.
type SweepJob struct {
	config  SweepConfig
	store   AddonStore
	checker HealthChecker
	logger  zerolog.Logger

	// Metrics
	metrics *SweepMetrics
}

// SweepConfig holds configuration for the health sweep job.
type SweepConfig struct {
	// Timeout is the budget for a whole sweep.
	// Default: 5 minutes
	Timeout time.Duration
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Timeout: 5 * time.Minute,
	}
}

// SweepMetrics tracks sweep job statistics.
type SweepMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalSweeps   int64
	AddonsChecked int64
	AddonsOnline  int64
	AddonsOffline int64
	SaveFailures  int64

	// Timings
	LastSweepAt       time.Time
	LastSweepDuration time.Duration
	TotalDuration     time.Duration
}

// SweepJobConfig holds configuration for creating a SweepJob.
type SweepJobConfig struct {
	Config  SweepConfig
	Store   AddonStore
	Checker HealthChecker
	Logger  zerolog.Logger
}

// NewSweepJob creates a new health sweep job processor.
func NewSweepJob(cfg SweepJobConfig) *SweepJob {
	config := cfg.Config
	if config.Timeout == 0 {
		config = DefaultSweepConfig()
	}

	return &SweepJob{
		config:  config,
		store:   cfg.Store,
		checker: cfg.Checker,
		logger:  cfg.Logger,
		metrics: &SweepMetrics{},
	}
}

// SweepResult contains the result of one health sweep.
type SweepResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Total     int
	Online    int
	Offline   int
	Errors    []SweepError
}

// SweepError represents a persistence failure during a sweep.
type SweepError struct {
	AddonID string
	Error   string
}

// Run executes one health sweep over every installed addon.
func (j *SweepJob) Run(ctx context.Context) (*SweepResult, error) {
	startTime := time.Now()

	sweepCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	addons, err := j.store.List(sweepCtx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{
		StartTime: startTime,
		Total:     len(addons),
	}

	j.logger.Info().
		Int("total", result.Total).
		Msg("starting addon health sweep")

	urls := make([]string, len(addons))
	for i, a := range addons {
		urls[i] = a.InstallURL
	}

	reports := j.checker.CheckAll(sweepCtx, urls, func(completed, total int) {
		j.logger.Debug().
			Int("completed", completed).
			Int("total", total).
			Msg("health sweep progress")
	})

	for i, a := range addons {
		if reports[i].Online {
			result.Online++
		} else {
			result.Offline++
		}

		h := addon.Health{
			Online:      reports[i].Online,
			Error:       reports[i].Error,
			LastChecked: reports[i].LastChecked,
		}
		if err := j.store.SaveHealth(sweepCtx, a.ID, h); err != nil {
			result.Errors = append(result.Errors, SweepError{
				AddonID: a.ID,
				Error:   err.Error(),
			})
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	// Update metrics
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("online", result.Online).
		Int("offline", result.Offline).
		Int("save_failures", len(result.Errors)).
		Msg("addon health sweep completed")

	return result, nil
}

func (j *SweepJob) updateMetrics(result *SweepResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalSweeps++
	j.metrics.AddonsChecked += int64(result.Total)
	j.metrics.AddonsOnline += int64(result.Online)
	j.metrics.AddonsOffline += int64(result.Offline)
	j.metrics.SaveFailures += int64(len(result.Errors))
	j.metrics.LastSweepAt = result.EndTime
	j.metrics.LastSweepDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *SweepJob) GetMetrics() SweepMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return SweepMetrics{
		TotalSweeps:       j.metrics.TotalSweeps,
		AddonsChecked:     j.metrics.AddonsChecked,
		AddonsOnline:      j.metrics.AddonsOnline,
		AddonsOffline:     j.metrics.AddonsOffline,
		SaveFailures:      j.metrics.SaveFailures,
		LastSweepAt:       j.metrics.LastSweepAt,
		LastSweepDuration: j.metrics.LastSweepDuration,
		TotalDuration:     j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *SweepJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_sweeps":        m.TotalSweeps,
		"addons_checked":      m.AddonsChecked,
		"addons_online":       m.AddonsOnline,
		"addons_offline":      m.AddonsOffline,
		"save_failures":       m.SaveFailures,
		"last_sweep_at":       m.LastSweepAt,
		"last_sweep_duration": m.LastSweepDuration.String(),
		"total_duration":      m.TotalDuration.String(),
	}
}
