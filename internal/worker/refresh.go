package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cropsight/cropsight/internal/analytics"
	"github.com/cropsight/cropsight/internal/farm"
)

// Analyzer runs a satellite analysis for one farm. Implemented by the
// analytics service.
type Analyzer interface {
	Analyze(ctx context.Context, farmerID, farmID string, analysisDate time.Time, lookbackDays int) (*analytics.Snapshot, error)
}

// RefreshJob re-analyzes farms whose stored analytics have gone stale.
type RefreshJob struct {
	config   RefreshConfig
	logger   zerolog.Logger
	farms    farm.Repository
	analyzer Analyzer

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns       int64
	FarmsAnalyzed   int64
	FarmsFailed     int64
	ScenesAvailable int64
	ScenesMissing   int64

	// Timings
	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config   RefreshConfig
	Logger   zerolog.Logger
	Farms    farm.Repository
	Analyzer Analyzer
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:   cfg.Config.withDefaults(),
		logger:   cfg.Logger,
		farms:    cfg.Farms,
		analyzer: cfg.Analyzer,
		metrics:  &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	TotalFarms int
	Successful int
	Failed     int
	// NoScene counts farms skipped because no usable satellite scene
	// existed in the lookback window. Not counted as failures.
	NoScene int
	Errors  []RefreshError
}

// RefreshError represents an error while refreshing one farm.
type RefreshError struct {
	FarmID string
	Error  string
}

// Run re-analyzes up to BatchLimit stale farms.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{StartTime: startTime}

	cutoff := startTime.Add(-j.config.StaleAfter)
	stale, err := j.farms.ListStale(ctx, cutoff, j.config.BatchLimit)
	if err != nil {
		j.logger.Error().Err(err).Msg("failed to list stale farms")
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(startTime)
		result.Errors = append(result.Errors, RefreshError{Error: err.Error()})
		return result
	}

	result.TotalFarms = len(stale)

	j.logger.Info().
		Int("stale_farms", len(stale)).
		Int("concurrency", j.config.Concurrency).
		Time("cutoff", cutoff).
		Msg("starting analytics refresh job")

	farmsChan := make(chan *farm.Farm, len(stale))
	resultsChan := make(chan farmResult, len(stale))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, farmsChan, resultsChan)
		}()
	}

	for _, f := range stale {
		farmsChan <- f
	}
	close(farmsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for fr := range resultsChan {
		switch {
		case fr.noScene:
			result.NoScene++
			atomic.AddInt64(&j.metrics.ScenesMissing, 1)
		case fr.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{
				FarmID: fr.farmID,
				Error:  fr.err.Error(),
			})
		default:
			result.Successful++
			atomic.AddInt64(&j.metrics.ScenesAvailable, 1)
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("no_scene", result.NoScene).
		Msg("analytics refresh job completed")

	return result
}

type farmResult struct {
	farmID  string
	noScene bool
	err     error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, farms <-chan *farm.Farm, results chan<- farmResult) {
	for f := range farms {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.refreshFarm(ctx, f)
		}
	}
}

func (j *RefreshJob) refreshFarm(ctx context.Context, f *farm.Farm) farmResult {
	farmCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	_, err := j.analyzer.Analyze(farmCtx, f.FarmerID, f.ID, time.Now().UTC(), j.config.LookbackDays)
	switch {
	case errors.Is(err, analytics.ErrNoSceneAvailable):
		// Cloudy window, retried on the next run.
		j.logger.Debug().Str("farm_id", f.ID).Msg("no scene available, skipping farm")
		return farmResult{farmID: f.ID, noScene: true}
	case err != nil:
		j.logger.Warn().Err(err).Str("farm_id", f.ID).Msg("farm refresh failed")
		return farmResult{farmID: f.ID, err: err}
	}
	return farmResult{farmID: f.ID}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.FarmsAnalyzed += int64(result.Successful)
	j.metrics.FarmsFailed += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		FarmsAnalyzed:   j.metrics.FarmsAnalyzed,
		FarmsFailed:     j.metrics.FarmsFailed,
		ScenesAvailable: j.metrics.ScenesAvailable,
		ScenesMissing:   j.metrics.ScenesMissing,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"farms_analyzed":    m.FarmsAnalyzed,
		"farms_failed":      m.FarmsFailed,
		"scenes_available":  m.ScenesAvailable,
		"scenes_missing":    m.ScenesMissing,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
