// Package session holds the per-user client session state: the active
// farm, its analytics, and the orchestration that loads them.
package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cropsight/cropsight/internal/analytics"
)

// Analysis window parameters. The analyze call looks back 10 days for a
// usable scene; the history series covers the trailing 30 days at a
// 5-day interval.
const (
	AnalyzeLookbackDays = 10
	HistoryWindowDays   = 30
	HistoryIntervalDays = 5
)

// ErrAnalysisInProgress is returned when an analysis is already running
// for this orchestrator. Callers wait for the first to finish; requests
// are never queued.
var ErrAnalysisInProgress = errors.New("analysis already in progress")

// AnalysisError is the user-facing analysis failure. Its message always
// carries the "Analysis failed: " prefix.
type AnalysisError struct {
	Message string
	Err     error
}

func (e *AnalysisError) Error() string { return "Analysis failed: " + e.Message }
func (e *AnalysisError) Unwrap() error { return e.Err }

// AnalyticsAPI is the slice of the API client the orchestrator drives.
type AnalyticsAPI interface {
	AnalyzeFarm(ctx context.Context, farmID string, analysisDate time.Time, lookbackDays int) (*analytics.Snapshot, error)
	History(ctx context.Context, farmID string, start, end time.Time, intervalDays int) ([]analytics.HistoryPoint, error)
}

// Result is a completed analysis: the fresh snapshot and the historical
// series fetched after it.
type Result struct {
	Snapshot *analytics.Snapshot
	History  []analytics.HistoryPoint
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	API    AnalyticsAPI
	Logger zerolog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Orchestrator sequences the analyze request and the history fetch into
// one operation. The two calls are strictly ordered: history is only
// requested once analyze has succeeded, so a failed analysis never shows
// stale history next to no snapshot. There is no internal retry; the
// user retries explicitly.
type Orchestrator struct {
	api    AnalyticsAPI
	logger zerolog.Logger
	now    func() time.Time

	inFlight atomic.Bool
}

// NewOrchestrator creates a new analysis orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		api:    cfg.API,
		logger: cfg.Logger,
		now:    now,
	}
}

// Analyzing reports whether an analysis is currently running.
func (o *Orchestrator) Analyzing() bool {
	return o.inFlight.Load()
}

// Analyze runs a full analysis for the farm. Overlapping calls fail fast
// with ErrAnalysisInProgress. Any failure surfaces as an *AnalysisError;
// a partial result is never returned.
func (o *Orchestrator) Analyze(ctx context.Context, farmID string) (*Result, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrAnalysisInProgress
	}
	defer o.inFlight.Store(false)

	now := o.now()

	snapshot, err := o.api.AnalyzeFarm(ctx, farmID, now, AnalyzeLookbackDays)
	if err != nil {
		o.logger.Warn().
			Err(err).
			Str("farm_id", farmID).
			Msg("farm analysis failed")
		return nil, &AnalysisError{Message: err.Error(), Err: err}
	}

	start := now.AddDate(0, 0, -HistoryWindowDays)
	history, err := o.api.History(ctx, farmID, start, now, HistoryIntervalDays)
	if err != nil {
		o.logger.Warn().
			Err(err).
			Str("farm_id", farmID).
			Msg("history fetch failed after analysis")
		return nil, &AnalysisError{Message: err.Error(), Err: err}
	}
	if history == nil {
		history = []analytics.HistoryPoint{}
	}

	o.logger.Debug().
		Str("farm_id", farmID).
		Int("history_points", len(history)).
		Msg("analysis complete")

	return &Result{Snapshot: snapshot, History: history}, nil
}
