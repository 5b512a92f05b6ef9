package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropsight/cropsight/internal/analytics"
)

// spyAPI records the calls the orchestrator makes and their order.
type spyAPI struct {
	mu    sync.Mutex
	calls []string

	analyzeSnapshot *analytics.Snapshot
	analyzeErr      error
	analyzeDelay    time.Duration
	analyzeLookback int
	analyzeDate     time.Time

	historyPoints   []analytics.HistoryPoint
	historyErr      error
	historyStart    time.Time
	historyEnd      time.Time
	historyInterval int
}

func (s *spyAPI) AnalyzeFarm(_ context.Context, farmID string, analysisDate time.Time, lookbackDays int) (*analytics.Snapshot, error) {
	s.mu.Lock()
	s.calls = append(s.calls, "analyze:"+farmID)
	s.analyzeDate = analysisDate
	s.analyzeLookback = lookbackDays
	s.mu.Unlock()

	if s.analyzeDelay > 0 {
		time.Sleep(s.analyzeDelay)
	}
	return s.analyzeSnapshot, s.analyzeErr
}

func (s *spyAPI) History(_ context.Context, farmID string, start, end time.Time, intervalDays int) ([]analytics.HistoryPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "history:"+farmID)
	s.historyStart = start
	s.historyEnd = end
	s.historyInterval = intervalDays
	return s.historyPoints, s.historyErr
}

func (s *spyAPI) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
}

func TestOrchestratorAnalyzeSequence(t *testing.T) {
	api := &spyAPI{
		analyzeSnapshot: &analytics.Snapshot{ID: "ana_1", FarmID: "frm_1"},
		historyPoints: []analytics.HistoryPoint{
			{Date: fixedNow().AddDate(0, 0, -20)},
			{Date: fixedNow().AddDate(0, 0, -10)},
		},
	}
	o := NewOrchestrator(OrchestratorConfig{API: api, Now: fixedNow})

	result, err := o.Analyze(context.Background(), "frm_1")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, []string{"analyze:frm_1", "history:frm_1"}, api.callLog())
	assert.Equal(t, AnalyzeLookbackDays, api.analyzeLookback)
	assert.Equal(t, fixedNow(), api.analyzeDate)
	assert.Equal(t, fixedNow().AddDate(0, 0, -HistoryWindowDays), api.historyStart)
	assert.Equal(t, fixedNow(), api.historyEnd)
	assert.Equal(t, HistoryIntervalDays, api.historyInterval)

	assert.Equal(t, "ana_1", result.Snapshot.ID)
	assert.Len(t, result.History, 2)
	assert.False(t, o.Analyzing())
}

func TestOrchestratorAnalyzeFailureSkipsHistory(t *testing.T) {
	api := &spyAPI{analyzeErr: errors.New("No satellite scene available")}
	o := NewOrchestrator(OrchestratorConfig{API: api, Now: fixedNow})

	result, err := o.Analyze(context.Background(), "frm_1")
	require.Error(t, err)
	assert.Nil(t, result)

	assert.Equal(t, []string{"analyze:frm_1"}, api.callLog(),
		"history must never be requested after a failed analysis")
	assert.Equal(t, "Analysis failed: No satellite scene available", err.Error())

	var analysisErr *AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.ErrorIs(t, err, api.analyzeErr)
}

func TestOrchestratorHistoryFailureFailsWhole(t *testing.T) {
	api := &spyAPI{
		analyzeSnapshot: &analytics.Snapshot{ID: "ana_1"},
		historyErr:      errors.New("service unavailable"),
	}
	o := NewOrchestrator(OrchestratorConfig{API: api, Now: fixedNow})

	result, err := o.Analyze(context.Background(), "frm_1")
	require.Error(t, err)
	assert.Nil(t, result, "no partial result on history failure")
	assert.Equal(t, "Analysis failed: service unavailable", err.Error())
}

func TestOrchestratorEmptyHistoryIsNotNil(t *testing.T) {
	api := &spyAPI{
		analyzeSnapshot: &analytics.Snapshot{ID: "ana_1"},
		historyPoints:   nil,
	}
	o := NewOrchestrator(OrchestratorConfig{API: api, Now: fixedNow})

	result, err := o.Analyze(context.Background(), "frm_1")
	require.NoError(t, err)
	require.NotNil(t, result.History)
	assert.Empty(t, result.History)
}

func TestOrchestratorRejectsOverlap(t *testing.T) {
	api := &spyAPI{
		analyzeSnapshot: &analytics.Snapshot{ID: "ana_1"},
		analyzeDelay:    50 * time.Millisecond,
	}
	o := NewOrchestrator(OrchestratorConfig{API: api, Now: fixedNow})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = o.Analyze(context.Background(), "frm_1")
	}()

	// Let the first call take the slot.
	time.Sleep(10 * time.Millisecond)
	assert.True(t, o.Analyzing())

	_, err := o.Analyze(context.Background(), "frm_1")
	assert.ErrorIs(t, err, ErrAnalysisInProgress)

	wg.Wait()
	assert.False(t, o.Analyzing())
}
