package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropsight/cropsight/internal/analytics"
	"github.com/cropsight/cropsight/internal/farm"
	"github.com/cropsight/cropsight/internal/worker"
	"github.com/cropsight/cropsight/pkg/geometry"
)

// fakeAnalyzer records analyzed farms and returns a configurable error.
type fakeAnalyzer struct {
	mu       sync.Mutex
	analyzed []string
	errs     map[string]error
}

func (a *fakeAnalyzer) Analyze(_ context.Context, _, farmID string, _ time.Time, _ int) (*analytics.Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err, ok := a.errs[farmID]; ok {
		return nil, err
	}
	a.analyzed = append(a.analyzed, farmID)
	return &analytics.Snapshot{ID: "ana_test", FarmID: farmID}, nil
}

func (a *fakeAnalyzer) analyzedFarms() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.analyzed...)
}

func seedFarm(t *testing.T, repo farm.Repository, id string, lastAnalyzed *time.Time) {
	t.Helper()

	err := repo.Create(context.Background(), &farm.Farm{
		ID:       id,
		FarmerID: "fmr_worker_test",
		Name:     "Farm " + id,
		Boundary: geometry.Boundary{
			Type: geometry.PolygonType,
			Coordinates: []geometry.Ring{{
				{77.1, 28.5}, {77.2, 28.5}, {77.2, 28.6}, {77.1, 28.6}, {77.1, 28.5},
			}},
		},
		CreatedAt:      time.Now(),
		LastAnalyzedAt: lastAnalyzed,
	})
	require.NoError(t, err)
}

func TestDefaultRefreshConfig(t *testing.T) {
	cfg := worker.DefaultRefreshConfig()

	assert.Equal(t, 7*24*time.Hour, cfg.StaleAfter)
	assert.Equal(t, 50, cfg.BatchLimit)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 10, cfg.LookbackDays)
}

func TestRefreshJob_Run_NoStaleFarms(t *testing.T) {
	repo := farm.NewMemoryRepository()
	fresh := time.Now()
	seedFarm(t, repo, "frm_fresh", &fresh)

	analyzer := &fakeAnalyzer{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Logger:   zerolog.Nop(),
		Farms:    repo,
		Analyzer: analyzer,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 0, result.TotalFarms)
	assert.Equal(t, 0, result.Successful)
	assert.Empty(t, analyzer.analyzedFarms())
}

func TestRefreshJob_Run_AnalyzesStaleFarms(t *testing.T) {
	repo := farm.NewMemoryRepository()
	old := time.Now().AddDate(0, 0, -30)
	seedFarm(t, repo, "frm_stale", &old)
	seedFarm(t, repo, "frm_never", nil)
	fresh := time.Now()
	seedFarm(t, repo, "frm_fresh", &fresh)

	analyzer := &fakeAnalyzer{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Logger:   zerolog.Nop(),
		Farms:    repo,
		Analyzer: analyzer,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 2, result.TotalFarms)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 0, result.Failed)

	analyzed := analyzer.analyzedFarms()
	assert.ElementsMatch(t, []string{"frm_stale", "frm_never"}, analyzed)
}

func TestRefreshJob_Run_BatchLimit(t *testing.T) {
	repo := farm.NewMemoryRepository()
	for _, id := range []string{"frm_a", "frm_b", "frm_c"} {
		seedFarm(t, repo, id, nil)
	}

	analyzer := &fakeAnalyzer{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{BatchLimit: 2},
		Logger:   zerolog.Nop(),
		Farms:    repo,
		Analyzer: analyzer,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 2, result.TotalFarms)
	assert.Len(t, analyzer.analyzedFarms(), 2)
}

func TestRefreshJob_Run_NoSceneNotCountedAsFailure(t *testing.T) {
	repo := farm.NewMemoryRepository()
	seedFarm(t, repo, "frm_cloudy", nil)
	seedFarm(t, repo, "frm_clear", nil)

	analyzer := &fakeAnalyzer{
		errs: map[string]error{"frm_cloudy": analytics.ErrNoSceneAvailable},
	}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Logger:   zerolog.Nop(),
		Farms:    repo,
		Analyzer: analyzer,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 2, result.TotalFarms)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.NoScene)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)
}

func TestRefreshJob_Run_CollectsErrors(t *testing.T) {
	repo := farm.NewMemoryRepository()
	seedFarm(t, repo, "frm_bad", nil)

	analyzer := &fakeAnalyzer{
		errs: map[string]error{"frm_bad": errors.New("provider exploded")},
	}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Logger:   zerolog.Nop(),
		Farms:    repo,
		Analyzer: analyzer,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "frm_bad", result.Errors[0].FarmID)
	assert.Contains(t, result.Errors[0].Error, "provider exploded")
}

func TestRefreshJob_Run_WithConcurrency(t *testing.T) {
	repo := farm.NewMemoryRepository()
	for i := 0; i < 10; i++ {
		seedFarm(t, repo, "frm_"+string(rune('a'+i)), nil)
	}

	analyzer := &fakeAnalyzer{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Concurrency: 3},
		Logger:   zerolog.Nop(),
		Farms:    repo,
		Analyzer: analyzer,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 10, result.TotalFarms)
	assert.Equal(t, 10, result.Successful)
}

func TestRefreshJob_Run_ContextCancellation(t *testing.T) {
	repo := farm.NewMemoryRepository()
	for i := 0; i < 20; i++ {
		seedFarm(t, repo, "frm_"+string(rune('a'+i)), nil)
	}

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:   worker.RefreshConfig{Concurrency: 1},
		Logger:   zerolog.Nop(),
		Farms:    repo,
		Analyzer: &fakeAnalyzer{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)

	// Should complete even if not all farms were processed.
	assert.NotNil(t, result)
}

func TestRefreshJob_GetMetrics(t *testing.T) {
	repo := farm.NewMemoryRepository()
	seedFarm(t, repo, "frm_metrics", nil)

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Logger:   zerolog.Nop(),
		Farms:    repo,
		Analyzer: &fakeAnalyzer{},
	})

	_ = job.Run(context.Background())

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalRuns)
	assert.Equal(t, int64(1), metrics.FarmsAnalyzed)
	assert.NotZero(t, metrics.LastRunAt)
}

func TestRefreshJob_MetricsSnapshot(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Logger:   zerolog.Nop(),
		Farms:    farm.NewMemoryRepository(),
		Analyzer: &fakeAnalyzer{},
	})

	_ = job.Run(context.Background())

	snapshot := job.MetricsSnapshot()

	assert.Contains(t, snapshot, "total_runs")
	assert.Contains(t, snapshot, "farms_analyzed")
	assert.Contains(t, snapshot, "farms_failed")
	assert.Contains(t, snapshot, "last_run_at")
	assert.Contains(t, snapshot, "last_run_duration")
}
