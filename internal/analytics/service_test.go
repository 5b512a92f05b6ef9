package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropsight/cropsight/pkg/geometry"
)

type fakeProvider struct {
	observation *Observation
	obsErr      error
	series      []SeriesSample
	seriesErr   error

	lastFrom, lastTo time.Time
	lastInterval     int
}

func (p *fakeProvider) FieldStatistics(_ context.Context, bbox geometry.BBox, from, to time.Time) (*Observation, error) {
	p.lastFrom, p.lastTo = from, to
	if p.obsErr != nil {
		return nil, p.obsErr
	}
	obs := *p.observation
	obs.BBox = bbox
	return &obs, nil
}

func (p *fakeProvider) NDVITimeseries(_ context.Context, _ geometry.BBox, from, to time.Time, intervalDays int) ([]SeriesSample, error) {
	p.lastFrom, p.lastTo = from, to
	p.lastInterval = intervalDays
	return p.series, p.seriesErr
}

type fakeFarms struct {
	boundary *geometry.Boundary
	err      error

	analyzedFarm string
	analyzedAt   time.Time
}

func (f *fakeFarms) FarmBoundary(_ context.Context, _, _ string) (*geometry.Boundary, error) {
	return f.boundary, f.err
}

func (f *fakeFarms) MarkAnalyzed(_ context.Context, farmID string, analyzedAt time.Time) error {
	f.analyzedFarm = farmID
	f.analyzedAt = analyzedAt
	return nil
}

func testBoundary() *geometry.Boundary {
	return &geometry.Boundary{
		Type: geometry.PolygonType,
		Coordinates: []geometry.Ring{{
			{77.1, 28.5}, {77.2, 28.5}, {77.2, 28.6}, {77.1, 28.6}, {77.1, 28.5},
		}},
	}
}

func newTestService(provider *fakeProvider, farms *fakeFarms) (*Service, *MemoryRepository) {
	repo := NewMemoryRepository()
	svc := NewService(ServiceConfig{
		Provider:   provider,
		Repository: repo,
		Farms:      farms,
	})
	return svc, repo
}

func TestServiceAnalyze(t *testing.T) {
	provider := &fakeProvider{
		observation: &Observation{
			NDVI:            IndexStats{Mean: 0.55, Min: 0.2, Max: 0.8, StdDev: 0.1},
			NDMI:            IndexStats{Mean: 0.25, Min: 0.0, Max: 0.5, StdDev: 0.08},
			AcquisitionDate: time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC),
			CloudCoverage:   8.5,
		},
	}
	farms := &fakeFarms{boundary: testBoundary()}
	svc, repo := newTestService(provider, farms)

	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	snapshot, err := svc.Analyze(context.Background(), "farmer_1", "frm_1", date, 0)
	require.NoError(t, err)

	// Default lookback window.
	assert.Equal(t, date.AddDate(0, 0, -DefaultLookbackDays), provider.lastFrom)
	assert.Equal(t, date, provider.lastTo)

	assert.Equal(t, "frm_1", snapshot.FarmID)
	assert.Equal(t, "Healthy Vegetation", snapshot.NDVI.Classification.Category)
	assert.Equal(t, "Moist", snapshot.NDMI.Classification.Category)
	assert.Equal(t, "Low", snapshot.Irrigation.Priority)
	assert.InDelta(t, 46.0, snapshot.Health.Score, 0.01)
	assert.Equal(t, "Fair", snapshot.Health.Status)
	assert.Equal(t, "SentinelHub", snapshot.Satellite.Provider)
	assert.InDelta(t, 8.5, snapshot.Satellite.CloudCoverage, 0.001)

	// Persisted and stamped.
	stored, err := repo.Latest(context.Background(), "frm_1")
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID, stored.ID)
	assert.Equal(t, "frm_1", farms.analyzedFarm)
	assert.False(t, farms.analyzedAt.IsZero())
}

func TestServiceAnalyzeProviderFailure(t *testing.T) {
	provider := &fakeProvider{obsErr: &Error{
		Provider: "sentinelhub",
		Code:     "NO_SCENE",
		Message:  "no usable scene",
		Err:      ErrNoSceneAvailable,
	}}
	farms := &fakeFarms{boundary: testBoundary()}
	svc, repo := newTestService(provider, farms)

	_, err := svc.Analyze(context.Background(), "farmer_1", "frm_1", time.Now(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSceneAvailable)

	// Nothing persisted, farm not stamped.
	_, err = repo.Latest(context.Background(), "frm_1")
	assert.ErrorIs(t, err, ErrNoAnalytics)
	assert.Empty(t, farms.analyzedFarm)
}

func TestServiceLatestWithoutAnalysis(t *testing.T) {
	svc, _ := newTestService(&fakeProvider{}, &fakeFarms{boundary: testBoundary()})

	_, err := svc.Latest(context.Background(), "farmer_1", "frm_1")
	assert.ErrorIs(t, err, ErrNoAnalytics)
}

func TestServiceHistory(t *testing.T) {
	provider := &fakeProvider{series: []SeriesSample{
		{Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), NDVI: IndexStats{Mean: 0.5}},
		{Date: time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC), NDVI: IndexStats{Mean: 0.1}},
	}}
	svc, _ := newTestService(provider, &fakeFarms{boundary: testBoundary()})

	start := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	points, err := svc.History(context.Background(), "farmer_1", "frm_1", start, end, 0)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, DefaultIntervalDays, provider.lastInterval)

	// NDMI approximated from NDVI, health label from classification.
	require.NotNil(t, points[0].NDMIMean)
	assert.InDelta(t, 0.35, *points[0].NDMIMean, 1e-9)
	assert.Equal(t, "Good", points[0].HealthStatus)
	assert.Equal(t, "Poor", points[1].HealthStatus)
}

func TestServiceHistoryEmptyWindow(t *testing.T) {
	svc, _ := newTestService(&fakeProvider{series: nil}, &fakeFarms{boundary: testBoundary()})

	points, err := svc.History(context.Background(), "farmer_1", "frm_1",
		time.Now().AddDate(0, 0, -30), time.Now(), 5)
	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestServiceTimeline(t *testing.T) {
	provider := &fakeProvider{}
	farms := &fakeFarms{boundary: testBoundary()}
	svc, repo := newTestService(provider, farms)

	now := time.Now().UTC()
	for i, mean := range []float64{0.2, 0.35, 0.5} {
		require.NoError(t, repo.Save(context.Background(), &Snapshot{
			ID:           "ana_" + string(rune('a'+i)),
			FarmID:       "frm_1",
			FarmerID:     "farmer_1",
			AnalysisDate: now.AddDate(0, 0, -20+i*7),
			NDVI:         IndexSummary{IndexStats: IndexStats{Mean: mean}},
			Health:       OverallHealth{Score: mean * 100},
			CreatedAt:    now,
		}))
	}

	points, summary, err := svc.Timeline(context.Background(), "farmer_1", "frm_1", 30)
	require.NoError(t, err)
	require.Len(t, points, 3)
	require.NotNil(t, summary)

	assert.InDelta(t, 0.35, summary.Mean, 1e-9)
	assert.InDelta(t, 0.35, summary.Median, 1e-9)
	assert.InDelta(t, 0.2, summary.Min, 1e-9)
	assert.InDelta(t, 0.5, summary.Max, 1e-9)
	assert.Equal(t, "improving", summary.Trend)
}

func TestServiceTimelineTooShortForSummary(t *testing.T) {
	svc, repo := newTestService(&fakeProvider{}, &fakeFarms{boundary: testBoundary()})

	require.NoError(t, repo.Save(context.Background(), &Snapshot{
		ID:           "ana_only",
		FarmID:       "frm_1",
		AnalysisDate: time.Now().UTC().AddDate(0, 0, -1),
	}))

	points, summary, err := svc.Timeline(context.Background(), "farmer_1", "frm_1", 30)
	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.Nil(t, summary)
}
