package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"github.com/cropsight/cropsight/pkg/geometry"
)

// Defaults for the analysis and history windows.
const (
	DefaultLookbackDays = 10
	DefaultIntervalDays = 5
	DefaultTimelineDays = 30
)

// trendSlopeEpsilon separates a flat NDVI series from a real trend.
const trendSlopeEpsilon = 0.005

// FarmSource supplies farm boundaries and receives analysis timestamps.
// Implemented by the farm service.
type FarmSource interface {
	FarmBoundary(ctx context.Context, farmerID, farmID string) (*geometry.Boundary, error)
	MarkAnalyzed(ctx context.Context, farmID string, analyzedAt time.Time) error
}

// ServiceConfig configures an analytics Service.
type ServiceConfig struct {
	Provider   SatelliteProvider
	Repository Repository
	Farms      FarmSource
	Logger     zerolog.Logger

	// ProviderName labels snapshot provenance, default "SentinelHub".
	ProviderName string
}

// Service derives, stores and serves farm analytics.
type Service struct {
	provider     SatelliteProvider
	repo         Repository
	farms        FarmSource
	logger       zerolog.Logger
	providerName string
}

// NewService creates a new analytics service.
func NewService(cfg ServiceConfig) *Service {
	name := cfg.ProviderName
	if name == "" {
		name = "SentinelHub"
	}
	return &Service{
		provider:     cfg.Provider,
		repo:         cfg.Repository,
		farms:        cfg.Farms,
		logger:       cfg.Logger,
		providerName: name,
	}
}

// Analyze runs a fresh analysis for the farm: fetch index statistics for
// the scene window [analysisDate-lookback, analysisDate], derive the
// snapshot, persist it and stamp the farm.
func (s *Service) Analyze(ctx context.Context, farmerID, farmID string, analysisDate time.Time, lookbackDays int) (*Snapshot, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if analysisDate.IsZero() {
		analysisDate = time.Now().UTC()
	}

	boundary, err := s.farms.FarmBoundary(ctx, farmerID, farmID)
	if err != nil {
		return nil, err
	}

	bbox := boundary.Outer().BoundingBox()
	from := analysisDate.AddDate(0, 0, -lookbackDays)

	obs, err := s.provider.FieldStatistics(ctx, bbox, from, analysisDate)
	if err != nil {
		return nil, fmt.Errorf("fetching field statistics: %w", err)
	}

	snapshot := s.buildSnapshot(farmID, farmerID, analysisDate, obs)
	if err := s.repo.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}

	if err := s.farms.MarkAnalyzed(ctx, farmID, snapshot.CreatedAt); err != nil {
		s.logger.Error().
			Err(err).
			Str("farm_id", farmID).
			Msg("failed to stamp farm after analysis")
	}

	s.logger.Info().
		Str("farm_id", farmID).
		Float64("ndvi_mean", snapshot.NDVI.Mean).
		Float64("health_score", snapshot.Health.Score).
		Msg("farm analyzed")

	return snapshot, nil
}

// Latest returns the most recent stored snapshot for the farm.
func (s *Service) Latest(ctx context.Context, farmerID, farmID string) (*Snapshot, error) {
	// Ownership check before touching the snapshot store.
	if _, err := s.farms.FarmBoundary(ctx, farmerID, farmID); err != nil {
		return nil, err
	}
	return s.repo.Latest(ctx, farmID)
}

// History returns the provider NDVI series over [start, end] sampled at
// intervalDays, enriched with the estimated NDMI and a health label.
// An empty window yields an empty (non-nil) slice.
func (s *Service) History(ctx context.Context, farmerID, farmID string, start, end time.Time, intervalDays int) ([]HistoryPoint, error) {
	if intervalDays <= 0 {
		intervalDays = DefaultIntervalDays
	}

	boundary, err := s.farms.FarmBoundary(ctx, farmerID, farmID)
	if err != nil {
		return nil, err
	}

	bbox := boundary.Outer().BoundingBox()
	samples, err := s.provider.NDVITimeseries(ctx, bbox, start, end, intervalDays)
	if err != nil {
		return nil, fmt.Errorf("fetching ndvi timeseries: %w", err)
	}

	points := make([]HistoryPoint, 0, len(samples))
	for _, sample := range samples {
		// NDMI is approximated from NDVI until the provider exposes a
		// moisture series.
		ndmi := sample.NDVI.Mean * 0.7
		points = append(points, HistoryPoint{
			Date:         sample.Date,
			NDVI:         sample.NDVI,
			NDMIMean:     &ndmi,
			HealthStatus: ClassifyNDVI(sample.NDVI.Mean).Health,
		})
	}
	return points, nil
}

// Timeline returns the farm's stored snapshots over the trailing window
// plus a series summary. Days defaults to 30.
func (s *Service) Timeline(ctx context.Context, farmerID, farmID string, days int) ([]TimelinePoint, *TimelineSummary, error) {
	if days <= 0 {
		days = DefaultTimelineDays
	}

	if _, err := s.farms.FarmBoundary(ctx, farmerID, farmID); err != nil {
		return nil, nil, err
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	snapshots, err := s.repo.ListSince(ctx, farmID, since)
	if err != nil {
		return nil, nil, err
	}

	points := make([]TimelinePoint, 0, len(snapshots))
	for _, snap := range snapshots {
		points = append(points, TimelinePoint{
			Date:        snap.AnalysisDate,
			NDVIMean:    snap.NDVI.Mean,
			HealthScore: snap.Health.Score,
		})
	}

	summary, err := summarizeTimeline(points)
	if err != nil {
		return nil, nil, err
	}
	return points, summary, nil
}

// FarmerHistory returns the farmer's most recent snapshots across all
// farms, newest first.
func (s *Service) FarmerHistory(ctx context.Context, farmerID string, limit int) ([]*Snapshot, error) {
	return s.repo.ListByFarmer(ctx, farmerID, limit)
}

func (s *Service) buildSnapshot(farmID, farmerID string, analysisDate time.Time, obs *Observation) *Snapshot {
	return &Snapshot{
		ID:           "ana_" + uuid.New().String()[:22],
		FarmID:       farmID,
		FarmerID:     farmerID,
		AnalysisDate: analysisDate,
		NDVI: IndexSummary{
			IndexStats:     obs.NDVI,
			Classification: ClassifyNDVI(obs.NDVI.Mean),
		},
		NDMI: IndexSummary{
			IndexStats:     obs.NDMI,
			Classification: ClassifyNDMI(obs.NDMI.Mean),
		},
		SoilMoisture: EstimateSoilMoisture(obs.NDMI.Mean),
		Irrigation:   RecommendIrrigation(obs.NDMI.Mean, obs.NDVI.Mean),
		Health:       ScoreOverallHealth(obs.NDVI.Mean, obs.NDMI.Mean),
		Satellite: SatelliteMeta{
			Provider:        s.providerName,
			AcquisitionDate: obs.AcquisitionDate,
			CloudCoverage:   obs.CloudCoverage,
			BBox:            obs.BBox,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// summarizeTimeline computes series statistics over the NDVI means. A
// series shorter than two points has no summary.
func summarizeTimeline(points []TimelinePoint) (*TimelineSummary, error) {
	if len(points) < 2 {
		return nil, nil
	}

	series := make(stats.Series, 0, len(points))
	values := make([]float64, 0, len(points))
	for i, p := range points {
		series = append(series, stats.Coordinate{X: float64(i), Y: p.NDVIMean})
		values = append(values, p.NDVIMean)
	}

	mean, err := stats.Mean(values)
	if err != nil {
		return nil, err
	}
	median, err := stats.Median(values)
	if err != nil {
		return nil, err
	}
	min, err := stats.Min(values)
	if err != nil {
		return nil, err
	}
	max, err := stats.Max(values)
	if err != nil {
		return nil, err
	}

	regression, err := stats.LinearRegression(series)
	if err != nil {
		return nil, err
	}
	slope := (regression[len(regression)-1].Y - regression[0].Y) /
		(regression[len(regression)-1].X - regression[0].X)

	trend := "stable"
	switch {
	case slope > trendSlopeEpsilon:
		trend = "improving"
	case slope < -trendSlopeEpsilon:
		trend = "declining"
	}

	return &TimelineSummary{
		Mean:   mean,
		Median: median,
		Min:    min,
		Max:    max,
		Trend:  trend,
	}, nil
}
