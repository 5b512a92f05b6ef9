// Package analytics derives vegetation and moisture health metrics for a
// farm from satellite index statistics and stores the resulting snapshots.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cropsight/cropsight/pkg/geometry"
)

// Domain errors.
var (
	// ErrNoAnalytics is returned when a farm has no stored snapshots.
	ErrNoAnalytics = errors.New("no analytics available for farm")

	// ErrProviderUnavailable is returned when the satellite provider
	// cannot be reached or is failing.
	ErrProviderUnavailable = errors.New("satellite provider unavailable")

	// ErrRateLimitExceeded is returned when the provider rate limit is hit.
	ErrRateLimitExceeded = errors.New("satellite provider rate limit exceeded")

	// ErrUnauthorized is returned when provider credentials are rejected.
	ErrUnauthorized = errors.New("satellite provider rejected credentials")

	// ErrNoSceneAvailable is returned when no satellite scene with
	// acceptable cloud coverage exists in the requested window.
	ErrNoSceneAvailable = errors.New("no satellite scene available for window")

	// ErrInvalidWindow is returned for a degenerate date range.
	ErrInvalidWindow = errors.New("invalid analysis window")
)

// Error is a satellite provider error with provider context.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Observation is a satellite observation of a field over an analysis
// window: index statistics from the most recent usable scene.
type Observation struct {
	NDVI            IndexStats
	NDMI            IndexStats
	AcquisitionDate time.Time
	CloudCoverage   float64
	BBox            geometry.BBox
}

// SeriesSample is one interval of a provider NDVI time series.
type SeriesSample struct {
	Date time.Time
	NDVI IndexStats
}

// SatelliteProvider supplies index statistics and time series for a
// field's bounding box.
type SatelliteProvider interface {
	FieldStatistics(ctx context.Context, bbox geometry.BBox, from, to time.Time) (*Observation, error)
	NDVITimeseries(ctx context.Context, bbox geometry.BBox, from, to time.Time, intervalDays int) ([]SeriesSample, error)
}

// IndexStats holds the aggregate statistics of a vegetation index over a
// field, as computed by the satellite provider.
type IndexStats struct {
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std"`
}

// Classification labels an index value with a category and display color.
type Classification struct {
	Category    string `json:"category"`
	Color       string `json:"color"`
	Health      string `json:"health,omitempty"`
	Moisture    string `json:"moisture_level,omitempty"`
	Description string `json:"description"`
}

// IndexSummary combines raw statistics with their classification.
type IndexSummary struct {
	IndexStats
	Classification Classification `json:"classification"`
}

// SoilMoisture is the soil moisture estimate derived from NDMI.
type SoilMoisture struct {
	Percentage float64 `json:"moisture_percentage"`
	Category   string  `json:"category"`
	Confidence string  `json:"confidence"`
}

// Irrigation is the irrigation recommendation derived from NDVI and NDMI.
type Irrigation struct {
	Recommendation string `json:"recommendation"`
	Priority       string `json:"priority"`
	Action         string `json:"action"`
	Reason         string `json:"reason"`
}

// OverallHealth is the weighted farm health score.
type OverallHealth struct {
	Score       float64 `json:"score"`
	Status      string  `json:"status"`
	Color       string  `json:"color"`
	Description string  `json:"description"`
}

// SatelliteMeta records provenance of the imagery behind a snapshot.
type SatelliteMeta struct {
	Provider        string        `json:"provider"`
	AcquisitionDate time.Time     `json:"acquisition_date"`
	CloudCoverage   float64       `json:"cloud_coverage"`
	BBox            geometry.BBox `json:"bbox"`
}

// Snapshot is the full analytics result for one farm and analysis date.
// A later analyze call for the same farm supersedes the previous snapshot;
// snapshots are never merged.
type Snapshot struct {
	ID           string        `json:"id"`
	FarmID       string        `json:"farm_id"`
	FarmerID     string        `json:"-"`
	AnalysisDate time.Time     `json:"analysis_date"`
	NDVI         IndexSummary  `json:"ndvi"`
	NDMI         IndexSummary  `json:"ndmi"`
	SoilMoisture SoilMoisture  `json:"soil_moisture"`
	Irrigation   Irrigation    `json:"irrigation"`
	Health       OverallHealth `json:"overall_health"`
	Satellite    SatelliteMeta `json:"satellite_data"`
	CreatedAt    time.Time     `json:"created_at"`
}

// HistoryPoint is one sample of the historical NDVI series. Dates ascend;
// duplicate dates from the provider are tolerated and passed through.
type HistoryPoint struct {
	Date         time.Time  `json:"date"`
	NDVI         IndexStats `json:"ndvi"`
	NDMIMean     *float64   `json:"ndmi_mean,omitempty"`
	HealthStatus string     `json:"health_status"`
}

// TimelinePoint is one stored snapshot reduced to its timeline values.
type TimelinePoint struct {
	Date        time.Time `json:"date"`
	NDVIMean    float64   `json:"ndvi_mean"`
	HealthScore float64   `json:"health_score"`
}

// TimelineSummary aggregates a stored snapshot series for trend display.
type TimelineSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Trend  string  `json:"trend"`
}
