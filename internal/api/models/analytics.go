package models

import "github.com/cropsight/cropsight/internal/analytics"

// AnalyzeRequest is the request body for triggering a farm analysis.
type AnalyzeRequest struct {
	// AnalysisDate defaults to today when omitted.
	AnalysisDate *Date `json:"analysis_date,omitempty"`

	// LookbackDays is the satellite scene search window, default 10.
	LookbackDays int `json:"lookback_days,omitempty"`
}

// HistoryRequest is the request body for the historical analytics series.
type HistoryRequest struct {
	StartDate    Date `json:"start_date"`
	EndDate      Date `json:"end_date"`
	IntervalDays int  `json:"interval_days,omitempty"`
}

// HistoryResponse wraps the historical series for one farm.
type HistoryResponse struct {
	FarmID     string                   `json:"farm_id"`
	DataPoints []analytics.HistoryPoint `json:"data_points"`
	Count      int                      `json:"count"`
}

// TimelineResponse is the stored-snapshot NDVI timeline for one farm.
type TimelineResponse struct {
	FarmID  string                     `json:"farm_id"`
	Days    int                        `json:"days"`
	Points  []analytics.TimelinePoint  `json:"points"`
	Summary *analytics.TimelineSummary `json:"summary,omitempty"`
}

// FarmerHistoryItem is one entry of the cross-farm analysis history.
type FarmerHistoryItem struct {
	FarmID       string    `json:"farm_id"`
	FarmName     string    `json:"farm_name"`
	AnalysisDate Timestamp `json:"analysis_date"`
	NDVIMean     float64   `json:"ndvi_mean"`
	HealthScore  float64   `json:"health_score"`
	HealthStatus string    `json:"health_status"`
}

// FarmerHistoryResponse is the cross-farm analysis history for a farmer.
type FarmerHistoryResponse struct {
	History []FarmerHistoryItem `json:"history"`
	Count   int                 `json:"count"`
}
