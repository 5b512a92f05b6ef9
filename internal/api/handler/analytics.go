package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cropsight/cropsight/internal/analytics"
	"github.com/cropsight/cropsight/internal/api/models"
	"github.com/cropsight/cropsight/internal/api/response"
	"github.com/cropsight/cropsight/internal/farm"
)

// Timeline and history query bounds.
const (
	DefaultTimelineDays = 30
	MaxTimelineDays     = 365

	DefaultFarmerHistoryLimit = 20
	MaxFarmerHistoryLimit     = 100
)

// AnalyticsHandler handles satellite analytics endpoints.
type AnalyticsHandler struct {
	analyticsService *analytics.Service
	farmService      *farm.Service
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *analytics.Service, farmService *farm.Service) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		farmService:      farmService,
	}
}

// AnalyzeFarm handles POST /v1/analytics/farms/{farmId}/analyze - run a
// fresh satellite analysis and persist the snapshot.
func (h *AnalyticsHandler) AnalyzeFarm(w http.ResponseWriter, r *http.Request) {
	farmerID := GetFarmerID(r.Context())
	farmID := chi.URLParam(r, "farmId")
	if farmID == "" {
		response.BadRequest(w, r, "farmId is required", nil)
		return
	}

	// An empty body means "analyze as of today with defaults".
	var input models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	analysisDate := time.Now().UTC()
	if input.AnalysisDate != nil {
		analysisDate = time.Time(*input.AnalysisDate)
	}

	snapshot, err := h.analyticsService.Analyze(r.Context(), farmerID, farmID, analysisDate, input.LookbackDays)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, snapshot)
}

// LatestAnalytics handles GET /v1/analytics/farms/{farmId}/latest - the most
// recent stored snapshot.
func (h *AnalyticsHandler) LatestAnalytics(w http.ResponseWriter, r *http.Request) {
	farmerID := GetFarmerID(r.Context())
	farmID := chi.URLParam(r, "farmId")
	if farmID == "" {
		response.BadRequest(w, r, "farmId is required", nil)
		return
	}

	snapshot, err := h.analyticsService.Latest(r.Context(), farmerID, farmID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, snapshot)
}

// History handles POST /v1/analytics/farms/{farmId}/history - the provider
// NDVI series over an explicit window.
func (h *AnalyticsHandler) History(w http.ResponseWriter, r *http.Request) {
	farmerID := GetFarmerID(r.Context())
	farmID := chi.URLParam(r, "farmId")
	if farmID == "" {
		response.BadRequest(w, r, "farmId is required", nil)
		return
	}

	var input models.HistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	start := time.Time(input.StartDate)
	end := time.Time(input.EndDate)
	if start.IsZero() || end.IsZero() {
		response.BadRequest(w, r, "start_date and end_date are required", nil)
		return
	}

	points, err := h.analyticsService.History(r.Context(), farmerID, farmID, start, end, input.IntervalDays)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.HistoryResponse{
		FarmID:     farmID,
		DataPoints: points,
		Count:      len(points),
	})
}

// NDVITimeline handles GET /v1/analytics/farms/{farmId}/ndvi-timeline - the
// stored-snapshot timeline with a trend summary.
func (h *AnalyticsHandler) NDVITimeline(w http.ResponseWriter, r *http.Request) {
	farmerID := GetFarmerID(r.Context())
	farmID := chi.URLParam(r, "farmId")
	if farmID == "" {
		response.BadRequest(w, r, "farmId is required", nil)
		return
	}

	days := DefaultTimelineDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(w, r, "days must be a positive integer", nil)
			return
		}
		days = min(parsed, MaxTimelineDays)
	}

	points, summary, err := h.analyticsService.Timeline(r.Context(), farmerID, farmID, days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.TimelineResponse{
		FarmID:  farmID,
		Days:    days,
		Points:  points,
		Summary: summary,
	})
}

// FarmerHistory handles GET /v1/analytics/farmer/history - recent analyses
// across all of the caller's farms.
func (h *AnalyticsHandler) FarmerHistory(w http.ResponseWriter, r *http.Request) {
	farmerID := GetFarmerID(r.Context())

	limit := DefaultFarmerHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.BadRequest(w, r, "limit must be a positive integer", nil)
			return
		}
		limit = min(parsed, MaxFarmerHistoryLimit)
	}

	snapshots, err := h.analyticsService.FarmerHistory(r.Context(), farmerID, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	names, err := h.farmNames(r)
	if err != nil {
		response.InternalError(w, r, "failed to load farms")
		return
	}

	history := make([]models.FarmerHistoryItem, 0, len(snapshots))
	for _, snap := range snapshots {
		history = append(history, models.FarmerHistoryItem{
			FarmID:       snap.FarmID,
			FarmName:     names[snap.FarmID],
			AnalysisDate: models.Timestamp(snap.AnalysisDate),
			NDVIMean:     snap.NDVI.Mean,
			HealthScore:  snap.Health.Score,
			HealthStatus: snap.Health.Status,
		})
	}

	response.JSON(w, r, http.StatusOK, models.FarmerHistoryResponse{
		History: history,
		Count:   len(history),
	})
}

// farmNames returns the caller's farm names keyed by farm ID.
func (h *AnalyticsHandler) farmNames(r *http.Request) (map[string]string, error) {
	list, err := h.farmService.List(r.Context(), GetFarmerID(r.Context()))
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(list.Farms))
	for _, f := range list.Farms {
		names[f.ID] = f.Name
	}
	return names, nil
}

// writeError maps analytics errors to API responses.
func (h *AnalyticsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, farm.ErrFarmNotFound):
		response.NotFound(w, r, "Farm not found")
	case errors.Is(err, analytics.ErrNoAnalytics):
		response.NotFound(w, r, "No analytics found for this farm")
	case errors.Is(err, analytics.ErrNoSceneAvailable):
		response.NotFound(w, r, "No satellite scene available")
	case errors.Is(err, analytics.ErrInvalidWindow):
		response.BadRequest(w, r, "invalid analysis window", nil)
	case errors.Is(err, analytics.ErrRateLimitExceeded):
		response.TooManyRequests(w, r, "Satellite provider rate limit exceeded, please try again later")
	case errors.Is(err, analytics.ErrUnauthorized),
		errors.Is(err, analytics.ErrProviderUnavailable):
		response.ServiceUnavailable(w, r, "Satellite provider is temporarily unavailable")
	default:
		response.InternalError(w, r, "analytics request failed")
	}
}
