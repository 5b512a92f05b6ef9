// Package client provides the Go client for the CropSight API, used by
// the product front ends and the background worker.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cropsight/cropsight/internal/analytics"
	"github.com/cropsight/cropsight/internal/api/models"
	"github.com/cropsight/cropsight/pkg/geometry"
)

const (
	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	apiPrefix = "/v1"
)

// RequestFailedMessage is the copy surfaced when the service cannot be
// reached at all; API errors carry their own detail instead.
const RequestFailedMessage = "Request failed"

// APIError is a non-2xx response from the CropSight API. The service
// error envelope carries a "detail" field; when the body has none the
// status line stands in.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, http.StatusText(e.Status))
}

// TransportError is a request that never produced an HTTP response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return RequestFailedMessage }
func (e *TransportError) Unwrap() error { return e.Err }

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for the API client.
type Config struct {
	// BaseURL is the API origin, without the /v1 prefix (required).
	BaseURL string

	// Token is the bearer token attached to every request.
	Token string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Timeout applies when no HTTPClient is supplied.
	Timeout time.Duration

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a CropSight API client.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// SetToken replaces the bearer token, e.g. after a session refresh.
func (c *Client) SetToken(token string) {
	c.token = token
}

// ListFarms retrieves the caller's farms.
func (c *Client) ListFarms(ctx context.Context) (*models.FarmList, error) {
	var out models.FarmList
	if err := c.do(ctx, http.MethodGet, "/farms", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateFarm creates a farm from a complete GeoJSON boundary.
func (c *Client) CreateFarm(ctx context.Context, req *models.FarmCreateRequest) (*models.Farm, error) {
	var out models.Farm
	if err := c.do(ctx, http.MethodPost, "/farms", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateFarmFromCoordinates creates a farm from an open coordinate list.
func (c *Client) CreateFarmFromCoordinates(ctx context.Context, name string, coordinates geometry.Ring, areaHectares *float64) (*models.Farm, error) {
	query := url.Values{}
	query.Set("farm_name", name)
	if areaHectares != nil {
		query.Set("area_hectares", strconv.FormatFloat(*areaHectares, 'f', -1, 64))
	}

	var out models.Farm
	path := "/farms/from-coordinates?" + query.Encode()
	if err := c.do(ctx, http.MethodPost, path, &models.CoordinateListRequest{Coordinates: coordinates}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFarm retrieves a single farm.
func (c *Client) GetFarm(ctx context.Context, farmID string) (*models.Farm, error) {
	var out models.Farm
	if err := c.do(ctx, http.MethodGet, "/farms/"+farmID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateFarm applies a partial update to a farm.
func (c *Client) UpdateFarm(ctx context.Context, farmID string, req *models.FarmUpdateRequest) (*models.Farm, error) {
	var out models.Farm
	if err := c.do(ctx, http.MethodPut, "/farms/"+farmID, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFarm deletes a farm. A 204 response is success.
func (c *Client) DeleteFarm(ctx context.Context, farmID string) error {
	return c.do(ctx, http.MethodDelete, "/farms/"+farmID, nil, nil)
}

// AnalyzeFarm triggers a fresh analysis for the farm.
func (c *Client) AnalyzeFarm(ctx context.Context, farmID string, analysisDate time.Time, lookbackDays int) (*analytics.Snapshot, error) {
	req := models.AnalyzeRequest{LookbackDays: lookbackDays}
	if !analysisDate.IsZero() {
		date := models.Date(analysisDate)
		req.AnalysisDate = &date
	}

	var out analytics.Snapshot
	if err := c.do(ctx, http.MethodPost, "/analytics/farms/"+farmID+"/analyze", &req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LatestAnalytics retrieves the farm's most recent stored snapshot.
func (c *Client) LatestAnalytics(ctx context.Context, farmID string) (*analytics.Snapshot, error) {
	var out analytics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/analytics/farms/"+farmID+"/latest", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History retrieves the historical analytics series for the farm.
func (c *Client) History(ctx context.Context, farmID string, start, end time.Time, intervalDays int) ([]analytics.HistoryPoint, error) {
	req := models.HistoryRequest{
		StartDate:    models.Date(start),
		EndDate:      models.Date(end),
		IntervalDays: intervalDays,
	}

	var out models.HistoryResponse
	if err := c.do(ctx, http.MethodPost, "/analytics/farms/"+farmID+"/history", &req, &out); err != nil {
		return nil, err
	}
	if out.DataPoints == nil {
		return []analytics.HistoryPoint{}, nil
	}
	return out.DataPoints, nil
}

// NDVITimeline retrieves the stored-snapshot timeline for the farm.
func (c *Client) NDVITimeline(ctx context.Context, farmID string, days int) (*models.TimelineResponse, error) {
	path := "/analytics/farms/" + farmID + "/ndvi-timeline"
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}

	var out models.TimelineResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FarmerHistory retrieves the caller's recent analyses across all farms.
func (c *Client) FarmerHistory(ctx context.Context, limit int) (*models.FarmerHistoryResponse, error) {
	path := "/analytics/farmer/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var out models.FarmerHistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", path).Msg("api request failed in transport")
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp.StatusCode, respBody)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// apiError extracts the {detail} error envelope, falling back to the
// status line when the body carries none.
func apiError(status int, body []byte) error {
	var envelope struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Detail != "" {
		return &APIError{Status: status, Detail: envelope.Detail}
	}
	return &APIError{Status: status}
}
