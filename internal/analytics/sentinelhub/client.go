// Package sentinelhub provides a client for the Sentinel Hub Statistical
// API, the satellite index provider behind farm analytics.
package sentinelhub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cropsight/cropsight/internal/analytics"
	"github.com/cropsight/cropsight/internal/provider/resilience"
	"github.com/cropsight/cropsight/pkg/geometry"
)

const (
	// ProviderName identifies this satellite provider.
	ProviderName = "sentinelhub"

	// DefaultBaseURL is the Sentinel Hub API base URL.
	DefaultBaseURL = "https://services.sentinel-hub.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxCloudCoverage is the scene cloud coverage ceiling, in percent.
	MaxCloudCoverage = 20.0

	// tokenExpiryMargin is subtracted from the token lifetime so a token
	// is never used right at its expiry.
	tokenExpiryMargin = 5 * time.Minute

	collectionS2L2A = "sentinel-2-l2a"
)

// indexEvalscript computes NDVI (B08/B04) and NDMI (B08/B11) per pixel so
// the Statistical API returns aggregated stats for both outputs.
const indexEvalscript = `//VERSION=3
function setup() {
  return {
    input: [{bands: ["B04", "B08", "B11", "dataMask"]}],
    output: [
      {id: "ndvi", bands: 1},
      {id: "ndmi", bands: 1},
      {id: "dataMask", bands: 1}
    ]
  };
}
function evaluatePixel(s) {
  return {
    ndvi: [(s.B08 - s.B04) / (s.B08 + s.B04)],
    ndmi: [(s.B08 - s.B11) / (s.B08 + s.B11)],
    dataMask: [s.dataMask]
  };
}`

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Sentinel Hub client.
type ClientConfig struct {
	// ClientID and ClientSecret are the OAuth credentials (required).
	ClientID     string
	ClientSecret string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 30s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Sentinel Hub Statistical API client.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   HTTPDoer
	logger       zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new Sentinel Hub client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FieldStatistics returns index statistics for the field's bounding box
// over [from, to], aggregated into a single interval. The most recent
// interval with data wins when the provider splits the window.
func (c *Client) FieldStatistics(ctx context.Context, bbox geometry.BBox, from, to time.Time) (*analytics.Observation, error) {
	if !to.After(from) {
		return nil, &analytics.Error{
			Provider: ProviderName,
			Code:     "INVALID_WINDOW",
			Message:  "analysis window end must be after start",
			Err:      analytics.ErrInvalidWindow,
		}
	}

	windowDays := int(to.Sub(from).Hours()/24) + 1
	resp, err := c.statistics(ctx, bbox, from, to, windowDays)
	if err != nil {
		return nil, err
	}

	// Intervals arrive oldest first; take the newest one carrying data.
	for i := len(resp.Data) - 1; i >= 0; i-- {
		interval := resp.Data[i]
		ndvi, okNDVI := interval.indexStats("ndvi")
		ndmi, okNDMI := interval.indexStats("ndmi")
		if !okNDVI || !okNDMI {
			continue
		}

		acquired, err := time.Parse(time.RFC3339, interval.Interval.To)
		if err != nil {
			acquired = to
		}

		var cloud float64
		if cc, ok := interval.indexStats("cloud_cover"); ok {
			cloud = cc.Mean
		}

		c.logger.Debug().
			Str("acquired", acquired.Format(time.RFC3339)).
			Float64("ndvi_mean", ndvi.Mean).
			Float64("ndmi_mean", ndmi.Mean).
			Msg("received field statistics from sentinel hub")

		return &analytics.Observation{
			NDVI:            ndvi,
			NDMI:            ndmi,
			AcquisitionDate: acquired,
			CloudCoverage:   cloud,
			BBox:            bbox,
		}, nil
	}

	return nil, &analytics.Error{
		Provider: ProviderName,
		Code:     "NO_SCENE",
		Message:  fmt.Sprintf("no usable scene below %.0f%% cloud coverage in window", MaxCloudCoverage),
		Err:      analytics.ErrNoSceneAvailable,
	}
}

// NDVITimeseries returns the NDVI series over [from, to] sampled at
// intervalDays. Intervals without data are skipped, matching how sparse
// satellite coverage surfaces in the product.
func (c *Client) NDVITimeseries(ctx context.Context, bbox geometry.BBox, from, to time.Time, intervalDays int) ([]analytics.SeriesSample, error) {
	if !to.After(from) {
		return nil, &analytics.Error{
			Provider: ProviderName,
			Code:     "INVALID_WINDOW",
			Message:  "series window end must be after start",
			Err:      analytics.ErrInvalidWindow,
		}
	}
	if intervalDays <= 0 {
		intervalDays = 5
	}

	resp, err := c.statistics(ctx, bbox, from, to, intervalDays)
	if err != nil {
		return nil, err
	}

	points := make([]analytics.SeriesSample, 0, len(resp.Data))
	for _, interval := range resp.Data {
		ndvi, ok := interval.indexStats("ndvi")
		if !ok {
			continue
		}
		date, err := time.Parse(time.RFC3339, interval.Interval.From)
		if err != nil {
			continue
		}
		points = append(points, analytics.SeriesSample{Date: date, NDVI: ndvi})
	}

	c.logger.Debug().
		Int("points", len(points)).
		Int("interval_days", intervalDays).
		Msg("received ndvi timeseries from sentinel hub")

	return points, nil
}

func (c *Client) statistics(ctx context.Context, bbox geometry.BBox, from, to time.Time, intervalDays int) (*statsResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req := statsRequest{
		Input: statsInput{
			Bounds: statsBounds{BBox: bbox},
			Data: []statsData{{
				Type:       collectionS2L2A,
				DataFilter: statsDataFilter{MaxCloudCoverage: MaxCloudCoverage},
			}},
		},
		Aggregation: statsAggregation{
			TimeRange: statsTimeRange{
				From: from.UTC().Format(time.RFC3339),
				To:   to.UTC().Format(time.RFC3339),
			},
			Interval:   statsInterval{Of: fmt.Sprintf("P%dD", intervalDays)},
			Evalscript: indexEvalscript,
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/statistics", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &analytics.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach satellite provider",
			Err:      analytics.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode, respBody)
	}

	var statsResp statsResponse
	if err := json.Unmarshal(respBody, &statsResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &statsResp, nil
}

// accessToken returns a cached OAuth token, fetching a new one when the
// cached token is within the expiry margin.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &analytics.Error{
			Provider: ProviderName,
			Code:     "TOKEN_REQUEST_FAILED",
			Message:  "failed to reach satellite provider token endpoint",
			Err:      analytics.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &analytics.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("TOKEN_HTTP_%d", resp.StatusCode),
			Message:  "satellite provider rejected credentials",
			Err:      analytics.ErrUnauthorized,
		}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenExpiryMargin)
	return c.token, nil
}

// handleErrorResponse maps Sentinel Hub error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr errorResponse
	message := fmt.Sprintf("satellite provider returned status %d", statusCode)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return &analytics.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "satellite provider rate limit exceeded, please try again later",
			Err:      analytics.ErrRateLimitExceeded,
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &analytics.Error{
			Provider: ProviderName,
			Code:     "UNAUTHORIZED",
			Message:  "satellite provider access denied - check credentials",
			Err:      analytics.ErrUnauthorized,
		}
	case statusCode >= 500:
		return &analytics.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "satellite provider is temporarily unavailable",
			Err:      analytics.ErrProviderUnavailable,
		}
	default:
		return &analytics.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  message,
			Err:      analytics.ErrProviderUnavailable,
		}
	}
}
