package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropsight/cropsight/internal/api/models"
	"github.com/cropsight/cropsight/pkg/geometry"
)

func newTestClient(server *httptest.Server) *Client {
	return New(Config{
		BaseURL:    server.URL,
		Token:      "tok123",
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClientListFarms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/farms", r.URL.Path)
		assert.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"farms":[{"id":"frm_1","name":"North field"}],"count":1}`)
	}))
	defer server.Close()

	list, err := newTestClient(server).ListFarms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, list.Count)
	require.Len(t, list.Farms, 1)
	assert.Equal(t, "frm_1", list.Farms[0].ID)
}

func TestClientCreateFarmFromCoordinates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/farms/from-coordinates", r.URL.Path)
		assert.Equal(t, "Green Acres", r.URL.Query().Get("farm_name"))
		assert.Equal(t, "12.5", r.URL.Query().Get("area_hectares"))

		var req models.CoordinateListRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Coordinates, 3)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"frm_new","name":"Green Acres"}`)
	}))
	defer server.Close()

	area := 12.5
	ring := geometry.Ring{{77.1, 28.5}, {77.2, 28.5}, {77.2, 28.6}}
	farm, err := newTestClient(server).CreateFarmFromCoordinates(context.Background(), "Green Acres", ring, &area)
	require.NoError(t, err)
	assert.Equal(t, "frm_new", farm.ID)
}

func TestClientDeleteFarmNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/farms/frm_1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	require.NoError(t, newTestClient(server).DeleteFarm(context.Background(), "frm_1"))
}

func TestClientAnalyzeFarm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analytics/farms/frm_1/analyze", r.URL.Path)

		var req models.AnalyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 10, req.LookbackDays)
		require.NotNil(t, req.AnalysisDate)
		assert.Equal(t, "2026-08-28", time.Time(*req.AnalysisDate).Format("2006-01-02"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"ana_1","farm_id":"frm_1","overall_health":{"score":72.4,"status":"Good"}}`)
	}))
	defer server.Close()

	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	snap, err := newTestClient(server).AnalyzeFarm(context.Background(), "frm_1", date, 10)
	require.NoError(t, err)
	assert.Equal(t, "ana_1", snap.ID)
	assert.Equal(t, "Good", snap.Health.Status)
}

func TestClientHistoryNilDataPoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analytics/farms/frm_1/history", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"farm_id":"frm_1","data_points":null,"count":0}`)
	}))
	defer server.Close()

	points, err := newTestClient(server).History(context.Background(), "frm_1",
		time.Now().AddDate(0, 0, -30), time.Now(), 5)
	require.NoError(t, err)
	assert.NotNil(t, points, "a missing series decodes to an empty slice, not nil")
	assert.Empty(t, points)
}

func TestClientNDVITimelineDaysParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/analytics/farms/frm_1/ndvi-timeline", r.URL.Path)
		assert.Equal(t, "60", r.URL.Query().Get("days"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"farm_id":"frm_1","days":60,"points":[]}`)
	}))
	defer server.Close()

	timeline, err := newTestClient(server).NDVITimeline(context.Background(), "frm_1", 60)
	require.NoError(t, err)
	assert.Equal(t, 60, timeline.Days)
}

func TestClientAPIErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"type":"https://api.cropsight.io/problems/not-found","title":"Not Found","status":404,"detail":"Farm not found"}`)
	}))
	defer server.Close()

	_, err := newTestClient(server).GetFarm(context.Background(), "frm_missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Farm not found", err.Error())
}

func TestClientAPIErrorWithoutDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `<html>upstream exploded</html>`)
	}))
	defer server.Close()

	_, err := newTestClient(server).ListFarms(context.Background())
	require.Error(t, err)
	assert.Equal(t, "HTTP 502: Bad Gateway", err.Error())
}

func TestClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	_, err := newTestClient(server).ListFarms(context.Background())
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, RequestFailedMessage, err.Error())
	assert.NotNil(t, errors.Unwrap(transportErr))
}
