package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropsight/cropsight/internal/api/handler"
	"github.com/cropsight/cropsight/internal/api/models"
	"github.com/cropsight/cropsight/internal/provider/resilience"
)

// failingPinger simulates a database that cannot be reached.
type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return errors.New("connection refused")
}

func getSystemStatus(t *testing.T, h *handler.OpsHandler) models.SystemStatus {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()

	h.SystemStatus(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	return status
}

// registeredClient creates a resilience client registered under name, with
// fast retries and a breaker that trips after three failed requests.
func registeredClient(name string, registry *resilience.Registry) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	cfg.MaxRetries = 4
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 2 * time.Millisecond
	cfg.CircuitBreaker = &resilience.CircuitBreakerConfig{
		Name:        name,
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.TotalFailures >= 3
		},
	}
	return resilience.NewClient(cfg)
}

func TestOpsHandler_SystemStatus_NoRegistry(t *testing.T) {
	h := handler.NewOpsHandler("test", "2026-01-01T00:00:00Z", nil, nil)

	status := getSystemStatus(t, h)

	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "postgres", status.Subsystems[0].Name)
	assert.Equal(t, models.HealthStatusOK, status.Subsystems[0].Status)
	assert.Empty(t, status.Providers)
}

func TestOpsHandler_SystemStatus_HealthyProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := registeredClient("sentinelhub", registry)

	req, err := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	h := handler.NewOpsHandler("test", "2026-01-01T00:00:00Z", nil, registry)
	status := getSystemStatus(t, h)

	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "sentinelhub", status.Providers[0].Provider)
	assert.Equal(t, models.HealthStatusOK, status.Providers[0].Status)
	assert.NotNil(t, status.Providers[0].LastSuccessAt)
	assert.Empty(t, status.ActiveDegradationFlags)
}

func TestOpsHandler_SystemStatus_OpenCircuitReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := registeredClient("sentinelhub", registry)

	// Enough failed requests to open the circuit.
	req, err := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)
	if resp, doErr := client.Do(req); doErr == nil && resp != nil {
		resp.Body.Close()
	}
	require.Equal(t, gobreaker.StateOpen, client.CircuitBreakerState())

	h := handler.NewOpsHandler("test", "2026-01-01T00:00:00Z", nil, registry)
	status := getSystemStatus(t, h)

	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "sentinelhub", status.Providers[0].Provider)
	assert.Equal(t, models.HealthStatusFail, status.Providers[0].Status)
	assert.NotNil(t, status.Providers[0].LastFailureAt)
	assert.Contains(t, status.ActiveDegradationFlags, "sentinelhub_unavailable")

	// Subsystems stay healthy; only the provider degraded.
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, models.HealthStatusOK, status.Subsystems[0].Status)
}

func TestOpsHandler_SystemStatus_DatabaseDown(t *testing.T) {
	h := handler.NewOpsHandler("test", "2026-01-01T00:00:00Z", failingPinger{}, nil)

	status := getSystemStatus(t, h)

	assert.Equal(t, models.HealthStatusFail, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "postgres", status.Subsystems[0].Name)
	assert.Equal(t, models.HealthStatusFail, status.Subsystems[0].Status)
	require.NotNil(t, status.Subsystems[0].Detail)
	assert.Contains(t, *status.Subsystems[0].Detail, "connection refused")
	assert.Contains(t, status.ActiveDegradationFlags, "postgres_unavailable")
}
