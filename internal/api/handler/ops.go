// Package handler provides HTTP handlers for the CropSight API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cropsight/cropsight/internal/api/models"
	"github.com/cropsight/cropsight/internal/api/response"
	"github.com/cropsight/cropsight/internal/provider/resilience"
)

// Pinger checks connectivity to a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	db        Pinger
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. db and registry are optional;
// without them the corresponding status sections are empty.
func NewOpsHandler(version, buildTime string, db Pinger, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		db:        db,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
// Provider status comes from each provider's circuit breaker: closed maps
// to OK, half-open to DEGRADED, open to FAIL. Subsystem status comes from
// a live database ping. The overall status is FAIL when the database is
// down and DEGRADED when any provider is not fully healthy.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	overall := models.HealthStatusOK
	var flags []string

	subsystems := []models.SubsystemStatus{h.databaseStatus(r.Context())}
	for _, sub := range subsystems {
		if sub.Status == models.HealthStatusFail {
			overall = models.HealthStatusFail
			flags = append(flags, sub.Name+"_unavailable")
		}
	}

	var providers []models.ProviderStatus
	if h.registry != nil {
		for _, health := range h.registry.GetAllHealth() {
			status := providerStatus(health)
			if status.Status != models.HealthStatusOK && overall == models.HealthStatusOK {
				overall = models.HealthStatusDegraded
			}
			if status.Status == models.HealthStatusFail {
				flags = append(flags, health.Name+"_unavailable")
			}
			providers = append(providers, status)
		}
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:                 overall,
		Time:                   models.Timestamp(time.Now()),
		Subsystems:             subsystems,
		Providers:              providers,
		ActiveDegradationFlags: flags,
	})
}

func (h *OpsHandler) databaseStatus(ctx context.Context) models.SubsystemStatus {
	sub := models.SubsystemStatus{Name: "postgres", Status: models.HealthStatusOK}
	if h.db == nil {
		return sub
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.db.Ping(pingCtx); err != nil {
		sub.Status = models.HealthStatusFail
		detail := err.Error()
		sub.Detail = &detail
	}
	return sub
}

func providerStatus(health *resilience.ProviderHealth) models.ProviderStatus {
	status := models.ProviderStatus{
		Provider: health.Name,
		Status:   models.HealthStatusOK,
	}
	switch {
	case health.IsDegraded():
		status.Status = models.HealthStatusDegraded
	case health.IsUnhealthy():
		status.Status = models.HealthStatusFail
	}
	if health.LastSuccessAt != nil {
		ts := models.Timestamp(*health.LastSuccessAt)
		status.LastSuccessAt = &ts
	}
	if health.LastFailureAt != nil {
		ts := models.Timestamp(*health.LastFailureAt)
		status.LastFailureAt = &ts
	}
	if health.LastError != "" {
		status.Message = &health.LastError
	}
	return status
}
