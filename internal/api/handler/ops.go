// Package handler provides HTTP handlers for the AddonPulse API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/addonpulse/addonpulse/internal/api/models"
	"github.com/addonpulse/addonpulse/internal/api/response"
	"github.com/addonpulse/addonpulse/internal/resilience"
)

// ReadinessProbe reports whether a dependency is ready to serve.
type ReadinessProbe func(ctx context.Context) error

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	probes    map[string]ReadinessProbe
}

// NewOpsHandler creates a new OpsHandler. The registry may be nil when no
// upstream clients are tracked; probes map subsystem names to readiness
// checks.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, probes map[string]ReadinessProbe) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		probes:    probes,
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
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := models.HealthStatusOK
	for _, probe := range h.probes {
		if err := probe(ctx); err != nil {
			status = models.HealthStatusFail
			break
		}
	}

	health := models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	}
	code := http.StatusOK
	if status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - upstream and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	overall := models.HealthStatusOK

	subsystems := make([]models.SubsystemStatus, 0, len(h.probes))
	for name, probe := range h.probes {
		s := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := probe(ctx); err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
			overall = models.HealthStatusFail
		}
		subsystems = append(subsystems, s)
	}

	var upstreams []models.UpstreamStatus
	if h.registry != nil {
		for _, uh := range h.registry.GetAllHealth() {
			upstreams = append(upstreams, toUpstreamStatus(uh, &overall))
		}
	}

	status := models.SystemStatus{
		Status:     overall,
		Time:       models.Timestamp(time.Now()),
		Subsystems: subsystems,
		Upstreams:  upstreams,
	}
	response.JSON(w, r, http.StatusOK, status)
}

func toUpstreamStatus(uh *resilience.UpstreamHealth, overall *models.HealthStatus) models.UpstreamStatus {
	s := models.UpstreamStatus{
		Upstream:     uh.Name,
		Status:       models.HealthStatusOK,
		CircuitState: uh.CircuitState.String(),
	}
	switch {
	case uh.IsUnhealthy():
		s.Status = models.HealthStatusFail
		if *overall == models.HealthStatusOK {
			*overall = models.HealthStatusDegraded
		}
	case uh.IsDegraded():
		s.Status = models.HealthStatusDegraded
		if *overall == models.HealthStatusOK {
			*overall = models.HealthStatusDegraded
		}
	}
	if uh.LastSuccessAt != nil {
		ts := models.Timestamp(*uh.LastSuccessAt)
		s.LastSuccessAt = &ts
	}
	if uh.LastFailureAt != nil {
		ts := models.Timestamp(*uh.LastFailureAt)
		s.LastFailureAt = &ts
	}
	if uh.LastError != "" {
		msg := uh.LastError
		s.Message = &msg
	}
	return s
}
