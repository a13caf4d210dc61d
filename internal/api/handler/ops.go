// Package handler provides HTTP handlers for the AMeDAS API.
package handler

import (
	"net/http"
	"time"

	"github.com/amedasmap/amedasmap/internal/amedas"
	"github.com/amedasmap/amedasmap/internal/api/models"
	"github.com/amedasmap/amedasmap/internal/api/response"
	"github.com/amedasmap/amedasmap/internal/provider/resilience"
)

// StatusSource reports what the AMeDAS service currently holds.
type StatusSource interface {
	Status() amedas.Status
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	status    StatusSource
	registry  *resilience.Registry
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, status StatusSource, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		status:    status,
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

// ReadinessCheck handles GET /v1/ops/ready. The process is ready once both the
// station directory and a snapshot have been loaded.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	st := h.status.Status()
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"stations": !st.StationsLoadedAt.IsZero(),
			"snapshot": !st.SnapshotLoadedAt.IsZero(),
		},
	}
	if !st.Ready() {
		health.Status = models.HealthStatusFail
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - dataset and provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	st := h.status.Status()

	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{
			subsystemStatus("stations", st.StationsLoadedAt, st.StationsError),
			subsystemStatus("snapshot", st.SnapshotLoadedAt, st.SnapshotError),
		},
		Providers: []models.ProviderStatus{},
	}

	if h.registry != nil {
		for _, ph := range h.registry.GetAllHealth() {
			status.Providers = append(status.Providers, providerStatus(ph))
		}
	}

	for _, s := range status.Subsystems {
		status.Status = worst(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		status.Status = worst(status.Status, p.Status)
	}

	response.JSON(w, r, http.StatusOK, status)
}

// subsystemStatus is FAIL before the first load, DEGRADED when the latest
// reload failed but an earlier result is still served.
func subsystemStatus(name string, loadedAt time.Time, lastErr error) models.SubsystemStatus {
	s := models.SubsystemStatus{
		Name:     name,
		Status:   models.HealthStatusOK,
		LoadedAt: models.TimestampPtr(loadedAt),
	}
	switch {
	case loadedAt.IsZero():
		s.Status = models.HealthStatusFail
	case lastErr != nil:
		s.Status = models.HealthStatusDegraded
	}
	if lastErr != nil {
		msg := lastErr.Error()
		s.Detail = &msg
	}
	return s
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	p := models.ProviderStatus{
		Provider:     ph.Name,
		Status:       models.HealthStatusOK,
		CircuitState: ph.CircuitState.String(),
	}
	switch ph.Level() {
	case resilience.LevelUnhealthy:
		p.Status = models.HealthStatusFail
	case resilience.LevelDegraded:
		p.Status = models.HealthStatusDegraded
	}
	if ph.LastSuccessAt != nil {
		p.LastSuccessAt = models.TimestampPtr(*ph.LastSuccessAt)
	}
	if ph.LastFailureAt != nil {
		p.LastFailureAt = models.TimestampPtr(*ph.LastFailureAt)
	}
	if ph.LastError != "" {
		msg := ph.LastError
		p.Message = &msg
	}
	return p
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
