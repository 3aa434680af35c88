package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "github.com/davidleathers/identity-audit-engine/internal/domain/audit"
	"github.com/davidleathers/identity-audit-engine/internal/domain/errors"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/identitysource"
	"github.com/davidleathers/identity-audit-engine/internal/service/audit"
)

// AuditService is the engine surface the HTTP binding exposes. The
// production implementation is audit.Coordinator.
type AuditService interface {
	StartAudit(ctx context.Context, limit int) (<-chan *domain.Result, error)
	RunAuditNow(ctx context.Context, limit int) (*domain.Result, error)
	GetStatus() audit.StatusSnapshot
	GetIdentityDetail(ctx context.Context, identityID string) (*audit.IdentityDetail, error)
	SourceStatus(ctx context.Context) (identitysource.HealthStatus, error)
	ModelAvailable() bool
}

// Handler carries the HTTP handlers for the audit API.
type Handler struct {
	service  AuditService
	validate *validator.Validate
	logger   *zap.Logger
	version  string
}

func NewHandler(service AuditService, logger *zap.Logger, version string) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
		version:  version,
	}
}

type auditRequest struct {
	Limit int `json:"limit" validate:"gte=0"`
}

// handleHealth reports the engine's component availability.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	sourceStatus := "unknown"
	if health, err := h.service.SourceStatus(r.Context()); err == nil {
		sourceStatus = health.Status
	} else {
		sourceStatus = "unreachable"
	}

	modelStatus := "unavailable"
	if h.service.ModelAvailable() {
		modelStatus = "available"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "identity-audit-engine",
		"version":   h.version,
		"timestamp": time.Now().UTC(),
		"components": map[string]string{
			"coordinator":     "available",
			"identity_source": sourceStatus,
			"text_model":      modelStatus,
		},
	})
}

// handleStartAudit launches a background audit.
func (h *Handler) handleStartAudit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAuditRequest(w, r)
	if !ok {
		return
	}

	if _, err := h.service.StartAudit(r.Context(), req.Limit); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "started",
		"message":   "audit started in background",
		"timestamp": time.Now().UTC(),
	})
}

// handleQuickAudit runs a small synchronous audit and returns its result.
func (h *Handler) handleQuickAudit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAuditRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.RunAuditNow(r.Context(), req.Limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"data":      result,
		"timestamp": time.Now().UTC(),
	})
}

// handleAuditStatus reports the run registry snapshot.
func (h *Handler) handleAuditStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.GetStatus())
}

// handleAuditResults returns the latest audit result, with the HTTP
// status reflecting the registry state.
func (h *Handler) handleAuditResults(w http.ResponseWriter, r *http.Request) {
	snapshot := h.service.GetStatus()

	switch snapshot.Status {
	case domain.RunStatusCompleted:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "success",
			"data":      snapshot.CurrentAudit,
			"timestamp": time.Now().UTC(),
		})
	case domain.RunStatusRunning:
		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":    "in_progress",
			"message":   "audit still running",
			"timestamp": time.Now().UTC(),
		})
	case domain.RunStatusError:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"status":    "error",
			"message":   "audit failed",
			"error":     snapshot.CurrentAudit,
			"timestamp": time.Now().UTC(),
		})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{
			"status":    "not_found",
			"message":   "no audit results available",
			"timestamp": time.Now().UTC(),
		})
	}
}

// handleIdentityDetail returns the per-identity drill-down analysis.
func (h *Handler) handleIdentityDetail(w http.ResponseWriter, r *http.Request) {
	identityID := r.PathValue("id")
	if identityID == "" {
		h.writeError(w, errors.NewValidationError("MISSING_IDENTITY_ID", "identity id is required"))
		return
	}

	detail, err := h.service.GetIdentityDetail(r.Context(), identityID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"data":      detail,
		"timestamp": time.Now().UTC(),
	})
}

// handleSourceStatus proxies the identity data source health check.
func (h *Handler) handleSourceStatus(w http.ResponseWriter, r *http.Request) {
	health, err := h.service.SourceStatus(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"data":      health,
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) decodeAuditRequest(w http.ResponseWriter, r *http.Request) (auditRequest, bool) {
	var req auditRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, errors.NewValidationError("INVALID_BODY", "request body must be JSON").WithCause(err))
			return req, false
		}
	}
	if err := h.validate.Struct(&req); err != nil {
		h.writeError(w, errors.NewValidationError("INVALID_LIMIT", "limit must be a non-negative integer").WithCause(err))
		return req, false
	}
	return req, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := errors.GetStatusCode(err)
	if status >= 500 {
		h.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]any{
		"status":    "error",
		"message":   err.Error(),
		"timestamp": time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
