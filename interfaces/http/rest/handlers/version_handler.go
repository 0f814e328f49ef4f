package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"forge-backend/application/registry"
	"forge-backend/application/services"
	"forge-backend/pkg/utils"
)

// VersionHandler handles version history requests.
type VersionHandler struct {
	registry *registry.Service
	logger   *zap.Logger
}

// NewVersionHandler creates a new version handler.
func NewVersionHandler(registry *registry.Service, logger *zap.Logger) *VersionHandler {
	return &VersionHandler{
		registry: registry,
		logger:   logger,
	}
}

// CreateVersionRequest is the request body for snapshotting a version.
type CreateVersionRequest struct {
	SourceCode          string `json:"source_code" validate:"required"`
	Description         string `json:"description,omitempty" validate:"max=500"`
	SkipComponentUpdate bool   `json:"skip_component_update,omitempty"`
}

// RevertRequest is the request body for reverting to a version.
type RevertRequest struct {
	VersionID        string `json:"version_id" validate:"required"`
	SkipAuditVersion bool   `json:"skip_audit_version,omitempty"`
}

// GetHistory handles GET /components/{componentID}/versions
func (h *VersionHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "componentID")

	history := h.registry.GetVersionHistory(id)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"component_id": id,
		"versions":     history,
		"count":        len(history),
	})
}

// CreateVersion handles POST /components/{componentID}/versions
func (h *VersionHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "componentID")

	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	record, err := h.registry.CreateVersion(r.Context(), id, req.SourceCode, req.Description, services.CreateVersionOptions{
		SkipComponentUpdate: req.SkipComponentUpdate,
		Author:              authorFromContext(r),
	})
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

// Revert handles POST /components/{componentID}/revert
func (h *VersionHandler) Revert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "componentID")

	var req RevertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	reverted, err := h.registry.RevertToVersion(r.Context(), id, req.VersionID, services.RevertOptions{
		SkipAuditVersion: req.SkipAuditVersion,
		Author:           authorFromContext(r),
	})
	if err != nil {
		respondAppError(w, err)
		return
	}
	if !reverted {
		respondError(w, http.StatusNotFound, "component or version not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"component_id": id,
		"version_id":   req.VersionID,
		"reverted":     true,
	})
}
