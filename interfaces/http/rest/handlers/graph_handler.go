package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"forge-backend/application/registry"
	"forge-backend/pkg/utils"
)

// GraphHandler handles relationship graph requests.
type GraphHandler struct {
	registry *registry.Service
	logger   *zap.Logger
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(registry *registry.Service, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		registry: registry,
		logger:   logger,
	}
}

// ParentChildRequest links a child under a parent.
type ParentChildRequest struct {
	ParentID string `json:"parent_id" validate:"required"`
	ChildID  string `json:"child_id" validate:"required"`
}

// DependencyRequest records a dependency edge.
type DependencyRequest struct {
	DependentID  string `json:"dependent_id" validate:"required"`
	DependencyID string `json:"dependency_id" validate:"required"`
}

// StateUsageRequest records shared-state usage.
type StateUsageRequest struct {
	ComponentID string `json:"component_id" validate:"required"`
	StateKey    string `json:"state_key" validate:"required"`
}

// AffectedRequest asks for the blast radius of a seed set.
type AffectedRequest struct {
	ComponentIDs []string `json:"component_ids" validate:"required,min=1"`
}

// Visualize handles GET /graph
func (h *GraphHandler) Visualize(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.registry.VisualizeComponentGraph())
}

// SetParentChild handles POST /graph/parent-child
func (h *GraphHandler) SetParentChild(w http.ResponseWriter, r *http.Request) {
	var req ParentChildRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.registry.SetParentChild(req.ParentID, req.ChildID); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "parent/child link created"})
}

// AddDependency handles POST /graph/dependencies
func (h *GraphHandler) AddDependency(w http.ResponseWriter, r *http.Request) {
	var req DependencyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.registry.AddDependency(req.DependentID, req.DependencyID); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "dependency recorded"})
}

// TrackStateUsage handles POST /graph/state-usage
func (h *GraphHandler) TrackStateUsage(w http.ResponseWriter, r *http.Request) {
	var req StateUsageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.registry.TrackStateUsage(req.ComponentID, req.StateKey); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "state usage recorded"})
}

// Affected handles POST /graph/affected
func (h *GraphHandler) Affected(w http.ResponseWriter, r *http.Request) {
	var req AffectedRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"seeds":    req.ComponentIDs,
		"affected": h.registry.GetAffectedComponents(req.ComponentIDs),
	})
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return false
	}
	return true
}
