package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"forge-backend/application/registry"
	"forge-backend/pkg/utils"
)

// ChangeHandler handles code change execution requests.
type ChangeHandler struct {
	registry *registry.Service
	logger   *zap.Logger
}

// NewChangeHandler creates a new change handler.
func NewChangeHandler(registry *registry.Service, logger *zap.Logger) *ChangeHandler {
	return &ChangeHandler{
		registry: registry,
		logger:   logger,
	}
}

// ExecuteChange handles POST /changes.
// Expected failures (unknown component, validation or executor
// rejection) come back as 200 with success=false: they are results, not
// transport errors.
func (h *ChangeHandler) ExecuteChange(w http.ResponseWriter, r *http.Request) {
	var req registry.ChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.Author == "" {
		req.Author = authorFromContext(r)
	}

	result := h.registry.ExecuteCodeChange(r.Context(), req)
	respondJSON(w, http.StatusOK, result)
}

// ExecuteBatch handles POST /changes/batch
func (h *ChangeHandler) ExecuteBatch(w http.ResponseWriter, r *http.Request) {
	var req registry.MultiChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	if req.Author == "" {
		req.Author = authorFromContext(r)
	}

	result := h.registry.ExecuteMultiComponentChange(r.Context(), req)
	respondJSON(w, http.StatusOK, result)
}
