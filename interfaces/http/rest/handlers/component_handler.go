package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"forge-backend/application/registry"
	"forge-backend/domain/component"
	"forge-backend/pkg/auth"
	pkgerrors "forge-backend/pkg/errors"
	"forge-backend/pkg/utils"
)

// ComponentHandler handles component CRUD requests.
type ComponentHandler struct {
	registry *registry.Service
	logger   *zap.Logger
}

// NewComponentHandler creates a new component handler.
func NewComponentHandler(registry *registry.Service, logger *zap.Logger) *ComponentHandler {
	return &ComponentHandler{
		registry: registry,
		logger:   logger,
	}
}

// RegisterComponentRequest is the request body for registering a component.
type RegisterComponentRequest struct {
	ID                   string                 `json:"id,omitempty"`
	Name                 string                 `json:"name" validate:"required,min=1,max=200"`
	SourceCode           string                 `json:"source_code,omitempty"`
	Path                 []string               `json:"path,omitempty"`
	DeclaredDependencies []string               `json:"declared_dependencies,omitempty"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
	Permissions          *component.Permissions `json:"permissions,omitempty"`
	SkipGraphWiring      bool                   `json:"skip_graph_wiring,omitempty"`
	SkipInitialVersion   bool                   `json:"skip_initial_version,omitempty"`
}

// RegisterComponent handles POST /components
func (h *ComponentHandler) RegisterComponent(w http.ResponseWriter, r *http.Request) {
	var req RegisterComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	record := component.NewRecord(req.ID, req.Name)
	record.SourceCode = req.SourceCode
	if req.Path != nil {
		record.Path = req.Path
	}
	if req.DeclaredDependencies != nil {
		record.DeclaredDependencies = req.DeclaredDependencies
	}
	if req.Metadata != nil {
		record.Metadata = req.Metadata
	}
	if req.Permissions != nil {
		record.Permissions = *req.Permissions
	}

	opts := registry.RegisterOptions{
		SkipGraphWiring:    req.SkipGraphWiring,
		SkipInitialVersion: req.SkipInitialVersion,
		Author:             authorFromContext(r),
	}
	if err := h.registry.Register(r.Context(), record, opts); err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, record)
}

// GetComponent handles GET /components/{componentID}
func (h *ComponentHandler) GetComponent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "componentID")

	record, err := h.registry.GetComponent(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// ListComponents handles GET /components
func (h *ComponentHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	records, err := h.registry.GetAllComponents(r.Context())
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"components": records,
		"count":      len(records),
	})
}

// UpdateComponent handles PUT /components/{componentID}
func (h *ComponentHandler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "componentID")

	var fields component.UpdateFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if fields.IsEmpty() {
		respondError(w, http.StatusBadRequest, "Update must change at least one field")
		return
	}

	if err := h.registry.Update(r.Context(), id, fields); err != nil {
		respondAppError(w, err)
		return
	}

	record, err := h.registry.GetComponent(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// UnregisterComponent handles DELETE /components/{componentID}
func (h *ComponentHandler) UnregisterComponent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "componentID")

	if err := h.registry.Unregister(r.Context(), id); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "component unregistered"})
}

// GetRelationships handles GET /components/{componentID}/relationships
func (h *ComponentHandler) GetRelationships(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "componentID")

	rec, ok := h.registry.GetComponentRelationships(id)
	if !ok {
		respondAppError(w, pkgerrors.NewNotFoundError("component "+id))
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// GetRelatedStateKeys handles GET /components/{componentID}/state-keys
func (h *ComponentHandler) GetRelatedStateKeys(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "componentID")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"component_id": id,
		"state_keys":   h.registry.GetRelatedStateKeys(id),
	})
}

// authorFromContext resolves the acting user for audit fields. Empty
// when auth is disabled.
func authorFromContext(r *http.Request) string {
	claims, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return ""
	}
	return claims.UserID
}
