package handlers

import (
	"encoding/json"
	"net/http"

	pkgerrors "forge-backend/pkg/errors"
)

// errorResponse is the uniform error body for all REST endpoints.
type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondAppError maps an AppError to its HTTP status; anything else is
// an internal error.
func respondAppError(w http.ResponseWriter, err error) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		respondJSON(w, appErr.HTTPStatus, errorResponse{
			Error: appErr.Message,
			Type:  string(appErr.Type),
		})
		return
	}
	respondError(w, http.StatusInternalServerError, err.Error())
}
