package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/models"
	"github.com/myschoolstory/collab-3d/pkg/services"
)

// HeartbeatRequest is the request body for a presence heartbeat. The cursor
// is optional; a heartbeat without one keeps the session alive but leaves
// the shared cursor unset.
type HeartbeatRequest struct {
	Cursor *models.Vec3 `json:"cursor"`
}

// ListPresenceResponse wraps a project's live collaborator sessions.
type ListPresenceResponse struct {
	Sessions []*models.PresenceSession `json:"sessions"`
}

// PresenceHandler handles collaborative presence HTTP requests.
type PresenceHandler struct {
	presenceService services.PresenceService
	logger          *zap.Logger
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(presenceService services.PresenceService, logger *zap.Logger) *PresenceHandler {
	return &PresenceHandler{
		presenceService: presenceService,
		logger:          logger,
	}
}

// RegisterRoutes registers the presence handler's routes on the given mux.
func (h *PresenceHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("PUT /api/projects/{pid}/presence",
		authMiddleware.RequireAuth(scopeMiddleware(h.Heartbeat)))
	mux.HandleFunc("GET /api/projects/{pid}/presence",
		authMiddleware.OptionalAuth(scopeMiddleware(h.List)))
}

// Heartbeat handles PUT /api/projects/{pid}/presence
func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.presenceService.Heartbeat(r.Context(), projectID, req.Cursor); err != nil {
		WriteServiceError(w, h.logger, "Project", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/projects/{pid}/presence
func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	sessions, err := h.presenceService.List(r.Context(), projectID)
	if err != nil {
		WriteServiceError(w, h.logger, "Project", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ListPresenceResponse{Sessions: sessions}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
