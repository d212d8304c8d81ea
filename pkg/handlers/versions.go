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

// SaveVersionRequest is the request body for saving a version snapshot.
// The body is optional; an empty body saves without a thumbnail.
type SaveVersionRequest struct {
	Thumbnail string `json:"thumbnail"`
}

// ListVersionsResponse wraps a project's version history.
type ListVersionsResponse struct {
	Versions []*models.ProjectVersion `json:"versions"`
}

// VersionsHandler handles version snapshot HTTP requests.
type VersionsHandler struct {
	versionService services.VersionService
	logger         *zap.Logger
}

// NewVersionsHandler creates a new versions handler.
func NewVersionsHandler(versionService services.VersionService, logger *zap.Logger) *VersionsHandler {
	return &VersionsHandler{
		versionService: versionService,
		logger:         logger,
	}
}

// RegisterRoutes registers the versions handler's routes on the given mux.
func (h *VersionsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("POST /api/projects/{pid}/versions",
		authMiddleware.RequireAuth(scopeMiddleware(h.Save)))
	mux.HandleFunc("GET /api/projects/{pid}/versions",
		authMiddleware.OptionalAuth(scopeMiddleware(h.List)))
	mux.HandleFunc("GET /api/projects/{pid}/versions/{num}",
		authMiddleware.OptionalAuth(scopeMiddleware(h.Get)))
	mux.HandleFunc("POST /api/projects/{pid}/versions/{num}/restore",
		authMiddleware.RequireAuth(scopeMiddleware(h.Restore)))
}

// Save handles POST /api/projects/{pid}/versions
func (h *VersionsHandler) Save(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req SaveVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	version, err := h.versionService.Save(r.Context(), projectID, req.Thumbnail)
	if err != nil {
		WriteServiceError(w, h.logger, "Project", err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, version); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/projects/{pid}/versions
func (h *VersionsHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	versions, err := h.versionService.List(r.Context(), projectID)
	if err != nil {
		WriteServiceError(w, h.logger, "Project", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ListVersionsResponse{Versions: versions}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/projects/{pid}/versions/{num}
func (h *VersionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	number, ok := ParseVersionNumber(w, r, h.logger)
	if !ok {
		return
	}

	version, err := h.versionService.Get(r.Context(), projectID, number)
	if err != nil {
		WriteServiceError(w, h.logger, "Version", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, version); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Restore handles POST /api/projects/{pid}/versions/{num}/restore
func (h *VersionsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}
	number, ok := ParseVersionNumber(w, r, h.logger)
	if !ok {
		return
	}

	project, err := h.versionService.Restore(r.Context(), projectID, number)
	if err != nil {
		WriteServiceError(w, h.logger, "Version", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
