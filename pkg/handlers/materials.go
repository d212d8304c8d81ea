package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/audit"
	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/models"
	"github.com/myschoolstory/collab-3d/pkg/services"
)

// CreateMaterialRequest is the request body for adding a library material.
type CreateMaterialRequest struct {
	Name     string              `json:"name"`
	Material models.MaterialSpec `json:"material"`
}

// UpdateMaterialRequest is the request body for patching a library material.
// A present material replaces the spec wholesale.
type UpdateMaterialRequest struct {
	Name     *string              `json:"name"`
	Material *models.MaterialSpec `json:"material"`
}

// ListMaterialsResponse wraps a workspace's material library.
type ListMaterialsResponse struct {
	Materials []*models.Material `json:"materials"`
}

// MaterialsHandler handles material library HTTP requests.
type MaterialsHandler struct {
	materialService services.MaterialService
	auditor         *audit.SecurityAuditor
	logger          *zap.Logger
}

// NewMaterialsHandler creates a new materials handler.
func NewMaterialsHandler(materialService services.MaterialService, auditor *audit.SecurityAuditor, logger *zap.Logger) *MaterialsHandler {
	return &MaterialsHandler{
		materialService: materialService,
		auditor:         auditor,
		logger:          logger,
	}
}

// RegisterRoutes registers the materials handler's routes on the given mux.
func (h *MaterialsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("POST /api/workspaces/{wid}/materials",
		authMiddleware.RequireAuth(scopeMiddleware(h.Create)))
	mux.HandleFunc("GET /api/workspaces/{wid}/materials",
		authMiddleware.OptionalAuth(scopeMiddleware(h.ListByWorkspace)))
	mux.HandleFunc("GET /api/materials/{mid}",
		authMiddleware.OptionalAuth(scopeMiddleware(h.Get)))
	mux.HandleFunc("PATCH /api/materials/{mid}",
		authMiddleware.RequireAuth(scopeMiddleware(h.Update)))
	mux.HandleFunc("DELETE /api/materials/{mid}",
		authMiddleware.RequireAuth(scopeMiddleware(h.Delete)))
}

// Create handles POST /api/workspaces/{wid}/materials
func (h *MaterialsHandler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Name == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_name", "Material name is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if !ScreenTextFields(w, r, h.auditor, h.logger, workspaceID,
		TextField{"name", req.Name}) {
		return
	}

	material, err := h.materialService.Create(r.Context(), workspaceID, req.Name, req.Material)
	if err != nil {
		WriteServiceError(w, h.logger, "Workspace", err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, material); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListByWorkspace handles GET /api/workspaces/{wid}/materials
func (h *MaterialsHandler) ListByWorkspace(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	materials, err := h.materialService.ListByWorkspace(r.Context(), workspaceID)
	if err != nil {
		WriteServiceError(w, h.logger, "Workspace", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ListMaterialsResponse{Materials: materials}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/materials/{mid}
func (h *MaterialsHandler) Get(w http.ResponseWriter, r *http.Request) {
	materialID, ok := ParseMaterialID(w, r, h.logger)
	if !ok {
		return
	}

	material, err := h.materialService.Get(r.Context(), materialID)
	if err != nil {
		WriteServiceError(w, h.logger, "Material", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, material); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/materials/{mid}
func (h *MaterialsHandler) Update(w http.ResponseWriter, r *http.Request) {
	materialID, ok := ParseMaterialID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Name != nil {
		if !ScreenTextFields(w, r, h.auditor, h.logger, uuid.Nil,
			TextField{"name", *req.Name}) {
			return
		}
	}

	material, err := h.materialService.Update(r.Context(), materialID, services.MaterialPatch{
		Name: req.Name,
		Spec: req.Material,
	})
	if err != nil {
		WriteServiceError(w, h.logger, "Material", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, material); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/materials/{mid}
func (h *MaterialsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	materialID, ok := ParseMaterialID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.materialService.Delete(r.Context(), materialID); err != nil {
		WriteServiceError(w, h.logger, "Material", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
