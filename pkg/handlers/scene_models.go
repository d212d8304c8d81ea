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

// CreateModelRequest is the request body for adding a model to a scene.
type CreateModelRequest struct {
	Name      string               `json:"name"`
	Type      string               `json:"type"`
	Transform *models.Transform    `json:"transform"`
	Geometry  *models.Geometry     `json:"geometry"`
	Material  *models.MaterialSpec `json:"material"`
	ParentID  *string              `json:"parentId"`
}

// UpdateTransformRequest is the request body for replacing a model's
// transform. All three vectors are required together.
type UpdateTransformRequest struct {
	Transform models.Transform `json:"transform"`
}

// SetVisibilityRequest is the request body for toggling model visibility.
type SetVisibilityRequest struct {
	Visible bool `json:"visible"`
}

// SetLockedRequest is the request body for toggling the advisory lock flag.
type SetLockedRequest struct {
	Locked bool `json:"locked"`
}

// SceneModelsHandler handles scene model HTTP requests.
type SceneModelsHandler struct {
	modelService services.SceneModelService
	auditor      *audit.SecurityAuditor
	logger       *zap.Logger
}

// NewSceneModelsHandler creates a new scene models handler.
func NewSceneModelsHandler(modelService services.SceneModelService, auditor *audit.SecurityAuditor, logger *zap.Logger) *SceneModelsHandler {
	return &SceneModelsHandler{
		modelService: modelService,
		auditor:      auditor,
		logger:       logger,
	}
}

// RegisterRoutes registers the scene models handler's routes on the given mux.
func (h *SceneModelsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("POST /api/projects/{pid}/models",
		authMiddleware.RequireAuth(scopeMiddleware(h.Create)))
	mux.HandleFunc("PUT /api/models/{mid}/transform",
		authMiddleware.RequireAuth(scopeMiddleware(h.UpdateTransform)))
	mux.HandleFunc("PUT /api/models/{mid}/visibility",
		authMiddleware.RequireAuth(scopeMiddleware(h.SetVisibility)))
	mux.HandleFunc("PUT /api/models/{mid}/lock",
		authMiddleware.RequireAuth(scopeMiddleware(h.SetLocked)))
	mux.HandleFunc("DELETE /api/models/{mid}",
		authMiddleware.RequireAuth(scopeMiddleware(h.Delete)))
	mux.HandleFunc("GET /api/models/{mid}/children",
		authMiddleware.OptionalAuth(scopeMiddleware(h.ListChildren)))
}

// Create handles POST /api/projects/{pid}/models
func (h *SceneModelsHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Name == "" || req.Type == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_fields", "Model name and type are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if !ScreenTextFields(w, r, h.auditor, h.logger, uuid.Nil,
		TextField{"name", req.Name}) {
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != nil && *req.ParentID != "" {
		parsed, err := uuid.Parse(*req.ParentID)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_parent_id", "Invalid parent ID format"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		parentID = &parsed
	}

	model, err := h.modelService.Create(r.Context(), projectID, services.CreateModelInput{
		Name:      req.Name,
		Type:      req.Type,
		Transform: req.Transform,
		Geometry:  req.Geometry,
		Material:  req.Material,
		ParentID:  parentID,
	})
	if err != nil {
		WriteServiceError(w, h.logger, "Project", err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, model); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateTransform handles PUT /api/models/{mid}/transform
func (h *SceneModelsHandler) UpdateTransform(w http.ResponseWriter, r *http.Request) {
	modelID, ok := ParseModelID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateTransformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	model, err := h.modelService.UpdateTransform(r.Context(), modelID, req.Transform)
	if err != nil {
		WriteServiceError(w, h.logger, "Model", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, model); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SetVisibility handles PUT /api/models/{mid}/visibility
func (h *SceneModelsHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	modelID, ok := ParseModelID(w, r, h.logger)
	if !ok {
		return
	}

	var req SetVisibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	model, err := h.modelService.SetVisibility(r.Context(), modelID, req.Visible)
	if err != nil {
		WriteServiceError(w, h.logger, "Model", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, model); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SetLocked handles PUT /api/models/{mid}/lock
func (h *SceneModelsHandler) SetLocked(w http.ResponseWriter, r *http.Request) {
	modelID, ok := ParseModelID(w, r, h.logger)
	if !ok {
		return
	}

	var req SetLockedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	model, err := h.modelService.SetLocked(r.Context(), modelID, req.Locked)
	if err != nil {
		WriteServiceError(w, h.logger, "Model", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, model); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/models/{mid}
func (h *SceneModelsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	modelID, ok := ParseModelID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.modelService.Remove(r.Context(), modelID); err != nil {
		WriteServiceError(w, h.logger, "Model", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListChildren handles GET /api/models/{mid}/children
func (h *SceneModelsHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	modelID, ok := ParseModelID(w, r, h.logger)
	if !ok {
		return
	}

	children, err := h.modelService.ListChildren(r.Context(), modelID)
	if err != nil {
		WriteServiceError(w, h.logger, "Model", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ListModelsResponse{Models: children}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
