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

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

// UpdateProjectRequest is the request body for patching a project. Omitted
// fields are left unchanged; renderSettings and gridSettings replace their
// whole group when present.
type UpdateProjectRequest struct {
	Name           *string                `json:"name"`
	Description    *string                `json:"description"`
	IsPublic       *bool                  `json:"isPublic"`
	Thumbnail      *string                `json:"thumbnail"`
	RenderSettings *models.RenderSettings `json:"renderSettings"`
	GridSettings   *models.GridSettings   `json:"gridSettings"`
}

// ListProjectsResponse wraps a workspace's project list.
type ListProjectsResponse struct {
	Projects []*models.Project `json:"projects"`
}

// ListModelsResponse wraps a project's scene content.
type ListModelsResponse struct {
	Models []*models.SceneModel `json:"models"`
}

// ProjectsHandler handles project-related HTTP requests.
type ProjectsHandler struct {
	projectService services.ProjectService
	auditor        *audit.SecurityAuditor
	logger         *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projectService services.ProjectService, auditor *audit.SecurityAuditor, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		projectService: projectService,
		auditor:        auditor,
		logger:         logger,
	}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("POST /api/workspaces/{wid}/projects",
		authMiddleware.RequireAuth(scopeMiddleware(h.Create)))
	mux.HandleFunc("GET /api/workspaces/{wid}/projects",
		authMiddleware.OptionalAuth(scopeMiddleware(h.ListByWorkspace)))
	mux.HandleFunc("GET /api/projects/{pid}",
		authMiddleware.OptionalAuth(scopeMiddleware(h.Get)))
	mux.HandleFunc("PATCH /api/projects/{pid}",
		authMiddleware.RequireAuth(scopeMiddleware(h.Update)))
	mux.HandleFunc("GET /api/projects/{pid}/models",
		authMiddleware.OptionalAuth(scopeMiddleware(h.GetModels)))
}

// Create handles POST /api/workspaces/{wid}/projects
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Name == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_name", "Project name is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if !ScreenTextFields(w, r, h.auditor, h.logger, workspaceID,
		TextField{"name", req.Name},
		TextField{"description", req.Description}) {
		return
	}

	project, err := h.projectService.Create(r.Context(), workspaceID, req.Name, req.Description, req.IsPublic)
	if err != nil {
		WriteServiceError(w, h.logger, "Workspace", err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListByWorkspace handles GET /api/workspaces/{wid}/projects
func (h *ProjectsHandler) ListByWorkspace(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	projects, err := h.projectService.GetByWorkspace(r.Context(), workspaceID)
	if err != nil {
		WriteServiceError(w, h.logger, "Workspace", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ListProjectsResponse{Projects: projects}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/projects/{pid}
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	project, err := h.projectService.GetByID(r.Context(), projectID)
	if err != nil {
		WriteServiceError(w, h.logger, "Project", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/projects/{pid}
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var screened []TextField
	if req.Name != nil {
		screened = append(screened, TextField{"name", *req.Name})
	}
	if req.Description != nil {
		screened = append(screened, TextField{"description", *req.Description})
	}
	if !ScreenTextFields(w, r, h.auditor, h.logger, uuid.Nil, screened...) {
		return
	}

	project, err := h.projectService.Update(r.Context(), projectID, services.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Thumbnail:   req.Thumbnail,
		Render:      req.RenderSettings,
		Grid:        req.GridSettings,
	})
	if err != nil {
		WriteServiceError(w, h.logger, "Project", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, project); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetModels handles GET /api/projects/{pid}/models
func (h *ProjectsHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	projectID, ok := ParseProjectID(w, r, h.logger)
	if !ok {
		return
	}

	sceneModels, err := h.projectService.GetModels(r.Context(), projectID)
	if err != nil {
		WriteServiceError(w, h.logger, "Project", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ListModelsResponse{Models: sceneModels}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
