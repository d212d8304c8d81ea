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

// ScopeMiddleware threads a per-request database connection into the context
// before the handler runs.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// CreateWorkspaceRequest is the request body for creating a workspace.
type CreateWorkspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"isPublic"`
}

// UpdateWorkspaceRequest is the request body for patching a workspace.
// Omitted fields are left unchanged.
type UpdateWorkspaceRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	IsPublic    *bool           `json:"isPublic"`
	Settings    models.JSONBMap `json:"settings"`
}

// AddMemberRequest is the request body for adding a workspace member.
type AddMemberRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// UpdateMemberRoleRequest is the request body for changing a member's role.
type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

// ListWorkspacesResponse wraps the caller's workspace list.
type ListWorkspacesResponse struct {
	Workspaces []*models.WorkspaceWithRole `json:"workspaces"`
}

// ListMembersResponse wraps a workspace's member roster.
type ListMembersResponse struct {
	Members []*models.MemberProfile `json:"members"`
}

// WorkspacesHandler handles workspace and membership HTTP requests.
type WorkspacesHandler struct {
	workspaceService services.WorkspaceService
	auditor          *audit.SecurityAuditor
	logger           *zap.Logger
}

// NewWorkspacesHandler creates a new workspaces handler.
func NewWorkspacesHandler(workspaceService services.WorkspaceService, auditor *audit.SecurityAuditor, logger *zap.Logger) *WorkspacesHandler {
	return &WorkspacesHandler{
		workspaceService: workspaceService,
		auditor:          auditor,
		logger:           logger,
	}
}

// RegisterRoutes registers the workspaces handler's routes on the given mux.
// Reads take OptionalAuth so public workspaces resolve for anonymous
// callers; writes require authentication outright.
func (h *WorkspacesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scopeMiddleware ScopeMiddleware) {
	mux.HandleFunc("POST /api/workspaces",
		authMiddleware.RequireAuth(scopeMiddleware(h.Create)))
	mux.HandleFunc("GET /api/workspaces",
		authMiddleware.RequireAuth(scopeMiddleware(h.List)))
	mux.HandleFunc("GET /api/workspaces/{wid}",
		authMiddleware.OptionalAuth(scopeMiddleware(h.Get)))
	mux.HandleFunc("PATCH /api/workspaces/{wid}",
		authMiddleware.RequireAuth(scopeMiddleware(h.Update)))

	mux.HandleFunc("GET /api/workspaces/{wid}/members",
		authMiddleware.OptionalAuth(scopeMiddleware(h.ListMembers)))
	mux.HandleFunc("POST /api/workspaces/{wid}/members",
		authMiddleware.RequireAuth(scopeMiddleware(h.AddMember)))
	mux.HandleFunc("PUT /api/workspaces/{wid}/members/{uid}",
		authMiddleware.RequireAuth(scopeMiddleware(h.UpdateMemberRole)))
	mux.HandleFunc("DELETE /api/workspaces/{wid}/members/{uid}",
		authMiddleware.RequireAuth(scopeMiddleware(h.RemoveMember)))
}

// Create handles POST /api/workspaces
func (h *WorkspacesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Name == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_name", "Workspace name is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if !ScreenTextFields(w, r, h.auditor, h.logger, uuid.Nil,
		TextField{"name", req.Name},
		TextField{"description", req.Description}) {
		return
	}

	workspace, err := h.workspaceService.Create(r.Context(), req.Name, req.Description, req.IsPublic)
	if err != nil {
		WriteServiceError(w, h.logger, "Workspace", err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, workspace); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/workspaces
func (h *WorkspacesHandler) List(w http.ResponseWriter, r *http.Request) {
	workspaces, err := h.workspaceService.ListForUser(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, "Workspace", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ListWorkspacesResponse{Workspaces: workspaces}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/workspaces/{wid}
func (h *WorkspacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	workspace, err := h.workspaceService.GetByID(r.Context(), workspaceID)
	if err != nil {
		WriteServiceError(w, h.logger, "Workspace", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, workspace); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/workspaces/{wid}
func (h *WorkspacesHandler) Update(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateWorkspaceRequest
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
	if !ScreenTextFields(w, r, h.auditor, h.logger, workspaceID, screened...) {
		return
	}

	workspace, err := h.workspaceService.Update(r.Context(), workspaceID, services.WorkspacePatch{
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		Settings:    req.Settings,
	})
	if err != nil {
		WriteServiceError(w, h.logger, "Workspace", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, workspace); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListMembers handles GET /api/workspaces/{wid}/members
func (h *WorkspacesHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	members, err := h.workspaceService.ListMembers(r.Context(), workspaceID)
	if err != nil {
		WriteServiceError(w, h.logger, "Workspace", err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ListMembersResponse{Members: members}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// AddMember handles POST /api/workspaces/{wid}/members
func (h *WorkspacesHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.UserID == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_user_id", "User ID is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	member, err := h.workspaceService.AddMember(r.Context(), workspaceID, userID, req.Role)
	if err != nil {
		WriteServiceError(w, h.logger, "Workspace", err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, member); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateMemberRole handles PUT /api/workspaces/{wid}/members/{uid}
func (h *WorkspacesHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := ParseMemberID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.workspaceService.UpdateMemberRole(r.Context(), workspaceID, userID, req.Role); err != nil {
		WriteServiceError(w, h.logger, "Member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember handles DELETE /api/workspaces/{wid}/members/{uid}
func (h *WorkspacesHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := ParseWorkspaceID(w, r, h.logger)
	if !ok {
		return
	}
	userID, ok := ParseMemberID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.workspaceService.RemoveMember(r.Context(), workspaceID, userID); err != nil {
		WriteServiceError(w, h.logger, "Member", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
