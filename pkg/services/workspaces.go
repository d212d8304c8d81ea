package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/models"
	"github.com/myschoolstory/collab-3d/pkg/repositories"
)

// WorkspacePatch carries the updatable workspace fields. Nil pointers leave
// the current value untouched; a non-nil Settings replaces the whole map.
type WorkspacePatch struct {
	Name        *string
	Description *string
	IsPublic    *bool
	Settings    models.JSONBMap
}

// WorkspaceService defines the interface for workspace and membership
// operations. The caller's identity comes from the request context; methods
// that mutate require authentication and an admitting role.
type WorkspaceService interface {
	Create(ctx context.Context, name, description string, isPublic bool) (*models.Workspace, error)
	// ListForUser returns the caller's workspaces with their role on each,
	// newest first.
	ListForUser(ctx context.Context) ([]*models.WorkspaceWithRole, error)
	// GetByID returns the workspace with the caller's effective role.
	// A workspace the caller may not read is reported as not found.
	GetByID(ctx context.Context, id uuid.UUID) (*models.WorkspaceWithRole, error)
	Update(ctx context.Context, id uuid.UUID, patch WorkspacePatch) (*models.Workspace, error)

	// ListMembers returns the member roster. Membership rosters are never
	// public: non-members get an empty list even for public workspaces.
	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*models.MemberProfile, error)
	AddMember(ctx context.Context, workspaceID, userID uuid.UUID, role string) (*models.WorkspaceMember, error)
	UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, newRole string) error
	RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error
}

// workspaceService implements WorkspaceService.
type workspaceService struct {
	workspaceRepo repositories.WorkspaceRepository
	access        AccessService
	logger        *zap.Logger
}

// NewWorkspaceService creates a new workspace service with dependencies.
func NewWorkspaceService(workspaceRepo repositories.WorkspaceRepository, access AccessService, logger *zap.Logger) WorkspaceService {
	return &workspaceService{
		workspaceRepo: workspaceRepo,
		access:        access,
		logger:        logger,
	}
}

// Create inserts a workspace owned by the caller. The repository writes the
// workspace and the owner membership in one transaction.
func (s *workspaceService) Create(ctx context.Context, name, description string, isPublic bool) (*models.Workspace, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	workspace := &models.Workspace{
		Name:        name,
		Description: description,
		OwnerID:     userID,
		IsPublic:    isPublic,
		Settings:    models.JSONBMap{},
	}

	if err := s.workspaceRepo.CreateWithOwner(ctx, workspace); err != nil {
		return nil, err
	}

	s.logger.Info("Created workspace",
		zap.String("workspace_id", workspace.ID.String()),
		zap.String("owner_id", userID.String()))

	return workspace, nil
}

// ListForUser returns the caller's workspaces.
func (s *workspaceService) ListForUser(ctx context.Context) ([]*models.WorkspaceWithRole, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	workspaces, err := s.workspaceRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if workspaces == nil {
		workspaces = []*models.WorkspaceWithRole{}
	}
	return workspaces, nil
}

// GetByID returns one workspace annotated with the caller's effective role.
// Denied reads surface as ErrNotFound so the response does not distinguish
// "absent" from "private".
func (s *workspaceService) GetByID(ctx context.Context, id uuid.UUID) (*models.WorkspaceWithRole, error) {
	workspace, err := s.workspaceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	role, allowed, err := s.access.CanRead(ctx, workspace.ID, auth.CurrentUserID(ctx), workspace.IsPublic)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrNotFound
	}

	return &models.WorkspaceWithRole{Workspace: *workspace, Role: role}, nil
}

// Update applies a partial patch. Requires owner or admin.
func (s *workspaceService) Update(ctx context.Context, id uuid.UUID, patch WorkspacePatch) (*models.Workspace, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	workspace, err := s.workspaceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.access.RequireRole(ctx, id, userID, "workspace.update", CanAdminister); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		workspace.Name = *patch.Name
	}
	if patch.Description != nil {
		workspace.Description = *patch.Description
	}
	if patch.IsPublic != nil {
		workspace.IsPublic = *patch.IsPublic
	}
	if patch.Settings != nil {
		workspace.Settings = patch.Settings
	}

	if err := s.workspaceRepo.Update(ctx, workspace); err != nil {
		return nil, err
	}

	return workspace, nil
}

// ListMembers returns the roster for members only.
func (s *workspaceService) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*models.MemberProfile, error) {
	role, err := s.access.ResolveRole(ctx, workspaceID, auth.CurrentUserID(ctx))
	if err != nil {
		return nil, err
	}
	if role == "" {
		return []*models.MemberProfile{}, nil
	}

	members, err := s.workspaceRepo.ListMembers(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []*models.MemberProfile{}
	}
	return members, nil
}

// AddMember grants a user a role in the workspace. Requires owner or admin.
// The owner role cannot be granted this way; ownership is fixed at creation.
func (s *workspaceService) AddMember(ctx context.Context, workspaceID, userID uuid.UUID, role string) (*models.WorkspaceMember, error) {
	callerID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.workspaceRepo.Get(ctx, workspaceID); err != nil {
		return nil, err
	}

	if err := s.access.RequireRole(ctx, workspaceID, callerID, "workspace.addMember", CanAdminister); err != nil {
		return nil, err
	}

	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidRole, role)
	}
	if role == models.RoleOwner {
		return nil, fmt.Errorf("%w: owner cannot be granted", apperrors.ErrInvalidRole)
	}

	member := &models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		InvitedBy:   &callerID,
	}

	if err := s.workspaceRepo.AddMember(ctx, member); err != nil {
		return nil, err
	}

	s.logger.Info("Added workspace member",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", role))

	return member, nil
}

// UpdateMemberRole changes an existing member's role. Requires owner or
// admin. Demoting the only owner fails with ErrLastOwner.
func (s *workspaceService) UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, newRole string) error {
	callerID, err := auth.RequireUserID(ctx)
	if err != nil {
		return err
	}

	if _, err := s.workspaceRepo.Get(ctx, workspaceID); err != nil {
		return err
	}

	if err := s.access.RequireRole(ctx, workspaceID, callerID, "workspace.updateMemberRole", CanAdminister); err != nil {
		return err
	}

	if !models.IsValidRole(newRole) {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidRole, newRole)
	}
	if newRole == models.RoleOwner {
		return fmt.Errorf("%w: owner cannot be granted", apperrors.ErrInvalidRole)
	}

	return s.workspaceRepo.UpdateMemberRole(ctx, workspaceID, userID, newRole)
}

// RemoveMember removes a member. Admins remove anyone; any member may remove
// themselves (leave). Removing the only owner fails with ErrLastOwner either
// way.
func (s *workspaceService) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	callerID, err := auth.RequireUserID(ctx)
	if err != nil {
		return err
	}

	if _, err := s.workspaceRepo.Get(ctx, workspaceID); err != nil {
		return err
	}

	if callerID == userID {
		// Leaving still requires being a member at all.
		if err := s.access.RequireRole(ctx, workspaceID, callerID, "workspace.leave", AnyMember); err != nil {
			return err
		}
	} else if err := s.access.RequireRole(ctx, workspaceID, callerID, "workspace.removeMember", CanAdminister); err != nil {
		return err
	}

	if err := s.workspaceRepo.RemoveMember(ctx, workspaceID, userID); err != nil {
		return err
	}

	s.logger.Info("Removed workspace member",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("user_id", userID.String()))

	return nil
}

// Ensure workspaceService implements WorkspaceService at compile time.
var _ WorkspaceService = (*workspaceService)(nil)
