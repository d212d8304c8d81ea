package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/models"
	"github.com/myschoolstory/collab-3d/pkg/repositories"
)

// MaterialPatch carries the updatable material fields. A non-nil Spec
// replaces the material data wholesale.
type MaterialPatch struct {
	Name *string
	Spec *models.MaterialSpec
}

// MaterialService defines the interface for the workspace material library.
// Library materials are assets models copy from; editing one never rewrites
// models that already use it.
type MaterialService interface {
	Create(ctx context.Context, workspaceID uuid.UUID, name string, spec models.MaterialSpec) (*models.Material, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Material, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Material, error)
	Update(ctx context.Context, id uuid.UUID, patch MaterialPatch) (*models.Material, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// materialService implements MaterialService.
type materialService struct {
	materialRepo  repositories.MaterialRepository
	workspaceRepo repositories.WorkspaceRepository
	access        AccessService
	logger        *zap.Logger
}

// NewMaterialService creates a new material service with dependencies.
func NewMaterialService(materialRepo repositories.MaterialRepository, workspaceRepo repositories.WorkspaceRepository, access AccessService, logger *zap.Logger) MaterialService {
	return &materialService{
		materialRepo:  materialRepo,
		workspaceRepo: workspaceRepo,
		access:        access,
		logger:        logger,
	}
}

// Create validates and inserts a library material. Names are unique per
// workspace; a duplicate returns ErrConflict.
func (s *materialService) Create(ctx context.Context, workspaceID uuid.UUID, name string, spec models.MaterialSpec) (*models.Material, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.workspaceRepo.Get(ctx, workspaceID); err != nil {
		return nil, err
	}

	if err := s.access.RequireRole(ctx, workspaceID, userID, "material.create", CanEdit); err != nil {
		return nil, err
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	material := &models.Material{
		WorkspaceID:  workspaceID,
		Name:         name,
		MaterialSpec: spec,
		CreatedBy:    userID,
	}

	if err := s.materialRepo.Create(ctx, material); err != nil {
		return nil, err
	}

	s.logger.Info("Created material",
		zap.String("material_id", material.ID.String()),
		zap.String("workspace_id", workspaceID.String()))

	return material, nil
}

// Get returns one material under the workspace read policy. Materials in a
// public workspace are readable by anyone.
func (s *materialService) Get(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	material, err := s.materialRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	workspace, err := s.workspaceRepo.Get(ctx, material.WorkspaceID)
	if err != nil {
		return nil, err
	}

	_, allowed, err := s.access.CanRead(ctx, workspace.ID, auth.CurrentUserID(ctx), workspace.IsPublic)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrNotFound
	}

	return material, nil
}

// ListByWorkspace lists the workspace's material library, sorted by name.
// An unreadable or absent workspace yields an empty list.
func (s *materialService) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Material, error) {
	workspace, err := s.workspaceRepo.Get(ctx, workspaceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return []*models.Material{}, nil
		}
		return nil, err
	}

	_, allowed, err := s.access.CanRead(ctx, workspace.ID, auth.CurrentUserID(ctx), workspace.IsPublic)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return []*models.Material{}, nil
	}

	materials, err := s.materialRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if materials == nil {
		materials = []*models.Material{}
	}
	return materials, nil
}

// Update applies a partial patch. Renaming onto an existing name returns
// ErrConflict.
func (s *materialService) Update(ctx context.Context, id uuid.UUID, patch MaterialPatch) (*models.Material, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	material, err := s.materialRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.access.RequireRole(ctx, material.WorkspaceID, userID, "material.update", CanEdit); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		material.Name = *patch.Name
	}
	if patch.Spec != nil {
		if err := patch.Spec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		material.MaterialSpec = *patch.Spec
	}

	if err := s.materialRepo.Update(ctx, material); err != nil {
		return nil, err
	}

	return material, nil
}

// Delete removes a library material. Models carrying a copy of its spec are
// untouched.
func (s *materialService) Delete(ctx context.Context, id uuid.UUID) error {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return err
	}

	material, err := s.materialRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.access.RequireRole(ctx, material.WorkspaceID, userID, "material.delete", CanEdit); err != nil {
		return err
	}

	if err := s.materialRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Deleted material", zap.String("material_id", id.String()))
	return nil
}

// Ensure materialService implements MaterialService at compile time.
var _ MaterialService = (*materialService)(nil)
