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

// CreateModelInput carries the fields for a new scene model. A nil Transform
// gets the identity default; nil Geometry and Material stay unset.
type CreateModelInput struct {
	Name      string
	Type      string
	Transform *models.Transform
	Geometry  *models.Geometry
	Material  *models.MaterialSpec
	ParentID  *uuid.UUID
}

// SceneModelService defines the interface for scene model operations. Models
// are authorized through their project's workspace; every mutation requires
// an editor role or above and rolls the modification up to the project.
type SceneModelService interface {
	Create(ctx context.Context, projectID uuid.UUID, input CreateModelInput) (*models.SceneModel, error)
	// UpdateTransform replaces the model's full transform. All three
	// vectors are written together; there is no partial vector patch.
	UpdateTransform(ctx context.Context, id uuid.UUID, transform models.Transform) (*models.SceneModel, error)
	// Remove deletes the model. Children of the removed model are kept
	// and retain their parent reference.
	Remove(ctx context.Context, id uuid.UUID) error
	SetVisibility(ctx context.Context, id uuid.UUID, visible bool) (*models.SceneModel, error)
	// SetLocked flips the advisory lock flag. The flag is editor UI
	// state: the service itself never refuses writes to a locked model.
	SetLocked(ctx context.Context, id uuid.UUID, locked bool) (*models.SceneModel, error)
	// ListChildren returns the models parented to the given model, under
	// the project's read policy.
	ListChildren(ctx context.Context, id uuid.UUID) ([]*models.SceneModel, error)
}

// sceneModelService implements SceneModelService.
type sceneModelService struct {
	modelRepo   repositories.SceneModelRepository
	projectRepo repositories.ProjectRepository
	access      AccessService
	logger      *zap.Logger
}

// NewSceneModelService creates a new scene model service with dependencies.
func NewSceneModelService(modelRepo repositories.SceneModelRepository, projectRepo repositories.ProjectRepository, access AccessService, logger *zap.Logger) SceneModelService {
	return &sceneModelService{
		modelRepo:   modelRepo,
		projectRepo: projectRepo,
		access:      access,
		logger:      logger,
	}
}

// Create validates and inserts a model into the project's scene.
func (s *sceneModelService) Create(ctx context.Context, projectID uuid.UUID, input CreateModelInput) (*models.SceneModel, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.access.RequireRole(ctx, project.WorkspaceID, userID, "model.create", CanEdit); err != nil {
		return nil, err
	}

	transform := models.DefaultTransform()
	if input.Transform != nil {
		if err := input.Transform.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		transform = *input.Transform
	}
	if input.Geometry != nil {
		if err := input.Geometry.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
	}
	if input.Material != nil {
		if err := input.Material.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
	}
	if input.ParentID != nil {
		parent, err := s.modelRepo.Get(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.ErrInvalidParent
			}
			return nil, err
		}
		if parent.ProjectID != projectID {
			return nil, fmt.Errorf("%w: parent %s belongs to project %s", apperrors.ErrInvalidParent, parent.ID, parent.ProjectID)
		}
	}

	model := &models.SceneModel{
		ProjectID: projectID,
		Name:      input.Name,
		Type:      input.Type,
		Transform: transform,
		Geometry:  input.Geometry,
		Material:  input.Material,
		ParentID:  input.ParentID,
		Visible:   true,
		Locked:    false,
		CreatedBy: userID,
	}

	if err := s.modelRepo.Create(ctx, model); err != nil {
		return nil, err
	}

	s.logger.Info("Created scene model",
		zap.String("model_id", model.ID.String()),
		zap.String("project_id", projectID.String()),
		zap.String("type", model.Type))

	return model, nil
}

// UpdateTransform validates and writes the replacement transform.
func (s *sceneModelService) UpdateTransform(ctx context.Context, id uuid.UUID, transform models.Transform) (*models.SceneModel, error) {
	userID, err := s.requireEdit(ctx, id, "model.updateTransform")
	if err != nil {
		return nil, err
	}

	if err := transform.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	if err := s.modelRepo.UpdateTransform(ctx, id, transform, userID); err != nil {
		return nil, err
	}

	return s.modelRepo.Get(ctx, id)
}

// Remove deletes the model row. No cascade: children survive with a dangling
// parent reference the editor resolves on load.
func (s *sceneModelService) Remove(ctx context.Context, id uuid.UUID) error {
	userID, err := s.requireEdit(ctx, id, "model.remove")
	if err != nil {
		return err
	}

	if err := s.modelRepo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.logger.Info("Removed scene model", zap.String("model_id", id.String()))
	return nil
}

// SetVisibility flips the model's visible flag.
func (s *sceneModelService) SetVisibility(ctx context.Context, id uuid.UUID, visible bool) (*models.SceneModel, error) {
	userID, err := s.requireEdit(ctx, id, "model.setVisibility")
	if err != nil {
		return nil, err
	}

	if err := s.modelRepo.SetVisibility(ctx, id, visible, userID); err != nil {
		return nil, err
	}

	return s.modelRepo.Get(ctx, id)
}

// SetLocked flips the model's advisory lock flag.
func (s *sceneModelService) SetLocked(ctx context.Context, id uuid.UUID, locked bool) (*models.SceneModel, error) {
	userID, err := s.requireEdit(ctx, id, "model.setLocked")
	if err != nil {
		return nil, err
	}

	if err := s.modelRepo.SetLocked(ctx, id, locked, userID); err != nil {
		return nil, err
	}

	return s.modelRepo.Get(ctx, id)
}

// ListChildren lists the model's children. An unreadable or absent model
// yields an empty list, not an error.
func (s *sceneModelService) ListChildren(ctx context.Context, id uuid.UUID) ([]*models.SceneModel, error) {
	model, err := s.modelRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return []*models.SceneModel{}, nil
		}
		return nil, err
	}

	project, err := s.projectRepo.Get(ctx, model.ProjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Dangling model with no project: unreadable.
			return []*models.SceneModel{}, nil
		}
		return nil, err
	}

	_, allowed, err := s.access.CanRead(ctx, project.WorkspaceID, auth.CurrentUserID(ctx), project.IsPublic)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return []*models.SceneModel{}, nil
	}

	children, err := s.modelRepo.ListChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	if children == nil {
		children = []*models.SceneModel{}
	}
	return children, nil
}

// requireEdit resolves the model's workspace through its project and demands
// an editing role for the given operation. Returns the caller's user id on
// success.
func (s *sceneModelService) requireEdit(ctx context.Context, modelID uuid.UUID, operation string) (uuid.UUID, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	model, err := s.modelRepo.Get(ctx, modelID)
	if err != nil {
		return uuid.Nil, err
	}

	project, err := s.projectRepo.Get(ctx, model.ProjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// A model whose project is gone cannot be authorized, so
			// it cannot be mutated either.
			return uuid.Nil, apperrors.ErrNotFound
		}
		return uuid.Nil, err
	}

	if err := s.access.RequireRole(ctx, project.WorkspaceID, userID, operation, CanEdit); err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}

// Ensure sceneModelService implements SceneModelService at compile time.
var _ SceneModelService = (*sceneModelService)(nil)
