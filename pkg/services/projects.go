package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/models"
	"github.com/myschoolstory/collab-3d/pkg/repositories"
)

// ProjectPatch carries the updatable project fields. Nil pointers leave the
// current value untouched. Render and Grid replace their settings group
// wholesale; leaf fields within a group are never merged.
type ProjectPatch struct {
	Name        *string
	Description *string
	IsPublic    *bool
	Thumbnail   *string
	Render      *models.RenderSettings
	Grid        *models.GridSettings
}

// ProjectService defines the interface for project operations. Projects are
// authorized through their workspace: editors and above mutate, members read,
// and public projects read as viewer for everyone else.
type ProjectService interface {
	// Create inserts a project with the starter scene (camera and light)
	// in one transaction. Requires an editor role or above.
	Create(ctx context.Context, workspaceID uuid.UUID, name, description string, isPublic bool) (*models.Project, error)
	// GetByWorkspace lists a workspace's projects for members only.
	// Public visibility of individual projects does not open this listing
	// to non-members; that flag admits direct reads of a known project id
	// only.
	GetByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Project, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	// GetModels lists the project's scene content in insertion order.
	GetModels(ctx context.Context, projectID uuid.UUID) ([]*models.SceneModel, error)
	Update(ctx context.Context, id uuid.UUID, patch ProjectPatch) (*models.Project, error)
}

// projectService implements ProjectService.
type projectService struct {
	projectRepo repositories.ProjectRepository
	modelRepo   repositories.SceneModelRepository
	access      AccessService
	logger      *zap.Logger
}

// NewProjectService creates a new project service with dependencies.
func NewProjectService(projectRepo repositories.ProjectRepository, modelRepo repositories.SceneModelRepository, access AccessService, logger *zap.Logger) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		modelRepo:   modelRepo,
		access:      access,
		logger:      logger,
	}
}

// seedSceneModels returns the starter scene for a new project: a camera
// pulled back and pitched down toward the origin, and a key light up and to
// the side. The editor expects to find both in every fresh scene.
func seedSceneModels(creator uuid.UUID) []*models.SceneModel {
	return []*models.SceneModel{
		{
			Name: "Main Camera",
			Type: models.ModelTypeCamera,
			Transform: models.Transform{
				Position: models.Vec3{0, 5, 10},
				Rotation: models.Vec3{-0.3, 0, 0},
				Scale:    models.Vec3{1, 1, 1},
			},
			Visible:   true,
			CreatedBy: creator,
		},
		{
			Name: "Directional Light",
			Type: models.ModelTypeLight,
			Transform: models.Transform{
				Position: models.Vec3{5, 10, 5},
				Rotation: models.Vec3{0, 0, 0},
				Scale:    models.Vec3{1, 1, 1},
			},
			Visible:   true,
			CreatedBy: creator,
		},
	}
}

// Create inserts a project with default settings and the starter scene.
func (s *projectService) Create(ctx context.Context, workspaceID uuid.UUID, name, description string, isPublic bool) (*models.Project, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.access.RequireRole(ctx, workspaceID, userID, "project.create", CanEdit); err != nil {
		return nil, err
	}

	project := &models.Project{
		WorkspaceID: workspaceID,
		Name:        name,
		Description: description,
		CreatedBy:   userID,
		IsPublic:    isPublic,
		Settings:    models.DefaultProjectSettings(),
	}

	if err := s.projectRepo.CreateWithSeeds(ctx, project, seedSceneModels(userID)); err != nil {
		return nil, err
	}

	s.logger.Info("Created project",
		zap.String("project_id", project.ID.String()),
		zap.String("workspace_id", workspaceID.String()))

	return project, nil
}

// GetByWorkspace lists projects for workspace members. Non-members get an
// empty list regardless of any project's public flag.
func (s *projectService) GetByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Project, error) {
	role, err := s.access.ResolveRole(ctx, workspaceID, auth.CurrentUserID(ctx))
	if err != nil {
		return nil, err
	}
	if role == "" {
		return []*models.Project{}, nil
	}

	projects, err := s.projectRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	return projects, nil
}

// GetByID returns one project. Readable by workspace members, and by anyone
// when the project is public; otherwise reported as not found.
func (s *projectService) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.projectRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	_, allowed, err := s.access.CanRead(ctx, project.WorkspaceID, auth.CurrentUserID(ctx), project.IsPublic)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.ErrNotFound
	}

	return project, nil
}

// GetModels lists the project's models under the project's read policy.
// An unreadable or absent project yields an empty list, not an error.
func (s *projectService) GetModels(ctx context.Context, projectID uuid.UUID) ([]*models.SceneModel, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
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

	sceneModels, err := s.modelRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if sceneModels == nil {
		sceneModels = []*models.SceneModel{}
	}
	return sceneModels, nil
}

// Update applies a partial patch and stamps the caller as last modifier.
// Requires an editor role or above.
func (s *projectService) Update(ctx context.Context, id uuid.UUID, patch ProjectPatch) (*models.Project, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	project, err := s.projectRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.access.RequireRole(ctx, project.WorkspaceID, userID, "project.update", CanEdit); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		project.Name = *patch.Name
	}
	if patch.Description != nil {
		project.Description = *patch.Description
	}
	if patch.IsPublic != nil {
		project.IsPublic = *patch.IsPublic
	}
	if patch.Thumbnail != nil {
		project.Thumbnail = *patch.Thumbnail
	}
	if patch.Render != nil {
		project.Settings.Render = *patch.Render
	}
	if patch.Grid != nil {
		project.Settings.Grid = *patch.Grid
	}
	project.LastModifiedBy = userID

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// Ensure projectService implements ProjectService at compile time.
var _ ProjectService = (*projectService)(nil)
