package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/models"
	"github.com/myschoolstory/collab-3d/pkg/repositories"
	"github.com/myschoolstory/collab-3d/pkg/retry"
)

// saveRetryConfig spreads competing snapshot saves apart. Two editors
// hitting save together race on the next version number; the loser's insert
// conflicts and usually wins on a follow-up attempt.
var saveRetryConfig = &retry.Config{
	MaxRetries:   2,
	InitialDelay: 10 * time.Millisecond,
	MaxDelay:     100 * time.Millisecond,
	Multiplier:   2.0,
	JitterFactor: 0.5,
}

// VersionService defines the interface for project version snapshots.
// Versions capture the whole scene at save time and are immutable; restore
// replaces the live scene with a snapshot's content.
type VersionService interface {
	// Save snapshots the project's current state under the next version
	// number. Requires an editor role or above.
	Save(ctx context.Context, projectID uuid.UUID, thumbnail string) (*models.ProjectVersion, error)
	// List returns version metadata newest first, without snapshot blobs.
	List(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectVersion, error)
	Get(ctx context.Context, projectID uuid.UUID, number int) (*models.ProjectVersion, error)
	// Restore swaps the project's live models for the snapshot's, in one
	// transaction. Restored models get fresh ids with parent links
	// remapped, so repeated restores never collide. Returns the project
	// with its new modification stamp.
	Restore(ctx context.Context, projectID uuid.UUID, number int) (*models.Project, error)
}

// versionService implements VersionService.
type versionService struct {
	versionRepo repositories.VersionRepository
	projectRepo repositories.ProjectRepository
	modelRepo   repositories.SceneModelRepository
	access      AccessService
	logger      *zap.Logger
}

// NewVersionService creates a new version service with dependencies.
func NewVersionService(versionRepo repositories.VersionRepository, projectRepo repositories.ProjectRepository, modelRepo repositories.SceneModelRepository, access AccessService, logger *zap.Logger) VersionService {
	return &versionService{
		versionRepo: versionRepo,
		projectRepo: projectRepo,
		modelRepo:   modelRepo,
		access:      access,
		logger:      logger,
	}
}

// Save captures the project's editable fields and full model set.
func (s *versionService) Save(ctx context.Context, projectID uuid.UUID, thumbnail string) (*models.ProjectVersion, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.access.RequireRole(ctx, project.WorkspaceID, userID, "version.save", CanEdit); err != nil {
		return nil, err
	}

	sceneModels, err := s.modelRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	snapshot := models.ProjectSnapshot{
		Name:        project.Name,
		Description: project.Description,
		Settings:    project.Settings,
		Models:      make([]models.SceneModel, 0, len(sceneModels)),
	}
	for _, m := range sceneModels {
		snapshot.Models = append(snapshot.Models, *m)
	}

	version := &models.ProjectVersion{
		ProjectID: projectID,
		Data:      snapshot,
		Thumbnail: thumbnail,
		CreatedBy: userID,
	}

	isNumberRace := func(err error) bool { return errors.Is(err, apperrors.ErrConflict) }
	if err := retry.DoIf(ctx, saveRetryConfig, isNumberRace, func() error {
		return s.versionRepo.Save(ctx, version)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Saved project version",
		zap.String("project_id", projectID.String()),
		zap.Int("version", version.Version),
		zap.Int("models", len(snapshot.Models)))

	return version, nil
}

// List returns version metadata under the project's read policy. An
// unreadable or absent project yields an empty list.
func (s *versionService) List(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectVersion, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return []*models.ProjectVersion{}, nil
		}
		return nil, err
	}

	_, allowed, err := s.access.CanRead(ctx, project.WorkspaceID, auth.CurrentUserID(ctx), project.IsPublic)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return []*models.ProjectVersion{}, nil
	}

	versions, err := s.versionRepo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []*models.ProjectVersion{}
	}
	return versions, nil
}

// Get returns one version including its snapshot, under the project's read
// policy.
func (s *versionService) Get(ctx context.Context, projectID uuid.UUID, number int) (*models.ProjectVersion, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
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

	return s.versionRepo.GetByNumber(ctx, projectID, number)
}

// Restore replaces the live scene with the snapshot's models.
func (s *versionService) Restore(ctx context.Context, projectID uuid.UUID, number int) (*models.Project, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.access.RequireRole(ctx, project.WorkspaceID, userID, "version.restore", CanEdit); err != nil {
		return nil, err
	}

	version, err := s.versionRepo.GetByNumber(ctx, projectID, number)
	if err != nil {
		return nil, err
	}

	replacements := remapSnapshotModels(version.Data.Models, projectID)
	if err := s.modelRepo.ReplaceAll(ctx, projectID, replacements, userID); err != nil {
		return nil, err
	}

	s.logger.Info("Restored project version",
		zap.String("project_id", projectID.String()),
		zap.Int("version", number),
		zap.Int("models", len(replacements)))

	return s.projectRepo.Get(ctx, projectID)
}

// remapSnapshotModels copies snapshot models for reinsertion: every model
// gets a fresh id, and parent references into the snapshot follow the new
// ids. A parent that was outside the snapshot stays dangling, matching how
// deletion leaves children behind.
func remapSnapshotModels(snapshot []models.SceneModel, projectID uuid.UUID) []*models.SceneModel {
	idMap := make(map[uuid.UUID]uuid.UUID, len(snapshot))
	replacements := make([]*models.SceneModel, 0, len(snapshot))

	for i := range snapshot {
		m := snapshot[i]
		newID := uuid.New()
		idMap[m.ID] = newID
		m.ID = newID
		m.ProjectID = projectID
		replacements = append(replacements, &m)
	}

	for _, m := range replacements {
		if m.ParentID == nil {
			continue
		}
		if mapped, ok := idMap[*m.ParentID]; ok {
			parentID := mapped
			m.ParentID = &parentID
		}
	}

	return replacements
}

// Ensure versionService implements VersionService at compile time.
var _ VersionService = (*versionService)(nil)
