package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/database"
	"github.com/myschoolstory/collab-3d/pkg/models"
)

// ProjectRepository defines the interface for project data access.
type ProjectRepository interface {
	// CreateWithSeeds inserts the project together with its seed models in
	// one transaction, so a project is never observable without its
	// starter scene.
	CreateWithSeeds(ctx context.Context, project *models.Project, seeds []*models.SceneModel) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	// ListByWorkspace returns projects in descending insertion order
	// (newest first), not by last_modified.
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
}

// projectRepository implements ProjectRepository using PostgreSQL.
type projectRepository struct{}

// NewProjectRepository creates a new project repository.
func NewProjectRepository() ProjectRepository {
	return &projectRepository{}
}

// CreateWithSeeds inserts a project and its seed models atomically.
func (r *projectRepository) CreateWithSeeds(ctx context.Context, project *models.Project, seeds []*models.SceneModel) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	project.LastModified = now
	if project.LastModifiedBy == uuid.Nil {
		project.LastModifiedBy = project.CreatedBy
	}

	renderValue, err := project.Settings.Render.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal render settings: %w", err)
	}
	gridValue, err := project.Settings.Grid.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal grid settings: %w", err)
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	query := `
		INSERT INTO projects (
			id, workspace_id, name, description, created_by, is_public, thumbnail,
			render_settings, grid_settings, last_modified, last_modified_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.Exec(ctx, query,
		project.ID,
		project.WorkspaceID,
		project.Name,
		project.Description,
		project.CreatedBy,
		project.IsPublic,
		project.Thumbnail,
		renderValue,
		gridValue,
		project.LastModified,
		project.LastModifiedBy,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	for _, seed := range seeds {
		seed.ProjectID = project.ID
		if err := insertSceneModel(ctx, tx, seed); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Get retrieves a project by ID.
func (r *projectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, workspace_id, name, description, created_by, is_public, thumbnail,
		       render_settings, grid_settings, last_modified, last_modified_by, created_at, updated_at
		FROM projects
		WHERE id = $1`

	var project models.Project
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.WorkspaceID,
		&project.Name,
		&project.Description,
		&project.CreatedBy,
		&project.IsPublic,
		&project.Thumbnail,
		&project.Settings.Render,
		&project.Settings.Grid,
		&project.LastModified,
		&project.LastModifiedBy,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return &project, nil
}

// ListByWorkspace returns a workspace's projects, newest first.
func (r *projectRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Project, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, workspace_id, name, description, created_by, is_public, thumbnail,
		       render_settings, grid_settings, last_modified, last_modified_by, created_at, updated_at
		FROM projects
		WHERE workspace_id = $1
		ORDER BY created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var project models.Project
		err := rows.Scan(
			&project.ID,
			&project.WorkspaceID,
			&project.Name,
			&project.Description,
			&project.CreatedBy,
			&project.IsPublic,
			&project.Thumbnail,
			&project.Settings.Render,
			&project.Settings.Grid,
			&project.LastModified,
			&project.LastModifiedBy,
			&project.CreatedAt,
			&project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, &project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// Update writes the project's mutable fields and stamps last_modified. The
// service layer merges patches into a loaded row first.
func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	now := time.Now().UTC()
	project.UpdatedAt = now
	project.LastModified = now

	renderValue, err := project.Settings.Render.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal render settings: %w", err)
	}
	gridValue, err := project.Settings.Grid.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal grid settings: %w", err)
	}

	query := `
		UPDATE projects
		SET name = $2, description = $3, is_public = $4, thumbnail = $5,
		    render_settings = $6, grid_settings = $7,
		    last_modified = $8, last_modified_by = $9, updated_at = $8
		WHERE id = $1`

	result, err := scope.Conn.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Description,
		project.IsPublic,
		project.Thumbnail,
		renderValue,
		gridValue,
		project.LastModified,
		project.LastModifiedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Ensure projectRepository implements ProjectRepository at compile time.
var _ ProjectRepository = (*projectRepository)(nil)
