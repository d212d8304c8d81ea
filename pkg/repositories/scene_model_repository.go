package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/database"
	"github.com/myschoolstory/collab-3d/pkg/models"
)

// SceneModelRepository defines the interface for scene object data access.
//
// Every mutation stamps the owning project's last_modified/last_modified_by
// inside the same transaction as the model write, so a crash can never leave
// a mutated scene under a stale project timestamp.
type SceneModelRepository interface {
	Create(ctx context.Context, model *models.SceneModel) error
	Get(ctx context.Context, id uuid.UUID) (*models.SceneModel, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.SceneModel, error)
	// ListChildren returns the models whose parent_id references the given
	// model, via the parent_id index. The parent itself may already be
	// deleted; children keep their dangling reference.
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.SceneModel, error)
	// UpdateTransform replaces the full transform (all three vectors).
	UpdateTransform(ctx context.Context, id uuid.UUID, transform models.Transform, actor uuid.UUID) error
	SetVisibility(ctx context.Context, id uuid.UUID, visible bool, actor uuid.UUID) error
	SetLocked(ctx context.Context, id uuid.UUID, locked bool, actor uuid.UUID) error
	// Delete removes the model row only. Children referencing it keep
	// their parent_id; resolving orphans is the consumer's choice.
	Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error
	// ReplaceAll swaps the project's entire model set in one transaction.
	// Used by version restore.
	ReplaceAll(ctx context.Context, projectID uuid.UUID, replacements []*models.SceneModel, actor uuid.UUID) error
}

// sceneModelRepository implements SceneModelRepository using PostgreSQL.
type sceneModelRepository struct{}

// NewSceneModelRepository creates a new scene model repository.
func NewSceneModelRepository() SceneModelRepository {
	return &sceneModelRepository{}
}

// Create inserts a model and stamps its project.
func (r *sceneModelRepository) Create(ctx context.Context, model *models.SceneModel) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	if err := insertSceneModel(ctx, tx, model); err != nil {
		return err
	}

	if err := stampProject(ctx, tx, model.ProjectID, model.LastModified, model.LastModifiedBy); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Get retrieves a model by ID.
func (r *sceneModelRepository) Get(ctx context.Context, id uuid.UUID) (*models.SceneModel, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, project_id, name, type, transform, geometry, material, parent_id,
		       visible, locked, created_by, last_modified, last_modified_by, created_at, updated_at
		FROM scene_models
		WHERE id = $1`

	model, err := scanSceneModel(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	return model, nil
}

// ListByProject returns all models in a project, oldest first. Insertion
// order keeps listings deterministic for clients diffing scene state.
func (r *sceneModelRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.SceneModel, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, project_id, name, type, transform, geometry, material, parent_id,
		       visible, locked, created_by, last_modified, last_modified_by, created_at, updated_at
		FROM scene_models
		WHERE project_id = $1
		ORDER BY created_at`

	rows, err := scope.Conn.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	return scanSceneModelRows(rows)
}

// ListChildren returns the models referencing parentID.
func (r *sceneModelRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.SceneModel, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, project_id, name, type, transform, geometry, material, parent_id,
		       visible, locked, created_by, last_modified, last_modified_by, created_at, updated_at
		FROM scene_models
		WHERE parent_id = $1
		ORDER BY created_at`

	rows, err := scope.Conn.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	return scanSceneModelRows(rows)
}

// UpdateTransform replaces the model's transform and stamps its project.
func (r *sceneModelRepository) UpdateTransform(ctx context.Context, id uuid.UUID, transform models.Transform, actor uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	transformValue, err := transform.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal transform: %w", err)
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	now := time.Now().UTC()

	query := `
		UPDATE scene_models
		SET transform = $2, last_modified = $3, last_modified_by = $4, updated_at = $3
		WHERE id = $1
		RETURNING project_id`

	var projectID uuid.UUID
	err = tx.QueryRow(ctx, query, id, transformValue, now, actor).Scan(&projectID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update transform: %w", err)
	}

	if err := stampProject(ctx, tx, projectID, now, actor); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SetVisibility toggles the visible flag and stamps the project.
func (r *sceneModelRepository) SetVisibility(ctx context.Context, id uuid.UUID, visible bool, actor uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	now := time.Now().UTC()

	query := `
		UPDATE scene_models
		SET visible = $2, last_modified = $3, last_modified_by = $4, updated_at = $3
		WHERE id = $1
		RETURNING project_id`

	var projectID uuid.UUID
	err = tx.QueryRow(ctx, query, id, visible, now, actor).Scan(&projectID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to set visibility: %w", err)
	}

	if err := stampProject(ctx, tx, projectID, now, actor); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SetLocked toggles the locked flag and stamps the project. The flag is
// advisory: no service method refuses writes to a locked model.
func (r *sceneModelRepository) SetLocked(ctx context.Context, id uuid.UUID, locked bool, actor uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	now := time.Now().UTC()

	query := `
		UPDATE scene_models
		SET locked = $2, last_modified = $3, last_modified_by = $4, updated_at = $3
		WHERE id = $1
		RETURNING project_id`

	var projectID uuid.UUID
	err = tx.QueryRow(ctx, query, id, locked, now, actor).Scan(&projectID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to set locked: %w", err)
	}

	if err := stampProject(ctx, tx, projectID, now, actor); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete removes the model and stamps its project. No cascade.
func (r *sceneModelRepository) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	var projectID uuid.UUID
	err = tx.QueryRow(ctx, `DELETE FROM scene_models WHERE id = $1 RETURNING project_id`, id).Scan(&projectID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to delete model: %w", err)
	}

	if err := stampProject(ctx, tx, projectID, time.Now().UTC(), actor); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ReplaceAll deletes the project's models and inserts the replacements.
func (r *sceneModelRepository) ReplaceAll(ctx context.Context, projectID uuid.UUID, replacements []*models.SceneModel, actor uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	if _, err := tx.Exec(ctx, `DELETE FROM scene_models WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to clear models: %w", err)
	}

	now := time.Now().UTC()
	for _, model := range replacements {
		model.ProjectID = projectID
		if err := insertSceneModel(ctx, tx, model); err != nil {
			return err
		}
	}

	if err := stampProject(ctx, tx, projectID, now, actor); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// insertSceneModel inserts one model row inside an existing transaction.
// Shared by model create, project seeding, and version restore.
func insertSceneModel(ctx context.Context, tx pgx.Tx, model *models.SceneModel) error {
	if model.ID == uuid.Nil {
		model.ID = uuid.New()
	}

	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now
	model.LastModified = now
	if model.LastModifiedBy == uuid.Nil {
		model.LastModifiedBy = model.CreatedBy
	}

	transformValue, err := model.Transform.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal transform: %w", err)
	}

	var geometry []byte
	if model.Geometry != nil {
		geometry, err = json.Marshal(model.Geometry)
		if err != nil {
			return fmt.Errorf("failed to marshal geometry: %w", err)
		}
	}

	var material []byte
	if model.Material != nil {
		material, err = json.Marshal(model.Material)
		if err != nil {
			return fmt.Errorf("failed to marshal material: %w", err)
		}
	}

	query := `
		INSERT INTO scene_models (
			id, project_id, name, type, transform, geometry, material, parent_id,
			visible, locked, created_by, last_modified, last_modified_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = tx.Exec(ctx, query,
		model.ID,
		model.ProjectID,
		model.Name,
		model.Type,
		transformValue,
		geometry,
		material,
		model.ParentID,
		model.Visible,
		model.Locked,
		model.CreatedBy,
		model.LastModified,
		model.LastModifiedBy,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert model: %w", err)
	}

	return nil
}

// stampProject updates the project's last-modified marker inside an existing
// transaction. A missing project row is tolerated: the model may already be
// dangling and the stamp has nothing to land on.
func stampProject(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, now time.Time, actor uuid.UUID) error {
	query := `
		UPDATE projects
		SET last_modified = $2, last_modified_by = $3, updated_at = $2
		WHERE id = $1`

	if _, err := tx.Exec(ctx, query, projectID, now, actor); err != nil {
		return fmt.Errorf("failed to stamp project: %w", err)
	}

	return nil
}

func scanSceneModel(row pgx.Row) (*models.SceneModel, error) {
	var m models.SceneModel
	var geometry, material []byte

	err := row.Scan(
		&m.ID,
		&m.ProjectID,
		&m.Name,
		&m.Type,
		&m.Transform,
		&geometry,
		&material,
		&m.ParentID,
		&m.Visible,
		&m.Locked,
		&m.CreatedBy,
		&m.LastModified,
		&m.LastModifiedBy,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan model: %w", err)
	}

	if len(geometry) > 0 && string(geometry) != "null" {
		if err := json.Unmarshal(geometry, &m.Geometry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal geometry: %w", err)
		}
	}

	if len(material) > 0 && string(material) != "null" {
		if err := json.Unmarshal(material, &m.Material); err != nil {
			return nil, fmt.Errorf("failed to unmarshal material: %w", err)
		}
	}

	return &m, nil
}

func scanSceneModelRows(rows pgx.Rows) ([]*models.SceneModel, error) {
	var out []*models.SceneModel
	for rows.Next() {
		model, err := scanSceneModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating models: %w", err)
	}

	return out, nil
}

// Ensure sceneModelRepository implements SceneModelRepository at compile time.
var _ SceneModelRepository = (*sceneModelRepository)(nil)
