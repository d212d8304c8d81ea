package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/database"
	"github.com/myschoolstory/collab-3d/pkg/models"
)

// MaterialRepository defines the interface for the workspace material
// library. Library entries have a lifecycle independent of the inline
// materials embedded in scene models; the two are never reconciled.
type MaterialRepository interface {
	// Create inserts a material. Names are unique per workspace; a
	// duplicate returns ErrConflict.
	Create(ctx context.Context, material *models.Material) error
	Get(ctx context.Context, id uuid.UUID) (*models.Material, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Material, error)
	// Update writes the material's mutable fields. Renaming onto an
	// existing name returns ErrConflict.
	Update(ctx context.Context, material *models.Material) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// materialRepository implements MaterialRepository using PostgreSQL.
type materialRepository struct{}

// NewMaterialRepository creates a new material repository.
func NewMaterialRepository() MaterialRepository {
	return &materialRepository{}
}

// Create inserts a library material.
func (r *materialRepository) Create(ctx context.Context, material *models.Material) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if material.ID == uuid.Nil {
		material.ID = uuid.New()
	}

	now := time.Now().UTC()
	material.CreatedAt = now
	material.UpdatedAt = now

	properties, textures, err := marshalMaterialSpec(&material.MaterialSpec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO materials (id, workspace_id, name, type, color, properties, textures, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = scope.Conn.Exec(ctx, query,
		material.ID,
		material.WorkspaceID,
		material.Name,
		material.Type,
		material.Color,
		properties,
		textures,
		material.CreatedBy,
		material.CreatedAt,
		material.UpdatedAt,
	)
	if err != nil {
		// Check for unique constraint violation (PostgreSQL error code 23505)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to create material: %w", err)
	}

	return nil
}

// Get retrieves a material by ID.
func (r *materialRepository) Get(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, workspace_id, name, type, color, properties, textures, created_by, created_at, updated_at
		FROM materials
		WHERE id = $1`

	material, err := scanMaterial(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get material: %w", err)
	}

	return material, nil
}

// ListByWorkspace returns the workspace's material library, by name.
func (r *materialRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]*models.Material, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, workspace_id, name, type, color, properties, textures, created_by, created_at, updated_at
		FROM materials
		WHERE workspace_id = $1
		ORDER BY name`

	rows, err := scope.Conn.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	var materials []*models.Material
	for rows.Next() {
		material, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, material)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating materials: %w", err)
	}

	return materials, nil
}

// Update writes the material's mutable fields.
func (r *materialRepository) Update(ctx context.Context, material *models.Material) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	material.UpdatedAt = time.Now().UTC()

	properties, textures, err := marshalMaterialSpec(&material.MaterialSpec)
	if err != nil {
		return err
	}

	query := `
		UPDATE materials
		SET name = $2, type = $3, color = $4, properties = $5, textures = $6, updated_at = $7
		WHERE id = $1`

	result, err := scope.Conn.Exec(ctx, query,
		material.ID,
		material.Name,
		material.Type,
		material.Color,
		properties,
		textures,
		material.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to update material: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a material by ID.
func (r *materialRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	result, err := scope.Conn.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// marshalMaterialSpec serializes the spec's property and texture maps for
// JSONB columns. Nil maps are stored as empty objects.
func marshalMaterialSpec(spec *models.MaterialSpec) ([]byte, []byte, error) {
	properties := []byte("{}")
	if spec.Properties != nil {
		var err error
		properties, err = json.Marshal(spec.Properties)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal properties: %w", err)
		}
	}

	textures := []byte("{}")
	if spec.Textures != nil {
		var err error
		textures, err = json.Marshal(spec.Textures)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal textures: %w", err)
		}
	}

	return properties, textures, nil
}

func scanMaterial(row pgx.Row) (*models.Material, error) {
	var m models.Material
	var properties, textures []byte

	err := row.Scan(
		&m.ID,
		&m.WorkspaceID,
		&m.Name,
		&m.Type,
		&m.Color,
		&properties,
		&textures,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan material: %w", err)
	}

	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &m.Properties); err != nil {
			return nil, fmt.Errorf("failed to unmarshal properties: %w", err)
		}
	}

	if len(textures) > 0 {
		if err := json.Unmarshal(textures, &m.Textures); err != nil {
			return nil, fmt.Errorf("failed to unmarshal textures: %w", err)
		}
	}

	return &m, nil
}

// Ensure materialRepository implements MaterialRepository at compile time.
var _ MaterialRepository = (*materialRepository)(nil)
