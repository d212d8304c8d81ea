package repositories

import (
	"context"
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

// VersionRepository defines the interface for immutable project snapshots.
type VersionRepository interface {
	// Save allocates the next per-project version number and inserts the
	// snapshot in one transaction. Two concurrent saves of the same
	// project race for the same number; the loser gets ErrConflict and
	// can retry.
	Save(ctx context.Context, version *models.ProjectVersion) error
	// ListByProject returns version metadata newest first. The snapshot
	// blob is omitted from listings; fetch one with GetByNumber.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectVersion, error)
	GetByNumber(ctx context.Context, projectID uuid.UUID, number int) (*models.ProjectVersion, error)
}

// versionRepository implements VersionRepository using PostgreSQL.
type versionRepository struct{}

// NewVersionRepository creates a new version repository.
func NewVersionRepository() VersionRepository {
	return &versionRepository{}
}

// Save inserts a snapshot under the next version number.
func (r *versionRepository) Save(ctx context.Context, version *models.ProjectVersion) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if version.ID == uuid.Nil {
		version.ID = uuid.New()
	}
	version.CreatedAt = time.Now().UTC()

	dataValue, err := version.Data.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM project_versions WHERE project_id = $1`,
		version.ProjectID,
	).Scan(&version.Version)
	if err != nil {
		return fmt.Errorf("failed to allocate version number: %w", err)
	}

	query := `
		INSERT INTO project_versions (id, project_id, version, data, thumbnail, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = tx.Exec(ctx, query,
		version.ID,
		version.ProjectID,
		version.Version,
		dataValue,
		version.Thumbnail,
		version.CreatedBy,
		version.CreatedAt,
	)
	if err != nil {
		// Unique (project_id, version) lost a race with a concurrent save.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to save version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListByProject returns version metadata, newest first.
func (r *versionRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*models.ProjectVersion, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, project_id, version, thumbnail, created_by, created_at
		FROM project_versions
		WHERE project_id = $1
		ORDER BY version DESC`

	rows, err := scope.Conn.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.ProjectVersion
	for rows.Next() {
		var v models.ProjectVersion
		err := rows.Scan(
			&v.ID,
			&v.ProjectID,
			&v.Version,
			&v.Thumbnail,
			&v.CreatedBy,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}

	return versions, nil
}

// GetByNumber retrieves one snapshot, data included.
func (r *versionRepository) GetByNumber(ctx context.Context, projectID uuid.UUID, number int) (*models.ProjectVersion, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, project_id, version, data, thumbnail, created_by, created_at
		FROM project_versions
		WHERE project_id = $1 AND version = $2`

	var v models.ProjectVersion
	err := scope.Conn.QueryRow(ctx, query, projectID, number).Scan(
		&v.ID,
		&v.ProjectID,
		&v.Version,
		&v.Data,
		&v.Thumbnail,
		&v.CreatedBy,
		&v.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	return &v, nil
}

// Ensure versionRepository implements VersionRepository at compile time.
var _ VersionRepository = (*versionRepository)(nil)
