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

// WorkspaceRepository defines the interface for workspace and membership
// data access.
type WorkspaceRepository interface {
	// CreateWithOwner inserts the workspace and the creator's owner
	// membership in one transaction, so an ownerless workspace is never
	// observable.
	CreateWithOwner(ctx context.Context, workspace *models.Workspace) error
	Get(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	Update(ctx context.Context, workspace *models.Workspace) error
	// ListForUser returns the workspaces the user belongs to, paired with
	// their role, newest first. Memberships whose workspace row is gone
	// are dropped by the join.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.WorkspaceWithRole, error)

	GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceMember, error)
	// ListMembers returns memberships joined with user profiles. Members
	// whose user row is missing are dropped.
	ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*models.MemberProfile, error)
	// AddMember inserts a membership. Returns ErrConflict if the user is
	// already a member.
	AddMember(ctx context.Context, member *models.WorkspaceMember) error
	// UpdateMemberRole atomically updates a member's role, returning
	// ErrLastOwner when demoting the workspace's only owner.
	UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, newRole string) error
	// RemoveMember atomically removes a member, returning ErrLastOwner
	// when removing the workspace's only owner.
	RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error
}

// workspaceRepository implements WorkspaceRepository using PostgreSQL.
type workspaceRepository struct{}

// NewWorkspaceRepository creates a new workspace repository.
func NewWorkspaceRepository() WorkspaceRepository {
	return &workspaceRepository{}
}

// CreateWithOwner inserts the workspace plus the creator's owner membership.
func (r *workspaceRepository) CreateWithOwner(ctx context.Context, workspace *models.Workspace) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	if workspace.ID == uuid.Nil {
		workspace.ID = uuid.New()
	}

	now := time.Now().UTC()
	workspace.CreatedAt = now
	workspace.UpdatedAt = now

	settingsValue, err := workspace.Settings.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	workspaceQuery := `
		INSERT INTO workspaces (id, name, description, owner_id, is_public, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = tx.Exec(ctx, workspaceQuery,
		workspace.ID,
		workspace.Name,
		workspace.Description,
		workspace.OwnerID,
		workspace.IsPublic,
		settingsValue,
		workspace.CreatedAt,
		workspace.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	memberQuery := `
		INSERT INTO workspace_members (workspace_id, user_id, role, invited_by, joined_at)
		VALUES ($1, $2, $3, NULL, $4)`

	_, err = tx.Exec(ctx, memberQuery, workspace.ID, workspace.OwnerID, models.RoleOwner, now)
	if err != nil {
		return fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Get retrieves a workspace by ID.
func (r *workspaceRepository) Get(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT id, name, description, owner_id, is_public, settings, created_at, updated_at
		FROM workspaces
		WHERE id = $1`

	var workspace models.Workspace
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&workspace.ID,
		&workspace.Name,
		&workspace.Description,
		&workspace.OwnerID,
		&workspace.IsPublic,
		&workspace.Settings,
		&workspace.CreatedAt,
		&workspace.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	return &workspace, nil
}

// Update writes the workspace's mutable fields. The service layer is
// responsible for merging a patch into a loaded row first.
func (r *workspaceRepository) Update(ctx context.Context, workspace *models.Workspace) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	workspace.UpdatedAt = time.Now().UTC()

	settingsValue, err := workspace.Settings.Value()
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		UPDATE workspaces
		SET name = $2, description = $3, is_public = $4, settings = $5, updated_at = $6
		WHERE id = $1`

	result, err := scope.Conn.Exec(ctx, query,
		workspace.ID,
		workspace.Name,
		workspace.Description,
		workspace.IsPublic,
		settingsValue,
		workspace.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// ListForUser returns the caller's workspaces with their membership role.
func (r *workspaceRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.WorkspaceWithRole, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	// Inner join doubles as the defensive filter: a membership pointing at
	// a deleted workspace produces no row.
	query := `
		SELECT w.id, w.name, w.description, w.owner_id, w.is_public, w.settings, w.created_at, w.updated_at, m.role
		FROM workspace_members m
		JOIN workspaces w ON w.id = m.workspace_id
		WHERE m.user_id = $1
		ORDER BY w.created_at DESC`

	rows, err := scope.Conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []*models.WorkspaceWithRole
	for rows.Next() {
		var ws models.WorkspaceWithRole
		err := rows.Scan(
			&ws.ID,
			&ws.Name,
			&ws.Description,
			&ws.OwnerID,
			&ws.IsPublic,
			&ws.Settings,
			&ws.CreatedAt,
			&ws.UpdatedAt,
			&ws.Role,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, &ws)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workspaces: %w", err)
	}

	return workspaces, nil
}

// GetMember retrieves the membership row for a (workspace, user) pair.
func (r *workspaceRepository) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*models.WorkspaceMember, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	query := `
		SELECT workspace_id, user_id, role, invited_by, joined_at
		FROM workspace_members
		WHERE workspace_id = $1 AND user_id = $2`

	var member models.WorkspaceMember
	err := scope.Conn.QueryRow(ctx, query, workspaceID, userID).Scan(
		&member.WorkspaceID,
		&member.UserID,
		&member.Role,
		&member.InvitedBy,
		&member.JoinedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return &member, nil
}

// ListMembers returns all members of a workspace with their user profiles.
func (r *workspaceRepository) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]*models.MemberProfile, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	// Inner join drops members whose user row is missing.
	query := `
		SELECT m.workspace_id, m.user_id, m.role, m.invited_by, m.joined_at, u.email, u.name
		FROM workspace_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		ORDER BY m.joined_at`

	rows, err := scope.Conn.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.MemberProfile
	for rows.Next() {
		var member models.MemberProfile
		err := rows.Scan(
			&member.WorkspaceID,
			&member.UserID,
			&member.Role,
			&member.InvitedBy,
			&member.JoinedAt,
			&member.Email,
			&member.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// AddMember inserts a membership row.
func (r *workspaceRepository) AddMember(ctx context.Context, member *models.WorkspaceMember) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	member.JoinedAt = time.Now().UTC()

	query := `
		INSERT INTO workspace_members (workspace_id, user_id, role, invited_by, joined_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := scope.Conn.Exec(ctx, query,
		member.WorkspaceID,
		member.UserID,
		member.Role,
		member.InvitedBy,
		member.JoinedAt,
	)
	if err != nil {
		// Check for unique constraint violation (PostgreSQL error code 23505)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

// UpdateMemberRole atomically updates a member's role, refusing to demote
// the last owner.
func (r *workspaceRepository) UpdateMemberRole(ctx context.Context, workspaceID, userID uuid.UUID, newRole string) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	var currentRole string
	getQuery := `SELECT role FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`
	err = tx.QueryRow(ctx, getQuery, workspaceID, userID).Scan(&currentRole)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to get member: %w", err)
	}

	if currentRole == models.RoleOwner && newRole != models.RoleOwner {
		var ownerCount int
		countQuery := `SELECT COUNT(*) FROM workspace_members WHERE workspace_id = $1 AND role = 'owner'`
		err = tx.QueryRow(ctx, countQuery, workspaceID).Scan(&ownerCount)
		if err != nil {
			return fmt.Errorf("failed to count owners: %w", err)
		}

		if ownerCount <= 1 {
			return apperrors.ErrLastOwner
		}
	}

	updateQuery := `UPDATE workspace_members SET role = $1 WHERE workspace_id = $2 AND user_id = $3`
	result, err := tx.Exec(ctx, updateQuery, newRole, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RemoveMember atomically removes a member, refusing to remove the last
// owner.
func (r *workspaceRepository) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback on defer is best-effort

	var role string
	getQuery := `SELECT role FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`
	err = tx.QueryRow(ctx, getQuery, workspaceID, userID).Scan(&role)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to get member: %w", err)
	}

	if role == models.RoleOwner {
		var ownerCount int
		countQuery := `SELECT COUNT(*) FROM workspace_members WHERE workspace_id = $1 AND role = 'owner'`
		err = tx.QueryRow(ctx, countQuery, workspaceID).Scan(&ownerCount)
		if err != nil {
			return fmt.Errorf("failed to count owners: %w", err)
		}

		if ownerCount <= 1 {
			return apperrors.ErrLastOwner
		}
	}

	deleteQuery := `DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`
	result, err := tx.Exec(ctx, deleteQuery, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Ensure workspaceRepository implements WorkspaceRepository at compile time.
var _ WorkspaceRepository = (*workspaceRepository)(nil)
