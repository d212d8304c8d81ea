//go:build integration

package migrations

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myschoolstory/collab-3d/pkg/testhelpers"
)

// Test_Schema_WorkspaceMembers verifies the membership table keys on
// (workspace_id, user_id) and carries the role column authorization reads.
func Test_Schema_WorkspaceMembers(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	var constraintType string
	err := testDB.DB.Pool.QueryRow(ctx, `
		SELECT tc.constraint_type
		FROM information_schema.table_constraints tc
		WHERE tc.table_name = 'workspace_members'
		AND tc.constraint_type = 'PRIMARY KEY'
	`).Scan(&constraintType)

	require.NoError(t, err, "Failed to query primary key information")
	assert.Equal(t, "PRIMARY KEY", constraintType)

	// One membership row per (workspace, user): inserting a duplicate fails
	wsID := uuid.New()
	userID := uuid.New()
	defer func() {
		_, _ = testDB.DB.Pool.Exec(ctx, "DELETE FROM workspace_members WHERE workspace_id = $1", wsID)
	}()

	_, err = testDB.DB.Pool.Exec(ctx,
		"INSERT INTO workspace_members (workspace_id, user_id, role) VALUES ($1, $2, 'owner')",
		wsID, userID)
	require.NoError(t, err)

	_, err = testDB.DB.Pool.Exec(ctx,
		"INSERT INTO workspace_members (workspace_id, user_id, role) VALUES ($1, $2, 'viewer')",
		wsID, userID)
	assert.Error(t, err, "duplicate membership should violate the primary key")

	var indexExists bool
	err = testDB.DB.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE tablename = 'workspace_members'
			AND indexname = 'idx_workspace_members_user'
		)
	`).Scan(&indexExists)

	require.NoError(t, err, "Failed to query index information")
	assert.True(t, indexExists, "idx_workspace_members_user index should exist")
}

// Test_Schema_SceneModels verifies the scene graph table stores JSONB
// component columns and has no foreign key on parent_id, so deleting a
// parent can leave children orphaned rather than cascading.
func Test_Schema_SceneModels(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	for _, col := range []string{"transform", "geometry", "material"} {
		var dataType string
		err := testDB.DB.Pool.QueryRow(ctx, `
			SELECT data_type
			FROM information_schema.columns
			WHERE table_name = 'scene_models'
			AND column_name = $1
		`, col).Scan(&dataType)

		require.NoError(t, err, "Failed to query column %s", col)
		assert.Equal(t, "jsonb", dataType, "%s column should be JSONB type", col)
	}

	var fkCount int
	err := testDB.DB.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.table_constraints
		WHERE table_name = 'scene_models'
		AND constraint_type = 'FOREIGN KEY'
	`).Scan(&fkCount)

	require.NoError(t, err, "Failed to query constraint information")
	assert.Equal(t, 0, fkCount, "scene_models should carry no foreign keys")

	// Rows with a parent_id pointing at a deleted model must be insertable
	projectID := uuid.New()
	danglingParent := uuid.New()
	defer func() {
		_, _ = testDB.DB.Pool.Exec(ctx, "DELETE FROM scene_models WHERE project_id = $1", projectID)
	}()

	_, err = testDB.DB.Pool.Exec(ctx, `
		INSERT INTO scene_models (id, project_id, name, type, transform, parent_id, created_by, last_modified_by)
		VALUES ($1, $2, 'Orphan', 'mesh', '{}'::jsonb, $3, $4, $4)
	`, uuid.New(), projectID, danglingParent, uuid.New())
	assert.NoError(t, err, "dangling parent_id should be tolerated")
}

// Test_Schema_Materials verifies material names are unique per workspace
// but reusable across workspaces.
func Test_Schema_Materials(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	wsA := uuid.New()
	wsB := uuid.New()
	creator := uuid.New()
	defer func() {
		_, _ = testDB.DB.Pool.Exec(ctx, "DELETE FROM materials WHERE workspace_id IN ($1, $2)", wsA, wsB)
	}()

	insert := func(ws uuid.UUID) error {
		_, err := testDB.DB.Pool.Exec(ctx, `
			INSERT INTO materials (id, workspace_id, name, type, created_by)
			VALUES ($1, $2, 'Brushed Steel', 'pbr', $3)
		`, uuid.New(), ws, creator)
		return err
	}

	require.NoError(t, insert(wsA))
	assert.Error(t, insert(wsA), "duplicate name in the same workspace should be rejected")
	assert.NoError(t, insert(wsB), "same name in another workspace should be allowed")
}

// Test_Schema_ProjectVersions verifies version numbers are unique per project
// so concurrent snapshot saves cannot both claim the same number.
func Test_Schema_ProjectVersions(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	projectID := uuid.New()
	creator := uuid.New()
	defer func() {
		_, _ = testDB.DB.Pool.Exec(ctx, "DELETE FROM project_versions WHERE project_id = $1", projectID)
	}()

	insert := func(version int) error {
		_, err := testDB.DB.Pool.Exec(ctx, `
			INSERT INTO project_versions (id, project_id, version, data, created_by)
			VALUES ($1, $2, $3, '{}'::jsonb, $4)
		`, uuid.New(), projectID, version, creator)
		return err
	}

	require.NoError(t, insert(1))
	require.NoError(t, insert(2))
	assert.Error(t, insert(2), "duplicate version number should violate the unique constraint")
}
