//go:build integration

package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/models"
	"github.com/myschoolstory/collab-3d/pkg/testhelpers"
)

// userTestContext holds test dependencies for user repository tests.
type userTestContext struct {
	t      *testing.T
	testDB *testhelpers.TestDB
	repo   UserRepository
	userID uuid.UUID
}

func setupUserTest(t *testing.T) *userTestContext {
	tc := &userTestContext{
		t:      t,
		testDB: testhelpers.GetTestDB(t),
		repo:   NewUserRepository(),
		userID: uuid.New(),
	}

	t.Cleanup(func() {
		_, _ = tc.testDB.DB.Pool.Exec(context.Background(), "DELETE FROM users WHERE id = $1", tc.userID)
	})

	return tc
}

func TestUserRepository_Upsert_CreatesProfile(t *testing.T) {
	tc := setupUserTest(t)
	ctx := tc.testDB.ScopedContext(t)

	user := &models.User{
		ID:    tc.userID,
		Email: "ada@example.com",
		Name:  "Ada Lovelace",
	}
	if err := tc.repo.Upsert(ctx, user); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := tc.repo.GetByID(ctx, tc.userID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Errorf("expected email to persist, got %q", got.Email)
	}
	if got.Name != "Ada Lovelace" {
		t.Errorf("expected name to persist, got %q", got.Name)
	}
	if got.Role != "user" {
		t.Errorf("expected default role 'user', got %q", got.Role)
	}
}

func TestUserRepository_Upsert_RefreshesWithoutBlanking(t *testing.T) {
	tc := setupUserTest(t)
	ctx := tc.testDB.ScopedContext(t)

	if err := tc.repo.Upsert(ctx, &models.User{
		ID:    tc.userID,
		Email: "ada@example.com",
		Name:  "Ada Lovelace",
	}); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}

	// A later token may carry a new email but no name claim; the stored
	// name must survive.
	if err := tc.repo.Upsert(ctx, &models.User{
		ID:    tc.userID,
		Email: "ada@newdomain.example",
	}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	got, err := tc.repo.GetByID(ctx, tc.userID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Email != "ada@newdomain.example" {
		t.Errorf("expected refreshed email, got %q", got.Email)
	}
	if got.Name != "Ada Lovelace" {
		t.Errorf("expected name preserved across upsert, got %q", got.Name)
	}
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	tc := setupUserTest(t)
	ctx := tc.testDB.ScopedContext(t)

	_, err := tc.repo.GetByID(ctx, uuid.New())
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
