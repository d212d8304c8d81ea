package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/audit"
	"github.com/myschoolstory/collab-3d/pkg/models"
	"github.com/myschoolstory/collab-3d/pkg/repositories"
)

// RolePredicate decides whether a resolved membership role may perform an
// operation. Predicates receive the role string; an empty role means no
// membership and should always be rejected.
type RolePredicate func(role string) bool

// AnyMember admits every membership role, including viewer.
func AnyMember(role string) bool {
	return role != ""
}

// CanEdit admits members who may mutate scene content: every role except
// viewer.
func CanEdit(role string) bool {
	return role != "" && role != models.RoleViewer
}

// CanAdminister admits workspace administration: owner and admin.
func CanAdminister(role string) bool {
	return role == models.RoleOwner || role == models.RoleAdmin
}

// AccessService resolves workspace membership into permissions. All
// workspace-scoped authorization flows through here; resource ownership is
// never consulted.
//
// Reads and writes fail differently. RequireRole guards writes and returns
// typed errors for the handler to map. CanRead guards reads and returns a
// plain verdict, so read paths can degrade to a 404 or an empty list without
// revealing that the resource exists.
type AccessService interface {
	// ResolveRole returns the user's membership role in the workspace, or
	// "" when no membership exists. Absence is not an error.
	ResolveRole(ctx context.Context, workspaceID, userID uuid.UUID) (string, error)

	// RequireRole enforces the write policy: the user must be
	// authenticated, be a member, and hold a role the predicate admits.
	// Denials are recorded in the security audit log under the given
	// operation name.
	RequireRole(ctx context.Context, workspaceID, userID uuid.UUID, operation string, allowed RolePredicate) error

	// CanRead reports whether the user may read resources in the
	// workspace, and under which effective role. Members read with their
	// membership role; non-members (including anonymous users) read
	// public resources as viewer.
	CanRead(ctx context.Context, workspaceID, userID uuid.UUID, resourcePublic bool) (string, bool, error)
}

// accessService implements AccessService.
type accessService struct {
	workspaceRepo repositories.WorkspaceRepository
	auditor       *audit.SecurityAuditor
	logger        *zap.Logger
}

// NewAccessService creates a new access service with dependencies.
func NewAccessService(workspaceRepo repositories.WorkspaceRepository, auditor *audit.SecurityAuditor, logger *zap.Logger) AccessService {
	return &accessService{
		workspaceRepo: workspaceRepo,
		auditor:       auditor,
		logger:        logger,
	}
}

// ResolveRole looks up the user's membership. A missing membership resolves
// to the empty role rather than an error, so callers can branch on role
// without unwrapping.
func (s *accessService) ResolveRole(ctx context.Context, workspaceID, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", nil
	}

	member, err := s.workspaceRepo.GetMember(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to resolve role: %w", err)
	}

	return member.Role, nil
}

// RequireRole enforces the write-side policy. Authentication is checked
// before membership so an anonymous caller always gets ErrUnauthenticated,
// never a membership probe.
func (s *accessService) RequireRole(ctx context.Context, workspaceID, userID uuid.UUID, operation string, allowed RolePredicate) error {
	if userID == uuid.Nil {
		return apperrors.ErrUnauthenticated
	}

	role, err := s.ResolveRole(ctx, workspaceID, userID)
	if err != nil {
		return err
	}

	if !allowed(role) {
		s.auditor.LogPermissionDenied(ctx, workspaceID, operation, role)
		s.logger.Warn("Operation denied",
			zap.String("operation", operation),
			zap.String("workspace_id", workspaceID.String()),
			zap.String("user_id", userID.String()),
			zap.String("role", role))
		return apperrors.ErrPermissionDenied
	}

	return nil
}

// CanRead resolves the effective read role. Public resources are readable by
// anyone as viewer; membership roles take precedence so an owner reading a
// public resource still sees their owner role.
func (s *accessService) CanRead(ctx context.Context, workspaceID, userID uuid.UUID, resourcePublic bool) (string, bool, error) {
	role, err := s.ResolveRole(ctx, workspaceID, userID)
	if err != nil {
		return "", false, err
	}
	if role != "" {
		return role, true, nil
	}
	if resourcePublic {
		return models.RoleViewer, true, nil
	}
	return "", false, nil
}

// Ensure accessService implements AccessService at compile time.
var _ AccessService = (*accessService)(nil)
