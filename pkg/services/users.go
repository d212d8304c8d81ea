package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/models"
	"github.com/myschoolstory/collab-3d/pkg/repositories"
)

// UserService defines the interface for user identity operations. Identity
// lives with the external provider; this service only mirrors claims into a
// local row so memberships and audit records have something to join against.
type UserService interface {
	// Provision upserts the caller's user row from their token claims.
	// Safe to call on every login.
	Provision(ctx context.Context) (*models.User, error)
	// Me returns the caller's user row.
	Me(ctx context.Context) (*models.User, error)
}

// userService implements UserService.
type userService struct {
	userRepo repositories.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service with dependencies.
func NewUserService(userRepo repositories.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Provision mirrors the caller's claims into the users table. Empty claim
// fields never blank out values an earlier provision stored.
func (s *userService) Provision(ctx context.Context) (*models.User, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}

	user := &models.User{ID: userID}
	if claims, ok := auth.GetClaims(ctx); ok {
		user.Email = claims.Email
		user.Name = claims.Name
	}

	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Debug("Provisioned user", zap.String("user_id", userID.String()))

	return s.userRepo.GetByID(ctx, userID)
}

// Me returns the caller's stored profile.
func (s *userService) Me(ctx context.Context) (*models.User, error) {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// Ensure userService implements UserService at compile time.
var _ UserService = (*userService)(nil)
