package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
	"github.com/myschoolstory/collab-3d/pkg/auth"
	"github.com/myschoolstory/collab-3d/pkg/models"
	"github.com/myschoolstory/collab-3d/pkg/repositories"
)

// DefaultPresenceTTL is how long a presence session survives without a
// heartbeat. Clients beat at a fraction of this, so one dropped heartbeat
// does not flicker the roster.
const DefaultPresenceTTL = 30 * time.Second

// PresenceService defines the interface for collaborative presence.
// Sessions live only in Redis under a TTL; a client that stops heartbeating
// disappears from the roster on its own, with no server-side reaper.
//
// Presence is optional infrastructure. With no Redis configured the service
// degrades: heartbeats are accepted and dropped, and every roster is empty.
type PresenceService interface {
	// Heartbeat refreshes the caller's session on the project, updating
	// the shared cursor position when one is sent. Any member role may
	// beat, including viewer.
	Heartbeat(ctx context.Context, projectID uuid.UUID, cursor *models.Vec3) error
	// List returns the project's live sessions under the project's read
	// policy.
	List(ctx context.Context, projectID uuid.UUID) ([]*models.PresenceSession, error)
}

// presenceService implements PresenceService.
type presenceService struct {
	redis       *redis.Client
	projectRepo repositories.ProjectRepository
	userRepo    repositories.UserRepository
	access      AccessService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewPresenceService creates a new presence service with dependencies.
// A nil Redis client disables presence. A non-positive ttl falls back to
// DefaultPresenceTTL.
func NewPresenceService(redisClient *redis.Client, projectRepo repositories.ProjectRepository, userRepo repositories.UserRepository, access AccessService, ttl time.Duration, logger *zap.Logger) PresenceService {
	if ttl <= 0 {
		ttl = DefaultPresenceTTL
	}
	if redisClient == nil {
		logger.Info("Presence disabled: Redis not configured")
	}
	return &presenceService{
		redis:       redisClient,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		access:      access,
		ttl:         ttl,
		logger:      logger,
	}
}

// presenceKey builds the Redis key for one user's session on one project.
func presenceKey(projectID, userID uuid.UUID) string {
	return fmt.Sprintf("presence:%s:%s", projectID, userID)
}

// Heartbeat writes the caller's session with a fresh TTL.
func (s *presenceService) Heartbeat(ctx context.Context, projectID uuid.UUID, cursor *models.Vec3) error {
	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		return err
	}

	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return err
	}

	if err := s.access.RequireRole(ctx, project.WorkspaceID, userID, "presence.heartbeat", AnyMember); err != nil {
		return err
	}

	if s.redis == nil {
		return nil
	}

	session := models.PresenceSession{
		ProjectID: projectID,
		UserID:    userID,
		Cursor:    cursor,
		Active:    true,
		LastSeen:  time.Now().UTC(),
	}
	if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
		session.UserName = user.Name
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal presence session: %w", err)
	}

	if err := s.redis.Set(ctx, presenceKey(projectID, userID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store presence session: %w", err)
	}

	return nil
}

// List scans the project's presence keys and decodes the live sessions.
// Sessions that expire between scan and fetch are skipped quietly.
func (s *presenceService) List(ctx context.Context, projectID uuid.UUID) ([]*models.PresenceSession, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return []*models.PresenceSession{}, nil
		}
		return nil, err
	}

	_, allowed, err := s.access.CanRead(ctx, project.WorkspaceID, auth.CurrentUserID(ctx), project.IsPublic)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return []*models.PresenceSession{}, nil
	}

	sessions := []*models.PresenceSession{}
	if s.redis == nil {
		return sessions, nil
	}

	pattern := fmt.Sprintf("presence:%s:*", projectID)
	iter := s.redis.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan presence keys: %w", err)
	}
	if len(keys) == 0 {
		return sessions, nil
	}

	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch presence sessions: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		var session models.PresenceSession
		if err := json.Unmarshal([]byte(raw), &session); err != nil {
			s.logger.Warn("Dropping undecodable presence session",
				zap.String("key", keys[i]),
				zap.Error(err))
			continue
		}
		sessions = append(sessions, &session)
	}

	return sessions, nil
}

// Ensure presenceService implements PresenceService at compile time.
var _ PresenceService = (*presenceService)(nil)
