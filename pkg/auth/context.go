package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/myschoolstory/collab-3d/pkg/apperrors"
)

// CurrentUserID extracts the caller's user ID from JWT claims in the context.
// Returns uuid.Nil for anonymous requests or malformed subjects. Services
// treat uuid.Nil as "unauthenticated": reads degrade to public-only results,
// writes fail.
func CurrentUserID(ctx context.Context) uuid.UUID {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil || claims.Subject == "" {
		return uuid.Nil
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil
	}
	return userID
}

// RequireUserID extracts the caller's user ID and fails with
// ErrUnauthenticated when absent. Use on operations that have no anonymous
// mode at all.
func RequireUserID(ctx context.Context) (uuid.UUID, error) {
	userID := CurrentUserID(ctx)
	if userID == uuid.Nil {
		return uuid.Nil, apperrors.ErrUnauthenticated
	}
	return userID, nil
}
