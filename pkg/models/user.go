package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an identity record provisioned from the identity provider's claims.
// Authorization never reads User.Role; workspace membership roles are the sole
// permission signal for workspace-scoped resources.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
