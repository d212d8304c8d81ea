package models

import (
	"time"

	"github.com/google/uuid"
)

// Material is a named, workspace-scoped, reusable material asset. Models that
// use it carry their own denormalized MaterialSpec copy; editing a library
// material never rewrites existing models.
type Material struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspaceId"`
	Name        string    `json:"name"`
	MaterialSpec
	CreatedBy uuid.UUID `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
