// Package models contains domain types for the scene service.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Workspace is the tenant boundary owning projects, members, and the material
// library.
type Workspace struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     uuid.UUID `json:"ownerId"`
	IsPublic    bool      `json:"isPublic"`
	Settings    JSONBMap  `json:"settings"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// WorkspaceMember maps (workspace, user) to a role. At most one row exists per
// pair; the store enforces this with a composite primary key.
type WorkspaceMember struct {
	WorkspaceID uuid.UUID  `json:"workspaceId"`
	UserID      uuid.UUID  `json:"userId"`
	Role        string     `json:"role"`
	InvitedBy   *uuid.UUID `json:"invitedBy,omitempty"`
	JoinedAt    time.Time  `json:"joinedAt"`
}

// WorkspaceWithRole pairs a workspace with the caller's effective role on it.
type WorkspaceWithRole struct {
	Workspace
	Role string `json:"role"`
}

// MemberProfile joins a membership row with the member's user profile.
type MemberProfile struct {
	WorkspaceMember
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Workspace membership roles, strongest first.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// ValidRoles contains all valid membership role values.
var ValidRoles = []string{RoleOwner, RoleAdmin, RoleEditor, RoleViewer}

// IsValidRole checks if the given role is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// JSONBMap is a map type that handles PostgreSQL JSONB serialization.
type JSONBMap map[string]interface{}

// Value implements driver.Valuer for database serialization.
func (j JSONBMap) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for database deserialization.
func (j *JSONBMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONBMap", value)
	}

	return json.Unmarshal(bytes, j)
}
