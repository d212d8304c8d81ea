package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProjectVersion is an immutable snapshot of a project's scene. Version
// numbers form a per-project sequence starting at 1.
type ProjectVersion struct {
	ID        uuid.UUID       `json:"id"`
	ProjectID uuid.UUID       `json:"projectId"`
	Version   int             `json:"version"`
	Data      ProjectSnapshot `json:"data"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	CreatedBy uuid.UUID       `json:"createdBy"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ProjectSnapshot is the serialized scene state captured by a version: the
// project's own editable fields plus every model in the scene at save time.
type ProjectSnapshot struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Settings    ProjectSettings `json:"settings"`
	Models      []SceneModel    `json:"models"`
}

// Value implements driver.Valuer for database serialization.
func (s ProjectSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for database deserialization.
func (s *ProjectSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = ProjectSnapshot{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into ProjectSnapshot", value)
	}
	return json.Unmarshal(bytes, s)
}
