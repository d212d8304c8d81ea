package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Project is a single 3D scene scoped to one workspace.
// LastModified/LastModifiedBy are stamped on every mutation of the project or
// any of its models; model writes roll their modification up to the project.
type Project struct {
	ID             uuid.UUID       `json:"id"`
	WorkspaceID    uuid.UUID       `json:"workspaceId"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	CreatedBy      uuid.UUID       `json:"createdBy"`
	IsPublic       bool            `json:"isPublic"`
	Thumbnail      string          `json:"thumbnail,omitempty"`
	Settings       ProjectSettings `json:"settings"`
	LastModified   time.Time       `json:"lastModified"`
	LastModifiedBy uuid.UUID       `json:"lastModifiedBy"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ProjectSettings groups the two independently patchable settings objects.
// A settings patch replaces a provided group wholesale and leaves the other
// untouched; individual leaf fields are never merged.
type ProjectSettings struct {
	Render RenderSettings `json:"renderSettings"`
	Grid   GridSettings   `json:"gridSettings"`
}

// RenderSettings controls viewport rendering for a project.
type RenderSettings struct {
	Quality  string `json:"quality"`
	Lighting string `json:"lighting"`
	Shadows  bool   `json:"shadows"`
}

// GridSettings controls the editor ground grid for a project.
type GridSettings struct {
	Visible   bool    `json:"visible"`
	Size      float64 `json:"size"`
	Divisions int     `json:"divisions"`
}

// DefaultRenderSettings returns the render settings applied to new projects.
func DefaultRenderSettings() RenderSettings {
	return RenderSettings{
		Quality:  "medium",
		Lighting: "studio",
		Shadows:  true,
	}
}

// DefaultGridSettings returns the grid settings applied to new projects.
func DefaultGridSettings() GridSettings {
	return GridSettings{
		Visible:   true,
		Size:      10,
		Divisions: 10,
	}
}

// DefaultProjectSettings returns the settings applied to new projects.
func DefaultProjectSettings() ProjectSettings {
	return ProjectSettings{
		Render: DefaultRenderSettings(),
		Grid:   DefaultGridSettings(),
	}
}

// Value implements driver.Valuer for database serialization.
func (s RenderSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for database deserialization.
func (s *RenderSettings) Scan(value interface{}) error {
	if value == nil {
		*s = DefaultRenderSettings()
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into RenderSettings", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements driver.Valuer for database serialization.
func (s GridSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for database deserialization.
func (s *GridSettings) Scan(value interface{}) error {
	if value == nil {
		*s = DefaultGridSettings()
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into GridSettings", value)
	}
	return json.Unmarshal(bytes, s)
}
