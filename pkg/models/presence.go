package models

import (
	"time"

	"github.com/google/uuid"
)

// PresenceSession is a per-user, per-project liveness record. Sessions live in
// Redis under a TTL and expire on their own when heartbeats stop; they are
// never persisted.
type PresenceSession struct {
	ProjectID uuid.UUID `json:"projectId"`
	UserID    uuid.UUID `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	Cursor    *Vec3     `json:"cursor,omitempty"`
	Active    bool      `json:"active"`
	LastSeen  time.Time `json:"lastSeen"`
}
