package core

import (
	"context"
	"time"
)

// SessionSnapshot is the immutable, serializable capture of a session's
// transcript and metadata (spec.md §3, §6).
type SessionSnapshot struct {
	ID        string            `json:"id"`
	Transcript Transcript       `json:"transcript"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ParentID  string            `json:"parentSessionId,omitempty"`
}

// SessionStore is the abstract key-value persistence of snapshots. Concrete
// backends (in-memory, file-backed, database-backed) are external
// collaborators named only at this interface.
type SessionStore interface {
	Get(ctx context.Context, id string) (SessionSnapshot, error)
	Put(ctx context.Context, snap SessionSnapshot) error
	Delete(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]string, error)
}
