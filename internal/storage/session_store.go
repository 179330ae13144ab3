package storage

import (
	"context"
	"errors"

	"github.com/stepflow/stepflow/internal/tool"
	"github.com/stepflow/stepflow/pkg/core"
)

// SessionStore implements core.SessionStore and tool.TodoStore over the
// flock-guarded file-based Storage: one JSON file per session snapshot
// under "session/<id>", one per session's todo list under "todo/<id>".
// Grounded on the teacher's internal/storage.Storage path-keyed layout,
// generalized from opencode's session/message/part path scheme to the
// engine's single-document SessionSnapshot.
type SessionStore struct {
	storage *Storage
}

// NewSessionStore creates a SessionStore rooted at basePath.
func NewSessionStore(basePath string) *SessionStore {
	return &SessionStore{storage: New(basePath)}
}

// Get implements core.SessionStore.
func (s *SessionStore) Get(ctx context.Context, id string) (core.SessionSnapshot, error) {
	var snap core.SessionSnapshot
	err := s.storage.Get(ctx, []string{"session", id}, &snap)
	if errors.Is(err, ErrNotFound) {
		return core.SessionSnapshot{}, core.NewError(core.KindSessionNotFound, "session not found: %s", id)
	}
	if err != nil {
		return core.SessionSnapshot{}, core.Wrap(core.KindSessionLoadFailed, err, "loading session %s", id)
	}
	return snap, nil
}

// Put implements core.SessionStore.
func (s *SessionStore) Put(ctx context.Context, snap core.SessionSnapshot) error {
	if err := s.storage.Put(ctx, []string{"session", snap.ID}, snap); err != nil {
		return core.Wrap(core.KindSessionSaveFailed, err, "saving session %s", snap.ID)
	}
	return nil
}

// Delete implements core.SessionStore.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.storage.Delete(ctx, []string{"session", id})
}

// Exists implements core.SessionStore.
func (s *SessionStore) Exists(ctx context.Context, id string) (bool, error) {
	return s.storage.Exists(ctx, []string{"session", id}), nil
}

// List implements core.SessionStore.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	return s.storage.List(ctx, []string{"session"})
}

// todoDoc is the on-disk shape for a session's todo list.
type todoDoc struct {
	Todos []tool.TodoItem `json:"todos"`
}

// PutTodos implements tool.TodoStore.
func (s *SessionStore) PutTodos(ctx context.Context, sessionID string, todos []tool.TodoItem) error {
	return s.storage.Put(ctx, []string{"todo", sessionID}, todoDoc{Todos: todos})
}

// GetTodos implements tool.TodoStore.
func (s *SessionStore) GetTodos(ctx context.Context, sessionID string) ([]tool.TodoItem, error) {
	var doc todoDoc
	err := s.storage.Get(ctx, []string{"todo", sessionID}, &doc)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.Todos, nil
}
