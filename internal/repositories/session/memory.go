package session

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/KirkDiggler/rollroom/internal/models"
)

// memoryRepository keeps sessions in process memory
type memoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewMemory creates an in-memory session repository
func NewMemory() *memoryRepository {
	return &memoryRepository{
		sessions: make(map[string]*models.Session),
	}
}

// SaveSession stores a copy of the session
func (r *memoryRepository) SaveSession(ctx context.Context, input *SaveSessionInput) error {
	if input == nil || input.Session == nil || input.Session.State == nil {
		return errors.New("input and session cannot be nil")
	}
	if input.Session.State.SessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[input.Session.State.SessionID] = input.Session.Clone()
	return nil
}

// GetSession returns a copy of the stored session
func (r *memoryRepository) GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[input.SessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// SessionExists reports whether the session is stored
func (r *memoryRepository) SessionExists(ctx context.Context, input *SessionExistsInput) (bool, error) {
	if input == nil || input.SessionID == "" {
		return false, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[input.SessionID]
	return ok, nil
}

// DeleteSession removes the session, a missing session is not an error
func (r *memoryRepository) DeleteSession(ctx context.Context, input *DeleteSessionInput) error {
	if input == nil || input.SessionID == "" {
		return errors.New("input and session ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, input.SessionID)
	return nil
}

// ListSessions returns all stored session IDs in lexical order
func (r *memoryRepository) ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &ListSessionsOutput{
		SessionIDs: ids,
	}, nil
}
