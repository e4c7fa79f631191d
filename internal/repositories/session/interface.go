package session

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/rollroom/internal/repositories/session Repository

import (
	"context"

	"github.com/KirkDiggler/rollroom/internal/models"
)

// Repository defines the interface for session storage
type Repository interface {
	// SaveSession persists a session, replacing any previous version
	SaveSession(ctx context.Context, input *SaveSessionInput) error

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error)

	// SessionExists reports whether a session is stored
	SessionExists(ctx context.Context, input *SessionExistsInput) (bool, error)

	// DeleteSession removes a session
	DeleteSession(ctx context.Context, input *DeleteSessionInput) error

	// ListSessions returns the IDs of every stored session
	ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error)
}
