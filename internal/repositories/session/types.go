package session

import (
	"errors"

	"github.com/KirkDiggler/rollroom/internal/models"
)

// ErrSessionNotFound is returned when a session is not stored
var ErrSessionNotFound = errors.New("session not found")

type SaveSessionInput struct {
	Session *models.Session
}

type GetSessionInput struct {
	SessionID string
}

type SessionExistsInput struct {
	SessionID string
}

type DeleteSessionInput struct {
	SessionID string
}

type ListSessionsInput struct {
}

type ListSessionsOutput struct {
	SessionIDs []string
}
