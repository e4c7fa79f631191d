package session

import (
	"time"

	"github.com/KirkDiggler/rollroom/internal/common/clock"
	"github.com/KirkDiggler/rollroom/internal/common/code"
	"github.com/KirkDiggler/rollroom/internal/dice"
	"github.com/KirkDiggler/rollroom/internal/models"
	sessionRepo "github.com/KirkDiggler/rollroom/internal/repositories/session"
	"go.uber.org/zap"
)

const (
	// DefaultDiceSides is the die every session rolls
	DefaultDiceSides = 6

	// DefaultMaxIDAttempts bounds session ID regeneration on collision
	DefaultMaxIDAttempts = 16
)

// Config holds configuration for the session service
type Config struct {
	// Number of sides on the dice
	DiceSides int

	// Maximum number of session IDs tried before giving up
	MaxIDAttempts int

	// Repository dependencies
	Repository sessionRepo.Repository

	// Service dependencies
	DiceRoller  dice.Roller
	Clock       clock.Clock
	IDGenerator code.Generator
	Logger      *zap.Logger
}

// CreateSessionInput contains parameters for creating a new session
type CreateSessionInput struct {
	// HostID is the connection ID of the participant creating the session
	HostID string

	// Nickname is the display name of the host
	Nickname string

	// Avatar is the avatar chosen by the host
	Avatar string
}

// CreateSessionOutput contains the result of creating a new session
type CreateSessionOutput struct {
	// SessionID is the short token for the new session
	SessionID string

	// State is the initial session snapshot
	State *models.SessionState
}

// JoinSessionInput contains parameters for joining a session
type JoinSessionInput struct {
	SessionID     string
	ParticipantID string
	Nickname      string
	Avatar        string
}

// JoinSessionOutput contains the result of joining a session
type JoinSessionOutput struct {
	State *models.SessionState

	// AlreadyJoined is true when the participant was already in the session
	AlreadyJoined bool
}

// AcceptParticipantInput contains parameters for accepting a waiting participant
type AcceptParticipantInput struct {
	SessionID     string
	ParticipantID string

	// RequesterID must be the session host
	RequesterID string
}

// AcceptParticipantOutput contains the result of accepting a participant
type AcceptParticipantOutput struct {
	State *models.SessionState
}

// AcceptAllParticipantsInput contains parameters for accepting the whole waiting room
type AcceptAllParticipantsInput struct {
	SessionID   string
	RequesterID string
}

// AcceptAllParticipantsOutput contains the result of accepting the waiting room
type AcceptAllParticipantsOutput struct {
	State *models.SessionState

	// Accepted is the number of participants moved out of the waiting room
	Accepted int
}

// RollDiceInput contains parameters for rolling dice
type RollDiceInput struct {
	SessionID string
	RollerID  string
}

// RollDiceOutput contains the result of rolling dice
type RollDiceOutput struct {
	Roll  *models.DiceRoll
	State *models.SessionState
}

// ResetCounterInput contains parameters for resetting the counters
type ResetCounterInput struct {
	SessionID   string
	RequesterID string
}

// ResetCounterOutput contains the result of resetting the counters
type ResetCounterOutput struct {
	State *models.SessionState
}

// RemoveParticipantInput contains parameters for removing a participant
type RemoveParticipantInput struct {
	SessionID     string
	ParticipantID string
}

// RemoveParticipantOutput contains the result of removing a participant
type RemoveParticipantOutput struct {
	// State is nil when the session no longer exists
	State *models.SessionState

	// Removed is true when the participant was found in the session
	Removed bool

	// SessionDeleted is true when this removal deleted the session
	SessionDeleted bool
}

type GetSessionStateInput struct {
	SessionID string
}

type GetSessionStateOutput struct {
	State *models.SessionState
}

type SessionExistsInput struct {
	SessionID string
}

type SessionExistsOutput struct {
	Exists bool
}

type ListSessionsInput struct {
}

type ListSessionsOutput struct {
	SessionIDs []string
}

// SweepExpiredInput contains parameters for the age-based sweep
type SweepExpiredInput struct {
	// MaxAge is how long a session may live regardless of occupancy
	MaxAge time.Duration
}

// SweepExpiredOutput contains the result of the sweep
type SweepExpiredOutput struct {
	DeletedSessionIDs []string
}
