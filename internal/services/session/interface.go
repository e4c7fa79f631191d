package session

import "context"

//go:generate mockgen -package=mocks -destination=mocks/mock_service.go github.com/KirkDiggler/rollroom/internal/services/session Service

// Service owns every dice session and enforces the rules for changing them
type Service interface {
	// CreateSession starts a new session hosted by the caller
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)

	// JoinSession places a participant in the waiting room of a session
	JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error)

	// AcceptParticipant moves one waiting participant into the session
	AcceptParticipant(ctx context.Context, input *AcceptParticipantInput) (*AcceptParticipantOutput, error)

	// AcceptAllParticipants moves every waiting participant into the session
	AcceptAllParticipants(ctx context.Context, input *AcceptAllParticipantsInput) (*AcceptAllParticipantsOutput, error)

	// RollDice rolls a die for an accepted participant
	RollDice(ctx context.Context, input *RollDiceInput) (*RollDiceOutput, error)

	// ResetCounter clears the roll history and every counter
	ResetCounter(ctx context.Context, input *ResetCounterInput) (*ResetCounterOutput, error)

	// RemoveParticipant drops a participant, deleting the session once nobody accepted is left
	RemoveParticipant(ctx context.Context, input *RemoveParticipantInput) (*RemoveParticipantOutput, error)

	// GetSessionState returns a snapshot of a session
	GetSessionState(ctx context.Context, input *GetSessionStateInput) (*GetSessionStateOutput, error)

	// SessionExists reports whether a session is live
	SessionExists(ctx context.Context, input *SessionExistsInput) (*SessionExistsOutput, error)

	// ListSessions returns the IDs of every live session
	ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error)

	// SweepExpired deletes sessions older than the given age
	SweepExpired(ctx context.Context, input *SweepExpiredInput) (*SweepExpiredOutput, error)
}
