package session

import "errors"

// Error is a custom error type for session-related errors
type Error string

// Error implements the error interface
func (e Error) Error() string {
	return string(e)
}

// Define errors
const (
	ErrSessionNotFound       Error = "session not found"
	ErrNotHost               Error = "only the host can do that"
	ErrParticipantNotWaiting Error = "participant is not in the waiting room"
	ErrNotAccepted           Error = "participant has not been accepted"
	ErrIDExhausted           Error = "could not generate a unique session ID"
	ErrInvalidMaxAge         Error = "max age must be positive"
	ErrNilConfig             Error = "config cannot be nil"
	ErrNilRepository         Error = "session repository cannot be nil"
	ErrNilDiceRoller         Error = "dice roller cannot be nil"
	ErrNilClock              Error = "clock cannot be nil"
	ErrNilIDGenerator        Error = "ID generator cannot be nil"
	ErrNilService            Error = "session service cannot be nil"
)

// Kind groups errors the way callers react to them
type Kind int

const (
	// KindInternal covers storage and other unexpected failures
	KindInternal Kind = iota

	// KindNotFound means the referenced session does not exist
	KindNotFound

	// KindUnauthorized means the operation is reserved for the host
	KindUnauthorized

	// KindInvalidState means the target is not where the operation expects it
	KindInvalidState
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidState:
		return "invalid_state"
	default:
		return "internal"
	}
}

// KindOf classifies err
func KindOf(err error) Kind {
	var sessErr Error
	if !errors.As(err, &sessErr) {
		return KindInternal
	}

	switch sessErr {
	case ErrSessionNotFound:
		return KindNotFound
	case ErrNotHost:
		return KindUnauthorized
	case ErrParticipantNotWaiting, ErrNotAccepted:
		return KindInvalidState
	default:
		return KindInternal
	}
}
