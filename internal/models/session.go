package models

import (
	"time"
)

// SessionState is the shared state broadcast to every participant of a session
type SessionState struct {
	// SessionID is the short token participants type to join
	SessionID string `json:"sessionId"`

	// Participants are the accepted participants in join order
	Participants []*Participant `json:"participants"`

	// WaitingParticipants are participants waiting for the host to accept them
	WaitingParticipants []*Participant `json:"waitingParticipants"`

	// RollHistory contains every roll since the last reset, oldest first
	RollHistory []*DiceRoll `json:"rollHistory"`

	// TotalRollCount is the number of rolls since the last reset
	TotalRollCount int `json:"totalRollCount"`

	// Host is the ID of the participant who created the session
	Host string `json:"host"`
}

// Session is the stored record of a dice session
type Session struct {
	// State is the state shared with participants
	State *SessionState `json:"state"`

	// CreatedAt is when the session was created
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a deep copy of the session.
// Nil slices in the source come back as empty slices so snapshots always
// encode as JSON arrays.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	return &Session{
		State:     s.State.Clone(),
		CreatedAt: s.CreatedAt,
	}
}

// Clone returns a deep copy of the state
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}

	out := &SessionState{
		SessionID:           s.SessionID,
		Participants:        cloneParticipants(s.Participants),
		WaitingParticipants: cloneParticipants(s.WaitingParticipants),
		RollHistory:         make([]*DiceRoll, 0, len(s.RollHistory)),
		TotalRollCount:      s.TotalRollCount,
		Host:                s.Host,
	}
	for _, r := range s.RollHistory {
		roll := *r
		out.RollHistory = append(out.RollHistory, &roll)
	}

	return out
}

func cloneParticipants(in []*Participant) []*Participant {
	out := make([]*Participant, 0, len(in))
	for _, p := range in {
		participant := *p
		out = append(out, &participant)
	}
	return out
}
