package ws

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EventType names an event a connection can raise
type EventType string

// Inbound events
const (
	EventCreateSession         EventType = "create-session"
	EventJoinSession           EventType = "join-session"
	EventAcceptParticipant     EventType = "accept-participant"
	EventAcceptAllParticipants EventType = "accept-all-participants"
	EventRollDice              EventType = "roll-dice"
	EventResetCounter          EventType = "reset-counter"

	// EventDisconnect is raised by the transport when a connection goes away.
	// Clients cannot send it.
	EventDisconnect EventType = "disconnect"
)

// OutboundEvent names an event the server sends
type OutboundEvent string

// Outbound events
const (
	EventSessionCreated OutboundEvent = "session-created"
	EventSessionJoined  OutboundEvent = "session-joined"
	EventSessionState   OutboundEvent = "session-state"
	EventDiceRolled     OutboundEvent = "dice-rolled"
	EventError          OutboundEvent = "error"
)

// Error messages sent to the acting connection
const (
	MsgUnknownEvent          = "unknown event"
	MsgInvalidPayload        = "invalid payload"
	MsgNotInSession          = "not in a session"
	MsgFailedToCreate        = "failed to create session"
	MsgSessionNotFound       = "session not found"
	MsgFailedToJoin          = "failed to join session"
	MsgFailedToAccept        = "failed to accept participant"
	MsgFailedToAcceptAll     = "failed to accept participants"
	MsgInvalidSession        = "invalid session"
	MsgOnlyHostCanResetCount = "only host can reset counter"
)

// Envelope is the frame every inbound message arrives in
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outboundEnvelope is the frame every outbound message leaves in
type outboundEnvelope struct {
	Event OutboundEvent `json:"event"`
	Data  interface{}   `json:"data"`
}

// CreateSessionPayload is the data of create-session.
// A bare JSON string is accepted as the nickname for older clients.
type CreateSessionPayload struct {
	Nickname string `json:"nickname" validate:"required,max=20"`
	Avatar   string `json:"avatar" validate:"max=64"`
}

// UnmarshalJSON accepts either the object form or a bare nickname string
func (p *CreateSessionPayload) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.Nickname)
	}

	type plain CreateSessionPayload
	return json.Unmarshal(data, (*plain)(p))
}

// JoinSessionPayload is the data of join-session
type JoinSessionPayload struct {
	SessionID string `json:"sessionId" validate:"required,max=32"`
	Nickname  string `json:"nickname" validate:"required,max=20"`
	Avatar    string `json:"avatar" validate:"max=64"`
}

// AcceptParticipantPayload is the data of accept-participant: the participant id as a JSON string
type AcceptParticipantPayload struct {
	ParticipantID string `validate:"required,max=64"`
}

// UnmarshalJSON reads the participant id from a bare JSON string
func (p *AcceptParticipantPayload) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &p.ParticipantID)
}

var validate = validator.New()

var errEmptyPayload = errors.New("payload is empty")

// decodePayload unmarshals data into dst, trims its text fields and validates it
func decodePayload(data json.RawMessage, dst interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errEmptyPayload
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return err
	}

	switch p := dst.(type) {
	case *CreateSessionPayload:
		p.Nickname = strings.TrimSpace(p.Nickname)
		p.Avatar = strings.TrimSpace(p.Avatar)
	case *JoinSessionPayload:
		p.SessionID = normalizeSessionID(p.SessionID)
		p.Nickname = strings.TrimSpace(p.Nickname)
		p.Avatar = strings.TrimSpace(p.Avatar)
	case *AcceptParticipantPayload:
		p.ParticipantID = strings.TrimSpace(p.ParticipantID)
	}

	return validate.Struct(dst)
}

// normalizeSessionID upper-cases and trims a human-typed session token
func normalizeSessionID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// encode builds an outbound frame
func encode(event OutboundEvent, data interface{}) ([]byte, error) {
	return json.Marshal(outboundEnvelope{Event: event, Data: data})
}
