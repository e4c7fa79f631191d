package models

// Participant represents a connection taking part in a dice session
type Participant struct {
	// ID is the connection ID of the participant, unique per live connection
	ID string `json:"id"`

	// Nickname is the display name chosen by the participant
	Nickname string `json:"nickname"`

	// Avatar is the image identifier chosen by the participant
	Avatar string `json:"avatar"`

	// IsHost indicates if the participant created the session
	IsHost bool `json:"isHost"`

	// RollCount is the number of rolls made by the participant since the last reset
	RollCount int `json:"rollCount"`

	// IsAccepted is false while the participant sits in the waiting room
	IsAccepted bool `json:"isAccepted"`
}
