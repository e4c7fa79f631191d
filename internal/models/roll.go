package models

import (
	"encoding/json"
	"time"
)

// DiceRoll is an immutable record of a single roll in a session
type DiceRoll struct {
	// Value is the result of the roll, between 1 and 6
	Value int

	// RollerID is the ID of the participant who rolled
	RollerID string

	// RollerNickname is the nickname of the roller at the time of the roll
	RollerNickname string

	// RollerAvatar is the avatar of the roller at the time of the roll
	RollerAvatar string

	// Timestamp is when the roll was made
	Timestamp time.Time
}

type diceRollJSON struct {
	Value          int    `json:"value"`
	RollerID       string `json:"rollerId"`
	RollerNickname string `json:"rollerNickname"`
	RollerAvatar   string `json:"rollerAvatar"`
	Timestamp      int64  `json:"timestamp"`
}

// MarshalJSON encodes the timestamp as Unix milliseconds
func (r DiceRoll) MarshalJSON() ([]byte, error) {
	return json.Marshal(diceRollJSON{
		Value:          r.Value,
		RollerID:       r.RollerID,
		RollerNickname: r.RollerNickname,
		RollerAvatar:   r.RollerAvatar,
		Timestamp:      r.Timestamp.UnixMilli(),
	})
}

// UnmarshalJSON decodes a roll with a Unix millisecond timestamp
func (r *DiceRoll) UnmarshalJSON(data []byte) error {
	var raw diceRollJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = DiceRoll{
		Value:          raw.Value,
		RollerID:       raw.RollerID,
		RollerNickname: raw.RollerNickname,
		RollerAvatar:   raw.RollerAvatar,
		Timestamp:      time.UnixMilli(raw.Timestamp).UTC(),
	}
	return nil
}
