package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionClone_IsDeep(t *testing.T) {
	orig := &Session{
		State: &SessionState{
			SessionID:      "ABC123",
			Participants:   []*Participant{{ID: "host", Nickname: "Ana", IsHost: true, IsAccepted: true, RollCount: 1}},
			RollHistory:    []*DiceRoll{{Value: 4, RollerID: "host"}},
			Host:           "host",
			TotalRollCount: 1,
		},
		CreatedAt: time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC),
	}

	clone := orig.Clone()
	clone.State.Participants[0].RollCount = 0
	clone.State.RollHistory[0].Value = 1
	clone.State.Participants = append(clone.State.Participants, &Participant{ID: "other"})

	assert.Equal(t, 1, orig.State.Participants[0].RollCount)
	assert.Equal(t, 4, orig.State.RollHistory[0].Value)
	assert.Len(t, orig.State.Participants, 1)
	assert.NotNil(t, clone.State.WaitingParticipants)
}

func TestSessionStateJSON_EmptySlicesAreArrays(t *testing.T) {
	state := (&SessionState{SessionID: "ABC123", Host: "host"}).Clone()

	data, err := json.Marshal(state)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"sessionId": "ABC123",
		"participants": [],
		"waitingParticipants": [],
		"rollHistory": [],
		"totalRollCount": 0,
		"host": "host"
	}`, string(data))
}

func TestDiceRollJSON_TimestampMillis(t *testing.T) {
	ts := time.Date(2025, 4, 5, 10, 0, 0, 123000000, time.UTC)
	roll := DiceRoll{
		Value:          6,
		RollerID:       "bia",
		RollerNickname: "Bia",
		RollerAvatar:   "owl.png",
		Timestamp:      ts,
	}

	data, err := json.Marshal(roll)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"value": 6,
		"rollerId": "bia",
		"rollerNickname": "Bia",
		"rollerAvatar": "owl.png",
		"timestamp": 1743847200123
	}`, string(data))

	var decoded DiceRoll
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, roll, decoded)
}
