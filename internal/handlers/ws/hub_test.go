package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KirkDiggler/rollroom/internal/common/clock"
	"github.com/KirkDiggler/rollroom/internal/common/code"
	uuidMocks "github.com/KirkDiggler/rollroom/internal/common/uuid/mocks"
	"github.com/KirkDiggler/rollroom/internal/dice"
	"github.com/KirkDiggler/rollroom/internal/models"
	sessionRepo "github.com/KirkDiggler/rollroom/internal/repositories/session"
	"github.com/KirkDiggler/rollroom/internal/services/session"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const readTimeout = 2 * time.Second

// testConn is the browser side of one websocket
type testConn struct {
	s    *suite.Suite
	conn *websocket.Conn
}

func (c *testConn) emit(event EventType, data interface{}) {
	frame := map[string]interface{}{"event": event}
	if data != nil {
		frame["data"] = data
	}
	c.s.Require().NoError(c.conn.WriteJSON(frame))
}

func (c *testConn) emitRaw(frame string) {
	c.s.Require().NoError(c.conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

// next reads the next frame and checks its event name
func (c *testConn) next(event OutboundEvent) json.RawMessage {
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	_, message, err := c.conn.ReadMessage()
	c.s.Require().NoError(err)

	var frame struct {
		Event OutboundEvent   `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	c.s.Require().NoError(json.Unmarshal(message, &frame))
	c.s.Require().Equal(event, frame.Event, "unexpected frame %s", message)
	return frame.Data
}

func (c *testConn) nextString(event OutboundEvent) string {
	var value string
	c.s.Require().NoError(json.Unmarshal(c.next(event), &value))
	return value
}

func (c *testConn) nextState() *models.SessionState {
	var state models.SessionState
	c.s.Require().NoError(json.Unmarshal(c.next(EventSessionState), &state))
	return &state
}

func (c *testConn) nextRoll() *models.DiceRoll {
	var roll models.DiceRoll
	c.s.Require().NoError(json.Unmarshal(c.next(EventDiceRolled), &roll))
	return &roll
}

func (c *testConn) nextError(message string) {
	c.s.Equal(message, c.nextString(EventError))
}

type GatewayTestSuite struct {
	suite.Suite
	mockCtrl *gomock.Controller
	mockUUID *uuidMocks.MockUUID
	service  session.Service
	hub      *Hub
	hubDone  chan error
	server   *httptest.Server
	conns    []*testConn
	nextID   atomic.Int64
}

func (s *GatewayTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUUID = uuidMocks.NewMockUUID(s.mockCtrl)
	s.mockUUID.EXPECT().NewUUID().DoAndReturn(func() string {
		return fmt.Sprintf("conn-%d", s.nextID.Add(1))
	}).AnyTimes()

	svc, err := session.New(&session.Config{
		Repository:  sessionRepo.NewMemory(),
		DiceRoller:  dice.New(&dice.Config{Seed: 7}),
		Clock:       clock.New(),
		IDGenerator: code.New(&code.Config{Seed: 7}),
	})
	s.Require().NoError(err)
	s.service = svc

	s.startHub(nil)
}

// startHub runs a hub behind a test server; configure may adjust its config
func (s *GatewayTestSuite) startHub(configure func(*Config)) {
	cfg := &Config{
		SessionService: s.service,
		UUID:           s.mockUUID,
		AllowedOrigins: []string{"*"},
		Logger:         zap.NewNop(),
	}
	if configure != nil {
		configure(cfg)
	}

	hub, err := New(cfg)
	s.Require().NoError(err)
	s.hub = hub

	s.hubDone = make(chan error, 1)
	go func() {
		s.hubDone <- hub.Start()
	}()

	s.server = httptest.NewServer(hub.Routes())
}

func (s *GatewayTestSuite) stopHub() {
	for _, c := range s.conns {
		_ = c.conn.Close()
	}
	s.conns = nil

	s.hub.Stop()
	select {
	case err := <-s.hubDone:
		s.NoError(err)
	case <-time.After(readTimeout):
		s.Fail("hub did not stop")
	}
	s.server.Close()
}

func (s *GatewayTestSuite) TearDownTest() {
	s.stopHub()
	s.mockCtrl.Finish()
}

func TestGatewayTestSuite(t *testing.T) {
	suite.Run(t, new(GatewayTestSuite))
}

func (s *GatewayTestSuite) wsURL() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
}

func (s *GatewayTestSuite) dial() *testConn {
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL(), nil)
	s.Require().NoError(err)

	c := &testConn{s: &s.Suite, conn: conn}
	s.conns = append(s.conns, c)
	return c
}

// hostSession has a new connection create a session as Ana
func (s *GatewayTestSuite) hostSession() (*testConn, string) {
	host := s.dial()
	host.emit(EventCreateSession, map[string]string{"nickname": "Ana", "avatar": "bear.png"})
	sessionID := host.nextString(EventSessionCreated)
	host.nextState()
	return host, sessionID
}

// joinAs has a new connection join sessionID and drains the resulting states
func (s *GatewayTestSuite) joinAs(host *testConn, sessionID, nickname string) (*testConn, string) {
	guest := s.dial()
	guest.emit(EventJoinSession, map[string]string{"sessionId": sessionID, "nickname": nickname})
	s.Equal(sessionID, guest.nextString(EventSessionJoined))
	state := guest.nextState()
	host.nextState()

	waiting := state.WaitingParticipants[len(state.WaitingParticipants)-1]
	s.Equal(nickname, waiting.Nickname)
	return guest, waiting.ID
}

// acceptedGuest joins Bia and has the host accept her
func (s *GatewayTestSuite) acceptedGuest(host *testConn, sessionID string) (*testConn, string) {
	guest, guestID := s.joinAs(host, sessionID, "Bia")
	host.emit(EventAcceptParticipant, guestID)
	host.nextState()
	guest.nextState()
	return guest, guestID
}

func (s *GatewayTestSuite) TestNew_Validation() {
	_, err := New(nil)
	s.Error(err)

	_, err = New(&Config{UUID: s.mockUUID})
	s.Error(err)

	_, err = New(&Config{SessionService: s.service})
	s.Error(err)

	hub, err := New(&Config{SessionService: s.service, UUID: s.mockUUID})
	s.Require().NoError(err)
	s.Equal(DefaultSendBuffer, hub.sendBuffer)
	s.Equal(DefaultPongWait*9/10, hub.pingPeriod)
}

func (s *GatewayTestSuite) TestCreateSession() {
	host := s.dial()
	host.emit(EventCreateSession, map[string]string{"nickname": "  Ana ", "avatar": "bear.png"})

	sessionID := host.nextString(EventSessionCreated)
	s.Len(sessionID, code.DefaultLength)

	state := host.nextState()
	s.Equal(sessionID, state.SessionID)
	s.Require().Len(state.Participants, 1)
	s.Equal("Ana", state.Participants[0].Nickname)
	s.Equal("bear.png", state.Participants[0].Avatar)
	s.True(state.Participants[0].IsHost)
	s.True(strings.HasPrefix(state.Host, "conn-"))
	s.Empty(state.WaitingParticipants)
}

func (s *GatewayTestSuite) TestCreateSession_LegacyNicknamePayload() {
	host := s.dial()
	host.emit(EventCreateSession, "Ana")

	host.nextString(EventSessionCreated)
	state := host.nextState()
	s.Require().Len(state.Participants, 1)
	s.Equal("Ana", state.Participants[0].Nickname)
	s.Empty(state.Participants[0].Avatar)
}

func (s *GatewayTestSuite) TestCreateSession_InvalidPayload() {
	host := s.dial()

	host.emit(EventCreateSession, nil)
	host.nextError(MsgInvalidPayload)

	host.emit(EventCreateSession, map[string]string{"nickname": "   "})
	host.nextError(MsgInvalidPayload)

	host.emit(EventCreateSession, map[string]string{"nickname": strings.Repeat("a", 21)})
	host.nextError(MsgInvalidPayload)

	host.emit(EventCreateSession, map[string]int{"nickname": 5})
	host.nextError(MsgInvalidPayload)

	// Twenty multi-byte characters are within the limit
	host.emit(EventCreateSession, strings.Repeat("é", 20))
	host.nextString(EventSessionCreated)
}

func (s *GatewayTestSuite) TestJoinSession() {
	host, sessionID := s.hostSession()

	guest := s.dial()
	guest.emit(EventJoinSession, map[string]string{
		"sessionId": " " + strings.ToLower(sessionID) + " ",
		"nickname":  "Bia",
		"avatar":    "cat.png",
	})

	s.Equal(sessionID, guest.nextString(EventSessionJoined))
	guestState := guest.nextState()
	hostState := host.nextState()
	s.Equal(guestState, hostState)

	s.Len(hostState.Participants, 1)
	s.Require().Len(hostState.WaitingParticipants, 1)
	s.Equal("Bia", hostState.WaitingParticipants[0].Nickname)
	s.Equal("cat.png", hostState.WaitingParticipants[0].Avatar)
	s.False(hostState.WaitingParticipants[0].IsAccepted)
}

func (s *GatewayTestSuite) TestJoinSession_NotFound() {
	guest := s.dial()
	guest.emit(EventJoinSession, map[string]string{"sessionId": "NOPE00", "nickname": "Bia"})
	guest.nextError(MsgSessionNotFound)

	guest.emit(EventJoinSession, map[string]string{"nickname": "Bia"})
	guest.nextError(MsgInvalidPayload)
}

func (s *GatewayTestSuite) TestAcceptParticipant() {
	host, sessionID := s.hostSession()
	guest, guestID := s.joinAs(host, sessionID, "Bia")

	host.emit(EventAcceptParticipant, guestID)
	state := host.nextState()
	s.Equal(state, guest.nextState())

	s.Require().Len(state.Participants, 2)
	s.Equal(guestID, state.Participants[1].ID)
	s.True(state.Participants[1].IsAccepted)
	s.Empty(state.WaitingParticipants)
}

func (s *GatewayTestSuite) TestAcceptParticipant_Failures() {
	host, sessionID := s.hostSession()
	guest, guestID := s.joinAs(host, sessionID, "Bia")

	// Only the acting connection hears about a failure
	guest.emit(EventAcceptParticipant, guestID)
	guest.nextError(MsgFailedToAccept)

	host.emit(EventAcceptParticipant, "someone-else")
	host.nextError(MsgFailedToAccept)

	host.emit(EventAcceptParticipant, nil)
	host.nextError(MsgInvalidPayload)

	host.emit(EventAcceptParticipant, guestID)
	host.nextState()
	guest.nextState()
}

func (s *GatewayTestSuite) TestAcceptAllParticipants() {
	host, sessionID := s.hostSession()
	bia, _ := s.joinAs(host, sessionID, "Bia")
	caio, _ := s.joinAs(host, sessionID, "Caio")
	bia.nextState()

	caio.emit(EventAcceptAllParticipants, nil)
	caio.nextError(MsgFailedToAcceptAll)

	host.emit(EventAcceptAllParticipants, nil)
	state := host.nextState()
	bia.nextState()
	caio.nextState()

	s.Require().Len(state.Participants, 3)
	s.Equal("Bia", state.Participants[1].Nickname)
	s.Equal("Caio", state.Participants[2].Nickname)
	s.Empty(state.WaitingParticipants)
}

func (s *GatewayTestSuite) TestRollDice() {
	host, sessionID := s.hostSession()
	guest, guestID := s.acceptedGuest(host, sessionID)

	guest.emit(EventRollDice, nil)

	for _, c := range []*testConn{host, guest} {
		roll := c.nextRoll()
		s.GreaterOrEqual(roll.Value, 1)
		s.LessOrEqual(roll.Value, 6)
		s.Equal(guestID, roll.RollerID)
		s.Equal("Bia", roll.RollerNickname)
		s.False(roll.Timestamp.IsZero())

		state := c.nextState()
		s.Equal(1, state.TotalRollCount)
		s.Len(state.RollHistory, 1)
		s.Equal(1, state.Participants[1].RollCount)
	}
}

func (s *GatewayTestSuite) TestRollDice_WaitingParticipant() {
	host, sessionID := s.hostSession()
	guest, _ := s.joinAs(host, sessionID, "Bia")

	guest.emit(EventRollDice, nil)
	guest.nextError(MsgInvalidSession)

	// The host saw nothing; its next frame answers its own roll
	host.emit(EventRollDice, nil)
	host.nextRoll()
	host.nextState()
}

func (s *GatewayTestSuite) TestResetCounter() {
	host, sessionID := s.hostSession()
	guest, _ := s.acceptedGuest(host, sessionID)

	guest.emit(EventRollDice, nil)
	for _, c := range []*testConn{host, guest} {
		c.nextRoll()
		c.nextState()
	}

	guest.emit(EventResetCounter, nil)
	guest.nextError(MsgOnlyHostCanResetCount)

	host.emit(EventResetCounter, nil)
	for _, c := range []*testConn{host, guest} {
		state := c.nextState()
		s.Equal(0, state.TotalRollCount)
		s.Empty(state.RollHistory)
		for _, p := range state.Participants {
			s.Equal(0, p.RollCount)
		}
	}
}

func (s *GatewayTestSuite) TestActionsWithoutSession() {
	c := s.dial()

	for _, event := range []EventType{EventRollDice, EventResetCounter, EventAcceptAllParticipants} {
		c.emit(event, nil)
		c.nextError(MsgNotInSession)
	}

	c.emit(EventAcceptParticipant, "someone")
	c.nextError(MsgNotInSession)
}

func (s *GatewayTestSuite) TestUnknownAndMalformedFrames() {
	c := s.dial()

	c.emit(EventType("advance-round"), nil)
	c.nextError(MsgUnknownEvent)

	c.emit(EventDisconnect, nil)
	c.nextError(MsgUnknownEvent)

	c.emitRaw("not json")
	c.nextError(MsgInvalidPayload)
}

func (s *GatewayTestSuite) TestDisconnect_HostLeavesWithoutHandoff() {
	host := s.dial()
	host.emit(EventCreateSession, map[string]string{"nickname": "Ana"})
	sessionID := host.nextString(EventSessionCreated)
	hostID := host.nextState().Host

	guest, guestID := s.acceptedGuest(host, sessionID)

	_ = host.conn.Close()

	state := guest.nextState()
	s.Require().Len(state.Participants, 1)
	s.Equal(guestID, state.Participants[0].ID)
	s.Equal(hostID, state.Host)

	guest.emit(EventResetCounter, nil)
	guest.nextError(MsgOnlyHostCanResetCount)
}

func (s *GatewayTestSuite) TestDisconnect_LastParticipantDeletesSession() {
	host, sessionID := s.hostSession()
	guest, _ := s.joinAs(host, sessionID, "Bia")

	_ = host.conn.Close()

	s.Eventually(func() bool {
		out, err := s.service.SessionExists(context.Background(), &session.SessionExistsInput{SessionID: sessionID})
		return err == nil && !out.Exists
	}, readTimeout, 10*time.Millisecond)

	// The waiting guest lost its session along with the room
	guest.emit(EventRollDice, nil)
	guest.nextError(MsgNotInSession)
}

func (s *GatewayTestSuite) TestSwitchingSessionsLeavesPrevious() {
	firstHost, firstID := s.hostSession()
	secondHost, secondID := s.hostSession()
	guest, _ := s.joinAs(firstHost, firstID, "Bia")

	guest.emit(EventJoinSession, map[string]string{"sessionId": secondID, "nickname": "Bia"})
	s.Equal(secondID, guest.nextString(EventSessionJoined))
	guest.nextState()
	s.Len(secondHost.nextState().WaitingParticipants, 1)

	s.Empty(firstHost.nextState().WaitingParticipants)

	// A failed join keeps the current session
	guest.emit(EventJoinSession, map[string]string{"sessionId": "ZZZZZZ", "nickname": "Bia"})
	guest.nextError(MsgSessionNotFound)

	secondHost.emit(EventAcceptAllParticipants, nil)
	s.Len(secondHost.nextState().Participants, 2)
	s.Len(guest.nextState().Participants, 2)
}

func (s *GatewayTestSuite) TestDropSessions() {
	host, sessionID := s.hostSession()

	s.hub.DropSessions([]string{sessionID})

	host.emit(EventRollDice, nil)
	host.nextError(MsgNotInSession)
}

func (s *GatewayTestSuite) TestHealthz() {
	s.hostSession()
	s.hostSession()

	resp, err := http.Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	var body healthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal(healthResponse{Status: "ok", Sessions: 2}, body)
}

func (s *GatewayTestSuite) TestOriginAllowlist() {
	s.stopHub()
	s.startHub(func(cfg *Config) {
		cfg.AllowedOrigins = []string{"https://dice.example.com"}
	})

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial(s.wsURL(), header)
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://DICE.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(s.wsURL(), header)
	s.Require().NoError(err)
	s.conns = append(s.conns, &testConn{s: &s.Suite, conn: conn})
}

func (s *GatewayTestSuite) TestStopClosesConnections() {
	c := s.dial()

	s.hub.Stop()

	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	_, _, err := c.conn.ReadMessage()
	s.Error(err)
}

func (s *GatewayTestSuite) TestMissedPongsDisconnect() {
	s.stopHub()
	s.startHub(func(cfg *Config) {
		cfg.PongWait = 300 * time.Millisecond
	})

	host, sessionID := s.hostSession()
	_, _ = s.joinAs(host, sessionID, "Bia")

	// The guest stops reading so it never answers a ping. The host keeps
	// reading, which answers its pings, and sees the guest dropped.
	state := host.nextState()

	s.Empty(state.WaitingParticipants)
	s.Len(state.Participants, 1)
}
