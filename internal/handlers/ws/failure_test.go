package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	uuidMocks "github.com/KirkDiggler/rollroom/internal/common/uuid/mocks"
	"github.com/KirkDiggler/rollroom/internal/models"
	"github.com/KirkDiggler/rollroom/internal/services/session"
	sessionMocks "github.com/KirkDiggler/rollroom/internal/services/session/mocks"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

// GatewayFailureTestSuite drives the hub against a mocked session service
type GatewayFailureTestSuite struct {
	suite.Suite
	mockCtrl    *gomock.Controller
	mockService *sessionMocks.MockService
	hub         *Hub
	hubDone     chan error
	server      *httptest.Server
	conn        *testConn
}

func (s *GatewayFailureTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockService = sessionMocks.NewMockService(s.mockCtrl)
	mockUUID := uuidMocks.NewMockUUID(s.mockCtrl)
	mockUUID.EXPECT().NewUUID().Return("conn-1").AnyTimes()

	// Connections closed during teardown leave their session
	s.mockService.EXPECT().RemoveParticipant(gomock.Any(), gomock.Any()).
		Return(&session.RemoveParticipantOutput{SessionDeleted: true}, nil).AnyTimes()

	hub, err := New(&Config{
		SessionService: s.mockService,
		UUID:           mockUUID,
		AllowedOrigins: []string{"*"},
	})
	s.Require().NoError(err)
	s.hub = hub

	s.hubDone = make(chan error, 1)
	go func() {
		s.hubDone <- hub.Start()
	}()
	s.server = httptest.NewServer(hub.Routes())

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.server.URL, "http")+"/ws", nil)
	s.Require().NoError(err)
	s.conn = &testConn{s: &s.Suite, conn: conn}
}

func (s *GatewayFailureTestSuite) TearDownTest() {
	_ = s.conn.conn.Close()
	s.hub.Stop()
	select {
	case <-s.hubDone:
	case <-time.After(readTimeout):
		s.Fail("hub did not stop")
	}
	s.server.Close()
	s.mockCtrl.Finish()
}

func TestGatewayFailureTestSuite(t *testing.T) {
	suite.Run(t, new(GatewayFailureTestSuite))
}

func (s *GatewayFailureTestSuite) TestCreateSession_StoreFailure() {
	s.mockService.EXPECT().CreateSession(gomock.Any(), &session.CreateSessionInput{
		HostID:   "conn-1",
		Nickname: "Ana",
	}).Return(nil, errors.New("redis: connection refused"))

	s.conn.emit(EventCreateSession, "Ana")
	s.conn.nextError(MsgFailedToCreate)
}

func (s *GatewayFailureTestSuite) TestJoinSession_ErrorMapping() {
	s.mockService.EXPECT().JoinSession(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("loading session: %w", session.ErrSessionNotFound))
	s.mockService.EXPECT().JoinSession(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis: i/o timeout"))

	payload := map[string]string{"sessionId": "ABC123", "nickname": "Bia"}

	s.conn.emit(EventJoinSession, payload)
	s.conn.nextError(MsgSessionNotFound)

	s.conn.emit(EventJoinSession, payload)
	s.conn.nextError(MsgFailedToJoin)
}

func (s *GatewayFailureTestSuite) TestRollDice_StoreFailure() {
	state := &models.SessionState{SessionID: "ABC123", Host: "conn-1"}
	s.mockService.EXPECT().CreateSession(gomock.Any(), gomock.Any()).
		Return(&session.CreateSessionOutput{SessionID: "ABC123", State: state}, nil)
	s.mockService.EXPECT().RollDice(gomock.Any(), &session.RollDiceInput{
		SessionID: "ABC123",
		RollerID:  "conn-1",
	}).Return(nil, errors.New("redis: i/o timeout"))

	s.conn.emit(EventCreateSession, "Ana")
	s.Equal("ABC123", s.conn.nextString(EventSessionCreated))
	s.conn.nextState()

	s.conn.emit(EventRollDice, nil)
	s.conn.nextError(MsgInvalidSession)
}

func (s *GatewayFailureTestSuite) TestHealthz_StoreFailure() {
	s.mockService.EXPECT().ListSessions(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis: connection refused"))

	resp, err := http.Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	var body healthResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("unavailable", body.Status)
}

func TestSlowConnectionIsDropped(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := sessionMocks.NewMockService(ctrl)

	hub, err := New(&Config{
		SessionService: svc,
		UUID:           uuidMocks.NewMockUUID(ctrl),
		SendBuffer:     1,
	})
	require.NoError(t, err)

	ctx := context.Background()
	newClient := func(id string, buffer int) *Client {
		c := &Client{id: id, hub: hub, send: make(chan []byte, buffer), logger: zap.NewNop()}
		hub.clients[id] = c
		hub.associate(ctx, c, "ROOM01")
		return c
	}
	slow := newClient("slow", 1)
	peer := newClient("peer", 4)

	state := &models.SessionState{SessionID: "ROOM01", Host: "peer"}
	svc.EXPECT().RemoveParticipant(gomock.Any(), &session.RemoveParticipantInput{
		SessionID:     "ROOM01",
		ParticipantID: "slow",
	}).Return(&session.RemoveParticipantOutput{State: state, Removed: true}, nil)

	hub.broadcast("ROOM01", EventSessionState, state)
	hub.broadcast("ROOM01", EventSessionState, state)

	assert.True(t, slow.closed)
	assert.NotContains(t, hub.clients, "slow")
	require.Len(t, hub.dropped, 1)

	hub.flushDropped()

	assert.Empty(t, hub.dropped)
	assert.NotContains(t, hub.associations, "slow")
	assert.Equal(t, "ROOM01", hub.associations["peer"])
	assert.Len(t, peer.send, 3)

	// The closed queue still holds the one message that fit
	_, ok := <-slow.send
	assert.True(t, ok)
	_, ok = <-slow.send
	assert.False(t, ok)
}

func TestDropRoomOnSessionDeleted(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := sessionMocks.NewMockService(ctrl)

	hub, err := New(&Config{SessionService: svc, UUID: uuidMocks.NewMockUUID(ctrl)})
	require.NoError(t, err)

	ctx := context.Background()
	host := &Client{id: "host", hub: hub, send: make(chan []byte, 4), logger: zap.NewNop()}
	waiting := &Client{id: "waiting", hub: hub, send: make(chan []byte, 4), logger: zap.NewNop()}
	hub.associate(ctx, host, "ROOM01")
	hub.associate(ctx, waiting, "ROOM01")

	svc.EXPECT().RemoveParticipant(gomock.Any(), gomock.Any()).
		Return(&session.RemoveParticipantOutput{Removed: true, SessionDeleted: true}, nil)

	hub.leave(ctx, host)

	assert.Empty(t, hub.associations)
	assert.Empty(t, hub.rooms)
	assert.Empty(t, waiting.send)
}

func TestFailedRemovalIsRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := sessionMocks.NewMockService(ctrl)

	hub, err := New(&Config{SessionService: svc, UUID: uuidMocks.NewMockUUID(ctrl)})
	require.NoError(t, err)

	ctx := context.Background()
	guest := &Client{id: "guest", hub: hub, send: make(chan []byte, 4), logger: zap.NewNop()}
	host := &Client{id: "host", hub: hub, send: make(chan []byte, 4), logger: zap.NewNop()}
	hub.associate(ctx, guest, "ROOM01")
	hub.associate(ctx, host, "ROOM01")

	input := &session.RemoveParticipantInput{SessionID: "ROOM01", ParticipantID: "guest"}
	state := &models.SessionState{SessionID: "ROOM01", Host: "host"}
	gomock.InOrder(
		svc.EXPECT().RemoveParticipant(gomock.Any(), input).
			Return(nil, errors.New("redis: i/o timeout")),
		svc.EXPECT().RemoveParticipant(gomock.Any(), input).
			Return(&session.RemoveParticipantOutput{State: state, Removed: true}, nil),
	)

	hub.leave(ctx, guest)

	assert.NotContains(t, hub.associations, "guest")
	assert.Equal(t, map[string]string{"guest": "ROOM01"}, hub.pendingRemovals)
	assert.Empty(t, host.send)

	hub.retryPendingRemovals()

	assert.Empty(t, hub.pendingRemovals)
	assert.Len(t, host.send, 1)

	// Nothing left to retry
	hub.retryPendingRemovals()
}

func TestRejoinCancelsPendingRemoval(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := sessionMocks.NewMockService(ctrl)

	hub, err := New(&Config{SessionService: svc, UUID: uuidMocks.NewMockUUID(ctrl)})
	require.NoError(t, err)

	ctx := context.Background()
	c := &Client{id: "guest", hub: hub, send: make(chan []byte, 4), logger: zap.NewNop()}
	hub.pendingRemovals["guest"] = "ROOM01"

	hub.associate(ctx, c, "ROOM01")

	assert.Empty(t, hub.pendingRemovals)
	hub.retryPendingRemovals()
}
