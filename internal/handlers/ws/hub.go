package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/KirkDiggler/rollroom/internal/common/uuid"
	"github.com/KirkDiggler/rollroom/internal/services/session"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// DefaultSendBuffer is the number of outbound messages queued per connection
	DefaultSendBuffer = 32

	// DefaultOperationTimeout bounds a single session service call
	DefaultOperationTimeout = 5 * time.Second

	// removalRetryInterval is how often failed participant removals are retried
	removalRetryInterval = 15 * time.Second
)

// Config holds the configuration for the gateway hub
type Config struct {
	// Session service every event is applied to
	SessionService session.Service

	// Generates connection ids
	UUID uuid.UUID

	// Origins allowed to open a websocket; "*" allows any
	AllowedOrigins []string

	// Outbound messages queued per connection before it is dropped
	SendBuffer int

	// Time allowed for one write; zero uses DefaultWriteWait
	WriteWait time.Duration

	// A connection that sends no pong within PongWait is closed and
	// disconnected; zero uses DefaultPongWait. Pings go out every 9/10 of it.
	PongWait time.Duration

	// Upper bound for one session service call
	OperationTimeout time.Duration

	Logger *zap.Logger
}

// Hub bridges websocket connections to the session service. A single loop
// goroutine handles every event in arrival order and owns all connection
// state.
type Hub struct {
	sessions   session.Service
	uuid       uuid.UUID
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	allowAll   bool
	origins    map[string]bool
	sendBuffer int
	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
	opTimeout  time.Duration

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	expired    chan []string
	done       chan struct{}
	stopOnce   sync.Once

	// Owned by the loop
	clients      map[string]*Client
	associations map[string]string             // connection id -> session id
	rooms        map[string]map[string]*Client // session id -> connection id -> client
	dropped      []*Client

	// Removals the session service failed, retried on a timer.
	// connection id -> session id
	pendingRemovals map[string]string
}

// New creates a new gateway hub
func New(cfg *Config) (*Hub, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.SessionService == nil {
		return nil, errors.New("session service cannot be nil")
	}

	if cfg.UUID == nil {
		return nil, errors.New("uuid generator cannot be nil")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}

	writeWait := cfg.WriteWait
	if writeWait <= 0 {
		writeWait = DefaultWriteWait
	}

	pongWait := cfg.PongWait
	if pongWait <= 0 {
		pongWait = DefaultPongWait
	}

	opTimeout := cfg.OperationTimeout
	if opTimeout <= 0 {
		opTimeout = DefaultOperationTimeout
	}

	h := &Hub{
		sessions:     cfg.SessionService,
		uuid:         cfg.UUID,
		logger:       logger,
		origins:      make(map[string]bool),
		sendBuffer:   sendBuffer,
		writeWait:    writeWait,
		pongWait:     pongWait,
		pingPeriod:   pongWait * 9 / 10,
		opTimeout:    opTimeout,
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		inbound:      make(chan inbound),
		expired:      make(chan []string),
		done:         make(chan struct{}),
		clients:      make(map[string]*Client),
		associations: make(map[string]string),
		rooms:        make(map[string]map[string]*Client),

		pendingRemovals: make(map[string]string),
	}

	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			h.allowAll = true
		}
		h.origins[strings.ToLower(strings.TrimSpace(origin))] = true
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h, nil
}

// Start runs the event loop until Stop is called
func (h *Hub) Start() error {
	h.logger.Info("gateway hub started")

	retry := time.NewTicker(removalRetryInterval)
	defer retry.Stop()

	for {
		select {
		case c := <-h.register:
			h.clients[c.id] = c
			c.logger.Info("connection opened")
		case c := <-h.unregister:
			h.handle(c, EventDisconnect, nil)
		case in := <-h.inbound:
			h.dispatch(in.client, in.message)
		case ids := <-h.expired:
			h.dropSessions(ids)
		case <-retry.C:
			h.retryPendingRemovals()
		case <-h.done:
			h.closeAll()
			h.logger.Info("gateway hub stopped")
			return nil
		}

		h.flushDropped()
	}
}

// Stop ends the event loop and closes every connection
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// DropSessions forgets the rooms of sessions that no longer exist. Their
// connections stay open without a session.
func (h *Hub) DropSessions(sessionIDs []string) {
	if len(sessionIDs) == 0 {
		return
	}

	select {
	case h.expired <- sessionIDs:
	case <-h.done:
	}
}

// attach registers a freshly upgraded connection and starts its pumps
func (h *Hub) attach(conn *websocket.Conn) {
	id := h.uuid.NewUUID()
	c := &Client{
		id:     id,
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, h.sendBuffer),
		logger: h.logger.With(zap.String("connection_id", id)),
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// receive hands a frame to the loop, reporting false once the hub has stopped
func (h *Hub) receive(in inbound) bool {
	select {
	case h.inbound <- in:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) disconnect(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// dispatch decodes a client frame and handles it
func (h *Hub) dispatch(c *Client, message []byte) {
	if c.closed {
		return
	}

	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		c.logger.Debug("malformed frame", zap.Error(err))
		h.sendError(c, MsgInvalidPayload)
		return
	}

	if env.Event == EventDisconnect {
		h.sendError(c, MsgUnknownEvent)
		return
	}

	h.handle(c, env.Event, env.Data)
}

// handle runs one event to completion
func (h *Hub) handle(c *Client, event EventType, data json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), h.opTimeout)
	defer cancel()

	switch event {
	case EventCreateSession:
		h.createSession(ctx, c, data)
	case EventJoinSession:
		h.joinSession(ctx, c, data)
	case EventAcceptParticipant:
		h.acceptParticipant(ctx, c, data)
	case EventAcceptAllParticipants:
		h.acceptAllParticipants(ctx, c)
	case EventRollDice:
		h.rollDice(ctx, c)
	case EventResetCounter:
		h.resetCounter(ctx, c)
	case EventDisconnect:
		h.closeClient(c)
		h.leave(ctx, c)
		c.logger.Info("connection closed")
	default:
		c.logger.Debug("unknown event", zap.String("event", string(event)))
		h.sendError(c, MsgUnknownEvent)
	}
}

func (h *Hub) createSession(ctx context.Context, c *Client, data json.RawMessage) {
	var payload CreateSessionPayload
	if err := decodePayload(data, &payload); err != nil {
		h.rejectPayload(c, EventCreateSession, err)
		return
	}

	out, err := h.sessions.CreateSession(ctx, &session.CreateSessionInput{
		HostID:   c.id,
		Nickname: payload.Nickname,
		Avatar:   payload.Avatar,
	})
	if err != nil {
		h.logFailure(c, EventCreateSession, err)
		h.sendError(c, MsgFailedToCreate)
		return
	}

	h.associate(ctx, c, out.SessionID)
	h.sendEvent(c, EventSessionCreated, out.SessionID)
	h.broadcast(out.SessionID, EventSessionState, out.State)
}

func (h *Hub) joinSession(ctx context.Context, c *Client, data json.RawMessage) {
	var payload JoinSessionPayload
	if err := decodePayload(data, &payload); err != nil {
		h.rejectPayload(c, EventJoinSession, err)
		return
	}

	out, err := h.sessions.JoinSession(ctx, &session.JoinSessionInput{
		SessionID:     payload.SessionID,
		ParticipantID: c.id,
		Nickname:      payload.Nickname,
		Avatar:        payload.Avatar,
	})
	if err != nil {
		h.logFailure(c, EventJoinSession, err)
		if session.KindOf(err) == session.KindNotFound {
			h.sendError(c, MsgSessionNotFound)
		} else {
			h.sendError(c, MsgFailedToJoin)
		}
		return
	}

	h.associate(ctx, c, payload.SessionID)
	h.sendEvent(c, EventSessionJoined, payload.SessionID)
	h.broadcast(payload.SessionID, EventSessionState, out.State)
}

func (h *Hub) acceptParticipant(ctx context.Context, c *Client, data json.RawMessage) {
	sessionID, ok := h.associations[c.id]
	if !ok {
		h.sendError(c, MsgNotInSession)
		return
	}

	var payload AcceptParticipantPayload
	if err := decodePayload(data, &payload); err != nil {
		h.rejectPayload(c, EventAcceptParticipant, err)
		return
	}

	out, err := h.sessions.AcceptParticipant(ctx, &session.AcceptParticipantInput{
		SessionID:     sessionID,
		ParticipantID: payload.ParticipantID,
		RequesterID:   c.id,
	})
	if err != nil {
		h.logFailure(c, EventAcceptParticipant, err)
		h.sendError(c, MsgFailedToAccept)
		return
	}

	h.broadcast(sessionID, EventSessionState, out.State)
}

func (h *Hub) acceptAllParticipants(ctx context.Context, c *Client) {
	sessionID, ok := h.associations[c.id]
	if !ok {
		h.sendError(c, MsgNotInSession)
		return
	}

	out, err := h.sessions.AcceptAllParticipants(ctx, &session.AcceptAllParticipantsInput{
		SessionID:   sessionID,
		RequesterID: c.id,
	})
	if err != nil {
		h.logFailure(c, EventAcceptAllParticipants, err)
		h.sendError(c, MsgFailedToAcceptAll)
		return
	}

	h.broadcast(sessionID, EventSessionState, out.State)
}

func (h *Hub) rollDice(ctx context.Context, c *Client) {
	sessionID, ok := h.associations[c.id]
	if !ok {
		h.sendError(c, MsgNotInSession)
		return
	}

	out, err := h.sessions.RollDice(ctx, &session.RollDiceInput{
		SessionID: sessionID,
		RollerID:  c.id,
	})
	if err != nil {
		h.logFailure(c, EventRollDice, err)
		h.sendError(c, MsgInvalidSession)
		return
	}

	h.broadcast(sessionID, EventDiceRolled, out.Roll)
	h.broadcast(sessionID, EventSessionState, out.State)
}

func (h *Hub) resetCounter(ctx context.Context, c *Client) {
	sessionID, ok := h.associations[c.id]
	if !ok {
		h.sendError(c, MsgNotInSession)
		return
	}

	out, err := h.sessions.ResetCounter(ctx, &session.ResetCounterInput{
		SessionID:   sessionID,
		RequesterID: c.id,
	})
	if err != nil {
		h.logFailure(c, EventResetCounter, err)
		h.sendError(c, MsgOnlyHostCanResetCount)
		return
	}

	h.broadcast(sessionID, EventSessionState, out.State)
}

// associate puts c in the room of sessionID, leaving any other session first
func (h *Hub) associate(ctx context.Context, c *Client, sessionID string) {
	if current, ok := h.associations[c.id]; ok {
		if current == sessionID {
			return
		}
		h.leave(ctx, c)
	}

	// Rejoining a session cancels a removal still pending from it
	if h.pendingRemovals[c.id] == sessionID {
		delete(h.pendingRemovals, c.id)
	}

	h.associations[c.id] = sessionID
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[sessionID] = room
	}
	room[c.id] = c
}

// leave removes c from its session and tells the rest of the room
func (h *Hub) leave(ctx context.Context, c *Client) {
	sessionID, ok := h.associations[c.id]
	if !ok {
		return
	}
	h.dissociate(c.id, sessionID)
	h.removeParticipant(ctx, c.id, sessionID)
}

// removeParticipant drops a connection's participant from a session. A failed
// removal stays pending so the participant does not linger in the store.
func (h *Hub) removeParticipant(ctx context.Context, connectionID, sessionID string) {
	out, err := h.sessions.RemoveParticipant(ctx, &session.RemoveParticipantInput{
		SessionID:     sessionID,
		ParticipantID: connectionID,
	})
	if err != nil {
		h.logger.Error("failed to remove participant, will retry",
			zap.String("connection_id", connectionID),
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		h.pendingRemovals[connectionID] = sessionID
		return
	}
	delete(h.pendingRemovals, connectionID)

	if out.SessionDeleted {
		h.dropRoom(sessionID)
		return
	}

	if out.State != nil {
		h.broadcast(sessionID, EventSessionState, out.State)
	}
}

func (h *Hub) retryPendingRemovals() {
	if len(h.pendingRemovals) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opTimeout)
	defer cancel()

	for connectionID, sessionID := range h.pendingRemovals {
		h.removeParticipant(ctx, connectionID, sessionID)
	}
}

func (h *Hub) dissociate(connectionID, sessionID string) {
	delete(h.associations, connectionID)

	room := h.rooms[sessionID]
	delete(room, connectionID)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

// dropRoom clears the association of every connection left in a session's room
func (h *Hub) dropRoom(sessionID string) {
	for connectionID := range h.rooms[sessionID] {
		delete(h.associations, connectionID)
	}
	delete(h.rooms, sessionID)
}

func (h *Hub) dropSessions(sessionIDs []string) {
	for _, sessionID := range sessionIDs {
		h.dropRoom(sessionID)
	}

	h.logger.Info("dropped rooms of expired sessions", zap.Strings("session_ids", sessionIDs))
}

// sendEvent queues one message for a single connection
func (h *Hub) sendEvent(c *Client, event OutboundEvent, data interface{}) {
	message, err := encode(event, data)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("event", string(event)), zap.Error(err))
		return
	}
	h.send(c, message)
}

func (h *Hub) sendError(c *Client, message string) {
	h.sendEvent(c, EventError, message)
}

// broadcast queues one message for every connection in a session's room
func (h *Hub) broadcast(sessionID string, event OutboundEvent, data interface{}) {
	message, err := encode(event, data)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("event", string(event)), zap.Error(err))
		return
	}

	for _, c := range h.rooms[sessionID] {
		h.send(c, message)
	}
}

// send never blocks. A connection whose queue is full is closed and queued for removal.
func (h *Hub) send(c *Client, message []byte) {
	if c.closed {
		return
	}

	select {
	case c.send <- message:
	default:
		c.logger.Warn("dropping slow connection", zap.Int("queued", len(c.send)))
		h.closeClient(c)
		h.dropped = append(h.dropped, c)
	}
}

// flushDropped removes connections closed for being slow from their sessions
func (h *Hub) flushDropped() {
	if len(h.dropped) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.opTimeout)
	defer cancel()

	for len(h.dropped) > 0 {
		c := h.dropped[0]
		h.dropped = h.dropped[1:]
		h.leave(ctx, c)
	}
}

// closeClient closes the send queue, which makes the write pump close the connection
func (h *Hub) closeClient(c *Client) {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	delete(h.clients, c.id)
}

func (h *Hub) closeAll() {
	for _, c := range h.clients {
		h.closeClient(c)
	}
	h.associations = make(map[string]string)
	h.rooms = make(map[string]map[string]*Client)
	h.dropped = nil
	h.pendingRemovals = make(map[string]string)
}

func (h *Hub) rejectPayload(c *Client, event EventType, err error) {
	c.logger.Debug("invalid payload", zap.String("event", string(event)), zap.Error(err))
	h.sendError(c, MsgInvalidPayload)
}

// logFailure logs rule violations at debug and everything else as an error
func (h *Hub) logFailure(c *Client, event EventType, err error) {
	fields := []zap.Field{
		zap.String("event", string(event)),
		zap.Error(err),
	}
	if kind := session.KindOf(err); kind != session.KindInternal {
		c.logger.Debug("event rejected", append(fields, zap.Stringer("kind", kind))...)
		return
	}
	c.logger.Error("event failed", fields...)
}
