package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/KirkDiggler/rollroom/internal/common/clock"
	"github.com/KirkDiggler/rollroom/internal/common/code"
	"github.com/KirkDiggler/rollroom/internal/dice"
	"github.com/KirkDiggler/rollroom/internal/models"
	sessionRepo "github.com/KirkDiggler/rollroom/internal/repositories/session"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// service implements the Service interface
type service struct {
	repo          sessionRepo.Repository
	diceRoller    dice.Roller
	clock         clock.Clock
	idGenerator   code.Generator
	logger        *zap.Logger
	locks         *sessionLocks
	diceSides     int
	maxIDAttempts int
}

// New creates a new session service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.Repository == nil {
		return nil, ErrNilRepository
	}

	if cfg.DiceRoller == nil {
		return nil, ErrNilDiceRoller
	}

	if cfg.Clock == nil {
		return nil, ErrNilClock
	}

	if cfg.IDGenerator == nil {
		return nil, ErrNilIDGenerator
	}

	diceSides := cfg.DiceSides
	if diceSides <= 0 {
		diceSides = DefaultDiceSides
	}

	maxIDAttempts := cfg.MaxIDAttempts
	if maxIDAttempts <= 0 {
		maxIDAttempts = DefaultMaxIDAttempts
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &service{
		repo:          cfg.Repository,
		diceRoller:    cfg.DiceRoller,
		clock:         cfg.Clock,
		idGenerator:   cfg.IDGenerator,
		logger:        logger,
		locks:         newSessionLocks(),
		diceSides:     diceSides,
		maxIDAttempts: maxIDAttempts,
	}, nil
}

// CreateSession starts a new session with the caller as its only, accepted host
func (s *service) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	host := &models.Participant{
		ID:         input.HostID,
		Nickname:   input.Nickname,
		Avatar:     input.Avatar,
		IsHost:     true,
		IsAccepted: true,
	}

	for attempt := 0; attempt < s.maxIDAttempts; attempt++ {
		sessionID := s.idGenerator.NewCode()

		sess, err := s.tryCreate(ctx, sessionID, host)
		if err != nil {
			return nil, err
		}
		if sess == nil {
			s.logger.Debug("session ID collision, regenerating",
				zap.String("session_id", sessionID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}

		s.logger.Info("session created",
			zap.String("session_id", sessionID),
			zap.String("host_id", host.ID),
			zap.String("nickname", host.Nickname),
		)

		return &CreateSessionOutput{
			SessionID: sessionID,
			State:     sess.State,
		}, nil
	}

	return nil, ErrIDExhausted
}

// tryCreate stores a new session under sessionID, returning nil if the ID is taken
func (s *service) tryCreate(ctx context.Context, sessionID string, host *models.Participant) (*models.Session, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	exists, err := s.repo.SessionExists(ctx, &sessionRepo.SessionExistsInput{
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check session %s: %w", sessionID, err)
	}
	if exists {
		return nil, nil
	}

	hostCopy := *host
	sess := &models.Session{
		State: &models.SessionState{
			SessionID:           sessionID,
			Participants:        []*models.Participant{&hostCopy},
			WaitingParticipants: []*models.Participant{},
			RollHistory:         []*models.DiceRoll{},
			TotalRollCount:      0,
			Host:                host.ID,
		},
		CreatedAt: s.clock.Now(),
	}

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	return sess, nil
}

// JoinSession places a new participant in the waiting room; rejoining is a no-op
func (s *service) JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error) {
	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	sess, err := s.load(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	if findParticipant(sess.State.Participants, input.ParticipantID) != nil ||
		findParticipant(sess.State.WaitingParticipants, input.ParticipantID) != nil {
		return &JoinSessionOutput{
			State:         sess.State,
			AlreadyJoined: true,
		}, nil
	}

	sess.State.WaitingParticipants = append(sess.State.WaitingParticipants, &models.Participant{
		ID:       input.ParticipantID,
		Nickname: input.Nickname,
		Avatar:   input.Avatar,
	})

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("participant joined waiting room",
		zap.String("session_id", input.SessionID),
		zap.String("participant_id", input.ParticipantID),
		zap.String("nickname", input.Nickname),
	)

	return &JoinSessionOutput{
		State: sess.State,
	}, nil
}

// AcceptParticipant moves a waiting participant to the end of the participant list
func (s *service) AcceptParticipant(ctx context.Context, input *AcceptParticipantInput) (*AcceptParticipantOutput, error) {
	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	sess, err := s.load(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	if sess.State.Host != input.RequesterID {
		return nil, ErrNotHost
	}

	waiting, index, found := lo.FindIndexOf(sess.State.WaitingParticipants, func(p *models.Participant) bool {
		return p.ID == input.ParticipantID
	})
	if !found {
		return nil, ErrParticipantNotWaiting
	}

	waiting.IsAccepted = true
	sess.State.WaitingParticipants = append(sess.State.WaitingParticipants[:index], sess.State.WaitingParticipants[index+1:]...)
	sess.State.Participants = append(sess.State.Participants, waiting)

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("participant accepted",
		zap.String("session_id", input.SessionID),
		zap.String("participant_id", input.ParticipantID),
	)

	return &AcceptParticipantOutput{
		State: sess.State,
	}, nil
}

// AcceptAllParticipants empties the waiting room into the participant list in arrival order
func (s *service) AcceptAllParticipants(ctx context.Context, input *AcceptAllParticipantsInput) (*AcceptAllParticipantsOutput, error) {
	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	sess, err := s.load(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	if sess.State.Host != input.RequesterID {
		return nil, ErrNotHost
	}

	accepted := len(sess.State.WaitingParticipants)
	if accepted == 0 {
		return &AcceptAllParticipantsOutput{
			State: sess.State,
		}, nil
	}

	for _, p := range sess.State.WaitingParticipants {
		p.IsAccepted = true
	}
	sess.State.Participants = append(sess.State.Participants, sess.State.WaitingParticipants...)
	sess.State.WaitingParticipants = []*models.Participant{}

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("waiting room accepted",
		zap.String("session_id", input.SessionID),
		zap.Int("accepted", accepted),
	)

	return &AcceptAllParticipantsOutput{
		State:    sess.State,
		Accepted: accepted,
	}, nil
}

// RollDice records a roll for an accepted participant. Any accepted participant may roll at any time.
func (s *service) RollDice(ctx context.Context, input *RollDiceInput) (*RollDiceOutput, error) {
	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	sess, err := s.load(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	roller := findParticipant(sess.State.Participants, input.RollerID)
	if roller == nil {
		return nil, ErrNotAccepted
	}

	roll := &models.DiceRoll{
		Value:          s.diceRoller.Roll(s.diceSides),
		RollerID:       roller.ID,
		RollerNickname: roller.Nickname,
		RollerAvatar:   roller.Avatar,
		Timestamp:      s.clock.Now(),
	}

	sess.State.RollHistory = append(sess.State.RollHistory, roll)
	sess.State.TotalRollCount++
	roller.RollCount++

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("dice rolled",
		zap.String("session_id", input.SessionID),
		zap.String("roller_id", roller.ID),
		zap.String("nickname", roller.Nickname),
		zap.Int("value", roll.Value),
		zap.Int("total_roll_count", sess.State.TotalRollCount),
	)

	rollCopy := *roll
	return &RollDiceOutput{
		Roll:  &rollCopy,
		State: sess.State,
	}, nil
}

// ResetCounter clears the roll history and zeroes every counter
func (s *service) ResetCounter(ctx context.Context, input *ResetCounterInput) (*ResetCounterOutput, error) {
	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	sess, err := s.load(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	if sess.State.Host != input.RequesterID {
		return nil, ErrNotHost
	}

	sess.State.RollHistory = []*models.DiceRoll{}
	sess.State.TotalRollCount = 0
	for _, p := range sess.State.Participants {
		p.RollCount = 0
	}
	for _, p := range sess.State.WaitingParticipants {
		p.RollCount = 0
	}

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("counter reset",
		zap.String("session_id", input.SessionID),
	)

	return &ResetCounterOutput{
		State: sess.State,
	}, nil
}

// RemoveParticipant drops a participant from both lists. The session is
// deleted once no accepted participant remains, even if some are waiting.
// The host is never reassigned.
func (s *service) RemoveParticipant(ctx context.Context, input *RemoveParticipantInput) (*RemoveParticipantOutput, error) {
	unlock := s.locks.lock(input.SessionID)
	defer unlock()

	sess, err := s.load(ctx, input.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return &RemoveParticipantOutput{}, nil
	}
	if err != nil {
		return nil, err
	}

	notRemoved := func(p *models.Participant, _ int) bool {
		return p.ID != input.ParticipantID
	}
	participants := lo.Filter(sess.State.Participants, notRemoved)
	waiting := lo.Filter(sess.State.WaitingParticipants, notRemoved)

	removed := len(participants) != len(sess.State.Participants) ||
		len(waiting) != len(sess.State.WaitingParticipants)

	if len(participants) == 0 {
		if err := s.repo.DeleteSession(ctx, &sessionRepo.DeleteSessionInput{
			SessionID: input.SessionID,
		}); err != nil {
			return nil, fmt.Errorf("failed to delete session %s: %w", input.SessionID, err)
		}

		s.logger.Info("session deleted",
			zap.String("session_id", input.SessionID),
			zap.String("reason", "empty"),
			zap.Int("waiting_dropped", len(waiting)),
		)

		return &RemoveParticipantOutput{
			Removed:        removed,
			SessionDeleted: true,
		}, nil
	}

	if !removed {
		return &RemoveParticipantOutput{
			State: sess.State,
		}, nil
	}

	sess.State.Participants = participants
	sess.State.WaitingParticipants = waiting

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("session_id", input.SessionID),
		zap.String("participant_id", input.ParticipantID),
	}
	if input.ParticipantID == sess.State.Host {
		// Host-gated operations are unreachable for the rest of this session
		s.logger.Warn("host left session, session has no reachable host", fields...)
	} else {
		s.logger.Info("participant left session", fields...)
	}

	return &RemoveParticipantOutput{
		State:   sess.State,
		Removed: true,
	}, nil
}

// GetSessionState returns a snapshot of a session
func (s *service) GetSessionState(ctx context.Context, input *GetSessionStateInput) (*GetSessionStateOutput, error) {
	sess, err := s.load(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	return &GetSessionStateOutput{
		State: sess.State,
	}, nil
}

// SessionExists reports whether a session is live
func (s *service) SessionExists(ctx context.Context, input *SessionExistsInput) (*SessionExistsOutput, error) {
	if input.SessionID == "" {
		return &SessionExistsOutput{}, nil
	}

	exists, err := s.repo.SessionExists(ctx, &sessionRepo.SessionExistsInput{
		SessionID: input.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check session %s: %w", input.SessionID, err)
	}

	return &SessionExistsOutput{
		Exists: exists,
	}, nil
}

// ListSessions returns the IDs of every live session
func (s *service) ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	out, err := s.repo.ListSessions(ctx, &sessionRepo.ListSessionsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return &ListSessionsOutput{
		SessionIDs: out.SessionIDs,
	}, nil
}

// SweepExpired deletes every session created more than MaxAge ago, occupied or not
func (s *service) SweepExpired(ctx context.Context, input *SweepExpiredInput) (*SweepExpiredOutput, error) {
	if input.MaxAge <= 0 {
		return nil, ErrInvalidMaxAge
	}

	list, err := s.repo.ListSessions(ctx, &sessionRepo.ListSessionsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	deleted := make([]string, 0)
	for _, sessionID := range list.SessionIDs {
		expired, err := s.deleteIfExpired(ctx, sessionID, input)
		if err != nil {
			return nil, err
		}
		if expired {
			deleted = append(deleted, sessionID)
		}
	}

	return &SweepExpiredOutput{
		DeletedSessionIDs: deleted,
	}, nil
}

func (s *service) deleteIfExpired(ctx context.Context, sessionID string, input *SweepExpiredInput) (bool, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		// Removed since the list was taken
		return false, nil
	}
	if err != nil {
		return false, err
	}

	age := s.clock.Now().Sub(sess.CreatedAt)
	if age <= input.MaxAge {
		return false, nil
	}

	if err := s.repo.DeleteSession(ctx, &sessionRepo.DeleteSessionInput{
		SessionID: sessionID,
	}); err != nil {
		return false, fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}

	s.logger.Info("session deleted",
		zap.String("session_id", sessionID),
		zap.String("reason", "expired"),
		zap.Duration("age", age),
	)

	return true, nil
}

// load fetches a session, mapping a missing record to ErrSessionNotFound
func (s *service) load(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	sess, err := s.repo.GetSession(ctx, &sessionRepo.GetSessionInput{
		SessionID: sessionID,
	})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}

	return sess, nil
}

func (s *service) save(ctx context.Context, sess *models.Session) error {
	if err := s.repo.SaveSession(ctx, &sessionRepo.SaveSessionInput{
		Session: sess,
	}); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.State.SessionID, err)
	}
	return nil
}

func findParticipant(participants []*models.Participant, id string) *models.Participant {
	p, found := lo.Find(participants, func(p *models.Participant) bool {
		return p.ID == id
	})
	if !found {
		return nil
	}
	return p
}
