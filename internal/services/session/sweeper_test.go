package session

import (
	"context"
	"testing"
	"time"

	"github.com/KirkDiggler/rollroom/internal/common/clock/mocks"
	"github.com/KirkDiggler/rollroom/internal/common/code"
	"github.com/KirkDiggler/rollroom/internal/dice"
	sessionRepo "github.com/KirkDiggler/rollroom/internal/repositories/session"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type SweeperTestSuite struct {
	suite.Suite
	mockCtrl  *gomock.Controller
	mockClock *mocks.MockClock
	svc       Service
	now       time.Time
	ctx       context.Context
}

func (s *SweeperTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockClock = mocks.NewMockClock(s.mockCtrl)
	s.now = time.Date(2025, 4, 19, 12, 0, 0, 0, time.UTC)
	s.ctx = context.Background()

	s.mockClock.EXPECT().Now().DoAndReturn(func() time.Time { return s.now }).AnyTimes()

	svc, err := New(&Config{
		Repository:  sessionRepo.NewMemory(),
		DiceRoller:  dice.New(&dice.Config{Seed: 1}),
		Clock:       s.mockClock,
		IDGenerator: code.New(&code.Config{Seed: 1}),
	})
	s.Require().NoError(err)
	s.svc = svc
}

func (s *SweeperTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestSweeperTestSuite(t *testing.T) {
	suite.Run(t, new(SweeperTestSuite))
}

func (s *SweeperTestSuite) TestNewSweeper_Validation() {
	_, err := NewSweeper(nil)
	s.Equal(ErrNilConfig, err)

	_, err = NewSweeper(&SweeperConfig{})
	s.Equal(ErrNilService, err)

	sweeper, err := NewSweeper(&SweeperConfig{Service: s.svc})
	s.Require().NoError(err)
	s.Equal(DefaultSweepInterval, sweeper.interval)
	s.Equal(DefaultMaxAge, sweeper.maxAge)
}

func (s *SweeperTestSuite) TestSweepOnce_DeletesOccupiedExpiredSessions() {
	old, err := s.svc.CreateSession(s.ctx, &CreateSessionInput{HostID: "old-host", Nickname: "Ana"})
	s.Require().NoError(err)
	_, err = s.svc.JoinSession(s.ctx, &JoinSessionInput{SessionID: old.SessionID, ParticipantID: "guest", Nickname: "Bia"})
	s.Require().NoError(err)

	s.now = s.now.Add(2 * time.Hour)
	fresh, err := s.svc.CreateSession(s.ctx, &CreateSessionInput{HostID: "new-host", Nickname: "Caio"})
	s.Require().NoError(err)

	var notified []string
	sweeper, err := NewSweeper(&SweeperConfig{
		Service: s.svc,
		MaxAge:  time.Hour,
		OnExpired: func(ids []string) {
			notified = append(notified, ids...)
		},
	})
	s.Require().NoError(err)

	s.now = s.now.Add(30 * time.Minute)
	deleted := sweeper.SweepOnce(s.ctx)
	s.Equal([]string{old.SessionID}, deleted)
	s.Equal([]string{old.SessionID}, notified)

	exists, err := s.svc.SessionExists(s.ctx, &SessionExistsInput{SessionID: fresh.SessionID})
	s.Require().NoError(err)
	s.True(exists.Exists)
}

func (s *SweeperTestSuite) TestSweepOnce_NothingExpiredDoesNotNotify() {
	_, err := s.svc.CreateSession(s.ctx, &CreateSessionInput{HostID: "host", Nickname: "Ana"})
	s.Require().NoError(err)

	called := false
	sweeper, err := NewSweeper(&SweeperConfig{
		Service:   s.svc,
		MaxAge:    time.Hour,
		OnExpired: func([]string) { called = true },
	})
	s.Require().NoError(err)

	s.Nil(sweeper.SweepOnce(s.ctx))
	s.False(called)
}

func (s *SweeperTestSuite) TestStartStop() {
	sweeper, err := NewSweeper(&SweeperConfig{Service: s.svc, Interval: time.Millisecond})
	s.Require().NoError(err)

	done := make(chan error, 1)
	go func() { done <- sweeper.Start() }()

	time.Sleep(5 * time.Millisecond)
	sweeper.Stop()
	sweeper.Stop()

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("sweeper did not stop")
	}
}
