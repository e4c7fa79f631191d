package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultSweepInterval is how often expired sessions are looked for
	DefaultSweepInterval = time.Hour

	// DefaultMaxAge is how long a session lives regardless of occupancy
	DefaultMaxAge = 24 * time.Hour
)

// SweeperConfig holds configuration for the expiry sweeper
type SweeperConfig struct {
	Service  Service
	Interval time.Duration
	MaxAge   time.Duration
	Logger   *zap.Logger

	// OnExpired is called with the IDs deleted by each sweep that deleted anything
	OnExpired func(sessionIDs []string)
}

// Sweeper periodically deletes sessions older than MaxAge
type Sweeper struct {
	service   Service
	interval  time.Duration
	maxAge    time.Duration
	logger    *zap.Logger
	onExpired func(sessionIDs []string)

	stopOnce sync.Once
	stop     chan struct{}
}

// NewSweeper creates a sweeper; zero durations fall back to the defaults
func NewSweeper(cfg *SweeperConfig) (*Sweeper, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.Service == nil {
		return nil, ErrNilService
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sweeper{
		service:   cfg.Service,
		interval:  interval,
		maxAge:    maxAge,
		logger:    logger,
		onExpired: cfg.OnExpired,
		stop:      make(chan struct{}),
	}, nil
}

// Start runs a sweep every interval until Stop is called
func (s *Sweeper) Start() error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.SweepOnce(context.Background())
		}
	}
}

// Stop ends the sweep loop
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// SweepOnce runs a single sweep and returns the deleted session IDs
func (s *Sweeper) SweepOnce(ctx context.Context) []string {
	out, err := s.service.SweepExpired(ctx, &SweepExpiredInput{
		MaxAge: s.maxAge,
	})
	if err != nil {
		s.logger.Error("session sweep failed", zap.Error(err))
		return nil
	}

	if len(out.DeletedSessionIDs) == 0 {
		return nil
	}

	s.logger.Info("expired sessions swept",
		zap.Strings("session_ids", out.DeletedSessionIDs),
		zap.Duration("max_age", s.maxAge),
	)

	if s.onExpired != nil {
		s.onExpired(out.DeletedSessionIDs)
	}

	return out.DeletedSessionIDs
}
