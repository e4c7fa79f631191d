package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/KirkDiggler/rollroom/internal/common/clock"
	"github.com/KirkDiggler/rollroom/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	sessionKeyPrefix = "session:"
	sessionsIndexKey = "sessions"
)

// Config holds configuration for the Redis session repository
type Config struct {
	// Redis client
	RedisClient *redis.Client

	// TTL applied to every session key, zero disables expiry
	TTL time.Duration

	// Clock the TTL is counted against; defaults to the system clock.
	// Share it with the session service so both agree on a session's age.
	Clock clock.Clock
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
	ttl    time.Duration
	clock  clock.Clock
}

// NewRedis creates a new Redis-backed session repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if cfg.TTL < 0 {
		return nil, errors.New("ttl cannot be negative")
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &redisRepository{
		client: cfg.RedisClient,
		ttl:    cfg.TTL,
		clock:  clk,
	}, nil
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("%s%s", sessionKeyPrefix, sessionID)
}

// SaveSession persists a session to Redis
func (r *redisRepository) SaveSession(ctx context.Context, input *SaveSessionInput) error {
	if input == nil || input.Session == nil || input.Session.State == nil {
		return errors.New("input and session cannot be nil")
	}
	if input.Session.State.SessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	sessionJSON, err := json.Marshal(input.Session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	sessionID := input.Session.State.SessionID

	// Expiry counts from creation, so later saves keep the original deadline
	ttl := r.ttl
	if ttl > 0 && !input.Session.CreatedAt.IsZero() {
		ttl = input.Session.CreatedAt.Add(r.ttl).Sub(r.clock.Now())
		if ttl <= 0 {
			ttl = time.Millisecond
		}
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sessionID), sessionJSON, ttl)
	pipe.SAdd(ctx, sessionsIndexKey, sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by ID from Redis
func (r *redisRepository) GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	sessionJSON, err := r.client.Get(ctx, sessionKey(input.SessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(sessionJSON), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sess.State == nil {
		return nil, fmt.Errorf("session %s has no state", input.SessionID)
	}

	// Normalise nil slices the same way the memory backend does
	return sess.Clone(), nil
}

// SessionExists reports whether a session key is present in Redis
func (r *redisRepository) SessionExists(ctx context.Context, input *SessionExistsInput) (bool, error) {
	if input == nil || input.SessionID == "" {
		return false, nil
	}

	n, err := r.client.Exists(ctx, sessionKey(input.SessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// DeleteSession removes a session from Redis
func (r *redisRepository) DeleteSession(ctx context.Context, input *DeleteSessionInput) error {
	if input == nil || input.SessionID == "" {
		return errors.New("input and session ID cannot be empty")
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(input.SessionID))
	pipe.SRem(ctx, sessionsIndexKey, input.SessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// ListSessions returns the IDs of live sessions, pruning index entries whose key expired
func (r *redisRepository) ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	sessionIDs, err := r.client.SMembers(ctx, sessionsIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session IDs: %w", err)
	}

	if len(sessionIDs) == 0 {
		return &ListSessionsOutput{
			SessionIDs: []string{},
		}, nil
	}

	pipe := r.client.Pipeline()
	existsCommands := make(map[string]*redis.IntCmd, len(sessionIDs))
	for _, sessionID := range sessionIDs {
		existsCommands[sessionID] = pipe.Exists(ctx, sessionKey(sessionID))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to check sessions: %w", err)
	}

	live := make([]string, 0, len(sessionIDs))
	var stale []interface{}
	for sessionID, cmd := range existsCommands {
		if cmd.Val() > 0 {
			live = append(live, sessionID)
		} else {
			stale = append(stale, sessionID)
		}
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, sessionsIndexKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune session index: %w", err)
		}
	}

	sort.Strings(live)
	return &ListSessionsOutput{
		SessionIDs: live,
	}, nil
}
