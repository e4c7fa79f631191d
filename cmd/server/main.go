package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/KirkDiggler/rollroom/internal/common/clock"
	"github.com/KirkDiggler/rollroom/internal/common/code"
	"github.com/KirkDiggler/rollroom/internal/common/uuid"
	"github.com/KirkDiggler/rollroom/internal/config"
	"github.com/KirkDiggler/rollroom/internal/dice"
	"github.com/KirkDiggler/rollroom/internal/handlers/ws"
	"github.com/KirkDiggler/rollroom/internal/observability"
	sessionRepo "github.com/KirkDiggler/rollroom/internal/repositories/session"
	"github.com/KirkDiggler/rollroom/internal/server"
	sessionService "github.com/KirkDiggler/rollroom/internal/services/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	clk := clock.New()

	repo, closeRepo, err := newRepository(cfg, clk, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	sessionSvc, err := sessionService.New(&sessionService.Config{
		Repository:  repo,
		DiceRoller:  dice.New(&dice.Config{}),
		Clock:       clk,
		IDGenerator: code.New(&code.Config{}),
		Logger:      logger.Named("sessions"),
	})
	if err != nil {
		return fmt.Errorf("failed to create session service: %w", err)
	}

	hub, err := ws.New(&ws.Config{
		SessionService: sessionSvc,
		UUID:           uuid.New(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SendBuffer:     cfg.Server.SendBuffer,
		WriteWait:      cfg.Server.WriteWait,
		PongWait:       cfg.Server.PongWait,
		Logger:         logger.Named("gateway"),
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}

	sweeper, err := sessionService.NewSweeper(&sessionService.SweeperConfig{
		Service:   sessionSvc,
		Interval:  cfg.Session.SweepInterval,
		MaxAge:    cfg.Session.MaxAge,
		Logger:    logger.Named("sweeper"),
		OnExpired: hub.DropSessions,
	})
	if err != nil {
		return fmt.Errorf("failed to create sweeper: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           hub.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc := server.NewLifecycle(logger)
	lc.Add("gateway", hub)
	lc.Add("sweeper", sweeper)
	lc.Add("http", &server.HTTPService{Server: httpServer})

	logger.Info("listening",
		zap.String("addr", httpServer.Addr),
		zap.String("store", cfg.Store.Backend),
		zap.Strings("allowed_origins", cfg.Server.AllowedOrigins),
	)

	return lc.Run(context.Background())
}

// newRepository builds the configured session store and a func that releases it
func newRepository(cfg config.Config, clk clock.Clock, logger *zap.Logger) (sessionRepo.Repository, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})

		repo, err := sessionRepo.NewRedis(&sessionRepo.Config{
			RedisClient: redisClient,
			TTL:         cfg.Session.MaxAge,
			Clock:       clk,
		})
		if err != nil {
			_ = redisClient.Close()
			return nil, nil, fmt.Errorf("failed to create redis session repository: %w", err)
		}

		logger.Info("using redis session store", zap.String("addr", cfg.Store.RedisAddr))
		return repo, func() { _ = redisClient.Close() }, nil
	default:
		return sessionRepo.NewMemory(), func() {}, nil
	}
}
