package main

import (
	"context"
	"errors"
	"log"
	"time"

	"committee-live/config"
	"committee-live/internal/commands"
	"committee-live/internal/events"
	"committee-live/internal/handler"
	"committee-live/internal/proxy"
	"committee-live/internal/redis"
	"committee-live/internal/repository"
	"committee-live/internal/server"
	"committee-live/internal/services"
	"committee-live/internal/session"
	"committee-live/internal/storage"
	"committee-live/internal/websocket"
	"committee-live/pkg/database"
	"committee-live/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := repository.InitSchema(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	pollRepo := repository.NewPollRepository(db)
	eventRepo := repository.NewEventRepository(db)
	memberRepo := repository.NewMemberRepository(db)

	bus := commands.NewBus(proxy.NewAccessControl())
	hub := websocket.NewHub()
	tokenSvc := services.NewTokenService(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		publisher      events.Publisher = events.NewLocalPublisher(hub)
		locker         services.Locker
		presence       services.Presence
		connectLimiter *redis.RateLimiter
		bridge         *websocket.RedisBridge
	)
	if cfg.RedisEnabled {
		redisClient := redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redis.Ping(ctx, redisClient); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer func() { _ = redisClient.Close() }()

		publisher = events.NewRedisPublisher(redis.NewPublisher(redisClient))
		locker = redis.NewGroupLocker(redisClient, cfg.LockExpiry)
		presence = redis.NewPresenceStore(redisClient, cfg.PresenceTTL)
		connectLimiter = redis.NewRateLimiter(redisClient, redis.RateLimitConfig{
			ConnectLimit:  cfg.WSConnectLimit,
			ConnectWindow: time.Minute,
		})

		bridge = websocket.NewRedisBridge(redis.NewSubscriber(redisClient), hub)
		l.Infof("Redis fan-out enabled on %s:%s", cfg.RedisHost, cfg.RedisPort)
	}

	pollOpts := []services.PollOption{services.WithLocker(locker)}
	if presence != nil {
		pollOpts = append(pollOpts, services.WithPresence(presence))
	}
	var archive handler.ArchiveLinker
	if cfg.ArchiveEnabled() {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3Region,
			Bucket:     cfg.S3Bucket,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Endpoint:   cfg.S3Endpoint,
			PresignTTL: 15 * time.Minute,
		})
		if err != nil {
			log.Fatalf("Failed to create S3 client: %v", err)
		}
		resultsArchive := storage.NewResultsArchive(s3Client)
		archive = resultsArchive
		pollOpts = append(pollOpts, services.WithArchiver(resultsArchive))
		l.Infof("Results archive enabled in bucket %s", cfg.S3Bucket)
	}

	pollSvc := services.NewPollService(pollRepo, eventRepo, memberRepo, bus, pollOpts...)
	eventSvc := services.NewEventService(eventRepo, bus)

	registry := session.NewRegistry(publisher, pollSvc)
	if bridge != nil {
		bridge.WithSync(services.NewSessionSync(registry, pollSvc, eventSvc))
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.Logger.Error("redis bridge stopped", zap.Error(err))
			}
		}()
	}
	wsHandler := websocket.NewHandler(
		tokenSvc,
		websocket.NewGroupAuthorizer(memberRepo),
		registry,
		websocket.NewRouter(bus),
		hub,
		websocket.RateLimits{PerSecond: cfg.VoteRatePerSec, Burst: cfg.VoteBurst},
	)

	handlers := &server.Handlers{
		DB:        db,
		Registry:  registry,
		WebSocket: wsHandler,
		Results:   handler.NewResultsHandler(pollSvc, memberRepo, archive),
		Tokens:    tokenSvc,
	}
	if connectLimiter != nil {
		handlers.ConnectLimiter = connectLimiter
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(handlers)
	srv.OnShutdown(func(context.Context) {
		cancel()
		registry.Shutdown()
		pollSvc.WaitArchived()
	})

	if err := srv.Start(); err != nil {
		l.Logger.Error("server stopped with error", zap.Error(err))
	}
}
