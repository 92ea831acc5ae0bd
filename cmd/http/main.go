package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/configs"
	"github.com/hilthontt/zeroroom/internal/infrastructure/contracts"
	"github.com/hilthontt/zeroroom/internal/infrastructure/events"
	"github.com/hilthontt/zeroroom/internal/infrastructure/expiry"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
	"github.com/hilthontt/zeroroom/internal/infrastructure/messaging"
	"github.com/hilthontt/zeroroom/internal/infrastructure/metrics"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/zeroroom/internal/infrastructure/repository"
	"github.com/hilthontt/zeroroom/internal/infrastructure/tracing"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ws"
	"github.com/hilthontt/zeroroom/internal/persistence/db"
	auditRepository "github.com/hilthontt/zeroroom/internal/persistence/repository"
	"github.com/hilthontt/zeroroom/internal/presentation/api"
	"github.com/hilthontt/zeroroom/internal/presentation/handler/health"
	"github.com/hilthontt/zeroroom/internal/presentation/handler/rooms"
	"github.com/hilthontt/zeroroom/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const (
	serviceName = "zeroroom-api"
)

var configPath string

// @title        ZeroRoom API
// @version      1.0
// @description  Ephemeral, invite-only chat rooms. Nothing is stored: rooms live in memory and vanish when the last member leaves.
// @BasePath     /api
func main() {
	rootCmd := &cobra.Command{
		Use:   "zeroroom",
		Short: "Run the ZeroRoom chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the config file (defaults to ZERO_ROOM_CONFIG or ./config.yaml)")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := configs.Load(configs.DetermineConfigPath(configPath))
	if err != nil {
		return err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})
	defer logger.Sync()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: tracing.NewDefaultConfig(serviceName).Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize the tracer: %w", err)
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = shutdownTracer(shutdownCtx)
	}()

	roomMetrics := metrics.New()

	policy, err := expiry.NewPolicy(cfg.Room.DefaultDuration, cfg.Room.DurationOptions, nil)
	if err != nil {
		return err
	}

	hub := ws.NewHub(logger, ws.WithDropHook(roomMetrics.DeliveryDropped))

	notifiers := expiry.Notifiers{hub, roomMetrics}
	observers := []domain.RoomObserver{hub, roomMetrics}

	var rabbitmq *messaging.RabbitMQ
	if cfg.RabbitMQ.URI != "" {
		rabbitmq, err = messaging.NewRabbitMQ(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
		if err != nil {
			return err
		}
		defer rabbitmq.Close()

		if err := rabbitmq.DeclareQueue(cfg.RabbitMQ.Queue, contracts.RoomRoutingKeys); err != nil {
			return err
		}

		logger.Info(logging.RabbitMQ, logging.Startup, "connected to rabbitmq", map[logging.ExtraKey]any{
			"exchange": cfg.RabbitMQ.Exchange,
		})

		roomPublisher := events.NewRoomPublisher(rabbitmq, logger, 0)
		go roomPublisher.Run(ctx)

		notifiers = append(notifiers, roomPublisher)
		observers = append(observers, roomPublisher)
	}

	var audit domain.RoomAuditRepository
	if cfg.Mongo.URI != "" {
		mongoCfg := &db.MongoConfig{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database}
		mongoClient, err := db.NewMongoClient(ctx, mongoCfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = db.DisconnectMongo(context.Background(), mongoClient)
		}()

		audit = auditRepository.NewRoomAuditLogRepository(db.GetDatabase(mongoClient, mongoCfg), cfg.Mongo.AuditTTL)
		if err := audit.EnsureIndexes(ctx); err != nil {
			logger.Warn(logging.MongoDB, logging.Startup, "failed to ensure audit indexes", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}

		if rabbitmq != nil {
			roomConsumer := events.NewRoomConsumer(rabbitmq, cfg.RabbitMQ.Queue, audit, logger)
			go func() {
				if err := roomConsumer.Listen(ctx); err != nil {
					logger.Error(logging.RabbitMQ, logging.Consume, "room consumer stopped", map[logging.ExtraKey]any{
						logging.ErrorMessage: err.Error(),
					})
				}
			}()
		}
	}

	watcher := expiry.NewWatcher(nil, notifiers, logger, nil)
	defer watcher.Stop()
	observers = append(observers, watcher)

	registry := repository.NewRoomRegistry(
		repository.WithMaxMembers(cfg.Room.MaxMembers),
		repository.WithDefaultTTL(policy.DefaultTTL()),
		repository.WithMaxMessageLength(cfg.Room.MaxMessageLength),
		repository.WithObserver(observers...),
	)
	watcher.SetRooms(registry)

	httpCache, messageCache := ratelimiter.NewInMemory(), ratelimiter.NewInMemory()
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach redis: %w", err)
		}
		_ = httpCache.Close()
		_ = messageCache.Close()
		httpCache = ratelimiter.NewRedis(redisClient, "zeroroom:http:")
		messageCache = ratelimiter.NewRedis(redisClient, "zeroroom:msg:")
		defer redisClient.Close()
	}

	httpLimiter := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		Cache:            httpCache,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})
	defer httpLimiter.Close()

	messageLimiter := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MessagesPerSecond,
		MaxBurst:         cfg.RateLimiter.MessageBurst,
		Cache:            messageCache,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
	})
	defer messageLimiter.Close()

	roomHandler := rooms.NewHandler(
		session.Config{
			Registry:    registry,
			Policy:      policy,
			Sender:      hub,
			MaxMembers:  cfg.Room.MaxMembers,
			Limiter:     messageLimiter,
			Logger:      logger,
			Tracer:      tracing.GetTracer("session"),
			Connections: roomMetrics,
		},
		hub,
		ws.NewUpgrader(cfg.WS.ReadBufferSize, cfg.WS.WriteBufferSize, cfg.HTTP.AllowedOrigins),
		ws.ClientConfig{
			SendQueueSize:  cfg.WS.SendQueueSize,
			MaxMessageSize: cfg.WS.MaxMessageSize,
			WriteWait:      cfg.WS.WriteWait,
			PongWait:       cfg.WS.PongWait,
		},
		cfg.Room.MaxMessageLength,
		audit,
		logger,
	)
	healthHandler := health.NewHandler(registry, hub)

	app := api.NewApplication(*cfg, roomHandler, healthHandler, logger, httpLimiter, roomMetrics)

	mux := app.Mount()
	if err := app.Run(ctx, mux); err != nil {
		logger.Error(logging.General, logging.Shutdown, "server stopped with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	return nil
}
