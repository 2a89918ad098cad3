package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/member-registry/internal/api/http"
	"github.com/spec-kit/member-registry/internal/api/http/handlers"
	"github.com/spec-kit/member-registry/internal/auth"
	"github.com/spec-kit/member-registry/internal/config"
	"github.com/spec-kit/member-registry/internal/domain"
	"github.com/spec-kit/member-registry/internal/events"
	"github.com/spec-kit/member-registry/internal/observability"
	"github.com/spec-kit/member-registry/internal/persistence"
	"github.com/spec-kit/member-registry/internal/repository"
	"github.com/spec-kit/member-registry/internal/service"
	"github.com/spec-kit/member-registry/internal/ussd"
	"github.com/spec-kit/member-registry/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	locationRepo := repository.NewLocationRepository(pool)
	memberRepo := repository.NewMemberRepository(pool)
	sessionLogRepo := repository.NewSessionLogRepository(pool)

	sessionStore := newSessionStore(ctx, rdb, cfg.USSD, logger)

	engine := ussd.NewEngine(locationRepo, memberRepo, cfg.USSD, logger,
		func(ctx context.Context, member *domain.Member) {
			metrics.RecordRegistration(string(domain.ChannelUSSD))
			_ = dispatcher.Publish(ctx, events.Event{
				ID:        uuid.NewString(),
				Type:      events.EventMemberRegistered,
				Timestamp: time.Now(),
				Payload: events.MemberRegisteredPayload{
					MemberID: member.ID,
					FullName: member.FullName(),
					Phone:    member.Phone,
					WardID:   member.WardID,
					Channel:  member.Channel,
				},
			})
		})

	authService := service.NewAuthService(*cfg, userRepo)
	locationService := service.NewLocationService(locationRepo)
	memberService := service.NewMemberService(memberRepo, locationRepo, dispatcher)
	service.NewNotificationService(cfg.Notification, dispatcher, logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	worker.StartSessionCleanup(ctx, sessionStore, cfg.USSD.CleanupInterval(), metrics, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Users:          handlers.NewUsersHandler(authService),
		Locations:      handlers.NewLocationsHandler(locationService),
		Members:        handlers.NewMembersHandler(memberService, metrics),
		USSD:           handlers.NewUSSDHandler(engine, sessionStore, sessionLogRepo, cfg.USSD, metrics, dispatcher, logger),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	logger.Info("ussd gateway configured",
		zap.String("service_code", cfg.USSD.ServiceCode),
		zap.Duration("session_timeout", cfg.USSD.SessionTimeout()),
	)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// newSessionStore prefers Redis so sessions survive restarts; when Redis is
// unreachable at boot it falls back to the in-memory store.
func newSessionStore(ctx context.Context, rdb *persistence.Redis, cfg config.USSDConfig, logger *zap.Logger) ussd.SessionStore {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx); err != nil {
		logger.Warn("redis unavailable, using in-memory session store", zap.Error(err))
		return ussd.NewMemoryStore(cfg.SessionTimeout())
	}
	return ussd.NewRedisStore(rdb.Client, cfg.SessionTimeout())
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
