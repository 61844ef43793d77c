package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/tablegate/internal/config"
	"github.com/example/tablegate/internal/line"
	"github.com/example/tablegate/internal/postgres"
	redisx "github.com/example/tablegate/internal/redis"
	postgresrepo "github.com/example/tablegate/internal/repository/postgres"
	redisrepo "github.com/example/tablegate/internal/repository/redis"
	"github.com/example/tablegate/internal/service"
	"github.com/example/tablegate/internal/service/admission"
	httpgin "github.com/example/tablegate/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	pubsub     *redisx.RulesPubSub
	cache      *redisrepo.Cache
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	if err := postgres.Migrate(context.Background(), pgxPool); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	rdb, err := redisx.New(context.Background(), redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisx.NewRulesPubSub(rdb)
	cmdLimiter := redisrepo.NewSlidingWindowLimiter(rdb, "cmd", cfg.Capacity.CommandLimit, cfg.Capacity.CommandWindow)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 24*time.Hour)

	var slotCounter *redisrepo.SlotCounter
	if cfg.Capacity.AtomicAdmission {
		slotCounter = redisrepo.NewSlotCounter(rdb, 48*time.Hour)
	}

	services := service.NewServices(store, cache, pubsub, slotCounter, idempotencyStore, cmdLimiter, logger, service.Config{
		Admission: admission.Config{
			FailClosed:          cfg.Capacity.FailClosed,
			CollaboratorTimeout: cfg.Capacity.CollaboratorTimeout,
			StoreDailyCeiling:   cfg.Capacity.DailyCeiling,
		},
	})

	lineClient := line.NewClient(cfg.Line.ChannelToken, cfg.Line.ChannelSecret)

	router := httpgin.NewRouter(services, lineClient, httpgin.Options{
		DefaultStoreID: cfg.Capacity.DefaultStoreID,
		LIFFURL:        cfg.Line.LIFFURL,
		Health: httpgin.HealthFlags{
			HasLineToken:  cfg.Line.ChannelToken != "",
			HasLineSecret: cfg.Line.ChannelSecret != "",
			HasLIFF:       cfg.Line.LIFFURL != "",
			HasDatabase:   true,
			HasRedis:      true,
		},
	}, logger)

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
		pubsub: pubsub,
		cache:  cache,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop locally cached rule sets when another instance changes them.
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, storeID string) {
			if err := a.cache.InvalidateRules(ctx, storeID); err != nil {
				a.logger.Warn("rule cache invalidation failed",
					"store_id", storeID, "error", err.Error())
			}
		})
		if err != nil && gCtx.Err() == nil {
			a.logger.Error("rules subscription stopped", "error", err.Error())
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
