package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teguh2522009-hub/Benihcandi/internal/badge"
	"github.com/teguh2522009-hub/Benihcandi/internal/config"
	"github.com/teguh2522009-hub/Benihcandi/internal/event"
	handler "github.com/teguh2522009-hub/Benihcandi/internal/handler/http"
	"github.com/teguh2522009-hub/Benihcandi/internal/repository"
	memoryrepo "github.com/teguh2522009-hub/Benihcandi/internal/repository/memory"
	redisrepo "github.com/teguh2522009-hub/Benihcandi/internal/repository/redis"
	"github.com/teguh2522009-hub/Benihcandi/internal/service"
	"github.com/teguh2522009-hub/Benihcandi/internal/view"
	"github.com/teguh2522009-hub/Benihcandi/pkg/health"
	"github.com/teguh2522009-hub/Benihcandi/pkg/tracing"
)

// App wires together all dependencies and runs the cart service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	producer       *event.Producer
	tracerShutdown func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Tracing is a no-op unless enabled in config.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  "cart-service",
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
		Enabled:      cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		tracerShutdown: tracerShutdown,
	}

	healthHandler := health.NewHandler()

	var store repository.CartRepository
	switch cfg.Store {
	case "memory":
		store = memoryrepo.NewCartRepository(logger)
		logger.Info("using in-memory cart store")
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		healthHandler.Register("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})

		a.rdb = rdb
		cartTTL := time.Duration(cfg.CartTTL) * time.Hour
		store = redisrepo.NewCartRepository(rdb, cartTTL, logger)
	}

	var events event.Publisher = event.Nop{}
	if brokers := nonEmpty(cfg.KafkaBrokers); len(brokers) > 0 {
		a.producer = event.NewProducer(brokers, logger)
		events = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", brokers))
	} else {
		logger.Info("no kafka brokers configured, events disabled")
	}

	// Build the dependency graph.
	badges := badge.NewHub()
	cartService := service.NewCartService(store, badges, events, logger)

	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	router := handler.NewRouter(cartService, badges, renderer, healthHandler, logger, cfg.PprofCIDRs)

	a.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No write timeout so the badge stream can stay open.
		IdleTimeout: 60 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if err := a.tracerShutdown(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

// nonEmpty drops blank entries, so an unset broker list parses to none.
func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
