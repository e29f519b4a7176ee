// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"courtmatch/internal/adapter/notify"
	"courtmatch/internal/adapter/pool"
	"courtmatch/internal/adapter/storage"
	"courtmatch/internal/config"
	"courtmatch/internal/domain/clock"
	matchDomain "courtmatch/internal/domain/match"
	"courtmatch/internal/server"
	geoService "courtmatch/internal/service/geo"
	matchService "courtmatch/internal/service/match"
	"courtmatch/internal/service/reputation"
	roomService "courtmatch/internal/service/room"
	scheduleService "courtmatch/internal/service/schedule"
	surveyService "courtmatch/internal/service/survey"
)

func main() {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Environment)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize persistence
	store, cleanup, err := initStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	defer cleanup()

	// Initialize event publishing
	notifier, closeNotifier, err := initNotifier(cfg.NATS, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer closeNotifier()

	clk := clock.System{}

	// Initialize services
	slotEngine := scheduleService.NewEngine(clk)
	repModel := reputation.NewModel(store, notifier, log)
	poolProvider := pool.NewStoreProvider(store, log)

	ranker := matchService.NewRanker(
		poolProvider,
		nil, // searches carry their own coordinates server-side
		geoService.NewFilter(),
		slotEngine,
		matchService.RankerConfig{
			DefaultRadiusMiles:     cfg.Match.DefaultRadiusMiles,
			SkipGeoWhenUnavailable: cfg.Match.SkipGeoWhenUnavailable,
		},
		log,
	)

	rooms := roomService.NewLifecycle(store, notifier, clk, log)
	if err := rooms.Restore(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to restore room registry")
	}

	ledger := surveyService.NewLedger(store, repModel, notifier, clk, log)
	if err := ledger.Restore(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to restore survey ledger")
	}

	// Start the room expiry sweep
	sweeper := roomService.NewSweeper(rooms, cfg.Room.SweepInterval, log)
	if err := sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start expiry sweeper")
	}

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		clk,
		ranker,
		rooms,
		ledger,
		repModel,
		slotEngine,
		poolProvider,
		matchDomain.ScoringStrategy(cfg.Match.Strategy),
	)

	// Start HTTP server
	go func() {
		log.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Info().Msg("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := sweeper.Stop(); err != nil {
		log.Error().Err(err).Msg("Sweeper shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// newLogger builds the process logger: console output in development, JSON
// elsewhere.
func newLogger(environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if environment == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// initStore builds the configured persistence backend.
func initStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		db, err := initDatabase(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("unable to ping redis: %w", err)
		}
		return storage.NewRedisStore(client), func() { _ = client.Close() }, nil

	default:
		return storage.NewMemoryStore(), func() {}, nil
	}
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// initNotifier connects to NATS, or falls back to a no-op publisher when no
// URL is configured.
func initNotifier(cfg config.NATSConfig, log zerolog.Logger) (notify.Notifier, func(), error) {
	if cfg.URL == "" {
		log.Info().Msg("NATS disabled, events will not be published")
		return notify.Noop{}, func() {}, nil
	}

	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return notify.NewNATSNotifier(nc, cfg.SubjectPrefix), nc.Close, nil
}
