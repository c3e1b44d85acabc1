package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dorandoran/user/internal/auth"
	"github.com/dorandoran/user/internal/config"
	"github.com/dorandoran/user/internal/database"
	"github.com/dorandoran/user/internal/domain"
	"github.com/dorandoran/user/internal/events"
	"github.com/dorandoran/user/internal/httpapi"
	"github.com/dorandoran/user/internal/logger"
	"github.com/dorandoran/user/internal/server"
	"github.com/dorandoran/user/internal/storage/memory"
	pgstorage "github.com/dorandoran/user/internal/storage/postgres"
	"github.com/dorandoran/user/internal/storage/rediscache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}

	logr := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Error().Err(err).Msg("user service exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logr zerolog.Logger) error {
	srv := server.New(cfg, logr)

	var db *database.DB
	if cfg.DataBackend == config.BackendPostgres {
		var err error
		db, err = database.Connect(ctx, database.Options{
			Driver:          cfg.DatabaseDriver,
			DSN:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
			ConnectAttempts: cfg.DBConnectAttempts,
			Logger:          logr,
		})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logr.Error().Err(cerr).Msg("error closing database")
			}
		}()

		migrator := database.NewSQLMigrator(db.DB, database.MigrationsFS(), ".", logr)
		if err := db.RunMigrations(ctx, migrator); err != nil {
			return err
		}
		srv.AddHealthCheck("db", db.PingContext)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logr.Warn().Err(err).Msg("redis unreachable at startup; cache and event fan-out will retry")
		}
		srv.AddHealthCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	container, err := buildDomainContainer(cfg, logr, db, rdb)
	if err != nil {
		return fmt.Errorf("init domain container: %w", err)
	}

	if cfg.HMACSecret == "" {
		logr.Warn().Msg("HMAC_SECRET is empty; protected routes will reject every request")
	}
	httpapi.Register(srv.Router(), logr, container, httpapi.Options{
		Verifier:           auth.NewVerifier(cfg.HMACSecret, cfg.HMACSkew),
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildPublisher(logr zerolog.Logger, rdb *redis.Client) events.Publisher {
	bus := events.NewBus(logr.With().Str("component", "events").Logger())
	bus.Subscribe(events.LogHandler(logr))

	publishers := events.Multi{bus}
	if rdb != nil {
		publishers = append(publishers, events.NewRedisPublisher(rdb, events.DefaultChannel))
	}
	return events.Instrumented{Next: publishers}
}

func buildDomainContainer(cfg config.Config, logr zerolog.Logger, db *database.DB, rdb *redis.Client) (domain.Container, error) {
	opts := domain.Options{
		Publisher: buildPublisher(logr, rdb),
		Logger:    logr,
	}

	switch cfg.DataBackend {
	case config.BackendMemory:
		logr.Info().Msg("using in-memory repositories (DATA_BACKEND=memory)")
		opts.UserRepo = memory.NewUserRepository()
		opts.ProfileRepo = memory.NewProfileRepository()
	case config.BackendPostgres:
		if db == nil {
			return domain.Container{}, fmt.Errorf("postgres backend requires database connection")
		}
		logr.Info().Msg("using postgres repositories (DATA_BACKEND=postgres)")
		opts.UserRepo = pgstorage.NewUserRepository(db.DB)
		opts.ProfileRepo = pgstorage.NewProfileRepository(db.DB)
	default:
		return domain.Container{}, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}

	if rdb != nil {
		logr.Info().Dur("ttl", cfg.UserCacheTTL).Msg("caching users in redis")
		opts.UserRepo = rediscache.NewUserRepository(opts.UserRepo, rdb, cfg.UserCacheTTL, logr)
	}
	return domain.New(opts), nil
}
