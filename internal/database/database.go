package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// Options configures the SQL database connection.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Logger          zerolog.Logger
	PingTimeout     time.Duration
	// ConnectAttempts bounds the startup pings; values below 1 mean one attempt.
	ConnectAttempts int
	// RetryBackoff is the wait after the first failed ping. It doubles per attempt.
	RetryBackoff time.Duration
}

const (
	defaultPingTimeout  = 5 * time.Second
	defaultRetryBackoff = 500 * time.Millisecond
)

// DB wraps *sql.DB to centralize lifecycle management.
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// Connect initializes a pooled SQL connection using the provided options.
func Connect(ctx context.Context, opts Options) (*DB, error) {
	if opts.Driver == "" {
		return nil, errors.New("database driver is required")
	}
	if opts.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	log := opts.Logger.With().Str("component", "database").Logger()

	pool, err := sql.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	if opts.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	if err := waitForPing(ctx, pool, opts, log); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().Str("driver", opts.Driver).Int("max_open_conns", opts.MaxOpenConns).Msg("database connected")

	return &DB{DB: pool, logger: log}, nil
}

func waitForPing(ctx context.Context, pool *sql.DB, opts Options, log zerolog.Logger) error {
	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}
	attempts := opts.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := pool.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt >= attempts {
			return fmt.Errorf("ping database after %d attempt(s): %w", attempt, err)
		}

		log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", backoff).Msg("database not ready; retrying")
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}
}

// Close releases database resources.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

// RunMigrations applies the given migrator, logging around it. A nil
// migrator is a no-op.
func (db *DB) RunMigrations(ctx context.Context, migrator Migrator) error {
	if migrator == nil {
		db.logger.Info().Msg("no migrator configured; skipping migrations")
		return nil
	}

	start := time.Now()
	db.logger.Info().Msg("running migrations")
	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	db.logger.Info().Dur("elapsed", time.Since(start)).Msg("migrations completed")
	return nil
}
