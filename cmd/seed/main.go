package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dorandoran/user/internal/config"
	"github.com/dorandoran/user/internal/database"
	"github.com/dorandoran/user/internal/domain/users"
	"github.com/dorandoran/user/internal/events"
	"github.com/dorandoran/user/internal/logger"
	pgstorage "github.com/dorandoran/user/internal/storage/postgres"
)

type seedOptions struct {
	email     string
	password  string
	firstName string
	lastName  string
	admin     bool
	samples   bool
}

var sampleUsers = []users.CreateInput{
	{Email: "minji.kim@example.com", FirstName: "Minji", LastName: "Kim", Password: "dorandoran1"},
	{Email: "junho.lee@example.com", FirstName: "Junho", LastName: "Lee", Password: "dorandoran2"},
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create user accounts in the postgres backend",
		Long: `Create user accounts through the users service.

Requires DATA_BACKEND=postgres and DATABASE_URL. Migrations are applied
before seeding. Accounts whose email already exists are skipped.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.email, "email", "", "email of the account to create")
	f.StringVar(&opts.password, "password", "", "password of the account to create")
	f.StringVar(&opts.firstName, "first-name", "Dora", "first name")
	f.StringVar(&opts.lastName, "last-name", "Admin", "last name")
	f.BoolVar(&opts.admin, "admin", false, "grant ROLE_ADMIN to the created account")
	f.BoolVar(&opts.samples, "samples", false, "also create sample accounts")
	return cmd
}

func runSeed(ctx context.Context, out io.Writer, opts seedOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logr := logger.New(cfg.Env, cfg.LogLevel)

	if cfg.DataBackend != config.BackendPostgres {
		return errors.New("seed command requires DATA_BACKEND=postgres")
	}

	db, err := database.Connect(ctx, database.Options{
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
		return err
	}
	defer db.Close()

	migrator := database.NewSQLMigrator(db.DB, database.MigrationsFS(), ".", logr)
	if err := db.RunMigrations(ctx, migrator); err != nil {
		return err
	}

	repo := pgstorage.NewUserRepository(db.DB)
	bus := events.NewBus(logr)
	bus.Subscribe(events.LogHandler(logr))
	svc := users.NewService(repo, bus, logr.With().Str("component", "seed").Logger())
	return seed(ctx, out, logr, svc, repo, opts)
}

func seed(ctx context.Context, out io.Writer, logr zerolog.Logger, svc users.Service, repo users.Repository, opts seedOptions) error {
	inputs := make([]users.CreateInput, 0, len(sampleUsers)+1)
	if opts.email != "" {
		inputs = append(inputs, users.CreateInput{
			Email:     opts.email,
			FirstName: opts.firstName,
			LastName:  opts.lastName,
			Password:  opts.password,
		})
	}
	if opts.samples {
		inputs = append(inputs, sampleUsers...)
	}
	if len(inputs) == 0 {
		return errors.New("nothing to seed: pass --email or --samples")
	}

	for i, in := range inputs {
		u, err := svc.Create(ctx, in)
		switch {
		case errors.Is(err, users.ErrEmailExists):
			logr.Info().Str("email", in.Email).Msg("user exists; skipping")
			continue
		case err != nil:
			return fmt.Errorf("seed %s: %w", in.Email, err)
		}

		if i == 0 && opts.email != "" && opts.admin {
			u.Role = users.RoleAdmin
			if u, err = repo.Update(ctx, u); err != nil {
				return fmt.Errorf("promote %s: %w", in.Email, err)
			}
		}
		fmt.Fprintf(out, "User: %s %s <%s> %s (%s)\n", u.FirstName, u.LastName, u.Email, u.Role, u.ID)
	}

	logr.Info().Int("requested", len(inputs)).Msg("seed complete")
	return nil
}
