package domain

import (
	"github.com/rs/zerolog"

	"github.com/dorandoran/user/internal/domain/profiles"
	"github.com/dorandoran/user/internal/domain/users"
	"github.com/dorandoran/user/internal/events"
	"github.com/dorandoran/user/internal/storage/memory"
)

// Container wires domain services together.
type Container struct {
	Users    users.Service
	Profiles profiles.Service
}

// Options configures the domain container.
type Options struct {
	UserRepo    users.Repository
	ProfileRepo profiles.Repository
	Publisher   events.Publisher
	Logger      zerolog.Logger
	UserOptions []users.Option
}

// New constructs a domain container with provided repositories. Missing
// repositories fall back to the in-memory implementations.
func New(opts Options) Container {
	userRepo := opts.UserRepo
	if userRepo == nil {
		userRepo = memory.NewUserRepository()
	}

	profileRepo := opts.ProfileRepo
	if profileRepo == nil {
		profileRepo = memory.NewProfileRepository()
	}

	logger := opts.Logger.With().Str("component", "users").Logger()

	return Container{
		Users:    users.NewService(userRepo, opts.Publisher, logger, opts.UserOptions...),
		Profiles: profiles.NewService(profileRepo, userRepo),
	}
}
