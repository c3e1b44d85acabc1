package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/dorandoran/user/internal/apperr"
	"github.com/dorandoran/user/internal/events"
	"github.com/dorandoran/user/internal/metrics"
)

// Service exposes user account management.
type Service interface {
	Create(ctx context.Context, input CreateInput) (User, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, filter Filter) ([]User, error)
	ListActive(ctx context.Context) ([]User, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	TouchLastConnection(ctx context.Context, id uuid.UUID) error
	ResetPasswordByEmail(ctx context.Context, email, newPassword string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, newPassword string) error
}

// CreateInput captures data required to create an account.
type CreateInput struct {
	Email     string
	FirstName string
	LastName  string
	Name      string
	Password  string
	Picture   string
	Info      string
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Email      *string
	FirstName  *string
	LastName   *string
	Name       *string
	Picture    *string
	Info       *string
	Status     *Status
	CoachCheck *bool
}

// Option customizes a service.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithHashCost sets the bcrypt cost used for new password hashes.
func WithHashCost(cost int) Option {
	return func(s *service) { s.hashCost = cost }
}

type service struct {
	repo      Repository
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
	hashCost  int
}

// NewService constructs a user service. A nil publisher discards events.
func NewService(repo Repository, publisher events.Publisher, logger zerolog.Logger, opts ...Option) Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	s := &service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		hashCost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Create(ctx context.Context, input CreateInput) (u User, err error) {
	defer func() { metrics.RecordOperation("create", err) }()

	email := NormalizeEmail(input.Email)
	first := strings.TrimSpace(input.FirstName)
	last := strings.TrimSpace(input.LastName)
	name := displayName(input.Name, first, last)

	if err := validateEmail(email); err != nil {
		return User{}, err
	}
	for _, f := range []struct{ field, value string }{
		{"firstName", first}, {"lastName", last}, {"name", name},
	} {
		if err := validateLength(f.field, f.value, 1, maxNameLen); err != nil {
			return User{}, err
		}
	}
	if err := validateLength("picture", input.Picture, 0, maxPictureLen); err != nil {
		return User{}, err
	}
	if err := validateLength("info", input.Info, 0, maxInfoLen); err != nil {
		return User{}, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if exists {
		return User{}, ErrEmailExists
	}

	if err := CheckPasswordPolicy(input.Password); err != nil {
		return User{}, err
	}
	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return User{}, err
	}

	saved, err := s.repo.Create(ctx, User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    first,
		LastName:     last,
		Name:         name,
		PasswordHash: hash,
		Picture:      strings.TrimSpace(input.Picture),
		Info:         input.Info,
		LastConnTime: s.now(),
		Status:       StatusActive,
		Role:         RoleUser,
	})
	if err != nil {
		return User{}, err
	}
	s.logger.Info().Str("user_id", saved.ID.String()).Str("email", saved.Email).Msg("user created")

	s.publish(ctx, events.UserCreated{
		UserID:    saved.ID,
		Email:     saved.Email,
		FirstName: saved.FirstName,
		LastName:  saved.LastName,
		Name:      saved.Name,
		CreatedAt: s.now(),
	})
	return saved, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, ErrNotFound
	}
	return s.repo.FindByEmail(ctx, email)
}

func (s *service) List(ctx context.Context, filter Filter) ([]User, error) {
	if filter.Offset < 0 {
		return nil, apperr.Newf(apperr.InvalidRequest, "offset must not be negative")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultListLimit
	case filter.Limit > MaxListLimit:
		filter.Limit = MaxListLimit
	}
	filter.NameContains = strings.TrimSpace(filter.NameContains)
	return s.repo.List(ctx, filter)
}

func (s *service) ListActive(ctx context.Context) ([]User, error) {
	return s.List(ctx, Filter{Status: StatusActive, Limit: MaxListLimit})
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (u User, err error) {
	defer func() { metrics.RecordOperation("update", err) }()

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if input.Email != nil {
		email := NormalizeEmail(*input.Email)
		if err := validateEmail(email); err != nil {
			return User{}, err
		}
		if email != user.Email {
			exists, err := s.repo.ExistsByEmail(ctx, email)
			if err != nil {
				return User{}, err
			}
			if exists {
				return User{}, ErrEmailExists
			}
			user.Email = email
		}
	}

	names := []struct {
		field string
		in    *string
		dst   *string
	}{
		{"firstName", input.FirstName, &user.FirstName},
		{"lastName", input.LastName, &user.LastName},
		{"name", input.Name, &user.Name},
	}
	for _, n := range names {
		if n.in == nil {
			continue
		}
		v := strings.TrimSpace(*n.in)
		if err := validateLength(n.field, v, 1, maxNameLen); err != nil {
			return User{}, err
		}
		*n.dst = v
	}
	if input.Picture != nil {
		if err := validateLength("picture", *input.Picture, 0, maxPictureLen); err != nil {
			return User{}, err
		}
		user.Picture = strings.TrimSpace(*input.Picture)
	}
	if input.Info != nil {
		if err := validateLength("info", *input.Info, 0, maxInfoLen); err != nil {
			return User{}, err
		}
		user.Info = *input.Info
	}
	if input.Status != nil {
		user.Status = *input.Status
	}
	if input.CoachCheck != nil {
		user.CoachCheck = *input.CoachCheck
	}

	saved, err := s.repo.Update(ctx, user)
	if err != nil {
		return User{}, err
	}

	s.publish(ctx, events.UserUpdated{
		UserID:    saved.ID,
		Email:     saved.Email,
		FirstName: saved.FirstName,
		LastName:  saved.LastName,
		Name:      saved.Name,
		Picture:   saved.Picture,
		Info:      saved.Info,
		UpdatedAt: s.now(),
	})
	return saved, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (u User, err error) {
	defer func() { metrics.RecordOperation("update_status", err) }()

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	previous := user.Status
	if previous == status {
		return User{}, apperr.Newf(apperr.InvalidRequest, "user already has status %s", status)
	}

	user.Status = status
	saved, err := s.repo.Update(ctx, user)
	if err != nil {
		return User{}, err
	}
	s.logger.Info().
		Str("user_id", saved.ID.String()).
		Str("from", string(previous)).
		Str("to", string(status)).
		Msg("user status changed")

	s.publishStatusChange(ctx, saved, previous)
	return saved, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer func() { metrics.RecordOperation("delete", err) }()

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Status == StatusInactive {
		return ErrAlreadyInactive
	}

	previous := user.Status
	user.Status = StatusInactive
	saved, err := s.repo.Update(ctx, user)
	if err != nil {
		return err
	}
	s.logger.Info().Str("user_id", saved.ID.String()).Msg("user deactivated")

	s.publishStatusChange(ctx, saved, previous)
	s.publish(ctx, events.UserDeleted{
		UserID:    saved.ID,
		Email:     saved.Email,
		DeletedAt: s.now(),
	})
	return nil
}

func (s *service) TouchLastConnection(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateLastConnectionTime(ctx, id, s.now())
}

func (s *service) ResetPasswordByEmail(ctx context.Context, email, newPassword string) (err error) {
	defer func() { metrics.RecordOperation("reset_password", err) }()

	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, user, newPassword)
}

func (s *service) UpdatePassword(ctx context.Context, id uuid.UUID, newPassword string) (err error) {
	defer func() { metrics.RecordOperation("update_password", err) }()

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, user, newPassword)
}

func (s *service) setPassword(ctx context.Context, user User, password string) error {
	if err := CheckPasswordPolicy(password); err != nil {
		return err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if _, err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", user.ID.String()).Msg("password updated")
	return nil
}

func (s *service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", apperr.Wrap(apperr.InternalServerError, fmt.Errorf("hash password: %w", err))
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash of u.
func VerifyPassword(u User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

func (s *service) publishStatusChange(ctx context.Context, u User, previous Status) {
	s.publish(ctx, events.UserStatusChanged{
		UserID:    u.ID,
		Email:     u.Email,
		OldStatus: string(previous),
		NewStatus: string(u.Status),
		ChangedAt: s.now(),
	})
}

// publish never fails the calling operation.
func (s *service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn().Err(err).Str("event", event.EventType()).Msg("publish user event failed")
	}
}
