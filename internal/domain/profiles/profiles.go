// Package profiles manages the per-user profile record and key/value settings.
package profiles

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dorandoran/user/internal/apperr"
	"github.com/dorandoran/user/internal/domain/users"
)

var (
	ErrProfileNotFound = apperr.New(apperr.ProfileNotFound)
	ErrSettingNotFound = apperr.New(apperr.SettingNotFound)
)

const (
	maxAvatarURLLen = 500
	maxKeyLen       = 100
)

// Profile is the one-per-user extended profile.
type Profile struct {
	ID        int64
	UserID    uuid.UUID
	Bio       string
	AvatarURL string
	Settings  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Setting is a single user preference.
type Setting struct {
	ID        int64
	UserID    uuid.UUID
	Key       string
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists profiles and settings. Save methods upsert.
type Repository interface {
	FindProfile(ctx context.Context, userID uuid.UUID) (Profile, error)
	SaveProfile(ctx context.Context, p Profile) (Profile, error)
	ListSettings(ctx context.Context, userID uuid.UUID) ([]Setting, error)
	FindSetting(ctx context.Context, userID uuid.UUID, key string) (Setting, error)
	SaveSetting(ctx context.Context, s Setting) (Setting, error)
	DeleteSetting(ctx context.Context, userID uuid.UUID, key string) error
}

// UserFinder resolves the owning user; users.Repository satisfies it.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (users.User, error)
}

// Service exposes profile and settings operations for existing users.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error)
	UpsertProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (Profile, error)
	ListSettings(ctx context.Context, userID uuid.UUID) ([]Setting, error)
	GetSetting(ctx context.Context, userID uuid.UUID, key string) (Setting, error)
	PutSetting(ctx context.Context, userID uuid.UUID, key, value string) (Setting, error)
	DeleteSetting(ctx context.Context, userID uuid.UUID, key string) error
}

// ProfileInput replaces the stored profile.
type ProfileInput struct {
	Bio       string
	AvatarURL string
	Settings  json.RawMessage
}

type service struct {
	repo  Repository
	users UserFinder
}

// NewService constructs a profile service.
func NewService(repo Repository, users UserFinder) Service {
	return &service{repo: repo, users: users}
}

func (s *service) requireUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.users.FindByID(ctx, userID)
	return err
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return Profile{}, err
	}
	return s.repo.FindProfile(ctx, userID)
}

func (s *service) UpsertProfile(ctx context.Context, userID uuid.UUID, input ProfileInput) (Profile, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return Profile{}, err
	}
	avatar := strings.TrimSpace(input.AvatarURL)
	if utf8.RuneCountInString(avatar) > maxAvatarURLLen {
		return Profile{}, apperr.Newf(apperr.ValidationError, "avatarUrl length is out of range")
	}
	settings := input.Settings
	if len(settings) == 0 || string(settings) == "null" {
		settings = json.RawMessage(`{}`)
	} else if !json.Valid(settings) {
		return Profile{}, apperr.Newf(apperr.ValidationError, "settings must be valid JSON")
	}
	return s.repo.SaveProfile(ctx, Profile{
		UserID:    userID,
		Bio:       input.Bio,
		AvatarURL: avatar,
		Settings:  settings,
	})
}

func (s *service) ListSettings(ctx context.Context, userID uuid.UUID) ([]Setting, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.ListSettings(ctx, userID)
}

func (s *service) GetSetting(ctx context.Context, userID uuid.UUID, key string) (Setting, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return Setting{}, err
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return Setting{}, err
	}
	return s.repo.FindSetting(ctx, userID, key)
}

func (s *service) PutSetting(ctx context.Context, userID uuid.UUID, key, value string) (Setting, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return Setting{}, err
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return Setting{}, err
	}
	return s.repo.SaveSetting(ctx, Setting{UserID: userID, Key: key, Value: value})
}

func (s *service) DeleteSetting(ctx context.Context, userID uuid.UUID, key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	return s.repo.DeleteSetting(ctx, userID, key)
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if n := utf8.RuneCountInString(key); n == 0 || n > maxKeyLen {
		return "", apperr.Newf(apperr.ValidationError, "setting key length is out of range")
	}
	return key, nil
}
