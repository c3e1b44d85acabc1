package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dorandoran/user/internal/apperr"
)

var (
	ErrNotFound        = apperr.New(apperr.UserNotFound)
	ErrEmailExists     = apperr.New(apperr.EmailAlreadyExists)
	ErrAlreadyInactive = apperr.New(apperr.UserAlreadyInactive)
)

// Status is the account state of a user.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// ParseStatus accepts any letter case of a known status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusActive, StatusInactive, StatusSuspended:
		return st, nil
	}
	return "", apperr.Newf(apperr.InvalidRequest, "unknown user status: %s", s)
}

// Role is the authorization role of a user.
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	Name         string
	PasswordHash string
	Picture      string
	Info         string
	LastConnTime time.Time
	Status       Status
	Role         Role
	CoachCheck   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Filter narrows a user listing. Zero values mean "no constraint".
type Filter struct {
	Status         Status
	NameContains   string
	ConnectedSince time.Time
	Offset         int
	Limit          int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Repository defines persistence behaviour for users.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, filter Filter) ([]User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	UpdateLastConnectionTime(ctx context.Context, id uuid.UUID, at time.Time) error
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
