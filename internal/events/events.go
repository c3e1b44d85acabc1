// Package events carries user lifecycle notifications to interested parties.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type names used on the wire and in metrics.
const (
	TypeUserCreated       = "user.created"
	TypeUserUpdated       = "user.updated"
	TypeUserStatusChanged = "user.status_changed"
	TypeUserDeleted       = "user.deleted"
)

// Event is implemented by every user lifecycle event.
type Event interface {
	EventType() string
	OccurredAt() time.Time
}

// UserCreated is published after an account is persisted.
type UserCreated struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (UserCreated) EventType() string       { return TypeUserCreated }
func (e UserCreated) OccurredAt() time.Time { return e.CreatedAt }

// UserUpdated is published after a profile field change. It carries the new values.
type UserUpdated struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture"`
	Info      string    `json:"info"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UserUpdated) EventType() string       { return TypeUserUpdated }
func (e UserUpdated) OccurredAt() time.Time { return e.UpdatedAt }

// UserStatusChanged records a status transition. Statuses use their wire names.
type UserStatusChanged struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	ChangedAt time.Time `json:"changedAt"`
}

func (UserStatusChanged) EventType() string       { return TypeUserStatusChanged }
func (e UserStatusChanged) OccurredAt() time.Time { return e.ChangedAt }

// UserDeleted is published after a soft delete, following its UserStatusChanged.
type UserDeleted struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	DeletedAt time.Time `json:"deletedAt"`
}

func (UserDeleted) EventType() string       { return TypeUserDeleted }
func (e UserDeleted) OccurredAt() time.Time { return e.DeletedAt }
