// Package rediscache decorates repositories with a Redis read-through cache.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dorandoran/user/internal/domain/users"
	"github.com/dorandoran/user/internal/metrics"
)

const (
	DefaultTTL = 5 * time.Minute

	idKeyPrefix    = "user:id:"
	emailKeyPrefix = "user:email:"
)

// UserRepository caches FindByID and FindByEmail lookups. Entries are keyed
// by id; the email key only maps an address to an id. Redis failures are
// logged and the call falls through to the wrapped repository.
type UserRepository struct {
	next   users.Repository
	client redis.UniversalClient
	ttl    time.Duration
	logger zerolog.Logger
}

// NewUserRepository wraps next with a cache on client.
func NewUserRepository(next users.Repository, client redis.UniversalClient, ttl time.Duration, logger zerolog.Logger) *UserRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &UserRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "user_cache").Logger(),
	}
}

type cachedUser struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	Picture      string    `json:"picture"`
	Info         string    `json:"info"`
	LastConnTime time.Time `json:"lastConnTime"`
	Status       string    `json:"status"`
	Role         string    `json:"role"`
	CoachCheck   bool      `json:"coachCheck"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toCached(u users.User) cachedUser {
	return cachedUser{
		ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Name: u.Name,
		PasswordHash: u.PasswordHash, Picture: u.Picture, Info: u.Info, LastConnTime: u.LastConnTime,
		Status: string(u.Status), Role: string(u.Role), CoachCheck: u.CoachCheck,
		CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (c cachedUser) user() users.User {
	return users.User{
		ID: c.ID, Email: c.Email, FirstName: c.FirstName, LastName: c.LastName, Name: c.Name,
		PasswordHash: c.PasswordHash, Picture: c.Picture, Info: c.Info, LastConnTime: c.LastConnTime,
		Status: users.Status(c.Status), Role: users.Role(c.Role), CoachCheck: c.CoachCheck,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

func idKey(id uuid.UUID) string    { return idKeyPrefix + id.String() }
func emailKey(email string) string { return emailKeyPrefix + users.NormalizeEmail(email) }

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (users.User, error) {
	if u, ok := r.lookup(ctx, id); ok {
		return u, nil
	}
	u, err := r.next.FindByID(ctx, id)
	if err != nil {
		return users.User{}, err
	}
	r.store(ctx, u)
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (users.User, error) {
	raw, err := r.client.Get(ctx, emailKey(email)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.RecordCacheResult("miss")
	case err != nil:
		r.cacheError("get email key", err)
	default:
		if id, perr := uuid.Parse(raw); perr == nil {
			if u, ok := r.lookup(ctx, id); ok && users.NormalizeEmail(u.Email) == users.NormalizeEmail(email) {
				return u, nil
			}
		}
		if err := r.client.Del(ctx, emailKey(email)).Err(); err != nil {
			r.cacheError("drop stale email key", err)
		}
	}

	u, err := r.next.FindByEmail(ctx, email)
	if err != nil {
		return users.User{}, err
	}
	r.store(ctx, u)
	return u, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.next.ExistsByEmail(ctx, email)
}

func (r *UserRepository) List(ctx context.Context, filter users.Filter) ([]users.User, error) {
	return r.next.List(ctx, filter)
}

func (r *UserRepository) Create(ctx context.Context, user users.User) (users.User, error) {
	return r.next.Create(ctx, user)
}

func (r *UserRepository) Update(ctx context.Context, user users.User) (users.User, error) {
	r.evict(ctx, user.ID)
	updated, err := r.next.Update(ctx, user)
	if err != nil {
		return users.User{}, err
	}
	r.evict(ctx, user.ID)
	return updated, nil
}

func (r *UserRepository) UpdateLastConnectionTime(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := r.next.UpdateLastConnectionTime(ctx, id, at); err != nil {
		return err
	}
	r.evict(ctx, id)
	return nil
}

func (r *UserRepository) lookup(ctx context.Context, id uuid.UUID) (users.User, bool) {
	data, err := r.client.Get(ctx, idKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheResult("miss")
		} else {
			r.cacheError("get id key", err)
		}
		return users.User{}, false
	}
	var c cachedUser
	if err := json.Unmarshal(data, &c); err != nil {
		r.cacheError("decode entry", err)
		return users.User{}, false
	}
	metrics.RecordCacheResult("hit")
	return c.user(), true
}

func (r *UserRepository) store(ctx context.Context, u users.User) {
	data, err := json.Marshal(toCached(u))
	if err != nil {
		r.cacheError("encode entry", err)
		return
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, idKey(u.ID), data, r.ttl)
		pipe.Set(ctx, emailKey(u.Email), u.ID.String(), r.ttl)
		return nil
	})
	if err != nil {
		r.cacheError("store entry", err)
	}
}

// evict drops the id entry and the email mapping it knows about. Email
// mappings that outlive their entry are caught by the address check in
// FindByEmail.
func (r *UserRepository) evict(ctx context.Context, id uuid.UUID) {
	keys := []string{idKey(id)}
	if data, err := r.client.Get(ctx, idKey(id)).Bytes(); err == nil {
		var c cachedUser
		if json.Unmarshal(data, &c) == nil && c.Email != "" {
			keys = append(keys, emailKey(c.Email))
		}
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.cacheError("evict", err)
	}
}

func (r *UserRepository) cacheError(op string, err error) {
	metrics.RecordCacheResult("error")
	r.logger.Warn().Err(err).Str("op", op).Msg("user cache unavailable; using repository")
}

var _ users.Repository = (*UserRepository)(nil)
