package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dorandoran/user/internal/domain/users"
)

// UserRepository implements users.Repository in-memory.
type UserRepository struct {
	mu    sync.RWMutex
	store map[uuid.UUID]users.User
	order []uuid.UUID
	now   func() time.Time
}

// NewUserRepository constructs repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		store: make(map[uuid.UUID]users.User),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *UserRepository) FindByID(_ context.Context, id uuid.UUID) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.store[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (users.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.byEmailLocked(email); ok {
		return u, nil
	}
	return users.User{}, users.ErrNotFound
}

func (r *UserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmailLocked(email)
	return ok, nil
}

func (r *UserRepository) byEmailLocked(email string) (users.User, bool) {
	for _, u := range r.store {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return users.User{}, false
}

func (r *UserRepository) List(_ context.Context, filter users.Filter) ([]users.User, error) {
	r.mu.RLock()
	needle := strings.ToLower(filter.NameContains)
	res := make([]users.User, 0, len(r.store))
	for _, id := range r.order {
		u := r.store[id]
		if filter.Status != "" && u.Status != filter.Status {
			continue
		}
		if needle != "" && !containsFold(needle, u.Name, u.FirstName, u.LastName) {
			continue
		}
		if !filter.ConnectedSince.IsZero() && u.LastConnTime.Before(filter.ConnectedSince) {
			continue
		}
		res = append(res, u)
	}
	r.mu.RUnlock()

	if filter.ConnectedSince.IsZero() {
		sort.SliceStable(res, func(i, j int) bool {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		})
	} else {
		sort.SliceStable(res, func(i, j int) bool {
			return res[i].LastConnTime.After(res[j].LastConnTime)
		})
	}

	if filter.Offset >= len(res) {
		return []users.User{}, nil
	}
	res = res[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(res) {
		res = res[:filter.Limit]
	}
	return res, nil
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(_ context.Context, user users.User) (users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmailLocked(user.Email); ok {
		return users.User{}, users.ErrEmailExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.store[user.ID] = user
	r.order = append(r.order, user.ID)
	return user, nil
}

func (r *UserRepository) Update(_ context.Context, user users.User) (users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.store[user.ID]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	if other, ok := r.byEmailLocked(user.Email); ok && other.ID != user.ID {
		return users.User{}, users.ErrEmailExists
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = r.now()
	r.store[user.ID] = user
	return user, nil
}

func (r *UserRepository) UpdateLastConnectionTime(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.store[id]
	if !ok {
		return users.ErrNotFound
	}
	u.LastConnTime = at
	r.store[id] = u
	return nil
}

// Ensure interface satisfaction at compile time.
var _ users.Repository = (*UserRepository)(nil)
