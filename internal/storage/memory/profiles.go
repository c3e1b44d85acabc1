package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dorandoran/user/internal/domain/profiles"
)

type settingKey struct {
	user uuid.UUID
	key  string
}

// ProfileRepository implements profiles.Repository in-memory.
type ProfileRepository struct {
	mu         sync.RWMutex
	profiles   map[uuid.UUID]profiles.Profile
	settings   map[settingKey]profiles.Setting
	profileSeq sequence
	settingSeq sequence
}

// NewProfileRepository constructs repository.
func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{
		profiles: make(map[uuid.UUID]profiles.Profile),
		settings: make(map[settingKey]profiles.Setting),
	}
}

func (r *ProfileRepository) FindProfile(_ context.Context, userID uuid.UUID) (profiles.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[userID]
	if !ok {
		return profiles.Profile{}, profiles.ErrProfileNotFound
	}
	return p, nil
}

func (r *ProfileRepository) SaveProfile(_ context.Context, p profiles.Profile) (profiles.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.profiles[p.UserID]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = r.profileSeq.next()
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.profiles[p.UserID] = p
	return p, nil
}

func (r *ProfileRepository) ListSettings(_ context.Context, userID uuid.UUID) ([]profiles.Setting, error) {
	r.mu.RLock()
	res := make([]profiles.Setting, 0)
	for k, s := range r.settings {
		if k.user == userID {
			res = append(res, s)
		}
	}
	r.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })
	return res, nil
}

func (r *ProfileRepository) FindSetting(_ context.Context, userID uuid.UUID, key string) (profiles.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[settingKey{userID, key}]
	if !ok {
		return profiles.Setting{}, profiles.ErrSettingNotFound
	}
	return s, nil
}

func (r *ProfileRepository) SaveSetting(_ context.Context, s profiles.Setting) (profiles.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := settingKey{s.UserID, s.Key}
	now := time.Now().UTC()
	if existing, ok := r.settings[k]; ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	} else {
		s.ID = r.settingSeq.next()
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	r.settings[k] = s
	return s, nil
}

func (r *ProfileRepository) DeleteSetting(_ context.Context, userID uuid.UUID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := settingKey{userID, key}
	if _, ok := r.settings[k]; !ok {
		return profiles.ErrSettingNotFound
	}
	delete(r.settings, k)
	return nil
}

var _ profiles.Repository = (*ProfileRepository)(nil)
