package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dorandoran/user/internal/domain/profiles"
)

// ProfileRepository persists profiles and settings in the user_schema tables.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository constructs a postgres-backed profile repository.
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) FindProfile(ctx context.Context, userID uuid.UUID) (profiles.Profile, error) {
	const query = `
        SELECT id, user_id, bio, avatar_url, settings, created_at, updated_at
          FROM user_schema.profiles
         WHERE user_id = $1
    `
	var (
		p        profiles.Profile
		settings []byte
	)
	err := r.db.QueryRowContext(ctx, query, userID.String()).
		Scan(&p.ID, &p.UserID, &p.Bio, &p.AvatarURL, &settings, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profiles.Profile{}, profiles.ErrProfileNotFound
		}
		return profiles.Profile{}, fmt.Errorf("find profile: %w", err)
	}
	p.Settings = json.RawMessage(settings)
	return p, nil
}

func (r *ProfileRepository) SaveProfile(ctx context.Context, p profiles.Profile) (profiles.Profile, error) {
	now := time.Now().UTC()
	const upsert = `
        INSERT INTO user_schema.profiles (user_id, bio, avatar_url, settings, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$5)
        ON CONFLICT (user_id) DO UPDATE
           SET bio = EXCLUDED.bio,
               avatar_url = EXCLUDED.avatar_url,
               settings = EXCLUDED.settings,
               updated_at = EXCLUDED.updated_at
        RETURNING id, created_at
    `
	err := r.db.QueryRowContext(ctx, upsert,
		p.UserID.String(), p.Bio, p.AvatarURL, string(p.Settings), now,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return profiles.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	p.UpdatedAt = now
	return p, nil
}

func (r *ProfileRepository) ListSettings(ctx context.Context, userID uuid.UUID) ([]profiles.Setting, error) {
	const query = `
        SELECT id, user_id, setting_key, setting_value, created_at, updated_at
          FROM user_schema.settings
         WHERE user_id = $1
         ORDER BY setting_key
    `
	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	res := make([]profiles.Setting, 0)
	for rows.Next() {
		var s profiles.Setting
		if err := rows.Scan(&s.ID, &s.UserID, &s.Key, &s.Value, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return res, nil
}

func (r *ProfileRepository) FindSetting(ctx context.Context, userID uuid.UUID, key string) (profiles.Setting, error) {
	const query = `
        SELECT id, user_id, setting_key, setting_value, created_at, updated_at
          FROM user_schema.settings
         WHERE user_id = $1 AND setting_key = $2
    `
	var s profiles.Setting
	err := r.db.QueryRowContext(ctx, query, userID.String(), key).
		Scan(&s.ID, &s.UserID, &s.Key, &s.Value, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return profiles.Setting{}, profiles.ErrSettingNotFound
		}
		return profiles.Setting{}, fmt.Errorf("find setting: %w", err)
	}
	return s, nil
}

func (r *ProfileRepository) SaveSetting(ctx context.Context, s profiles.Setting) (profiles.Setting, error) {
	now := time.Now().UTC()
	const upsert = `
        INSERT INTO user_schema.settings (user_id, setting_key, setting_value, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$4)
        ON CONFLICT (user_id, setting_key) DO UPDATE
           SET setting_value = EXCLUDED.setting_value,
               updated_at = EXCLUDED.updated_at
        RETURNING id, created_at
    `
	err := r.db.QueryRowContext(ctx, upsert, s.UserID.String(), s.Key, s.Value, now).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return profiles.Setting{}, fmt.Errorf("save setting: %w", err)
	}
	s.UpdatedAt = now
	return s, nil
}

func (r *ProfileRepository) DeleteSetting(ctx context.Context, userID uuid.UUID, key string) error {
	const del = `DELETE FROM user_schema.settings WHERE user_id = $1 AND setting_key = $2`
	res, err := r.db.ExecContext(ctx, del, userID.String(), key)
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete setting: %w", err)
	}
	if n == 0 {
		return profiles.ErrSettingNotFound
	}
	return nil
}

var _ profiles.Repository = (*ProfileRepository)(nil)
