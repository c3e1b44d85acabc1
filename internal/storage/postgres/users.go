package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dorandoran/user/internal/domain/users"
)

// UserRepository persists users in Postgres.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository constructs a postgres-backed user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, name, password_hash, picture, info,
       last_conn_time, status, role, coach_check, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (users.User, error) {
	var (
		u      users.User
		status string
		role   string
	)
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Name, &u.PasswordHash,
		&u.Picture, &u.Info, &u.LastConnTime, &status, &role, &u.CoachCheck, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return users.User{}, err
	}
	u.Status = users.Status(status)
	u.Role = users.Role(role)
	return u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (users.User, error) {
	query := `SELECT ` + userColumns + ` FROM app_user WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (users.User, error) {
	query := `SELECT ` + userColumns + ` FROM app_user WHERE LOWER(email) = LOWER($1)`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM app_user WHERE LOWER(email) = LOWER($1))`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists user by email: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) List(ctx context.Context, filter users.Filter) ([]users.User, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	if filter.NameContains != "" {
		p := arg("%" + escapeLike(filter.NameContains) + "%")
		where = append(where, "(name ILIKE "+p+" OR first_name ILIKE "+p+" OR last_name ILIKE "+p+")")
	}
	order := "created_at ASC, id ASC"
	if !filter.ConnectedSince.IsZero() {
		where = append(where, "last_conn_time >= "+arg(filter.ConnectedSince))
		order = "last_conn_time DESC, id ASC"
	}

	var b strings.Builder
	b.WriteString("SELECT " + userColumns + " FROM app_user")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY " + order)
	if filter.Limit > 0 {
		b.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		b.WriteString(" OFFSET " + arg(filter.Offset))
	}

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	res := make([]users.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return res, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *UserRepository) Create(ctx context.Context, user users.User) (users.User, error) {
	now := time.Now().UTC()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	const insert = `
        INSERT INTO app_user (id, email, first_name, last_name, name, password_hash, picture, info,
                              last_conn_time, status, role, coach_check, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `
	_, err := r.db.ExecContext(ctx, insert,
		user.ID.String(),
		strings.ToLower(user.Email),
		user.FirstName,
		user.LastName,
		user.Name,
		user.PasswordHash,
		user.Picture,
		user.Info,
		user.LastConnTime,
		string(user.Status),
		string(user.Role),
		user.CoachCheck,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return users.User{}, users.ErrEmailExists
		}
		return users.User{}, fmt.Errorf("insert user: %w", err)
	}
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = now
	user.UpdatedAt = now
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user users.User) (users.User, error) {
	now := time.Now().UTC()

	const update = `
        UPDATE app_user
           SET email = $2,
               first_name = $3,
               last_name = $4,
               name = $5,
               password_hash = $6,
               picture = $7,
               info = $8,
               status = $9,
               role = $10,
               coach_check = $11,
               updated_at = $12
         WHERE id = $1
        RETURNING created_at, last_conn_time
    `
	var created, lastConn time.Time
	err := r.db.QueryRowContext(ctx, update,
		user.ID.String(),
		strings.ToLower(user.Email),
		user.FirstName,
		user.LastName,
		user.Name,
		user.PasswordHash,
		user.Picture,
		user.Info,
		string(user.Status),
		string(user.Role),
		user.CoachCheck,
		now,
	).Scan(&created, &lastConn)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return users.User{}, users.ErrNotFound
		case isUniqueViolation(err):
			return users.User{}, users.ErrEmailExists
		}
		return users.User{}, fmt.Errorf("update user: %w", err)
	}
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = created
	user.LastConnTime = lastConn
	user.UpdatedAt = now
	return user, nil
}

func (r *UserRepository) UpdateLastConnectionTime(ctx context.Context, id uuid.UUID, at time.Time) error {
	const update = `UPDATE app_user SET last_conn_time = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, update, id.String(), at)
	if err != nil {
		return fmt.Errorf("update last connection time: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last connection time: %w", err)
	}
	if n == 0 {
		return users.ErrNotFound
	}
	return nil
}

var _ users.Repository = (*UserRepository)(nil)
