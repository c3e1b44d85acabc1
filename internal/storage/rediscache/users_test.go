package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorandoran/user/internal/domain/users"
	"github.com/dorandoran/user/internal/storage/memory"
)

type countingRepo struct {
	users.Repository
	byID    int
	byEmail int
}

func (c *countingRepo) FindByID(ctx context.Context, id uuid.UUID) (users.User, error) {
	c.byID++
	return c.Repository.FindByID(ctx, id)
}

func (c *countingRepo) FindByEmail(ctx context.Context, email string) (users.User, error) {
	c.byEmail++
	return c.Repository.FindByEmail(ctx, email)
}

func setup(t *testing.T) (*UserRepository, *countingRepo, *miniredis.Miniredis, users.User) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	backing := &countingRepo{Repository: memory.NewUserRepository()}
	u, err := backing.Create(context.Background(), users.User{
		Email:        "jiwoo@example.com",
		FirstName:    "Jiwoo",
		LastName:     "Park",
		Name:         "Jiwoo Park",
		PasswordHash: "hash",
		Status:       users.StatusActive,
		Role:         users.RoleUser,
	})
	require.NoError(t, err)

	return NewUserRepository(backing, client, time.Minute, zerolog.Nop()), backing, mr, u
}

func TestFindByIDReadsThrough(t *testing.T) {
	repo, backing, mr, u := setup(t)
	ctx := context.Background()

	first, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, backing.byID)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached user mismatch (-backing +cached):\n%s", diff)
	}
	assert.Equal(t, "hash", second.PasswordHash)
	assert.True(t, mr.Exists("user:id:"+u.ID.String()))
	assert.Equal(t, time.Minute, mr.TTL("user:id:"+u.ID.String()))
}

func TestFindByEmailUsesIDEntry(t *testing.T) {
	repo, backing, _, u := setup(t)
	ctx := context.Background()

	_, err := repo.FindByEmail(ctx, "JIWOO@example.com")
	require.NoError(t, err)
	got, err := repo.FindByEmail(ctx, "jiwoo@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, 1, backing.byEmail)

	_, err = repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, backing.byID)
}

func TestNotFoundIsNotCached(t *testing.T) {
	repo, backing, _, _ := setup(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := repo.FindByID(ctx, missing)
	assert.ErrorIs(t, err, users.ErrNotFound)
	_, err = repo.FindByID(ctx, missing)
	assert.ErrorIs(t, err, users.ErrNotFound)
	assert.Equal(t, 2, backing.byID)
}

func TestUpdateEvictsEntries(t *testing.T) {
	repo, backing, mr, u := setup(t)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)

	u.Email = "jiwoo.park@example.com"
	_, err = repo.Update(ctx, u)
	require.NoError(t, err)
	assert.False(t, mr.Exists("user:id:"+u.ID.String()))
	assert.False(t, mr.Exists("user:email:jiwoo@example.com"))

	_, err = repo.FindByEmail(ctx, "jiwoo@example.com")
	assert.ErrorIs(t, err, users.ErrNotFound)

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "jiwoo.park@example.com", got.Email)
	assert.Equal(t, 2, backing.byID)
}

func TestStaleEmailMappingIsIgnored(t *testing.T) {
	repo, _, mr, u := setup(t)
	ctx := context.Background()

	other := uuid.New()
	require.NoError(t, mr.Set("user:email:jiwoo@example.com", other.String()))

	got, err := repo.FindByEmail(ctx, "jiwoo@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestUpdateLastConnectionTimeEvicts(t *testing.T) {
	repo, _, mr, u := setup(t)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)

	at := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastConnectionTime(ctx, u.ID, at))
	assert.False(t, mr.Exists("user:id:"+u.ID.String()))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.LastConnTime.Equal(at))
}

func TestRedisOutageFallsThrough(t *testing.T) {
	repo, backing, mr, u := setup(t)
	mr.Close()

	got, err := repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, 1, backing.byID)

	_, err = repo.FindByEmail(context.Background(), u.Email)
	require.NoError(t, err)
}
