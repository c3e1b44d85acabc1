package users_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dorandoran/user/internal/apperr"
	"github.com/dorandoran/user/internal/domain/users"
	"github.com/dorandoran/user/internal/events"
	memstore "github.com/dorandoran/user/internal/storage/memory"
)

type capture struct {
	events []events.Event
}

func (c *capture) Publish(_ context.Context, e events.Event) error {
	c.events = append(c.events, e)
	return nil
}

func (c *capture) types() []string {
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.EventType())
	}
	return out
}

func newService(t *testing.T) (users.Service, *memstore.UserRepository, *capture) {
	t.Helper()
	repo := memstore.NewUserRepository()
	pub := &capture{}
	svc := users.NewService(repo, pub, zerolog.Nop(), users.WithHashCost(bcrypt.MinCost))
	return svc, repo, pub
}

func validInput() users.CreateInput {
	return users.CreateInput{
		Email:     "  Hong@Example.com ",
		FirstName: "Gildong",
		LastName:  "Hong",
		Name:      "Hong Gildong",
		Password:  "password123",
		Picture:   "profile.jpg",
		Info:      "test user",
	}
}

func TestServiceCreate(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "hong@example.com", user.Email)
	assert.Equal(t, users.StatusActive, user.Status)
	assert.Equal(t, users.RoleUser, user.Role)
	assert.False(t, user.CoachCheck)
	assert.False(t, user.LastConnTime.IsZero())
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.True(t, users.VerifyPassword(user, "password123"))
	assert.False(t, users.VerifyPassword(user, "password124"))

	require.Len(t, pub.events, 1)
	created, ok := pub.events[0].(events.UserCreated)
	require.True(t, ok)
	assert.Equal(t, user.ID, created.UserID)
	assert.Equal(t, "hong@example.com", created.Email)
}

func TestServiceCreateDefaultsDisplayName(t *testing.T) {
	svc, _, _ := newService(t)
	in := validInput()
	in.Name = "   "

	user, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Gildong Hong", user.Name)
	assert.Equal(t, "test user", user.Info)
}

func TestServiceCreateRejectsDuplicateEmail(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Email = "HONG@example.com"
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, users.ErrEmailExists)
	assert.Len(t, pub.events, 1)
}

func TestServiceCreateValidation(t *testing.T) {
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}

	cases := map[string]func(*users.CreateInput){
		"missing email":     func(in *users.CreateInput) { in.Email = "" },
		"malformed email":   func(in *users.CreateInput) { in.Email = "not-an-email" },
		"missing firstName": func(in *users.CreateInput) { in.FirstName = "" },
		"info too long":     func(in *users.CreateInput) { in.Info = string(long) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _, _ := newService(t)
			in := validInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, apperr.ValidationError, apperr.CodeOf(err))
		})
	}
}

func TestPasswordPolicy(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"short1", false},
		{"onlyletters", false},
		{"1234567890", false},
		{"password123", true},
		{"비밀번호는12345", true},
	}
	for _, tc := range cases {
		err := users.CheckPasswordPolicy(tc.password)
		if tc.ok {
			assert.NoError(t, err, tc.password)
		} else {
			assert.Error(t, err, tc.password)
			assert.Equal(t, apperr.InvalidRequest, apperr.CodeOf(err))
		}
	}
}

func TestServiceGetByEmailNormalizes(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	found, err := svc.GetByEmail(ctx, " HONG@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, users.ErrNotFound)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, users.ErrNotFound)
}

func TestServiceUpdatePartial(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	info := "updated info"
	coach := true
	suspended := users.StatusSuspended
	updated, err := svc.Update(ctx, created.ID, users.UpdateInput{
		Info:       &info,
		CoachCheck: &coach,
		Status:     &suspended,
	})
	require.NoError(t, err)

	assert.Equal(t, "updated info", updated.Info)
	assert.True(t, updated.CoachCheck)
	assert.Equal(t, users.StatusSuspended, updated.Status)
	assert.Equal(t, created.FirstName, updated.FirstName)
	assert.Equal(t, created.Email, updated.Email)
	assert.Equal(t, []string{events.TypeUserCreated, events.TypeUserUpdated}, pub.types())
}

func TestServiceUpdateEmailConflict(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	first, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	other := validInput()
	other.Email = "other@example.com"
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	taken := "other@example.com"
	_, err = svc.Update(ctx, first.ID, users.UpdateInput{Email: &taken})
	assert.ErrorIs(t, err, users.ErrEmailExists)

	same := "HONG@example.com"
	_, err = svc.Update(ctx, first.ID, users.UpdateInput{Email: &same})
	assert.NoError(t, err)
}

func TestServiceUpdateStatus(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, created.ID, users.StatusActive)
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidRequest, apperr.CodeOf(err))

	updated, err := svc.UpdateStatus(ctx, created.ID, users.StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, users.StatusSuspended, updated.Status)

	last := pub.events[len(pub.events)-1].(events.UserStatusChanged)
	assert.Equal(t, "ACTIVE", last.OldStatus)
	assert.Equal(t, "SUSPENDED", last.NewStatus)
}

func TestServiceDeleteIsSoft(t *testing.T) {
	svc, repo, pub := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, users.StatusInactive, stored.Status)
	assert.Equal(t, []string{
		events.TypeUserCreated, events.TypeUserStatusChanged, events.TypeUserDeleted,
	}, pub.types())

	err = svc.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, users.ErrAlreadyInactive)
}

func TestServicePasswordChanges(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePassword(ctx, created.ID, "newpass456"))
	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, users.VerifyPassword(stored, "newpass456"))

	require.NoError(t, svc.ResetPasswordByEmail(ctx, "hong@example.com", "reset789abc"))
	stored, err = repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, users.VerifyPassword(stored, "reset789abc"))

	assert.Error(t, svc.UpdatePassword(ctx, created.ID, "weak"))
	assert.ErrorIs(t, svc.ResetPasswordByEmail(ctx, "nobody@example.com", "reset789abc"), users.ErrNotFound)
}

func TestServiceListFilters(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := memstore.NewUserRepository()
	svc := users.NewService(repo, nil, zerolog.Nop(),
		users.WithHashCost(bcrypt.MinCost),
		users.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	names := []string{"Kim Chulsoo", "Lee Younghee", "Kim Minji"}
	ids := make([]uuid.UUID, 0, len(names))
	for i, n := range names {
		in := validInput()
		in.Email = uuid.NewString() + "@example.com"
		in.Name = n
		u, err := svc.Create(ctx, in)
		require.NoError(t, err, i)
		ids = append(ids, u.ID)
	}
	_, err := svc.UpdateStatus(ctx, ids[1], users.StatusSuspended)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateLastConnectionTime(ctx, ids[2], now.Add(time.Hour)))

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	kims, err := svc.List(ctx, users.Filter{NameContains: "kim"})
	require.NoError(t, err)
	assert.Len(t, kims, 2)

	recent, err := svc.List(ctx, users.Filter{ConnectedSince: now.Add(time.Minute)})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, ids[2], recent[0].ID)

	paged, err := svc.List(ctx, users.Filter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, ids[1], paged[0].ID)

	_, err = svc.List(ctx, users.Filter{Offset: -1})
	assert.Error(t, err)
}

func TestServiceTouchLastConnection(t *testing.T) {
	later := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := memstore.NewUserRepository()
	clock := time.Now().UTC()
	svc := users.NewService(repo, nil, zerolog.Nop(),
		users.WithHashCost(bcrypt.MinCost),
		users.WithClock(func() time.Time { return clock }),
	)
	ctx := context.Background()
	created, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	clock = later
	require.NoError(t, svc.TouchLastConnection(ctx, created.ID))
	stored, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastConnTime.Equal(later))

	assert.ErrorIs(t, svc.TouchLastConnection(ctx, uuid.New()), users.ErrNotFound)
}

func TestParseStatus(t *testing.T) {
	st, err := users.ParseStatus("suspended")
	require.NoError(t, err)
	assert.Equal(t, users.StatusSuspended, st)

	_, err = users.ParseStatus("banned")
	assert.Error(t, err)
}

type failingPublisher struct {
	calls int
}

func (f *failingPublisher) Publish(context.Context, events.Event) error {
	f.calls++
	return errors.New("broker down")
}

func TestPublishFailuresDoNotFailOperations(t *testing.T) {
	panicking := events.NewBus(zerolog.Nop())
	panicking.Subscribe(func(context.Context, events.Event) error {
		panic("subscriber exploded")
	})

	cases := []struct {
		name      string
		publisher events.Publisher
	}{
		{"publisher error", &failingPublisher{}},
		{"panicking bus subscriber", panicking},
		{"multi with failing member", events.Multi{&failingPublisher{}, &capture{}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := users.NewService(memstore.NewUserRepository(), tc.publisher, zerolog.Nop(), users.WithHashCost(bcrypt.MinCost))
			ctx := context.Background()

			u, err := svc.Create(ctx, validInput())
			require.NoError(t, err)

			info := "still saved"
			updated, err := svc.Update(ctx, u.ID, users.UpdateInput{Info: &info})
			require.NoError(t, err)
			assert.Equal(t, "still saved", updated.Info)

			suspended, err := svc.UpdateStatus(ctx, u.ID, users.StatusSuspended)
			require.NoError(t, err)
			assert.Equal(t, users.StatusSuspended, suspended.Status)

			require.NoError(t, svc.Delete(ctx, u.ID))
			got, err := svc.Get(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, users.StatusInactive, got.Status)
		})
	}

	pub := &failingPublisher{}
	svc := users.NewService(memstore.NewUserRepository(), pub, zerolog.Nop(), users.WithHashCost(bcrypt.MinCost))
	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, 1, pub.calls)
}
