package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorandoran/user/internal/domain/profiles"
)

func TestProfileRepositorySaveIsUpsert(t *testing.T) {
	r := NewProfileRepository()
	ctx := context.Background()
	userID := uuid.New()

	_, err := r.FindProfile(ctx, userID)
	assert.ErrorIs(t, err, profiles.ErrProfileNotFound)

	first, err := r.SaveProfile(ctx, profiles.Profile{UserID: userID, Bio: "one"})
	require.NoError(t, err)
	second, err := r.SaveProfile(ctx, profiles.Profile{UserID: userID, Bio: "two"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	got, err := r.FindProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "two", got.Bio)
}

func TestProfileRepositorySettings(t *testing.T) {
	r := NewProfileRepository()
	ctx := context.Background()
	userID, other := uuid.New(), uuid.New()

	for _, s := range []profiles.Setting{
		{UserID: userID, Key: "theme", Value: "dark"},
		{UserID: userID, Key: "lang", Value: "ko"},
		{UserID: other, Key: "lang", Value: "en"},
	} {
		_, err := r.SaveSetting(ctx, s)
		require.NoError(t, err)
	}

	list, err := r.ListSettings(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "lang", list[0].Key)
	assert.Equal(t, "theme", list[1].Key)

	updated, err := r.SaveSetting(ctx, profiles.Setting{UserID: userID, Key: "lang", Value: "ja"})
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, updated.ID)

	got, err := r.FindSetting(ctx, userID, "lang")
	require.NoError(t, err)
	assert.Equal(t, "ja", got.Value)

	require.NoError(t, r.DeleteSetting(ctx, userID, "lang"))
	assert.ErrorIs(t, r.DeleteSetting(ctx, userID, "lang"), profiles.ErrSettingNotFound)
	_, err = r.FindSetting(ctx, userID, "lang")
	assert.ErrorIs(t, err, profiles.ErrSettingNotFound)

	otherList, err := r.ListSettings(ctx, other)
	require.NoError(t, err)
	assert.Len(t, otherList, 1)
}
