package rediscache

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorandoran/user/internal/domain/users"
	"github.com/dorandoran/user/internal/storage/memory"
)

func TestFindByEmailReportsStaleKeyDeleteFailure(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer client.Close()

	var logs bytes.Buffer
	repo := NewUserRepository(memory.NewUserRepository(), client, time.Minute, zerolog.New(&logs))

	staleID := uuid.New()
	readonly := errors.New("READONLY You can't write against a read only replica.")
	mock.ExpectGet("user:email:ghost@example.com").SetVal(staleID.String())
	mock.ExpectGet("user:id:" + staleID.String()).RedisNil()
	mock.ExpectDel("user:email:ghost@example.com").SetErr(readonly)

	_, err := repo.FindByEmail(context.Background(), "Ghost@Example.com")
	require.ErrorIs(t, err, users.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, logs.String(), `"op":"drop stale email key"`)
	assert.Contains(t, logs.String(), "READONLY")
}
