package apperr_test

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dorandoran/user/internal/apperr"
)

func TestErrorMatchesByCode(t *testing.T) {
	sentinel := apperr.New(apperr.UserNotFound)
	wrapped := fmt.Errorf("lookup: %w", apperr.Wrap(apperr.UserNotFound, sql.ErrNoRows))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.ErrorIs(t, wrapped, sql.ErrNoRows)
	assert.NotErrorIs(t, wrapped, apperr.New(apperr.EmailAlreadyExists))
}

func TestMessageOverride(t *testing.T) {
	err := apperr.Newf(apperr.InvalidRequest, "password too short")

	assert.Equal(t, "password too short", err.Error())
	assert.Equal(t, "password too short", apperr.MessageOf(err))
	assert.Equal(t, apperr.InvalidRequest, apperr.CodeOf(err))
}

func TestNewfFormatsMessage(t *testing.T) {
	err := apperr.Newf(apperr.InvalidRequest, "user already has status %s", "ACTIVE")

	assert.Equal(t, "user already has status ACTIVE", apperr.MessageOf(err))
	assert.Equal(t, "100%", apperr.Newf(apperr.InvalidRequest, "%s", "100%").Message())
}

func TestCodeOfUncodedError(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, apperr.InternalServerError, apperr.CodeOf(err))
	assert.Equal(t, http.StatusInternalServerError, apperr.CodeOf(err).Status)
	assert.Equal(t, apperr.InternalServerError.Message, apperr.MessageOf(err))
}
