package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryStatus(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewValidationError("bad", nil), CodeValidation, http.StatusBadRequest},
		{NewUnauthorized("who"), CodeUnauthorized, http.StatusUnauthorized},
		{NewForbidden("no"), CodeForbidden, http.StatusForbidden},
		{NewNotFound("ticket", nil), CodeNotFound, http.StatusNotFound},
		{NewConflict("taken", nil), CodeConflict, http.StatusConflict},
		{NewStoreError(errors.New("io")), CodeStore, http.StatusInternalServerError},
		{NewInternalError(errors.New("boom")), CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		de := ToDomainError(tc.err)
		require.NotNil(t, de)
		assert.Equal(t, tc.code, de.Code)
		assert.Equal(t, tc.status, de.HTTPStatus)
		assert.True(t, IsCode(tc.err, tc.code))
	}
}

func TestFieldValidationError(t *testing.T) {
	de := ToDomainError(NewFieldValidationError(map[string]string{"email": "is required"}))
	assert.Equal(t, "validation failed", de.Message)
	assert.Equal(t, map[string]any{"email": "is required"}, de.Details)
}

func TestNotFoundMessage(t *testing.T) {
	de := ToDomainError(NewNotFound("user", map[string]any{"id": 3}))
	assert.Equal(t, "user not found", de.Message)
	assert.Equal(t, 3, de.Details["id"])
}

func TestStoreErrorHidesCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewStoreError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store operation failed", ToDomainError(err).Message)
}

func TestToDomainErrorUnwraps(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	wrapped := fmt.Errorf("service: %w", NewForbidden("admin role required"))
	assert.Equal(t, CodeForbidden, ToDomainError(wrapped).Code)
	assert.False(t, IsCode(errors.New("plain"), CodeForbidden))

	assert.Equal(t, CodeInternal, ToDomainError(errors.New("plain")).Code)
}

func TestToDomainErrorFromFiber(t *testing.T) {
	assert.Equal(t, CodeNotFound, ToDomainError(fiber.ErrNotFound).Code)
	assert.Equal(t, CodeNotFound, ToDomainError(fiber.ErrMethodNotAllowed).Code)
	assert.Equal(t, CodeValidation, ToDomainError(fiber.ErrBadRequest).Code)

	de := ToDomainError(fiber.ErrRequestTimeout)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusRequestTimeout, de.HTTPStatus)
	assert.Equal(t, CodeConflict, MapError(fiber.NewError(http.StatusConflict, "dup")).(*DomainError).Code)
}
