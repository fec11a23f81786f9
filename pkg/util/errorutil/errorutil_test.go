package errorutil

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{name: "no rows", err: pgx.ErrNoRows, wantCode: CodeNotFound, wantStatus: http.StatusNotFound},
		{name: "wrapped no rows", err: errors.Join(errors.New("select"), pgx.ErrNoRows), wantCode: CodeNotFound, wantStatus: http.StatusNotFound},
		{name: "driver failure", err: errors.New("connection reset"), wantCode: CodeStorage, wantStatus: http.StatusInternalServerError},
		{name: "already domain", err: NewValidationError("bad", nil), wantCode: CodeValidation, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := ToDomainError(MapError("request", tt.err))
			require.NotNil(t, mapped)
			assert.Equal(t, tt.wantCode, mapped.Code)
			assert.Equal(t, tt.wantStatus, mapped.HTTPStatus)
		})
	}
}

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, MapError("request", nil))
	assert.Nil(t, ToDomainError(nil))
}

func TestToDomainErrorFallsBackToInternal(t *testing.T) {
	mapped := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, mapped.Code)
	assert.Equal(t, "internal server error: boom", mapped.Error())
}

func TestIsCode(t *testing.T) {
	err := NewNotFound("template", map[string]any{"id": 3})
	assert.True(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(err, CodeStorage))
	assert.False(t, IsCode(errors.New("plain"), CodeNotFound))

	storage := NewStorageError(errors.New("disk"))
	assert.True(t, IsCode(storage, CodeStorage))
	assert.ErrorContains(t, storage, "disk")
}
