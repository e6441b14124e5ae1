package errors

import (
	"database/sql"
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrConflict, "slot already booked")
	assert.Equal(t, "slot already booked", cloned.Message)
	assert.Equal(t, http.StatusConflict, cloned.Status)
	assert.True(t, stdErrors.Is(cloned, ErrConflict))
	assert.False(t, stdErrors.Is(cloned, ErrNotFound))
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)

	typed := FromError(fmt.Errorf("context: %w", ErrInvalidTransition))
	assert.Equal(t, http.StatusUnprocessableEntity, typed.Status)
	assert.Nil(t, FromError(nil))
}

func TestWrapUnwraps(t *testing.T) {
	wrapped := Internal(sql.ErrConnDone, "failed to load")
	assert.True(t, stdErrors.Is(wrapped, sql.ErrConnDone))
	assert.Contains(t, wrapped.Error(), "failed to load")
}
