package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWithDetails_DoesNotMutateSentinel(t *testing.T) {
	err := ErrNotFound.WithDetails("Listing not found")

	assert.Nil(t, ErrNotFound.Details)
	assert.Equal(t, "Listing not found", err.Details)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
}

func TestIsAPIError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("confirm: %w", ErrInvalidState.WithDetails("cancelled"))

	apiErr, ok := IsAPIError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.ErrorIs(t, wrapped, ErrInvalidState)
}

func TestClampLimitOffset(t *testing.T) {
	assert.Equal(t, LimitOffset{Limit: 50, Offset: 0}, ClampLimitOffset(0, -3, 50, 200))
	assert.Equal(t, LimitOffset{Limit: 200, Offset: 10}, ClampLimitOffset(500, 10, 50, 200))
	assert.Equal(t, LimitOffset{Limit: 5, Offset: 2}, ClampLimitOffset(5, 2, 50, 200))
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret123")
	assert.NoError(t, err)
	assert.True(t, CheckPasswordHash("secret123", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestRespondWithError_UnknownErrorBecomesInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithError(c, errors.New("db exploded"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
	assert.NotContains(t, w.Body.String(), "db exploded")
}
