package servicetitan_test

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
	"github.com/stretchr/testify/assert"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	t.Run("problem title in message", func(t *testing.T) {
		t.Parallel()

		err := &servicetitan.HTTPError{
			StatusCode: http.StatusBadRequest,
			Method:     "POST",
			URL:        "https://api.servicetitan.io/jpm/v2/tenant/1/jobs",
			Body:       []byte(`{"title":"One or more validation errors occurred.","status":400,"errors":{"summary":["required"]}}`),
		}

		assert.Equal(t, "POST https://api.servicetitan.io/jpm/v2/tenant/1/jobs returned 400: One or more validation errors occurred.", err.Error())
		assert.Equal(t, []string{"required"}, err.Problem().Errors["summary"])
	})

	t.Run("plain body is truncated", func(t *testing.T) {
		t.Parallel()

		err := &servicetitan.HTTPError{StatusCode: 502, Method: "GET", URL: "u", Body: []byte(strings.Repeat("x", 2000))}

		assert.Nil(t, err.Problem())
		assert.True(t, strings.HasSuffix(err.Error(), "..."))
		assert.Less(t, len(err.Error()), 600)
	})
}

func TestErrorPredicates(t *testing.T) {
	t.Parallel()

	wrap := func(status int) error {
		return fmt.Errorf("fetching: %w", &servicetitan.HTTPError{StatusCode: status})
	}

	assert.True(t, servicetitan.IsNotFound(wrap(404)))
	assert.False(t, servicetitan.IsNotFound(wrap(400)))
	assert.True(t, servicetitan.IsUnauthorized(wrap(401)))
	assert.True(t, servicetitan.IsUnauthorized(&servicetitan.AuthError{StatusCode: 400}))
	assert.True(t, servicetitan.IsForbidden(wrap(403)))
	assert.True(t, servicetitan.IsServerError(wrap(503)))
	assert.False(t, servicetitan.IsServerError(wrap(499)))
	assert.True(t, servicetitan.IsRateLimited(&servicetitan.RateLimitError{Attempts: 3}))
	assert.True(t, servicetitan.IsRateLimited(wrap(429)))
	assert.False(t, servicetitan.IsNotFound(errors.New("plain")))
}

func TestAuthError(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := &servicetitan.AuthError{Err: fmt.Errorf("%w: %w", servicetitan.ErrTransientNetwork, cause)}

	assert.ErrorIs(t, err, servicetitan.ErrAuthFailed)
	assert.ErrorIs(t, err, servicetitan.ErrTransientNetwork)
	assert.ErrorIs(t, err, cause)

	rejected := &servicetitan.AuthError{StatusCode: 401, Body: `{"error":"invalid_client"}`}
	assert.Contains(t, rejected.Error(), "invalid_client")
	assert.ErrorIs(t, rejected, servicetitan.ErrAuthFailed)
}

func TestEmptyIDIsUnsupportedOperation(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, servicetitan.ErrEmptyID, servicetitan.ErrUnsupportedOperation)
}
