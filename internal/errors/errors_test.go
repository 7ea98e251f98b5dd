package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := TokenExchangeFailed("provider rejected the grant")
	assert.Equal(t, "provider rejected the grant", err.Error())

	wrapped := Wrap(stderrors.New("connection refused"), ErrCodeStorage, "write tokens")
	assert.Equal(t, "write tokens: connection refused", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Storage(cause, "persist access token")

	assert.True(t, stderrors.Is(err, cause))
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeStorage, "no-op"))
	assert.Nil(t, Wrapf(nil, ErrCodeStorage, "no-op %d", 1))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"auth cancelled", AuthCancelled("user closed the browser"), IsAuthCancelled},
		{"missing code", MissingAuthorizationCode("redirect had no code"), IsMissingAuthorizationCode},
		{"exchange failed", TokenExchangeFailed("invalid_grant"), IsTokenExchangeFailed},
		{"refresh failed", TokenRefreshFailed("invalid refresh token"), IsTokenRefreshFailed},
		{"profile fetch failed", ProfileFetchFailed("user lookup 404"), IsProfileFetchFailed},
		{"storage", Storage(stderrors.New("io"), "load"), IsStorage},
		{"validation", Validation("employee id is required"), IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(stderrors.New("plain error")))
		})
	}
}

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	inner := TokenRefreshFailed("invalid refresh token")
	outer := fmt.Errorf("boot session: %w", inner)

	assert.True(t, IsTokenRefreshFailed(outer))
	assert.Equal(t, ErrCodeTokenRefreshFailed, GetCode(outer))
}

func TestFetchError_Error(t *testing.T) {
	fe := &FetchError{Status: 503, Body: `{"exc_type":"ValidationError"}`}
	assert.Contains(t, fe.Error(), "503")
	assert.Contains(t, fe.Error(), "ValidationError")

	transport := &FetchError{Cause: stderrors.New("dial tcp: timeout")}
	assert.Contains(t, transport.Error(), "dial tcp")
}

func TestAsFetchError(t *testing.T) {
	fe := &FetchError{Status: 404, Body: "not found"}
	wrapped := fmt.Errorf("list holidays: %w", fe)

	got, ok := AsFetchError(wrapped)
	require.True(t, ok)
	assert.Equal(t, 404, got.Status)
	assert.Equal(t, ErrCodeFetch, GetCode(wrapped))

	_, ok = AsFetchError(stderrors.New("other"))
	assert.False(t, ok)
}
