package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndWrap(t *testing.T) {
	err := New(ErrorTypeValidation, "bad input")
	assert.Equal(t, "validation: bad input", err.Error())
	assert.NotEmpty(t, err.Stack)

	wrapped := Wrap(err, ErrorTypeInternal, "handler failed")
	assert.Contains(t, wrapped.Error(), "handler failed")
	assert.Contains(t, wrapped.Error(), "bad input")
	assert.Equal(t, err, wrapped.Unwrap())

	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "ignored"))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeData, "decode failed").
		WithDetail("stream", "customers").
		WithDetail("offset", 2000)

	assert.Equal(t, "customers", err.Details["stream"])
	assert.Equal(t, 2000, err.Details["offset"])
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType   ErrorType
		retryable bool
	}{
		{ErrorTypeTransient, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeConnection, true},
		{ErrorTypeValidation, false},
		{ErrorTypeAuthentication, false},
		{ErrorTypeNotFound, false},
		{ErrorTypeInternal, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(New(tt.errType, "x")))
		})
	}

	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
	assert.False(t, IsRetryable(nil))
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypeRateLimit, "slow down")
	assert.True(t, IsType(err, ErrorTypeRateLimit))
	assert.False(t, IsType(err, ErrorTypeTimeout))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsType(wrapped, ErrorTypeRateLimit))
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{500, ErrorTypeTransient},
		{502, ErrorTypeTransient},
		{503, ErrorTypeTransient},
		{401, ErrorTypeAuthentication},
		{403, ErrorTypeAuthentication},
		{404, ErrorTypeNotFound},
		{429, ErrorTypeRateLimit},
		{422, ErrorTypeValidation},
		{400, ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := FromHTTPStatus(tt.status, "details")
			require.NotNil(t, err)
			assert.Equal(t, tt.want, err.Type)
			assert.Contains(t, err.Message, "details")
		})
	}
}

func TestFromHTTPStatusExtraRetriable(t *testing.T) {
	err := FromHTTPStatus(409, "conflict", 409)
	assert.Equal(t, ErrorTypeTransient, err.Type)
	assert.True(t, IsRetryable(err))
}

func TestIsFatalHTTP(t *testing.T) {
	assert.True(t, IsFatalHTTP(401))
	assert.True(t, IsFatalHTTP(422))
	assert.False(t, IsFatalHTTP(429))
	assert.False(t, IsFatalHTTP(500))
	assert.False(t, IsFatalHTTP(200))
	assert.False(t, IsFatalHTTP(409, 409))
}
