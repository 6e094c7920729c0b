package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/errors"
)

func newTestProvider(t *testing.T, tokenURL string) *RefreshTokenProvider {
	t.Helper()
	httpClient, err := NewHTTPClient(DefaultHTTPConfig(), zap.NewNop())
	require.NoError(t, err)
	return NewRefreshTokenProvider(&OAuth2Config{
		TokenURL:     tokenURL,
		ClientID:     "cid",
		ClientSecret: "sec",
		RefreshToken: "rt",
	}, httpClient, zap.NewNop())
}

func TestRefreshTokenProviderRefreshes(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "cid", user)
		assert.Equal(t, "sec", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "rt", r.PostForm.Get("refresh_token"))

		w.Write([]byte(`{"access_token":"abc","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	tp := newTestProvider(t, server.URL)

	token, err := tp.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	// Cached token is reused
	token, err = tp.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRefreshTokenProviderDefaultExpiry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		// No expires_in in the response
		w.Write([]byte(`{"access_token":"abc"}`))
	}))
	defer server.Close()

	tp := newTestProvider(t, server.URL)

	_, err := tp.AccessToken(context.Background())
	require.NoError(t, err)

	// Default expiry keeps the token valid; no second refresh
	_, err = tp.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRefreshTokenProviderSingleFlight(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`{"access_token":"abc","expires_in":3600}`))
	}))
	defer server.Close()

	tp := newTestProvider(t, server.URL)

	const callers = 16
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = tp.AccessToken(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "abc", tokens[i])
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "concurrent callers must share one refresh")
}

func TestRefreshTokenProviderRejectionIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	tp := newTestProvider(t, server.URL)

	_, err := tp.AccessToken(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
	assert.Contains(t, err.Error(), "token refresh failed")
}

func TestRefreshTokenProviderInvalidate(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"access_token":"abc","expires_in":3600}`))
	}))
	defer server.Close()

	tp := newTestProvider(t, server.URL)

	_, err := tp.AccessToken(context.Background())
	require.NoError(t, err)

	tp.Invalidate()

	_, err = tp.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
