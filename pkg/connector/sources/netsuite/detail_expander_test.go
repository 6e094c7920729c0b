package netsuite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/clients"
	"github.com/syphon-data/syphon/pkg/connector/base"
	"github.com/syphon-data/syphon/pkg/errors"
)

// staticTokens satisfies clients.TokenProvider without a token endpoint.
type staticTokens struct{ token string }

func (s staticTokens) AccessToken(ctx context.Context) (string, error) { return s.token, nil }

func (s staticTokens) Invalidate() {}

func testRetryPolicy(t *testing.T) *base.RetryPolicy {
	t.Helper()
	return base.NewRetryPolicy(3, time.Millisecond, 10*time.Millisecond, 2.0, zap.NewNop())
}

func testHTTPClient(t *testing.T) *clients.HTTPClient {
	t.Helper()
	client, err := clients.NewHTTPClient(clients.DefaultHTTPConfig(), zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestFoldCustomFields(t *testing.T) {
	t.Run("folds prefixed fields into bucket", func(t *testing.T) {
		row := map[string]interface{}{
			"id":           "5",
			"custitem_foo": "bar",
			"displayName":  "Widget",
		}
		FoldCustomFields(row, "custitem")

		require.Contains(t, row, "custitem")
		bucket := row["custitem"].([]interface{})
		require.Len(t, bucket, 1)
		assert.Equal(t, map[string]interface{}{"custitem_foo": "bar"}, bucket[0])

		// Originals stay addressable
		assert.Equal(t, "bar", row["custitem_foo"])
		assert.Equal(t, "Widget", row["displayName"])
	})

	t.Run("multiple fields fold in stable order", func(t *testing.T) {
		row := map[string]interface{}{
			"custentity_b": 2,
			"custentity_a": 1,
		}
		FoldCustomFields(row, "custentity")

		bucket := row["custentity"].([]interface{})
		require.Len(t, bucket, 2)
		assert.Equal(t, map[string]interface{}{"custentity_a": 1}, bucket[0])
		assert.Equal(t, map[string]interface{}{"custentity_b": 2}, bucket[1])
	})

	t.Run("idempotent on already-folded row", func(t *testing.T) {
		row := map[string]interface{}{
			"id":           "5",
			"custitem_foo": "bar",
		}
		FoldCustomFields(row, "custitem")
		first := row["custitem"]

		FoldCustomFields(row, "custitem")
		assert.Equal(t, first, row["custitem"])
		assert.Len(t, row["custitem"].([]interface{}), 1)
	})

	t.Run("no prefix is a no-op", func(t *testing.T) {
		row := map[string]interface{}{"id": "1"}
		FoldCustomFields(row, "")
		assert.Equal(t, map[string]interface{}{"id": "1"}, row)
	})

	t.Run("no matching fields leaves row untouched", func(t *testing.T) {
		row := map[string]interface{}{"id": "1", "name": "x"}
		FoldCustomFields(row, "custbody")
		assert.NotContains(t, row, "custbody")
	})
}

func TestDetailExpanderExpand(t *testing.T) {
	spec := StreamSpec{
		Name:              "inventory_items",
		Path:              "/inventoryItem",
		CustomFieldPrefix: "custitem",
	}

	t.Run("fetches and folds", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/inventoryItem/5", r.URL.Path)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.Write([]byte(`{"id":"5","custitem_foo":"bar","displayName":"Widget"}`))
		}))
		defer server.Close()

		e := NewDetailExpander(spec, server.URL, "", testHTTPClient(t),
			staticTokens{token: "tok"}, testRetryPolicy(t), nil, zap.NewNop())

		row, err := e.Expand(context.Background(), IndexRecord{ID: "5"})
		require.NoError(t, err)
		require.NotNil(t, row)

		assert.Equal(t, "5", row["id"])
		assert.Equal(t, "Widget", row["displayName"])
		bucket := row["custitem"].([]interface{})
		require.Len(t, bucket, 1)
	})

	t.Run("retries transient failure", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"id":"7"}`))
		}))
		defer server.Close()

		e := NewDetailExpander(spec, server.URL, "", testHTTPClient(t),
			staticTokens{token: "tok"}, testRetryPolicy(t), nil, zap.NewNop())

		row, err := e.Expand(context.Background(), IndexRecord{ID: "7"})
		require.NoError(t, err)
		assert.Equal(t, "7", row["id"])
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("4xx is fatal without retry", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer server.Close()

		e := NewDetailExpander(spec, server.URL, "", testHTTPClient(t),
			staticTokens{token: "tok"}, testRetryPolicy(t), nil, zap.NewNop())

		_, err := e.Expand(context.Background(), IndexRecord{ID: "9"})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("empty id skips without error", func(t *testing.T) {
		e := NewDetailExpander(spec, "http://unused", "", testHTTPClient(t),
			staticTokens{token: "tok"}, testRetryPolicy(t), nil, zap.NewNop())

		row, err := e.Expand(context.Background(), IndexRecord{})
		require.NoError(t, err)
		assert.Nil(t, row)
	})
}
