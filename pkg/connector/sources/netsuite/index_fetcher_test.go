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

	"github.com/syphon-data/syphon/pkg/errors"
)

func collectIndex(t *testing.T, f *IndexFetcher, cursor time.Time) ([]IndexRecord, error) {
	t.Helper()
	var got []IndexRecord
	err := f.Fetch(context.Background(), cursor, func(rec IndexRecord) error {
		got = append(got, rec)
		return nil
	})
	return got, err
}

func TestIndexFetcherSinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customer", r.URL.Path)
		assert.Equal(t, "1000", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"items":[{"id":"1"}],"hasMore":false,"offset":0,"count":1}`))
	}))
	defer server.Close()

	f := NewIndexFetcher(StreamSpec{Name: "customers", Path: "/customer"}, server.URL, "",
		testHTTPClient(t), staticTokens{token: "tok"}, testRetryPolicy(t), nil, zap.NewNop())

	got, err := collectIndex(t, f, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestIndexFetcherPagination(t *testing.T) {
	var offsets []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)
		if offset == "" {
			w.Write([]byte(`{"items":[{"id":"1"},{"id":"2"}],"hasMore":true,"offset":0,"count":2}`))
			return
		}
		w.Write([]byte(`{"items":[{"id":"3"}],"hasMore":false,"offset":2,"count":1}`))
	}))
	defer server.Close()

	f := NewIndexFetcher(StreamSpec{Name: "customers", Path: "/customer"}, server.URL, "",
		testHTTPClient(t), staticTokens{token: "tok"}, testRetryPolicy(t), nil, zap.NewNop())

	got, err := collectIndex(t, f, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"", "2"}, offsets)
	assert.Equal(t, "3", got[2].ID)
}

func TestIndexFetcher400YieldsNoRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	f := NewIndexFetcher(StreamSpec{Name: "customers", Path: "/customer"}, server.URL, "",
		testHTTPClient(t), staticTokens{token: "tok"}, testRetryPolicy(t), nil, zap.NewNop())

	got, err := collectIndex(t, f, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndexFetcherRetriesServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"items":[{"id":"1"}],"hasMore":false,"offset":0,"count":1}`))
	}))
	defer server.Close()

	f := NewIndexFetcher(StreamSpec{Name: "customers", Path: "/customer"}, server.URL, "",
		testHTTPClient(t), staticTokens{token: "tok"}, testRetryPolicy(t), nil, zap.NewNop())

	got, err := collectIndex(t, f, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIndexFetcherClientErrorIsFatal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := NewIndexFetcher(StreamSpec{Name: "customers", Path: "/customer"}, server.URL, "",
		testHTTPClient(t), staticTokens{token: "tok"}, testRetryPolicy(t), nil, zap.NewNop())

	_, err := collectIndex(t, f, time.Time{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIndexFetcherConfiguredRetriableStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.Write([]byte(`{"items":[],"hasMore":false,"offset":0,"count":0}`))
	}))
	defer server.Close()

	f := NewIndexFetcher(StreamSpec{Name: "customers", Path: "/customer"}, server.URL, "",
		testHTTPClient(t), staticTokens{token: "tok"}, testRetryPolicy(t),
		[]int{http.StatusConflict}, zap.NewNop())

	_, err := collectIndex(t, f, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIndexFetcherEmitErrorStopsWalk(t *testing.T) {
	var pages int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&pages, 1)
		w.Write([]byte(`{"items":[{"id":"1"},{"id":"2"}],"hasMore":true,"offset":0,"count":2}`))
	}))
	defer server.Close()

	f := NewIndexFetcher(StreamSpec{Name: "customers", Path: "/customer"}, server.URL, "",
		testHTTPClient(t), staticTokens{token: "tok"}, testRetryPolicy(t), nil, zap.NewNop())

	sentinel := errors.New(errors.ErrorTypeInternal, "stop")
	err := f.Fetch(context.Background(), time.Time{}, func(rec IndexRecord) error {
		return sentinel
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&pages))
}

func TestIndexFetcherPassesCursorFilter(t *testing.T) {
	var q string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query().Get("q")
		w.Write([]byte(`{"items":[],"hasMore":false,"offset":0,"count":0}`))
	}))
	defer server.Close()

	spec := StreamSpec{Name: "customers", Path: "/customer", ReplicationKey: "lastModifiedDate"}
	f := NewIndexFetcher(spec, server.URL, "",
		testHTTPClient(t), staticTokens{token: "tok"}, testRetryPolicy(t), nil, zap.NewNop())

	cursor := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	_, err := collectIndex(t, f, cursor)
	require.NoError(t, err)
	assert.Equal(t, `lastModifiedDate AFTER "31/01/2024"`, q)
}
