package netsuite

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/clients"
	"github.com/syphon-data/syphon/pkg/connector/base"
	"github.com/syphon-data/syphon/pkg/errors"
	jsonpool "github.com/syphon-data/syphon/pkg/json"
	"github.com/syphon-data/syphon/pkg/metrics"
)

// fetchState tracks where the index fetcher is in its page walk.
type fetchState int

const (
	stateStart fetchState = iota
	stateFetchingPage
	stateDone
)

// maxErrorBody caps how much of an error response is kept for diagnostics.
const maxErrorBody = 8 * 1024

// IndexFetcher walks a stream's list endpoint in strict offset order and
// hands each index record to a caller-supplied emit function. One fetcher
// serves one stream for one run; it is not restartable mid-walk.
type IndexFetcher struct {
	spec      StreamSpec
	baseURL   string
	userAgent string

	client *clients.HTTPClient
	tokens clients.TokenProvider
	retry  *base.RetryPolicy
	logger *zap.Logger

	// extraRetriable lists statuses retried beyond 5xx and 429
	extraRetriable []int

	state     fetchState
	offset    int64
	hasOffset bool
	pages     int64
	records   int64
}

// NewIndexFetcher creates a fetcher for one stream.
func NewIndexFetcher(spec StreamSpec, baseURL, userAgent string, client *clients.HTTPClient,
	tokens clients.TokenProvider, retry *base.RetryPolicy, extraRetriable []int, logger *zap.Logger) *IndexFetcher {
	return &IndexFetcher{
		spec:           spec,
		baseURL:        baseURL,
		userAgent:      userAgent,
		client:         client,
		tokens:         tokens,
		retry:          retry,
		extraRetriable: extraRetriable,
		logger:         logger.With(zap.String("stream", spec.Name)),
		state:          stateStart,
	}
}

// Fetch walks every page, calling emit for each index record in order.
// An error returned by emit stops the walk immediately; no further page
// requests are issued. Fetch returns nil once the endpoint reports no
// more pages.
func (f *IndexFetcher) Fetch(ctx context.Context, cursor time.Time, emit func(IndexRecord) error) error {
	if f.state == stateDone {
		return errors.New(errors.ErrorTypeInternal, "index fetcher already completed")
	}
	f.state = stateFetchingPage

	for f.state == stateFetchingPage {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeTimeout, "index fetch cancelled")
		}

		url := f.spec.ListURL(f.baseURL, cursor, f.offset, f.hasOffset)

		var page *ListPage
		err := f.retry.ExecuteWithCondition(ctx, func() error {
			p, err := f.fetchPage(ctx, url)
			if err != nil {
				return err
			}
			page = p
			return nil
		}, errors.IsRetryable)
		if err != nil {
			return err
		}

		f.pages++
		metrics.Default().PagesFetched.WithLabelValues(f.spec.Name).Inc()
		f.logger.Debug("index page fetched",
			zap.Int64("offset", page.Offset),
			zap.Int64("count", page.Count),
			zap.Bool("has_more", page.HasMore))

		for i := range page.Items {
			if err := emit(page.Items[i]); err != nil {
				f.state = stateDone
				return err
			}
			f.records++
		}

		next, more := NextPage(page)
		if !more {
			f.state = stateDone
			break
		}
		f.offset = next
		f.hasOffset = true
	}

	return nil
}

// fetchPage issues one list request. A 400 response means the filter
// matched nothing and yields an empty terminal page.
func (f *IndexFetcher) fetchPage(ctx context.Context, url string) (*ListPage, error) {
	resp, body, err := doAuthorizedGet(ctx, f.client, f.tokens, url, f.userAgent)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusBadRequest {
		f.logger.Info("list request returned 400, treating as no records", zap.String("url", url))
		return &ListPage{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.Default().RequestErrors.WithLabelValues("list", metrics.StatusClass(resp.StatusCode)).Inc()
		return nil, errors.FromHTTPStatus(resp.StatusCode, string(body), f.extraRetriable...)
	}

	var page ListPage
	if err := jsonpool.Unmarshal(body, &page); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode list response")
	}
	return &page, nil
}

// Offset returns the offset of the page currently being walked.
func (f *IndexFetcher) Offset() int64 { return f.offset }

// Records returns how many index records were emitted so far.
func (f *IndexFetcher) Records() int64 { return f.records }

// doAuthorizedGet performs a bearer-authenticated GET and reads the body.
// Shared by the index fetcher and detail expander.
func doAuthorizedGet(ctx context.Context, client *clients.HTTPClient, tokens clients.TokenProvider,
	url, userAgent string) (*http.Response, []byte, error) {
	token, err := tokens.AccessToken(ctx)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	metrics.Default().RequestDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())

	limit := int64(10 * 1024 * 1024)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		limit = maxErrorBody
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read response body")
	}
	return resp, body, nil
}
