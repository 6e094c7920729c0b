package netsuite

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/clients"
	"github.com/syphon-data/syphon/pkg/connector/base"
	"github.com/syphon-data/syphon/pkg/errors"
	jsonpool "github.com/syphon-data/syphon/pkg/json"
	"github.com/syphon-data/syphon/pkg/metrics"
)

// DetailExpander turns an index record into a full detail record with one
// per-id request, then folds the stream's custom fields.
type DetailExpander struct {
	spec      StreamSpec
	baseURL   string
	userAgent string

	client *clients.HTTPClient
	tokens clients.TokenProvider
	retry  *base.RetryPolicy
	logger *zap.Logger

	extraRetriable []int
}

// NewDetailExpander creates an expander for one stream.
func NewDetailExpander(spec StreamSpec, baseURL, userAgent string, client *clients.HTTPClient,
	tokens clients.TokenProvider, retry *base.RetryPolicy, extraRetriable []int, logger *zap.Logger) *DetailExpander {
	return &DetailExpander{
		spec:           spec,
		baseURL:        baseURL,
		userAgent:      userAgent,
		client:         client,
		tokens:         tokens,
		retry:          retry,
		extraRetriable: extraRetriable,
		logger:         logger.With(zap.String("stream", spec.Name)),
	}
}

// Expand fetches the detail record for one index entry. A nil map with a
// nil error means the record was vetoed and should be skipped, not failed.
func (e *DetailExpander) Expand(ctx context.Context, rec IndexRecord) (map[string]interface{}, error) {
	if rec.ID == "" {
		e.logger.Warn("index record without id, skipping")
		return nil, nil
	}

	url := e.spec.DetailURL(e.baseURL, rec.ID)

	var row map[string]interface{}
	err := e.retry.ExecuteWithCondition(ctx, func() error {
		r, err := e.fetchDetail(ctx, url)
		if err != nil {
			return err
		}
		row = r
		return nil
	}, errors.IsRetryable)
	if err != nil {
		return nil, err
	}

	if row == nil {
		return nil, nil
	}

	FoldCustomFields(row, e.spec.CustomFieldPrefix)
	return row, nil
}

// fetchDetail issues one detail request and decodes the payload.
func (e *DetailExpander) fetchDetail(ctx context.Context, url string) (map[string]interface{}, error) {
	resp, body, err := doAuthorizedGet(ctx, e.client, e.tokens, url, e.userAgent)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.Default().RequestErrors.WithLabelValues("detail", metrics.StatusClass(resp.StatusCode)).Inc()
		return nil, errors.FromHTTPStatus(resp.StatusCode, string(body), e.extraRetriable...)
	}

	row := make(map[string]interface{}, 32)
	if err := jsonpool.Unmarshal(body, &row); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode detail response")
	}
	return row, nil
}

// FoldCustomFields collects every top-level field whose name carries the
// stream's custom-field prefix into a single array-valued field named after
// the prefix. Each entry is a one-key mapping; the original fields stay
// addressable under their own names. The bucket field itself is excluded
// from collection, so folding an already-folded row changes nothing.
func FoldCustomFields(row map[string]interface{}, prefix string) {
	if prefix == "" || row == nil {
		return
	}

	var keys []string
	for k := range row {
		if k != prefix && strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.Strings(keys)

	bucket := make([]interface{}, 0, len(keys))
	for _, k := range keys {
		bucket = append(bucket, map[string]interface{}{k: row[k]})
	}
	row[prefix] = bucket
}
