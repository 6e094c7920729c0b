package clients

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/syphon-data/syphon/pkg/errors"
	jsonpool "github.com/syphon-data/syphon/pkg/json"
	"github.com/syphon-data/syphon/pkg/metrics"
)

// TokenProvider yields access tokens for authenticated requests.
type TokenProvider interface {
	// AccessToken returns a valid access token, refreshing if needed
	AccessToken(ctx context.Context) (string, error)
	// Invalidate discards the cached token, forcing a refresh on next use
	Invalidate()
}

// OAuth2Config configures refresh-token based authentication against an
// ERP token endpoint.
type OAuth2Config struct {
	// TokenURL is the token endpoint
	TokenURL string `json:"token_url"`
	// ClientID and ClientSecret authenticate the integration via basic auth
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	// RefreshToken is the long-lived grant used to mint access tokens
	RefreshToken string `json:"refresh_token"`
	// RefreshThreshold refreshes this long before actual expiry
	RefreshThreshold time.Duration `json:"refresh_threshold"`
}

// defaultExpiresIn is assumed when the token endpoint omits expires_in.
const defaultExpiresIn = 3600 * time.Second

// RefreshTokenProvider manages an access token shared by all streams of a
// connector. Refreshes are coordinated so concurrent callers hitting an
// expired token trigger exactly one request; the rest wait for its result.
type RefreshTokenProvider struct {
	config     *OAuth2Config
	logger     *zap.Logger
	httpClient *HTTPClient

	token *oauth2.Token

	refreshing  bool
	refreshCond *sync.Cond
}

// NewRefreshTokenProvider creates a token provider. No request is made
// until the first AccessToken call.
func NewRefreshTokenProvider(config *OAuth2Config, httpClient *HTTPClient, logger *zap.Logger) *RefreshTokenProvider {
	if config.RefreshThreshold == 0 {
		config.RefreshThreshold = time.Minute
	}
	return &RefreshTokenProvider{
		config:      config,
		logger:      logger.With(zap.String("component", "token_provider")),
		httpClient:  httpClient,
		refreshCond: sync.NewCond(&sync.Mutex{}),
	}
}

// AccessToken returns a valid access token, refreshing when the cached one
// is missing or within RefreshThreshold of expiry.
func (tp *RefreshTokenProvider) AccessToken(ctx context.Context) (string, error) {
	tp.refreshCond.L.Lock()

	for {
		if tp.tokenValid() {
			token := tp.token.AccessToken
			tp.refreshCond.L.Unlock()
			return token, nil
		}

		if !tp.refreshing {
			break
		}

		// Another caller is refreshing; wait for it and re-check.
		tp.refreshCond.Wait()

		if err := ctx.Err(); err != nil {
			tp.refreshCond.L.Unlock()
			return "", errors.Wrap(err, errors.ErrorTypeTimeout, "token wait cancelled")
		}
	}

	tp.refreshing = true
	tp.refreshCond.L.Unlock()

	token, err := tp.refresh(ctx)

	tp.refreshCond.L.Lock()
	tp.refreshing = false
	if err == nil {
		tp.token = token
	}
	tp.refreshCond.Broadcast()
	tp.refreshCond.L.Unlock()

	if err != nil {
		metrics.Default().TokenRefreshes.WithLabelValues("failure").Inc()
		return "", err
	}

	metrics.Default().TokenRefreshes.WithLabelValues("success").Inc()
	return token.AccessToken, nil
}

// Invalidate discards the cached token.
func (tp *RefreshTokenProvider) Invalidate() {
	tp.refreshCond.L.Lock()
	tp.token = nil
	tp.refreshCond.L.Unlock()
}

// tokenValid reports whether the cached token is usable. Caller holds the
// condition lock.
func (tp *RefreshTokenProvider) tokenValid() bool {
	return tp.token != nil &&
		tp.token.AccessToken != "" &&
		time.Until(tp.token.Expiry) > tp.config.RefreshThreshold
}

// refresh exchanges the refresh token for a new access token. Any non-2xx
// response is fatal; the endpoint rejecting the grant means credentials
// are wrong, not that the service is flaky.
func (tp *RefreshTokenProvider) refresh(ctx context.Context) (*oauth2.Token, error) {
	tp.logger.Debug("refreshing access token", zap.String("token_url", tp.config.TokenURL))

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {tp.config.RefreshToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tp.config.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to build token request")
	}
	req.SetBasicAuth(tp.config.ClientID, tp.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tp.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "token request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read token response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		tp.logger.Error("token refresh rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, errors.New(errors.ErrorTypeAuthentication,
			"token refresh failed").
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := jsonpool.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode token response")
	}
	if payload.AccessToken == "" {
		return nil, errors.New(errors.ErrorTypeAuthentication, "token response missing access_token")
	}

	expiresIn := time.Duration(payload.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}

	return &oauth2.Token{
		AccessToken: payload.AccessToken,
		TokenType:   payload.TokenType,
		Expiry:      time.Now().Add(expiresIn),
	}, nil
}
