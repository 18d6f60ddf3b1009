package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/fivetwenty-io/servicetitan-client/internal/metrics"
	"github.com/fivetwenty-io/servicetitan-client/pkg/servicetitan"
)

const (
	// HeaderAuthorization carries the bearer token.
	HeaderAuthorization = "Authorization"
	// HeaderAppKey carries the application key.
	HeaderAppKey = "ST-App-Key"
)

// ClientCredentialsManager obtains bearer tokens with the OAuth2
// client-credentials grant and caches them per client identity.
type ClientCredentialsManager struct {
	cache      *TokenCache
	httpClient *http.Client
	logger     servicetitan.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option configures a ClientCredentialsManager.
type Option func(*ClientCredentialsManager)

// WithTokenCache shares an existing cache.
func WithTokenCache(cache *TokenCache) Option {
	return func(m *ClientCredentialsManager) {
		m.cache = cache
	}
}

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(client *http.Client) Option {
	return func(m *ClientCredentialsManager) {
		m.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger servicetitan.Logger) Option {
	return func(m *ClientCredentialsManager) {
		m.logger = logger
	}
}

// WithMetrics records token fetches.
func WithMetrics(collectors *metrics.Metrics) Option {
	return func(m *ClientCredentialsManager) {
		m.metrics = collectors
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *ClientCredentialsManager) {
		m.now = now
	}
}

// NewClientCredentialsManager creates a manager with its own token cache
// unless WithTokenCache is given.
func NewClientCredentialsManager(opts ...Option) *ClientCredentialsManager {
	manager := &ClientCredentialsManager{
		httpClient: &http.Client{Timeout: constants.ShortHTTPTimeout},
		logger:     servicetitan.NoopLogger{},
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(manager)
	}

	if manager.cache == nil {
		manager.cache = NewTokenCache()
	}

	return manager
}

// Cache returns the token cache.
func (m *ClientCredentialsManager) Cache() *TokenCache {
	return m.cache
}

// KeyFor returns the cache key of creds.
func KeyFor(creds *servicetitan.Credentials) CacheKey {
	return CacheKey{ClientID: creds.ClientID, AuthRoot: strings.TrimSuffix(creds.AuthRoot, "/")}
}

// Token returns a cached token with enough remaining life, or fetches one.
func (m *ClientCredentialsManager) Token(ctx context.Context, creds *servicetitan.Credentials) (*Token, error) {
	if creds == nil {
		return nil, servicetitan.ErrCredentialsRequired
	}

	return m.cache.Acquire(KeyFor(creds), m.now, func() (*Token, error) {
		return m.fetch(ctx, creds)
	})
}

// BearerToken returns "Bearer <access token>".
func (m *ClientCredentialsManager) BearerToken(ctx context.Context, creds *servicetitan.Credentials) (string, error) {
	token, err := m.Token(ctx, creds)
	if err != nil {
		return "", err
	}

	return "Bearer " + token.AccessToken, nil
}

// AuthHeaders returns the Authorization and ST-App-Key headers for creds.
func (m *ClientCredentialsManager) AuthHeaders(ctx context.Context, creds *servicetitan.Credentials) (map[string]string, error) {
	appKey, err := AppKey(creds)
	if err != nil {
		return nil, err
	}

	bearer, err := m.BearerToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		HeaderAuthorization: bearer,
		HeaderAppKey:        appKey,
	}, nil
}

// ClearCache drops the token for creds, or every token when creds is nil.
func (m *ClientCredentialsManager) ClearCache(creds *servicetitan.Credentials) {
	if creds == nil {
		m.cache.Clear()

		return
	}

	m.cache.Delete(KeyFor(creds))
}

// Session binds the manager to one credential bundle.
func (m *ClientCredentialsManager) Session(creds *servicetitan.Credentials) *Session {
	return &Session{manager: m, creds: creds}
}

func (m *ClientCredentialsManager) fetch(ctx context.Context, creds *servicetitan.Credentials) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)

	tokenURL := strings.TrimSuffix(creds.AuthRoot, "/") + constants.TokenPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &servicetitan.AuthError{Err: fmt.Errorf("creating token request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	m.logger.Info("Requesting access token", map[string]interface{}{
		"client_id": creds.ClientID,
		"auth_root": creds.AuthRoot,
	})

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.metrics.IncTokenFetch("error")

		return nil, &servicetitan.AuthError{Err: fmt.Errorf("%w: %w", servicetitan.ErrTransientNetwork, err)}
	}

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		m.metrics.IncTokenFetch("error")

		return nil, &servicetitan.AuthError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading token response: %w", err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		m.metrics.IncTokenFetch("error")
		m.logger.Error("Token request rejected", map[string]interface{}{
			"client_id":   creds.ClientID,
			"status_code": resp.StatusCode,
		})

		return nil, &servicetitan.AuthError{StatusCode: resp.StatusCode, Body: redactSecret(string(body), creds.ClientSecret)}
	}

	var token Token

	err = json.Unmarshal(body, &token)
	if err != nil {
		m.metrics.IncTokenFetch("error")

		return nil, &servicetitan.AuthError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding token response: %w", err)}
	}

	if token.AccessToken == "" {
		m.metrics.IncTokenFetch("error")

		return nil, &servicetitan.AuthError{StatusCode: resp.StatusCode, Err: servicetitan.ErrMissingAccessToken}
	}

	lifetime := time.Duration(token.ExpiresIn) * time.Second
	if token.ExpiresIn <= 0 {
		lifetime = constants.DefaultTokenLifetime
	}

	token.ExpiresAt = m.now().Add(lifetime)

	m.metrics.IncTokenFetch("ok")

	return &token, nil
}

// redactSecret guards against identity providers that echo the form back.
func redactSecret(body, secret string) string {
	if secret == "" {
		return body
	}

	return strings.ReplaceAll(body, secret, constants.MaskedSecret)
}

// AppKey returns the application key of creds.
func AppKey(creds *servicetitan.Credentials) (string, error) {
	if creds == nil || creds.AppKey == "" {
		return "", &servicetitan.ConfigError{
			Op:     "reading app key",
			Fields: []string{constants.EnvAppKey},
			Err:    servicetitan.ErrMissingField,
		}
	}

	return creds.AppKey, nil
}

// TenantID returns the tenant of creds.
func TenantID(creds *servicetitan.Credentials) (string, error) {
	if creds == nil || creds.TenantID == "" {
		return "", &servicetitan.ConfigError{
			Op:     "reading tenant id",
			Fields: []string{constants.EnvTenantID},
			Err:    servicetitan.ErrMissingField,
		}
	}

	return creds.TenantID, nil
}

// Session is a ClientCredentialsManager bound to one credential bundle. It
// supplies request headers to the HTTP layer.
type Session struct {
	manager *ClientCredentialsManager
	creds   *servicetitan.Credentials
}

// Credentials returns the bound bundle.
func (s *Session) Credentials() *servicetitan.Credentials {
	return s.creds
}

// AuthHeaders returns the headers for the bound bundle.
func (s *Session) AuthHeaders(ctx context.Context) (map[string]string, error) {
	return s.manager.AuthHeaders(ctx, s.creds)
}

// BearerToken returns the bearer string for the bound bundle.
func (s *Session) BearerToken(ctx context.Context) (string, error) {
	return s.manager.BearerToken(ctx, s.creds)
}

// Invalidate drops the bound bundle's token so the next call fetches a new one.
func (s *Session) Invalidate() {
	s.manager.ClearCache(s.creds)
}
