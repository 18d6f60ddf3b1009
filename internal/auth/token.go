package auth

import (
	"sync"
	"time"

	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
)

// Token is an access token issued by the identity endpoint.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	ExpiresIn   int       `json:"expires_in,omitempty"`
	ExpiresAt   time.Time `json:"-"`
}

// Valid checks if the token can be handed out now.
func (t *Token) Valid() bool {
	return t.ValidAt(time.Now())
}

// ValidAt checks if the token has at least TokenExpirationBuffer of life left at now.
func (t *Token) ValidAt(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return !now.Add(constants.TokenExpirationBuffer).After(t.ExpiresAt)
}

// CacheKey identifies a token by client identity and identity host.
type CacheKey struct {
	ClientID string
	AuthRoot string
}

// TokenCache holds tokens for any number of client identities. One mutex
// guards the whole map; Acquire holds it across check, fetch and store.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[CacheKey]*Token
}

// NewTokenCache creates an empty cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[CacheKey]*Token)}
}

// Get returns the cached token for key, valid or not.
func (c *TokenCache) Get(key CacheKey) *Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tokens[key]
}

// Set stores or replaces the token for key.
func (c *TokenCache) Set(key CacheKey, token *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens[key] = token
}

// Delete removes the token for key.
func (c *TokenCache) Delete(key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.tokens, key)
}

// Clear removes every token.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens = make(map[CacheKey]*Token)
}

// Len returns the number of cached tokens.
func (c *TokenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.tokens)
}

// Acquire returns the cached token for key when it is valid at now().
// Otherwise it calls fetch under the lock and stores the result, so
// concurrent callers for an expired key trigger a single fetch.
func (c *TokenCache) Acquire(key CacheKey, now func() time.Time, fetch func() (*Token, error)) (*Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.tokens[key]
	if token.ValidAt(now()) {
		return token, nil
	}

	token, err := fetch()
	if err != nil {
		return nil, err
	}

	c.tokens[key] = token

	return token, nil
}
