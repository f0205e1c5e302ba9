// Package dingtalk implements the outbound side of the channel: the
// access-token cache and the OpenAPI/webhook send calls. The streaming
// inbound transport lives in internal/channel; this package only does
// plain HTTPS.
package dingtalk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Charles311/openclaw-channel-dingtalk/internal/domain"
	"github.com/Charles311/openclaw-channel-dingtalk/internal/metrics"
)

// tokenExpiryMargin is subtracted from the server TTL before a cached
// token is reused, so a token never expires under an in-flight request.
const tokenExpiryMargin = 5 * time.Minute

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// TokenCache holds one bearer credential per clientID, refreshed lazily
// before expiry. Concurrent misses for the same clientID are not
// coalesced; duplicate exchanges are idempotent on the provider side.
type TokenCache struct {
	base   string
	client *http.Client
	logger *slog.Logger

	mu     sync.Mutex
	tokens map[string]cachedToken
	now    func() time.Time
}

// NewTokenCache creates a cache against the given API base (empty =
// production).
func NewTokenCache(base string, client *http.Client, logger *slog.Logger) *TokenCache {
	if base == "" {
		base = DefaultAPIBase
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenCache{
		base:   base,
		client: client,
		logger: logger,
		tokens: map[string]cachedToken{},
		now:    time.Now,
	}
}

// Token returns a cached access token for clientID when one is still
// valid past the expiry margin, otherwise performs a blocking credential
// exchange and caches the result. No retries: retry policy belongs to
// the caller.
func (t *TokenCache) Token(ctx context.Context, clientID, clientSecret string) (string, error) {
	t.mu.Lock()
	if cached, ok := t.tokens[clientID]; ok && cached.expiresAt.After(t.now().Add(tokenExpiryMargin)) {
		token := cached.token
		t.mu.Unlock()
		return token, nil
	}
	t.mu.Unlock()

	token, expireIn, err := t.exchange(ctx, clientID, clientSecret)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.tokens[clientID] = cachedToken{
		token:     token,
		expiresAt: t.now().Add(time.Duration(expireIn) * time.Second),
	}
	t.mu.Unlock()

	metrics.TokenRefreshes.Inc()
	t.logger.Debug("access token refreshed", "client_id", clientID, "expire_in", expireIn)
	return token, nil
}

// exchange performs one POST against the token endpoint.
func (t *TokenCache) exchange(ctx context.Context, clientID, clientSecret string) (string, int64, error) {
	body, err := json.Marshal(accessTokenRequest{AppKey: clientID, AppSecret: clientSecret})
	if err != nil {
		return "", 0, fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.base+accessTokenPath, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, &domain.AuthError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var parsed accessTokenResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", 0, fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", 0, &domain.AuthError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return parsed.AccessToken, parsed.ExpireIn, nil
}
