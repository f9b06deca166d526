package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"natranscript/internal/services"
)

const (
	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
	// Issued tokens live ten minutes; refresh with a minute to spare.
	tokenLifetime = 9 * time.Minute
	maxTokenBytes = 64 * 1024
)

// TokenProvider supplies bearer tokens for the recognition endpoint.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider returning a fixed token.
type StaticToken string

// Token implements TokenProvider.
func (s StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", services.Wrap(services.ErrAuthorization, stageName, "token", "no token configured", nil)
	}
	return string(s), nil
}

// SubscriptionTokenProvider exchanges a subscription key for a bearer token
// and caches it until shortly before it expires.
type SubscriptionTokenProvider struct {
	key     string
	url     string
	client  *http.Client
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewSubscriptionTokenProvider builds a provider for the given key and issue URL.
func NewSubscriptionTokenProvider(key, tokenURL string, timeout time.Duration, client *http.Client) *SubscriptionTokenProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &SubscriptionTokenProvider{
		key:     strings.TrimSpace(key),
		url:     strings.TrimSpace(tokenURL),
		client:  client,
		timeout: timeout,
		now:     time.Now,
	}
}

// Token returns the cached token or issues a new one.
func (p *SubscriptionTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Before(p.expires) {
		return p.token, nil
	}
	if p.key == "" {
		return "", services.Wrap(services.ErrAuthorization, stageName, "token", "subscription key is empty", nil)
	}

	token, err := p.issue(ctx)
	if err != nil {
		return "", err
	}
	p.token = token
	p.expires = p.now().Add(tokenLifetime)
	return token, nil
}

// Invalidate drops the cached token so the next call issues a fresh one.
func (p *SubscriptionTokenProvider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.expires = time.Time{}
	p.mu.Unlock()
}

func (p *SubscriptionTokenProvider) issue(ctx context.Context) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, http.NoBody)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "token", "invalid token URL", err)
	}
	req.Header.Set(subscriptionKeyHeader, p.key)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", services.Wrap(services.ErrTimeout, stageName, "token", "token request timed out", err)
		}
		return "", services.Wrap(services.ErrNetwork, stageName, "token", "token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBytes))
	if err != nil {
		return "", services.Wrap(services.ErrNetwork, stageName, "token", "read token response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", services.Wrap(services.ErrAuthorization, stageName, "token",
			fmt.Sprintf("subscription key rejected (%s)", resp.Status), nil)
	case resp.StatusCode != http.StatusOK:
		return "", services.Wrap(services.ErrNetwork, stageName, "token",
			fmt.Sprintf("token endpoint returned %s", resp.Status), nil)
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", services.Wrap(services.ErrAuthorization, stageName, "token", "token endpoint returned an empty token", nil)
	}
	return token, nil
}
