package avito

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// Safety margin subtracted from the reported token lifetime so a token is
// never used right at its expiry boundary.
const tokenExpiryMargin = 300 * time.Second

const defaultExpiresIn = 86400

// TokenProvider exchanges client credentials for a bearer token and caches
// it until near expiry. The read side and the send side each own a separate
// instance so their failure domains stay isolated.
type TokenProvider struct {
	tokenURL   string
	creds      repo.Credentials
	httpClient *http.Client
	log        zerolog.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenProvider creates a token provider for one credential set.
func NewTokenProvider(baseURL string, creds repo.Credentials, log zerolog.Logger) *TokenProvider {
	return &TokenProvider{
		tokenURL:   strings.TrimRight(baseURL, "/") + "/token",
		creds:      creds,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "token").Logger(),
	}
}

// Token returns a valid bearer token, reusing the cached one while
// now < expiresAt. forceRefresh bypasses the cache.
func (p *TokenProvider) Token(ctx context.Context, forceRefresh bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !forceRefresh && p.token != "" && time.Now().Before(p.expiresAt) {
		return p.token, nil
	}

	values := url.Values{}
	values.Set("client_id", p.creds.ClientID)
	values.Set("client_secret", p.creds.ClientSecret)
	values.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return "", &domain.FetchError{Op: "token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", &domain.FetchError{Op: "token exchange", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		p.log.Error().Int("status", resp.StatusCode).Msg("Invalid credentials (401)")
		return "", &domain.AuthError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", &domain.FetchError{
			Op:  "token exchange",
			Err: &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))},
		}
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &domain.FetchError{Op: "token decode", Err: err}
	}
	if parsed.AccessToken == "" {
		return "", &domain.FetchError{Op: "token exchange", Err: errEmptyToken}
	}

	expiresIn := parsed.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}

	p.token = parsed.AccessToken
	p.expiresAt = time.Now().Add(time.Duration(expiresIn)*time.Second - tokenExpiryMargin)

	p.log.Debug().Time("expires_at", p.expiresAt).Msg("Access token obtained")
	return p.token, nil
}
