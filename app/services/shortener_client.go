package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/amirphl/utm-tracker/config"
)

// Shortener error constants
var (
	// ErrAliasTaken means the requested alias already exists at the provider
	ErrAliasTaken = errors.New("alias already taken")
	// ErrShortenerUnavailable wraps transport failures and unexpected responses
	ErrShortenerUnavailable = errors.New("shortener unavailable")
)

const (
	tinyURLAPIBase    = "https://api.tinyurl.com"
	tinyURLLegacyBase = "https://tinyurl.com"
)

// URLShortener creates short links at a third-party provider
type URLShortener interface {
	// Shorten returns the short URL for longURL. An empty alias lets the provider pick one.
	Shorten(ctx context.Context, longURL, alias string) (string, error)
	// HasCredentials reports whether authenticated provider calls are configured
	HasCredentials() bool
}

// TinyURLClient implements URLShortener against TinyURL. With an API token it
// uses the v2 JSON API, otherwise the token-less api-create.php endpoint.
type TinyURLClient struct {
	baseURL string
	token   string
	domain  string
	client  *http.Client
}

type tinyURLCreateRequest struct {
	URL    string `json:"url"`
	Domain string `json:"domain,omitempty"`
	Alias  string `json:"alias,omitempty"`
}

type tinyURLCreateResponse struct {
	Data struct {
		TinyURL string `json:"tiny_url"`
	} `json:"data"`
	Code   int      `json:"code"`
	Errors []string `json:"errors"`
}

// NewTinyURLClient creates a new TinyURL client
func NewTinyURLClient(cfg *config.ShortenerConfig) *TinyURLClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = tinyURLLegacyBase
		if cfg.APIToken != "" {
			base = tinyURLAPIBase
		}
	}
	return &TinyURLClient{
		baseURL: base,
		token:   cfg.APIToken,
		domain:  cfg.Domain,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *TinyURLClient) HasCredentials() bool { return c.token != "" }

// Shorten creates a short link for longURL
func (c *TinyURLClient) Shorten(ctx context.Context, longURL, alias string) (string, error) {
	if c.token == "" {
		return c.shortenLegacy(ctx, longURL, alias)
	}

	body, err := json.Marshal(tinyURLCreateRequest{URL: longURL, Domain: c.domain, Alias: alias})
	if err != nil {
		return "", fmt.Errorf("failed to marshal shorten request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrShortenerUnavailable, err)
	}
	defer resp.Body.Close()

	// 422 is how TinyURL reports an unavailable alias; 409 covers compatible providers
	if alias != "" && (resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict) {
		return "", ErrAliasTaken
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrShortenerUnavailable, resp.StatusCode)
	}

	var out tinyURLCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: malformed response: %v", ErrShortenerUnavailable, err)
	}
	if out.Data.TinyURL == "" {
		return "", fmt.Errorf("%w: empty tiny_url", ErrShortenerUnavailable)
	}
	return out.Data.TinyURL, nil
}

func (c *TinyURLClient) shortenLegacy(ctx context.Context, longURL, alias string) (string, error) {
	q := url.Values{}
	q.Set("url", longURL)
	if alias != "" {
		q.Set("alias", alias)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api-create.php?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrShortenerUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrShortenerUnavailable, err)
	}
	text := strings.TrimSpace(string(raw))

	if alias != "" && (resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict) {
		return "", ErrAliasTaken
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrShortenerUnavailable, resp.StatusCode)
	}
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		return text, nil
	}
	// the legacy endpoint may also answer 200 with a plain "Error" body
	if strings.Contains(strings.ToLower(text), "error") {
		if alias != "" {
			return "", ErrAliasTaken
		}
		return "", fmt.Errorf("%w: %s", ErrShortenerUnavailable, text)
	}
	return "", fmt.Errorf("%w: malformed response", ErrShortenerUnavailable)
}

// MockURLShortener implements URLShortener in memory for development and tests
type MockURLShortener struct {
	mu      sync.Mutex
	BaseURL string
	Taken   map[string]string
	Calls   []MockShortenCall
	// Err, when set, is returned by every call
	Err error
}

// MockShortenCall represents one recorded Shorten call
type MockShortenCall struct {
	LongURL string
	Alias   string
}

// NewMockURLShortener creates a new mock shortener
func NewMockURLShortener() *MockURLShortener {
	return &MockURLShortener{
		BaseURL: "https://short.local",
		Taken:   make(map[string]string),
	}
}

func (m *MockURLShortener) HasCredentials() bool { return true }

// Shorten records the call and hands out aliases first come first served
func (m *MockURLShortener) Shorten(ctx context.Context, longURL, alias string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockShortenCall{LongURL: longURL, Alias: alias})
	if m.Err != nil {
		return "", m.Err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrShortenerUnavailable, err)
	}

	if alias == "" {
		for {
			alias = randomToken(8)
			if _, taken := m.Taken[alias]; !taken {
				break
			}
		}
	} else if _, taken := m.Taken[alias]; taken {
		return "", ErrAliasTaken
	}
	m.Taken[alias] = longURL
	return m.BaseURL + "/" + alias, nil
}

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomToken(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			b[i] = tokenAlphabet[i%len(tokenAlphabet)]
			continue
		}
		b[i] = tokenAlphabet[v.Int64()]
	}
	return string(b)
}
