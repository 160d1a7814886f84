package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/amirphl/utm-tracker/config"
	"github.com/google/uuid"
)

// ErrUserNotFound is returned when the identity provider has no user or no email for an id
var ErrUserNotFound = errors.New("user not found")

// IdentityClient resolves user ids to email addresses through the identity provider's admin API
type IdentityClient interface {
	EmailByID(ctx context.Context, userID uuid.UUID) (string, error)
}

// IdentityClientImpl implements IdentityClient
type IdentityClientImpl struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

type identityUserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// NewIdentityClient creates a new identity client.
// Requests are bounded by the caller's context, the http client timeout is a backstop.
func NewIdentityClient(cfg *config.IdentityConfig) *IdentityClientImpl {
	return &IdentityClientImpl{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		serviceKey: cfg.ServiceKey,
		client: &http.Client{
			Timeout: 4 * cfg.ItemTimeout,
		},
	}
}

// EmailByID fetches one user from GET /auth/v1/admin/users/{id}
func (c *IdentityClientImpl) EmailByID(ctx context.Context, userID uuid.UUID) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("identity base url is not configured")
	}

	endpoint := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch user %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrUserNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity provider returned status %d for user %s", resp.StatusCode, userID)
	}

	var out identityUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode user %s: %w", userID, err)
	}
	if out.Email == "" {
		return "", ErrUserNotFound
	}
	return out.Email, nil
}
