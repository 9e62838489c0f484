package crmsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tradiehq/TradieHQ/internal/pkg/env"
)

const (
	defaultHubspotAPIBaseURL = "https://api.hubapi.com"
	defaultHubspotTokenURL   = "https://api.hubapi.com/oauth/v1/token"

	defaultRetryAfter = time.Second
)

// ErrUnauthorized is returned when the CRM rejects the bearer token.
var ErrUnauthorized = errors.New("hubspot: unauthorized")

// RateLimitError reports a 429 response and the delay the CRM asked for.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("hubspot: rate limited, retry after %s", e.RetryAfter)
}

// Contact is the subset of a CRM contact the sync worker consumes.
type Contact struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// TokenResponse is the CRM OAuth token-endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// CRMClient is the outbound CRM surface the worker depends on.
type CRMClient interface {
	SearchContactByEmail(ctx context.Context, token, email string) (*Contact, error)
	CreateContact(ctx context.Context, token string, properties map[string]string) (*Contact, error)
	PatchContact(ctx context.Context, token, contactID string, properties map[string]string) error
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
}

// HubSpotClient talks to the HubSpot CRM v3 contacts API and OAuth endpoint.
type HubSpotClient struct {
	ClientID     string
	ClientSecret string

	APIBaseURL string
	TokenURL   string

	HTTPClient *http.Client
}

func NewHubSpotClientFromEnv() *HubSpotClient {
	return &HubSpotClient{
		ClientID:     strings.TrimSpace(env.GetEnv("HUBSPOT_CLIENT_ID", "")),
		ClientSecret: strings.TrimSpace(env.GetEnv("HUBSPOT_CLIENT_SECRET", "")),
		APIBaseURL:   strings.TrimSpace(env.GetEnv("HUBSPOT_API_BASE_URL", defaultHubspotAPIBaseURL)),
		TokenURL:     strings.TrimSpace(env.GetEnv("HUBSPOT_TOKEN_URL", defaultHubspotTokenURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SearchContactByEmail looks up a contact by email. It returns (nil, nil)
// when no contact matches.
func (c *HubSpotClient) SearchContactByEmail(ctx context.Context, token, email string) (*Contact, error) {
	payload := map[string]interface{}{
		"filterGroups": []map[string]interface{}{
			{
				"filters": []map[string]string{
					{"propertyName": "email", "operator": "EQ", "value": email},
				},
			},
		},
		"limit": 1,
	}

	var out struct {
		Total   int       `json:"total"`
		Results []Contact `json:"results"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", token, payload, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, nil
	}
	return &out.Results[0], nil
}

// CreateContact creates a new contact with the given properties.
func (c *HubSpotClient) CreateContact(ctx context.Context, token string, properties map[string]string) (*Contact, error) {
	var out Contact
	err := c.doJSON(ctx, http.MethodPost, "/crm/v3/objects/contacts", token, map[string]interface{}{
		"properties": properties,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchContact updates the properties of an existing contact.
func (c *HubSpotClient) PatchContact(ctx context.Context, token, contactID string, properties map[string]string) error {
	path := "/crm/v3/objects/contacts/" + url.PathEscape(contactID)
	return c.doJSON(ctx, http.MethodPatch, path, token, map[string]interface{}{
		"properties": properties,
	}, &struct{}{})
}

// RefreshToken exchanges a refresh token for a new token pair.
func (c *HubSpotClient) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return nil, errors.New("HUBSPOT_CLIENT_ID/HUBSPOT_CLIENT_SECRET are not configured")
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil, errors.New("refresh token is required")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("hubspot token refresh failed: status=%d body=%s", resp.StatusCode, string(raw))
	}

	var out TokenResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, errors.New("hubspot token refresh returned empty access_token")
	}
	return &out, nil
}

func (c *HubSpotClient) doJSON(ctx context.Context, method, path, token string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.APIBaseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("hubspot request %s %s failed: status=%d body=%s", method, path, resp.StatusCode, string(raw))
	}

	return json.Unmarshal(raw, out)
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
