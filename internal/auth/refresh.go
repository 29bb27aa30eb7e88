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
)

// RefreshClient exchanges refresh tokens for new access tokens against the
// token endpoint. Pure request/response, no state beyond configuration.
type RefreshClient struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewRefreshClient creates a RefreshClient for the given token endpoint and
// client credentials.
func NewRefreshClient(tokenURL, clientID, clientSecret string, httpClient *http.Client) *RefreshClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RefreshClient{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

// tokenResponse is the raw response from the token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// Refresh posts grant_type=refresh_token with HTTP Basic auth and returns the
// new credential pair. The returned RefreshToken is empty when the endpoint
// did not rotate it.
func (c *RefreshClient) Refresh(ctx context.Context, refreshToken string) (Credentials, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Error != "" {
		return Credentials{}, fmt.Errorf("token error: %s - %s", parsed.Error, parsed.ErrorDesc)
	}
	if resp.StatusCode != http.StatusOK {
		return Credentials{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if parsed.AccessToken == "" {
		return Credentials{}, fmt.Errorf("token response missing access_token")
	}

	return Credentials{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
	}, nil
}
