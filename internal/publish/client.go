package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrPermissionDenied indicates the credentials authenticate but lack the
// access level for the attempted call. Callers should surface remediation
// guidance (app permissions must be updated and tokens regenerated).
var ErrPermissionDenied = errors.New("platform permission denied")

// Client posts to the social platform's v2 API with bearer-token auth.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a platform client targeting the given base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// postRequest is the JSON body for POST /2/tweets.
type postRequest struct {
	Text string `json:"text"`
}

// postResponse is the JSON returned on a successful post.
type postResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Post publishes text and returns the platform-assigned post ID. A 401 or
// 403 maps to ErrPermissionDenied.
func (c *Client) Post(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(postRequest{Text: text})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("posting: %w (status %d): check app write permission and regenerate tokens", ErrPermissionDenied, resp.StatusCode)
	default:
		return "", fmt.Errorf("posting: unexpected status %d", resp.StatusCode)
	}

	var result postResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding post response: %w", err)
	}
	return result.Data.ID, nil
}

// meResponse is the JSON returned by GET /2/users/me.
type meResponse struct {
	Data struct {
		Username string `json:"username"`
	} `json:"data"`
}

// Verify checks the credentials by looking up the authenticated account and
// returns its username. Posting itself is the definitive write-permission
// test; this only proves authentication.
func (c *Client) Verify(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/2/users/me", nil)
	if err != nil {
		return "", fmt.Errorf("creating verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("verifying credentials: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("verifying credentials: %w (status %d)", ErrPermissionDenied, resp.StatusCode)
	default:
		return "", fmt.Errorf("verifying credentials: unexpected status %d", resp.StatusCode)
	}

	var result meResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding verify response: %w", err)
	}
	return result.Data.Username, nil
}
