package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Backend produces raw completion text for a prompt. Implementations must
// return the provider's error message verbatim so the pipeline can classify
// transient model failures.
type Backend interface {
	Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error)
}

// InferenceClient talks to a hosted-inference chat-completions endpoint over
// HTTP with bearer-token auth.
type InferenceClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewInferenceClient creates a client targeting the given base URL.
func NewInferenceClient(baseURL, token string) *InferenceClient {
	return &InferenceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionRequest is the JSON body for POST /v1/chat/completions.
type completionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// completionResponse is the JSON returned on success; on failure the body
// carries an error object whose message is surfaced verbatim.
type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the prompt as a single user message and returns the first
// choice's content.
func (c *InferenceClient) Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	var result completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The provider's message text drives failure classification upstream.
		if result.Error.Message != "" {
			return "", fmt.Errorf("completion with %s: %s", model, result.Error.Message)
		}
		return "", fmt.Errorf("completion with %s: unexpected status %d", model, resp.StatusCode)
	}

	if len(result.Choices) == 0 {
		return "", nil
	}
	return result.Choices[0].Message.Content, nil
}
