// Package insights derives short texts from transcripts via an
// OpenAI-compatible chat-completions endpoint.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNoAPIKey reports that neither a per-call key override nor a process-wide
// default key is configured. It is a configuration error, distinct from a
// failed model call.
var ErrNoAPIKey = errors.New("no OpenAI API key available")

// APIError represents a non-2xx response from the chat-completions endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat completion failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// ClientConfig holds the generator's construction parameters.
type ClientConfig struct {
	BaseURL      string // e.g. https://api.openai.com/v1
	DefaultKey   string // process-wide API key; may be empty
	NotesModel   string // model for VariantNotes
	SummaryModel string // model for VariantSummary
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Client generates insights from transcript text. Safe for concurrent use.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate produces insight text for the transcript under the given variant.
// A non-empty keyOverride takes precedence over the configured default key;
// if neither is available Generate fails with ErrNoAPIKey before any network
// I/O. Transient server and network failures are retried with exponential
// backoff; 4xx responses are permanent.
func (c *Client) Generate(ctx context.Context, variant Variant, transcript, keyOverride string) (string, error) {
	key := keyOverride
	if key == "" {
		key = c.cfg.DefaultKey
	}
	if key == "" {
		return "", ErrNoAPIKey
	}

	spec, ok := prompts[variant]
	if !ok {
		return "", fmt.Errorf("unknown insight variant %d", variant)
	}

	model := c.cfg.NotesModel
	if variant == VariantSummary {
		model = c.cfg.SummaryModel
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: spec.system},
			{Role: "user", Content: spec.user(transcript)},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	c.logger.Info("generating insights",
		"variant", variant.String(),
		"model", model,
		"transcript_chars", len(transcript),
	)

	var content string
	operation := func() error {
		result, err := c.complete(ctx, key, body)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		content = result
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.cfg.Timeout
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	return content, nil
}

// complete performs one chat-completions request.
func (c *Client) complete(ctx context.Context, key string, body []byte) (string, error) {
	url := c.cfg.BaseURL + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", &APIError{StatusCode: resp.StatusCode, Body: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
