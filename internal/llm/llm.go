// Package llm wraps an OpenAI-compatible chat completion API behind a
// retry policy: transient failures (rate limits, timeouts, server and
// network errors) are retried with exponential backoff, permanent ones
// (auth, malformed request) fail immediately.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorKind classifies gateway failures.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindBadInput  ErrorKind = "bad_request"
	KindRateLimit ErrorKind = "rate_limit"
	KindTimeout   ErrorKind = "timeout"
	KindServer    ErrorKind = "server_error"
	KindNetwork   ErrorKind = "network"
	KindResponse  ErrorKind = "bad_response"
)

// GatewayError is a typed failure from the model API.
type GatewayError struct {
	Kind ErrorKind
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("llm gateway: %s: %v", e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *GatewayError) Transient() bool {
	switch e.Kind {
	case KindRateLimit, KindTimeout, KindServer, KindNetwork:
		return true
	}
	return false
}

const backoffBase = 500 * time.Millisecond

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api         *openai.Client
	model       string
	timeout     time.Duration
	maxAttempts int
}

// New creates a gateway client. maxAttempts is the total attempt budget
// including the first call; timeout bounds each attempt.
func New(baseURL, apiKey, modelName string, timeout time.Duration, maxAttempts int) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		api:         openai.NewClientWithConfig(config),
		model:       modelName,
		timeout:     timeout,
		maxAttempts: maxAttempts,
	}
}

// Ping verifies the endpoint is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.api.ListModels(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// Complete sends a single-turn prompt and returns the raw model text.
// It retries transient failures up to the attempt budget.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr *GatewayError

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := backoffBase << (attempt - 2)
			slog.Debug("retrying LLM call", "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", &GatewayError{Kind: KindTimeout, Err: ctx.Err()}
			}
		}

		raw, err := c.complete(ctx, prompt)
		if err == nil {
			return raw, nil
		}

		lastErr = classify(err)
		if !lastErr.Transient() {
			return "", lastErr
		}
		slog.Warn("transient LLM failure", "attempt", attempt, "kind", lastErr.Kind, "error", err)
	}

	return "", lastErr
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &GatewayError{Kind: KindResponse, Err: errors.New("no choices in response")}
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps transport errors onto the gateway taxonomy.
func classify(err error) *GatewayError {
	var gw *GatewayError
	if errors.As(err, &gw) {
		return gw
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == 401 || status == 403:
		return &GatewayError{Kind: KindAuth, Err: err}
	case status == 429:
		return &GatewayError{Kind: KindRateLimit, Err: err}
	case status >= 500:
		return &GatewayError{Kind: KindServer, Err: err}
	case status >= 400:
		return &GatewayError{Kind: KindBadInput, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &GatewayError{Kind: KindTimeout, Err: err}
	default:
		return &GatewayError{Kind: KindNetwork, Err: err}
	}
}
