package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backoff window for rate-limited retries. The delay is a random value in
// [backoffBase, backoffBase+backoffSpread).
const (
	backoffBase   = 200 * time.Millisecond
	backoffSpread = 400 * time.Millisecond
)

// Config holds configuration for the HTTP provider client.
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	MaxTokens   int
	Temperature float64
}

// httpProvider implements Provider against a JSON completion endpoint.
type httpProvider struct {
	httpClient  *http.Client
	endpoint    string
	apiKey      string
	model       string
	timeout     time.Duration
	maxAttempts int
	maxTokens   int
	temperature float64
}

// NewHTTPProvider creates a provider client for an HTTP JSON completion API.
func NewHTTPProvider(cfg Config) (Provider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("provider endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider API key is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 2
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1200
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.4
	}

	return &httpProvider{
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		maxTokens:   maxTokens,
		temperature: temperature,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Name identifies the provider in insight metadata.
func (p *httpProvider) Name() string {
	return "llm-http"
}

// Complete performs the completion call with per-attempt timeouts. Only
// HTTP 429 is retried; every other failure is terminal on first sight.
func (p *httpProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	rayID := uuid.NewString()

	var lastErr *ProviderError
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		resp, perr := p.attempt(ctx, req, rayID)
		if perr == nil {
			return resp, nil
		}

		lastErr = perr
		if perr.Reason != ReasonRateLimited || attempt == p.maxAttempts {
			return CompletionResponse{}, perr
		}

		// #nosec G404 -- jitter, not security sensitive
		delay := backoffBase + time.Duration(rand.Int63n(int64(backoffSpread)))
		select {
		case <-ctx.Done():
			return CompletionResponse{}, &ProviderError{Reason: ReasonTimeout, RayID: rayID, Err: ctx.Err()}
		case <-time.After(delay):
		}
	}

	return CompletionResponse{}, lastErr
}

// completionEnvelope covers the response shapes the backend may return.
// Text extraction checks fields in declaration order, first match wins.
type completionEnvelope struct {
	Response   string `json:"response"`
	OutputText string `json:"output_text"`
	Messages   []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *httpProvider) attempt(ctx context.Context, req CompletionRequest, rayID string) (CompletionResponse, *ProviderError) {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	requestBody := map[string]any{
		"model":        p.model,
		"systemPrompt": req.SystemPrompt,
		"userPrompt":   req.UserPrompt,
		"maxTokens":    req.MaxTokens,
		"temperature":  req.Temperature,
	}
	if req.MaxTokens == 0 {
		requestBody["maxTokens"] = p.maxTokens
	}
	if req.Temperature == 0 {
		requestBody["temperature"] = p.temperature
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return CompletionResponse{}, &ProviderError{Reason: ReasonRequestInvalid, RayID: rayID, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, p.endpoint, strings.NewReader(string(jsonBody)))
	if err != nil {
		return CompletionResponse{}, &ProviderError{Reason: ReasonRequestInvalid, RayID: rayID, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("X-Request-ID", rayID)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() != nil {
			return CompletionResponse{}, &ProviderError{Reason: ReasonTimeout, RayID: rayID, Err: err}
		}
		return CompletionResponse{}, &ProviderError{Reason: ReasonHTTPError, RayID: rayID, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return CompletionResponse{}, &ProviderError{Reason: ReasonHTTPError, Status: resp.StatusCode, RayID: rayID, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return CompletionResponse{}, p.classifyHTTPError(resp, body, rayID)
	}

	var envelope completionEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return CompletionResponse{}, &ProviderError{Reason: ReasonParseError, Status: resp.StatusCode, RayID: rayID, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	text, ok := extractAssistantText(envelope)
	if !ok {
		return CompletionResponse{}, &ProviderError{Reason: ReasonShapeError, Status: resp.StatusCode, RayID: rayID, Err: fmt.Errorf("no assistant text in response")}
	}

	return CompletionResponse{Text: text, Status: resp.StatusCode, RayID: rayID}, nil
}

func (p *httpProvider) classifyHTTPError(resp *http.Response, body []byte, rayID string) *ProviderError {
	perr := &ProviderError{
		Status: resp.StatusCode,
		RayID:  rayID,
		Err:    fmt.Errorf("provider API error (status %d): %s", resp.StatusCode, string(body)),
	}

	var envelope completionEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		perr.ProviderErrorCode = envelope.Error.Code
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		perr.Reason = ReasonRateLimited
		if after, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			perr.RetryAfterSeconds = after
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		perr.Reason = ReasonRequestInvalid
	default:
		perr.Reason = ReasonHTTPError
	}

	return perr
}

// extractAssistantText pulls the assistant text out of whichever response
// shape the backend used. Priority: direct response field, output_text, last
// assistant message in a message list, first choice's message content.
func extractAssistantText(envelope completionEnvelope) (string, bool) {
	if envelope.Response != "" {
		return envelope.Response, true
	}
	if envelope.OutputText != "" {
		return envelope.OutputText, true
	}
	for i := len(envelope.Messages) - 1; i >= 0; i-- {
		if envelope.Messages[i].Role == "assistant" && envelope.Messages[i].Content != "" {
			return envelope.Messages[i].Content, true
		}
	}
	if len(envelope.Choices) > 0 && envelope.Choices[0].Message.Content != "" {
		return envelope.Choices[0].Message.Content, true
	}
	return "", false
}
