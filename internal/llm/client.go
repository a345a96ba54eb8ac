// Package llm provides the advisor's LLM provider clients.
package llm

import (
	"context"
	"fmt"
)

// Provider is the contract every insight provider satisfies: given a prompt
// pair, return raw assistant text. The advisor validates the text itself;
// providers never parse advice.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Name() string
}

// CompletionRequest is one completion call to a provider. Language is the
// BCP 47 code the response text should be written in; HTTP providers carry
// it inside the prompts, template providers read it directly.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Language     string
	MaxTokens    int
	Temperature  float64
}

// CompletionResponse carries the assistant text plus call diagnostics.
type CompletionResponse struct {
	Text   string
	RayID  string
	Status int
}

// FailureReason classifies terminal provider failures.
type FailureReason string

// Failure reasons.
const (
	ReasonTimeout        FailureReason = "timeout"
	ReasonRateLimited    FailureReason = "rate_limited"
	ReasonRequestInvalid FailureReason = "request_invalid"
	ReasonHTTPError      FailureReason = "http_error"
	ReasonParseError     FailureReason = "response_parse_error"
	ReasonShapeError     FailureReason = "response_shape_error"
)

// ProviderError is the typed error surfaced when all attempts are exhausted.
type ProviderError struct {
	Err               error
	Reason            FailureReason
	ProviderErrorCode string
	RayID             string
	Status            int
	RetryAfterSeconds int
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s (status %d): %v", e.Reason, e.Status, e.Err)
	}
	return fmt.Sprintf("provider %s (status %d)", e.Reason, e.Status)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
