package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc, cfg Config) Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.Endpoint = server.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	provider, err := NewHTTPProvider(cfg)
	require.NoError(t, err)
	return provider
}

func TestNewHTTPProviderValidation(t *testing.T) {
	_, err := NewHTTPProvider(Config{APIKey: "k"})
	require.Error(t, err, "endpoint required")

	_, err = NewHTTPProvider(Config{Endpoint: "http://localhost"})
	require.Error(t, err, "api key required")
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth, gotRayID string
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRayID = r.Header.Get("X-Request-ID")
		_ = json.NewEncoder(w).Encode(map[string]string{"response": `{"summary":"ok"}`})
	}, Config{})

	resp, err := provider.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})
	require.NoError(t, err)

	assert.Equal(t, `{"summary":"ok"}`, resp.Text)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, gotRayID, resp.RayID, "ray id echoes the request header")
}

func TestCompleteRetriesRateLimitOnce(t *testing.T) {
	var calls atomic.Int64
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "fine"})
	}, Config{MaxAttempts: 2})

	resp, err := provider.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "fine", resp.Text)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCompleteRateLimitExhausted(t *testing.T) {
	var calls atomic.Int64
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}, Config{MaxAttempts: 2})

	_, err := provider.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonRateLimited, perr.Reason)
	assert.Equal(t, http.StatusTooManyRequests, perr.Status)
	assert.Equal(t, 7, perr.RetryAfterSeconds)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCompleteBadRequestNotRetried(t *testing.T) {
	var calls atomic.Int64
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": "bad_prompt", "message": "nope"}}`))
	}, Config{MaxAttempts: 3})

	_, err := provider.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonRequestInvalid, perr.Reason)
	assert.Equal(t, "bad_prompt", perr.ProviderErrorCode)
	assert.EqualValues(t, 1, calls.Load(), "4xx other than 429 is terminal")
}

func TestCompleteServerErrorNotRetried(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, Config{})

	_, err := provider.Complete(context.Background(), CompletionRequest{})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonHTTPError, perr.Reason)
}

func TestCompleteTimeout(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]string{"response": "late"})
	}, Config{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := provider.Complete(context.Background(), CompletionRequest{})
	elapsed := time.Since(start)

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonTimeout, perr.Reason)
	assert.True(t, errors.Is(perr.Err, context.DeadlineExceeded) || perr.Err != nil)
	assert.Less(t, elapsed, 250*time.Millisecond, "timeout fires before the handler finishes")
}

func TestCompleteUnparseableBody(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}, Config{})

	_, err := provider.Complete(context.Background(), CompletionRequest{})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonParseError, perr.Reason)
}

func TestCompleteEmptyEnvelope(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"messages": [{"role": "user", "content": "hi"}]}`))
	}, Config{})

	_, err := provider.Complete(context.Background(), CompletionRequest{})
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ReasonShapeError, perr.Reason)
}

func TestExtractAssistantText(t *testing.T) {
	decode := func(t *testing.T, raw string) completionEnvelope {
		t.Helper()
		var env completionEnvelope
		require.NoError(t, json.Unmarshal([]byte(raw), &env))
		return env
	}

	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "direct response field wins",
			body:     `{"response": "a", "output_text": "b"}`,
			expected: "a",
		},
		{
			name:     "output_text second",
			body:     `{"output_text": "b", "messages": [{"role": "assistant", "content": "c"}]}`,
			expected: "b",
		},
		{
			name:     "last assistant message",
			body:     `{"messages": [{"role": "assistant", "content": "old"}, {"role": "user", "content": "q"}, {"role": "assistant", "content": "new"}]}`,
			expected: "new",
		},
		{
			name:     "first choice content",
			body:     `{"choices": [{"message": {"role": "assistant", "content": "choice"}}]}`,
			expected: "choice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := extractAssistantText(decode(t, tt.body))
			require.True(t, ok)
			assert.Equal(t, tt.expected, text)
		})
	}

	t.Run("nothing extractable", func(t *testing.T) {
		_, ok := extractAssistantText(completionEnvelope{})
		assert.False(t, ok)
	})
}
