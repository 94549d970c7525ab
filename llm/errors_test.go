package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{408, true},
		{413, false},
		{422, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{418, true}, // unknown statuses default retryable
	}

	for _, tt := range tests {
		err := ErrorFromStatusCode(tt.status, "test error", "openai", nil)
		if got := IsRetryable(err); got != tt.retryable {
			t.Errorf("status %d: IsRetryable = %v, want %v", tt.status, got, tt.retryable)
		}
	}
}

func TestErrorFromStatusCodeTypes(t *testing.T) {
	if _, ok := ErrorFromStatusCode(401, "", "anthropic", nil).(*AuthenticationError); !ok {
		t.Error("401 should map to AuthenticationError")
	}
	if _, ok := ErrorFromStatusCode(429, "", "anthropic", nil).(*RateLimitError); !ok {
		t.Error("429 should map to RateLimitError")
	}
	if _, ok := ErrorFromStatusCode(413, "", "anthropic", nil).(*ContextLengthError); !ok {
		t.Error("413 should map to ContextLengthError")
	}
	if _, ok := ErrorFromStatusCode(503, "", "anthropic", nil).(*ServerError); !ok {
		t.Error("503 should map to ServerError")
	}
}

func TestRateLimitRetryAfter(t *testing.T) {
	after := 2.5
	err := ErrorFromStatusCode(429, "slow down", "gemini", &after)
	rl, ok := err.(*RateLimitError)
	if !ok {
		t.Fatalf("expected *RateLimitError, got %T", err)
	}
	if rl.RetryAfter == nil || *rl.RetryAfter != 2.5 {
		t.Errorf("RetryAfter = %v, want 2.5", rl.RetryAfter)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"auth error", &AuthenticationError{}, false},
		{"access denied", &AccessDeniedError{}, false},
		{"not found", &NotFoundError{}, false},
		{"invalid request", &InvalidRequestError{}, false},
		{"context length", &ContextLengthError{}, false},
		{"malformed response", &MalformedResponseError{}, false},
		{"config error", &ConfigurationError{}, false},
		{"rate limit", &RateLimitError{ProviderError: ProviderError{Retryable: true}}, true},
		{"server error", &ServerError{ProviderError: ProviderError{Retryable: true}}, true},
		{"network error", &NetworkError{}, true},
		{"timeout error", &RequestTimeoutError{}, true},
		{"unknown error", errors.New("unknown"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable(%T) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

type retryableFlag struct{ ok bool }

func (e *retryableFlag) Error() string   { return "flagged" }
func (e *retryableFlag) Retryable() bool { return e.ok }

func TestIsRetryableHonorsInterface(t *testing.T) {
	if IsRetryable(&retryableFlag{ok: false}) {
		t.Error("errors reporting Retryable()=false must not be retried")
	}
	if !IsRetryable(&retryableFlag{ok: true}) {
		t.Error("errors reporting Retryable()=true should be retried")
	}
}

func TestAdapterErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &AdapterError{Message: "wrapper", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("expected AdapterError to unwrap to its cause")
	}
}

func TestProviderErrorMessage(t *testing.T) {
	err := &ProviderError{
		AdapterError: AdapterError{Message: "rate limit exceeded"},
		Provider:     "openai",
		StatusCode:   429,
		Retryable:    true,
	}
	msg := err.Error()
	if !strings.Contains(msg, "openai") || !strings.Contains(msg, "rate limit") {
		t.Errorf("error message missing expected content: %q", msg)
	}
}
