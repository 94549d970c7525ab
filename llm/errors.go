package llm

import "fmt"

// AdapterError is the base error type for provider adapter failures.
type AdapterError struct {
	Message string
	Cause   error
}

func (e *AdapterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error { return e.Cause }

// ProviderError represents a non-success response from an LLM vendor. It
// always carries the HTTP status and the response body so the caller can
// decide whether the whole task is worth retrying later.
type ProviderError struct {
	AdapterError
	Provider   string
	StatusCode int
	Retryable  bool
	RetryAfter *float64
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type AccessDeniedError struct{ ProviderError }
type NotFoundError struct{ ProviderError }
type InvalidRequestError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }

// Non-provider errors.

type RequestTimeoutError struct{ AdapterError }
type NetworkError struct{ AdapterError }
type MalformedResponseError struct{ AdapterError }
type ConfigurationError struct{ AdapterError }

// ErrorFromStatusCode maps an HTTP status code to the appropriate error
// type. Anything unrecognized defaults to a retryable ProviderError.
func ErrorFromStatusCode(statusCode int, message, provider string, retryAfter *float64) error {
	pe := ProviderError{
		AdapterError: AdapterError{Message: message},
		Provider:     provider,
		StatusCode:   statusCode,
		RetryAfter:   retryAfter,
	}

	switch statusCode {
	case 400, 422:
		return &InvalidRequestError{ProviderError: pe}
	case 401:
		return &AuthenticationError{ProviderError: pe}
	case 403:
		return &AccessDeniedError{ProviderError: pe}
	case 404:
		return &NotFoundError{ProviderError: pe}
	case 408:
		return &RequestTimeoutError{AdapterError: AdapterError{Message: message}}
	case 413:
		return &ContextLengthError{ProviderError: pe}
	case 429:
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case 500, 502, 503, 504:
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	default:
		pe.Retryable = true
		return &pe
	}
}

// IsRetryable reports whether the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *ProviderError:
		return e.Retryable
	case *AuthenticationError, *AccessDeniedError, *NotFoundError,
		*InvalidRequestError, *ContextLengthError,
		*MalformedResponseError, *ConfigurationError:
		return false
	case *RateLimitError, *ServerError, *NetworkError, *RequestTimeoutError:
		return true
	case interface{ Retryable() bool }:
		return e.Retryable()
	default:
		// Unknown errors default to retryable.
		return true
	}
}
