package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNotConfigured is returned when no usable provider, model or key is set.
	ErrNotConfigured = errors.New("LLM provider is not configured")

	// ErrThrottled is returned when the provider rejects the call for rate or quota reasons.
	ErrThrottled = errors.New("LLM provider throttled the request")

	// ErrUnavailable is returned for transient server-side failures.
	ErrUnavailable = errors.New("LLM provider temporarily unavailable")

	// ErrEmptyResponse is returned when the provider answered with no text.
	ErrEmptyResponse = errors.New("LLM returned an empty response")

	// ErrRequestFailed covers every other provider failure.
	ErrRequestFailed = errors.New("LLM request failed")
)

// LLMError wraps provider failures with the operation and provider name.
type LLMError struct {
	Op       string
	Provider string
	Err      error
	Details  string
}

// Error implements the error interface.
func (e *LLMError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("llm: %s (%s) failed: %s: %v", e.Op, e.Provider, e.Details, e.Err)
	}
	return fmt.Sprintf("llm: %s (%s) failed: %v", e.Op, e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *LLMError) Unwrap() error {
	return e.Err
}

// Is implements error matching against the package sentinels.
func (e *LLMError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapLLMError wraps an error as an LLMError if it isn't already one.
func WrapLLMError(op, provider string, err error, details string) error {
	if err == nil {
		return nil
	}
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return err
	}
	return &LLMError{Op: op, Provider: provider, Err: err, Details: details}
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrThrottled) || errors.Is(err, ErrUnavailable)
}

// classify maps a raw provider error onto a sentinel, keeping the original
// message as detail. HTTP status codes come from go-openai and googleapi
// errors; gRPC codes from the Google SDKs.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsRetryable(err) || errors.Is(err, ErrEmptyResponse) || errors.Is(err, ErrNotConfigured) {
		return err
	}

	if code, ok := httpStatus(err); ok {
		return fmt.Errorf("%w: HTTP %d: %v", sentinelForStatus(code), code, err)
	}

	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", ErrThrottled, err)
	case codes.Unavailable, codes.Internal:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}

func httpStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode, true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code != 0 {
		return gErr.Code, true
	}
	return 0, false
}

func sentinelForStatus(code int) error {
	switch code {
	case http.StatusTooManyRequests:
		return ErrThrottled
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrNotConfigured
	}
	return ErrRequestFailed
}
