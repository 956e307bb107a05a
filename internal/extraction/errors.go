package extraction

import (
	"errors"
	"fmt"
	"strings"

	"shipcerts/internal/certificate"
	"shipcerts/internal/llm"
	"shipcerts/internal/pdf"
)

// Common extraction errors
var (
	// ErrNotConfigured is returned when no LLM provider, model or key is available.
	ErrNotConfigured = errors.New("no LLM provider or API key configured")

	// ErrMalformedInput is returned for files that cannot be read as a PDF.
	ErrMalformedInput = pdf.ErrMalformedPDF

	// ErrEmptyPrompt is returned when no prompt could be built, usually because
	// the document had no readable text.
	ErrEmptyPrompt = errors.New("no prompt could be built for the document")

	// ErrEmptyResponse is returned when the model produced no text, whether the
	// gateway or the response parser noticed it first.
	ErrEmptyResponse = llm.ErrEmptyResponse

	// ErrDecodeFailed is returned when the model output is not a usable JSON object.
	ErrDecodeFailed = errors.New("model response could not be decoded")

	// ErrMissingRequiredFields is returned when cert_name or cert_no is absent.
	ErrMissingRequiredFields = errors.New("certificate name and number are required")

	// ErrOCRUnavailable is returned for image-based documents when no OCR engine is set.
	ErrOCRUnavailable = errors.New("document is image-based and no OCR engine is configured")

	// ErrAllChunksFailed is returned when no chunk of a split document was extracted.
	ErrAllChunksFailed = errors.New("all chunks failed extraction")
)

// MalformedInputError reports an input file that could not be paged.
type MalformedInputError = pdf.MalformedInputError

// ValidationDowngrade records a field cleared or defaulted during normalization.
type ValidationDowngrade = certificate.ValidationDowngrade

// ConfigurationError reports missing provider configuration. Callers surface
// it as an actionable message instead of a generic failure.
type ConfigurationError struct {
	Op      string
	Err     error
	Details string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extraction: %s: configuration error: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extraction: %s: configuration error: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is matches ErrNotConfigured as well as the wrapped error.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrNotConfigured || errors.Is(e.Err, target)
}

// ExtractionFailure reports model output that could not be turned into a
// record. It is carried on the result rather than returned.
type ExtractionFailure struct {
	Op        string `json:"op"`
	Err       error  `json:"-"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`

	// RawResponse is the unparsed model output, kept for diagnostics.
	RawResponse string `json:"raw_response,omitempty"`
}

// Error implements the error interface.
func (e *ExtractionFailure) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("extraction: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("extraction: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionFailure) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionFailure) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// AllChunksFailedError reports a split document with zero usable chunks.
type AllChunksFailedError struct {
	TotalChunks int
	Failures    []string
	Retryable   bool
}

// Error implements the error interface.
func (e *AllChunksFailedError) Error() string {
	return fmt.Sprintf("extraction: all %d chunks failed: %s", e.TotalChunks, strings.Join(e.Failures, "; "))
}

// Is matches ErrAllChunksFailed.
func (e *AllChunksFailedError) Is(target error) bool {
	return target == ErrAllChunksFailed
}

// NewExtractionFailure creates a failure for the operation.
func NewExtractionFailure(op string, err error, details string) *ExtractionFailure {
	return &ExtractionFailure{Op: op, Err: err, Details: details}
}

// WrapExtractionFailure wraps an error as an ExtractionFailure if it isn't already one.
func WrapExtractionFailure(op string, err error, details string) *ExtractionFailure {
	if err == nil {
		return nil
	}
	var failure *ExtractionFailure
	if errors.As(err, &failure) {
		return failure
	}
	return NewExtractionFailure(op, err, details)
}
