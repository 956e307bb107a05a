package pdf

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPDF is returned when the bytes cannot be read as a PDF document.
	ErrMalformedPDF = errors.New("malformed or corrupted PDF document")

	// ErrEmptyPDF is returned when a PDF parses but has no pages.
	ErrEmptyPDF = errors.New("PDF document has no pages")
)

// MalformedInputError reports an input file that could not be paged.
type MalformedInputError struct {
	// Op is the operation that failed (e.g., "PageCount", "Split").
	Op string

	// Filename is the name of the offending file, if known.
	Filename string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *MalformedInputError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("pdf: %s failed for %s: %v", e.Op, e.Filename, e.Err)
	}
	return fmt.Sprintf("pdf: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// Is matches ErrMalformedPDF as well as the wrapped error.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedPDF || errors.Is(e.Err, target)
}

// malformed wraps err, or fills in the filename of an existing
// MalformedInputError that was raised before the name was known.
func malformed(op, filename string, err error) error {
	var mErr *MalformedInputError
	if errors.As(err, &mErr) {
		if mErr.Filename == "" {
			mErr.Filename = filename
		}
		return err
	}
	return &MalformedInputError{Op: op, Filename: filename, Err: err}
}
