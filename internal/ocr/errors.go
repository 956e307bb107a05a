package ocr

import (
	"errors"
	"fmt"
)

// MaxImageSizeBytes is the request limit of both Vision and Document AI.
const MaxImageSizeBytes = 20 * 1024 * 1024

var (
	ErrImageTooLarge        = fmt.Errorf("page image exceeds %d MB", MaxImageSizeBytes>>20)
	ErrInvalidImage         = errors.New("invalid or empty page image")
	ErrOCRFailed            = errors.New("OCR processing failed")
	ErrMissingCredentials   = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")
	ErrInvalidConfiguration = errors.New("invalid OCR engine configuration")
	ErrQuotaExceeded        = errors.New("OCR quota exceeded")
	ErrContextCanceled      = errors.New("OCR processing was canceled")

	// ErrEmptyDocument means every page failed or came back blank.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// OCRError carries the engine operation that failed and, for per-page
// failures, the 1-based document page.
type OCRError struct {
	Op      string
	Page    int
	Err     error
	Details string
}

func (e *OCRError) Error() string {
	where := e.Op
	if e.Page > 0 {
		where = fmt.Sprintf("%s (page %d)", e.Op, e.Page)
	}
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", where, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", where, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError returns an OCRError without a page.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{Op: op, Err: err, Details: details}
}

// WrapOCRError wraps err unless it already is an OCRError. Nil stays nil.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}
	return NewOCRError(op, err, details)
}

// atPage stamps the document page onto err, wrapping it first if needed.
func atPage(op string, page int, err error) *OCRError {
	var ocrErr *OCRError
	if !errors.As(err, &ocrErr) {
		ocrErr = NewOCRError(op, err, "")
	}
	if ocrErr.Page == 0 {
		ocrErr.Page = page
	}
	return ocrErr
}
