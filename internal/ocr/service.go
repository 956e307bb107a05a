// Package ocr turns rasterized certificate pages into text using Google
// Cloud Vision or a Document AI OCR processor.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//   - GOOGLE_CLOUD_PROJECT: Google Cloud project ID (Document AI only)
//
// Pages are sent one image per request. A page that fails is logged and
// skipped; the document only fails when no page produced text.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shipcerts/internal/logger"
)

// Engine extracts text from a single page image.
type Engine interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// PageResult is the outcome of OCR on one page.
type PageResult struct {
	// Page is the 1-based page number within the document.
	Page int `json:"page"`

	// Text is the recognized text; empty when the page failed.
	Text string `json:"text"`

	// Err describes why the page failed, if it did.
	Err string `json:"error,omitempty"`
}

// OCRResult contains the results of OCR processing over a document.
type OCRResult struct {
	// Text is the recognized text of all successful pages in page order.
	Text string `json:"text"`

	// Pages holds the per-page outcomes.
	Pages []PageResult `json:"pages"`

	// FailedPages counts pages that produced no text.
	FailedPages int `json:"failed_pages"`

	// ProcessedAt is the timestamp when the OCR processing completed.
	ProcessedAt time.Time `json:"processed_at"`

	// ProcessingDuration is how long the OCR processing took.
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// ExtractPages runs the engine over each page image in order. firstPage is
// the document page number of images[0]. Each call is bounded by timeout
// when it is positive.
func ExtractPages(ctx context.Context, engine Engine, images [][]byte, firstPage int, timeout time.Duration) (*OCRResult, error) {
	const op = "ExtractPages"
	log := logger.WithComponent("ocr")
	start := time.Now()

	result := &OCRResult{Pages: make([]PageResult, 0, len(images))}
	var text strings.Builder

	for i, image := range images {
		if err := ctx.Err(); err != nil {
			return nil, WrapOCRError(op, ErrContextCanceled, err.Error())
		}
		page := firstPage + i

		pageText, err := extractOne(ctx, engine, image, timeout)
		if err != nil {
			pageErr := atPage("ExtractText", page, err)
			log.Warn().
				Err(pageErr).
				Int("page", page).
				Msg("OCR failed for page, skipping")
			result.Pages = append(result.Pages, PageResult{Page: page, Err: pageErr.Error()})
			result.FailedPages++
			continue
		}

		pageText = strings.TrimSpace(pageText)
		result.Pages = append(result.Pages, PageResult{Page: page, Text: pageText})
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		fmt.Fprintf(&text, "--- Page %d ---\n%s", page, pageText)
	}

	result.Text = text.String()
	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(start)

	log.Info().
		Int("pages", len(images)).
		Int("failed_pages", result.FailedPages).
		Int("chars", len(result.Text)).
		Dur("duration", result.ProcessingDuration).
		Msg("OCR completed")

	if result.Text == "" {
		return result, WrapOCRError(op, ErrEmptyDocument, fmt.Sprintf("%d pages processed", len(images)))
	}
	return result, nil
}

func extractOne(ctx context.Context, engine Engine, image []byte, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return engine.ExtractText(ctx, image)
}
