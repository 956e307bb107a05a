package pdf

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/gen2brain/go-fitz"

	"shipcerts/internal/logger"
)

// DefaultRenderDPI is the resolution pages are rasterized at for OCR.
const DefaultRenderDPI = 200

// FitzInspector reads embedded text and renders pages with MuPDF.
// A document handle is opened per call; MuPDF handles are not shared
// between goroutines.
type FitzInspector struct{}

// NewFitzInspector creates an inspector backed by go-fitz.
func NewFitzInspector() *FitzInspector {
	return &FitzInspector{}
}

func openDocument(data []byte) (*fitz.Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, malformed("Open", "", fmt.Errorf("%w: %v", ErrMalformedPDF, err))
	}
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, malformed("Open", "", ErrEmptyPDF)
	}
	return doc, nil
}

// PageTexts returns the embedded text layer of every page, in page order.
// Pages whose text cannot be read come back empty.
func (f *FitzInspector) PageTexts(ctx context.Context, data []byte) ([]string, error) {
	log := logger.WithComponent("pdf")

	doc, err := openDocument(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	texts := make([]string, doc.NumPage())
	for i := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("Failed to read page text")
			continue
		}
		texts[i] = text
	}
	return texts, nil
}

// RenderPages rasterizes every page to PNG at the given resolution.
func (f *FitzInspector) RenderPages(ctx context.Context, data []byte, dpi float64) ([][]byte, error) {
	if dpi <= 0 {
		dpi = DefaultRenderDPI
	}

	doc, err := openDocument(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	images := make([][]byte, doc.NumPage())
	for i := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		png, err := doc.ImagePNG(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
		}
		images[i] = png
	}
	return images, nil
}

// IsImageBased reports whether the text layer is too sparse to use directly:
// the average count of non-space characters per page is below minCharsPerPage.
func IsImageBased(pageTexts []string, minCharsPerPage int) bool {
	if len(pageTexts) == 0 {
		return true
	}
	total := 0
	for _, text := range pageTexts {
		total += countVisible(text)
	}
	return total/len(pageTexts) < minCharsPerPage
}

// JoinPages concatenates page texts with page markers the prompt can cite.
func JoinPages(pageTexts []string, firstPage int) string {
	var b strings.Builder
	for i, text := range pageTexts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n%s", firstPage+i, text)
	}
	return b.String()
}

func countVisible(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
