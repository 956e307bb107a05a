// Package pdf pages certificate PDFs: it splits oversized documents into
// independent sub-PDFs and reads or rasterizes individual pages.
package pdf

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"shipcerts/internal/logger"
	"shipcerts/pkg/models"
)

const (
	// SplitThreshold is the largest page count processed as a single chunk.
	SplitThreshold = 15

	// DefaultMaxPagesPerChunk is the page budget of one chunk.
	DefaultMaxPagesPerChunk = 12

	// MaxPagesPerChunkCeiling caps any configured chunk size.
	MaxPagesPerChunkCeiling = 15
)

// Chunker splits PDFs into page-range chunks with pdfcpu.
type Chunker struct {
	threshold int
	maxPages  int
}

// NewChunker creates a chunker. Values of zero or less select the defaults;
// maxPagesPerChunk above the ceiling is clamped.
func NewChunker(threshold, maxPagesPerChunk int) *Chunker {
	if threshold <= 0 {
		threshold = SplitThreshold
	}
	return &Chunker{
		threshold: threshold,
		maxPages:  clampPages(maxPagesPerChunk),
	}
}

// DefaultChunker uses the default threshold and chunk size.
func DefaultChunker() *Chunker {
	return NewChunker(SplitThreshold, DefaultMaxPagesPerChunk)
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func clampPages(n int) int {
	if n <= 0 {
		return DefaultMaxPagesPerChunk
	}
	if n > MaxPagesPerChunkCeiling {
		return MaxPagesPerChunkCeiling
	}
	return n
}

// PageCount returns the number of pages in the document.
func (c *Chunker) PageCount(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, malformed("PageCount", "", ErrEmptyPDF)
	}
	n, err := api.PageCount(bytes.NewReader(data), relaxedConfig())
	if err != nil {
		return 0, malformed("PageCount", "", fmt.Errorf("%w: %v", ErrMalformedPDF, err))
	}
	if n == 0 {
		return 0, malformed("PageCount", "", ErrEmptyPDF)
	}
	return n, nil
}

// NeedsSplit reports whether the document has more pages than the split threshold.
func (c *Chunker) NeedsSplit(data []byte) (bool, error) {
	n, err := c.PageCount(data)
	if err != nil {
		return false, err
	}
	return n > c.threshold, nil
}

// Split pages a document. Documents at or under the threshold come back as a
// single chunk wrapping the original bytes; larger ones are cut into
// consecutive groups of maxPagesPerChunk pages, each a standalone PDF. A
// non-positive maxPagesPerChunk uses the chunker's configured size.
func (c *Chunker) Split(data []byte, filename string, maxPagesPerChunk int) ([]models.PDFChunk, error) {
	log := logger.WithComponent("pdf")

	maxPages := c.maxPages
	if maxPagesPerChunk > 0 {
		maxPages = clampPages(maxPagesPerChunk)
	}

	total, err := c.PageCount(data)
	if err != nil {
		return nil, malformed("Split", filename, err)
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	if total <= c.threshold {
		log.Debug().
			Str("file", filename).
			Int("pages", total).
			Msg("Document within split threshold, single chunk")
		return []models.PDFChunk{{
			Content:   data,
			ChunkNum:  1,
			PageRange: pageRange(1, total),
			StartPage: 1,
			EndPage:   total,
			PageCount: total,
			Filename:  filepath.Base(filename),
			SizeBytes: len(data),
		}}, nil
	}

	conf := relaxedConfig()
	chunks := make([]models.PDFChunk, 0, (total+maxPages-1)/maxPages)
	for start := 1; start <= total; start += maxPages {
		end := start + maxPages - 1
		if end > total {
			end = total
		}
		selection := pageRange(start, end)

		var out bytes.Buffer
		if err := api.Trim(bytes.NewReader(data), &out, []string{selection}, conf); err != nil {
			return nil, malformed("Split", filename, fmt.Errorf("%w: trim pages %s: %v", ErrMalformedPDF, selection, err))
		}

		num := len(chunks) + 1
		chunks = append(chunks, models.PDFChunk{
			Content:   out.Bytes(),
			ChunkNum:  num,
			PageRange: selection,
			StartPage: start,
			EndPage:   end,
			PageCount: end - start + 1,
			Filename:  fmt.Sprintf("%s_chunk%d.pdf", base, num),
			SizeBytes: out.Len(),
		})
	}

	log.Info().
		Str("file", filename).
		Int("pages", total).
		Int("chunks", len(chunks)).
		Int("max_pages_per_chunk", maxPages).
		Msg("Split PDF into chunks")

	return chunks, nil
}

func pageRange(start, end int) string {
	return fmt.Sprintf("%d-%d", start, end)
}
