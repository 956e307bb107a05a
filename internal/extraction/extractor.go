// Package extraction turns an uploaded certificate file into a normalized
// CertificateRecord: it pages the PDF, reads or OCRs each chunk, prompts the
// LLM per chunk, merges the chunk results and applies field normalization.
package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"shipcerts/internal/certificate"
	"shipcerts/internal/llm"
	"shipcerts/internal/logger"
	"shipcerts/internal/ocr"
	"shipcerts/internal/pdf"
	"shipcerts/pkg/models"
)

// Completer is the LLM gateway.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// PageReader reads the text layer of a PDF and rasterizes its pages.
type PageReader interface {
	PageTexts(ctx context.Context, data []byte) ([]string, error)
	RenderPages(ctx context.Context, data []byte, dpi float64) ([][]byte, error)
}

// Splitter pages a PDF into chunks.
type Splitter interface {
	Split(data []byte, filename string, maxPagesPerChunk int) ([]models.PDFChunk, error)
}

// Cache stores accepted results by content hash.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Dependencies are the collaborators of an Extractor. LLM may be nil, in
// which case every extraction ends in a configuration error. OCR and Cache
// are optional.
type Dependencies struct {
	LLM      Completer
	Pages    PageReader
	Splitter Splitter
	OCR      ocr.Engine
	Cache    Cache
}

// Options tune an Extractor.
type Options struct {
	MaxPagesPerChunk    int
	MinTextCharsPerPage int
	ChunkConcurrency    int
	RenderDPI           float64
	OCRTimeout          time.Duration

	// Model is part of the cache key so a model change invalidates entries.
	Model string

	// ConfigError explains why LLM is nil, if it is.
	ConfigError error
}

// DefaultOptions returns the defaults used by the CLI.
func DefaultOptions() Options {
	return Options{
		MaxPagesPerChunk:    pdf.DefaultMaxPagesPerChunk,
		MinTextCharsPerPage: 50,
		ChunkConcurrency:    4,
		RenderDPI:           pdf.DefaultRenderDPI,
		OCRTimeout:          60 * time.Second,
	}
}

// Document is one uploaded file.
type Document struct {
	Filename string
	Content  []byte
	Type     models.DocumentType
}

// Status is the terminal state of an extraction.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusFallback Status = "fallback"
)

// Text acquisition paths.
const (
	MethodDirectText = "direct_text"
	MethodOCR        = "ocr"
	MethodMixed      = "mixed"
)

// Result is the outcome of one extraction run. A fallback result still
// carries the filename-derived category and the document type.
type Result struct {
	RunID        string                         `json:"run_id"`
	Filename     string                         `json:"filename"`
	DocumentType models.DocumentType            `json:"document_type"`
	Status       Status                         `json:"status"`
	Record       models.CertificateRecord       `json:"record"`
	Category     models.AuditCategory           `json:"category,omitempty"`
	Method       string                         `json:"method,omitempty"`
	Chunks       []models.ChunkExtractionResult `json:"chunks,omitempty"`
	MergeInfo    *models.MergeInfo              `json:"merge_info,omitempty"`
	Downgrades   []*ValidationDowngrade         `json:"downgrades,omitempty"`
	Failure      *ExtractionFailure             `json:"failure,omitempty"`
	RawResponse  string                         `json:"raw_response,omitempty"`
	Cached       bool                           `json:"cached,omitempty"`
}

// Accepted reports whether the record passed the acceptance check.
func (r *Result) Accepted() bool {
	return r.Status == StatusAccepted
}

// Extractor runs the extraction state machine.
type Extractor struct {
	deps Dependencies
	opts Options
}

// NewExtractor creates an extractor. Zero options fall back to DefaultOptions values.
func NewExtractor(deps Dependencies, opts Options) *Extractor {
	def := DefaultOptions()
	if opts.MaxPagesPerChunk <= 0 {
		opts.MaxPagesPerChunk = def.MaxPagesPerChunk
	}
	if opts.MinTextCharsPerPage <= 0 {
		opts.MinTextCharsPerPage = def.MinTextCharsPerPage
	}
	if opts.ChunkConcurrency <= 0 {
		opts.ChunkConcurrency = def.ChunkConcurrency
	}
	if opts.RenderDPI <= 0 {
		opts.RenderDPI = def.RenderDPI
	}
	if opts.OCRTimeout <= 0 {
		opts.OCRTimeout = def.OCRTimeout
	}
	if deps.Splitter == nil {
		deps.Splitter = pdf.DefaultChunker()
	}
	if deps.Pages == nil {
		deps.Pages = pdf.NewFitzInspector()
	}
	return &Extractor{deps: deps, opts: opts}
}

// chunkOutcome is the internal per-chunk state; the public part is Result.
type chunkOutcome struct {
	result models.ChunkExtractionResult
	method string
	raw    string
	err    error
}

// Extract runs one document through the pipeline.
//
// It returns an error only for malformed input, missing configuration and
// split documents where every chunk failed; in the last two cases a
// fallback Result is returned alongside the error. Unusable model output
// yields a fallback Result with Failure set and a nil error.
func (e *Extractor) Extract(ctx context.Context, doc Document) (*Result, error) {
	const op = "Extract"
	runID := uuid.NewString()
	log := logger.WithDocument("extraction", runID, doc.Filename)

	result := &Result{
		RunID:        runID,
		Filename:     doc.Filename,
		DocumentType: doc.Type,
		Status:       StatusFallback,
		Category:     certificate.DetectCategory(doc.Filename, ""),
	}

	log.Info().
		Str("document_type", string(doc.Type)).
		Int("size_bytes", len(doc.Content)).
		Msg("Extraction received")

	if len(doc.Content) == 0 {
		return nil, &MalformedInputError{Op: op, Filename: doc.Filename, Err: pdf.ErrEmptyPDF}
	}

	cacheKey := e.cacheKey(doc)
	if cached := e.lookup(ctx, log, cacheKey); cached != nil {
		cached.RunID = runID
		cached.Cached = true
		return cached, nil
	}

	if e.deps.LLM == nil {
		cause := e.opts.ConfigError
		if cause == nil {
			cause = llm.ErrNotConfigured
		}
		cfgErr := &ConfigurationError{Op: op, Err: cause, Details: "configure an LLM provider and API key, or enable the platform key"}
		log.Error().Err(cfgErr).Msg("Extraction cannot run without an LLM provider")
		return result, cfgErr
	}

	chunks, err := e.deps.Splitter.Split(doc.Content, doc.Filename, e.opts.MaxPagesPerChunk)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed to page document")
		return nil, err
	}
	log.Debug().Int("chunks", len(chunks)).Msg("Document classified")

	outcomes, err := e.extractChunks(ctx, log, chunks, doc)
	if err != nil {
		return nil, err
	}

	result.Method = methodOf(outcomes)
	for _, o := range outcomes {
		result.Chunks = append(result.Chunks, o.result)
	}

	var fields models.ExtractedFields
	if len(outcomes) == 1 {
		o := outcomes[0]
		result.RawResponse = o.raw
		if !o.result.Success {
			if isConfigError(o.err) {
				return result, &ConfigurationError{Op: op, Err: o.err}
			}
			result.Failure = WrapExtractionFailure(op, o.err, "")
			result.Failure.Retryable = o.result.Retryable
			result.Failure.RawResponse = o.raw
			log.Warn().Err(o.err).Msg("Extraction fell back")
			return result, nil
		}
		fields = o.result.Fields
	} else {
		merged, err := MergeChunks(result.Chunks, doc.Type)
		if err != nil {
			if allConfigErrors(outcomes) {
				return result, &ConfigurationError{Op: op, Err: outcomes[0].err}
			}
			var allFailed *AllChunksFailedError
			if errors.As(err, &allFailed) {
				result.Failure = NewExtractionFailure(op, err, "")
				result.Failure.Retryable = allFailed.Retryable
			}
			log.Error().Stack().Err(err).Msg("All chunks failed")
			return result, err
		}
		fields = merged.Fields
		result.MergeInfo = &merged.Info
	}

	e.postProcess(result, fields, doc)

	if !result.Record.HasRequiredFields() {
		result.Status = StatusFallback
		result.Failure = NewExtractionFailure(op, ErrMissingRequiredFields,
			fmt.Sprintf("cert_name=%q cert_no=%q", result.Record.CertName, result.Record.CertNo))
		log.Warn().
			Str("cert_name", result.Record.CertName).
			Str("cert_no", result.Record.CertNo).
			Msg("Required fields missing, record downgraded to fallback")
		return result, nil
	}

	result.Status = StatusAccepted
	log.Info().
		Str("cert_name", result.Record.CertName).
		Str("cert_no", result.Record.CertNo).
		Str("category", string(result.Category)).
		Str("method", result.Method).
		Int("downgrades", len(result.Downgrades)).
		Msg("Extraction accepted")

	e.store(ctx, log, cacheKey, result)
	return result, nil
}

// postProcess builds the record and runs the normalizers in order: dates,
// certificate type, abbreviations, IMO number, then category detection.
// The category the model reported is used only when detection finds none.
func (e *Extractor) postProcess(result *Result, fields models.ExtractedFields, doc Document) {
	rec := RecordFromFields(fields, doc.Type)
	result.Downgrades = certificate.NormalizeRecord(&rec, doc.Type)
	result.Record = rec
	result.Category = certificate.DetectCategory(doc.Filename, rec.CertName)
	if result.Category == models.AuditCategoryNone {
		result.Category = certificate.ParseCategory(fields["category"])
	}
}

// extractChunks fans out over the chunks and returns outcomes ordered by chunk number.
func (e *Extractor) extractChunks(ctx context.Context, log zerolog.Logger, chunks []models.PDFChunk, doc Document) ([]chunkOutcome, error) {
	outcomes := make([]chunkOutcome, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.ChunkConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			outcomes[i] = e.extractChunk(gctx, log, chunk, doc)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].result.ChunkNum < outcomes[j].result.ChunkNum
	})
	return outcomes, nil
}

func (e *Extractor) extractChunk(ctx context.Context, log zerolog.Logger, chunk models.PDFChunk, doc Document) chunkOutcome {
	const op = "extractChunk"
	log = logger.WithChunk(log, chunk.ChunkNum, chunk.PageRange)

	out := chunkOutcome{result: models.ChunkExtractionResult{
		ChunkNum:  chunk.ChunkNum,
		PageRange: chunk.PageRange,
	}}
	fail := func(err error) chunkOutcome {
		out.err = err
		out.result.Error = err.Error()
		out.result.Retryable = llm.IsRetryable(err)
		log.Warn().Err(err).Msg("Chunk extraction failed")
		return out
	}

	text, method, err := e.chunkText(ctx, log, chunk)
	out.method = method
	if err != nil {
		return fail(err)
	}
	out.result.SummaryText = summarize(text)

	prompt := BuildPrompt(text, doc.Filename, doc.Type)
	if prompt == "" {
		return fail(ErrEmptyPrompt)
	}

	raw, err := e.deps.LLM.Complete(ctx, prompt)
	out.raw = raw
	if err != nil {
		return fail(err)
	}

	fields, err := ParseResponse(raw)
	if err != nil {
		log.Debug().Str("response", raw).Msg("Unparseable model response")
		return fail(err)
	}

	out.result.Success = true
	out.result.Fields = fields
	log.Debug().Int("fields", len(fields)).Str("method", method).Msg("Chunk extracted")
	return out
}

// chunkText reads the embedded text of a chunk, switching to OCR when the
// text layer is too sparse.
func (e *Extractor) chunkText(ctx context.Context, log zerolog.Logger, chunk models.PDFChunk) (string, string, error) {
	texts, err := e.deps.Pages.PageTexts(ctx, chunk.Content)
	if err != nil {
		return "", MethodDirectText, err
	}
	if !pdf.IsImageBased(texts, e.opts.MinTextCharsPerPage) {
		return pdf.JoinPages(texts, chunk.StartPage), MethodDirectText, nil
	}

	log.Info().Int("pages", len(texts)).Msg("Chunk is image-based, running OCR")
	if e.deps.OCR == nil {
		return "", MethodOCR, ErrOCRUnavailable
	}

	images, err := e.deps.Pages.RenderPages(ctx, chunk.Content, e.opts.RenderDPI)
	if err != nil {
		return "", MethodOCR, err
	}
	res, err := ocr.ExtractPages(ctx, e.deps.OCR, images, chunk.StartPage, e.opts.OCRTimeout)
	if err != nil {
		return "", MethodOCR, err
	}
	return res.Text, MethodOCR, nil
}

func (e *Extractor) cacheKey(doc Document) string {
	sum := sha256.Sum256(doc.Content)
	return fmt.Sprintf("%s:%s:%s", hex.EncodeToString(sum[:]), doc.Type, e.opts.Model)
}

func (e *Extractor) lookup(ctx context.Context, log zerolog.Logger, key string) *Result {
	if e.deps.Cache == nil {
		return nil
	}
	data, found, err := e.deps.Cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("Cache lookup failed")
		return nil
	}
	if !found {
		return nil
	}
	var cached Result
	if err := json.Unmarshal(data, &cached); err != nil {
		log.Warn().Err(err).Msg("Discarding unreadable cache entry")
		return nil
	}
	log.Info().Msg("Extraction served from cache")
	return &cached
}

func (e *Extractor) store(ctx context.Context, log zerolog.Logger, key string, result *Result) {
	if e.deps.Cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode result for cache")
		return
	}
	if err := e.deps.Cache.Set(ctx, key, data); err != nil {
		log.Warn().Err(err).Msg("Failed to cache result")
	}
}

func methodOf(outcomes []chunkOutcome) string {
	method := ""
	for _, o := range outcomes {
		switch {
		case o.method == "":
		case method == "":
			method = o.method
		case method != o.method:
			return MethodMixed
		}
	}
	return method
}

func isConfigError(err error) bool {
	return errors.Is(err, llm.ErrNotConfigured)
}

func allConfigErrors(outcomes []chunkOutcome) bool {
	for _, o := range outcomes {
		if o.result.Success || !isConfigError(o.err) {
			return false
		}
	}
	return len(outcomes) > 0
}

const summaryLength = 200

func summarize(text string) string {
	runes := []rune(text)
	if len(runes) <= summaryLength {
		return text
	}
	return string(runes[:summaryLength]) + "..."
}
