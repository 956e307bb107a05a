package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipcerts/internal/llm"
	"shipcerts/pkg/models"
)

// fakeLLM answers prompts through respond and counts calls.
type fakeLLM struct {
	mu      sync.Mutex
	calls   int
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.respond(prompt)
}

func (f *fakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// staticSplitter returns fixed chunks regardless of input.
type staticSplitter struct {
	chunks []models.PDFChunk
	err    error
}

func (s staticSplitter) Split(data []byte, filename string, maxPagesPerChunk int) ([]models.PDFChunk, error) {
	return s.chunks, s.err
}

// fakePages maps chunk content to its page texts.
type fakePages struct {
	texts  map[string][]string
	images [][]byte
}

func (f fakePages) PageTexts(ctx context.Context, data []byte) ([]string, error) {
	texts, ok := f.texts[string(data)]
	if !ok {
		return nil, fmt.Errorf("unknown chunk %q", data)
	}
	return texts, nil
}

func (f fakePages) RenderPages(ctx context.Context, data []byte, dpi float64) ([][]byte, error) {
	return f.images, nil
}

type fakeOCR struct {
	text string
}

func (f fakeOCR) ExtractText(ctx context.Context, image []byte) (string, error) {
	return f.text, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

// pageText returns a page long enough to count as a text layer.
func pageText(marker string) string {
	return marker + " " + strings.Repeat("certificate body text ", 10)
}

func singleChunk() staticSplitter {
	return staticSplitter{chunks: []models.PDFChunk{{
		Content: []byte("chunk-1"), ChunkNum: 1, PageRange: "1-2", StartPage: 1, EndPage: 2, PageCount: 2,
	}}}
}

func threeChunks() staticSplitter {
	return staticSplitter{chunks: []models.PDFChunk{
		{Content: []byte("chunk-1"), ChunkNum: 1, PageRange: "1-12", StartPage: 1, EndPage: 12},
		{Content: []byte("chunk-2"), ChunkNum: 2, PageRange: "13-24", StartPage: 13, EndPage: 24},
		{Content: []byte("chunk-3"), ChunkNum: 3, PageRange: "25-30", StartPage: 25, EndPage: 30},
	}}
}

func textPages() fakePages {
	return fakePages{texts: map[string][]string{
		"chunk-1": {pageText("CHUNK-ONE"), pageText("CHUNK-ONE")},
		"chunk-2": {pageText("CHUNK-TWO")},
		"chunk-3": {pageText("CHUNK-THREE")},
	}}
}

const smcResponse = "```json\n" + `{
  "cert_name": "Safety Management Certificate",
  "cert_no": "SMC-2024-118",
  "cert_type": "Full Term",
  "issue_date": "15 November 2024",
  "valid_date": "14 November 2029",
  "issued_by": "Bureau Veritas",
  "ship_name": "NORDIC STAR",
  "imo_number": "9123456",
  "auditor_name": "J. Smith",
  "confidence_score": 0.92
}` + "\n```"

func TestExtractSingleChunkAccepted(t *testing.T) {
	model := &fakeLLM{respond: func(string) (string, error) { return smcResponse, nil }}
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: singleChunk()}, Options{})

	res, err := ex.Extract(context.Background(), Document{
		Filename: "smc.pdf",
		Content:  []byte("%PDF"),
		Type:     models.DocumentAuditCertificate,
	})
	require.NoError(t, err)

	assert.True(t, res.Accepted())
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, MethodDirectText, res.Method)
	assert.Nil(t, res.MergeInfo)
	assert.Nil(t, res.Failure)

	rec := res.Record
	assert.Equal(t, "SAFETY MANAGEMENT CERTIFICATE", rec.CertName)
	assert.Equal(t, "SMC", rec.CertAbbreviation)
	assert.Equal(t, "SMC-2024-118", rec.CertNo)
	assert.Equal(t, models.CertTypeFullTerm, rec.CertType)
	assert.Equal(t, "2024-11-15", rec.IssueDate)
	assert.Equal(t, "2029-11-14", rec.ValidDate)
	assert.Equal(t, "BV", rec.IssuedByAbbreviation)
	assert.Equal(t, "9123456", rec.IMONumber)
	assert.Equal(t, "J. Smith", rec.SurveyorName)
	assert.InDelta(t, 0.92, rec.ConfidenceScore, 1e-9)
	assert.Equal(t, models.AuditCategoryISM, res.Category)
	assert.Equal(t, 1, model.Calls())
}

func TestExtractAcceptsListValuedNotes(t *testing.T) {
	model := &fakeLLM{respond: func(string) (string, error) {
		return `{"cert_name": "International Load Line Certificate", "cert_no": "LL-204", "notes": ["Condition A", "Condition B"], "surveyor_name": ["J. Smith", "A. Jones"]}`, nil
	}}
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: singleChunk()}, Options{})

	res, err := ex.Extract(context.Background(), Document{Filename: "load_line.pdf", Content: []byte("%PDF"), Type: models.DocumentCertificate})
	require.NoError(t, err)

	assert.True(t, res.Accepted())
	assert.Nil(t, res.Failure)
	assert.Equal(t, "LL-204", res.Record.CertNo)
	assert.Equal(t, "Condition A; Condition B", res.Record.Notes)
	assert.Equal(t, "J. Smith, A. Jones", res.Record.SurveyorName)
}

func TestExtractCategoryFallsBackToModel(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		response string
		want     models.AuditCategory
	}{
		{
			name:     "model category used when nothing is detected",
			filename: "scan_0042.pdf",
			response: `{"cert_name": "Audit Certificate", "cert_no": "A-9", "category": "isps"}`,
			want:     models.AuditCategoryISPS,
		},
		{
			name:     "detected category wins over model",
			filename: "MLC_cert.pdf",
			response: `{"cert_name": "Audit Certificate", "cert_no": "A-9", "category": "ISM"}`,
			want:     models.AuditCategoryMLC,
		},
		{
			name:     "unknown model category ignored",
			filename: "scan_0042.pdf",
			response: `{"cert_name": "Audit Certificate", "cert_no": "A-9", "category": "SOLAS"}`,
			want:     models.AuditCategoryNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeLLM{respond: func(string) (string, error) { return tt.response, nil }}
			ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: singleChunk()}, Options{})

			res, err := ex.Extract(context.Background(), Document{Filename: tt.filename, Content: []byte("%PDF"), Type: models.DocumentAuditCertificate})
			require.NoError(t, err)
			assert.True(t, res.Accepted())
			assert.Equal(t, tt.want, res.Category)
		})
	}
}

func TestExtractSplitDocumentMerges(t *testing.T) {
	model := &fakeLLM{respond: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "CHUNK-ONE"):
			return `{"cert_name": "Cargo Ship Safety Equipment Certificate", "cert_no": "CSE-771", "issue_date": "3 March 2023", "surveyor_name": "J. Smith", "notes": "Liferaft serviced"}`, nil
		case strings.Contains(prompt, "CHUNK-TWO"):
			return `{"cert_name": "Record of Equipment", "cert_no": "CSE-771", "surveyor_name": "A. Jones"}`, nil
		default:
			return `{"cert_no": "CSE-999", "surveyor_name": "j. smith", "notes": "EPIRB tested"}`, nil
		}
	}}
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: threeChunks()}, Options{ChunkConcurrency: 2})

	res, err := ex.Extract(context.Background(), Document{
		Filename: "csse.pdf",
		Content:  []byte("%PDF-30"),
		Type:     models.DocumentCertificate,
	})
	require.NoError(t, err)
	require.True(t, res.Accepted())

	assert.Equal(t, "CARGO SHIP SAFETY EQUIPMENT CERTIFICATE", res.Record.CertName)
	assert.Equal(t, "CSE-771", res.Record.CertNo)
	assert.Equal(t, "2023-03-03", res.Record.IssueDate)
	assert.Equal(t, "J. Smith, A. Jones", res.Record.SurveyorName)
	assert.Equal(t, "[Pages 1-12] Liferaft serviced\n---\n[Pages 25-30] EPIRB tested", res.Record.Notes)

	require.NotNil(t, res.MergeInfo)
	assert.Equal(t, 3, res.MergeInfo.TotalChunks)
	assert.Equal(t, 3, res.MergeInfo.SuccessfulChunks)
	assert.Equal(t, 3, res.MergeInfo.FieldSources["cert_no"])
	assert.Equal(t, 2, res.MergeInfo.FieldSources["cert_name"])

	require.Len(t, res.Chunks, 3)
	for i, c := range res.Chunks {
		assert.Equal(t, i+1, c.ChunkNum)
	}
	assert.Equal(t, 3, model.Calls())
}

func TestExtractEmptyResponseFallsBack(t *testing.T) {
	model := &fakeLLM{respond: func(string) (string, error) { return "  ", nil }}
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: singleChunk()}, Options{})

	res, err := ex.Extract(context.Background(), Document{
		Filename: "ISPS_audit.pdf",
		Content:  []byte("%PDF"),
		Type:     models.DocumentAuditCertificate,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusFallback, res.Status)
	assert.Equal(t, models.AuditCategoryISPS, res.Category)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, res.Failure, ErrEmptyResponse)
	assert.Equal(t, "  ", res.RawResponse)
}

// blankProvider is an llm.Provider that always answers with whitespace.
type blankProvider struct{}

func (blankProvider) Name() string { return "blank" }

func (blankProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return "\n", nil
}

func (blankProvider) Close() error { return nil }

func TestExtractEmptyResponseFromGateway(t *testing.T) {
	client := llm.NewWithProvider(blankProvider{}, llm.ModelConfig{Provider: "openai", Model: "gpt-4o-mini"}, llm.RetryConfig{})
	ex := NewExtractor(Dependencies{LLM: client, Pages: textPages(), Splitter: singleChunk()}, Options{})

	res, err := ex.Extract(context.Background(), Document{Filename: "SMC.pdf", Content: []byte("%PDF"), Type: models.DocumentCertificate})
	require.NoError(t, err)

	assert.Equal(t, StatusFallback, res.Status)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, res.Failure, ErrEmptyResponse)
	assert.ErrorIs(t, res.Failure, llm.ErrEmptyResponse)
}

func TestExtractUndecodableResponseFallsBack(t *testing.T) {
	model := &fakeLLM{respond: func(string) (string, error) { return "I could not read the certificate.", nil }}
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: singleChunk()}, Options{})

	res, err := ex.Extract(context.Background(), Document{Filename: "x.pdf", Content: []byte("%PDF"), Type: models.DocumentCertificate})
	require.NoError(t, err)

	assert.Equal(t, StatusFallback, res.Status)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, res.Failure, ErrDecodeFailed)
	assert.Equal(t, "I could not read the certificate.", res.Failure.RawResponse)
}

func TestExtractMissingRequiredFields(t *testing.T) {
	model := &fakeLLM{respond: func(string) (string, error) {
		return `{"cert_name": "International Tonnage Certificate", "cert_no": null}`, nil
	}}
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: singleChunk()}, Options{})

	res, err := ex.Extract(context.Background(), Document{Filename: "itc.pdf", Content: []byte("%PDF"), Type: models.DocumentCertificate})
	require.NoError(t, err)

	assert.Equal(t, StatusFallback, res.Status)
	assert.Equal(t, "INTERNATIONAL TONNAGE CERTIFICATE", res.Record.CertName)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, res.Failure, ErrMissingRequiredFields)
}

func TestExtractWithoutLLMIsConfigurationError(t *testing.T) {
	ex := NewExtractor(Dependencies{Pages: textPages(), Splitter: singleChunk()}, Options{})

	res, err := ex.Extract(context.Background(), Document{
		Filename: "MLC_certificate.pdf",
		Content:  []byte("%PDF"),
		Type:     models.DocumentAuditCertificate,
	})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, ErrNotConfigured)
	require.NotNil(t, res)
	assert.Equal(t, StatusFallback, res.Status)
	assert.Equal(t, models.AuditCategoryMLC, res.Category)
}

func TestExtractProviderRejectsCredentials(t *testing.T) {
	model := &fakeLLM{respond: func(string) (string, error) {
		return "", &llm.LLMError{Op: "Complete", Provider: "openai", Err: llm.ErrNotConfigured}
	}}
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: threeChunks()}, Options{})

	_, err := ex.Extract(context.Background(), Document{Filename: "x.pdf", Content: []byte("%PDF"), Type: models.DocumentCertificate})

	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestExtractAllChunksFailed(t *testing.T) {
	model := &fakeLLM{respond: func(string) (string, error) {
		return "", fmt.Errorf("upstream: %w", llm.ErrUnavailable)
	}}
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: threeChunks()}, Options{})

	res, err := ex.Extract(context.Background(), Document{Filename: "big.pdf", Content: []byte("%PDF"), Type: models.DocumentSurveyReport})

	require.ErrorIs(t, err, ErrAllChunksFailed)
	var allFailed *AllChunksFailedError
	require.ErrorAs(t, err, &allFailed)
	assert.Equal(t, 3, allFailed.TotalChunks)
	assert.Len(t, allFailed.Failures, 3)
	assert.True(t, allFailed.Retryable)

	require.NotNil(t, res)
	assert.Equal(t, StatusFallback, res.Status)
	require.NotNil(t, res.Failure)
	assert.True(t, res.Failure.Retryable)
}

func TestExtractPartialChunkFailure(t *testing.T) {
	model := &fakeLLM{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "CHUNK-TWO") {
			return "", errors.New("boom")
		}
		return `{"cert_name": "Ballast Water Management Certificate", "cert_no": "BWM-5"}`, nil
	}}
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: threeChunks()}, Options{})

	res, err := ex.Extract(context.Background(), Document{Filename: "bwm.pdf", Content: []byte("%PDF"), Type: models.DocumentCertificate})
	require.NoError(t, err)

	assert.True(t, res.Accepted())
	assert.Equal(t, "BWMC", res.Record.CertAbbreviation)
	assert.Equal(t, 1, res.MergeInfo.FailedChunks)
	assert.Equal(t, 2, res.MergeInfo.SuccessfulChunks)
	assert.False(t, res.Chunks[1].Success)
	assert.Contains(t, res.Chunks[1].Error, "boom")
}

func TestExtractImageBasedUsesOCR(t *testing.T) {
	pages := fakePages{
		texts:  map[string][]string{"chunk-1": {"", " "}},
		images: [][]byte{[]byte("png-1"), []byte("png-2")},
	}
	var prompts []string
	model := &fakeLLM{respond: func(prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return `{"cert_name": "International Load Line Certificate", "cert_no": "LL-42"}`, nil
	}}
	ex := NewExtractor(Dependencies{
		LLM:      model,
		Pages:    pages,
		Splitter: singleChunk(),
		OCR:      fakeOCR{text: "INTERNATIONAL LOAD LINE CERTIFICATE No. LL-42"},
	}, Options{})

	res, err := ex.Extract(context.Background(), Document{Filename: "scan.pdf", Content: []byte("%PDF"), Type: models.DocumentCertificate})
	require.NoError(t, err)

	assert.True(t, res.Accepted())
	assert.Equal(t, MethodOCR, res.Method)
	assert.Equal(t, "ILL", res.Record.CertAbbreviation)
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "INTERNATIONAL LOAD LINE CERTIFICATE No. LL-42")
}

func TestExtractImageBasedWithoutOCR(t *testing.T) {
	pages := fakePages{texts: map[string][]string{"chunk-1": {""}}}
	model := &fakeLLM{respond: func(string) (string, error) { return smcResponse, nil }}
	ex := NewExtractor(Dependencies{LLM: model, Pages: pages, Splitter: singleChunk()}, Options{})

	res, err := ex.Extract(context.Background(), Document{Filename: "scan.pdf", Content: []byte("%PDF"), Type: models.DocumentCertificate})
	require.NoError(t, err)

	assert.Equal(t, StatusFallback, res.Status)
	assert.ErrorIs(t, res.Failure, ErrOCRUnavailable)
	assert.Zero(t, model.Calls())
}

func TestExtractMalformedInput(t *testing.T) {
	model := &fakeLLM{respond: func(string) (string, error) { return smcResponse, nil }}
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages()}, Options{})

	_, err := ex.Extract(context.Background(), Document{Filename: "junk.pdf", Content: []byte("not a pdf"), Type: models.DocumentCertificate})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedInput)

	var mErr *MalformedInputError
	assert.ErrorAs(t, err, &mErr)

	_, err = ex.Extract(context.Background(), Document{Filename: "empty.pdf", Type: models.DocumentCertificate})
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Zero(t, model.Calls())
}

func TestExtractServesAcceptedResultsFromCache(t *testing.T) {
	model := &fakeLLM{respond: func(string) (string, error) { return smcResponse, nil }}
	cache := newMemCache()
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: singleChunk(), Cache: cache}, Options{Model: "gpt-4o-mini"})
	doc := Document{Filename: "smc.pdf", Content: []byte("%PDF"), Type: models.DocumentAuditCertificate}

	first, err := ex.Extract(context.Background(), doc)
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := ex.Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Record, second.Record)
	assert.Equal(t, 1, model.Calls())
}

func TestExtractDoesNotCacheFallbacks(t *testing.T) {
	model := &fakeLLM{respond: func(string) (string, error) { return "", nil }}
	cache := newMemCache()
	ex := NewExtractor(Dependencies{LLM: model, Pages: textPages(), Splitter: singleChunk(), Cache: cache}, Options{})
	doc := Document{Filename: "x.pdf", Content: []byte("%PDF"), Type: models.DocumentCertificate}

	_, err := ex.Extract(context.Background(), doc)
	require.NoError(t, err)
	_, err = ex.Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Empty(t, cache.data)
	assert.Equal(t, 2, model.Calls())
}

func TestMethodOf(t *testing.T) {
	assert.Equal(t, "", methodOf(nil))
	assert.Equal(t, MethodOCR, methodOf([]chunkOutcome{{method: MethodOCR}, {method: MethodOCR}}))
	assert.Equal(t, MethodMixed, methodOf([]chunkOutcome{{method: MethodOCR}, {method: MethodDirectText}}))
}
