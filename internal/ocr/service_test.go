package ocr

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type scriptedEngine struct {
	texts map[int]string
	fail  map[int]bool
	calls int
}

func (s *scriptedEngine) ExtractText(ctx context.Context, image []byte) (string, error) {
	s.calls++
	page := int(image[0])
	if s.fail[page] {
		return "", NewOCRError("ExtractText", ErrOCRFailed, fmt.Sprintf("page %d", page))
	}
	return s.texts[page], nil
}

func pages(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{byte(i + 1)}
	}
	return out
}

func TestExtractPagesSkipsFailingPage(t *testing.T) {
	engine := &scriptedEngine{
		texts: map[int]string{1: "CERTIFICATE OF REGISTRY", 3: " Port of Panama "},
		fail:  map[int]bool{2: true},
	}

	result, err := ExtractPages(context.Background(), engine, pages(3), 13, time.Second)
	require.NoError(t, err)

	assert.Equal(t, 3, engine.calls)
	assert.Equal(t, 1, result.FailedPages)
	require.Len(t, result.Pages, 3)
	assert.Equal(t, 14, result.Pages[1].Page)
	assert.Contains(t, result.Pages[1].Err, "ExtractText (page 14)")
	assert.Equal(t, "--- Page 13 ---\nCERTIFICATE OF REGISTRY\n\n--- Page 15 ---\nPort of Panama", result.Text)
}

func TestExtractPagesAllEmpty(t *testing.T) {
	engine := &scriptedEngine{fail: map[int]bool{1: true, 2: true}}

	result, err := ExtractPages(context.Background(), engine, pages(2), 1, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDocument)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.FailedPages)
}

func TestExtractPagesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExtractPages(ctx, &scriptedEngine{}, pages(2), 1, 0)
	assert.ErrorIs(t, err, ErrContextCanceled)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"quota", status.Error(codes.ResourceExhausted, "quota"), ErrQuotaExceeded},
		{"auth", status.Error(codes.PermissionDenied, "denied"), ErrMissingCredentials},
		{"bad image", status.Error(codes.InvalidArgument, "bad"), ErrInvalidImage},
		{"deadline", context.DeadlineExceeded, context.DeadlineExceeded},
		{"canceled", context.Canceled, ErrContextCanceled},
		{"other", errors.New("connection reset"), ErrOCRFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("ExtractText", tt.err)
			assert.ErrorIs(t, err, tt.want)

			var ocrErr *OCRError
			require.True(t, errors.As(err, &ocrErr))
			assert.Equal(t, "ExtractText", ocrErr.Op)
		})
	}
}

func TestValidateImage(t *testing.T) {
	assert.ErrorIs(t, validateImage(nil), ErrInvalidImage)
	assert.ErrorIs(t, validateImage(make([]byte, MaxImageSizeBytes+1)), ErrImageTooLarge)
	assert.NoError(t, validateImage([]byte{0x89, 'P', 'N', 'G'}))
}

func TestAtPage(t *testing.T) {
	raw := atPage("ExtractText", 4, errors.New("deadline"))
	assert.Equal(t, 4, raw.Page)
	assert.Equal(t, "ocr: ExtractText (page 4) failed: deadline", raw.Error())

	wrapped := NewOCRError("ExtractText", ErrQuotaExceeded, "")
	got := atPage("ExtractPages", 7, wrapped)
	assert.Same(t, wrapped, got)
	assert.Equal(t, 7, got.Page)
	assert.ErrorIs(t, got, ErrQuotaExceeded)

	// An existing page is kept.
	assert.Equal(t, 7, atPage("ExtractPages", 9, got).Page)
}

func TestWrapOCRErrorDoesNotDoubleWrap(t *testing.T) {
	inner := NewOCRError("ExtractText", ErrOCRFailed, "")
	assert.Same(t, inner, WrapOCRError("ExtractPages", inner, "outer"))
	assert.Nil(t, WrapOCRError("ExtractPages", nil, ""))
}

func TestDocumentAIProcessorName(t *testing.T) {
	engine := NewDocumentAIEngineWithClient(DocumentAIConfig{ProjectID: "p", Location: "eu", ProcessorID: "abc"}, nil)
	assert.Equal(t, "projects/p/locations/eu/processors/abc", engine.processorName())

	engine.config.ProcessorVersion = "rc1"
	assert.Equal(t, "projects/p/locations/eu/processors/abc/processorVersions/rc1", engine.processorName())
}

func TestNewDocumentAIEngineRequiresConfig(t *testing.T) {
	_, err := NewDocumentAIEngine(context.Background(), DocumentAIConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewDocumentAIEngine(context.Background(), DocumentAIConfig{ProjectID: "p"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
