package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"shipcerts/internal/logger"
	"shipcerts/internal/ocr"
	"shipcerts/internal/pdf"
	"shipcerts/internal/source"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [pdf-file]",
	Short: "Extract text from a scanned PDF with OCR",
	Long: `Rasterize every page of a PDF and run it through the configured OCR engine
(Google Cloud Vision or Document AI). Pages that fail are reported and
skipped; the text of the remaining pages is returned.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID (Document AI)
  DOCUMENT_AI_PROCESSOR_ID - OCR processor id (Document AI)`,
	Example: `  # Extract text from a scanned certificate to stdout
  shipcerts ocr scan.pdf

  # Per-page results as JSON
  shipcerts ocr scan.pdf --json -o scan.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput represents the JSON output structure when --json flag is used
type OCROutput struct {
	FileName           string           `json:"file_name"`
	FileSize           int              `json:"file_size"`
	Engine             string           `json:"engine"`
	Text               string           `json:"text"`
	Pages              []ocr.PageResult `json:"pages"`
	FailedPages        int              `json:"failed_pages"`
	ProcessedAt        time.Time        `json:"processed_at"`
	ProcessingDuration string           `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Float64("dpi", 0, "Render resolution (default: ocr.render_dpi)")
	ocrCmd.Flags().Duration("timeout", 5*time.Minute, "Processing timeout")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	dpi, _ := cmd.Flags().GetFloat64("dpi")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if dpi <= 0 {
		dpi = appConfig.OCR.RenderDPI
	}

	loc, err := source.Parse(args[0])
	if err != nil {
		return err
	}

	log.Info().
		Str("file", args[0]).
		Str("engine", appConfig.OCR.Engine).
		Float64("dpi", dpi).
		Msg("Starting OCR processing")

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	data, err := newSourceReader(appConfig).Read(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	engine, closeEngine, err := createOCREngine(ctx, appConfig.OCR, log)
	if err != nil {
		return handleOCRError(err, log)
	}
	if engine == nil {
		return errors.New("OCR is disabled (ocr.engine: none)")
	}
	defer closeEngine()

	images, err := pdf.NewFitzInspector().RenderPages(ctx, data, dpi)
	if err != nil {
		return handleExtractionError(err, log)
	}

	result, err := ocr.ExtractPages(ctx, engine, images, 1, appConfig.OCR.Timeout)
	if err != nil {
		return handleOCRError(err, log)
	}

	if jsonOutput {
		return writeJSON(OCROutput{
			FileName:           loc.Name(),
			FileSize:           len(data),
			Engine:             appConfig.OCR.Engine,
			Text:               result.Text,
			Pages:              result.Pages,
			FailedPages:        result.FailedPages,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingDuration.String(),
		}, outputPath, log)
	}
	return writeOutput([]byte(result.Text), outputPath, log)
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	switch {
	case errors.Is(err, ocr.ErrContextCanceled):
		return fmt.Errorf("OCR processing was canceled or timed out. Try increasing --timeout")
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
			"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
			"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
			"2. Export GOOGLE_CREDENTIALS with inline JSON\n\n" +
			"3. Use Application Default Credentials (if gcloud is configured):\n" +
			"   gcloud auth application-default login")
	case errors.Is(err, ocr.ErrInvalidConfiguration):
		return fmt.Errorf("OCR engine is misconfigured (check GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID): %w", err)
	case errors.Is(err, ocr.ErrQuotaExceeded):
		return fmt.Errorf("OCR quota exceeded. Check your project quotas in the Google Cloud Console")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the document")
	case strings.Contains(err.Error(), "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Please ensure your service account has the 'Cloud Vision API User' role")
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}
