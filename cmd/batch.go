package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"shipcerts/internal/extraction"
	"shipcerts/internal/logger"
	"shipcerts/internal/sheets"
	"shipcerts/internal/source"
	"shipcerts/pkg/models"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder | gs://bucket/prefix | s3://bucket/prefix]",
	Short: "Extract every PDF in a folder or bucket prefix",
	Long: `Run the extraction pipeline over every PDF in a folder or bucket prefix.

Files are processed concurrently (extraction.batch_concurrency) and the start
of each file is staggered (extraction.batch_stagger) to stay under provider
rate limits. One file failing does not stop the batch.`,
	Example: `  # Extract a folder of certificates
  shipcerts batch ./nordic-star

  # Audit certificates from S3 with 4 workers, JSON lines to a file
  shipcerts batch s3://fleet/audits/ --type audit_certificate --workers 4 --json -o audits.json

  # Append the results to a certificate register in Google Sheets
  shipcerts batch ./nordic-star --sheet "https://docs.google.com/spreadsheets/d/1AbC.../edit" --sheet-name "NORDIC STAR"`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// BatchResult is the outcome of one file in a batch.
type BatchResult struct {
	Filename string             `json:"filename"`
	Source   string             `json:"source"`
	Status   string             `json:"status"` // success, warning, error
	Result   *extraction.Result `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
	Index    int                `json:"-"`
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("type", string(models.DocumentCertificate), "Document type of every file in the batch")
	batchCmd.Flags().Int("workers", 0, "Parallel files (default: extraction.batch_concurrency)")
	batchCmd.Flags().Duration("stagger", -1, "Delay between file starts (default: extraction.batch_stagger)")
	batchCmd.Flags().StringP("output", "o", "", "Output file path for results (default: stdout)")
	batchCmd.Flags().Bool("json", false, "Output results as JSON")
	batchCmd.Flags().Duration("timeout", 30*time.Minute, "Timeout for the whole batch")
	batchCmd.Flags().String("sheet", "", "Google Sheets URL to append the results to")
	batchCmd.Flags().String("sheet-name", "Certificates", "Sheet (tab) name inside the spreadsheet")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	rawType, _ := cmd.Flags().GetString("type")
	workers, _ := cmd.Flags().GetInt("workers")
	stagger, _ := cmd.Flags().GetDuration("stagger")
	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	sheetURL, _ := cmd.Flags().GetString("sheet")
	sheetName, _ := cmd.Flags().GetString("sheet-name")

	docType, err := parseDocumentType(rawType)
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = appConfig.Extraction.BatchConcurrency
	}
	if stagger < 0 {
		stagger = appConfig.Extraction.BatchStagger
	}

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	reader := newSourceReader(appConfig)
	files, err := reader.List(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list PDF files: %w", err)
	}
	if len(files) == 0 {
		fmt.Println("No PDF files found.")
		return nil
	}

	var register *sheets.Service
	if sheetURL != "" {
		register, err = sheets.NewSheetsService(ctx, sheetURL)
		if err != nil {
			return fmt.Errorf("failed to connect to Google Sheets: %w", err)
		}
	}

	p, err := buildPipeline(ctx, appConfig, log)
	if err != nil {
		return err
	}
	defer p.Close(log)

	log.Info().
		Str("input", args[0]).
		Int("files", len(files)).
		Int("workers", workers).
		Dur("stagger", stagger).
		Str("type", string(docType)).
		Msg("Starting batch extraction")

	results := processInParallel(ctx, files, docType, p.extractor, reader, workers, stagger, log)

	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++
	}

	log.Info().
		Int("total", len(results)).
		Int("success", counts["success"]).
		Int("warnings", counts["warning"]).
		Int("errors", counts["error"]).
		Msg("Batch extraction completed")

	if register != nil {
		entries := make([]sheets.Entry, len(results))
		for i, r := range results {
			entries[i] = sheets.Entry{Filename: r.Filename, Result: r.Result, Err: r.Error}
		}
		if err := register.WriteResults(ctx, entries, sheetName); err != nil {
			log.Error().Err(err).Msg("Failed to write results to Google Sheets")
			return fmt.Errorf("failed to write results to Google Sheets: %w", err)
		}
		fmt.Printf("📊 %d rows written to sheet %q\n", len(entries), sheetName)
	}

	if jsonOutput {
		return writeJSON(results, outputPath, log)
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Accepted:      %d\n", counts["success"])
	fmt.Fprintf(&b, "Fallback:      %d\n", counts["warning"])
	fmt.Fprintf(&b, "Errors:        %d\n", counts["error"])
	b.WriteString(strings.Repeat("=", 50) + "\n")
	for _, r := range results {
		if r.Result == nil || !r.Result.Accepted() {
			continue
		}
		rec := r.Result.Record
		fmt.Fprintf(&b, "%-40s %-6s %-20s %s -> %s\n",
			r.Filename, orDash(rec.CertAbbreviation), orDash(rec.CertNo), orDash(rec.IssueDate), orDash(rec.ValidDate))
	}
	return writeOutput([]byte(b.String()), outputPath, log)
}

// processInParallel runs one pipeline per file with at most workers in
// flight, starting files at least stagger apart. Results keep input order.
func processInParallel(ctx context.Context, files []source.Location, docType models.DocumentType, extractor *extraction.Extractor,
	reader *source.Reader, workers int, stagger time.Duration, log zerolog.Logger) []BatchResult {

	results := make([]BatchResult, len(files))

	var (
		mu        sync.Mutex
		processed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, loc := range files {
		if i > 0 && stagger > 0 {
			select {
			case <-time.After(stagger):
			case <-gctx.Done():
			}
		}

		g.Go(func() error {
			log.Debug().
				Str("file", loc.String()).
				Int("index", i+1).
				Msg("Processing file")

			result := processSingleFile(gctx, loc, docType, extractor, reader)
			result.Index = i
			results[i] = result

			mu.Lock()
			processed++
			fmt.Printf("[%d/%d] %s - %s", processed, len(files), result.Filename, getStatusEmoji(result.Status))
			switch {
			case result.Error != "":
				fmt.Printf(" (%s)", result.Error)
			case result.Result != nil && result.Result.Accepted():
				fmt.Printf(" (%s)", result.Result.Record.CertNo)
			}
			fmt.Println()
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func processSingleFile(ctx context.Context, loc source.Location, docType models.DocumentType, extractor *extraction.Extractor, reader *source.Reader) BatchResult {
	result := BatchResult{
		Filename: loc.Name(),
		Source:   loc.String(),
		Status:   "error",
	}

	if err := ctx.Err(); err != nil {
		result.Error = err.Error()
		return result
	}

	data, err := reader.Read(ctx, loc.String())
	if err != nil {
		result.Error = err.Error()
		return result
	}

	res, err := extractor.Extract(ctx, extraction.Document{Filename: loc.Name(), Content: data, Type: docType})
	result.Result = res
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Status = "success"
	if !res.Accepted() {
		result.Status = "warning"
		if res.Failure != nil {
			result.Error = res.Failure.Error()
		}
	}
	return result
}

// getStatusEmoji returns an emoji for the processing status
func getStatusEmoji(status string) string {
	switch status {
	case "success":
		return "✅"
	case "warning":
		return "⚠️"
	case "error":
		return "❌"
	default:
		return "❓"
	}
}
