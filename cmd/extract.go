package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"shipcerts/internal/duplicate"
	"shipcerts/internal/extraction"
	"shipcerts/internal/logger"
	"shipcerts/internal/source"
	"shipcerts/internal/store"
	"shipcerts/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Extract certificate fields from a PDF",
	Long: `Extract the fields of one certificate, audit certificate, survey report or
test report.

Text-based pages are read directly; scanned pages are rasterized and sent to
the configured OCR engine. Documents above the page budget are split into
chunks, each chunk is extracted separately and the results are merged.

The input may be a local path, gs://bucket/object or s3://bucket/key.

With --ship the record is checked against the ship's certificates on file;
add --save to store it when it is accepted and not a duplicate.`,
	Example: `  # Extract a statutory certificate
  shipcerts extract SMC.pdf

  # Audit certificate from Cloud Storage, JSON output
  shipcerts extract gs://fleet-docs/nordic-star/ISSC.pdf --type audit_certificate --json

  # Check for duplicates and store the record
  shipcerts extract IOPP.pdf --ship 6f1c... --save`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractOutput is the JSON shape of the extract command.
type ExtractOutput struct {
	*extraction.Result
	Duplicate *duplicate.Report `json:"duplicate,omitempty"`
	SavedID   string            `json:"saved_id,omitempty"`
	Duration  string            `json:"duration"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("type", string(models.DocumentCertificate), "Document type (certificate, audit_certificate, test_report, survey_report)")
	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("json", false, "Output as JSON")
	extractCmd.Flags().Duration("timeout", 10*time.Minute, "Processing timeout")
	extractCmd.Flags().String("ship", "", "Ship id to check duplicates against")
	extractCmd.Flags().Bool("save", false, "Store the accepted record for --ship")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	rawType, _ := cmd.Flags().GetString("type")
	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	shipID, _ := cmd.Flags().GetString("ship")
	save, _ := cmd.Flags().GetBool("save")

	docType, err := parseDocumentType(rawType)
	if err != nil {
		return err
	}
	if save && shipID == "" {
		return errors.New("--save requires --ship")
	}

	input := args[0]
	loc, err := source.Parse(input)
	if err != nil {
		return err
	}

	log.Info().
		Str("file", input).
		Str("type", string(docType)).
		Str("ship", shipID).
		Dur("timeout", timeout).
		Msg("Starting extraction")

	ctx, cancel := createContextWithTimeout(timeout, log)
	defer cancel()

	data, err := newSourceReader(appConfig).Read(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	p, err := buildPipeline(ctx, appConfig, log)
	if err != nil {
		return err
	}
	defer p.Close(log)

	start := time.Now()
	result, err := p.extractor.Extract(ctx, extraction.Document{
		Filename: loc.Name(),
		Content:  data,
		Type:     docType,
	})
	if err != nil {
		if hasPartialResult(result, err) {
			partial := ExtractOutput{Result: result, Duration: time.Since(start).Round(time.Millisecond).String()}
			if werr := emitExtraction(partial, jsonOutput, outputPath, log); werr != nil {
				log.Warn().Err(werr).Msg("Failed to write fallback result")
			}
		}
		return handleExtractionError(err, log)
	}

	out := ExtractOutput{Result: result}

	if shipID != "" {
		s, err := openStore(ctx, appConfig, log)
		if err != nil {
			return err
		}
		defer s.Close()

		report, err := duplicate.CheckShip(ctx, s, shipID, result.Record)
		if err != nil {
			return fmt.Errorf("duplicate check failed: %w", err)
		}
		out.Duplicate = &report

		if save {
			switch {
			case !result.Accepted():
				log.Warn().Msg("Record not accepted, not saving")
			case report.IsDuplicate:
				log.Warn().Msg("Record duplicates a certificate on file, not saving")
			default:
				ship, err := s.GetShip(ctx, shipID)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("ship %s not found; add it with 'shipcerts import'", shipID)
				}
				if err != nil {
					return err
				}
				stored := models.StoredCertificate{ShipID: ship.ID, CompanyID: ship.CompanyID, CertificateRecord: result.Record}
				if err := s.SaveCertificate(ctx, &stored); err != nil {
					return err
				}
				out.SavedID = stored.ID
				log.Info().Str("certificate_id", stored.ID).Msg("Certificate saved")
			}
		}
	}

	out.Duration = time.Since(start).Round(time.Millisecond).String()
	return emitExtraction(out, jsonOutput, outputPath, log)
}

// hasPartialResult reports whether Extract returned a fallback result worth
// showing next to err: the configuration and all-chunks-failed cases.
func hasPartialResult(result *extraction.Result, err error) bool {
	if result == nil || err == nil {
		return false
	}
	var cfgErr *extraction.ConfigurationError
	return errors.As(err, &cfgErr) || errors.Is(err, extraction.ErrAllChunksFailed)
}

func emitExtraction(out ExtractOutput, jsonOutput bool, outputPath string, log zerolog.Logger) error {
	if jsonOutput {
		return writeJSON(out, outputPath, log)
	}
	return writeOutput([]byte(formatExtraction(out)), outputPath, log)
}

func formatExtraction(out ExtractOutput) string {
	r := out.Result
	rec := r.Record

	var b strings.Builder
	fmt.Fprintf(&b, "=== %s (%s) ===\n", r.Filename, r.DocumentType)
	fmt.Fprintf(&b, "Status:          %s\n", r.Status)
	if r.Method != "" {
		fmt.Fprintf(&b, "Method:          %s\n", r.Method)
	}
	if r.Cached {
		b.WriteString("Cached:          yes\n")
	}
	if r.MergeInfo != nil {
		fmt.Fprintf(&b, "Chunks:          %d/%d extracted\n", r.MergeInfo.SuccessfulChunks, r.MergeInfo.TotalChunks)
	}
	b.WriteString("\n")

	rows := []struct{ label, value string }{
		{"Certificate", rec.CertName},
		{"Abbreviation", rec.CertAbbreviation},
		{"Number", rec.CertNo},
		{"Type", string(rec.CertType)},
		{"Issued", rec.IssueDate},
		{"Valid until", rec.ValidDate},
		{"Last endorsed", rec.LastEndorse},
		{"Next survey", strings.TrimSpace(rec.NextSurvey + " " + string(rec.NextSurveyType))},
		{"Issued by", strings.TrimSpace(rec.IssuedBy + " " + bracket(rec.IssuedByAbbreviation))},
		{"Ship", rec.ShipName},
		{"IMO", rec.IMONumber},
		{"Surveyor", rec.SurveyorName},
		{"Category", string(r.Category)},
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "%-16s %s\n", row.label+":", orDash(row.value))
	}
	fmt.Fprintf(&b, "%-16s %.2f\n", "Confidence:", rec.ConfidenceScore)
	if rec.Notes != "" {
		fmt.Fprintf(&b, "\nNotes:\n%s\n", rec.Notes)
	}

	for _, d := range r.Downgrades {
		fmt.Fprintf(&b, "⚠️  %s\n", d.Error())
	}
	if r.Failure != nil {
		fmt.Fprintf(&b, "❌ %s\n", r.Failure.Error())
	}
	if out.Duplicate != nil {
		if out.Duplicate.IsDuplicate {
			fmt.Fprintf(&b, "\n❌ Duplicate of %d certificate(s) on file\n", len(out.Duplicate.Matches))
		} else {
			fmt.Fprintf(&b, "\n✅ No duplicate on file (best similarity %.0f%%)\n", out.Duplicate.Similarity)
		}
	}
	if out.SavedID != "" {
		fmt.Fprintf(&b, "Saved as %s\n", out.SavedID)
	}
	fmt.Fprintf(&b, "\nProcessing time: %s\n", out.Duration)
	return b.String()
}

func bracket(s string) string {
	if s == "" {
		return ""
	}
	return "(" + s + ")"
}
