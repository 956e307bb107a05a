package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shipcerts/internal/duplicate"
	"shipcerts/internal/logger"
	"shipcerts/pkg/models"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates [record.json]",
	Short: "Check a certificate record against a ship's certificates on file",
	Long: `Compare a certificate record (JSON, as printed by 'shipcerts extract --json'
or a bare record object) against the certificates stored for a ship.

A record is reported as a duplicate only when certificate name, type, number,
issue date, valid date and issuer all match exactly after normalization.`,
	Example: `  shipcerts extract IOPP.pdf --json -o iopp.json
  shipcerts duplicates iopp.json --ship 6f1c2a9e-...`,
	Args: cobra.ExactArgs(1),
	RunE: runDuplicates,
}

func init() {
	rootCmd.AddCommand(duplicatesCmd)

	duplicatesCmd.Flags().String("ship", "", "Ship id [REQUIRED]")
	duplicatesCmd.Flags().Bool("json", false, "Output as JSON")
	duplicatesCmd.MarkFlagRequired("ship")
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("duplicates")

	shipID, _ := cmd.Flags().GetString("ship")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}
	candidate, err := decodeRecord(data)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(time.Minute, log)
	defer cancel()

	s, err := openStore(ctx, appConfig, log)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := duplicate.CheckShip(ctx, s, shipID, candidate)
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(report, "", log)
	}

	var b strings.Builder
	if report.IsDuplicate {
		fmt.Fprintf(&b, "❌ %s %s duplicates:\n", candidate.CertName, candidate.CertNo)
		for _, m := range report.Matches {
			fmt.Fprintf(&b, "   %s\n", m.CertificateID)
		}
	} else {
		fmt.Fprintf(&b, "✅ %s %s is not on file (best similarity %.0f%%)\n", candidate.CertName, candidate.CertNo, report.Similarity)
	}
	return writeOutput([]byte(b.String()), "", log)
}

// decodeRecord accepts an extract result ({"record": {...}}) or a bare record.
func decodeRecord(data []byte) (models.CertificateRecord, error) {
	var wrapped struct {
		Record *models.CertificateRecord `json:"record"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return models.CertificateRecord{}, fmt.Errorf("failed to parse record JSON: %w", err)
	}
	if wrapped.Record != nil {
		return *wrapped.Record, nil
	}

	var rec models.CertificateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.CertificateRecord{}, fmt.Errorf("failed to parse record JSON: %w", err)
	}
	return rec, nil
}
