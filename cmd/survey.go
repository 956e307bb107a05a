package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shipcerts/internal/logger"
	"shipcerts/internal/store"
	"shipcerts/internal/survey"
)

var surveyCmd = &cobra.Command{
	Use:   "survey [ship-id]",
	Short: "Determine the next survey for every certificate of a ship",
	Long: `Load a ship and its certificates from the store, analyze the portfolio
(special, intermediate and annual survey flags) and determine the next survey
type, due date and window for every certificate.

Month thresholds come from survey.thresholds in the configuration.`,
	Example: `  shipcerts survey 6f1c2a9e-...
  shipcerts survey 6f1c2a9e-... --json -o survey.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSurvey,
}

func init() {
	rootCmd.AddCommand(surveyCmd)

	surveyCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	surveyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSurvey(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("survey")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	shipID := args[0]

	ctx, cancel := createContextWithTimeout(2*time.Minute, log)
	defer cancel()

	s, err := openStore(ctx, appConfig, log)
	if err != nil {
		return err
	}
	defer s.Close()

	calc := survey.NewCalculator(appConfig.Survey.Thresholds)
	report, err := calc.DetermineAll(ctx, s, shipID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("ship %s not found; add it with 'shipcerts import'", shipID)
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(report, outputPath, log)
	}
	return writeOutput([]byte(formatSurvey(report)), outputPath, log)
}

func formatSurvey(r *survey.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s", r.Ship.Name)
	if r.Ship.IMONumber != "" {
		fmt.Fprintf(&b, " (IMO %s)", r.Ship.IMONumber)
	}
	b.WriteString(" ===\n")

	flag := func(name string, on bool) {
		mark := "  "
		if on {
			mark = "⚠️"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, name)
	}
	flag("Special survey due", r.Analysis.SpecialSurveyDue)
	flag("Intermediate survey due", r.Analysis.IntermediateSurveyDue)
	flag("Annual survey due", r.Analysis.AnnualSurveyDue)
	flag("Renewal required", r.Analysis.RenewalRequired)
	b.WriteString("\n")

	for _, d := range r.Determinations {
		fmt.Fprintf(&b, "%-50s %-13s due %-10s window %s .. %s\n",
			d.CertName, d.SurveyType, orDash(d.DueDate), orDash(d.WindowFrom), orDash(d.WindowTo))
		fmt.Fprintf(&b, "    %s\n", d.Reasoning)
	}
	return b.String()
}
