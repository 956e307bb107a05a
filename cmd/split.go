package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"shipcerts/internal/logger"
	"shipcerts/internal/pdf"
	"shipcerts/internal/source"
)

var splitCmd = &cobra.Command{
	Use:   "split [pdf-file]",
	Short: "Split a large PDF into page chunks",
	Long: `Split a PDF into chunks the way the extraction pipeline does.

Documents at or under the split threshold are written unchanged as a single
chunk. Larger documents are cut into consecutive page ranges of at most
--max-pages pages (capped at 15), named {name}_chunk{N}.pdf.`,
	Example: `  shipcerts split survey-report.pdf -d ./chunks
  shipcerts split survey-report.pdf --max-pages 10 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)

	splitCmd.Flags().StringP("dir", "d", ".", "Directory to write the chunks to")
	splitCmd.Flags().Int("max-pages", 0, "Maximum pages per chunk (default: pdf.max_pages_per_chunk)")
	splitCmd.Flags().Bool("json", false, "Print chunk metadata as JSON")
	splitCmd.Flags().Bool("dry-run", false, "Print the plan without writing files")
}

func runSplit(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("split")

	dir, _ := cmd.Flags().GetString("dir")
	maxPages, _ := cmd.Flags().GetInt("max-pages")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if maxPages <= 0 {
		maxPages = appConfig.PDF.MaxPagesPerChunk
	}

	ctx, cancel := createContextWithTimeout(5*time.Minute, log)
	defer cancel()

	loc, err := source.Parse(args[0])
	if err != nil {
		return err
	}
	data, err := newSourceReader(appConfig).Read(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	chunker := pdf.NewChunker(appConfig.PDF.SplitThreshold, maxPages)
	chunks, err := chunker.Split(data, loc.Name(), maxPages)
	if err != nil {
		return handleExtractionError(err, log)
	}

	if !dryRun {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		for _, c := range chunks {
			path := filepath.Join(dir, c.Filename)
			if err := os.WriteFile(path, c.Content, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			log.Debug().Str("file", path).Str("page_range", c.PageRange).Msg("Chunk written")
		}
	}

	log.Info().
		Str("file", loc.Name()).
		Int("chunks", len(chunks)).
		Int("max_pages", maxPages).
		Bool("dry_run", dryRun).
		Msg("Split completed")

	if jsonOutput {
		return writeJSON(chunks, "", log)
	}
	for _, c := range chunks {
		fmt.Printf("%-40s pages %-8s %3d pages %8d bytes\n", c.Filename, c.PageRange, c.PageCount, c.SizeBytes)
	}
	return nil
}
