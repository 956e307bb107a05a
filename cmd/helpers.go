package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"shipcerts/internal/cache"
	"shipcerts/internal/config"
	"shipcerts/internal/extraction"
	"shipcerts/internal/llm"
	"shipcerts/internal/ocr"
	"shipcerts/internal/pdf"
	"shipcerts/internal/source"
	"shipcerts/internal/store"
	"shipcerts/pkg/models"
)

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// parseDocumentType validates the --type flag.
func parseDocumentType(raw string) (models.DocumentType, error) {
	t := models.DocumentType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("invalid document type %q (want certificate, audit_certificate, test_report or survey_report)", raw)
	}
	return t, nil
}

func newSourceReader(cfg *config.Config) *source.Reader {
	return source.NewReader(cfg.Sources, int64(cfg.PDF.MaxFileSizeMegabytes)<<20)
}

// pipeline bundles the extractor with the clients it owns.
type pipeline struct {
	extractor *extraction.Extractor
	closers   []func() error
}

func (p *pipeline) Close(log zerolog.Logger) {
	for _, c := range p.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("Failed to close client")
		}
	}
}

// buildPipeline wires the LLM, OCR engine and cache from configuration. A
// missing LLM configuration is not an error here: the extractor reports it
// per document as a configuration error.
func buildPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pipeline, error) {
	p := &pipeline{}
	deps := extraction.Dependencies{
		Splitter: pdf.NewChunker(cfg.PDF.SplitThreshold, cfg.PDF.MaxPagesPerChunk),
		Pages:    pdf.NewFitzInspector(),
	}
	opts := extraction.Options{
		MaxPagesPerChunk:    cfg.PDF.MaxPagesPerChunk,
		MinTextCharsPerPage: cfg.PDF.MinTextCharsPerPage,
		ChunkConcurrency:    cfg.Extraction.ChunkConcurrency,
		RenderDPI:           cfg.OCR.RenderDPI,
		OCRTimeout:          cfg.OCR.Timeout,
		Model:               cfg.LLM.Provider + "/" + cfg.LLM.Model,
	}

	client, err := llm.New(ctx, modelConfig(cfg.LLM), llm.RetryConfig{
		MaxRetries:     cfg.LLM.MaxRetries,
		InitialBackoff: cfg.LLM.InitialBackoff,
		MaxBackoff:     cfg.LLM.MaxBackoff,
	})
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warn().Err(err).Msg("LLM provider not configured, extractions will fall back")
		opts.ConfigError = err
	case err != nil:
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	default:
		deps.LLM = client
		p.closers = append(p.closers, client.Close)
	}

	engine, closeEngine, err := createOCREngine(ctx, cfg.OCR, log)
	if err != nil {
		log.Warn().Err(err).Msg("OCR engine unavailable, image-based documents will fall back")
	} else if engine != nil {
		deps.OCR = engine
		p.closers = append(p.closers, closeEngine)
	}

	if cfg.Cache.Enabled {
		c, err := cache.NewRedisCache(ctx, cfg.Cache)
		if err != nil {
			log.Warn().Err(err).Msg("Extraction cache unavailable, continuing without it")
		} else {
			deps.Cache = c
			p.closers = append(p.closers, c.Close)
		}
	}

	p.extractor = extraction.NewExtractor(deps, opts)
	return p, nil
}

func modelConfig(c config.LLMConfig) llm.ModelConfig {
	return llm.ModelConfig{
		Provider:       c.Provider,
		Model:          c.Model,
		APIKey:         c.APIKey,
		UsePlatformKey: c.UsePlatformKey,
		BaseURL:        c.BaseURL,
		ProjectID:      c.ProjectID,
		Location:       c.Location,
		Temperature:    c.Temperature,
		MaxTokens:      c.MaxTokens,
		Timeout:        c.Timeout,
	}
}

// createOCREngine returns a nil engine when OCR is disabled.
func createOCREngine(ctx context.Context, cfg config.OCRConfig, log zerolog.Logger) (ocr.Engine, func() error, error) {
	switch cfg.Engine {
	case "none":
		return nil, nil, nil
	case "documentai":
		engine, err := ocr.NewDocumentAIEngine(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.ProjectID,
			Location:    cfg.Location,
			ProcessorID: cfg.ProcessorID,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("engine", "documentai").Msg("OCR engine created")
		return engine, engine.Close, nil
	default:
		engine, err := ocr.NewVisionEngine(ctx)
		if err != nil {
			return nil, nil, err
		}
		log.Debug().Str("engine", "vision").Msg("OCR engine created")
		return engine, engine.Close, nil
	}
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open store")
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	return s, nil
}

// handleExtractionError provides user-friendly messages for pipeline failures
func handleExtractionError(err error, log zerolog.Logger) error {
	log.Error().Stack().Err(err).Msg("Extraction failed")

	var cfgErr *extraction.ConfigurationError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("extraction timed out. Try increasing --timeout or lowering pdf.max_pages_per_chunk")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("extraction was canceled")
	case errors.As(err, &cfgErr):
		return fmt.Errorf("no AI provider is configured. Set one of:\n\n"+
			"1. OPENAI_API_KEY (llm.provider: openai)\n"+
			"2. GEMINI_API_KEY (llm.provider: gemini)\n"+
			"3. LLM_USE_PLATFORM_KEY=true with GOOGLE_CLOUD_PROJECT (Vertex AI)\n\n"+
			"Original error: %w", err)
	case errors.Is(err, extraction.ErrMalformedInput):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity: %w", err)
	case errors.Is(err, extraction.ErrAllChunksFailed):
		return fmt.Errorf("no part of the document could be extracted: %w", err)
	default:
		return fmt.Errorf("extraction failed: %w", err)
	}
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(data []byte, outputPath string, log zerolog.Logger) error {
	if outputPath == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(data)).
		Msg("Results written to file")
	return nil
}

func writeJSON(v any, outputPath string, log zerolog.Logger) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	return writeOutput(data, outputPath, log)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
