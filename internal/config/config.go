package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"shipcerts/internal/logger"
	"shipcerts/internal/survey"
)

// Config holds all configuration for the shipcerts tools.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	OCR        OCRConfig        `yaml:"ocr"`
	PDF        PDFConfig        `yaml:"pdf"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Survey     SurveyConfig     `yaml:"survey"`
	Store      StoreConfig      `yaml:"store"`
	Cache      CacheConfig      `yaml:"cache"`
	Sources    SourcesConfig    `yaml:"sources"`
	Log        logger.LogConfig `yaml:"log"`
}

// LLMConfig selects the completion provider and model.
type LLMConfig struct {
	Provider       string        `yaml:"provider"` // openai, vertex, gemini
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	UsePlatformKey bool          `yaml:"use_platform_key"` // Vertex AI with application default credentials
	BaseURL        string        `yaml:"base_url"`
	ProjectID      string        `yaml:"project_id"`
	Location       string        `yaml:"location"`
	Temperature    float32       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// OCRConfig selects the OCR engine used for image-based pages.
type OCRConfig struct {
	Engine      string        `yaml:"engine"` // vision, documentai, none
	ProjectID   string        `yaml:"project_id"`
	Location    string        `yaml:"location"`
	ProcessorID string        `yaml:"processor_id"`
	Timeout     time.Duration `yaml:"timeout"`
	RenderDPI   float64       `yaml:"render_dpi"`
}

// PDFConfig holds the page budget and text density heuristic.
type PDFConfig struct {
	SplitThreshold       int `yaml:"split_threshold"`
	MaxPagesPerChunk     int `yaml:"max_pages_per_chunk"`
	MinTextCharsPerPage  int `yaml:"min_text_chars_per_page"`
	MaxFileSizeMegabytes int `yaml:"max_file_size_mb"`
}

// ExtractionConfig holds pipeline concurrency settings.
type ExtractionConfig struct {
	ChunkConcurrency int           `yaml:"chunk_concurrency"`
	BatchConcurrency int           `yaml:"batch_concurrency"`
	BatchStagger     time.Duration `yaml:"batch_stagger"`
}

// SurveyConfig holds the month thresholds of the survey decision list.
type SurveyConfig struct {
	Thresholds survey.Thresholds `yaml:"thresholds"`
}

// StoreConfig selects the certificate store backend.
type StoreConfig struct {
	Driver           string `yaml:"driver"` // sqlite, postgres, firestore
	SQLitePath       string `yaml:"sqlite_path"`
	PostgresDSN      string `yaml:"postgres_dsn"`
	FirestoreProject string `yaml:"firestore_project"`
}

// CacheConfig configures the optional Redis extraction cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// SourcesConfig configures remote input locations.
type SourcesConfig struct {
	S3Region     string `yaml:"s3_region"`
	AWSAccessKey string `yaml:"aws_access_key"`
	AWSSecretKey string `yaml:"aws_secret_key"`
}

// Load reads the YAML file at path (optional), then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			Location:       "us-central1",
			Temperature:    0,
			MaxTokens:      2000,
			Timeout:        90 * time.Second,
			MaxRetries:     3,
			InitialBackoff: time.Second,
			MaxBackoff:     30 * time.Second,
		},
		OCR: OCRConfig{
			Engine:    "vision",
			Location:  "us",
			Timeout:   60 * time.Second,
			RenderDPI: 200,
		},
		PDF: PDFConfig{
			SplitThreshold:       15,
			MaxPagesPerChunk:     12,
			MinTextCharsPerPage:  50,
			MaxFileSizeMegabytes: 50,
		},
		Extraction: ExtractionConfig{
			ChunkConcurrency: 4,
			BatchConcurrency: 2,
			BatchStagger:     2 * time.Second,
		},
		Survey: SurveyConfig{
			Thresholds: survey.DefaultThresholds(),
		},
		Store: StoreConfig{
			Driver:     "sqlite",
			SQLitePath: "shipcerts.db",
		},
		Cache: CacheConfig{
			Prefix: "shipcerts:",
			TTL:    24 * time.Hour,
		},
		Log: logger.DefaultConfig(),
	}
}

// Validate checks the shape of the configuration. Missing LLM credentials are
// not an error here; they surface when an extraction is attempted.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "vertex", "gemini":
	default:
		return fmt.Errorf("unknown llm.provider %q (want openai, vertex or gemini)", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	switch c.OCR.Engine {
	case "vision", "documentai", "none":
	default:
		return fmt.Errorf("unknown ocr.engine %q (want vision, documentai or none)", c.OCR.Engine)
	}
	if c.OCR.Timeout <= 0 {
		return fmt.Errorf("ocr.timeout must be positive")
	}
	if c.PDF.MaxPagesPerChunk <= 0 {
		return fmt.Errorf("pdf.max_pages_per_chunk must be positive")
	}
	if c.PDF.SplitThreshold <= 0 {
		return fmt.Errorf("pdf.split_threshold must be positive")
	}
	if c.Extraction.ChunkConcurrency <= 0 {
		return fmt.Errorf("extraction.chunk_concurrency must be positive")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "firestore":
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.PostgresDSN == "" {
		return fmt.Errorf("store.postgres_dsn is required for the postgres driver")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when the cache is enabled")
	}
	return c.Survey.Thresholds.Validate()
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return c.Log
}

func applyEnvOverrides(cfg *Config) {
	cfg.LLM.Provider = getEnv("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("OPENAI_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.UsePlatformKey = getBoolEnv("LLM_USE_PLATFORM_KEY", cfg.LLM.UsePlatformKey)
	cfg.LLM.ProjectID = getEnv("GOOGLE_CLOUD_PROJECT", cfg.LLM.ProjectID)
	cfg.LLM.Location = getEnv("VERTEX_LOCATION", cfg.LLM.Location)
	cfg.LLM.Timeout = getDurationEnv("LLM_TIMEOUT", cfg.LLM.Timeout)
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	cfg.OCR.Engine = getEnv("OCR_ENGINE", cfg.OCR.Engine)
	cfg.OCR.ProjectID = getEnv("GOOGLE_CLOUD_PROJECT", cfg.OCR.ProjectID)
	cfg.OCR.Location = getEnv("GOOGLE_CLOUD_LOCATION", cfg.OCR.Location)
	cfg.OCR.ProcessorID = getEnv("DOCUMENT_AI_PROCESSOR_ID", cfg.OCR.ProcessorID)
	cfg.OCR.Timeout = getDurationEnv("OCR_TIMEOUT", cfg.OCR.Timeout)

	cfg.PDF.MaxPagesPerChunk = getIntEnv("PDF_MAX_PAGES_PER_CHUNK", cfg.PDF.MaxPagesPerChunk)

	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.SQLitePath = getEnv("SQLITE_PATH", cfg.Store.SQLitePath)
	cfg.Store.PostgresDSN = getEnv("DATABASE_URL", cfg.Store.PostgresDSN)
	cfg.Store.FirestoreProject = getEnv("FIRESTORE_PROJECT", getEnv("GOOGLE_CLOUD_PROJECT", cfg.Store.FirestoreProject))

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.Enabled = true
		cfg.Cache.Addr = addr
	}
	cfg.Cache.Password = getEnv("REDIS_PASSWORD", cfg.Cache.Password)

	cfg.Sources.S3Region = getEnv("AWS_REGION", cfg.Sources.S3Region)
	cfg.Sources.AWSAccessKey = getEnv("AWS_ACCESS_KEY_ID", cfg.Sources.AWSAccessKey)
	cfg.Sources.AWSSecretKey = getEnv("AWS_SECRET_ACCESS_KEY", cfg.Sources.AWSSecretKey)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.TimeFormat = getEnv("LOG_TIME_FORMAT", cfg.Log.TimeFormat)
	cfg.Log.Output = getEnv("LOG_OUTPUT", cfg.Log.Output)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no":
			return false
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
