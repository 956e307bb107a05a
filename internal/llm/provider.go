// Package llm is the text-completion gateway used for certificate field
// extraction. It hides the provider SDKs behind one Complete call with
// per-call timeouts and retry on throttling.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
	ProviderGemini = "gemini"
)

// SystemPrompt frames every extraction request.
const SystemPrompt = "You are a maritime documentation specialist. You read ship certificates, audit certificates, " +
	"survey reports and test reports and return the requested fields as a single JSON object. " +
	"Never invent values: use null for anything not printed on the document."

// Provider is one LLM backend.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// ModelConfig selects the provider and model for a run.
type ModelConfig struct {
	Provider string
	Model    string
	APIKey   string

	// UsePlatformKey authenticates with the platform's own credentials
	// (application default credentials on Vertex AI) instead of an API key.
	UsePlatformKey bool

	BaseURL     string
	ProjectID   string
	Location    string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Configured reports why the configuration cannot be used, or nil.
func (c ModelConfig) Configured() error {
	if c.Provider == "" {
		return fmt.Errorf("%w: no provider set", ErrNotConfigured)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: no model set for provider %s", ErrNotConfigured, c.Provider)
	}

	switch c.effectiveProvider() {
	case ProviderOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required", ErrNotConfigured)
		}
	case ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required unless the platform key is used", ErrNotConfigured)
		}
	case ProviderVertex:
		if c.ProjectID == "" {
			return fmt.Errorf("%w: GOOGLE_CLOUD_PROJECT is required for Vertex AI", ErrNotConfigured)
		}
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, c.Provider)
	}
	return nil
}

// effectiveProvider routes Gemini models on the platform key through Vertex AI.
func (c ModelConfig) effectiveProvider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p == ProviderGemini && c.UsePlatformKey {
		return ProviderVertex
	}
	return p
}

// NewProvider creates the SDK-backed provider for the configuration.
func NewProvider(ctx context.Context, cfg ModelConfig) (Provider, error) {
	if err := cfg.Configured(); err != nil {
		return nil, err
	}

	switch cfg.effectiveProvider() {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg), nil
	case ProviderVertex:
		return NewVertexProvider(ctx, cfg)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg)
	}
	return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Provider)
}
