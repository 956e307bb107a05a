package llm

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shipcerts/internal/logger"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     defaultMaxRetries,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

// calculateBackoff calculates exponential backoff duration
func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}
	return time.Duration(backoff)
}

// Client is the completion gateway: one provider plus per-call timeout and
// retry of throttled or unavailable calls. Empty answers and other failures
// are returned at once.
type Client struct {
	provider Provider
	cfg      ModelConfig
	retry    RetryConfig
	sleep    func(ctx context.Context, d time.Duration) error
	log      zerolog.Logger
}

// New creates a client for the configured provider.
func New(ctx context.Context, cfg ModelConfig, retry RetryConfig) (*Client, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, WrapLLMError("New", cfg.Provider, err, "")
	}
	return NewWithProvider(provider, cfg, retry), nil
}

// NewWithProvider creates a client around an existing provider (for testing).
func NewWithProvider(provider Provider, cfg ModelConfig, retry RetryConfig) *Client {
	return &Client{
		provider: provider,
		cfg:      cfg,
		retry:    retry,
		sleep:    sleepContext,
		log:      logger.WithComponent("llm"),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Complete returns the provider's answer to prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	const op = "Complete"
	name := c.provider.Name()

	c.log.Debug().
		Str("provider", name).
		Str("model", c.cfg.Model).
		Int("prompt_length", len(prompt)).
		Msg("Sending completion request")

	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", WrapLLMError(op, name, err, "")
		}

		text, err := c.generate(ctx, prompt)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", WrapLLMError(op, name, ErrEmptyResponse, "")
			}
			c.log.Debug().
				Str("provider", name).
				Int("response_length", len(text)).
				Int("attempt", attempt+1).
				Msg("Received completion")
			return text, nil
		}

		lastErr = classify(err)
		if !IsRetryable(lastErr) {
			return "", WrapLLMError(op, name, lastErr, "")
		}
		if attempt == c.retry.MaxRetries {
			break
		}

		backoff := calculateBackoff(attempt, c.retry)
		c.log.Warn().
			Err(lastErr).
			Str("provider", name).
			Int("attempt", attempt+1).
			Int("max_retries", c.retry.MaxRetries).
			Dur("backoff", backoff).
			Msg("Completion request failed, retrying")

		if err := c.sleep(ctx, backoff); err != nil {
			return "", WrapLLMError(op, name, err, "")
		}
	}

	return "", WrapLLMError(op, name, lastErr, "retries exhausted")
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	text, err := c.provider.Generate(ctx, prompt)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		// the per-call deadline fired; treat like an overloaded backend
		return "", errors.Join(ErrUnavailable, err)
	}
	return text, err
}

// Close releases the provider.
func (c *Client) Close() error {
	return c.provider.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
