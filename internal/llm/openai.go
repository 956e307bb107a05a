package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls the chat completions API, or any compatible endpoint
// set through BaseURL.
type OpenAIProvider struct {
	client *openai.Client
	cfg    ModelConfig
}

// NewOpenAIProvider creates a provider from the model configuration.
func NewOpenAIProvider(cfg ModelConfig) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return NewOpenAIProviderWithClient(openai.NewClientWithConfig(clientConfig), cfg)
}

// NewOpenAIProviderWithClient creates a provider with an explicit client (for testing).
func NewOpenAIProviderWithClient(client *openai.Client, cfg ModelConfig) *OpenAIProvider {
	return &OpenAIProvider{client: client, cfg: cfg}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Generate sends one system+user exchange and returns the first choice.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	if p.cfg.MaxTokens > 0 {
		req.MaxTokens = p.cfg.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// Close implements Provider; the HTTP client needs no cleanup.
func (p *OpenAIProvider) Close() error { return nil }
