package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	domainllm "slidegraph/internal/domain/services/llm"
)

const defaultMaxTokens = 4096

// Provider implements the ModelClient interface for Anthropic-format APIs.
// With a base URL it talks to a compatible gateway (e.g. OpenRouter).
type Provider struct {
	client *anthropic.Client
}

var _ domainllm.ModelClient = (*Provider)(nil)

// NewProvider creates a new Anthropic provider with the given API key and
// optional base URL. Extra request options (retries, HTTP client) are
// appended last.
func NewProvider(apiKey, baseURL string, opts ...option.RequestOption) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("model API key is required")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	clientOpts = append(clientOpts, opts...)

	client := anthropic.NewClient(clientOpts...)
	return &Provider{
		client: &client,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "anthropic"
}

// Complete generates a non-streaming response.
func (p *Provider) Complete(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}

	return convertFromAnthropicResponse(message), nil
}

// buildParams converts a domain request into SDK parameters
func buildParams(req *domainllm.GenerateRequest) (anthropic.MessageNewParams, error) {
	messages, err := convertToAnthropicMessages(req.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, fmt.Errorf("failed to convert messages: %w", err)
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: req.System,
			},
		}
	}

	if len(req.Tools) > 0 {
		params.Tools = convertToAnthropicTools(req.Tools)
	}

	return params, nil
}
