package llm

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"

	"slidegraph/internal/config"
	llmSvc "slidegraph/internal/domain/services/llm"
	"slidegraph/internal/service/llm/adapters"
	"slidegraph/internal/service/llm/providers/anthropic"
	"slidegraph/internal/service/llm/providers/lorem"
)

// loremDelay paces the offline provider so partial slides are visible
const loremDelay = 20 * time.Millisecond

// NewModelClient returns the client serving model. "lorem-*" models, and
// every model when no API key is configured, are served offline by the
// lorem provider. An OpenRouter key goes through the OpenRouter adapter;
// any other key talks Anthropic Messages to ModelBaseURL.
func NewModelClient(cfg *config.Config, model string, logger *slog.Logger) (llmSvc.ModelClient, error) {
	if lorem.SupportsModel(model) {
		logger.Info("provider selected", "name", "lorem", "model", model)
		return lorem.NewProvider(loremDelay), nil
	}
	if cfg.ModelAPIKey == "" {
		logger.Warn("OPENROUTER_API_KEY and ANTHROPIC_API_KEY not set - serving lorem slides", "model", model)
		return lorem.NewProvider(loremDelay), nil
	}

	if cfg.ModelBaseURL == config.OpenRouterBaseURL {
		adapter, err := adapters.NewOpenRouterAdapter(cfg.ModelAPIKey)
		if err != nil {
			return nil, fmt.Errorf("create provider for %s: %w", model, err)
		}
		logger.Info("provider selected", "name", adapter.Name(), "model", model)
		return adapter, nil
	}

	provider, err := anthropic.NewProvider(cfg.ModelAPIKey, cfg.ModelBaseURL, option.WithMaxRetries(2))
	if err != nil {
		return nil, fmt.Errorf("create provider for %s: %w", model, err)
	}
	logger.Info("provider selected",
		"name", provider.Name(),
		"model", model,
		"base_url", cfg.ModelBaseURL,
	)
	return provider, nil
}
