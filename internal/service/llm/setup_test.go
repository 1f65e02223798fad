package llm

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidegraph/internal/config"
	"slidegraph/internal/service/llm/adapters"
	"slidegraph/internal/service/llm/providers/anthropic"
	"slidegraph/internal/service/llm/providers/lorem"
)

func TestNewModelClient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		key     string
		baseURL string
		model   string
		expect  any
	}{
		{"lorem model", "sk-test", config.OpenRouterBaseURL, "lorem-fast", &lorem.Provider{}},
		{"no key", "", config.OpenRouterBaseURL, "anthropic/claude-opus-4-6", &lorem.Provider{}},
		{"openrouter key", "sk-or-test", config.OpenRouterBaseURL, "anthropic/claude-opus-4-6", &adapters.OpenRouterAdapter{}},
		{"anthropic key", "sk-ant-test", "", "claude-opus-4-6", &anthropic.Provider{}},
		{"custom base url", "sk-test", "http://localhost:4000", "anthropic/claude-opus-4-6", &anthropic.Provider{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{ModelAPIKey: tt.key, ModelBaseURL: tt.baseURL}
			client, err := NewModelClient(cfg, tt.model, logger)
			require.NoError(t, err)
			assert.IsType(t, tt.expect, client)
		})
	}
}
