package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModel(t *testing.T) {
	tests := []struct {
		name       string
		modelStr   string
		wantVendor string
		wantModel  string
		wantErr    bool
	}{
		{
			name:       "bare claude model",
			modelStr:   "claude-haiku-4-5",
			wantVendor: "anthropic",
			wantModel:  "claude-haiku-4-5",
		},
		{
			name:       "gateway model id",
			modelStr:   "anthropic/claude-opus-4-6",
			wantVendor: "anthropic",
			wantModel:  "claude-opus-4-6",
		},
		{
			name:       "lorem model",
			modelStr:   "lorem-slow",
			wantVendor: "lorem",
			wantModel:  "lorem-slow",
		},
		{name: "empty string", modelStr: "", wantErr: true},
		{name: "unknown model", modelStr: "unknown-model", wantErr: true},
		{name: "empty vendor", modelStr: "/claude-haiku-4-5", wantErr: true},
		{name: "empty model", modelStr: "anthropic/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModel(tt.modelStr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVendor, got.Vendor)
			assert.Equal(t, tt.wantModel, got.Model)
		})
	}
}

func TestRequestModel(t *testing.T) {
	tests := []struct {
		name     string
		modelStr string
		baseURL  string
		want     string
	}{
		{"gateway keeps vendor prefix", "anthropic/claude-opus-4-6", "https://openrouter.ai/api", "anthropic/claude-opus-4-6"},
		{"direct API strips vendor prefix", "anthropic/claude-opus-4-6", "", "claude-opus-4-6"},
		{"bare model unchanged", "claude-haiku-4-5", "", "claude-haiku-4-5"},
		{"lorem unchanged behind gateway", "lorem-fast", "https://openrouter.ai/api", "lorem-fast"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RequestModel(tt.modelStr, tt.baseURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
