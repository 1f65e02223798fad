package llm

import (
	"fmt"
	"strings"
)

// ModelInfo contains parsed vendor and model information
type ModelInfo struct {
	Vendor string // "anthropic", "lorem", or the prefix of a gateway model id
	Model  string // Model identifier without the vendor prefix
}

// ParseModel extracts vendor information from a model string
//
// Supported formats:
//   - "claude-haiku-4-5" → {Vendor: "anthropic", Model: "claude-haiku-4-5"}
//   - "anthropic/claude-opus-4-6" → {Vendor: "anthropic", Model: "claude-opus-4-6"}
//   - "lorem-fast" → {Vendor: "lorem", Model: "lorem-fast"}
func ParseModel(modelStr string) (*ModelInfo, error) {
	if modelStr == "" {
		return nil, fmt.Errorf("model string cannot be empty")
	}

	if vendor, model, ok := strings.Cut(modelStr, "/"); ok {
		if vendor == "" || model == "" {
			return nil, fmt.Errorf("invalid model format: %s (expected vendor/model)", modelStr)
		}
		return &ModelInfo{Vendor: vendor, Model: model}, nil
	}

	vendor := inferVendor(modelStr)
	if vendor == "" {
		return nil, fmt.Errorf("unable to infer vendor from model: %s", modelStr)
	}
	return &ModelInfo{Vendor: vendor, Model: modelStr}, nil
}

func inferVendor(model string) string {
	modelLower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(modelLower, "claude-"):
		return "anthropic"
	case strings.HasPrefix(modelLower, "lorem-"):
		return "lorem"
	default:
		return ""
	}
}

// RequestModel returns the model id to send upstream. A gateway such as
// OpenRouter takes "vendor/model" ids as configured; the Anthropic API takes
// the bare model name.
func RequestModel(modelStr, baseURL string) (string, error) {
	info, err := ParseModel(modelStr)
	if err != nil {
		return "", err
	}
	if baseURL != "" && info.Vendor != "lorem" {
		return modelStr, nil
	}
	return info.Model, nil
}
