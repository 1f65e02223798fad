package adapters

import (
	"context"
	"fmt"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/haowjy/meridian-llm-go/providers/openrouter"

	domainllm "slidegraph/internal/domain/services/llm"
)

// OpenRouterAdapter wraps the library's OpenRouter provider and implements
// the backend's ModelClient interface. It converts between the backend's
// history types and the library's block types.
type OpenRouterAdapter struct {
	provider llmprovider.Provider
}

var _ domainllm.ModelClient = (*OpenRouterAdapter)(nil)

// NewOpenRouterAdapter creates an adapter over the library's OpenRouter provider
func NewOpenRouterAdapter(apiKey string) (*OpenRouterAdapter, error) {
	provider, err := openrouter.NewProvider(apiKey)
	if err != nil {
		return nil, err
	}
	return NewOpenRouterAdapterWithProvider(provider), nil
}

// NewOpenRouterAdapterWithProvider creates an adapter from an existing provider
func NewOpenRouterAdapterWithProvider(provider llmprovider.Provider) *OpenRouterAdapter {
	return &OpenRouterAdapter{provider: provider}
}

// Name returns the provider name.
func (a *OpenRouterAdapter) Name() string {
	return a.provider.Name().String()
}

// Complete generates a non-streaming response
func (a *OpenRouterAdapter) Complete(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	libReq, err := a.libraryRequest(req)
	if err != nil {
		return nil, err
	}

	libResp, err := a.provider.GenerateResponse(ctx, libReq)
	if err != nil {
		return nil, err
	}
	return convertFromLibraryResponse(libResp)
}

// Stream generates a streaming response. Library deltas are forwarded as
// they arrive; the complete blocks and the closing metadata are folded into
// one final event carrying the response.
func (a *OpenRouterAdapter) Stream(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	libReq, err := a.libraryRequest(req)
	if err != nil {
		return nil, err
	}

	libEvents, err := a.provider.StreamResponse(ctx, libReq)
	if err != nil {
		return nil, err
	}

	// Buffered to prevent blocking
	eventChan := make(chan domainllm.StreamEvent, 10)

	go func() {
		defer close(eventChan)
		// The library's sender does not watch ctx; keep reading so it can exit
		defer func() {
			for range libEvents {
			}
		}()

		send := func(ev domainllm.StreamEvent) bool {
			select {
			case <-ctx.Done():
				return false
			case eventChan <- ev:
				return true
			}
		}

		blockTypes := make(map[int]string)
		var blocks []*llmprovider.Block

		for libEvent := range libEvents {
			if libEvent.Error != nil {
				send(domainllm.StreamEvent{Error: fmt.Errorf("%s streaming error: %w", a.Name(), libEvent.Error)})
				return
			}
			if libEvent.Delta != nil {
				if delta := convertFromLibraryDelta(libEvent.Delta, blockTypes); delta != nil {
					if !send(domainllm.StreamEvent{Delta: delta}) {
						return
					}
				}
			}
			if libEvent.Block != nil {
				blocks = append(blocks, libEvent.Block)
			}
			if md := libEvent.Metadata; md != nil {
				content, err := convertFromLibraryBlocks(blocks)
				if err != nil {
					send(domainllm.StreamEvent{Error: err})
					return
				}
				send(domainllm.StreamEvent{Response: &domainllm.GenerateResponse{
					Content:      content,
					Model:        md.Model,
					StopReason:   md.StopReason,
					InputTokens:  md.InputTokens,
					OutputTokens: md.OutputTokens,
				}})
				return
			}
		}

		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("%s stream ended without metadata", a.Name())
		}
		send(domainllm.StreamEvent{Error: err})
	}()

	return eventChan, nil
}

// libraryRequest converts req and moves the system prompt into the
// conversation, since the OpenRouter provider only sends messages.
func (a *OpenRouterAdapter) libraryRequest(req *domainllm.GenerateRequest) (*llmprovider.GenerateRequest, error) {
	libReq, err := ConvertToLibraryRequest(req)
	if err != nil {
		return nil, err
	}
	if libReq.Params.System != nil {
		libReq.Messages = withSystemPrompt(libReq.Messages, *libReq.Params.System)
		libReq.Params.System = nil
	}
	return libReq, nil
}

// withSystemPrompt leads the first user message with system, or prepends a
// user message carrying it when the conversation opens otherwise.
func withSystemPrompt(messages []llmprovider.Message, system string) []llmprovider.Message {
	block := &llmprovider.Block{BlockType: llmprovider.BlockTypeText, TextContent: &system}

	if len(messages) > 0 && messages[0].Role == "user" {
		out := make([]llmprovider.Message, len(messages))
		copy(out, messages)
		out[0].Blocks = append([]*llmprovider.Block{block}, messages[0].Blocks...)
		return out
	}
	return append([]llmprovider.Message{{Role: "user", Blocks: []*llmprovider.Block{block}}}, messages...)
}
