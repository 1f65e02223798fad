package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	domainllm "slidegraph/internal/domain/services/llm"
)

// Stream generates a streaming response.
// Returns a channel that emits StreamEvent as deltas arrive from the API,
// followed by one event carrying the accumulated response (or an error).
func (p *Provider) Stream(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, err
	}

	// Buffered to prevent blocking
	eventChan := make(chan domainllm.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		send := func(ev domainllm.StreamEvent) bool {
			select {
			case <-ctx.Done():
				return false
			case eventChan <- ev:
				return true
			}
		}

		stream := p.client.Messages.NewStreaming(ctx, params)
		defer func() { _ = stream.Close() }()

		// Accumulator for the final message
		message := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()

			if err := message.Accumulate(event); err != nil {
				send(domainllm.StreamEvent{Error: fmt.Errorf("failed to accumulate message: %w", err)})
				return
			}

			if delta := transformAnthropicStreamEvent(event); delta != nil {
				if !send(domainllm.StreamEvent{Delta: delta}) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			send(domainllm.StreamEvent{Error: fmt.Errorf("anthropic streaming error: %w", err)})
			return
		}

		send(domainllm.StreamEvent{Response: convertFromAnthropicResponse(&message)})
	}()

	return eventChan, nil
}

// transformAnthropicStreamEvent converts an Anthropic streaming event to a
// block delta, or nil for events that carry nothing incremental.
//
// Anthropic stream events include:
// - MessageStart: Contains message metadata (id, model, role)
// - ContentBlockStart: New content block started (index, type)
// - ContentBlockDelta: Incremental content for current block (text_delta, input_json_delta)
// - ContentBlockStop: Current block finished
// - MessageDelta: Message-level delta (stop_reason, stop_sequence)
// - MessageStop: Streaming complete
func transformAnthropicStreamEvent(event anthropic.MessageStreamEventUnion) *domainllm.BlockDelta {
	switch e := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		if e.ContentBlock.Type != "tool_use" {
			return nil
		}
		return &domainllm.BlockDelta{
			Index:        int(e.Index),
			DeltaType:    domainllm.DeltaTypeToolCallStart,
			ToolCallID:   e.ContentBlock.ID,
			ToolCallName: e.ContentBlock.Name,
		}

	case anthropic.ContentBlockDeltaEvent:
		switch e.Delta.Type {
		case "text_delta":
			return &domainllm.BlockDelta{
				Index:     int(e.Index),
				DeltaType: domainllm.DeltaTypeText,
				Text:      e.Delta.Text,
			}
		case "input_json_delta":
			return &domainllm.BlockDelta{
				Index:     int(e.Index),
				DeltaType: domainllm.DeltaTypeInputJSON,
				InputJSON: e.Delta.PartialJSON,
			}
		}
	}
	return nil
}
