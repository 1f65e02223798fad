package lorem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	domainllm "slidegraph/internal/domain/services/llm"
)

// Provider is a mock model client that generates lorem ipsum slides.
// Used for development and demos without requiring real API keys.
//
// A request whose last message is a prompt gets a streamed render_slide call;
// a request answering tool results gets a short end_turn reply.
type Provider struct {
	generator *loremgen.Lorem
	delay     time.Duration
	chunkSize int
}

var _ domainllm.ModelClient = (*Provider)(nil)

// NewProvider creates a new lorem ipsum provider. Delay is the pause between
// streamed chunks; zero streams as fast as the consumer reads.
func NewProvider(delay time.Duration) *Provider {
	return &Provider{
		generator: loremgen.New(),
		delay:     delay,
		chunkSize: 24,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
// Example models: "lorem-fast", "lorem-slow"
func SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// getStreamDelay returns the delay between chunks based on the model name.
// - lorem-slow: 200ms per chunk
// - lorem-fast: no delay
// - default: provider delay
func (p *Provider) getStreamDelay(model string) time.Duration {
	if strings.Contains(model, "slow") {
		return 200 * time.Millisecond
	}
	if strings.Contains(model, "fast") {
		return 0
	}
	return p.delay
}

// Complete generates a lorem ipsum text answer
func (p *Provider) Complete(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := p.generator.Paragraph(2, 3)
	return &domainllm.GenerateResponse{
		Content:      []llm.ContentBlock{llm.NewTextBlock(text)},
		Model:        req.Model,
		StopReason:   domainllm.StopReasonEndTurn,
		InputTokens:  estimateTokens(req.Messages),
		OutputTokens: len(strings.Fields(text)),
	}, nil
}

// Stream generates a streaming response: a short thinking sentence followed,
// for a fresh prompt, by a render_slide call streamed in small JSON chunks.
func (p *Provider) Stream(ctx context.Context, req *domainllm.GenerateRequest) (<-chan domainllm.StreamEvent, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("lorem provider: no messages")
	}
	last := req.Messages[len(req.Messages)-1]

	thinking := p.generator.Sentence(6, 10)
	var input []byte
	if last.IsPrompt() {
		var err error
		input, err = json.Marshal(map[string]any{"slide": p.generateSlide(last.PlainText())})
		if err != nil {
			return nil, fmt.Errorf("lorem provider: %w", err)
		}
	}

	delay := p.getStreamDelay(req.Model)

	// Buffered to prevent blocking
	eventChan := make(chan domainllm.StreamEvent, 10)

	go func() {
		defer close(eventChan)

		send := func(ev domainllm.StreamEvent) bool {
			if delay > 0 && ev.Delta != nil {
				select {
				case <-ctx.Done():
					return false
				case <-time.After(delay):
				}
			}
			select {
			case <-ctx.Done():
				return false
			case eventChan <- ev:
				return true
			}
		}

		content := []llm.ContentBlock{llm.NewTextBlock(thinking)}
		if !send(domainllm.StreamEvent{Delta: &domainllm.BlockDelta{Index: 0, DeltaType: domainllm.DeltaTypeText, Text: thinking}}) {
			return
		}

		stopReason := domainllm.StopReasonEndTurn
		if input != nil {
			id := fmt.Sprintf("toolu_lorem_%d", time.Now().UnixNano())
			if !send(domainllm.StreamEvent{Delta: &domainllm.BlockDelta{
				Index:        1,
				DeltaType:    domainllm.DeltaTypeToolCallStart,
				ToolCallID:   id,
				ToolCallName: llm.ToolRenderSlide,
			}}) {
				return
			}
			for start := 0; start < len(input); start += p.chunkSize {
				end := min(start+p.chunkSize, len(input))
				if !send(domainllm.StreamEvent{Delta: &domainllm.BlockDelta{
					Index:     1,
					DeltaType: domainllm.DeltaTypeInputJSON,
					InputJSON: string(input[start:end]),
				}}) {
					return
				}
			}
			content = append(content, llm.NewToolUseBlock(id, llm.ToolRenderSlide, input))
			stopReason = domainllm.StopReasonToolUse
		}

		send(domainllm.StreamEvent{Response: &domainllm.GenerateResponse{
			Content:      content,
			Model:        req.Model,
			StopReason:   stopReason,
			InputTokens:  estimateTokens(req.Messages),
			OutputTokens: len(strings.Fields(thinking)) + len(input)/4,
		}})
	}()

	return eventChan, nil
}

// generateSlide builds a slide titled after the prompt with lorem content
func (p *Provider) generateSlide(prompt string) slide.Slide {
	title := strings.TrimSpace(prompt)
	if r := []rune(title); len(r) > 60 {
		title = string(r[:60])
	}
	if title == "" {
		title = p.generator.Sentence(2, 4)
	}

	items := make([]any, 0, 3)
	for i := 0; i < 3; i++ {
		items = append(items, p.generator.Sentence(3, 6))
	}

	return slide.Slide{
		ID:    fmt.Sprintf("lorem-%d", time.Now().UnixNano()),
		Title: title,
		Blocks: []slide.Block{
			{ID: "heading", Type: slide.BlockHeading, Props: slide.Props{"text": title, "level": 1}},
			{ID: "intro", Type: slide.BlockText, Props: slide.Props{"content": p.generator.Sentence(12, 20)}},
			{ID: "points", Type: slide.BlockList, Props: slide.Props{"items": items}},
		},
		Actions: []slide.Action{
			{Label: "Continue →", Prompt: "Continue to the next topic in the learning sequence.", Variant: slide.VariantPrimary},
			{Label: "Show example", Prompt: "Show an example of " + title, Variant: slide.VariantSecondary},
		},
	}
}

// estimateTokens estimates the token count for a list of messages.
// Uses word count as a rough approximation.
func estimateTokens(messages llm.History) int {
	totalWords := 0
	for _, msg := range messages {
		totalWords += len(strings.Fields(msg.PlainText()))
	}
	return totalWords
}
