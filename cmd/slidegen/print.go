package main

import (
	"fmt"
	"io"
	"strings"

	"slidegraph/internal/domain/models/slide"
	"slidegraph/internal/handler/sse"
)

// printer renders generation events either as raw frames or as a short
// human-readable log
type printer struct {
	out    io.Writer
	frames *sse.Writer
	last   string
}

func newPrinter(out io.Writer, raw bool) *printer {
	p := &printer{out: out}
	if raw {
		p.frames = sse.NewWriter(out, nil)
	}
	return p
}

func (p *printer) print(ev slide.Event) error {
	if p.frames != nil {
		return p.frames.WriteEvent(ev)
	}

	switch ev.Type {
	case slide.EventStatus:
		fmt.Fprintf(p.out, "%s⏳ %s%s\n", colorBlue, ev.Message, colorReset)
	case slide.EventThinking:
		fmt.Fprintf(p.out, "%s%s%s", colorYellow, ev.Text, colorReset)
	case slide.EventSlidePartial:
		// Only announce a partial when the title first appears or changes
		if ev.Slide != nil && ev.Slide.Title != "" && ev.Slide.Title != p.last {
			p.last = ev.Slide.Title
			fmt.Fprintf(p.out, "%s… %s%s\n", colorCyan, ev.Slide.Title, colorReset)
		}
	case slide.EventSlide:
		p.slide(ev.Slide)
	case slide.EventChatResponse:
		fmt.Fprintf(p.out, "%s\n", ev.Content)
	case slide.EventDone:
		if ev.SlideID != "" {
			fmt.Fprintf(p.out, "%s✓ Saved slide %s%s\n", colorGreen, ev.SlideID, colorReset)
		}
		if ev.Slide != nil {
			p.slide(ev.Slide)
		}
		fmt.Fprintf(p.out, "%s✓ Done (%d messages of history)%s\n", colorGreen, len(ev.ConversationHistory), colorReset)
	case slide.EventError:
		fmt.Fprintf(p.out, "%s❌ %s%s\n", colorRed, ev.Message, colorReset)
	}
	return nil
}

func (p *printer) slide(s *slide.Slide) {
	if s == nil {
		return
	}
	fmt.Fprintf(p.out, "\n%s%s%s\n", colorCyan, s.Title, colorReset)
	if s.Subtitle != "" {
		fmt.Fprintln(p.out, s.Subtitle)
	}
	fmt.Fprintln(p.out, strings.Repeat("─", 40))
	for _, b := range s.Blocks {
		fmt.Fprintf(p.out, "  [%s] %s\n", b.Type, blockText(b))
	}
	for i, a := range s.Actions {
		fmt.Fprintf(p.out, "%s  %d. %s%s\n", colorBlue, i+1, a.Label, colorReset)
	}
	fmt.Fprintln(p.out)
}

func blockText(b slide.Block) string {
	for _, key := range []string{"text", "title", "content", "question", "query", "prompt"} {
		if v, ok := b.Props[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
