package generation

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"slidegraph/internal/domain/models/llm"
)

const (
	// DefaultCompactThreshold is the history length at or below which
	// compaction is a no-op.
	DefaultCompactThreshold = 6
	// DefaultKeepExchanges is the number of trailing exchanges kept verbatim
	DefaultKeepExchanges = 2

	summaryPromptLen = 80
)

// Compactor bounds conversation history before it is sent to the model.
//
// It keeps the first message, replaces the middle with a single assistant
// summary, and keeps the last KeepExchanges exchanges verbatim. An exchange
// starts at a user prompt (text, no tool results), so a tool_use block and its
// tool_result are always on the same side of the cut.
type Compactor struct {
	Threshold     int
	KeepExchanges int
}

// NewCompactor creates a compactor with the default policy
func NewCompactor() *Compactor {
	return &Compactor{Threshold: DefaultCompactThreshold, KeepExchanges: DefaultKeepExchanges}
}

// Compact returns the compacted history. The input is never modified; when
// nothing is compacted the input slice itself is returned.
func (c *Compactor) Compact(history llm.History) llm.History {
	if len(history) <= c.Threshold {
		return history
	}

	cut := c.cutIndex(history)
	if cut <= 1 {
		return history
	}

	summary := summarize(history[1:cut])
	if summary == "" {
		return history
	}

	out := make(llm.History, 0, len(history)-cut+2)
	out = append(out, history[0])
	out = append(out, llm.NewAssistantBlocks(llm.NewTextBlock(summary)))
	out = append(out, history[cut:]...)
	return out
}

// cutIndex finds the start of the oldest kept exchange, or -1 if the history
// does not contain enough exchanges.
func (c *Compactor) cutIndex(history llm.History) int {
	found := 0
	for i := len(history) - 1; i > 0; i-- {
		if !history[i].IsPrompt() {
			continue
		}
		found++
		if found == c.KeepExchanges {
			return i
		}
	}
	return -1
}

type turnDigest struct {
	prompt  string
	titles  []string
	queries []string
}

func (d *turnDigest) empty() bool {
	return len(d.titles) == 0 && len(d.queries) == 0
}

// summarize produces a per-exchange digest of the messages being dropped:
// the user's prompt, the slides rendered and the searches made.
func summarize(middle llm.History) string {
	var turns []*turnDigest
	cur := &turnDigest{}
	for _, m := range middle {
		if m.IsPrompt() {
			if !cur.empty() {
				turns = append(turns, cur)
			}
			cur = &turnDigest{prompt: truncate(m.PlainText(), summaryPromptLen)}
			continue
		}
		for _, use := range m.ToolUses() {
			switch use.Name {
			case llm.ToolRenderSlide:
				title := gjson.GetBytes(use.Input, "slide.title").String()
				if title == "" {
					title = "Untitled"
				}
				cur.titles = append(cur.titles, title)
			case llm.ToolWebSearch:
				if q := gjson.GetBytes(use.Input, "query").String(); q != "" {
					cur.queries = append(cur.queries, q)
				}
			}
		}
	}
	if !cur.empty() {
		turns = append(turns, cur)
	}
	if len(turns) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("[Earlier in this conversation]")
	for _, t := range turns {
		var parts []string
		if t.prompt != "" {
			parts = append(parts, fmt.Sprintf("User asked %q.", t.prompt))
		}
		if len(t.queries) > 0 {
			parts = append(parts, "Searched: "+quoteJoin(t.queries)+".")
		}
		if len(t.titles) > 0 {
			parts = append(parts, "Rendered slide: "+quoteJoin(t.titles)+".")
		}
		sb.WriteString("\n- ")
		sb.WriteString(strings.Join(parts, " "))
	}
	return sb.String()
}

func quoteJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
