package generation

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidegraph/internal/domain/models/llm"
)

// exchange builds the messages of one realistic generation: a prompt, a web
// search round trip, a render call answered on the next request, and the
// model's closing text.
func exchange(i int) llm.History {
	searchID := fmt.Sprintf("toolu_search_%d", i)
	renderID := fmt.Sprintf("toolu_render_%d", i)
	searchInput, _ := json.Marshal(map[string]any{"query": fmt.Sprintf("query %d", i)})
	renderInput, _ := json.Marshal(map[string]any{
		"slide": map[string]any{"id": fmt.Sprintf("s%d", i), "title": fmt.Sprintf("Slide %d", i), "blocks": []any{}},
	})

	return llm.History{
		llm.NewUserText(fmt.Sprintf("prompt %d", i)),
		llm.NewAssistantBlocks(llm.NewToolUseBlock(searchID, llm.ToolWebSearch, searchInput)),
		llm.NewToolResults(llm.NewToolResultBlock(searchID, "1. result", false)),
		llm.NewAssistantBlocks(
			llm.NewTextBlock("Building the slide."),
			llm.NewToolUseBlock(renderID, llm.ToolRenderSlide, renderInput),
		),
		llm.NewToolResults(llm.NewToolResultBlock(renderID, "Slide rendered.", false)),
		llm.NewAssistantBlocks(llm.NewTextBlock("Done.")),
	}
}

func conversation(n int) llm.History {
	var h llm.History
	for i := 0; i < n; i++ {
		h = append(h, exchange(i)...)
	}
	return h
}

func TestCompact_ShortHistoryUnchanged(t *testing.T) {
	c := NewCompactor()
	full := conversation(1)
	for n := 0; n <= DefaultCompactThreshold; n++ {
		in := full[:n]
		out := c.Compact(in)
		if diff := cmp.Diff(in, out); diff != "" {
			t.Errorf("len %d: unexpected change (-want +got):\n%s", n, diff)
		}
	}
}

func TestCompact_KeepsFirstMessageAndLastTwoExchanges(t *testing.T) {
	history := conversation(5)
	before := history.Clone()

	out := NewCompactor().Compact(history)

	require.Len(t, out, 2+2*6)
	assert.Equal(t, history[0], out[0])

	summary := out[1]
	assert.Equal(t, llm.RoleAssistant, summary.Role)
	text := summary.PlainText()
	assert.Contains(t, text, `"Slide 0"`)
	assert.Contains(t, text, `"Slide 2"`)
	assert.Contains(t, text, `"query 1"`)
	assert.Contains(t, text, `User asked "prompt 1".`)
	assert.NotContains(t, text, "prompt 3")

	if diff := cmp.Diff(history[len(history)-12:], out[2:]); diff != "" {
		t.Errorf("tail changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, history); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}
}

func TestCompact_PreservesToolPairing(t *testing.T) {
	c := NewCompactor()
	full := conversation(6)
	for n := 1; n <= len(full); n++ {
		out := c.Compact(full[:n])
		require.NoError(t, out.CheckToolPairing(), "prefix length %d", n)
		assert.LessOrEqual(t, len(out), n, "prefix length %d", n)
	}
}

func TestCompact_Idempotent(t *testing.T) {
	c := NewCompactor()
	once := c.Compact(conversation(4))
	twice := c.Compact(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second compaction changed history (-want +got):\n%s", diff)
	}
}

func TestCompact_SingleExchangeUnchanged(t *testing.T) {
	// One long exchange has no second prompt to cut at
	h := exchange(0)
	h = append(h, exchange(0)[1:]...)
	require.Greater(t, len(h), DefaultCompactThreshold)

	out := NewCompactor().Compact(h)
	if diff := cmp.Diff(h, out); diff != "" {
		t.Errorf("unexpected change (-want +got):\n%s", diff)
	}
}

func TestCompact_NothingToSummarize(t *testing.T) {
	var h llm.History
	for i := 0; i < 5; i++ {
		h = append(h,
			llm.NewUserText(fmt.Sprintf("question %d", i)),
			llm.NewAssistantBlocks(llm.NewTextBlock("answer")),
		)
	}

	out := NewCompactor().Compact(h)
	if diff := cmp.Diff(h, out); diff != "" {
		t.Errorf("unexpected change (-want +got):\n%s", diff)
	}
}
