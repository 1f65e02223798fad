package generation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/slide"
)

func TestFinalizeInput_ForcesDefaults(t *testing.T) {
	s, err := FinalizeInput(json.RawMessage(`{"slide":{"id":"s1","title":"Dark","background":"#000000","dark":true,"blocks":[]}}`))
	require.NoError(t, err)

	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, slide.DefaultBackground, s.Background)
	assert.False(t, s.Dark)
	assert.Empty(t, s.Blocks)
}

func TestFinalizeInput_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no slide", `{"title":"x"}`},
		{"slide not an object", `{"slide":"x"}`},
		{"missing id", `{"slide":{"blocks":[]}}`},
		{"missing blocks", `{"slide":{"id":"s1"}}`},
		{"blocks wrong type", `{"slide":{"id":"s1","blocks":"none"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FinalizeInput(json.RawMessage(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
}

func TestFinalizeInput_DropsIncompleteBlocks(t *testing.T) {
	input := `{"slide":{"id":"s1","blocks":[
		{"id":"ok-heading","type":"heading","props":{"text":"Hi"}},
		{"id":"no-props","type":"text"},
		{"id":"bad-heading","type":"heading","props":{"level":1}},
		{"id":"ok-text","type":"text","props":{"content":""}},
		{"id":"empty-list","type":"list","props":{"items":[]}},
		{"id":"ok-list","type":"list","props":{"items":["a"]}},
		{"id":"bad-quiz","type":"quiz","props":{"question":"Why?"}},
		{"id":"ok-quiz","type":"quiz","props":{"question":"Why?","options":[{"text":"Because"}]}},
		{"id":"empty-chart","type":"chart","props":{"data":[]}},
		{"id":"bad-table","type":"table","props":{"headers":["a"]}},
		{"id":"ok-table","type":"table","props":{"headers":["a"],"rows":[["1"]]}},
		{"id":"empty-jsx","type":"jsx","props":{"content":""}},
		{"id":"bad-image","type":"image","props":{"alt":"cat"}},
		{"id":"ok-divider","type":"divider","props":{}},
		{"id":"custom","type":"sparkline","props":{"points":[1,2]}}
	],"actions":[{"label":"Continue →","prompt":"Next"}]}}`

	s, err := FinalizeInput(json.RawMessage(input))
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"ok-heading", "ok-text", "ok-list", "ok-quiz", "ok-table", "ok-divider", "custom"},
		s.BlockIDs())
	require.Len(t, s.Actions, 1)
	assert.Equal(t, "Next", s.Actions[0].Prompt)
}

func TestFinalizePartial_KeepsWhatTheFinalSlideKeeps(t *testing.T) {
	partial := &slide.Slide{
		ID:         "s1",
		Background: "#000000",
		Dark:       true,
		Blocks: []slide.Block{
			{ID: "h1", Type: slide.BlockHeading},
			{ID: "custom", Type: "sparkline", Props: slide.Props{"points": []any{1.0, 2.0}}},
			{ID: "untyped"},
			{Type: slide.BlockText, Props: slide.Props{"content": "no id"}},
		},
		Actions: []slide.Action{{Label: "Continue →"}, {Label: "Quiz me", Prompt: "Quiz me"}},
	}

	s := FinalizePartial(partial)

	assert.Equal(t, []string{"h1", "custom"}, s.BlockIDs(), "incomplete and unknown blocks stay visible")
	assert.Equal(t, slide.DefaultBackground, s.Background)
	assert.False(t, s.Dark)
	require.Len(t, s.Actions, 1)
	assert.Equal(t, "Quiz me", s.Actions[0].Prompt)

	final, err := FinalizeInput(json.RawMessage(`{"slide":{"id":"s1","blocks":[{"id":"custom","type":"sparkline","props":{"points":[1,2]}}]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"custom"}, final.BlockIDs())
}

func TestFinalizeInput_HTMLBecomesJSXDocument(t *testing.T) {
	input := `{"slide":{"id":"s1","blocks":[
		{"id":"w","type":"html","props":{"content":"<a href=\"https://example.com\">x</a>","height":300}},
		{"id":"g","type":"grid","props":{"columns":2},"children":[
			{"id":"c","type":"jsx","props":{"content":"<a  href=\"http://a.b\">a</a> <a href=\"/local\">b</a>"}}
		]}
	]}}`

	s, err := FinalizeInput(json.RawMessage(input))
	require.NoError(t, err)
	require.Len(t, s.Blocks, 2)

	w := s.Blocks[0]
	assert.Equal(t, slide.BlockJSX, w.Type)
	content := w.Props["content"].(string)
	assert.Contains(t, content, "<!DOCTYPE html><html><head>")
	assert.Contains(t, content, "cdn.tailwindcss.com")
	assert.Contains(t, content, `<a target="_blank" rel="noopener" href="https://example.com">`)
	assert.EqualValues(t, 300, w.Props["height"])

	child := s.Blocks[1].Children[0]
	assert.Equal(t,
		`<a target="_blank" rel="noopener" href="http://a.b">a</a> <a href="/local">b</a>`,
		child.Props["content"])
}

func TestWrapDocument(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare fragment",
			in:   "<p>x</p>",
			want: `<!DOCTYPE html><html><head>` + documentHead + `</head><body><p>x</p></body></html>`,
		},
		{
			name: "html without doctype",
			in:   "<html><head><meta name=\"viewport\" content=\"w\"></head><body></body></html>",
			want: "<!DOCTYPE html>\n<html><head><meta name=\"viewport\" content=\"w\"><script src=\"https://cdn.tailwindcss.com\"></script></head><body></body></html>",
		},
		{
			name: "missing viewport",
			in:   `<!doctype html><html><head><script src="https://cdn.tailwindcss.com"></script></head></html>`,
			want: `<!doctype html><html><head><meta name="viewport" content="width=device-width,initial-scale=1"><script src="https://cdn.tailwindcss.com"></script></head></html>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrapDocument(tt.in))
		})
	}
}

func TestExternalLinksNewTab(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`<a href="https://x.org">x</a>`, `<a target="_blank" rel="noopener" href="https://x.org">x</a>`},
		{`<A class="l" HREF="HTTP://x.org">x</A>`, `<a target="_blank" rel="noopener" class="l" HREF="HTTP://x.org">x</A>`},
		{`<a href="https://x.org" target="_self">x</a>`, `<a href="https://x.org" target="_self">x</a>`},
		{`<a href="#top">top</a>`, `<a href="#top">top</a>`},
		{`<abbr title="x">x</abbr>`, `<abbr title="x">x</abbr>`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, externalLinksNewTab(tt.in))
	}
}
