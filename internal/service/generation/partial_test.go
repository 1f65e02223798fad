package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"complete", `{"a":1}`, `{"a":1}`},
		{"open string value", `{"slide":{"id":"s1","title":"Pho`, `{"slide":{"id":"s1","title":"Pho"}}`},
		{"dangling comma", `{"slide":{"id":"s1",`, `{"slide":{"id":"s1"}}`},
		{"key without colon", `{"slide":{"id"`, `{"slide":{"id":null}}`},
		{"open key", `{"slide":{"ti`, `{"slide":{"ti":null}}`},
		{"colon without value", `{"slide":{"id": `, `{"slide":{"id":null}}`},
		{"partial literal", `{"slide":{"dark":fa`, `{"slide":{"dark":false}}`},
		{"partial literal in array", `{"a":[{"b":tr`, `{"a":[{"b":true}]}`},
		{"partial number", `{"a":[1,2.`, `{"a":[1,2]}`},
		{"lone minus", `{"a":-`, `{"a":null}`},
		{"trailing backslash", `{"a":"x\`, `{"a":"x"}`},
		{"partial unicode escape", `{"a":"\u00`, `{"a":""}`},
		{"escaped quote kept", `{"a":"say \"hi`, `{"a":"say \"hi"}`},
		{"empty containers", `{"a":[`, `{"a":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := repairJSON(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.True(t, gjson.Valid(got), "repaired JSON must parse: %s", got)
		})
	}
}

func TestRepairJSON_RejectsNonObjects(t *testing.T) {
	for _, in := range []string{"", "   ", `[1,2`, `"slide"`, `{"a":1}}`} {
		_, ok := repairJSON(in)
		assert.False(t, ok, "input %q", in)
	}
}

const streamedSlide = `{"slide":{"id":"photosynthesis-1","title":"Photosynthesis","subtitle":"How plants eat light","background":"#112233","dark":true,` +
	`"blocks":[` +
	`{"id":"h1","type":"heading","props":{"text":"Light into sugar","level":1},"animation":{"entrance":"fade-in","delay":0.1,"duration":0.5}},` +
	`{"id":"t1","type":"text","props":{"content":"Plants turn **light**, water and CO2 into glucose."}},` +
	`{"id":"l1","type":"list","props":{"items":["Chlorophyll absorbs light","Water is split","Glucose is made"]}}` +
	`],` +
	`"actions":[{"label":"Continue →","prompt":"Explain the light reactions","variant":"primary"},{"label":"Quiz me","prompt":"Quiz me on photosynthesis"}]}}`

func TestParsePartialSlide_Prefixes(t *testing.T) {
	var prevComplete []string
	parsed := 0

	for n := 1; n <= len(streamedSlide); n++ {
		s, ok := ParsePartialSlide(streamedSlide[:n])
		if !ok {
			continue
		}
		parsed++

		assert.Equal(t, "#ffffff", s.Background)
		assert.False(t, s.Dark)
		for _, a := range s.Actions {
			assert.NotEmpty(t, a.Label)
			assert.NotEmpty(t, a.Prompt)
		}

		ids := make(map[string]bool)
		for _, b := range s.Blocks {
			assert.NotEmpty(t, b.ID)
			assert.NotEmpty(t, b.Type, "prefix %d", n)
			ids[b.ID] = true
		}
		for _, id := range prevComplete {
			assert.True(t, ids[id], "prefix %d lost complete block %q", n, id)
		}

		prevComplete = prevComplete[:0]
		for _, b := range s.Blocks {
			if IsBlockComplete(b) {
				prevComplete = append(prevComplete, b.ID)
			}
		}
	}

	require.Greater(t, parsed, len(streamedSlide)/2)

	final, ok := ParsePartialSlide(streamedSlide)
	require.True(t, ok)
	assert.Equal(t, []string{"h1", "t1", "l1"}, final.BlockIDs())
	assert.Len(t, final.Actions, 2)
}

func TestParsePartialSlide_NoSlideYet(t *testing.T) {
	for _, in := range []string{`{`, `{"sli`, `{"slide"`, `{"slide":`, `{"slide":"x`} {
		_, ok := ParsePartialSlide(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestParsePartialSlide_ActionNeedsPrompt(t *testing.T) {
	s, ok := ParsePartialSlide(`{"slide":{"id":"s","blocks":[],"actions":[{"label":"Continue","prompt":"Next"},{"label":"Quiz me","pro`)
	require.True(t, ok)
	require.Len(t, s.Actions, 1)
	assert.Equal(t, "Next", s.Actions[0].Prompt)
}

func TestParsePartialSlide_NormalizesHTML(t *testing.T) {
	s, ok := ParsePartialSlide(`{"slide":{"id":"s","blocks":[{"id":"w","type":"html","props":{"content":"<p>hi</p>"}}`)
	require.True(t, ok)
	require.Len(t, s.Blocks, 1)
	assert.Equal(t, "jsx", string(s.Blocks[0].Type))
	assert.Contains(t, s.Blocks[0].Props["content"], "<!DOCTYPE html>")
}
