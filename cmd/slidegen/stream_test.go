package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintStream(t *testing.T) {
	stream := strings.Join([]string{
		`data: {"type":"status","message":"Thinking...","step":"thinking"}`,
		``,
		`: keepalive`,
		``,
		`data: {"type":"slide","slide":{"id":"s1","title":"Photosynthesis","dark":false,"blocks":[{"id":"h","type":"heading","props":{"text":"Light to sugar"}}],"actions":[{"label":"Show example","prompt":"Show example"}]}}`,
		``,
		`data: {"type":"done","slideId":"n1"}`,
		``,
		`data: {"type":"status","message":"ignored after done"}`,
		``,
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, printStream(strings.NewReader(stream), newPrinter(&out, false)))

	text := out.String()
	assert.Contains(t, text, "Thinking...")
	assert.Contains(t, text, "Photosynthesis")
	assert.Contains(t, text, "[heading] Light to sugar")
	assert.Contains(t, text, "1. Show example")
	assert.Contains(t, text, "Saved slide n1")
	assert.NotContains(t, text, "ignored after done")
}

func TestPrintStream_Errors(t *testing.T) {
	var out bytes.Buffer
	err := printStream(strings.NewReader("data: {\"type\":\"error\",\"message\":\"Failed to generate slide\"}\n\n"), newPrinter(&out, false))
	assert.ErrorContains(t, err, "Failed to generate slide")

	err = printStream(strings.NewReader("data: {\"type\":\"status\",\"message\":\"x\"}\n\n"), newPrinter(&out, false))
	assert.ErrorContains(t, err, "without a terminal event")
}

func TestPrinter_Raw(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printStream(strings.NewReader("data: {\"type\":\"done\"}\n\n"), newPrinter(&out, true)))
	assert.Equal(t, "data: {\"type\":\"done\"}\n\n", out.String())
}
