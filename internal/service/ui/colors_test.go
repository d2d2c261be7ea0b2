package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderSummary(t *testing.T) {
	in := "Known context for this user:\n\n### Symptoms\n- headache"
	out := RenderSummary(in)

	assert.NotContains(t, out, "###")
	assert.Contains(t, out, "Symptoms")
	assert.Contains(t, out, "- headache")
	assert.Equal(t, strings.Count(in, "\n"), strings.Count(out, "\n"))
}

func TestRenderStats(t *testing.T) {
	out := RenderStats([]Stat{
		{Label: "entries", Value: 3},
		{Label: "chunks failed", Value: 0, Warn: true},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "entries")
	assert.Contains(t, lines[0], "3")
	assert.Contains(t, lines[1], "0")
}
