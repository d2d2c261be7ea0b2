package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// ANSI 6, readable on light and dark terminals
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// dimmed
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	SectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)

	WarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// RenderSummary highlights the section titles of a contextual summary.
func RenderSummary(summary string) string {
	lines := strings.Split(summary, "\n")
	for i, line := range lines {
		if title, ok := strings.CutPrefix(line, "### "); ok {
			lines[i] = SectionStyle.Render(title)
		}
	}
	return strings.Join(lines, "\n")
}

// Stat is one labelled number in a run report.
type Stat struct {
	Label string
	Value int
	// Warn highlights a non-zero value.
	Warn bool
}

func RenderStats(stats []Stat) string {
	width := 0
	for _, s := range stats {
		width = max(width, len(s.Label))
	}

	var b strings.Builder
	for _, s := range stats {
		value := fmt.Sprintf("%d", s.Value)
		if s.Warn && s.Value > 0 {
			value = WarnStyle.Render(value)
		}
		fmt.Fprintf(&b, "%s %s\n", DescStyle.Render(fmt.Sprintf("%-*s", width, s.Label)), value)
	}
	return b.String()
}
