package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"friday/internal/domain"
	"friday/internal/nlu"
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#8BC34A")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Bold(true).Width(11)
	replyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3"))
	askStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

// renderStructure draws one structure as a framed two-column grid.
func renderStructure(ts *nlu.TextStructure) string {
	return renderFrame(ts.String())
}

// renderView draws a structure received from a server.
func renderView(v domain.StructureView) string {
	names := slices.Sorted(maps.Keys(v.Entities))
	pairs := make([]string, len(names))
	for i, n := range names {
		pairs[i] = n + "=" + v.Entities[n]
	}
	return renderFrame(strings.Join([]string{
		"text: " + v.Text,
		"intent: " + orNone(v.Intent),
		"subintent: " + orNone(v.Subintent),
		"entities: " + strings.Join(pairs, ", "),
		fmt.Sprintf("complete: %t", v.Complete),
	}, "\n"))
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}

func renderFrame(text string) string {
	var rows []string
	for _, line := range strings.Split(text, "\n") {
		label, value, _ := strings.Cut(line, ": ")
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value))
	}
	return frameStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
