package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"paritycheck/internal/report"
)

var (
	passStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	failStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// renderReport renders the report markdown for the terminal. The
// --plain flag (and any rendering problem) falls back to the raw
// markdown, which is the canonical, file-writable form.
func renderReport(rep *report.ValidationReport) string {
	md := rep.Render()
	if plain {
		return md
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// statusLine is the one-line verdict printed after the report.
func statusLine(rep *report.ValidationReport) string {
	counts := fmt.Sprintf("%d pass, %d fail, %d error, %d untested",
		rep.Summary.Pass, rep.Summary.Fail, rep.Summary.Error, rep.Summary.Untested)
	if plain {
		return fmt.Sprintf("%s: %s (%s)", rep.ModuleID, rep.OverallStatus, counts)
	}
	verdict := passStyle.Render("PASS")
	if !rep.Passed() {
		verdict = failStyle.Render("FAIL")
	}
	return fmt.Sprintf("%s %s %s", verdict, rep.ModuleID, noteStyle.Render("("+counts+")"))
}
