package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dt-pm-tools/r2c/internal/migrate"
	"golang.org/x/term"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	titleStyle   = lipgloss.NewStyle().Bold(true)
)

var statusMarks = map[migrate.Status]string{
	migrate.StatusOK:      okStyle.Render("✓"),
	migrate.StatusSkipped: skippedStyle.Render("-"),
	migrate.StatusFailed:  failedStyle.Render("✗"),
}

// printReport writes one line per migration step.
func printReport(w io.Writer, r *migrate.Report) {
	for _, s := range r.Steps {
		line := fmt.Sprintf("%s %-22s", statusMarks[s.Status], s.Step)
		if s.Detail != "" {
			detail := dimStyle.Render(s.Detail)
			if s.Status == migrate.StatusFailed {
				detail = failedStyle.Render(s.Detail)
			}
			line += " " + detail
		}
		fmt.Fprintln(w, line)
	}
	if r.Created() {
		fmt.Fprintf(w, "\n%s %s\n", titleStyle.Render("Task:"), r.Task.URL)
	}
}

// renderMarkdown pretty-prints Markdown when stdout is a terminal and
// returns it unchanged otherwise.
func renderMarkdown(md string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return md
	}
	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 && w < width {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logger.Debug("markdown renderer unavailable", "error", err)
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		logger.Debug("rendering markdown failed", "error", err)
		return md
	}
	return out
}
