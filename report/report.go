// Package report renders run summaries and stored results for the terminal.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/use-agent/serpcheck/models"
	"github.com/use-agent/serpcheck/runner"
)

// Theme holds the styles for each verdict.
type Theme struct {
	Passed  lipgloss.Style
	Failed  lipgloss.Style
	Skipped lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
}

// DefaultTheme colors verdicts for a dark terminal.
func DefaultTheme() Theme {
	return Theme{
		Passed:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),  // green
		Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")), // red
		Skipped: lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // orange
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("242")), // gray
		Bold:    lipgloss.NewStyle().Bold(true),
	}
}

// PlainTheme renders without any styling.
func PlainTheme() Theme {
	return Theme{
		Passed:  lipgloss.NewStyle(),
		Failed:  lipgloss.NewStyle(),
		Skipped: lipgloss.NewStyle(),
		Muted:   lipgloss.NewStyle(),
		Bold:    lipgloss.NewStyle(),
	}
}

func (t Theme) verdict(label string) string {
	padded := fmt.Sprintf("%-8s", label)
	switch label {
	case "PASSED":
		return t.Passed.Render(padded)
	case "FAILED":
		return t.Failed.Render(padded)
	default:
		return t.Skipped.Render(padded)
	}
}

func outcomeLabel(o models.Outcome) string {
	switch o {
	case models.OutcomePassed:
		return "PASSED"
	case models.OutcomeFailed:
		return "FAILED"
	default:
		return "SKIPPED"
	}
}

// WriteSummary prints one line per executed check followed by the totals.
func WriteSummary(w io.Writer, t Theme, s *runner.Summary) error {
	for _, r := range s.Results {
		if _, err := fmt.Fprintf(w, "%s %-28s %s %s\n",
			t.verdict(outcomeLabel(r.Outcome)),
			r.Check,
			t.Muted.Render(fmt.Sprintf("%6s", r.Duration.Round(10*time.Millisecond))),
			r.Details,
		); err != nil {
			return err
		}
	}
	passed, failed, skipped := s.Counts()
	_, err := fmt.Fprintln(w, t.Bold.Render(
		fmt.Sprintf("%d passed, %d failed, %d skipped (run %s)", passed, failed, skipped, s.RunID),
	))
	return err
}

// WriteResults prints stored results, oldest first.
func WriteResults(w io.Writer, t Theme, store string, results []models.TestResult) error {
	if _, err := fmt.Fprintln(w, t.Bold.Render(fmt.Sprintf("%d test results from %s", len(results), store))); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "%s %s %-28s %s\n",
			t.Muted.Render(r.Timestamp.Format(time.DateTime)),
			t.verdict(string(r.Status)),
			r.Name,
			r.Details,
		); err != nil {
			return err
		}
	}
	return nil
}
