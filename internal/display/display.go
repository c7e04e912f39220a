// Package display renders run progress to the terminal. Styling degrades
// to plain text when stdout is not a TTY.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/warden-dev/warden/internal/orchestrator"
	"github.com/warden-dev/warden/internal/tracker"
	"github.com/warden-dev/warden/internal/util"
)

// errorLineWidth caps failure lines so a long agent diagnostic does not
// flood the terminal; the full text is in the log file.
const errorLineWidth = 200

var (
	primaryColor = lipgloss.Color("#A78BFA") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
)

// Styles holds the lipgloss styles used by the Printer. Plain returns the
// identity styles for non-TTY output.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(primaryColor),
		Header:  lipgloss.NewStyle().Bold(true).Foreground(primaryColor),
		Success: lipgloss.NewStyle().Foreground(successColor),
		Warning: lipgloss.NewStyle().Foreground(warningColor),
		Error:   lipgloss.NewStyle().Foreground(errorColor),
		Muted:   lipgloss.NewStyle().Foreground(mutedColor),
	}
}

func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Title: s, Header: s, Success: s, Warning: s, Error: s, Muted: s}
}

// Printer writes styled run progress. It implements orchestrator.Observer.
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter builds a Printer for w. Colors are enabled only when w is a
// terminal.
func NewPrinter(w io.Writer) *Printer {
	styles := PlainStyles()
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		styles = DefaultStyles()
	}
	return &Printer{out: w, styles: styles}
}

// NewStyledPrinter builds a Printer with explicit styles, for tests.
func NewStyledPrinter(w io.Writer, styles Styles) *Printer {
	return &Printer{out: w, styles: styles}
}

// Banner prints the run header.
func (p *Printer) Banner(projectDir, model string, maxIterations int) {
	iterations := "unlimited"
	if maxIterations > 0 {
		iterations = fmt.Sprintf("%d", maxIterations)
	}
	fmt.Fprintln(p.out, p.styles.Title.Render("warden"))
	fmt.Fprintf(p.out, "  %s %s\n", p.styles.Muted.Render("project:"), projectDir)
	fmt.Fprintf(p.out, "  %s %s\n", p.styles.Muted.Render("model:"), model)
	fmt.Fprintf(p.out, "  %s %s\n\n", p.styles.Muted.Render("max iterations:"), iterations)
}

// SessionStarted implements orchestrator.Observer.
func (p *Printer) SessionStarted(session int, phase string) {
	rule := strings.Repeat("─", 60)
	fmt.Fprintln(p.out, p.styles.Muted.Render(rule))
	fmt.Fprintln(p.out, p.styles.Header.Render(fmt.Sprintf("Session %d · phase: %s", session, phase)))
	fmt.Fprintln(p.out, p.styles.Muted.Render(rule))
}

// SessionFinished implements orchestrator.Observer.
func (p *Printer) SessionFinished(session int, phase string, result orchestrator.CycleResult) {
	if result.Success {
		fmt.Fprintln(p.out, p.styles.Success.Render(fmt.Sprintf("Session %d finished", session)))
		return
	}
	msg := fmt.Sprintf("Session %d failed", session)
	if result.ErrorSummary != "" {
		msg += ": " + result.ErrorSummary
	}
	fmt.Fprintln(p.out, util.TruncateANSI(p.styles.Error.Render(msg), errorLineWidth))
}

// BackoffScheduled implements orchestrator.Observer.
func (p *Printer) BackoffScheduled(attempt, threshold int, delay time.Duration) {
	fmt.Fprintln(p.out, p.styles.Warning.Render(
		fmt.Sprintf("Error %d/%d, retrying in %s", attempt, threshold, delay)))
}

// ProgressUpdated implements orchestrator.Observer.
func (p *Printer) ProgressUpdated(t tracker.Tracker) {
	if t == nil || !t.IsInitialized() {
		return
	}
	fmt.Fprintln(p.out, p.styles.Muted.Render("Progress: ")+t.Describe())
}

// Summary prints the final run outcome.
func (p *Printer) Summary(result *orchestrator.RunResult) {
	fmt.Fprintln(p.out)
	switch result.Reason {
	case orchestrator.ReasonAllComplete:
		fmt.Fprintln(p.out, p.styles.Success.Render("✓ Run complete: all tracked items passing"))
	case orchestrator.ReasonMaxIterations:
		fmt.Fprintln(p.out, p.styles.Warning.Render("Run stopped: iteration limit reached"))
	case orchestrator.ReasonTooManyErrors:
		fmt.Fprintln(p.out, p.styles.Error.Render("Run stopped: too many consecutive errors"))
		fmt.Fprintln(p.out, p.styles.Muted.Render("Fix the underlying problem, then run 'warden reset' to clear the error state."))
	case orchestrator.ReasonNoEligiblePhase:
		fmt.Fprintln(p.out, p.styles.Warning.Render("Run stopped: no phase is eligible to run"))
	case orchestrator.ReasonCanceled:
		fmt.Fprintln(p.out, p.styles.Warning.Render("Run interrupted"))
	default:
		fmt.Fprintln(p.out, string(result.Reason))
	}
	line := fmt.Sprintf("Sessions this run: %d", result.Iterations)
	if result.State != nil {
		line += fmt.Sprintf(" · total sessions: %d", result.State.SessionNumber)
	}
	fmt.Fprintln(p.out, p.styles.Muted.Render(line))
}
