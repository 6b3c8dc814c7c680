// Package report implements the Streaming Reporter (spec.md §4.9): a
// five-column terminal table (Offered|Spec|Resolved|Dependent|Result)
// rendered row-by-row as DependentReports arrive, plus its HTML/
// Markdown export siblings in internal/export. Grounded on
// original_source/src/report.rs's column model, reimplemented in Go
// with mattn/go-runewidth for display-width measurement and
// fatih/color for terminal colorization in place of the original's
// term/unicode-width/terminal-size crates.
package report

import (
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Widths holds the five column widths plus the total table width,
// computed once per report run from the terminal width (spec.md §4.9).
type Widths struct {
	Offered   int
	Spec      int
	Resolved  int
	Dependent int
	Result    int
	Total     int
}

const (
	offeredWidth = 25
	specWidth    = 12
	resolvedWidth = 18
	resultWidth  = 25
	minDependent = 20
	borderChars  = 6 // one "│" before each of 5 columns + one trailing "│"
)

// NewWidths computes column widths for a terminal of the given width,
// giving any slack beyond the four fixed columns to Dependent.
func NewWidths(terminalWidth int) Widths {
	available := terminalWidth - borderChars
	fixedTotal := offeredWidth + specWidth + resolvedWidth + resultWidth
	dependent := available - fixedTotal
	if dependent < minDependent {
		dependent = minDependent
	}
	return Widths{
		Offered:   offeredWidth,
		Spec:      specWidth,
		Resolved:  resolvedWidth,
		Dependent: dependent,
		Result:    resultWidth,
		Total:     fixedTotal + dependent + borderChars,
	}
}

// TerminalWidth returns the current terminal's column width, or 120 if
// it cannot be determined (spec.md §4.9's documented fallback).
func TerminalWidth() int {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 120
}
