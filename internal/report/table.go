package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/imazen/crusader/internal/model"
)

// Table is the Streaming Reporter: it writes the header once, then one
// dependent's Rows at a time as DependentReports arrive, and finally a
// footer and summary (spec.md §4.9).
type Table struct {
	out     io.Writer
	widths  Widths
	summary Summary
}

// NewTable constructs a Table writing to out, sized for terminalWidth
// (use TerminalWidth() for the live-terminal default).
func NewTable(out io.Writer, terminalWidth int) *Table {
	return &Table{out: out, widths: NewWidths(terminalWidth)}
}

// WriteHeader prints the run banner and the table's top border, title
// row, and header/body separator.
func (t *Table) WriteHeader(subjectName, displayVersion string, totalDependents int) {
	banner := strings.Repeat("=", t.widths.Total)
	fmt.Fprintf(t.out, "\n%s\n", banner)
	fmt.Fprintf(t.out, "Testing %d reverse dependencies of %s\n", totalDependents, subjectName)
	fmt.Fprintf(t.out, "  this = %s (your work-in-progress version)\n", displayVersion)
	fmt.Fprintf(t.out, "%s\n\n", banner)

	fmt.Fprintln(t.out, TopBorder(t.widths))
	fmt.Fprintf(t.out, "│%s│%s│%s│%s│%s│\n",
		centered("Offered", t.widths.Offered),
		centered("Spec", t.widths.Spec),
		centered("Resolved", t.widths.Resolved),
		centered("Dependent", t.widths.Dependent),
		centered("Result         Time", t.widths.Result))
	fmt.Fprintln(t.out, MidBorder(t.widths))
}

// WriteReport renders every row of one DependentReport, updating the
// running summary, and — for an Error/Skipped report — a single-line
// placeholder row instead.
func (t *Table) WriteReport(report model.DependentReport) {
	switch report.Kind {
	case model.DependentReportError:
		t.writePlaceholderRow(fmt.Sprintf("%s %s", report.Dependent.Name, report.Dependent.Version), "ERROR", report.Err.Error())
		t.summary.Broken++
		return
	case model.DependentReportSkipped:
		t.writePlaceholderRow(fmt.Sprintf("%s %s", report.Dependent.Name, report.Dependent.Version), "SKIPPED", report.SkippedReason)
		t.summary.Skipped++
		return
	}

	rows := BuildRows(report)
	for i, row := range rows {
		isOffered := i > 0
		t.writeRow(row)
		if isOffered || len(rows) == 1 {
			t.summary.Count(row.Verdict)
		}
	}
	fmt.Fprintln(t.out, MidBorder(t.widths))
}

func (t *Table) writeRow(row Row) {
	resultCell := PadCell(fmt.Sprintf("%-12s %5s", string(row.Verdict)+" "+row.ICTMarks, row.Time), t.widths.Result-2)

	line := fmt.Sprintf("│ %s │ %s │ %s │ %s │ %s │",
		PadCell(row.Offered.Format(), t.widths.Offered-2),
		PadCell(row.Spec, t.widths.Spec-2),
		PadCell(row.Resolved, t.widths.Resolved-2),
		PadCell(row.Dependent, t.widths.Dependent-2),
		resultCell,
	)
	fmt.Fprintln(t.out, colorForVerdict(row.Verdict).Sprint(line))

	if len(row.ErrorText) > 0 {
		t.writeErrorPanel(row.ErrorText)
	}
}

// writeErrorPanel renders the dropped-panel connector lines and the
// truncated error excerpt beneath a failing row. The connector's
// trailing blank run is computed from Total rather than the individual
// column widths, so the emitted line sums to exactly Total by
// construction regardless of how the fixed glyphs around it change
// (spec.md §4.9's per-row width invariant, testable property #4).
func (t *Table) writeErrorPanel(lines []string) {
	shortened := 4
	const connectorGlyphs = 4 // "│" "┌" "┘" "│"

	segmentWidth := t.widths.Offered - shortened - 1 + t.widths.Spec
	trailingWidth := t.widths.Total - connectorGlyphs - shortened - segmentWidth
	if trailingWidth < 0 {
		trailingWidth = 0
	}

	fmt.Fprintf(t.out, "│%s┌%s┘%s│\n",
		strings.Repeat(" ", shortened),
		segment(segmentWidth),
		strings.Repeat(" ", trailingWidth))

	const contentGlyphs = 3 // "│" "│" "│", plus 2 literal padding spaces around the cell
	textWidth := t.widths.Total - contentGlyphs - shortened - 2
	if textWidth < 1 {
		textWidth = 1
	}

	for _, line := range lines {
		fmt.Fprintf(t.out, "│%s│ %s │\n", strings.Repeat(" ", shortened), PadCell(line, textWidth))
	}
}

func (t *Table) writePlaceholderRow(dependent, status, detail string) {
	line := fmt.Sprintf("│ %s │ %s │",
		PadCell(status, t.widths.Offered-2),
		PadCell(dependent+": "+detail, t.widths.Spec+t.widths.Resolved+t.widths.Dependent+t.widths.Result+1))
	fmt.Fprintln(t.out, line)
}

// WriteFooter prints the closing border and the run summary.
func (t *Table) WriteFooter() {
	fmt.Fprintln(t.out, BottomBorder(t.widths))
	fmt.Fprint(t.out, t.summary.Format())
}

// Summary returns the accumulated Passed/Regressed/Broken/Skipped
// counts, used by the caller to compute the process exit code.
func (t *Table) Summary() Summary { return t.summary }

func centered(text string, width int) string {
	w := len([]rune(text))
	if w >= width {
		return PadCell(text, width)
	}
	left := (width - w) / 2
	right := width - w - left
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", right)
}

func colorForVerdict(v model.Verdict) *color.Color {
	switch v {
	case model.VerdictPassed:
		return color.New(color.FgGreen)
	case model.VerdictRegressed:
		return color.New(color.FgRed)
	case model.VerdictBroken:
		return color.New(color.FgYellow)
	default:
		return color.New(color.Reset)
	}
}
