package report

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/imazen/crusader/internal/classifier"
	"github.com/imazen/crusader/internal/model"
)

// Row is one fully-formatted table row, ready for terminal/export
// rendering, derived from a single VersionOutcome within a
// DependentReport (spec.md §4.9).
type Row struct {
	Offered   OfferedCell
	Spec      string
	Resolved  string
	Dependent string
	Verdict   model.Verdict
	ICTMarks  string
	Time      string
	ErrorText []string
}

// BuildRows converts one DependentReport into its table Rows: the
// baseline row first, then one row per offered version.
func BuildRows(report model.DependentReport) []Row {
	if report.Kind != model.DependentReportOutcomes || len(report.Outcomes) == 0 {
		return nil
	}

	rows := make([]Row, 0, len(report.Outcomes))
	baseline, _ := report.Baseline()
	baselineVerdict, _ := classifier.BaselineVerdict(report)
	rows = append(rows, buildRow(report.Dependent, baseline, BaselineCell(), baselineVerdict))

	verdicts := classifier.Verdicts(report)
	for i, outcome := range report.Outcomes[1:] {
		rows = append(rows, buildRow(report.Dependent, outcome, FromOutcome(outcome, verdicts[i]), verdicts[i]))
	}
	return rows
}

func buildRow(dependent model.Dependent, outcome model.VersionOutcome, cell OfferedCell, verdict model.Verdict) Row {
	spec := "*"
	if dependent.RequirementSpec.IsSome() {
		spec = dependent.RequirementSpec.Unwrap()
	}
	if outcome.TestedVersion.Forced && !cell.IsBaseline {
		spec = "→ =" + outcome.TestedVersion.Source.Value
	}

	resolved := "(unresolved)"
	if outcome.Pipeline.ActualVersion.IsSome() {
		resolved = outcome.Pipeline.ActualVersion.Unwrap() + " 📦"
	}
	if outcome.TestedVersion.Source.IsLocal() {
		resolved = outcome.TestedVersion.Source.Value + " 📁"
	}

	return Row{
		Offered:   cell,
		Spec:      spec,
		Resolved:  resolved,
		Dependent: fmt.Sprintf("%s %s", dependent.Name, dependent.Version),
		Verdict:   verdict,
		ICTMarks:  ictMarks(outcome.Pipeline),
		Time:      formatDuration(outcome.Pipeline),
		ErrorText: errorLines(outcome.Pipeline),
	}
}

func ictMarks(p model.PipelineOutcome) string {
	mark := func(success bool) rune {
		if success {
			return '✓'
		}
		return '✗'
	}
	marks := []rune{'-', '-', '-'}
	marks[0] = mark(p.Fetch.Success)
	if p.Check.IsSome() {
		marks[1] = mark(p.Check.Unwrap().Success)
	}
	if p.Test.IsSome() {
		marks[2] = mark(p.Test.Unwrap().Success)
	}
	return string(marks)
}

func formatDuration(p model.PipelineOutcome) string {
	total := p.Fetch.Duration
	if p.Check.IsSome() {
		total += p.Check.Unwrap().Duration
	}
	if p.Test.IsSome() {
		total += p.Test.Unwrap().Duration
	}
	return fmt.Sprintf("%.1fs", total.Seconds())
}

func errorLines(p model.PipelineOutcome) []string {
	firstFailure := p.FirstFailure()
	if firstFailure.IsNone() {
		return nil
	}
	failure := firstFailure.Unwrap()
	var lines []string
	if len(failure.Diagnostics) > 0 {
		lines = append(lines, failure.Diagnostics[0].Rendered)
	} else if failure.Stderr != "" {
		lines = append(lines, strings.Split(strings.TrimSpace(failure.Stderr), "\n")...)
	}
	if len(lines) > 10 {
		lines = lines[:10]
	}
	return lines
}

// PadCell truncates or pads s to exactly width display columns,
// appending "..." when truncated (original_source's
// truncate_with_padding, reimplemented with go-runewidth).
func PadCell(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w <= width {
		return s + strings.Repeat(" ", width-w)
	}
	target := width
	if width >= 3 {
		target = width - 3
	}
	var b strings.Builder
	current := 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if current+rw > target {
			break
		}
		b.WriteRune(r)
		current += rw
	}
	if width >= 3 {
		b.WriteString("...")
		current += 3
	}
	if current < width {
		b.WriteString(strings.Repeat(" ", width-current))
	}
	return b.String()
}
