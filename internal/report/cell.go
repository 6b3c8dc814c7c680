package report

import (
	"fmt"

	"github.com/imazen/crusader/internal/classifier"
	"github.com/imazen/crusader/internal/model"
)

// StatusIcon is the Offered column's leading glyph.
type StatusIcon string

const (
	IconPassed  StatusIcon = "✓"
	IconFailed  StatusIcon = "✗"
	IconSkipped StatusIcon = "⊘"
)

func iconFor(verdict model.Verdict) StatusIcon {
	switch verdict {
	case model.VerdictPassed:
		return IconPassed
	default:
		return IconFailed
	}
}

func resolutionGlyph(r classifier.Resolution) string {
	switch r {
	case classifier.ResolutionExact:
		return "="
	case classifier.ResolutionMismatch:
		return "≠"
	default:
		return "↑"
	}
}

// OfferedCell is the rendering model for the Offered column: either
// the fixed baseline label, or a tested version with its verdict icon,
// resolution marker, and forced-mismatch suffix (spec.md §4.9,
// original_source/src/report.rs's OfferedCell).
type OfferedCell struct {
	IsBaseline bool
	Icon       StatusIcon
	Resolution classifier.Resolution
	Version    string
	Forced     bool
}

// FromOutcome converts a non-baseline VersionOutcome plus its verdict
// into an OfferedCell. The conversion itself performs no I/O and is a
// pure function of its inputs (testable property #5).
func FromOutcome(outcome model.VersionOutcome, verdict model.Verdict) OfferedCell {
	return OfferedCell{
		Icon:       iconFor(verdict),
		Resolution: classifier.ResolveMarker(outcome),
		Version:    outcome.TestedVersion.Source.Value,
		Forced:     outcome.TestedVersion.Forced,
	}
}

// BaselineCell is the fixed "- baseline" cell shown for outcomes[0].
func BaselineCell() OfferedCell {
	return OfferedCell{IsBaseline: true}
}

// Format renders the cell's text content (no padding/truncation).
func (c OfferedCell) Format() string {
	if c.IsBaseline {
		return "- baseline"
	}
	text := fmt.Sprintf("%s %s%s", c.Icon, resolutionGlyph(c.Resolution), c.Version)
	if c.Forced {
		text += " [≠→!]"
	}
	return text
}
