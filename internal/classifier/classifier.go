// Package classifier implements the Classifier: a pure function turning
// a DependentReport's ordered outcomes into per-row Passed/Regressed/
// Broken verdicts, plus the resolution marker used by the reporter.
package classifier

import (
	"github.com/imazen/crusader/internal/model"
)

// Verdicts classifies every non-baseline outcome in report. The first
// entry (index 0, the baseline) has no verdict of its own in this
// slice — index i of the returned slice corresponds to report.Outcomes[i+1].
// Per spec.md §4.8:
//
//	baseline: Passed if success else Broken (not returned here)
//	offered:  Passed if success
//	          Regressed if !success && baseline succeeded
//	          Broken if !success && baseline failed
func Verdicts(report model.DependentReport) []model.Verdict {
	if report.Kind != model.DependentReportOutcomes || len(report.Outcomes) == 0 {
		return nil
	}
	baselineSucceeded := report.Outcomes[0].Pipeline.Success()
	verdicts := make([]model.Verdict, 0, len(report.Outcomes)-1)
	for _, outcome := range report.Outcomes[1:] {
		verdicts = append(verdicts, verdictFor(outcome.Pipeline.Success(), baselineSucceeded))
	}
	return verdicts
}

func verdictFor(success, baselineSucceeded bool) model.Verdict {
	if success {
		return model.VerdictPassed
	}
	if baselineSucceeded {
		return model.VerdictRegressed
	}
	return model.VerdictBroken
}

// BaselineVerdict classifies outcomes[0] itself: Passed if it
// succeeded, Broken otherwise (there is no "regressed" baseline — it
// is the reference other verdicts are measured against).
func BaselineVerdict(report model.DependentReport) (model.Verdict, bool) {
	baseline, ok := report.Baseline()
	if !ok {
		return "", false
	}
	if baseline.Pipeline.Success() {
		return model.VerdictPassed, true
	}
	return model.VerdictBroken, true
}

// WorstVerdict rolls a dependent's report up to a single classification
// for summary counting: the worst verdict across its offered rows,
// ordered Regressed > Broken > Passed (spec.md §4.8). If there are no
// offered rows, falls back to the baseline's own verdict.
func WorstVerdict(report model.DependentReport) (model.Verdict, bool) {
	verdicts := Verdicts(report)
	if len(verdicts) == 0 {
		return BaselineVerdict(report)
	}
	worst := verdicts[0]
	for _, v := range verdicts[1:] {
		if v.Rank() > worst.Rank() {
			worst = v
		}
	}
	return worst, true
}

// Resolution is the rendering marker comparing a non-baseline outcome's
// expected and actual subject version (spec.md §4.8).
type Resolution string

const (
	ResolutionExact    Resolution = "exact"
	ResolutionUpgraded Resolution = "upgraded"
	ResolutionMismatch Resolution = "mismatch"
)

// ResolveMarker computes the Resolution marker for a non-baseline
// outcome. Forced outcomes are unconditionally Mismatch (spec.md §4.8's
// "[≠→!]" suffix); otherwise Exact when expected == actual, Upgraded
// when they differ.
func ResolveMarker(outcome model.VersionOutcome) Resolution {
	if outcome.TestedVersion.Forced {
		return ResolutionMismatch
	}
	expected := outcome.Pipeline.ExpectedVersion
	actual := outcome.Pipeline.ActualVersion
	if expected.IsNone() || actual.IsNone() {
		return ResolutionUpgraded
	}
	if expected.Unwrap() == actual.Unwrap() {
		return ResolutionExact
	}
	return ResolutionUpgraded
}
