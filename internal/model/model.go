// Package model holds the data types shared across crusader's pipeline:
// the subject under test, its dependents, the versions offered to them,
// and the outcomes recorded while testing each one.
package model

import (
	"time"

	"github.com/imazen/crusader/internal/foundation"
)

// Subject is the library whose work-in-progress version is being tested.
type Subject struct {
	Name string
	// LocalSource is set when a WIP checkout on disk backs the subject;
	// absent when only a registry version string is being exercised.
	LocalSource foundation.Option[string]
}

// Dependent is a downstream crate that depends on the Subject.
type Dependent struct {
	Name    string
	Version string
	// RequirementSpec is the constraint string as written in the
	// dependent's own manifest (e.g. "^0.8.52"); absent until discovered.
	RequirementSpec foundation.Option[string]
	// ResolvedVersion is what the build tool actually picked for a given
	// pipeline run; absent until version verification succeeds.
	ResolvedVersion foundation.Option[string]
}

// VersionSourceKind tags the two VersionSource variants.
type VersionSourceKind string

const (
	VersionSourcePublished VersionSourceKind = "published"
	VersionSourceLocal     VersionSourceKind = "local"
)

// VersionSource is a sum type: either a registry artifact identified by
// version string, or a filesystem path containing a manifest.
type VersionSource struct {
	Kind VersionSourceKind
	// Value holds the version string (Published) or path (Local).
	Value string
}

func Published(version string) VersionSource {
	return VersionSource{Kind: VersionSourcePublished, Value: version}
}

func Local(path string) VersionSource {
	return VersionSource{Kind: VersionSourceLocal, Value: path}
}

func (s VersionSource) IsPublished() bool { return s.Kind == VersionSourcePublished }
func (s VersionSource) IsLocal() bool     { return s.Kind == VersionSourceLocal }

// TestedVersion is a VersionSource plus the forced flag: whether semver
// must be bypassed (force mode) rather than respected (patch mode).
// Local sources are implicitly forced.
type TestedVersion struct {
	Source VersionSource
	Forced bool
}

// Equal reports whether two TestedVersions refer to the same source,
// ignoring the Forced flag (used by the planner's de-duplication rule).
func (t TestedVersion) Equal(other TestedVersion) bool {
	return t.Source.Kind == other.Source.Kind && t.Source.Value == other.Source.Value
}

// Stage is one of the three ordered pipeline stages.
type Stage string

const (
	StageFetch Stage = "fetch"
	StageCheck Stage = "check"
	StageTest  Stage = "test"
)

// Diagnostic is a parsed compiler message extracted from structured
// cargo output (see internal/buildrunner).
type Diagnostic struct {
	Level        string // "error" | "warning"
	Code         string
	Message      string
	Rendered     string
	PrimaryFile  string
	PrimaryLine  int
	PrimaryCol   int
	PrimaryLabel string
}

// StageOutcome records the observable result of running one Stage.
type StageOutcome struct {
	Stage       Stage
	Success     bool
	Stdout      string
	Stderr      string
	Duration    time.Duration
	Diagnostics []Diagnostic
	Command     string
	ExitCode    int
}

// PipelineOutcome is the full result of a Three-Step Pipeline run
// against one TestedVersion.
type PipelineOutcome struct {
	Fetch               StageOutcome
	Check               foundation.Option[StageOutcome]
	Test                foundation.Option[StageOutcome]
	ExpectedVersion     foundation.Option[string]
	ActualVersion       foundation.Option[string]
	Forced              bool
	OriginalRequirement foundation.Option[string]
}

// Success reports whether every stage that ran succeeded.
func (p PipelineOutcome) Success() bool {
	if !p.Fetch.Success {
		return false
	}
	if p.Check.IsSome() && !p.Check.Unwrap().Success {
		return false
	}
	if p.Test.IsSome() && !p.Test.Unwrap().Success {
		return false
	}
	return true
}

// FirstFailure returns the earliest stage whose outcome failed, if any.
func (p PipelineOutcome) FirstFailure() foundation.Option[StageOutcome] {
	if !p.Fetch.Success {
		return foundation.Some(p.Fetch)
	}
	if p.Check.IsSome() && !p.Check.Unwrap().Success {
		return foundation.Some(p.Check.Unwrap())
	}
	if p.Test.IsSome() && !p.Test.Unwrap().Success {
		return foundation.Some(p.Test.Unwrap())
	}
	return foundation.None[StageOutcome]()
}

// VersionOutcome pairs the version offered with the pipeline result of
// testing it.
type VersionOutcome struct {
	TestedVersion TestedVersion
	Pipeline      PipelineOutcome
}

// DependentReportKind tags the three DependentReport variants.
type DependentReportKind string

const (
	DependentReportOutcomes DependentReportKind = "outcomes"
	DependentReportSkipped  DependentReportKind = "skipped"
	DependentReportError    DependentReportKind = "error"
)

// DependentReport is the per-dependent result delivered to the Reporter.
// Exactly one of Outcomes (Kind == Outcomes), SkippedReason (Kind ==
// Skipped), or Err (Kind == Error) is meaningful, selected by Kind.
type DependentReport struct {
	Dependent     Dependent
	Kind          DependentReportKind
	Outcomes      []VersionOutcome
	SkippedReason string
	Err           error
}

// Baseline returns outcomes[0], which by construction is always the
// dependent's natural-resolution baseline when Kind == Outcomes and
// Outcomes is non-empty.
func (r DependentReport) Baseline() (VersionOutcome, bool) {
	if r.Kind != DependentReportOutcomes || len(r.Outcomes) == 0 {
		return VersionOutcome{}, false
	}
	return r.Outcomes[0], true
}

// Verdict is the per-offered-version classification.
type Verdict string

const (
	VerdictPassed    Verdict = "PASSED"
	VerdictRegressed Verdict = "REGRESSED"
	VerdictBroken    Verdict = "BROKEN"
)

// Rank orders verdicts for the report's worst-case roll-up:
// Regressed > Broken > Passed.
func (v Verdict) Rank() int {
	switch v {
	case VerdictRegressed:
		return 2
	case VerdictBroken:
		return 1
	default:
		return 0
	}
}
