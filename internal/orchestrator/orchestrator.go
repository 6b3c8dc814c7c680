// Package orchestrator implements the Dependent Orchestrator (spec.md
// §4.7): the per-dependent worker-thread algorithm that resolves a
// version, stages it, discovers its requirement on the subject,
// schedules the Version Planner's offered versions, runs the
// Three-Step Pipeline for each, and emits a DependentReport. Grounded
// on the teacher's internal/cli request/response shape (deleted from
// this tree after its shape was recorded; recreated here against
// crusader's domain types).
package orchestrator

import (
	"context"

	"github.com/imazen/crusader/internal/buildrunner"
	"github.com/imazen/crusader/internal/classifier"
	"github.com/imazen/crusader/internal/foundation"
	"github.com/imazen/crusader/internal/manifest"
	"github.com/imazen/crusader/internal/metrics"
	"github.com/imazen/crusader/internal/model"
	"github.com/imazen/crusader/internal/pipeline"
	"github.com/imazen/crusader/internal/planner"
	"github.com/imazen/crusader/internal/registry"
	crusadersemver "github.com/imazen/crusader/internal/semver"
	"github.com/imazen/crusader/internal/staging"
)

// VersionResolver fetches the latest published version of a crate.
type VersionResolver func(ctx context.Context, crateName string) (string, *foundation.ClassifiedError)

// StagingEnsurer matches staging.Store's Ensure/EnsureLocal/
// EnsureSubjectVersion signatures.
type StagingEnsurer interface {
	Ensure(ctx context.Context, name, version string) (string, *foundation.ClassifiedError)
	EnsureLocal(name, version, sourcePath string) (string, *foundation.ClassifiedError)
	EnsureSubjectVersion(ctx context.Context, subjectName, version string) (string, *foundation.ClassifiedError)
}

// Task bundles everything one dependent needs to run independently on
// a worker thread.
type Task struct {
	Dependent   model.Dependent
	Pin         foundation.Option[string] // version pinned via "name:version" user syntax
	LocalSource foundation.Option[string] // set for offline/local dependents (copied tree, not registry)

	Subject model.Subject
	Plan    []model.TestedVersion // Version Planner's global plan, reordered here per-dependent

	SkipCheck bool
	SkipTest  bool

	Staging  StagingEnsurer
	Logger   *pipeline.FailureLogger
	Recorder metrics.Recorder // nil defaults to metrics.NoopRecorder via pipeline.Run
}

// Run executes the full §4.7 algorithm for one dependent and returns
// its DependentReport. A fatal setup error (staging, network
// resolution) yields DependentReportError; per-version build failures
// are non-fatal and carried inside the outcomes instead.
func Run(ctx context.Context, task Task, resolveLatest VersionResolver) model.DependentReport {
	dependent := task.Dependent

	// Step 1: resolve dependent version.
	version := dependent.Version
	if task.Pin.IsSome() && task.Pin.Unwrap() != "" {
		version = task.Pin.Unwrap()
	} else if version == "" && task.LocalSource.IsSome() {
		localManifest, err := manifest.LoadFromDir(task.LocalSource.Unwrap())
		if err != nil {
			return finish(task, errorReport(dependent, err))
		}
		_, localVersion, err := localManifest.SelfIdentity()
		if err != nil {
			return finish(task, errorReport(dependent, err))
		}
		version = localVersion
	} else if version == "" {
		resolved, err := resolveLatest(ctx, dependent.Name)
		if err != nil {
			return finish(task, errorReport(dependent, err))
		}
		version = resolved
	}
	dependent.Version = version

	// Step 2: ensure staging.
	var stagingPath string
	var stagingErr *foundation.ClassifiedError
	if task.LocalSource.IsSome() {
		stagingPath, stagingErr = task.Staging.EnsureLocal(dependent.Name, version, task.LocalSource.Unwrap())
	} else {
		stagingPath, stagingErr = task.Staging.Ensure(ctx, dependent.Name, version)
	}
	if stagingErr != nil {
		return finish(task, errorReport(dependent, stagingErr))
	}

	// Restore pristine manifest once before any inspection, per spec.md
	// §4.2/§4.5 (eliminates contamination from a prior process run).
	if err := staging.Restore(stagingPath); err != nil {
		return finish(task, errorReport(dependent, err))
	}

	// Step 3: determine baseline — natural resolution under no override.
	baselineOpt := buildrunnerVerify(ctx, stagingPath, task.Subject.Name)
	baselineKnown := baselineOpt.IsSome()
	var baselineVersion string
	if baselineKnown {
		baselineVersion = baselineOpt.Unwrap()
	}

	// Step 4: discover requirement.
	mf, mfErr := manifest.LoadFromDir(stagingPath)
	if mfErr != nil {
		return finish(task, errorReport(dependent, mfErr))
	}
	requirement := mf.SubjectRequirement(task.Subject.Name)
	dependent.RequirementSpec = requirement

	// Step 5: reorder plan.
	var ordered []model.TestedVersion
	if baselineKnown {
		ordered = planner.Reorder(task.Plan, baselineVersion)
		dependent.ResolvedVersion = foundation.Some(baselineVersion)
	} else {
		// No parseable baseline: the first offered version serves as both
		// baseline and offered entry for classification purposes (spec.md
		// §4.7 step 3).
		ordered = task.Plan
	}

	// Step 6: compatibility gate — omitted by design (DESIGN.md Open
	// Question #2): the build tool decides compatibility rather than a
	// pre-flight semver check here.

	// Step 7: execute the pipeline for each offered version in order.
	outcomes := make([]model.VersionOutcome, 0, len(ordered))
	for i, tv := range ordered {
		label := labelFor(i, tv)
		var override foundation.Option[pipeline.Override]
		if i == 0 && baselineKnown {
			override = foundation.None[pipeline.Override]()
		} else {
			dir, dirErr := replacementDir(ctx, task.Staging, task.Subject, tv)
			if dirErr != nil {
				outcomes = append(outcomes, model.VersionOutcome{
					TestedVersion: tv,
					Pipeline:      model.PipelineOutcome{Fetch: failedStageFromError(dirErr)},
				})
				continue
			}
			override = foundation.Some(pipeline.Override{ReplacementDir: dir})
		}

		params := pipeline.Params{
			StagingPath:         stagingPath,
			SubjectName:         task.Subject.Name,
			Override:            override,
			SkipCheck:           task.SkipCheck,
			SkipTest:            task.SkipTest,
			ExpectedVersion:     expectedVersion(tv),
			Forced:              tv.Forced,
			OriginalRequirement: requirement,
			Dependent:           dependent.Name + "@" + dependent.Version,
			Label:               label,
		}
		outcome := pipeline.Run(ctx, params, task.Logger, task.Recorder)
		outcomes = append(outcomes, model.VersionOutcome{TestedVersion: tv, Pipeline: outcome})
	}

	// Step 8: emit report.
	return finish(task, model.DependentReport{
		Dependent: dependent,
		Kind:      model.DependentReportOutcomes,
		Outcomes:  outcomes,
	})
}

func errorReport(dependent model.Dependent, err *foundation.ClassifiedError) model.DependentReport {
	return model.DependentReport{
		Dependent: dependent,
		Kind:      model.DependentReportError,
		Err:       err,
	}
}

// finish records the dependent's worst-case verdict against task's
// Recorder before returning report, giving the Prometheus subsystem a
// real per-dependent signal to observe (spec.md §6's --metrics-addr).
func finish(task Task, report model.DependentReport) model.DependentReport {
	recorder := task.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	recorder.IncDependentOutcome(outcomeLabelFor(report))
	return report
}

func outcomeLabelFor(report model.DependentReport) metrics.OutcomeLabel {
	switch report.Kind {
	case model.DependentReportError:
		return metrics.OutcomeError
	case model.DependentReportSkipped:
		return metrics.OutcomeSkipped
	}
	worst, ok := classifier.WorstVerdict(report)
	if !ok {
		return metrics.OutcomeError
	}
	switch worst {
	case model.VerdictRegressed:
		return metrics.OutcomeRegressed
	case model.VerdictBroken:
		return metrics.OutcomeBroken
	default:
		return metrics.OutcomePassed
	}
}

func labelFor(index int, tv model.TestedVersion) string {
	if index == 0 {
		return "baseline"
	}
	if tv.Source.IsLocal() {
		return "this"
	}
	return tv.Source.Value
}

func expectedVersion(tv model.TestedVersion) foundation.Option[string] {
	if tv.Source.IsPublished() {
		return foundation.Some(tv.Source.Value)
	}
	return foundation.None[string]()
}

// replacementDir resolves the directory an override should point the
// subject dependency at. A Local TestedVersion is already a path
// (either the subject's own WIP checkout, or — for the planner's
// default local-source entry — the subject's LocalSource). A Published
// TestedVersion must be downloaded and unpacked into
// "base-<subject>-<ver>/" first (spec.md §6).
func replacementDir(ctx context.Context, stager StagingEnsurer, subject model.Subject, tv model.TestedVersion) (string, *foundation.ClassifiedError) {
	if tv.Source.IsLocal() {
		return tv.Source.Value, nil
	}
	return stager.EnsureSubjectVersion(ctx, subject.Name, tv.Source.Value)
}

func failedStageFromError(err *foundation.ClassifiedError) model.StageOutcome {
	return model.StageOutcome{
		Stage:    model.StageFetch,
		Success:  false,
		Stderr:   err.Error(),
		Command:  "(setup)",
		ExitCode: -1,
	}
}

// buildrunnerVerify is a thin indirection point so orchestrator tests
// can substitute a fake baseline resolver without invoking cargo.
var buildrunnerVerify = buildrunner.VerifySubjectVersion

// Resolver wraps registry.Client.Versions + semver.LatestNonPrerelease
// into a VersionResolver for Run's resolveLatest parameter.
func Resolver(client *registry.Client) VersionResolver {
	return func(ctx context.Context, crateName string) (string, *foundation.ClassifiedError) {
		versions, err := client.Versions(ctx, crateName)
		if err != nil {
			return "", err
		}
		latest, ok := crusadersemver.LatestNonPrerelease(versions)
		if !ok {
			return "", foundation.NoCrateVersionsError(crateName).Build()
		}
		return latest, nil
	}
}
