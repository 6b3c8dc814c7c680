// Package pipeline implements the Three-Step Pipeline: composing the
// Staging Store, Override Applier, and Build Runner into one
// fetch/check/test run against a single TestedVersion, plus the durable
// failure log. Grounded on the teacher's internal/hugo run/classify
// shape (restore-before-run, early-exit-on-failure, always-record),
// generalized from a single build stage to three ordered stages.
package pipeline

import (
	"context"

	"github.com/imazen/crusader/internal/buildrunner"
	"github.com/imazen/crusader/internal/foundation"
	"github.com/imazen/crusader/internal/metrics"
	"github.com/imazen/crusader/internal/model"
	"github.com/imazen/crusader/internal/override"
	"github.com/imazen/crusader/internal/staging"
)

// Override carries the replacement source directory for a non-baseline
// run; absent for the baseline (override = None per spec.md §4.5 step 2).
type Override struct {
	ReplacementDir string
}

// Params bundles the Three-Step Pipeline's contract inputs (spec.md
// §4.5): run(staging_path, subject_name, override, skip_check,
// skip_test, expected_version, forced, original_requirement).
type Params struct {
	StagingPath         string
	SubjectName         string
	Override            foundation.Option[Override]
	SkipCheck           bool
	SkipTest            bool
	ExpectedVersion     foundation.Option[string]
	Forced              bool
	OriginalRequirement foundation.Option[string]

	// Dependent and Label identify this run for the failure log.
	Dependent string
	Label     string
}

// Run executes the Three-Step Pipeline against one TestedVersion and
// returns the resulting PipelineOutcome. Failures are non-fatal: they
// are recorded in the outcome and, via logger, durably appended.
func Run(ctx context.Context, params Params, logger *FailureLogger, recorder metrics.Recorder) model.PipelineOutcome {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	// Step 1: restore pristine manifest, purge stale lockfile.
	if err := staging.Restore(params.StagingPath); err != nil {
		return failedBeforeFetch(params, err)
	}
	if err := staging.PurgeLockfile(params.StagingPath); err != nil {
		return failedBeforeFetch(params, err)
	}

	// Step 2: conditional force rewrite.
	rewritten := false
	if params.Forced && params.Override.IsSome() {
		if err := override.Force(params.StagingPath, params.SubjectName, params.Override.Unwrap().ReplacementDir); err != nil {
			return failedBeforeFetch(params, err)
		}
		rewritten = true
	}

	var configFragment []string
	if !params.Forced && params.Override.IsSome() {
		frag, err := override.Patch(params.SubjectName, params.Override.Unwrap().ReplacementDir)
		if err != nil {
			if rewritten {
				_ = staging.Restore(params.StagingPath)
			}
			return failedBeforeFetch(params, err)
		}
		configFragment = frag
	}

	outcome := model.PipelineOutcome{
		Forced:              params.Forced,
		ExpectedVersion:     params.ExpectedVersion,
		OriginalRequirement: params.OriginalRequirement,
	}

	// Ensure the manifest restore runs on every exit path, including the
	// early-returns below (spec.md's scoped-acquisition requirement).
	defer func() {
		if rewritten {
			_ = staging.Restore(params.StagingPath)
		}
	}()

	// Step 3: Fetch.
	fetchOutcome := runStage(ctx, model.StageFetch, params, configFragment, logger, recorder)
	outcome.Fetch = fetchOutcome
	if !fetchOutcome.Success {
		return outcome
	}
	outcome.ActualVersion = buildrunner.VerifySubjectVersion(ctx, params.StagingPath, params.SubjectName)

	// Step 4: Check.
	checkSucceededOrSkipped := true
	if !params.SkipCheck {
		checkOutcome := runStage(ctx, model.StageCheck, params, configFragment, logger, recorder)
		outcome.Check = foundation.Some(checkOutcome)
		checkSucceededOrSkipped = checkOutcome.Success
		if !checkOutcome.Success {
			return outcome
		}
	}

	// Step 5: Test.
	if !params.SkipTest && checkSucceededOrSkipped {
		testOutcome := runStage(ctx, model.StageTest, params, configFragment, logger, recorder)
		outcome.Test = foundation.Some(testOutcome)
	}

	return outcome
}

// failedBeforeFetch synthesizes a failed Fetch outcome for setup errors
// that occur before the Build Runner is ever invoked (restore, purge,
// or override failures). These are still surfaced as a failed pipeline
// stage rather than a fatal orchestrator error, matching spec.md §4.5's
// "per-version failure is a non-fatal PipelineOutcome" contract.
func failedBeforeFetch(params Params, err *foundation.ClassifiedError) model.PipelineOutcome {
	outcome := model.StageOutcome{
		Stage:    model.StageFetch,
		Success:  false,
		Stderr:   err.Error(),
		Command:  "(setup)",
		ExitCode: -1,
	}
	return model.PipelineOutcome{
		Fetch:               outcome,
		Forced:              params.Forced,
		ExpectedVersion:     params.ExpectedVersion,
		OriginalRequirement: params.OriginalRequirement,
	}
}

func runStage(ctx context.Context, stage model.Stage, params Params, configFragment []string, logger *FailureLogger, recorder metrics.Recorder) model.StageOutcome {
	outcome := buildrunner.Run(ctx, stage, params.StagingPath, configFragment)

	if outcome.Success {
		recorder.IncStageResult(string(stage), metrics.StageResultSuccess)
	} else {
		recorder.IncStageResult(string(stage), metrics.StageResultFailed)
		if logger != nil {
			_ = logger.Append(FailureRecord{
				Dependent: params.Dependent,
				Subject:   params.SubjectName,
				Label:     params.Label,
				Stage:     string(stage),
				Command:   outcome.Command,
				ExitCode:  outcome.ExitCode,
				Stdout:    outcome.Stdout,
				Stderr:    outcome.Stderr,
			})
		}
	}
	recorder.ObserveStageDuration(string(stage), outcome.Duration)
	return outcome
}
