package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/imazen/crusader/internal/driver"
	"github.com/imazen/crusader/internal/foundation"
	"github.com/imazen/crusader/internal/model"
	reportpkg "github.com/imazen/crusader/internal/report"
)

func passedStage(stage model.Stage) model.StageOutcome {
	return model.StageOutcome{Stage: stage, Success: true, Duration: time.Millisecond}
}

func failedStage(stage model.Stage) model.StageOutcome {
	return model.StageOutcome{Stage: stage, Success: false, Duration: time.Millisecond, Stderr: "boom"}
}

func outcome(source model.VersionSource, forced bool, success bool) model.VersionOutcome {
	fetch := passedStage(model.StageFetch)
	check := foundation.Some(passedStage(model.StageCheck))
	if !success {
		check = foundation.Some(failedStage(model.StageCheck))
	}
	return model.VersionOutcome{
		TestedVersion: model.TestedVersion{Source: source, Forced: forced},
		Pipeline: model.PipelineOutcome{
			Fetch:           fetch,
			Check:           check,
			ExpectedVersion: foundation.Some(source.Value),
			ActualVersion:   foundation.Some(source.Value),
		},
	}
}

// TestScenarioARegressionDetection mirrors spec.md §8 scenario A: a
// passing baseline followed by a failing offered version yields
// REGRESSED and exit code -2.
func TestScenarioARegressionDetection(t *testing.T) {
	dependentReport := model.DependentReport{
		Dependent: model.Dependent{Name: "load_image", Version: "3.3.1"},
		Kind:      model.DependentReportOutcomes,
		Outcomes: []model.VersionOutcome{
			outcome(model.Published("0.8.52"), false, true),
			outcome(model.Local("this"), true, false),
		},
	}

	var buf bytes.Buffer
	tbl := reportpkg.NewTable(&buf, 100)
	tbl.WriteHeader("rgb", "0.8.91 (work-in-progress)", 1)
	tbl.WriteReport(dependentReport)
	tbl.WriteFooter()

	summary := tbl.Summary()
	if summary.Regressed != 1 {
		t.Fatalf("Regressed = %d, want 1", summary.Regressed)
	}
	if code := summary.ExitCode(); code != -2 {
		t.Fatalf("ExitCode() = %d, want -2", code)
	}
}

// TestScenarioBBrokenBaseline mirrors scenario B: a baseline that fails
// independent of the subject yields BROKEN with exit code 0.
func TestScenarioBBrokenBaseline(t *testing.T) {
	dependentReport := model.DependentReport{
		Dependent: model.Dependent{Name: "dependent-broken", Version: "0.0.0"},
		Kind:      model.DependentReportOutcomes,
		Outcomes: []model.VersionOutcome{
			outcome(model.Published("0.8.52"), false, false),
		},
	}

	var buf bytes.Buffer
	tbl := reportpkg.NewTable(&buf, 100)
	tbl.WriteReport(dependentReport)

	summary := tbl.Summary()
	if summary.Broken != 1 || summary.Passed != 0 || summary.Regressed != 0 {
		t.Fatalf("summary = %+v, want Broken:1 only", summary)
	}
	if code := summary.ExitCode(); code != 0 {
		t.Fatalf("ExitCode() = %d, want 0", code)
	}
}

// TestScenarioCCleanPass mirrors scenario C: baseline and offered both
// succeed, yielding a single Passed verdict and exit code 0.
func TestScenarioCCleanPass(t *testing.T) {
	dependentReport := model.DependentReport{
		Dependent: model.Dependent{Name: "stable_dep", Version: "1.0.0"},
		Kind:      model.DependentReportOutcomes,
		Outcomes: []model.VersionOutcome{
			outcome(model.Published("0.8.52"), false, true),
			outcome(model.Local("this"), false, true),
		},
	}

	var buf bytes.Buffer
	tbl := reportpkg.NewTable(&buf, 100)
	tbl.WriteReport(dependentReport)

	summary := tbl.Summary()
	if summary.Passed != 1 {
		t.Fatalf("Passed = %d, want 1", summary.Passed)
	}
	if code := summary.ExitCode(); code != 0 {
		t.Fatalf("ExitCode() = %d, want 0", code)
	}
}

// TestScenarioFParallelDeterminism mirrors scenario F: the same jobs run
// through the driver with --jobs 1 and --jobs 4 must deliver reports
// in the same dependent order, despite workers finishing out of order.
func TestScenarioFParallelDeterminism(t *testing.T) {
	names := []string{"dep_a", "dep_b", "dep_c", "dep_d", "dep_e"}
	delays := []time.Duration{5 * time.Millisecond, 1 * time.Millisecond, 4 * time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}

	buildJobs := func() []driver.Job {
		jobs := make([]driver.Job, len(names))
		for i, name := range names {
			name, delay := name, delays[i]
			jobs[i] = driver.NewJob(func(ctx context.Context) model.DependentReport {
				time.Sleep(delay)
				return model.DependentReport{
					Dependent: model.Dependent{Name: name, Version: "1.0.0"},
					Kind:      model.DependentReportOutcomes,
					Outcomes: []model.VersionOutcome{
						outcome(model.Published("0.8.52"), false, true),
						outcome(model.Local("this"), false, true),
					},
				}
			})
		}
		return jobs
	}

	serial := driver.NewPool(1).Run(context.Background(), buildJobs())
	parallel := driver.NewPool(4).Run(context.Background(), buildJobs())

	renderNames := func(reports []model.DependentReport) string {
		var sb strings.Builder
		for _, r := range reports {
			sb.WriteString(r.Dependent.Name)
			sb.WriteString(",")
		}
		return sb.String()
	}

	if renderNames(serial) != renderNames(parallel) {
		t.Fatalf("row order diverged: serial=%q parallel=%q", renderNames(serial), renderNames(parallel))
	}
}
