package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/imazen/crusader/internal/foundation"
	"github.com/imazen/crusader/internal/model"
)

type fakeStaging struct {
	dir string
}

func (f *fakeStaging) Ensure(ctx context.Context, name, version string) (string, *foundation.ClassifiedError) {
	return f.dir, nil
}

func (f *fakeStaging) EnsureLocal(name, version, sourcePath string) (string, *foundation.ClassifiedError) {
	return f.dir, nil
}

func (f *fakeStaging) EnsureSubjectVersion(ctx context.Context, subjectName, version string) (string, *foundation.ClassifiedError) {
	return filepath.Join(f.dir, "base-"+subjectName+"-"+version), nil
}

func seedDependentDir(t *testing.T, manifest string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml.original.txt"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("seed backup: %v", err)
	}
	return dir
}

func TestRunResolvesPinnedVersionWithoutCallingResolver(t *testing.T) {
	dir := seedDependentDir(t, "[package]\nname = \"load_image\"\nversion = \"3.3.1\"\n\n[dependencies]\nrgb = \"^0.8.52\"\n")

	called := false
	resolver := func(ctx context.Context, crateName string) (string, *foundation.ClassifiedError) {
		called = true
		return "", nil
	}

	buildrunnerVerify = func(ctx context.Context, d, subject string) foundation.Option[string] {
		return foundation.None[string]()
	}

	task := Task{
		Dependent: model.Dependent{Name: "load_image"},
		Pin:       foundation.Some("3.3.1"),
		Subject:   model.Subject{Name: "rgb"},
		Plan: []model.TestedVersion{
			{Source: model.Published("0.9.0"), Forced: false},
		},
		SkipTest: true,
		Staging:  &fakeStaging{dir: dir},
		Logger:   nil,
	}

	report := Run(context.Background(), task, resolver)
	if called {
		t.Fatal("resolver should not be called when a version is pinned")
	}
	if report.Kind != model.DependentReportOutcomes {
		t.Fatalf("expected outcomes report, got %+v", report)
	}
	if report.Dependent.Version != "3.3.1" {
		t.Fatalf("expected pinned version preserved, got %q", report.Dependent.Version)
	}
}

func TestRunYieldsErrorReportWhenStagingFails(t *testing.T) {
	failingStaging := &erroringStaging{}
	resolver := func(ctx context.Context, crateName string) (string, *foundation.ClassifiedError) {
		return "1.0.0", nil
	}
	task := Task{
		Dependent: model.Dependent{Name: "load_image"},
		Subject:   model.Subject{Name: "rgb"},
		Staging:   failingStaging,
	}
	report := Run(context.Background(), task, resolver)
	if report.Kind != model.DependentReportError {
		t.Fatalf("expected error report, got %+v", report)
	}
}

type erroringStaging struct{}

func (e *erroringStaging) Ensure(ctx context.Context, name, version string) (string, *foundation.ClassifiedError) {
	return "", foundation.IOError("boom").Build()
}
func (e *erroringStaging) EnsureLocal(name, version, sourcePath string) (string, *foundation.ClassifiedError) {
	return "", foundation.IOError("boom").Build()
}
func (e *erroringStaging) EnsureSubjectVersion(ctx context.Context, subjectName, version string) (string, *foundation.ClassifiedError) {
	return "", foundation.IOError("boom").Build()
}
