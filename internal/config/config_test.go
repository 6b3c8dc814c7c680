package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/imazen/crusader/internal/cliapp"
)

func writeManifest(t *testing.T, dir, name, version string) {
	t.Helper()
	content := "[package]\nname = \"" + name + "\"\nversion = \"" + version + "\"\n"
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func baseCLI() *cliapp.CLI {
	return &cliapp.CLI{
		Crate:         "rgb",
		TopDependents: 5,
		Jobs:          1,
		StagingDir:    ".crusader/staging",
	}
}

func TestFromCLIResolvesLocalSubjectFromPath(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "rgb", "0.8.53-wip")

	cli := baseCLI()
	cli.Crate = ""
	cli.Path = dir

	cfg, err := FromCLI(cli)
	if err != nil {
		t.Fatalf("FromCLI: %v", err)
	}
	if cfg.Subject.Name != "rgb" {
		t.Fatalf("Subject.Name = %q, want rgb", cfg.Subject.Name)
	}
	if cfg.Subject.LocalSource.IsNone() || cfg.Subject.LocalSource.Unwrap() != dir {
		t.Fatalf("Subject.LocalSource = %v, want %q", cfg.Subject.LocalSource, dir)
	}
	if cfg.Planner.LocalSource.IsNone() {
		t.Fatalf("Planner.LocalSource should be set when --path resolves a local subject")
	}
}

func TestFromCLIWithoutPathUsesCrateOnly(t *testing.T) {
	cli := baseCLI()
	cfg, err := FromCLI(cli)
	if err != nil {
		t.Fatalf("FromCLI: %v", err)
	}
	if cfg.Subject.Name != "rgb" {
		t.Fatalf("Subject.Name = %q, want rgb", cfg.Subject.Name)
	}
	if cfg.Subject.LocalSource.IsSome() {
		t.Fatalf("expected no local source when --path is absent")
	}
}

func TestFromCLIRejectsInvalidConfig(t *testing.T) {
	cli := baseCLI()
	cli.NoCheck = true
	cli.NoTest = true

	if _, err := FromCLI(cli); err == nil {
		t.Fatal("expected validation error for mutually exclusive skip flags")
	}
}

func TestFromCLIReadsDependentLimitEnvVar(t *testing.T) {
	t.Setenv("CRUSADER_LIMIT", "3")
	cli := baseCLI()

	cfg, err := FromCLI(cli)
	if err != nil {
		t.Fatalf("FromCLI: %v", err)
	}
	if cfg.DependentLimit.IsNone() || cfg.DependentLimit.Unwrap() != 3 {
		t.Fatalf("DependentLimit = %v, want Some(3)", cfg.DependentLimit)
	}
}

func TestParsedDependentSpecsTrimsAndDropsBlank(t *testing.T) {
	cfg := Config{Dependents: []string{" load_image:3.3.1 ", "", "  ", "other_dep"}}
	got := cfg.ParsedDependentSpecs()
	want := []string{"load_image:3.3.1", "other_dep"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
