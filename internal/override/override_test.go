package override

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPatchProducesConfigFragment(t *testing.T) {
	replacement := t.TempDir()
	frag, err := Patch("rgb", replacement)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if len(frag) != 2 || frag[0] != "--config" {
		t.Fatalf("unexpected fragment: %v", frag)
	}
	if !strings.Contains(frag[1], "patch.crates-io.rgb.path=") {
		t.Fatalf("fragment missing patch key: %v", frag)
	}
}

func TestForceRewritesDependencyToPathEntry(t *testing.T) {
	entryDir := t.TempDir()
	manifestPath := filepath.Join(entryDir, "Cargo.toml")
	if err := os.WriteFile(manifestPath, []byte(`
[package]
name = "load_image"
version = "3.3.1"

[dependencies]
rgb = "^0.8.52"
`), 0o644); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}

	replacement := t.TempDir()
	if err := Force(entryDir, "rgb", replacement); err != nil {
		t.Fatalf("force: %v", err)
	}

	data, _ := os.ReadFile(manifestPath)
	if !strings.Contains(string(data), "path") {
		t.Fatalf("expected path dependency after force rewrite, got: %s", data)
	}
	if strings.Contains(string(data), "0.8.52") {
		t.Fatalf("expected version constraint to be discarded, got: %s", data)
	}
}

func TestForceErrorsWhenSubjectAbsent(t *testing.T) {
	entryDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(entryDir, "Cargo.toml"), []byte(`
[package]
name = "load_image"
version = "3.3.1"
`), 0o644); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}

	if err := Force(entryDir, "rgb", t.TempDir()); err == nil {
		t.Fatal("expected error when subject absent from manifest")
	}
}

func TestSelectMode(t *testing.T) {
	if SelectMode(true) != "force" {
		t.Error("expected force")
	}
	if SelectMode(false) != "patch" {
		t.Error("expected patch")
	}
}
