package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "Cargo.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

func TestSubjectRequirementStringValued(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "load_image"
version = "3.3.1"

[dependencies]
rgb = "^0.8.52"
`)
	m, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	req := m.SubjectRequirement("rgb")
	if !req.IsSome() || req.Unwrap() != "^0.8.52" {
		t.Fatalf("got %+v", req)
	}
}

func TestSubjectRequirementTableValued(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "load_image"
version = "3.3.1"

[dependencies]
rgb = { version = "^0.8.52", features = ["serde"] }
`)
	m, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	req := m.SubjectRequirement("rgb")
	if !req.IsSome() || req.Unwrap() != "^0.8.52" {
		t.Fatalf("got %+v", req)
	}
}

func TestSubjectRequirementTableWithoutVersion(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "load_image"
version = "3.3.1"

[dependencies]
rgb = { path = "../rgb" }
`)
	m, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	req := m.SubjectRequirement("rgb")
	if !req.IsSome() || req.Unwrap() != "*" {
		t.Fatalf("got %+v", req)
	}
}

func TestSubjectRequirementSearchesSectionsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "load_image"
version = "3.3.1"

[dev-dependencies]
rgb = "^0.9.0"

[build-dependencies]
rgb = "^0.7.0"
`)
	m, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	req := m.SubjectRequirement("rgb")
	if !req.IsSome() || req.Unwrap() != "^0.9.0" {
		t.Fatalf("got %+v", req)
	}
}

func TestSubjectRequirementAbsent(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "load_image"
version = "3.3.1"
`)
	m, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.SubjectRequirement("rgb").IsSome() {
		t.Fatal("expected no requirement")
	}
}

func TestSelfIdentityDefaultsVersion(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
name = "dependent-broken"
`)
	m, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	name, version, identErr := m.SelfIdentity()
	if identErr != nil {
		t.Fatalf("unexpected error: %v", identErr)
	}
	if name != "dependent-broken" || version != "0.0.0" {
		t.Fatalf("got name=%q version=%q", name, version)
	}
}

func TestSelfIdentityMissingNameIsManifestShapeError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[package]
version = "1.0.0"
`)
	m, err := LoadFromDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_, _, identErr := m.SelfIdentity()
	if identErr == nil {
		t.Fatal("expected manifest shape error")
	}
}
