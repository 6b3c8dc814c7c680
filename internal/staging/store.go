// Package staging implements the Staging Store: an on-disk,
// content-addressed-by-identity cache of unpacked dependent sources,
// with a durable backup of each dependent's original manifest.
package staging

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/imazen/crusader/internal/archive"
	"github.com/imazen/crusader/internal/foundation"
)

const originalManifestBackupName = "Cargo.toml.original.txt"
const manifestName = "Cargo.toml"
const lockfileName = "Cargo.lock"

// Downloader fetches a crate's tarball. Satisfied by *registry.Client.
type Downloader interface {
	Download(ctx context.Context, crateName, version string) (io.ReadCloser, *foundation.ClassifiedError)
}

// Store owns a staging root directory. Each Dependent Orchestrator task
// exclusively owns one staging entry (keyed by dependent name+version)
// for the duration of a pipeline run; the Store itself only serializes
// the ensure step, which may run concurrently for distinct keys.
type Store struct {
	root       string
	downloader Downloader
	mu         keyedMutex
}

// New constructs a Store rooted at root. It creates no directories;
// the ensure methods create entry directories (and root) on first use.
func New(root string, downloader Downloader) *Store {
	return &Store{root: root, downloader: downloader, mu: newKeyedMutex()}
}

// EntryDir returns the directory an entry for (name, version) lives in,
// without checking existence.
func (s *Store) EntryDir(name, version string) string {
	return filepath.Join(s.root, name+"-"+version)
}

// Ensure returns the staging directory for (name, version), downloading
// and unpacking it first if absent. Local dependents skip the registry
// entirely: callers that already have a filesystem path should use
// EnsureLocal instead.
func (s *Store) Ensure(ctx context.Context, name, version string) (string, *foundation.ClassifiedError) {
	unlock := s.mu.lock(name + "-" + version)
	defer unlock()

	dir := s.EntryDir(name, version)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		if _, backupErr := os.Stat(filepath.Join(dir, originalManifestBackupName)); backupErr == nil {
			return dir, nil
		}
		// A directory exists without its manifest backup: a crash left a
		// partial unpack. Remove it and re-fetch.
		if err := os.RemoveAll(dir); err != nil {
			return "", foundation.IOError("failed to clean partial staging entry " + dir).WithCause(err).Build()
		}
	}

	body, downloadErr := s.downloader.Download(ctx, name, version)
	if downloadErr != nil {
		return "", downloadErr
	}
	defer body.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", foundation.IOError("failed to create staging directory " + dir).WithCause(err).Build()
	}
	if extractErr := archive.ExtractStripTop(body, dir); extractErr != nil {
		_ = os.RemoveAll(dir)
		return "", extractErr
	}
	if err := backupManifest(dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

// EnsureLocal registers a local (offline) dependent directly from a
// filesystem path, copying it into the staging root under the same
// "<name>-<version>" key so the rest of the pipeline is uniform
// (grounded on original_source/'s offline integration test: local
// dependents are copied, not symlinked or run in place).
func (s *Store) EnsureLocal(name, version, sourcePath string) (string, *foundation.ClassifiedError) {
	unlock := s.mu.lock(name + "-" + version)
	defer unlock()

	dir := s.EntryDir(name, version)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}
	if err := copyTree(sourcePath, dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", foundation.IOError("failed to stage local dependent from " + sourcePath).WithCause(err).Build()
	}
	if err := backupManifest(dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", err
	}
	return dir, nil
}

// EnsureSubjectVersion downloads and unpacks a published subject
// version into "<root>/base-<name>-<version>/", for use as a patch- or
// force-mode override target (spec.md §6: "<staging_root>/base-<subject>-<ver>/
// — unpacked alternative Subject versions used as override targets").
// Unlike dependent entries, subject replacement directories are never
// mutated by the pipeline, so no manifest backup is kept.
func (s *Store) EnsureSubjectVersion(ctx context.Context, subjectName, version string) (string, *foundation.ClassifiedError) {
	unlock := s.mu.lock("base-" + subjectName + "-" + version)
	defer unlock()

	dir := filepath.Join(s.root, "base-"+subjectName+"-"+version)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}

	body, downloadErr := s.downloader.Download(ctx, subjectName, version)
	if downloadErr != nil {
		return "", downloadErr
	}
	defer body.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", foundation.IOError("failed to create subject staging directory " + dir).WithCause(err).Build()
	}
	if extractErr := archive.ExtractStripTop(body, dir); extractErr != nil {
		_ = os.RemoveAll(dir)
		return "", extractErr
	}
	return dir, nil
}

func backupManifest(dir string) *foundation.ClassifiedError {
	src := filepath.Join(dir, manifestName)
	dst := filepath.Join(dir, originalManifestBackupName)
	data, err := os.ReadFile(src)
	if err != nil {
		return foundation.ManifestShapeError("staged entry has no Cargo.toml: " + src).WithCause(err).Build()
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return foundation.IOError("failed to write manifest backup " + dst).WithCause(err).Build()
	}
	return nil
}

// Restore copies the pristine manifest backup back over Cargo.toml.
// Must be called before every pipeline invocation, even the first in a
// process lifetime, to eliminate contamination from prior force-mode
// rewrites (spec.md §4.2/§4.5).
func Restore(entryDir string) *foundation.ClassifiedError {
	backup := filepath.Join(entryDir, originalManifestBackupName)
	data, err := os.ReadFile(backup)
	if err != nil {
		return foundation.IOError("manifest backup missing or unreadable: " + backup).WithCause(err).Build()
	}
	target := filepath.Join(entryDir, manifestName)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return foundation.IOError("failed to restore manifest " + target).WithCause(err).Build()
	}
	return nil
}

// PurgeLockfile deletes the resolver lockfile if present, forcing a
// fresh resolution under the current override on the next fetch.
func PurgeLockfile(entryDir string) *foundation.ClassifiedError {
	path := filepath.Join(entryDir, lockfileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return foundation.IOError("failed to purge lockfile " + path).WithCause(err).Build()
	}
	return nil
}

func copyTree(srcDir, dstDir string) error {
	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(srcDir, path)
		if relErr != nil {
			return relErr
		}
		target := filepath.Join(dstDir, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}
