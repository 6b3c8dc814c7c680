package staging

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/imazen/crusader/internal/foundation"
)

type fakeDownloader struct {
	tarball []byte
	calls   int
}

func (f *fakeDownloader) Download(ctx context.Context, name, version string) (io.ReadCloser, *foundation.ClassifiedError) {
	f.calls++
	return io.NopCloser(bytes.NewReader(f.tarball)), nil
}

func buildTarball(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	files := map[string]string{
		"load_image-3.3.1/Cargo.toml": "[package]\nname=\"load_image\"\nversion=\"3.3.1\"\n",
		"load_image-3.3.1/src/lib.rs": "pub fn hello() {}\n",
	}
	for name, content := range files {
		_ = tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))})
		_, _ = tw.Write([]byte(content))
	}
	_ = tw.Close()
	_ = gz.Close()
	return buf.Bytes()
}

func TestEnsureDownloadsAndBacksUpManifestOnce(t *testing.T) {
	root := t.TempDir()
	dl := &fakeDownloader{tarball: buildTarball(t)}
	store := New(root, dl)

	dir, err := store.Ensure(context.Background(), "load_image", "3.3.1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "Cargo.toml.original.txt")); statErr != nil {
		t.Fatalf("expected manifest backup: %v", statErr)
	}

	// second ensure must be idempotent and not re-download.
	if _, err := store.Ensure(context.Background(), "load_image", "3.3.1"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if dl.calls != 1 {
		t.Fatalf("expected exactly one download, got %d", dl.calls)
	}
}

func TestRestoreUndoesForceRewrite(t *testing.T) {
	root := t.TempDir()
	dl := &fakeDownloader{tarball: buildTarball(t)}
	store := New(root, dl)

	dir, err := store.Ensure(context.Background(), "load_image", "3.3.1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	original, _ := os.ReadFile(filepath.Join(dir, "Cargo.toml"))

	// simulate a force-mode rewrite
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("mutated"), 0o644); err != nil {
		t.Fatalf("mutate: %v", err)
	}

	if err := Restore(dir); err != nil {
		t.Fatalf("restore: %v", err)
	}

	restored, _ := os.ReadFile(filepath.Join(dir, "Cargo.toml"))
	if string(restored) != string(original) {
		t.Fatalf("restore did not reproduce original manifest: %q vs %q", restored, original)
	}

	// restoring twice in a row is a no-op (testable property #9)
	if err := Restore(dir); err != nil {
		t.Fatalf("second restore: %v", err)
	}
	restoredAgain, _ := os.ReadFile(filepath.Join(dir, "Cargo.toml"))
	if string(restoredAgain) != string(original) {
		t.Fatalf("second restore changed content")
	}
}

func TestPurgeLockfileIsSilentWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	if err := PurgeLockfile(dir); err != nil {
		t.Fatalf("expected no error for missing lockfile: %v", err)
	}
}

func TestEnsureLocalCopiesTree(t *testing.T) {
	root := t.TempDir()
	source := t.TempDir()
	if err := os.WriteFile(filepath.Join(source, "Cargo.toml"), []byte("[package]\nname=\"local_dep\"\n"), 0o644); err != nil {
		t.Fatalf("seed source: %v", err)
	}

	store := New(root, &fakeDownloader{})
	dir, err := store.EnsureLocal("local_dep", "0.0.0", source)
	if err != nil {
		t.Fatalf("ensure local: %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "Cargo.toml.original.txt")); statErr != nil {
		t.Fatalf("expected manifest backup for local dependent: %v", statErr)
	}
}
