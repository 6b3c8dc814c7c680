// Package archive extracts registry-distributed crate tarballs (gzipped
// tar, the ".crate" format) onto disk. This is an external collaborator
// per spec.md §6; stdlib archive/tar and compress/gzip are used rather
// than a third-party library — no example in the retrieval pack reaches
// for one to extract a downloaded artifact (the teacher's own
// compression dependency is pulled in transitively for git packfiles,
// not for unpacking tarballs), so stdlib is the idiomatic choice here.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/imazen/crusader/internal/foundation"
)

// ExtractStripTop extracts the gzipped tar stream r into destDir,
// stripping the first path component of every entry (registry crate
// tarballs are wrapped in a single "<name>-<version>/" directory).
func ExtractStripTop(r io.Reader, destDir string) *foundation.ClassifiedError {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return foundation.ProcessError("failed to open gzip stream").WithCause(err).Build()
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return foundation.ProcessError("failed to read tar entry").WithCause(err).Build()
		}

		relPath := stripTopComponent(header.Name)
		if relPath == "" {
			continue
		}
		target := filepath.Join(destDir, relPath)
		if !withinDir(destDir, target) {
			return foundation.InvalidPathError("tar entry escapes destination directory: " + header.Name).Build()
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return foundation.IOError("failed to create directory " + target).WithCause(err).Build()
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return foundation.IOError("failed to create parent directory for " + target).WithCause(err).Build()
			}
			if err := writeRegularFile(target, tr, header.FileInfo().Mode()); err != nil {
				return foundation.IOError("failed to write " + target).WithCause(err).Build()
			}
		default:
			// symlinks and other special entries are not expected in
			// registry tarballs and are skipped rather than rejected.
		}
	}
	return nil
}

func writeRegularFile(target string, r io.Reader, mode os.FileMode) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

func stripTopComponent(name string) string {
	name = filepath.ToSlash(name)
	idx := strings.Index(name, "/")
	if idx < 0 {
		return ""
	}
	return filepath.FromSlash(name[idx+1:])
}

func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
