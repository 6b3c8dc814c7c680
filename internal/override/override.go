// Package override implements the Override Applier: redirecting a
// staged dependent's build to a replacement subject source, in one of
// two mutually exclusive modes (patch or force), or no override at all
// for the baseline run.
package override

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/imazen/crusader/internal/foundation"
	"github.com/imazen/crusader/internal/manifest"
)

// ConfigFragment is a patch-mode build-tool command-line fragment,
// e.g. ["--config", `patch.crates-io.rgb.path="/abs/path/to/rgb"`].
type ConfigFragment []string

// Patch builds the semver-respecting override: a --config fragment
// that redirects subjectName to replacementDir via cargo's source
// patching mechanism. No files on disk are touched.
func Patch(subjectName, replacementDir string) (ConfigFragment, *foundation.ClassifiedError) {
	abs, err := filepath.Abs(replacementDir)
	if err != nil {
		return nil, foundation.InvalidPathError("cannot resolve absolute path for " + replacementDir).WithCause(err).Build()
	}
	return ConfigFragment{
		"--config",
		fmt.Sprintf(`patch.crates-io.%s.path=%q`, subjectName, abs),
	}, nil
}

// Force rewrites the dependent manifest at entryDir in place, replacing
// every occurrence of subjectName in the dependency sections with an
// inline path dependency, discarding any version constraint. Must be
// called against a manifest freshly restored from backup (staging.Restore)
// — Force does not itself restore first, since the Three-Step Pipeline
// controls that ordering explicitly (spec.md §4.5 step 1-2).
func Force(entryDir, subjectName, replacementDir string) *foundation.ClassifiedError {
	abs, absErr := filepath.Abs(replacementDir)
	if absErr != nil {
		return foundation.InvalidPathError("cannot resolve absolute path for " + replacementDir).WithCause(absErr).Build()
	}

	manifestPath := filepath.Join(entryDir, "Cargo.toml")
	data, readErr := os.ReadFile(manifestPath)
	if readErr != nil {
		return foundation.IOError("failed to read manifest for force rewrite: " + manifestPath).WithCause(readErr).Build()
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return foundation.TomlError("failed to parse manifest for force rewrite: " + manifestPath).WithCause(err).Build()
	}

	rewritten := false
	for _, section := range manifest.DependencySections {
		table, ok := doc[section].(map[string]any)
		if !ok {
			continue
		}
		if _, present := table[subjectName]; !present {
			continue
		}
		table[subjectName] = map[string]any{"path": abs}
		rewritten = true
	}
	if !rewritten {
		return foundation.ManifestShapeError(
			subjectName + " not found in any dependency section of " + manifestPath).Build()
	}

	out, marshalErr := toml.Marshal(doc)
	if marshalErr != nil {
		return foundation.TomlError("failed to re-encode manifest " + manifestPath).WithCause(marshalErr).Build()
	}
	if err := os.WriteFile(manifestPath, out, 0o644); err != nil {
		return foundation.IOError("failed to write rewritten manifest " + manifestPath).WithCause(err).Build()
	}
	return nil
}

// SelectMode picks patch vs force per spec.md §4.3: force if forced is
// set (always true for local version sources), patch by default.
func SelectMode(forced bool) string {
	if forced {
		return "force"
	}
	return "patch"
}
