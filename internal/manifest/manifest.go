// Package manifest implements the Manifest Inspector: reading a crate's
// Cargo.toml to discover its own identity and its requirement on the
// subject library.
package manifest

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/imazen/crusader/internal/foundation"
)

// DependencySections are searched, in order, for the subject's
// requirement entry.
var DependencySections = []string{"dependencies", "dev-dependencies", "build-dependencies"}

// Manifest is a decoded Cargo.toml, kept as a loosely-typed table since
// third-party manifests are unpredictable in shape (spec.md §4.1: a
// dependency entry may be string-valued, table-valued, or something
// else entirely — each case is handled explicitly rather than forced
// into a fixed struct).
type Manifest struct {
	raw map[string]any
}

// Load reads and parses the Cargo.toml at path.
func Load(path string) (*Manifest, *foundation.ClassifiedError) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, foundation.IOError("failed to read manifest " + path).WithCause(err).Build()
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, foundation.TomlError("failed to parse manifest " + path).WithCause(err).Build()
	}
	return &Manifest{raw: raw}, nil
}

// LoadFromDir loads Cargo.toml from within dir.
func LoadFromDir(dir string) (*Manifest, *foundation.ClassifiedError) {
	return Load(filepath.Join(dir, "Cargo.toml"))
}

// SubjectRequirement searches the dependency sections in order and
// returns the first match's requirement string for subjectName.
func (m *Manifest) SubjectRequirement(subjectName string) foundation.Option[string] {
	for _, section := range DependencySections {
		table, ok := m.raw[section].(map[string]any)
		if !ok {
			continue
		}
		entry, ok := table[subjectName]
		if !ok {
			continue
		}
		return foundation.Some(requirementFromEntry(entry))
	}
	return foundation.None[string]()
}

// requirementFromEntry interprets one dependency-table entry per
// spec.md §4.1: a string-valued entry returns its literal value; a
// table-valued entry returns its "version" field or "*" if absent;
// any other shape returns "*".
func requirementFromEntry(entry any) string {
	switch v := entry.(type) {
	case string:
		return v
	case map[string]any:
		if version, ok := v["version"].(string); ok {
			return version
		}
		return "*"
	default:
		return "*"
	}
}

// SelfIdentity returns the package's own name and version.
// Version defaults to "0.0.0" when absent; a missing name is a
// ManifestShape error.
func (m *Manifest) SelfIdentity() (name string, version string, classifiedErr *foundation.ClassifiedError) {
	pkg, ok := m.raw["package"].(map[string]any)
	if !ok {
		return "", "", foundation.ManifestShapeError("manifest has no [package] table").Build()
	}
	name, ok = pkg["name"].(string)
	if !ok || name == "" {
		return "", "", foundation.ManifestShapeError("manifest [package] has no name").Build()
	}
	version = "0.0.0"
	if v, ok := pkg["version"].(string); ok && v != "" {
		version = v
	}
	return name, version, nil
}

// HasDependency reports whether any dependency section mentions name,
// regardless of shape.
func (m *Manifest) HasDependency(name string) bool {
	for _, section := range DependencySections {
		table, ok := m.raw[section].(map[string]any)
		if !ok {
			continue
		}
		if _, ok := table[name]; ok {
			return true
		}
	}
	return false
}
