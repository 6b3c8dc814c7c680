// Package semver wraps github.com/Masterminds/semver/v3 with the
// requirement-syntax rules the Version Planner and CLI validation need:
// rejecting requirement operators where a concrete version is required,
// and resolving the "latest"/"latest-preview" sentinels against a list
// of published versions.
package semver

import (
	"sort"
	"strings"

	mastersemver "github.com/Masterminds/semver/v3"

	"github.com/imazen/crusader/internal/foundation"
)

// RequirementOperatorPrefixes are the prefixes that mark a string as a
// semver *requirement* rather than a concrete version.
var RequirementOperatorPrefixes = []string{"^", "~", "="}

// IsRequirementSyntax reports whether s looks like a requirement
// (caret/tilde/equals-prefixed) rather than a concrete version.
func IsRequirementSyntax(s string) bool {
	trimmed := strings.TrimSpace(s)
	for _, prefix := range RequirementOperatorPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// ParseConcreteVersion parses s as a concrete version, rejecting
// requirement syntax up front (InvalidVersion per the error taxonomy).
func ParseConcreteVersion(s string) (*mastersemver.Version, *foundation.ClassifiedError) {
	trimmed := strings.TrimSpace(s)
	if IsRequirementSyntax(trimmed) {
		return nil, foundation.InvalidVersionError(
			"expected a concrete version, got a requirement: " + s).Build()
	}
	v, err := mastersemver.NewVersion(trimmed)
	if err != nil {
		return nil, foundation.SemverError("failed to parse version " + s).WithCause(err).Build()
	}
	return v, nil
}

// RequirementSatisfied applies standard semver range semantics: does
// version satisfy requirement? An empty or "*" requirement is always
// satisfied. Unparseable requirements or versions are treated as
// unsatisfied rather than erroring, since this helper is used as a
// compatibility gate, not an input-validation boundary.
func RequirementSatisfied(requirement, version string) bool {
	requirement = strings.TrimSpace(requirement)
	if requirement == "" || requirement == "*" {
		return true
	}
	constraint, err := mastersemver.NewConstraint(requirement)
	if err != nil {
		return false
	}
	v, err := mastersemver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return false
	}
	return constraint.Check(v)
}

// Sentinel keywords accepted in --test-versions/--force-versions.
const (
	SentinelLatest     = "latest"
	SentinelPreview    = "latest-preview"
	SentinelPrerelease = "latest-prerelease"
)

// IsSentinel reports whether s is one of the recognized version keywords.
func IsSentinel(s string) bool {
	switch strings.TrimSpace(s) {
	case SentinelLatest, SentinelPreview, SentinelPrerelease:
		return true
	default:
		return false
	}
}

// ResolveSentinel picks a concrete version string out of the supplied
// published version list for the given sentinel. versions need not be
// sorted; ResolveSentinel sorts a local copy. Returns false if no
// matching version exists (e.g. only prereleases exist and the
// sentinel requires a stable release).
func ResolveSentinel(sentinel string, versions []string) (string, bool) {
	parsed := make([]*mastersemver.Version, 0, len(versions))
	for _, raw := range versions {
		v, err := mastersemver.NewVersion(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		parsed = append(parsed, v)
	}
	if len(parsed) == 0 {
		return "", false
	}
	col := mastersemver.Collection(parsed)
	sort.Sort(col) // ascending

	switch strings.TrimSpace(sentinel) {
	case SentinelLatest:
		for i := len(col) - 1; i >= 0; i-- {
			if col[i].Prerelease() == "" {
				return col[i].Original(), true
			}
		}
		return "", false
	case SentinelPreview, SentinelPrerelease:
		return col[len(col)-1].Original(), true
	default:
		return "", false
	}
}

// LatestNonPrerelease returns the highest non-prerelease version in the
// list, if any.
func LatestNonPrerelease(versions []string) (string, bool) {
	return ResolveSentinel(SentinelLatest, versions)
}
