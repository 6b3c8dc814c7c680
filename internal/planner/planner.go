// Package planner implements the Version Planner: turning the user's
// test_versions/force_versions configuration and the subject's optional
// local source into an ordered list of TestedVersions, plus the
// per-dependent baseline reordering applied at the Orchestrator
// boundary (spec.md §4.6).
package planner

import (
	"github.com/imazen/crusader/internal/foundation"
	"github.com/imazen/crusader/internal/model"
	crusadersemver "github.com/imazen/crusader/internal/semver"
)

// VersionResolver resolves a registry crate's full list of published,
// non-yanked version strings. cmd/crusader wraps
// *registry.Client.Versions for the subject crate in a closure of this type.
type VersionResolver func() ([]string, *foundation.ClassifiedError)

// Input bundles the Version Planner's configuration inputs (spec.md
// §4.6).
type Input struct {
	TestVersions  []string
	ForceVersions []string
	LocalSource   foundation.Option[string]
}

// Plan resolves Input into an ordered []model.TestedVersion. resolver
// is only invoked if a sentinel needs resolving or a default latest
// entry must be appended (no local source configured).
func Plan(input Input, resolver VersionResolver) ([]model.TestedVersion, *foundation.ClassifiedError) {
	var plan []model.TestedVersion

	for _, raw := range input.TestVersions {
		tv, err := resolveEntry(raw, false, resolver)
		if err != nil {
			return nil, err
		}
		plan = append(plan, tv)
	}
	for _, raw := range input.ForceVersions {
		tv, err := resolveEntry(raw, true, resolver)
		if err != nil {
			return nil, err
		}
		plan = append(plan, tv)
	}

	if input.LocalSource.IsSome() {
		plan = append(plan, model.TestedVersion{
			Source: model.Local(input.LocalSource.Unwrap()),
			Forced: true,
		})
	} else {
		versions, err := resolver()
		if err != nil {
			return nil, err
		}
		if latest, ok := crusadersemver.LatestNonPrerelease(versions); ok {
			plan = append(plan, model.TestedVersion{
				Source: model.Published(latest),
				Forced: false,
			})
		}
	}

	return plan, nil
}

func resolveEntry(raw string, forced bool, resolver VersionResolver) (model.TestedVersion, *foundation.ClassifiedError) {
	if crusadersemver.IsSentinel(raw) {
		versions, err := resolver()
		if err != nil {
			return model.TestedVersion{}, err
		}
		resolved, ok := crusadersemver.ResolveSentinel(raw, versions)
		if !ok {
			return model.TestedVersion{}, foundation.NoCrateVersionsError(raw).Build()
		}
		return model.TestedVersion{Source: model.Published(resolved), Forced: forced}, nil
	}
	if crusadersemver.IsRequirementSyntax(raw) {
		return model.TestedVersion{}, foundation.InvalidVersionError(
			"version requirement syntax is not accepted here, only concrete versions: " + raw).Build()
	}
	if _, err := crusadersemver.ParseConcreteVersion(raw); err != nil {
		return model.TestedVersion{}, err
	}
	return model.TestedVersion{Source: model.Published(raw), Forced: forced}, nil
}

// Reorder applies the per-dependent baseline rule (spec.md §4.6): if
// baseline is present anywhere in plan it is removed from its original
// position, and the concrete baseline version is unconditionally
// prepended. The baseline entry is never forced and carries no
// override (spec.md §4.7 step 7).
func Reorder(plan []model.TestedVersion, baseline string) []model.TestedVersion {
	baselineVersion := model.TestedVersion{Source: model.Published(baseline), Forced: false}

	reordered := make([]model.TestedVersion, 0, len(plan)+1)
	reordered = append(reordered, baselineVersion)
	for _, tv := range plan {
		if tv.Source.IsPublished() && tv.Source.Value == baseline {
			continue
		}
		reordered = append(reordered, tv)
	}
	return reordered
}
