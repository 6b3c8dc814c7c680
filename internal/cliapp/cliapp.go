// Package cliapp defines crusader's command-line surface (spec.md §6),
// a kong flag struct modeled on the teacher's cmd/docbuilder/main.go CLI
// struct and its AfterApply-driven logging setup.
package cliapp

import (
	"log/slog"
	"os"

	"github.com/imazen/crusader/internal/foundation"
	crusadersemver "github.com/imazen/crusader/internal/semver"
)

// CLI is crusader's root flag set (spec.md §6's EXTERNAL INTERFACES).
type CLI struct {
	Path    string `name:"path" help:"Directory or explicit manifest path for the Subject's work-in-progress source."`
	Crate   string `name:"crate" help:"Subject crate name; required when --path is not given."`
	Verbose bool   `short:"v" help:"Enable verbose logging."`

	TopDependents  int      `name:"top-dependents" help:"Fetch top N reverse dependencies by download count." default:"5"`
	Dependents     []string `name:"dependents" help:"Explicit dependents as NAME or NAME:VERSION."`
	DependentPaths []string `name:"dependent-paths" help:"Local (offline) dependent source directories."`

	TestVersions  []string `name:"test-versions" help:"Concrete Subject versions to test (sentinels latest/latest-preview/latest-prerelease accepted)."`
	ForceVersions []string `name:"force-versions" help:"Same syntax as --test-versions; entries bypass semver compatibility."`

	Jobs int `name:"jobs" help:"Worker-pool size." default:"1"`

	NoCheck bool `name:"no-check" help:"Skip the Check stage."`
	NoTest  bool `name:"no-test" help:"Skip the Test stage."`

	StagingDir string `name:"staging-dir" help:"Staging Store root directory." default:".crusader/staging"`

	Output string `name:"output" help:"Export destination path (.html or .md inferred from extension)."`
	JSON   bool   `name:"json" help:"Emit machine-readable JSON instead of the terminal table."`

	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9090); unset disables metrics."`
}

// AfterApply runs after kong parses flags; it installs the process-wide
// slog logger, mirroring the teacher's CLI.AfterApply.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// Validate enforces spec.md §6's validation rules. kong calls Validate
// automatically after parsing (the `Validatable` convention); the same
// method is exported here so tests and internal/config can call it
// directly.
func (c *CLI) Validate() error {
	if c.NoCheck && c.NoTest {
		return foundation.ConfigError("--no-check and --no-test are mutually exclusive").Build()
	}
	if c.TopDependents <= 0 && len(c.Dependents) == 0 && len(c.DependentPaths) == 0 {
		return foundation.ConfigError("at least one of --top-dependents, --dependents, or --dependent-paths must select dependents").Build()
	}
	if c.Jobs < 1 {
		return foundation.ConfigError("--jobs must be >= 1").Build()
	}
	if c.Path == "" && c.Crate == "" {
		return foundation.ConfigError("--crate is required when --path is not given").Build()
	}
	for _, v := range c.TestVersions {
		if err := validateVersionArg(v); err != nil {
			return err
		}
	}
	for _, v := range c.ForceVersions {
		if err := validateVersionArg(v); err != nil {
			return err
		}
	}
	return nil
}

func validateVersionArg(v string) error {
	if crusadersemver.IsSentinel(v) {
		return nil
	}
	if crusadersemver.IsRequirementSyntax(v) {
		return foundation.InvalidVersionError(
			"version requirement syntax is not accepted, only concrete versions or sentinels: " + v).Build()
	}
	if _, err := crusadersemver.ParseConcreteVersion(v); err != nil {
		return err
	}
	return nil
}
