// Package config aggregates crusader's CLI flags and environment
// variables into the single Config value passed by value to each
// orchestrator worker, modeled on the teacher's internal/config.Load
// (read-validate-default shape), adapted from a YAML file read to a
// CLI+env read (spec.md §6's `CRUSADER_MANIFEST`/`CRUSADER_LIMIT`
// supersede the teacher's dotenv-file convention — see DESIGN.md's
// dropped-dependency entry for joho/godotenv).
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/imazen/crusader/internal/cliapp"
	"github.com/imazen/crusader/internal/foundation"
	"github.com/imazen/crusader/internal/manifest"
	"github.com/imazen/crusader/internal/model"
	"github.com/imazen/crusader/internal/planner"
)

// Config is the fully-resolved, validated configuration for one
// crusader run.
type Config struct {
	Subject model.Subject

	StagingRoot string

	TopDependents  int
	Dependents     []string // raw "name" or "name:version" specs
	DependentPaths []string
	DependentLimit foundation.Option[int] // CRUSADER_LIMIT

	SkipCheck bool
	SkipTest  bool
	Jobs      int

	Planner planner.Input

	OutputPath string
	JSON       bool

	MetricsAddr string
}

// FromCLI validates cli and resolves it, together with the
// CRUSADER_MANIFEST/CRUSADER_LIMIT environment variables, into a
// Config.
func FromCLI(cli *cliapp.CLI) (Config, *foundation.ClassifiedError) {
	if err := cli.Validate(); err != nil {
		var classified *foundation.ClassifiedError
		if foundation.AsClassified(err, &classified) {
			return Config{}, classified
		}
		return Config{}, foundation.ConfigError(err.Error()).Build()
	}

	subject, localSource, err := resolveSubject(cli)
	if err != nil {
		return Config{}, err
	}

	limit := foundation.None[int]()
	if raw := os.Getenv("CRUSADER_LIMIT"); raw != "" {
		if n, convErr := strconv.Atoi(raw); convErr == nil && n > 0 {
			limit = foundation.Some(n)
		}
	}

	return Config{
		Subject:        subject,
		StagingRoot:    cli.StagingDir,
		TopDependents:  cli.TopDependents,
		Dependents:     cli.Dependents,
		DependentPaths: cli.DependentPaths,
		DependentLimit: limit,
		SkipCheck:      cli.NoCheck,
		SkipTest:       cli.NoTest,
		Jobs:           cli.Jobs,
		Planner: planner.Input{
			TestVersions:  cli.TestVersions,
			ForceVersions: cli.ForceVersions,
			LocalSource:   localSource,
		},
		OutputPath:  cli.Output,
		JSON:        cli.JSON,
		MetricsAddr: cli.MetricsAddr,
	}, nil
}

// resolveSubject determines the Subject's identity and, when a
// filesystem path backs it, its LocalSource — used both for the
// planner's implicit "this" entry and as the Subject field below.
func resolveSubject(cli *cliapp.CLI) (model.Subject, foundation.Option[string], *foundation.ClassifiedError) {
	path := cli.Path
	if path == "" {
		path = os.Getenv("CRUSADER_MANIFEST")
	}
	if path == "" {
		return model.Subject{Name: cli.Crate}, foundation.None[string](), nil
	}

	dir := path
	if info, statErr := os.Stat(path); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}

	mf, mfErr := manifest.LoadFromDir(dir)
	if mfErr != nil {
		return model.Subject{}, foundation.None[string](), mfErr
	}
	name, _, identErr := mf.SelfIdentity()
	if identErr != nil {
		return model.Subject{}, foundation.None[string](), identErr
	}
	if cli.Crate != "" {
		name = cli.Crate
	}
	return model.Subject{Name: name, LocalSource: foundation.Some(dir)}, foundation.Some(dir), nil
}

// ParsedDependentSpecs returns the configured --dependents entries with
// surrounding whitespace trimmed and blank entries dropped; each entry
// is still a raw "name" or "name:version" string.
func (c Config) ParsedDependentSpecs() []string {
	specs := make([]string, 0, len(c.Dependents))
	for _, d := range c.Dependents {
		if trimmed := strings.TrimSpace(d); trimmed != "" {
			specs = append(specs, trimmed)
		}
	}
	return specs
}
