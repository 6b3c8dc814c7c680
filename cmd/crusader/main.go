// Command crusader tests whether a work-in-progress crate version
// regresses its reverse dependencies, modeled on the teacher's
// cmd/docbuilder/main.go: a single kong.Parse call, an AfterApply-
// installed logger, and a thin Run that wires config into the domain
// packages and maps the result to a process exit code.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/imazen/crusader/internal/cliapp"
	"github.com/imazen/crusader/internal/config"
	"github.com/imazen/crusader/internal/driver"
	"github.com/imazen/crusader/internal/export"
	"github.com/imazen/crusader/internal/foundation"
	"github.com/imazen/crusader/internal/metrics"
	"github.com/imazen/crusader/internal/model"
	"github.com/imazen/crusader/internal/orchestrator"
	"github.com/imazen/crusader/internal/pipeline"
	"github.com/imazen/crusader/internal/planner"
	"github.com/imazen/crusader/internal/registry"
	"github.com/imazen/crusader/internal/report"
	"github.com/imazen/crusader/internal/staging"
)

func main() {
	cli := &cliapp.CLI{}
	kong.Parse(cli,
		kong.Description("crusader: test whether a work-in-progress crate version regresses its reverse dependencies."),
	)

	os.Exit(run(context.Background(), cli, os.Stdout, os.Stderr))
}

func run(ctx context.Context, cli *cliapp.CLI, stdout, stderr *os.File) int {
	cfg, cfgErr := config.FromCLI(cli)
	if cfgErr != nil {
		fmt.Fprintln(stderr, cfgErr.Error())
		return -1
	}

	recorder, stopMetrics := startMetrics(cfg.MetricsAddr)
	defer stopMetrics()

	client := registry.New(registry.WithRecorder(recorder))

	dependents, depErr := resolveDependents(ctx, cfg, client)
	if depErr != nil {
		fmt.Fprintln(stderr, depErr.Error())
		return -1
	}

	plan, planErr := planner.Plan(cfg.Planner, func() ([]string, *foundation.ClassifiedError) {
		return client.Versions(ctx, cfg.Subject.Name)
	})
	if planErr != nil {
		fmt.Fprintln(stderr, planErr.Error())
		return -1
	}

	store := staging.New(cfg.StagingRoot, client)
	logger := pipeline.NewFailureLogger(filepath.Join(cfg.StagingRoot, "failures.log"))
	resolveLatest := orchestrator.Resolver(client)

	jobs := make([]driver.Job, len(dependents))
	for i, dep := range dependents {
		task := orchestrator.Task{
			Dependent:   dep.dependent,
			Pin:         dep.pin,
			LocalSource: dep.localSource,
			Subject:     cfg.Subject,
			Plan:        plan,
			SkipCheck:   cfg.SkipCheck,
			SkipTest:    cfg.SkipTest,
			Staging:     store,
			Logger:      logger,
			Recorder:    recorder,
		}
		jobs[i] = driver.NewJob(func(ctx context.Context) model.DependentReport {
			return orchestrator.Run(ctx, task, resolveLatest)
		})
	}

	pool := driver.NewPool(cfg.Jobs)
	reports := pool.Run(ctx, jobs)

	displayVersion := displayVersionFor(cfg.Subject)

	// --json replaces the human-readable table on stdout (spec.md §6);
	// the Table still accumulates the summary the exit code needs, just
	// against a discarded writer.
	tableOut := io.Writer(stdout)
	if cfg.JSON {
		tableOut = io.Discard
	}
	tbl := report.NewTable(tableOut, report.TerminalWidth())
	tbl.WriteHeader(cfg.Subject.Name, displayVersion, len(reports))
	for _, r := range reports {
		tbl.WriteReport(r)
	}
	tbl.WriteFooter()

	if cfg.JSON {
		writeJSONReports(stdout, cfg.Subject.Name, displayVersion, reports)
	}

	if cfg.OutputPath != "" {
		if err := writeExport(cfg, reports, displayVersion); err != nil {
			fmt.Fprintln(stderr, err.Error())
			return -1
		}
	}

	return tbl.Summary().ExitCode()
}

// startMetrics constructs a PrometheusRecorder and serves it over HTTP
// at addr when addr is non-empty, mirroring the teacher's
// internal/server/httpserver.Server goroutine-plus-http.Server shape.
// An empty addr disables metrics entirely (NoopRecorder, no listener).
// The returned stop func blocks until the server has shut down.
func startMetrics(addr string) (metrics.Recorder, func()) {
	if addr == "" {
		return metrics.NoopRecorder{}, func() {}
	}

	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	slog.Info("serving Prometheus metrics", slog.String("addr", addr))

	return recorder, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func displayVersionFor(subject model.Subject) string {
	if subject.LocalSource.IsSome() {
		return subject.LocalSource.Unwrap() + " (work-in-progress)"
	}
	return "published"
}

// resolvedDependent bundles what orchestrator.Task needs per dependent,
// keeping resolveDependents free of any orchestrator import cycle.
type resolvedDependent struct {
	dependent   model.Dependent
	pin         foundation.Option[string]
	localSource foundation.Option[string]
}

// resolveDependents expands the three dependent-selector flags
// (--top-dependents, --dependents, --dependent-paths) into a single
// ordered list, applying CRUSADER_LIMIT last (spec.md §6).
func resolveDependents(ctx context.Context, cfg config.Config, client *registry.Client) ([]resolvedDependent, *foundation.ClassifiedError) {
	var out []resolvedDependent

	for _, spec := range cfg.ParsedDependentSpecs() {
		name, version := registry.ParseDependentSpec(spec)
		pin := foundation.None[string]()
		if version != "" {
			pin = foundation.Some(version)
		}
		out = append(out, resolvedDependent{
			dependent: model.Dependent{Name: name, Version: version},
			pin:       pin,
		})
	}

	for _, path := range cfg.DependentPaths {
		name := filepath.Base(strings.TrimRight(path, string(filepath.Separator)))
		out = append(out, resolvedDependent{
			dependent:   model.Dependent{Name: name},
			localSource: foundation.Some(path),
		})
	}

	if cfg.TopDependents > 0 {
		names, err := client.TopDependents(ctx, cfg.Subject.Name, cfg.TopDependents)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			out = append(out, resolvedDependent{dependent: model.Dependent{Name: name}})
		}
	}

	if cfg.DependentLimit.IsSome() {
		limit := cfg.DependentLimit.Unwrap()
		if limit < len(out) {
			out = out[:limit]
		}
	}

	return out, nil
}

// jsonReport is a plain-field view of model.DependentReport for --json
// output; foundation.Option[T] carries no json tags of its own, so we
// flatten it here rather than threading (Un)MarshalJSON through the
// generic type for the sake of one output mode.
type jsonReport struct {
	Name     string            `json:"name"`
	Version  string            `json:"version"`
	Kind     string            `json:"kind"`
	Error    string            `json:"error,omitempty"`
	Verdicts map[string]string `json:"verdicts,omitempty"`
}

type jsonRun struct {
	Subject        string       `json:"subject"`
	DisplayVersion string       `json:"subject_version"`
	Dependents     []jsonReport `json:"dependents"`
}

func writeJSONReports(w io.Writer, subjectName, displayVersion string, reports []model.DependentReport) {
	run := jsonRun{Subject: subjectName, DisplayVersion: displayVersion}
	for _, r := range reports {
		jr := jsonReport{Name: r.Dependent.Name, Version: r.Dependent.Version, Kind: string(r.Kind)}
		if r.Kind == model.DependentReportError {
			jr.Error = r.Err.Error()
		}
		if r.Kind == model.DependentReportOutcomes {
			verdicts := make(map[string]string, len(r.Outcomes))
			for _, row := range report.BuildRows(r) {
				verdicts[row.Offered.Format()] = string(row.Verdict)
			}
			jr.Verdicts = verdicts
		}
		run.Dependents = append(run.Dependents, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(run)
}

func writeExport(cfg config.Config, reports []model.DependentReport, displayVersion string) error {
	result := export.Result{
		SubjectName:    cfg.Subject.Name,
		DisplayVersion: displayVersion,
		TotalDeps:      len(reports),
		Reports:        reports,
	}

	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return foundation.IOError("failed to create export file " + cfg.OutputPath).WithCause(err).Build()
	}
	defer f.Close()

	if strings.HasSuffix(cfg.OutputPath, ".html") {
		return export.WriteHTML(f, result)
	}
	return export.WriteMarkdown(f, result)
}
