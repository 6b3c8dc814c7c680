// Package buildrunner implements the Build Runner: invoking cargo's
// fetch/check/test subcommands with structured diagnostics parsing, and
// the separate metadata invocation used for version verification.
// Grounded on the teacher's run_hugo.go child-process invocation
// pattern (exec.Command, captured stdout/stderr, wall-clock duration),
// generalized from a single build command to three cargo subcommands.
package buildrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/imazen/crusader/internal/foundation"
	"github.com/imazen/crusader/internal/model"
)

// subcommand maps a Stage to its cargo subcommand.
func subcommand(stage model.Stage) string {
	switch stage {
	case model.StageFetch:
		return "fetch"
	case model.StageCheck:
		return "check"
	case model.StageTest:
		return "test"
	default:
		return string(stage)
	}
}

// structuredOutputFlags are appended for Check and Test so cargo emits
// machine-readable diagnostics on stdout (spec.md §4.4).
func structuredOutputFlags(stage model.Stage) []string {
	switch stage {
	case model.StageCheck, model.StageTest:
		return []string{"--message-format=json"}
	default:
		return nil
	}
}

// Run executes one pipeline stage in dir, with an optional patch-mode
// config fragment appended to the invocation.
func Run(ctx context.Context, stage model.Stage, dir string, configFragment []string) model.StageOutcome {
	args := []string{subcommand(stage)}
	args = append(args, structuredOutputFlags(stage)...)
	args = append(args, configFragment...)

	cmd := exec.CommandContext(ctx, "cargo", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	outcome := model.StageOutcome{
		Stage:    stage,
		Success:  err == nil,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
		Command:  "cargo " + strings.Join(args, " "),
		ExitCode: exitCode,
	}
	if stage == model.StageCheck || stage == model.StageTest {
		outcome.Diagnostics = ParseCargoJSON(stdout.String())
	}
	return outcome
}

// cargoMessage and compilerMessage mirror cargo's --message-format=json
// wire shape (grounded on original_source/src/error_extract.rs).
type cargoMessage struct {
	Reason  string            `json:"reason"`
	Message *compilerMessage  `json:"message,omitempty"`
}

type compilerMessage struct {
	Message  string            `json:"message"`
	Level    string            `json:"level"`
	Code     *messageCode      `json:"code,omitempty"`
	Spans    []messageSpan     `json:"spans"`
	Rendered *string           `json:"rendered,omitempty"`
}

type messageCode struct {
	Code string `json:"code"`
}

type messageSpan struct {
	FileName    string  `json:"file_name"`
	LineStart   int     `json:"line_start"`
	ColumnStart int     `json:"column_start"`
	IsPrimary   bool    `json:"is_primary"`
	Label       *string `json:"label,omitempty"`
}

// ParseCargoJSON parses cargo's line-delimited JSON output, keeping
// only compiler-message entries at error or warning level (spec.md
// §4.4; original_source/src/error_extract.rs's parse_cargo_json /
// convert_compiler_message).
func ParseCargoJSON(output string) []model.Diagnostic {
	var diagnostics []model.Diagnostic
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var msg cargoMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if msg.Reason != "compiler-message" || msg.Message == nil {
			continue
		}
		if diag, ok := convertCompilerMessage(msg.Message); ok {
			diagnostics = append(diagnostics, diag)
		}
	}
	return diagnostics
}

func convertCompilerMessage(msg *compilerMessage) (model.Diagnostic, bool) {
	if msg.Level != "error" && msg.Level != "warning" {
		return model.Diagnostic{}, false
	}

	diag := model.Diagnostic{
		Level:   msg.Level,
		Message: msg.Message,
	}
	if msg.Code != nil {
		diag.Code = msg.Code.Code
	}
	for _, span := range msg.Spans {
		if !span.IsPrimary {
			continue
		}
		diag.PrimaryFile = span.FileName
		diag.PrimaryLine = span.LineStart
		diag.PrimaryCol = span.ColumnStart
		if span.Label != nil {
			diag.PrimaryLabel = *span.Label
		}
		break
	}
	if msg.Rendered != nil {
		diag.Rendered = *msg.Rendered
	} else {
		diag.Rendered = formatDiagnosticText(msg)
	}
	return diag, true
}

func formatDiagnosticText(msg *compilerMessage) string {
	var b strings.Builder
	if msg.Code != nil {
		b.WriteString(msg.Level + "[" + msg.Code.Code + "]: " + msg.Message + "\n")
	} else {
		b.WriteString(msg.Level + ": " + msg.Message + "\n")
	}
	for _, span := range msg.Spans {
		if span.IsPrimary {
			b.WriteString(" --> " + span.FileName + "\n")
			break
		}
	}
	return b.String()
}

// VerifySubjectVersion runs `cargo metadata --format-version=1` in dir
// and searches the resolver graph for subjectName's resolved version
// (spec.md §4.4). Failure to determine it is non-fatal by contract:
// callers receive foundation.None rather than propagating an error.
func VerifySubjectVersion(ctx context.Context, dir, subjectName string) foundation.Option[string] {
	cmd := exec.CommandContext(ctx, "cargo", "metadata", "--format-version=1")
	cmd.Dir = dir
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return foundation.None[string]()
	}
	version, ok := extractResolvedVersion(stdout.Bytes(), subjectName)
	if !ok {
		return foundation.None[string]()
	}
	return foundation.Some(version)
}

type cargoMetadata struct {
	Resolve struct {
		Nodes []struct {
			ID   string   `json:"id"`
			Deps []struct {
				Name string `json:"name"`
				Pkg  string `json:"pkg"`
			} `json:"deps"`
		} `json:"nodes"`
	} `json:"resolve"`
}

// extractResolvedVersion searches resolve.nodes[*].deps[*] for
// subjectName, extracting the version from the matching package id.
// The "#<name>@<version>" form is preferred; a whitespace-delimited
// fallback ("<name> <version> (<source>)") is accepted too.
func extractResolvedVersion(data []byte, subjectName string) (string, bool) {
	var meta cargoMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", false
	}
	for _, node := range meta.Resolve.Nodes {
		for _, dep := range node.Deps {
			if dep.Name != subjectName {
				continue
			}
			if v, ok := versionFromPackageID(dep.Pkg, subjectName); ok {
				return v, true
			}
		}
	}
	return "", false
}

func versionFromPackageID(pkgID, subjectName string) (string, bool) {
	if idx := strings.Index(pkgID, "#"); idx >= 0 {
		rest := pkgID[idx+1:]
		if at := strings.LastIndex(rest, "@"); at >= 0 {
			return rest[at+1:], true
		}
		return rest, true
	}
	fields := strings.Fields(pkgID)
	if len(fields) >= 2 && fields[0] == subjectName {
		return fields[1], true
	}
	return "", false
}
