package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/imazen/crusader/internal/foundation"
	"github.com/imazen/crusader/internal/model"
)

func sampleResult() Result {
	pipeline := model.PipelineOutcome{
		Fetch:           model.StageOutcome{Stage: model.StageFetch, Success: true, Duration: 200 * time.Millisecond},
		Check:           foundation.Some(model.StageOutcome{Stage: model.StageCheck, Success: true, Duration: 300 * time.Millisecond}),
		ExpectedVersion: foundation.Some("0.8.52"),
		ActualVersion:   foundation.Some("0.8.52"),
	}
	report := model.DependentReport{
		Dependent: model.Dependent{Name: "load_image", Version: "3.3.1"},
		Kind:      model.DependentReportOutcomes,
		Outcomes: []model.VersionOutcome{
			{TestedVersion: model.TestedVersion{Source: model.Published("0.8.52")}, Pipeline: pipeline},
			{TestedVersion: model.TestedVersion{Source: model.Published("0.8.52")}, Pipeline: pipeline},
		},
	}
	return Result{
		SubjectName:    "rgb",
		DisplayVersion: "0.8.53-wip",
		TotalDeps:      1,
		Reports:        []model.DependentReport{report},
	}
}

func TestWriteHTMLRendersRowsAndCounts(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "load_image") {
		t.Fatalf("expected dependent name in output:\n%s", out)
	}
	if !strings.Contains(out, "class='passed'") {
		t.Fatalf("expected passed row class in output:\n%s", out)
	}
	if !strings.Contains(out, "Passed: 1, Regressed: 0, Broken: 0") {
		t.Fatalf("expected summary counts in output:\n%s", out)
	}
}

func TestWriteMarkdownProducesTableAndSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, sampleResult()); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "| Offered | Spec | Resolved | Dependent | Result |") {
		t.Fatalf("expected table header, got:\n%s", out)
	}
	if !strings.Contains(out, "Passed:    1") {
		t.Fatalf("expected passed count in summary, got:\n%s", out)
	}
}

func TestWriteMarkdownTableEmbedsFencedConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdownTable(&buf, sampleResult(), 120); err != nil {
		t.Fatalf("WriteMarkdownTable: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "```") {
		t.Fatalf("expected fenced code block, got:\n%s", out)
	}
	if !strings.Contains(out, "Dependents Tested**: 1") {
		t.Fatalf("expected dependent count, got:\n%s", out)
	}
	if !strings.Contains(out, "load_image") {
		t.Fatalf("expected console table contents, got:\n%s", out)
	}
}
