// Package export renders a finished run's DependentReports to HTML and
// Markdown, the two EXTERNAL COLLABORATOR output modes named by spec.md
// §6 (`--output`). Grounded on original_source/src/report.rs's
// generate_html_report/generate_markdown_report/
// export_markdown_table_report (kept as the shape: a title block, a
// five-column table, and a summary), reimplemented with stdlib
// html/template and strings.Builder in place of the original's
// hand-written writeln! calls — no example repo in the pack reaches for
// a templating library for a report this narrow, and the teacher's own
// HTML surfaces (internal/daemon/http_server_livereload.go) are
// handwritten too.
package export

import (
	"bytes"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/imazen/crusader/internal/model"
	"github.com/imazen/crusader/internal/report"
)

// Result bundles the rows and summary export needs for one run, built
// once by the caller after the Streaming Reporter has finished so the
// same data backs both the terminal table and the file export.
type Result struct {
	SubjectName    string
	DisplayVersion string
	TotalDeps      int
	Reports        []model.DependentReport
}

type htmlRow struct {
	Class                                           string
	Offered, Spec, Resolved, Dependent, Result, Time string
}

type htmlData struct {
	CrateName      string
	DisplayVersion string
	Rows           []htmlRow
	Summary        report.Summary
}

var htmlDoc = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html><head><meta charset='UTF-8'>
<title>Crusader Report - {{.CrateName}}</title>
<style>
body { font-family: monospace; margin: 20px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 8px; text-align: left; }
.passed { color: green; }
.regressed { color: red; }
.broken { color: orange; }
</style></head><body>
<h1>Crusader Report</h1>
<p>Crate: <strong>{{.CrateName}}</strong> ({{.DisplayVersion}})</p>
<table><thead><tr>
<th>Offered</th><th>Spec</th><th>Resolved</th><th>Dependent</th><th>Result</th>
</tr></thead><tbody>
{{range .Rows}}<tr class='{{.Class}}'><td>{{.Offered}}</td><td>{{.Spec}}</td><td>{{.Resolved}}</td><td>{{.Dependent}}</td><td>{{.Result}} {{.Time}}</td></tr>
{{end}}</tbody></table>
<h2>Summary</h2>
<p>Passed: {{.Summary.Passed}}, Regressed: {{.Summary.Regressed}}, Broken: {{.Summary.Broken}}</p>
</body></html>
`))

// WriteHTML renders result as a self-contained HTML document. html/
// template auto-escapes every field, taking the place of the original's
// hand-rolled sanitize().
func WriteHTML(w io.Writer, result Result) error {
	data := htmlData{CrateName: result.SubjectName, DisplayVersion: result.DisplayVersion}
	for _, dep := range result.Reports {
		rows := report.BuildRows(dep)
		for i, row := range rows {
			if i == 0 {
				continue // the baseline row is left out of the HTML table and its counts
			}
			data.Summary.Count(row.Verdict)
			data.Rows = append(data.Rows, htmlRow{
				Class:     classFor(row.Verdict),
				Offered:   row.Offered.Format(),
				Spec:      row.Spec,
				Resolved:  row.Resolved,
				Dependent: row.Dependent,
				Result:    string(row.Verdict),
				Time:      row.Time,
			})
		}
	}
	return htmlDoc.Execute(w, data)
}

func classFor(v model.Verdict) string {
	switch v {
	case model.VerdictPassed:
		return "passed"
	case model.VerdictRegressed:
		return "regressed"
	case model.VerdictBroken:
		return "broken"
	default:
		return ""
	}
}

// WriteMarkdown renders result as a Markdown table plus a summary list.
func WriteMarkdown(w io.Writer, result Result) error {
	var b strings.Builder
	b.WriteString("# Crusader Test Report\n\n")
	b.WriteString("**Crate**: " + result.SubjectName + " (" + result.DisplayVersion + ")\n\n")
	b.WriteString("## Test Results\n\n")
	b.WriteString("| Offered | Spec | Resolved | Dependent | Result |\n")
	b.WriteString("|---------|------|----------|-----------|--------|\n")

	var summary report.Summary
	for _, dep := range result.Reports {
		rows := report.BuildRows(dep)
		for i, row := range rows {
			if i > 0 {
				summary.Count(row.Verdict)
			}
			b.WriteString("| " + row.Offered.Format() + " | " + row.Spec + " | " + row.Resolved + " | " +
				row.Dependent + " | " + string(row.Verdict) + " " + row.Time + " |\n")
		}
	}

	b.WriteString("\n## Summary\n\n")
	b.WriteString(summary.Format())

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMarkdownTable renders result as Markdown with the terminal
// table's exact box-drawing output embedded in a fenced code block —
// export_markdown_table_report's behavior, reusing internal/report's
// Table renderer instead of a second hand-written formatter.
func WriteMarkdownTable(w io.Writer, result Result, terminalWidth int) error {
	var body bytes.Buffer
	tbl := report.NewTable(&body, terminalWidth)
	tbl.WriteHeader(result.SubjectName, result.DisplayVersion, result.TotalDeps)
	for _, dep := range result.Reports {
		tbl.WriteReport(dep)
	}
	tbl.WriteFooter()

	var b strings.Builder
	b.WriteString("# Crusader Test Report\n\n")
	b.WriteString("**Crate**: " + result.SubjectName + " (" + result.DisplayVersion + ")\n")
	b.WriteString("**Dependents Tested**: " + strconv.Itoa(result.TotalDeps) + "\n\n")
	b.WriteString("## Test Results\n\n")
	b.WriteString("```\n")
	b.Write(body.Bytes())
	b.WriteString("```\n")

	_, err := io.WriteString(w, b.String())
	return err
}
