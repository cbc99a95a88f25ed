package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/augurhq/augur/pkg/models"
)

func sampleResult() *models.AnalysisResult {
	summary := models.NewSummary()
	summary.TotalIssues = 2
	summary.FilesWithIssues = 1
	summary.QualityScore = 88
	summary.BySeverity["high"] = 1
	summary.BySeverity["low"] = 1
	summary.ByCategory["security"] = 1
	summary.ByCategory["documentation"] = 1

	started := time.Now().Add(-2 * time.Second)
	return &models.AnalysisResult{
		RootPath: "demo",
		Files: []models.SourceFile{
			{Path: "app.py", Language: models.LangPython},
		},
		Issues: []models.Issue{
			models.NewIssue(models.CategorySecurity, "sql_injection", models.SeverityHigh,
				"SQL query built with string concatenation",
				models.Location{File: "app.py", StartLine: 12, EndLine: 12}),
			models.NewIssue(models.CategoryDocumentation, "missing_docstring", models.SeverityLow,
				"Function fetch has no docstring",
				models.Location{File: "app.py", StartLine: 10, EndLine: 20}),
		},
		Summary:     summary,
		StartedAt:   started,
		CompletedAt: started.Add(2 * time.Second),
		CacheHits:   3,
		CacheMisses: 1,
	}
}

func TestReportTextOutput(t *testing.T) {
	var buf bytes.Buffer
	report := BuildReport(sampleResult(), false, false)
	if err := report.RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Analysis of demo",
		"Quality score:  88.0 / 100",
		"app.py:12",
		"1 high, 1 low",
		"cache hit rate 75%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestReportMarkdownOutput(t *testing.T) {
	var buf bytes.Buffer
	report := BuildReport(sampleResult(), false, false)
	if err := report.RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "# Analysis of demo") {
		t.Errorf("markdown should open with a title heading:\n%s", out)
	}
	if !strings.Contains(out, "| Severity | Location | Category | Title |") {
		t.Errorf("markdown missing issue table header:\n%s", out)
	}
}

func TestReportJSONCarriesFullResult(t *testing.T) {
	res := sampleResult()
	report := BuildReport(res, false, false)

	raw, err := json.Marshal(report.RenderData())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded models.AnalysisResult
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.RootPath != "demo" || len(decoded.Issues) != 2 {
		t.Errorf("JSON lost result data: %+v", decoded)
	}
	if decoded.Summary.QualityScore != 88 {
		t.Errorf("score = %f, want 88", decoded.Summary.QualityScore)
	}
}

func TestReportProblemsSection(t *testing.T) {
	res := sampleResult()
	res.Warnings = []string{"cache directory unavailable, running without cache"}
	res.Outcomes = []models.AnalyzerOutcome{
		{Analyzer: "security", File: "app.py", Status: models.StatusSuccess},
		{Analyzer: "complexity", File: "app.py", Status: models.StatusTimeout, Error: "exceeded 30s deadline"},
	}

	var buf bytes.Buffer
	if err := BuildReport(res, false, false).RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "Problems") {
		t.Errorf("expected problems section:\n%s", out)
	}
	if !strings.Contains(out, "complexity on app.py: timeout") {
		t.Errorf("expected timeout line:\n%s", out)
	}
	if strings.Contains(out, "security on app.py") {
		t.Errorf("successful units should not appear as problems:\n%s", out)
	}
}

func TestReportVerboseIncludesOutcomes(t *testing.T) {
	res := sampleResult()
	res.Outcomes = []models.AnalyzerOutcome{
		{Analyzer: "security", File: "app.py", Status: models.StatusSuccess, IssueCount: 1, Cached: true},
	}

	var buf bytes.Buffer
	if err := BuildReport(res, false, true).RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "Work Units") {
		t.Errorf("verbose output missing work unit table:\n%s", out)
	}
	if !strings.Contains(out, "cached") {
		t.Errorf("verbose output missing cache source column:\n%s", out)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"json":     FormatJSON,
		"JSON":     FormatJSON,
		"markdown": FormatMarkdown,
		"md":       FormatMarkdown,
		"text":     FormatText,
		"bogus":    FormatText,
	}
	for in, want := range cases {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestFormatterWritesToFile(t *testing.T) {
	path := t.TempDir() + "/report.json"
	f, err := NewFormatter(FormatJSON, path, true)
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	if f.Colored() {
		t.Error("file output should disable color")
	}
	if err := f.Output(map[string]string{"status": "ok"}); err != nil {
		t.Fatalf("Output: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCategoryBreakdownOrdering(t *testing.T) {
	s := models.NewSummary()
	s.ByCategory["security"] = 1
	s.ByCategory["performance"] = 5
	s.ByCategory["complexity"] = 5

	table := CategoryBreakdown(s)
	if table.Rows[0][0] != "complexity" || table.Rows[1][0] != "performance" {
		t.Errorf("rows = %v, want count desc then name asc", table.Rows)
	}
	if table.Rows[2][0] != "security" {
		t.Errorf("rows = %v, want security last", table.Rows)
	}
}
