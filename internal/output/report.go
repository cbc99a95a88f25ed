package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/augurhq/augur/pkg/models"
	"github.com/augurhq/augur/pkg/stats"
)

// maxSuggestions caps the advice shown per issue in verbose mode.
const maxSuggestions = 2

// BuildReport assembles the renderable report for an analysis run.
// JSON output serializes the full result; text and markdown show the
// issue table, summary, and any run problems. Verbose adds per-unit
// outcome detail.
func BuildReport(res *models.AnalysisResult, colored, verbose bool) *Report {
	report := &Report{
		Title: fmt.Sprintf("Analysis of %s", res.RootPath),
		Data:  res,
	}

	report.Sections = append(report.Sections, summarySection(res, colored))

	if len(res.Issues) > 0 {
		report.Sections = append(report.Sections, issueTable(res.Issues, colored))
	}
	if verbose {
		report.Sections = append(report.Sections, suggestionSections(res.Issues)...)
	}
	if sec := problemSection(res); sec != nil {
		report.Sections = append(report.Sections, sec)
	}
	if verbose && len(res.Outcomes) > 0 {
		report.Sections = append(report.Sections, outcomeTable(res.Outcomes))
	}
	return report
}

func summarySection(res *models.AnalysisResult, colored bool) *Section {
	score := fmt.Sprintf("%.1f", res.Summary.QualityScore)
	if colored {
		score = ScoreColor(res.Summary.QualityScore, score)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Quality score:  %s / 100\n", score)
	fmt.Fprintf(&b, "Files analyzed: %d", len(res.Files))
	if len(res.Skipped) > 0 {
		fmt.Fprintf(&b, " (%d skipped)", len(res.Skipped))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Issues found:   %d across %d file(s)\n",
		res.Summary.TotalIssues, res.Summary.FilesWithIssues)
	if bySev := severityBreakdown(res.Summary); bySev != "" {
		fmt.Fprintf(&b, "By severity:    %s\n", bySev)
	}
	fmt.Fprintf(&b, "Duration:       %s", res.Duration().Round(durationPrecision(res)))
	if res.CacheHits+res.CacheMisses > 0 {
		fmt.Fprintf(&b, ", cache hit rate %.0f%%", res.CacheHitRatio()*100)
	}
	if res.Incomplete {
		b.WriteString("\nRun was interrupted; results are partial.")
	}

	return &Section{Title: "Summary", Content: b.String()}
}

// severityBreakdown lists non-zero severity counts from worst to best.
func severityBreakdown(s models.Summary) string {
	var parts []string
	for _, sev := range []models.Severity{
		models.SeverityCritical, models.SeverityHigh, models.SeverityMedium,
		models.SeverityLow, models.SeverityInfo,
	} {
		if n := s.BySeverity[string(sev)]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}
	return strings.Join(parts, ", ")
}

func issueTable(issues []models.Issue, colored bool) *Table {
	rows := make([][]string, 0, len(issues))
	for _, iss := range issues {
		sev := string(iss.Severity)
		if colored {
			sev = SeverityColor(string(iss.Severity), sev)
		}
		rows = append(rows, []string{
			sev,
			fmt.Sprintf("%s:%d", iss.Location.File, iss.Location.StartLine),
			string(iss.Category),
			iss.Title,
		})
	}
	return NewTable("Issues", []string{"Severity", "Location", "Category", "Title"}, rows, nil)
}

// suggestionSections expands each issue's description and advice, one
// section per issue in report order.
func suggestionSections(issues []models.Issue) []Renderable {
	var out []Renderable
	for _, iss := range issues {
		var b strings.Builder
		b.WriteString(iss.Description)
		for i, s := range iss.Suggestions {
			if i >= maxSuggestions {
				break
			}
			fmt.Fprintf(&b, "\n  - %s", s)
		}
		out = append(out, &Section{
			Title:   fmt.Sprintf("%s:%d %s", iss.Location.File, iss.Location.StartLine, iss.Title),
			Content: b.String(),
		})
	}
	return out
}

// problemSection reports warnings and non-success work units, or nil when
// the run was clean.
func problemSection(res *models.AnalysisResult) *Section {
	lines := append([]string(nil), res.Warnings...)
	for _, out := range res.Outcomes {
		if out.Status == models.StatusSuccess {
			continue
		}
		target := out.File
		if target == "" {
			target = "(all files)"
		}
		lines = append(lines, fmt.Sprintf("%s on %s: %s (%s)", out.Analyzer, target, out.Status, out.Error))
	}
	if len(lines) == 0 {
		return nil
	}
	return &Section{Title: "Problems", Content: strings.Join(lines, "\n")}
}

func outcomeTable(outcomes []models.AnalyzerOutcome) *Table {
	rows := make([][]string, 0, len(outcomes))
	var elapsed []float64
	for _, out := range outcomes {
		source := "fresh"
		if out.Cached {
			source = "cached"
		}
		target := out.File
		if target == "" {
			target = "(all files)"
		}
		rows = append(rows, []string{
			out.Analyzer,
			target,
			string(out.Status),
			fmt.Sprintf("%d", out.IssueCount),
			source,
		})
		if !out.Cached {
			elapsed = append(elapsed, float64(out.Elapsed))
		}
	}

	table := NewTable("Work Units", []string{"Analyzer", "File", "Status", "Issues", "Source"}, rows, nil)
	if len(elapsed) > 0 {
		sort.Float64s(elapsed)
		table.Footer = []string{
			fmt.Sprintf("units: %d", len(outcomes)),
			"",
			fmt.Sprintf("median %s", time.Duration(stats.Median(elapsed)).Round(time.Microsecond)),
			fmt.Sprintf("mean %s", time.Duration(stats.Mean(elapsed)).Round(time.Microsecond)),
			fmt.Sprintf("p90 %s", time.Duration(stats.Percentile(elapsed, 90)).Round(time.Microsecond)),
		}
	}
	return table
}

// CategoryBreakdown builds a table of issue counts per category, sorted
// by count descending then name.
func CategoryBreakdown(s models.Summary) *Table {
	type entry struct {
		name  string
		count int
	}
	var entries []entry
	for name, count := range s.ByCategory {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.name, fmt.Sprintf("%d", e.count)})
	}
	return NewTable("Issues by Category", []string{"Category", "Count"}, rows, nil)
}

// durationPrecision picks a rounding unit so short runs still show
// something other than zero.
func durationPrecision(res *models.AnalysisResult) time.Duration {
	if res.Duration() < time.Second {
		return time.Millisecond
	}
	return 100 * time.Millisecond
}
