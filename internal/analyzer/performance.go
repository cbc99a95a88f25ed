package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/augurhq/augur/pkg/models"
)

// PerformanceAnalyzer detects common performance anti-patterns: inefficient
// loop constructs, string building in loops, and I/O or database calls
// issued once per iteration.
type PerformanceAnalyzer struct {
	pythonPatterns []linePattern
	scriptPatterns []linePattern
}

// loopBodyPatterns are applied only to lines inside a loop body.
var loopBodyPatterns = []linePattern{
	{regexp.MustCompile(`\.(query|execute|find|save|update|delete)\s*\(`), "query_in_loop", models.SeverityMedium, 0.6,
		"Database call inside a loop",
		"Batch the queries or move them out of the loop"},
	{regexp.MustCompile(`(?i)(SELECT\s+.*FROM|INSERT\s+INTO|UPDATE\s+.*SET|DELETE\s+FROM)`), "query_in_loop", models.SeverityMedium, 0.65,
		"SQL statement inside a loop",
		"Batch the queries or move them out of the loop"},
	{regexp.MustCompile(`cursor\.(execute|fetchone|fetchall)`), "query_in_loop", models.SeverityMedium, 0.7,
		"Cursor operation inside a loop",
		"Fetch once outside the loop or use executemany"},
	{regexp.MustCompile(`\bopen\s*\(`), "io_in_loop", models.SeverityMedium, 0.55,
		"File opened inside a loop",
		"Open the file once outside the loop"},
	{regexp.MustCompile(`requests\.(get|post|put|delete)\s*\(`), "io_in_loop", models.SeverityMedium, 0.7,
		"HTTP request inside a loop",
		"Batch requests or parallelize outside the loop"},
	{regexp.MustCompile(`\bfetch\s*\(`), "io_in_loop", models.SeverityMedium, 0.5,
		"Network fetch inside a loop",
		"Batch requests or use Promise.all outside the loop"},
	{regexp.MustCompile(`\w+\s*\+=\s*["'` + "`" + `]`), "string_concat_in_loop", models.SeverityLow, 0.6,
		"String concatenation inside a loop",
		"Collect parts in a list and join once"},
	{regexp.MustCompile(`\w+\s*=\s*\w+\s*\+\s*["'` + "`" + `]`), "string_concat_in_loop", models.SeverityLow, 0.5,
		"String rebuild inside a loop",
		"Collect parts in a list and join once"},
}

// NewPerformanceAnalyzer creates a performance analyzer with default rules.
func NewPerformanceAnalyzer() *PerformanceAnalyzer {
	return &PerformanceAnalyzer{
		pythonPatterns: []linePattern{
			{regexp.MustCompile(`for\s+\w+\s+in\s+range\s*\(\s*len\s*\(`), "inefficient_loop", models.SeverityLow, 0.8,
				"Index loop over range(len(...))",
				"Iterate directly or use enumerate"},
			{regexp.MustCompile(`\bin\s+\[.*,.*\]\s*:`), "inefficient_membership", models.SeverityInfo, 0.5,
				"Membership test against a list literal",
				"Use a set literal for membership tests"},
		},
		scriptPatterns: []linePattern{
			{regexp.MustCompile(`for\s*\(\s*(var|let)\s+\w+\s*=\s*0\s*;\s*\w+\s*<\s*\w+\.length`), "inefficient_loop", models.SeverityInfo, 0.5,
				"Length recomputed every iteration",
				"Cache the length or use for...of"},
			{regexp.MustCompile(`\.innerHTML\s*\+=`), "dom_thrash", models.SeverityMedium, 0.7,
				"Incremental innerHTML rewrites re-parse the subtree",
				"Build the markup once and assign it a single time"},
			{regexp.MustCompile(`document\.(getElementById|querySelector)\s*\(.*\)\s*.*for\s*\(`), "dom_query_in_loop", models.SeverityLow, 0.5,
				"DOM query combined with a loop",
				"Hoist the DOM lookup out of the loop"},
		},
	}
}

func (a *PerformanceAnalyzer) Name() string              { return "performance" }
func (a *PerformanceAnalyzer) Category() models.Category { return models.CategoryPerformance }

func (a *PerformanceAnalyzer) Languages() []models.Language {
	return []models.Language{models.LangPython, models.LangJavaScript, models.LangTypeScript}
}

// Analyze runs the per-line rules and the loop-body rules.
func (a *PerformanceAnalyzer) Analyze(_ context.Context, in *Input) ([]models.Issue, error) {
	patterns := a.scriptPatterns
	if in.File.Language == models.LangPython {
		patterns = a.pythonPatterns
	}

	issues := scanLinePatterns(in, models.CategoryPerformance, patterns)
	issues = append(issues, a.scanLoopBodies(in)...)
	return issues, nil
}

var loopHeaderRe = regexp.MustCompile(`^\s*(for|while)\b`)

// scanLoopBodies finds loop bodies and applies the in-loop rules to them.
// Python bodies are tracked by indentation, script bodies by brace depth.
// A loop header that opens inside another loop is reported as nesting.
func (a *PerformanceAnalyzer) scanLoopBodies(in *Input) []models.Issue {
	lines := in.Lines()
	isPython := in.File.Language == models.LangPython

	var issues []models.Issue
	emit := func(lineIdx int, line string, p linePattern) {
		iss := models.NewIssue(models.CategoryPerformance, p.issueType, p.severity, p.title, models.Location{
			File:      in.File.Path,
			StartLine: uint32(lineIdx + 1),
			EndLine:   uint32(lineIdx + 1),
		})
		iss.Confidence = p.confidence
		iss.Snippet = truncateSnippet(line)
		iss.Suggestions = []string{p.suggestion}
		issues = append(issues, iss)
	}
	emitNested := func(lineIdx int, line string, depth int) {
		sev := models.SeverityMedium
		title := "Nested loops iterate a quadratic number of times"
		if depth > 2 {
			sev = models.SeverityHigh
			title = fmt.Sprintf("Loops nested %d levels deep", depth)
		}
		iss := models.NewIssue(models.CategoryPerformance, "nested_loop", sev, title, models.Location{
			File:      in.File.Path,
			StartLine: uint32(lineIdx + 1),
			EndLine:   uint32(lineIdx + 1),
		})
		iss.Confidence = 0.75
		iss.Snippet = truncateSnippet(line)
		iss.Suggestions = []string{"Restructure into a single pass or precompute a lookup"}
		issues = append(issues, iss)
	}

	if isPython {
		var loopStack []int // indents of enclosing loop headers
		for i, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			indent := len(line) - len(strings.TrimLeft(line, " \t"))

			for len(loopStack) > 0 && indent <= loopStack[len(loopStack)-1] {
				loopStack = loopStack[:len(loopStack)-1]
			}
			if len(loopStack) > 0 {
				for _, p := range loopBodyPatterns {
					if p.regex.MatchString(line) {
						emit(i, line, p)
					}
				}
			}
			if loopHeaderRe.MatchString(line) && strings.Contains(trimmed, ":") {
				if len(loopStack) > 0 {
					emitNested(i, line, len(loopStack)+1)
				}
				loopStack = append(loopStack, indent)
			}
		}
		return issues
	}

	depth := 0
	var loopStack []int // brace depths at enclosing loop headers
	for i, line := range lines {
		if len(loopStack) > 0 && depth > loopStack[len(loopStack)-1] {
			for _, p := range loopBodyPatterns {
				if p.regex.MatchString(line) {
					emit(i, line, p)
				}
			}
		}

		if loopHeaderRe.MatchString(line) {
			if len(loopStack) > 0 {
				emitNested(i, line, len(loopStack)+1)
			}
			loopStack = append(loopStack, depth)
		}
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		for len(loopStack) > 0 && depth <= loopStack[len(loopStack)-1] {
			loopStack = loopStack[:len(loopStack)-1]
		}
	}
	return issues
}
