package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/augurhq/augur/pkg/models"
	"github.com/augurhq/augur/pkg/parser"
)

// DocumentationAnalyzer reports missing docstrings and doc comments plus
// lingering work markers (TODO, FIXME, HACK) in comments.
type DocumentationAnalyzer struct {
	markers []markerPattern
}

type markerPattern struct {
	regex    *regexp.Regexp
	marker   string
	severity models.Severity
}

// NewDocumentationAnalyzer creates a documentation analyzer.
func NewDocumentationAnalyzer() *DocumentationAnalyzer {
	return &DocumentationAnalyzer{
		markers: []markerPattern{
			{regexp.MustCompile(`(?i)\bFIXME\b[:\s]*(.*)`), "FIXME", models.SeverityMedium},
			{regexp.MustCompile(`(?i)\bHACK\b[:\s]*(.*)`), "HACK", models.SeverityLow},
			{regexp.MustCompile(`(?i)\bXXX\b[:\s]*(.*)`), "XXX", models.SeverityLow},
			{regexp.MustCompile(`(?i)\bTODO\b[:\s]*(.*)`), "TODO", models.SeverityLow},
		},
	}
}

func (a *DocumentationAnalyzer) Name() string              { return "documentation" }
func (a *DocumentationAnalyzer) Category() models.Category { return models.CategoryDocumentation }

func (a *DocumentationAnalyzer) Languages() []models.Language {
	return []models.Language{models.LangPython, models.LangJavaScript, models.LangTypeScript}
}

// Analyze checks functions and classes for documentation and scans
// comments for work markers.
func (a *DocumentationAnalyzer) Analyze(_ context.Context, in *Input) ([]models.Issue, error) {
	var issues []models.Issue
	issues = append(issues, a.scanMarkers(in)...)

	parsed, err := in.Parsed()
	if err != nil {
		// Marker findings are line-based and survive a failed parse.
		return issues, nil
	}

	isPython := in.File.Language == models.LangPython
	lines := in.Lines()

	for _, fn := range parser.GetFunctions(parsed) {
		if fn.Name == "" || strings.HasPrefix(fn.Name, "_") {
			continue
		}
		if isDocumented(isPython, fn.Body, parsed.Source, fn.StartLine, lines) {
			continue
		}
		iss := models.NewIssue(models.CategoryDocumentation, "missing_docstring", models.SeverityInfo,
			fmt.Sprintf("Function %s has no documentation", fn.Name),
			models.Location{File: in.File.Path, StartLine: fn.StartLine, EndLine: fn.StartLine, Function: fn.Name})
		iss.Confidence = 0.9
		iss.Suggestions = []string{fmt.Sprintf("Document what %s does, its parameters, and its return value", fn.Name)}
		issues = append(issues, iss)
	}

	for _, cls := range parser.GetClasses(parsed) {
		if cls.Name == "" || strings.HasPrefix(cls.Name, "_") {
			continue
		}
		var body *sitter.Node
		if cls.Node != nil {
			body = cls.Node.ChildByFieldName("body")
		}
		if isDocumented(isPython, body, parsed.Source, cls.StartLine, lines) {
			continue
		}
		iss := models.NewIssue(models.CategoryDocumentation, "missing_docstring", models.SeverityInfo,
			fmt.Sprintf("Class %s has no documentation", cls.Name),
			models.Location{File: in.File.Path, StartLine: cls.StartLine, EndLine: cls.StartLine, Class: cls.Name})
		iss.Confidence = 0.9
		iss.Suggestions = []string{fmt.Sprintf("Document the responsibility of %s", cls.Name)}
		issues = append(issues, iss)
	}

	return issues, nil
}

// isDocumented reports whether a declaration carries documentation: a
// docstring for Python, or a comment directly above the declaration for
// script languages.
func isDocumented(isPython bool, body *sitter.Node, source []byte, startLine uint32, lines []string) bool {
	if isPython {
		return parser.HasDocstring(body, source)
	}
	// Look at the nearest non-empty line above the declaration.
	for i := int(startLine) - 2; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		return strings.HasPrefix(trimmed, "//") ||
			strings.HasPrefix(trimmed, "/*") ||
			strings.HasPrefix(trimmed, "*")
	}
	return false
}

// scanMarkers finds work markers in comment lines.
func (a *DocumentationAnalyzer) scanMarkers(in *Input) []models.Issue {
	commentPrefix := "//"
	if in.File.Language == models.LangPython {
		commentPrefix = "#"
	}

	var issues []models.Issue
	for lineIdx, line := range in.Lines() {
		trimmed := strings.TrimSpace(line)
		isComment := strings.HasPrefix(trimmed, commentPrefix) ||
			strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*")
		if !isComment {
			continue
		}

		for _, m := range a.markers {
			match := m.regex.FindStringSubmatch(trimmed)
			if match == nil {
				continue
			}
			title := fmt.Sprintf("%s marker in comment", m.marker)
			iss := models.NewIssue(models.CategoryDocumentation, "work_marker", m.severity, title,
				models.Location{File: in.File.Path, StartLine: uint32(lineIdx + 1), EndLine: uint32(lineIdx + 1)})
			iss.Confidence = 0.95
			if desc := strings.TrimSpace(match[1]); desc != "" {
				iss.Description = desc
			}
			iss.Snippet = truncateSnippet(line)
			issues = append(issues, iss)
			break // one marker per line
		}
	}
	return issues
}
