package analyzer

import (
	"regexp"
	"strings"

	"github.com/augurhq/augur/pkg/models"
)

// linePattern is one regex rule applied per source line.
type linePattern struct {
	regex      *regexp.Regexp
	issueType  string
	severity   models.Severity
	confidence float64
	title      string
	suggestion string
}

// scanLinePatterns applies a pattern table line by line, emitting one issue
// per matching pattern per line.
func scanLinePatterns(in *Input, category models.Category, patterns []linePattern) []models.Issue {
	var issues []models.Issue
	for lineIdx, line := range in.Lines() {
		lineNum := uint32(lineIdx + 1)
		for _, p := range patterns {
			if !p.regex.MatchString(line) {
				continue
			}
			iss := models.NewIssue(category, p.issueType, p.severity, p.title, models.Location{
				File:      in.File.Path,
				StartLine: lineNum,
				EndLine:   lineNum,
			})
			iss.Confidence = p.confidence
			iss.Snippet = truncateSnippet(line)
			if p.suggestion != "" {
				iss.Suggestions = []string{p.suggestion}
			}
			issues = append(issues, iss)
		}
	}
	return issues
}

// truncateSnippet trims a line for inclusion in an issue.
func truncateSnippet(line string) string {
	const maxLen = 160
	line = strings.TrimSpace(line)
	if len(line) > maxLen {
		return line[:maxLen] + "..."
	}
	return line
}
