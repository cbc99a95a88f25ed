package analyzer

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/augurhq/augur/pkg/models"
	"github.com/augurhq/augur/pkg/parser"
)

// ComplexityAnalyzer computes cyclomatic complexity per function and flags
// functions above the configured threshold.
type ComplexityAnalyzer struct {
	threshold int
}

// ComplexityOption configures a ComplexityAnalyzer.
type ComplexityOption func(*ComplexityAnalyzer)

// WithComplexityThreshold sets the cyclomatic complexity above which a
// function is reported.
func WithComplexityThreshold(threshold int) ComplexityOption {
	return func(a *ComplexityAnalyzer) {
		if threshold > 0 {
			a.threshold = threshold
		}
	}
}

// NewComplexityAnalyzer creates a complexity analyzer.
func NewComplexityAnalyzer(opts ...ComplexityOption) *ComplexityAnalyzer {
	a := &ComplexityAnalyzer{threshold: 10}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *ComplexityAnalyzer) Name() string              { return "complexity" }
func (a *ComplexityAnalyzer) Category() models.Category { return models.CategoryComplexity }

func (a *ComplexityAnalyzer) Languages() []models.Language {
	return []models.Language{models.LangPython, models.LangJavaScript, models.LangTypeScript}
}

// Analyze parses the file and reports one issue per function whose
// cyclomatic complexity exceeds the threshold. Severity scales with how
// far past the threshold the function is.
func (a *ComplexityAnalyzer) Analyze(_ context.Context, in *Input) ([]models.Issue, error) {
	parsed, err := in.Parsed()
	if err != nil {
		return nil, err
	}

	var issues []models.Issue
	for _, fn := range parser.GetFunctions(parsed) {
		complexity := 1 + countDecisionPoints(fn.Node, parsed.Source, parsed.Language)
		if int(complexity) <= a.threshold {
			continue
		}

		name := fn.Name
		if name == "" {
			name = "(anonymous)"
		}
		iss := models.NewIssue(models.CategoryComplexity, "high_complexity",
			a.severityFor(int(complexity)),
			fmt.Sprintf("Function %s has cyclomatic complexity %d (threshold %d)", name, complexity, a.threshold),
			models.Location{
				File:      in.File.Path,
				StartLine: fn.StartLine,
				EndLine:   fn.EndLine,
				Function:  fn.Name,
			})
		iss.Confidence = 0.95
		iss.Description = fmt.Sprintf("%d decision points across %d lines", complexity-1, fn.EndLine-fn.StartLine+1)
		iss.Suggestions = []string{
			"Extract branches into smaller functions",
			"Replace nested conditionals with guard clauses",
		}
		issues = append(issues, iss)
	}
	return issues, nil
}

// severityFor maps complexity overage to a severity level.
func (a *ComplexityAnalyzer) severityFor(complexity int) models.Severity {
	switch {
	case complexity > a.threshold*3:
		return models.SeverityHigh
	case complexity > a.threshold*2:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// countDecisionPoints counts branching constructs for cyclomatic complexity.
func countDecisionPoints(node *sitter.Node, source []byte, lang models.Language) uint32 {
	var count uint32
	decisionTypes := makeSet(decisionNodeTypes(lang))

	parser.WalkTyped(node, source, func(n *sitter.Node, nodeType string, src []byte) bool {
		if decisionTypes[nodeType] {
			count++
		}
		// Logical operators add paths too.
		if nodeType == "binary_expression" || nodeType == "boolean_operator" {
			op := binaryOperator(n, src)
			if op == "&&" || op == "||" || op == "and" || op == "or" || op == "??" {
				count++
			}
		}
		return true
	})

	return count
}

// makeSet converts a slice to a map for O(1) lookups.
func makeSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

// decisionNodeTypes returns AST node types that represent decision points.
func decisionNodeTypes(lang models.Language) []string {
	common := []string{
		"if_statement",
		"while_statement",
		"for_statement",
		"conditional_expression",
		"ternary_expression",
		"catch_clause",
	}
	switch lang {
	case models.LangPython:
		return append(common, "elif_clause", "except_clause", "for_in_clause", "if_clause", "match_statement")
	case models.LangTypeScript, models.LangJavaScript:
		return append(common, "for_in_statement", "do_statement", "switch_case", "optional_chain")
	default:
		return common
	}
}

// binaryOperator extracts the operator token from a binary expression.
func binaryOperator(node *sitter.Node, source []byte) string {
	for i := range int(node.ChildCount()) {
		child := node.Child(i)
		switch child.Type() {
		case "&&", "||", "??", "and", "or":
			return child.Type()
		}
	}
	return ""
}
