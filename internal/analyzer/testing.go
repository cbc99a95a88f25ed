package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/augurhq/augur/pkg/models"
)

// TestingAnalyzer maps test files to the sources they cover and reports
// source files with no matching tests. Coverage here is structural
// (file-to-file pairing), not executed-line coverage.
type TestingAnalyzer struct {
	minTestRatio float64
	testPatterns []*regexp.Regexp
}

// TestingOption configures a TestingAnalyzer.
type TestingOption func(*TestingAnalyzer)

// WithMinTestRatio sets the test-to-source ratio below which untested
// files are reported at elevated severity.
func WithMinTestRatio(ratio float64) TestingOption {
	return func(a *TestingAnalyzer) {
		if ratio > 0 {
			a.minTestRatio = ratio
		}
	}
}

// NewTestingAnalyzer creates a testing analyzer.
func NewTestingAnalyzer(opts ...TestingOption) *TestingAnalyzer {
	a := &TestingAnalyzer{
		minTestRatio: 0.5,
		testPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(^|/)test_[^/]*\.py$`),
			regexp.MustCompile(`_test\.py$`),
			regexp.MustCompile(`\.test\.[jt]sx?$`),
			regexp.MustCompile(`\.spec\.[jt]sx?$`),
			regexp.MustCompile(`(^|/)__tests__/`),
			regexp.MustCompile(`(^|/)tests?/`),
			regexp.MustCompile(`(^|/)spec/`),
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *TestingAnalyzer) Name() string                 { return "testing" }
func (a *TestingAnalyzer) Category() models.Category    { return models.CategoryTesting }
func (a *TestingAnalyzer) Languages() []models.Language { return nil }

// Analyze handles the single-file case. One file has no cross-file test
// pairing, so it is judged alone.
func (a *TestingAnalyzer) Analyze(ctx context.Context, in *Input) ([]models.Issue, error) {
	return a.AnalyzeBatch(ctx, []*Input{in})
}

// AnalyzeBatch splits inputs into test and source files, then reports
// source files without a plausibly matching test.
func (a *TestingAnalyzer) AnalyzeBatch(ctx context.Context, inputs []*Input) ([]models.Issue, error) {
	var sources []*Input
	testStems := make(map[string]bool)
	testCount := 0

	for _, in := range inputs {
		if a.isTestFile(in.File.Path) {
			testCount++
			testStems[testStem(in.File.Path)] = true
		} else {
			sources = append(sources, in)
		}
	}
	if len(sources) == 0 {
		return nil, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ratio := float64(testCount) / float64(len(sources))
	severity := models.SeverityLow
	if ratio < a.minTestRatio {
		severity = models.SeverityMedium
	}

	var issues []models.Issue
	for _, in := range sources {
		stem := sourceStem(in.File.Path)
		if testStems[stem] {
			continue
		}

		iss := models.NewIssue(models.CategoryTesting, "untested_file", severity,
			fmt.Sprintf("No test file found for %s", in.File.Path),
			models.Location{File: in.File.Path, StartLine: 1, EndLine: 1})
		iss.Confidence = 0.7
		iss.Description = fmt.Sprintf("Project test-to-source ratio is %.2f", ratio)
		iss.Suggestions = []string{fmt.Sprintf("Add a test file covering %s", filepath.Base(in.File.Path))}
		issues = append(issues, iss)
	}
	return issues, nil
}

// isTestFile classifies a path as a test file.
func (a *TestingAnalyzer) isTestFile(path string) bool {
	normalized := filepath.ToSlash(path)
	for _, p := range a.testPatterns {
		if p.MatchString(normalized) {
			return true
		}
	}
	return false
}

// sourceStem reduces a source path to a comparable base name.
func sourceStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// testStem reduces a test path to the source stem it plausibly covers.
func testStem(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSuffix(base, ".test")
	base = strings.TrimSuffix(base, ".spec")
	base = strings.TrimPrefix(base, "test_")
	base = strings.TrimSuffix(base, "_test")
	return base
}
