package aggregator

import (
	"testing"

	"github.com/augurhq/augur/pkg/config"
	"github.com/augurhq/augur/pkg/models"
)

func sources(paths ...string) []models.SourceFile {
	var out []models.SourceFile
	for _, p := range paths {
		out = append(out, models.SourceFile{Path: p, Language: models.LangPython})
	}
	return out
}

func issue(cat models.Category, sev models.Severity, file string, line uint32, title string) models.Issue {
	return models.NewIssue(cat, "finding", sev, title, models.Location{File: file, StartLine: line, EndLine: line})
}

func TestAggregateSortsCanonically(t *testing.T) {
	agg := New(config.DefaultConfig())

	in := []models.Issue{
		issue(models.CategoryPerformance, models.SeverityLow, "b.py", 5, "slow loop in request handler"),
		issue(models.CategorySecurity, models.SeverityCritical, "b.py", 40, "sql built from user input"),
		issue(models.CategoryComplexity, models.SeverityCritical, "a.py", 2, "function has too many branches"),
		issue(models.CategorySecurity, models.SeverityCritical, "a.py", 2, "hardcoded credential in source"),
	}
	res := agg.Aggregate(in, sources("a.py", "b.py"))

	if len(res.Issues) != 4 {
		t.Fatalf("issues = %d, want 4", len(res.Issues))
	}
	// Critical issues first; within a.py line 2, complexity sorts before
	// security by category name.
	if res.Issues[0].Category != models.CategoryComplexity || res.Issues[0].Location.File != "a.py" {
		t.Errorf("first issue = %s %s", res.Issues[0].Category, res.Issues[0].Location.File)
	}
	if res.Issues[1].Category != models.CategorySecurity || res.Issues[1].Location.File != "a.py" {
		t.Errorf("second issue = %s %s", res.Issues[1].Category, res.Issues[1].Location.File)
	}
	if res.Issues[2].Location.File != "b.py" || res.Issues[2].Severity != models.SeverityCritical {
		t.Errorf("third issue = %+v", res.Issues[2].Location)
	}
	if res.Issues[3].Severity != models.SeverityLow {
		t.Errorf("last issue severity = %s, want low", res.Issues[3].Severity)
	}
}

func TestAggregateDedupesNearbyDuplicates(t *testing.T) {
	cfg := config.DefaultConfig()
	agg := New(cfg)

	a := issue(models.CategorySecurity, models.SeverityMedium, "app.py", 10, "sql query built from user input")
	a.Confidence = 0.6
	b := issue(models.CategorySecurity, models.SeverityHigh, "app.py", 11, "sql query built from user input")
	b.Confidence = 0.9

	res := agg.Aggregate([]models.Issue{a, b}, sources("app.py"))
	if len(res.Issues) != 1 {
		t.Fatalf("issues = %d, want 1 after merge", len(res.Issues))
	}
	if res.Issues[0].Confidence != 0.9 {
		t.Errorf("survivor confidence = %f, want the higher one", res.Issues[0].Confidence)
	}
	if res.Issues[0].Severity != models.SeverityHigh {
		t.Errorf("survivor severity = %s, want high", res.Issues[0].Severity)
	}
}

func TestAggregateKeepsDistantOrDissimilarIssues(t *testing.T) {
	agg := New(config.DefaultConfig())

	a := issue(models.CategorySecurity, models.SeverityHigh, "app.py", 10, "sql query built from user input")
	far := issue(models.CategorySecurity, models.SeverityHigh, "app.py", 30, "sql query built from user input")
	different := issue(models.CategorySecurity, models.SeverityHigh, "app.py", 10, "weak hash algorithm md5 selected here")

	res := agg.Aggregate([]models.Issue{a, far, different}, sources("app.py"))
	if len(res.Issues) != 3 {
		t.Errorf("issues = %d, want 3 (no merges)", len(res.Issues))
	}
}

func TestAggregateDedupeTieKeepsEarliest(t *testing.T) {
	agg := New(config.DefaultConfig())

	first := issue(models.CategoryPerformance, models.SeverityMedium, "app.py", 5, "query executed inside loop body")
	second := issue(models.CategoryPerformance, models.SeverityMedium, "app.py", 6, "query executed inside loop body")

	res := agg.Aggregate([]models.Issue{first, second}, sources("app.py"))
	if len(res.Issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(res.Issues))
	}
	if res.Issues[0].Location.StartLine != 5 {
		t.Errorf("survivor line = %d, want 5 (earliest wins ties)", res.Issues[0].Location.StartLine)
	}
}

func TestAggregateFiltersSeverityCategoryConfidence(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Analysis.MinSeverity = "medium"
	cfg.Analysis.Categories = []string{"security"}
	cfg.Analysis.ConfidenceThreshold = 0.5
	agg := New(cfg)

	low := issue(models.CategorySecurity, models.SeverityLow, "a.py", 1, "low severity issue here")
	wrongCat := issue(models.CategoryPerformance, models.SeverityHigh, "a.py", 2, "performance issue in file")
	shaky := issue(models.CategorySecurity, models.SeverityHigh, "a.py", 3, "very uncertain security finding")
	shaky.Confidence = 0.2
	keep := issue(models.CategorySecurity, models.SeverityHigh, "a.py", 4, "solid security finding kept")

	res := agg.Aggregate([]models.Issue{low, wrongCat, shaky, keep}, sources("a.py"))
	if len(res.Issues) != 1 {
		t.Fatalf("issues = %v, want only the qualifying one", res.Issues)
	}
	if res.Issues[0].Location.StartLine != 4 {
		t.Errorf("kept issue line = %d, want 4", res.Issues[0].Location.StartLine)
	}
}

func TestAggregateDropsOrphansWithWarning(t *testing.T) {
	agg := New(config.DefaultConfig())

	orphan := issue(models.CategorySecurity, models.SeverityHigh, "ghost.py", 1, "issue in undiscovered file")
	res := agg.Aggregate([]models.Issue{orphan}, sources("real.py"))

	if len(res.Issues) != 0 {
		t.Errorf("orphan issue survived: %+v", res.Issues)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("warnings = %v, want one orphan warning", res.Warnings)
	}
}

func TestNormalizeSeverity(t *testing.T) {
	cases := map[models.Severity]models.Severity{
		"critical": models.SeverityCritical,
		"warning":  models.SeverityMedium,
		"blocker":  models.SeverityCritical,
		"hint":     models.SeverityInfo,
		"bogus":    models.SeverityMedium,
	}
	for in, want := range cases {
		if got := normalizeSeverity(models.CategorySecurity, in); got != want {
			t.Errorf("normalizeSeverity(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestQualityScoreDeductions(t *testing.T) {
	agg := New(config.DefaultConfig())

	// One critical (10) and two medium (2 each) with default weight 1.0.
	in := []models.Issue{
		issue(models.CategorySecurity, models.SeverityCritical, "a.py", 1, "critical issue number one"),
		issue(models.CategoryComplexity, models.SeverityMedium, "a.py", 20, "medium issue number one"),
		issue(models.CategoryDocumentation, models.SeverityMedium, "b.py", 3, "medium issue number two"),
	}
	res := agg.Aggregate(in, sources("a.py", "b.py"))

	if res.Summary.QualityScore != 86 {
		t.Errorf("score = %f, want 86", res.Summary.QualityScore)
	}
	if res.Summary.TotalIssues != 3 {
		t.Errorf("total = %d, want 3", res.Summary.TotalIssues)
	}
	if res.Summary.FilesWithIssues != 2 {
		t.Errorf("files with issues = %d, want 2", res.Summary.FilesWithIssues)
	}
	if res.Summary.AvgIssuesPerFile != 1.5 {
		t.Errorf("avg issues per file = %f, want 1.5", res.Summary.AvgIssuesPerFile)
	}
}

func TestQualityScoreFloorsAtZero(t *testing.T) {
	agg := New(config.DefaultConfig())

	var in []models.Issue
	for i := uint32(0); i < 20; i++ {
		in = append(in, issue(models.CategorySecurity, models.SeverityCritical, "a.py", i*100, "distinct critical finding"))
	}
	res := agg.Aggregate(in, sources("a.py"))
	if res.Summary.QualityScore != 0 {
		t.Errorf("score = %f, want 0 floor", res.Summary.QualityScore)
	}
}

func TestQualityScoreCategoryWeights(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scoring.CategoryWeights = map[string]float64{"security": 2.0}
	agg := New(cfg)

	in := []models.Issue{
		issue(models.CategorySecurity, models.SeverityHigh, "a.py", 1, "weighted security finding here"),
	}
	res := agg.Aggregate(in, sources("a.py"))
	if res.Summary.QualityScore != 90 {
		t.Errorf("score = %f, want 90 (5 * 2.0 deducted)", res.Summary.QualityScore)
	}
}

func TestEmptyInputScoresPerfect(t *testing.T) {
	agg := New(config.DefaultConfig())
	res := agg.Aggregate(nil, sources("a.py"))

	if res.Summary.QualityScore != 100 {
		t.Errorf("score = %f, want 100", res.Summary.QualityScore)
	}
	if res.Summary.TotalIssues != 0 {
		t.Errorf("total = %d, want 0", res.Summary.TotalIssues)
	}
}
