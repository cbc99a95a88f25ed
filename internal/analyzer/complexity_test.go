package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/augurhq/augur/pkg/models"
)

// branchyPython builds a function with n sequential if statements.
func branchyPython(name string, n int) string {
	var b strings.Builder
	b.WriteString("def " + name + "(x):\n")
	for i := 0; i < n; i++ {
		b.WriteString("    if x > " + strings.Repeat("9", i+1) + ":\n")
		b.WriteString("        x -= 1\n")
	}
	b.WriteString("    return x\n")
	return b.String()
}

func TestComplexityFlagsAboveThreshold(t *testing.T) {
	a := NewComplexityAnalyzer(WithComplexityThreshold(3))

	issues, err := a.Analyze(context.Background(), input("hot.py", branchyPython("decide", 5)))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}

	iss := issues[0]
	if iss.Type != "high_complexity" {
		t.Errorf("type = %s, want high_complexity", iss.Type)
	}
	if iss.Location.Function != "decide" {
		t.Errorf("function = %s, want decide", iss.Location.Function)
	}
	if iss.Location.StartLine != 1 {
		t.Errorf("start line = %d, want 1", iss.Location.StartLine)
	}
}

func TestComplexityBelowThresholdClean(t *testing.T) {
	a := NewComplexityAnalyzer(WithComplexityThreshold(10))

	issues, err := a.Analyze(context.Background(), input("calm.py", branchyPython("calm", 2)))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("issues = %d, want 0", len(issues))
	}
}

func TestComplexitySeverityScalesWithOverage(t *testing.T) {
	a := NewComplexityAnalyzer(WithComplexityThreshold(2))

	mild, err := a.Analyze(context.Background(), input("mild.py", branchyPython("mild", 3)))
	if err != nil {
		t.Fatal(err)
	}
	wild, err := a.Analyze(context.Background(), input("wild.py", branchyPython("wild", 12)))
	if err != nil {
		t.Fatal(err)
	}

	if len(mild) != 1 || len(wild) != 1 {
		t.Fatalf("issue counts = %d, %d, want 1, 1", len(mild), len(wild))
	}
	if wild[0].Severity.Weight() <= mild[0].Severity.Weight() {
		t.Errorf("severity should scale: mild=%s wild=%s", mild[0].Severity, wild[0].Severity)
	}
}

func TestComplexityJavaScriptLogicalOperators(t *testing.T) {
	source := `function gate(a, b, c, d) {
  if (a && b || c && d) {
    return 1;
  }
  return 0;
}
`
	a := NewComplexityAnalyzer(WithComplexityThreshold(2))
	issues, err := a.Analyze(context.Background(), input("gate.js", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// 1 base + 1 if + 3 logical operators = 5 > 2
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1 (logical operators should count)", len(issues))
	}
	if issues[0].Category != models.CategoryComplexity {
		t.Errorf("category = %s, want complexity", issues[0].Category)
	}
}
