package analyzer

import (
	"context"
	"testing"
)

func TestTestingReportsUntestedFiles(t *testing.T) {
	a := NewTestingAnalyzer()

	issues, err := a.AnalyzeBatch(context.Background(), []*Input{
		input("billing.py", "def charge(): pass\n"),
		input("shipping.py", "def ship(): pass\n"),
		input("test_billing.py", "def test_charge(): pass\n"),
	})
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}

	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1 (only shipping.py is untested)", len(issues))
	}
	if issues[0].Location.File != "shipping.py" {
		t.Errorf("file = %s, want shipping.py", issues[0].Location.File)
	}
	if issues[0].Type != "untested_file" {
		t.Errorf("type = %s, want untested_file", issues[0].Type)
	}
}

func TestTestingJSSpecNaming(t *testing.T) {
	a := NewTestingAnalyzer()

	issues, err := a.AnalyzeBatch(context.Background(), []*Input{
		input("cart.js", "function add() {}\n"),
		input("cart.spec.js", "describe('cart', () => {});\n"),
	})
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("cart.js has cart.spec.js, want no issues: %+v", issues)
	}
}

func TestTestingSeverityRisesBelowRatio(t *testing.T) {
	a := NewTestingAnalyzer(WithMinTestRatio(0.9))

	issues, err := a.AnalyzeBatch(context.Background(), []*Input{
		input("one.py", "x = 1\n"),
		input("two.py", "x = 2\n"),
		input("three.py", "x = 3\n"),
	})
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("issues = %d, want 3", len(issues))
	}
	for _, iss := range issues {
		if iss.Severity != "medium" {
			t.Errorf("severity = %s, want medium when ratio below floor", iss.Severity)
		}
	}
}

func TestTestingAllTestsNoIssues(t *testing.T) {
	a := NewTestingAnalyzer()

	issues, err := a.AnalyzeBatch(context.Background(), []*Input{
		input("test_alpha.py", "def test_a(): pass\n"),
		input("tests/test_beta.py", "def test_b(): pass\n"),
	})
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("test-only batch produced issues: %+v", issues)
	}
}

func TestTestStem(t *testing.T) {
	cases := map[string]string{
		"test_billing.py":  "billing",
		"billing_test.py":  "billing",
		"cart.spec.ts":     "cart",
		"cart.test.jsx":    "cart",
		"tests/test_a.py":  "a",
		"__tests__/b.test.js": "b",
	}
	for path, want := range cases {
		if got := testStem(path); got != want {
			t.Errorf("testStem(%s) = %s, want %s", path, got, want)
		}
	}
}
