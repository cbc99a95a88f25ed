package analyzer

import (
	"context"
	"testing"

	"github.com/augurhq/augur/pkg/models"
)

func TestDocumentationMissingDocstring(t *testing.T) {
	source := `def documented(x):
    """Returns x."""
    return x

def undocumented(x):
    return x + 1
`
	issues, err := NewDocumentationAnalyzer().Analyze(context.Background(), input("lib.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	var missing []models.Issue
	for _, iss := range issues {
		if iss.Type == "missing_docstring" {
			missing = append(missing, iss)
		}
	}
	if len(missing) != 1 {
		t.Fatalf("missing_docstring issues = %d, want 1", len(missing))
	}
	if missing[0].Location.Function != "undocumented" {
		t.Errorf("function = %s, want undocumented", missing[0].Location.Function)
	}
}

func TestDocumentationPrivateFunctionsSkipped(t *testing.T) {
	source := `def _helper(x):
    return x
`
	issues, err := NewDocumentationAnalyzer().Analyze(context.Background(), input("lib.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if typesOf(issues)["missing_docstring"] != 0 {
		t.Errorf("underscore-prefixed functions should be skipped: %v", typesOf(issues))
	}
}

func TestDocumentationJSDocComment(t *testing.T) {
	source := `/** Adds two numbers. */
function add(a, b) {
  return a + b;
}

function sub(a, b) {
  return a - b;
}
`
	issues, err := NewDocumentationAnalyzer().Analyze(context.Background(), input("math.js", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	for _, iss := range issues {
		if iss.Type == "missing_docstring" && iss.Location.Function == "add" {
			t.Error("add has a doc comment and should not be flagged")
		}
	}
	found := false
	for _, iss := range issues {
		if iss.Type == "missing_docstring" && iss.Location.Function == "sub" {
			found = true
		}
	}
	if !found {
		t.Error("sub has no doc comment and should be flagged")
	}
}

func TestDocumentationClassWithoutDocstring(t *testing.T) {
	source := `class Widget:
    def __init__(self):
        self.x = 1
`
	issues, err := NewDocumentationAnalyzer().Analyze(context.Background(), input("widget.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	found := false
	for _, iss := range issues {
		if iss.Type == "missing_docstring" && iss.Location.Class == "Widget" {
			found = true
		}
	}
	if !found {
		t.Error("expected missing_docstring for class Widget")
	}
}

func TestDocumentationWorkMarkers(t *testing.T) {
	source := `# TODO: replace with a streaming parse
def load(path):
    # FIXME handle encoding errors
    return open(path).read()
`
	issues, err := NewDocumentationAnalyzer().Analyze(context.Background(), input("load.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	markers := map[string]models.Severity{}
	for _, iss := range issues {
		if iss.Type == "work_marker" {
			markers[iss.Title] = iss.Severity
		}
	}
	if len(markers) != 2 {
		t.Fatalf("work markers = %v, want TODO and FIXME", markers)
	}
	if markers["FIXME marker in comment"] != models.SeverityMedium {
		t.Errorf("FIXME severity = %s, want medium", markers["FIXME marker in comment"])
	}
	if markers["TODO marker in comment"] != models.SeverityLow {
		t.Errorf("TODO severity = %s, want low", markers["TODO marker in comment"])
	}
}

func TestDocumentationMarkerInCodeIgnored(t *testing.T) {
	source := `todo_list = ["TODO: not a comment"]
`
	issues, err := NewDocumentationAnalyzer().Analyze(context.Background(), input("list.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if typesOf(issues)["work_marker"] != 0 {
		t.Errorf("markers outside comments should be ignored: %v", typesOf(issues))
	}
}
