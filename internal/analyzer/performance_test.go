package analyzer

import (
	"context"
	"testing"

	"github.com/augurhq/augur/pkg/models"
)

func TestPerformancePythonQueryInLoop(t *testing.T) {
	source := `def load(db, ids):
    results = []
    for user_id in ids:
        row = db.query("SELECT * FROM users WHERE id = ?", user_id)
        results.append(row)
    return results
`
	issues, err := NewPerformanceAnalyzer().Analyze(context.Background(), input("load.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if typesOf(issues)["query_in_loop"] == 0 {
		t.Errorf("expected query_in_loop, got %v", typesOf(issues))
	}
}

func TestPerformancePythonRangeLen(t *testing.T) {
	source := `def walk(items):
    for i in range(len(items)):
        print(items[i])
`
	issues, err := NewPerformanceAnalyzer().Analyze(context.Background(), input("walk.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if typesOf(issues)["inefficient_loop"] == 0 {
		t.Errorf("expected inefficient_loop, got %v", typesOf(issues))
	}
}

func TestPerformanceStringConcatInLoopJS(t *testing.T) {
	source := `function join(parts) {
  var out = "";
  for (var i = 0; i < parts.length; i++) {
    out += "," + parts[i];
  }
  return out;
}
`
	issues, err := NewPerformanceAnalyzer().Analyze(context.Background(), input("join.js", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if typesOf(issues)["string_concat_in_loop"] == 0 {
		t.Errorf("expected string_concat_in_loop, got %v", typesOf(issues))
	}
}

func TestPerformanceNestedLoopsPython(t *testing.T) {
	source := `def pairs(items):
    out = []
    for a in items:
        for b in items:
            out.append((a, b))
    return out
`
	issues, err := NewPerformanceAnalyzer().Analyze(context.Background(), input("pairs.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if typesOf(issues)["nested_loop"] != 1 {
		t.Fatalf("expected one nested_loop, got %v", typesOf(issues))
	}
	for _, iss := range issues {
		if iss.Type == "nested_loop" && iss.Severity != models.SeverityMedium {
			t.Errorf("doubly nested loop severity = %s, want medium", iss.Severity)
		}
	}
}

func TestPerformanceTriplyNestedLoopsPython(t *testing.T) {
	source := `def triples(items):
    out = []
    for a in items:
        for b in items:
            for c in items:
                out.append((a, b, c))
    return out
`
	issues, err := NewPerformanceAnalyzer().Analyze(context.Background(), input("triples.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if typesOf(issues)["nested_loop"] != 2 {
		t.Fatalf("expected two nested_loop issues, got %v", typesOf(issues))
	}
	var high bool
	for _, iss := range issues {
		if iss.Type == "nested_loop" && iss.Severity == models.SeverityHigh {
			high = true
		}
	}
	if !high {
		t.Error("third loop level should be reported high severity")
	}
}

func TestPerformanceNestedLoopsJS(t *testing.T) {
	source := `function pairs(items) {
  var out = [];
  for (var i = 0; i < items.length; i++) {
    for (var j = 0; j < items.length; j++) {
      out.push([items[i], items[j]]);
    }
  }
  return out;
}
`
	issues, err := NewPerformanceAnalyzer().Analyze(context.Background(), input("pairs.js", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if typesOf(issues)["nested_loop"] != 1 {
		t.Errorf("expected one nested_loop, got %v", typesOf(issues))
	}
}

func TestPerformanceSequentialLoopsNotNested(t *testing.T) {
	source := `def twice(items):
    for a in items:
        print(a)
    for b in items:
        print(b)
`
	issues, err := NewPerformanceAnalyzer().Analyze(context.Background(), input("twice.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if typesOf(issues)["nested_loop"] != 0 {
		t.Errorf("sibling loops flagged as nested: %v", typesOf(issues))
	}
}

func TestPerformanceQueryOutsideLoopNotFlagged(t *testing.T) {
	source := `def load(db):
    rows = db.query("SELECT * FROM users")
    return rows
`
	issues, err := NewPerformanceAnalyzer().Analyze(context.Background(), input("load.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if typesOf(issues)["query_in_loop"] != 0 {
		t.Errorf("query outside loop should not be flagged: %v", typesOf(issues))
	}
}

func TestPerformancePythonLoopEndsAtDedent(t *testing.T) {
	source := `def work(db, ids):
    for i in ids:
        total = i
    db.query("SELECT 1")
`
	issues, err := NewPerformanceAnalyzer().Analyze(context.Background(), input("work.py", source))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if typesOf(issues)["query_in_loop"] != 0 {
		t.Errorf("query after dedent should not be flagged: %v", typesOf(issues))
	}
}
