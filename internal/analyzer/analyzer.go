// Package analyzer defines the analyzer contract and the built-in category
// analyzers.
package analyzer

import (
	"context"
	"sync"

	"github.com/augurhq/augur/pkg/models"
	"github.com/augurhq/augur/pkg/parser"
)

// Input is one file handed to an analyzer: content plus a lazily parsed
// AST shared by every analyzer that asks for it.
type Input struct {
	File    models.SourceFile
	Content []byte

	parseOnce sync.Once
	parsed    *parser.ParseResult
	parseErr  error
}

// NewInput builds an analyzer input from a discovered file and its content.
func NewInput(file models.SourceFile, content []byte) *Input {
	return &Input{File: file, Content: content}
}

// Parsed returns the tree-sitter parse of the input, parsing on first use.
func (in *Input) Parsed() (*parser.ParseResult, error) {
	in.parseOnce.Do(func() {
		p := parser.New()
		defer p.Close()
		in.parsed, in.parseErr = p.Parse(in.Content, in.File.Path)
	})
	return in.parsed, in.parseErr
}

// Lines splits the input content into lines. The split is recomputed per
// call; callers that loop should hold the result.
func (in *Input) Lines() []string {
	return splitLines(in.Content)
}

// Analyzer inspects a single file and reports issues. Implementations must
// be safe for concurrent Analyze calls and must never write shared state
// observable by the caller.
type Analyzer interface {
	// Name is a stable identifier used for cache keys and outcomes.
	Name() string
	// Category is the single category all of this analyzer's issues carry.
	Category() models.Category
	// Languages lists supported languages. Nil means any language.
	Languages() []models.Language
	Analyze(ctx context.Context, in *Input) ([]models.Issue, error)
}

// BatchAnalyzer is implemented by analyzers whose findings depend on
// relationships across files. They receive all applicable files as one
// work unit and their results are not cached per file.
type BatchAnalyzer interface {
	Analyzer
	AnalyzeBatch(ctx context.Context, inputs []*Input) ([]models.Issue, error)
}

// splitLines splits bytes into lines without the trailing newline.
func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			line := string(data[start:i])
			if n := len(line); n > 0 && line[n-1] == '\r' {
				line = line[:n-1]
			}
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

// Supports checks an analyzer's declared languages against a file's.
func Supports(a Analyzer, lang models.Language) bool {
	langs := a.Languages()
	if langs == nil {
		return true
	}
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}
