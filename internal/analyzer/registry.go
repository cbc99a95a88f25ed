package analyzer

import (
	"fmt"

	"github.com/augurhq/augur/pkg/config"
	"github.com/augurhq/augur/pkg/models"
)

// Registry holds analyzers in registration order. Registration order is
// load-bearing: it drives work queue construction and deduplication
// tie-breaking, so iteration is always over the ordered slice.
type Registry struct {
	analyzers []Analyzer
	byName    map[string]Analyzer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Analyzer)}
}

// Register adds an analyzer. Duplicate names are rejected.
func (r *Registry) Register(a Analyzer) error {
	name := a.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("analyzer already registered: %s", name)
	}
	r.analyzers = append(r.analyzers, a)
	r.byName[name] = a
	return nil
}

// All returns analyzers in registration order.
func (r *Registry) All() []Analyzer {
	return r.analyzers
}

// Get returns an analyzer by name.
func (r *Registry) Get(name string) (Analyzer, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Applicable returns registered analyzers supporting a language, in
// registration order.
func (r *Registry) Applicable(lang models.Language) []Analyzer {
	var out []Analyzer
	for _, a := range r.analyzers {
		if Supports(a, lang) {
			out = append(out, a)
		}
	}
	return out
}

// Default builds a registry of the built-in analyzers enabled by config,
// in canonical category order.
func Default(cfg *config.Config) *Registry {
	r := NewRegistry()
	for _, cat := range cfg.EnabledCategories() {
		var a Analyzer
		switch cat {
		case models.CategorySecurity:
			a = NewSecurityAnalyzer()
		case models.CategoryPerformance:
			a = NewPerformanceAnalyzer()
		case models.CategoryComplexity:
			a = NewComplexityAnalyzer(WithComplexityThreshold(cfg.Thresholds.CyclomaticComplexity))
		case models.CategoryDuplication:
			a = NewDuplicationAnalyzer(
				WithDuplicationMinLines(cfg.Thresholds.DuplicateMinLines),
				WithDuplicationSimilarity(cfg.Thresholds.DuplicateSimilarity),
			)
		case models.CategoryTesting:
			a = NewTestingAnalyzer(WithMinTestRatio(cfg.Thresholds.MinTestRatio))
		case models.CategoryDocumentation:
			a = NewDocumentationAnalyzer()
		}
		if a != nil {
			// Names are unique per category, so this cannot fail.
			_ = r.Register(a)
		}
	}
	return r
}
