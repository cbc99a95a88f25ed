package models

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// Category identifies the quality concern an issue belongs to.
type Category string

const (
	CategorySecurity      Category = "security"
	CategoryPerformance   Category = "performance"
	CategoryComplexity    Category = "complexity"
	CategoryDuplication   Category = "duplication"
	CategoryTesting       Category = "testing"
	CategoryDocumentation Category = "documentation"
)

// AllCategories returns every known category in canonical order.
func AllCategories() []Category {
	return []Category{
		CategorySecurity,
		CategoryPerformance,
		CategoryComplexity,
		CategoryDuplication,
		CategoryTesting,
		CategoryDocumentation,
	}
}

// ParseCategory converts a string to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllCategories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// Severity represents how urgent an issue is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight returns a numeric weight for ordering severities.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ParseSeverity converts a string to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityInfo:
		return SeverityInfo, nil
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	case SeverityCritical:
		return SeverityCritical, nil
	}
	return "", fmt.Errorf("unknown severity: %q", s)
}

// Location pinpoints where in a file an issue was found.
type Location struct {
	File      string `json:"file"`
	StartLine uint32 `json:"start_line"`
	EndLine   uint32 `json:"end_line"`
	Column    uint32 `json:"column,omitempty"`
	Function  string `json:"function,omitempty"`
	Class     string `json:"class,omitempty"`
}

// Issue is a single finding produced by an analyzer.
type Issue struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Confidence  float64  `json:"confidence"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Location    Location `json:"location"`
	Snippet     string   `json:"snippet,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	// Explanation is filled by external enrichment layers. Aggregation and
	// scoring never read it.
	Explanation string `json:"explanation,omitempty"`
}

// NewIssue builds an issue with a derived stable ID.
func NewIssue(category Category, issueType string, severity Severity, title string, loc Location) Issue {
	iss := Issue{
		Category:   category,
		Type:       issueType,
		Severity:   severity,
		Confidence: 1.0,
		Title:      title,
		Location:   loc,
	}
	iss.ID = iss.deriveID()
	return iss
}

// WithSeverity returns a copy with a different severity. The ID is preserved
// so re-scoring does not change issue identity.
func (i Issue) WithSeverity(s Severity) Issue {
	i.Severity = s
	return i
}

// deriveID computes a stable identity hash from the issue's defining fields.
// Two runs over identical content produce identical IDs.
func (i Issue) deriveID() string {
	h := blake3.New()
	h.Write([]byte(i.Category))
	h.Write([]byte{0})
	h.Write([]byte(i.Type))
	h.Write([]byte{0})
	h.Write([]byte(i.Location.File))
	h.Write([]byte{0})
	line := i.Location.StartLine
	h.Write([]byte{byte(line >> 24), byte(line >> 16), byte(line >> 8), byte(line)})
	h.Write([]byte(normalizeTitle(i.Title)))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// normalizeTitle collapses whitespace and case so cosmetic changes to a
// title do not alter issue identity.
func normalizeTitle(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
