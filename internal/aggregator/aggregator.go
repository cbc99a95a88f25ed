// Package aggregator merges raw analyzer output into the final issue list:
// severity normalization, filtering, near-duplicate merging, deterministic
// ordering, and quality scoring.
package aggregator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/augurhq/augur/pkg/config"
	"github.com/augurhq/augur/pkg/models"
)

// Aggregator applies the post-analysis pipeline.
type Aggregator struct {
	cfg *config.Config
}

// New creates an aggregator from config.
func New(cfg *config.Config) *Aggregator {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Aggregator{cfg: cfg}
}

// Result is the aggregated issue list with derived metrics.
type Result struct {
	Issues   []models.Issue
	Summary  models.Summary
	Warnings []string
}

// severityAliases maps labels used by third-party analyzers onto the
// canonical scale. Lookups are per category so domain conventions (e.g.
// "blocker" in security tooling) can map differently, though most
// categories share the common table. Unknown labels never invent a level;
// they fall back to medium.
var severityAliases = map[models.Category]map[string]models.Severity{}

var commonSeverityAliases = map[string]models.Severity{
	"blocker": models.SeverityCritical,
	"error":   models.SeverityHigh,
	"major":   models.SeverityHigh,
	"warning": models.SeverityMedium,
	"minor":   models.SeverityLow,
	"notice":  models.SeverityInfo,
	"style":   models.SeverityInfo,
	"hint":    models.SeverityInfo,
}

// Aggregate runs the full pipeline. The input order is assumed to follow
// analyzer registration order; ties in deduplication resolve to the
// earliest input.
func (a *Aggregator) Aggregate(issues []models.Issue, files []models.SourceFile) *Result {
	res := &Result{}

	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.Path] = true
	}

	enabled := make(map[models.Category]bool)
	for _, cat := range a.cfg.EnabledCategories() {
		enabled[cat] = true
	}
	minSev, err := models.ParseSeverity(a.cfg.Analysis.MinSeverity)
	if err != nil {
		minSev = models.SeverityInfo
	}

	var kept []models.Issue
	orphans := 0
	for _, iss := range issues {
		iss.Severity = normalizeSeverity(iss.Category, iss.Severity)

		if !known[iss.Location.File] {
			orphans++
			continue
		}
		if !enabled[iss.Category] {
			continue
		}
		if iss.Severity.Weight() < minSev.Weight() {
			continue
		}
		if iss.Confidence < a.cfg.Analysis.ConfidenceThreshold {
			continue
		}
		kept = append(kept, iss)
	}
	if orphans > 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("dropped %d issue(s) referencing undiscovered files", orphans))
	}

	kept = a.dedupe(kept)
	sortIssues(kept)

	res.Issues = kept
	res.Summary = a.summarize(kept, len(files))
	return res
}

// normalizeSeverity maps foreign severity labels to the canonical scale.
// Canonical values pass through unchanged.
func normalizeSeverity(cat models.Category, sev models.Severity) models.Severity {
	if canonical, err := models.ParseSeverity(string(sev)); err == nil {
		return canonical
	}
	label := strings.ToLower(strings.TrimSpace(string(sev)))
	if table, ok := severityAliases[cat]; ok {
		if mapped, ok := table[label]; ok {
			return mapped
		}
	}
	if mapped, ok := commonSeverityAliases[label]; ok {
		return mapped
	}
	return models.SeverityMedium
}

// dedupe merges near-duplicate issues: same category and file, start lines
// within the configured tolerance, and similar text. The survivor is the
// higher-confidence issue, then the higher-severity one, then the earliest
// in input order. Deduplication is idempotent.
func (a *Aggregator) dedupe(issues []models.Issue) []models.Issue {
	tolerance := uint32(a.cfg.Dedup.LineTolerance)
	threshold := a.cfg.Dedup.Similarity

	var out []models.Issue
	for _, cand := range issues {
		merged := false
		for i, kept := range out {
			if kept.Category != cand.Category || kept.Location.File != cand.Location.File {
				continue
			}
			if lineDistance(kept.Location.StartLine, cand.Location.StartLine) > tolerance {
				continue
			}
			if textSimilarity(issueText(kept), issueText(cand)) < threshold {
				continue
			}
			if prefer(cand, kept) {
				out[i] = cand
			}
			merged = true
			break
		}
		if !merged {
			out = append(out, cand)
		}
	}
	return out
}

// prefer reports whether cand should replace kept as a merge survivor.
// kept came earlier in input order, so ties keep it.
func prefer(cand, kept models.Issue) bool {
	if cand.Confidence != kept.Confidence {
		return cand.Confidence > kept.Confidence
	}
	return cand.Severity.Weight() > kept.Severity.Weight()
}

func lineDistance(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

// issueText is the text compared for near-duplicate similarity.
func issueText(iss models.Issue) string {
	return iss.Title + " " + iss.Description
}

// textSimilarity is Jaccard similarity over lowercased word sets.
func textSimilarity(a, b string) float64 {
	wa := wordSet(a)
	wb := wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	intersection := 0
	for w := range wa {
		if wb[w] {
			intersection++
		}
	}
	union := len(wa) + len(wb) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

// sortIssues applies the canonical ordering: severity descending, then
// file, start line, and category ascending.
func sortIssues(issues []models.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Severity.Weight() != b.Severity.Weight() {
			return a.Severity.Weight() > b.Severity.Weight()
		}
		if a.Location.File != b.Location.File {
			return a.Location.File < b.Location.File
		}
		if a.Location.StartLine != b.Location.StartLine {
			return a.Location.StartLine < b.Location.StartLine
		}
		return a.Category < b.Category
	})
}

// summarize computes metrics over the final issue list only.
func (a *Aggregator) summarize(issues []models.Issue, fileCount int) models.Summary {
	s := models.NewSummary()
	s.TotalIssues = len(issues)

	filesWith := make(map[string]bool)
	for _, iss := range issues {
		s.BySeverity[string(iss.Severity)]++
		s.ByCategory[string(iss.Category)]++
		filesWith[iss.Location.File] = true
	}
	s.FilesWithIssues = len(filesWith)
	if fileCount > 0 {
		s.AvgIssuesPerFile = float64(len(issues)) / float64(fileCount)
	}
	s.QualityScore = a.score(issues)
	return s
}

// score computes the deduction-based quality score: start at 100, subtract
// a penalty per issue weighted by category, clamp to [0, 100].
func (a *Aggregator) score(issues []models.Issue) float64 {
	score := 100.0
	for _, iss := range issues {
		penalty := a.cfg.Scoring.SeverityPenalties[string(iss.Severity)]
		weight := 1.0
		if w, ok := a.cfg.Scoring.CategoryWeights[string(iss.Category)]; ok {
			weight = w
		}
		score -= penalty * weight
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
