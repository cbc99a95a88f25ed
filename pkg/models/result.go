package models

import "time"

// SourceFile is a discovered file eligible for analysis.
// Fields are fixed at discovery time; later content changes are invisible
// to the run that discovered it.
type SourceFile struct {
	Path        string   `json:"path"`
	Language    Language `json:"language"`
	Fingerprint string   `json:"fingerprint"`
	Size        int64    `json:"size"`
}

// SkipReason explains why discovery excluded a candidate file.
type SkipReason string

const (
	SkipBinary     SkipReason = "binary"
	SkipTooLarge   SkipReason = "too_large"
	SkipUnreadable SkipReason = "unreadable"
)

// SkippedFile records a candidate that discovery rejected.
type SkippedFile struct {
	Path   string     `json:"path"`
	Reason SkipReason `json:"reason"`
}

// OutcomeStatus is the terminal state of one unit of analysis work.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusFailed  OutcomeStatus = "failed"
	StatusSkipped OutcomeStatus = "skipped"
	StatusTimeout OutcomeStatus = "timeout"
)

// AnalyzerOutcome records how one (analyzer, file) work unit finished.
// Batch analyzers produce a single outcome with an empty File.
type AnalyzerOutcome struct {
	Analyzer   string        `json:"analyzer"`
	Category   Category      `json:"category"`
	File       string        `json:"file,omitempty"`
	Status     OutcomeStatus `json:"status"`
	IssueCount int           `json:"issue_count"`
	Error      string        `json:"error,omitempty"`
	Cached     bool          `json:"cached,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Summary provides aggregate statistics over the final issue list.
type Summary struct {
	TotalIssues      int            `json:"total_issues"`
	BySeverity       map[string]int `json:"by_severity"`
	ByCategory       map[string]int `json:"by_category"`
	FilesWithIssues  int            `json:"files_with_issues"`
	AvgIssuesPerFile float64        `json:"avg_issues_per_file"`
	QualityScore     float64        `json:"quality_score"`
}

// NewSummary creates an initialized summary.
func NewSummary() Summary {
	return Summary{
		BySeverity: make(map[string]int),
		ByCategory: make(map[string]int),
	}
}

// AnalysisResult is the complete outcome of one analysis run.
type AnalysisResult struct {
	RootPath    string            `json:"root_path"`
	Files       []SourceFile      `json:"files"`
	Skipped     []SkippedFile     `json:"skipped,omitempty"`
	Issues      []Issue           `json:"issues"`
	Summary     Summary           `json:"summary"`
	Outcomes    []AnalyzerOutcome `json:"outcomes"`
	Warnings    []string          `json:"warnings,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	CacheHits   int               `json:"cache_hits"`
	CacheMisses int               `json:"cache_misses"`
	// Incomplete marks a run cut short by cancellation. Issues and outcomes
	// reflect only the work that finished.
	Incomplete bool `json:"incomplete,omitempty"`
}

// CacheHitRatio returns the fraction of cacheable lookups served from cache.
func (r *AnalysisResult) CacheHitRatio() float64 {
	total := r.CacheHits + r.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(r.CacheHits) / float64(total)
}

// Duration returns the wall-clock time of the run.
func (r *AnalysisResult) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
