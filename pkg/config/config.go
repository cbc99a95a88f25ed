package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cespare/xxhash/v2"
	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/augurhq/augur/pkg/models"
)

// Config holds all configuration options for augur.
type Config struct {
	Analysis   AnalysisConfig  `koanf:"analysis" toml:"analysis"`
	Discovery  DiscoveryConfig `koanf:"discovery" toml:"discovery"`
	Thresholds ThresholdConfig `koanf:"thresholds" toml:"thresholds"`
	Dedup      DedupConfig     `koanf:"dedup" toml:"dedup"`
	Scoring    ScoringConfig   `koanf:"scoring" toml:"scoring"`
	Cache      CacheConfig     `koanf:"cache" toml:"cache"`
	Output     OutputConfig    `koanf:"output" toml:"output"`
}

// AnalysisConfig controls which analyzers run and how.
type AnalysisConfig struct {
	Categories          []string `koanf:"categories" toml:"categories"`
	MinSeverity         string   `koanf:"min_severity" toml:"min_severity"`
	ConfidenceThreshold float64  `koanf:"confidence_threshold" toml:"confidence_threshold"`
	MaxWorkers          int      `koanf:"max_workers" toml:"max_workers"`
	TimeoutSeconds      int      `koanf:"timeout_seconds" toml:"timeout_seconds"` // per work unit
}

// DiscoveryConfig controls which files are analyzed.
type DiscoveryConfig struct {
	Include     []string `koanf:"include" toml:"include"` // match at least one; empty = all
	Exclude     []string `koanf:"exclude" toml:"exclude"` // gitignore syntax
	Languages   []string `koanf:"languages" toml:"languages"`
	MaxFileSize int64    `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = no limit
	Gitignore   bool     `koanf:"gitignore" toml:"gitignore"`
}

// ThresholdConfig defines analyzer metric thresholds.
type ThresholdConfig struct {
	CyclomaticComplexity int     `koanf:"cyclomatic_complexity" toml:"cyclomatic_complexity"`
	DuplicateMinLines    int     `koanf:"duplicate_min_lines" toml:"duplicate_min_lines"`
	DuplicateSimilarity  float64 `koanf:"duplicate_similarity" toml:"duplicate_similarity"`
	MinTestRatio         float64 `koanf:"min_test_ratio" toml:"min_test_ratio"`
}

// DedupConfig controls near-duplicate issue merging.
type DedupConfig struct {
	LineTolerance int     `koanf:"line_tolerance" toml:"line_tolerance"`
	Similarity    float64 `koanf:"similarity" toml:"similarity"`
}

// ScoringConfig controls quality score deductions.
type ScoringConfig struct {
	SeverityPenalties map[string]float64 `koanf:"severity_penalties" toml:"severity_penalties"`
	CategoryWeights   map[string]float64 `koanf:"category_weights" toml:"category_weights"`
}

// CacheConfig controls result caching.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // hours
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"` // text, json, markdown
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Categories: []string{
				"security", "performance", "complexity",
				"duplication", "testing", "documentation",
			},
			MinSeverity:         "info",
			ConfidenceThreshold: 0.0,
			MaxWorkers:          runtime.NumCPU(),
			TimeoutSeconds:      30,
		},
		Discovery: DiscoveryConfig{
			Exclude: []string{
				"node_modules/",
				"vendor/",
				"dist/",
				"build/",
				"__pycache__/",
				".git/",
				".augur/",
				"*.min.js",
				"*.min.css",
			},
			Languages:   []string{"python", "javascript", "typescript"},
			MaxFileSize: 1 << 20,
			Gitignore:   true,
		},
		Thresholds: ThresholdConfig{
			CyclomaticComplexity: 10,
			DuplicateMinLines:    6,
			DuplicateSimilarity:  0.8,
			MinTestRatio:         0.5,
		},
		Dedup: DedupConfig{
			LineTolerance: 1,
			Similarity:    0.85,
		},
		Scoring: ScoringConfig{
			SeverityPenalties: map[string]float64{
				"critical": 10,
				"high":     5,
				"medium":   2,
				"low":      1,
				"info":     0.5,
			},
			CategoryWeights: map[string]float64{},
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".augur/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// Load loads configuration from a file, layered over defaults.
// Unknown keys are ignored.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = koanfjson.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Locate returns the first config file found in the standard search
// locations, or "" when none exists.
func Locate() string {
	names := []string{
		"augur.toml", "augur.yaml", "augur.yml", "augur.json",
		".augur.toml", ".augur.yaml", ".augur.yml", ".augur.json",
	}
	dirs := []string{".", ".augur"}

	for _, dir := range dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := Locate(); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// Validate checks config values are in range.
func (c *Config) Validate() error {
	for _, name := range c.Analysis.Categories {
		if _, err := models.ParseCategory(name); err != nil {
			return err
		}
	}
	if _, err := models.ParseSeverity(c.Analysis.MinSeverity); err != nil {
		return err
	}
	if c.Analysis.ConfidenceThreshold < 0 || c.Analysis.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %f", c.Analysis.ConfidenceThreshold)
	}
	if c.Dedup.Similarity < 0 || c.Dedup.Similarity > 1 {
		return fmt.Errorf("dedup.similarity must be in [0,1], got %f", c.Dedup.Similarity)
	}
	if c.Dedup.LineTolerance < 0 {
		return fmt.Errorf("dedup.line_tolerance must be >= 0, got %d", c.Dedup.LineTolerance)
	}
	for name, p := range c.Scoring.SeverityPenalties {
		if _, err := models.ParseSeverity(name); err != nil {
			return err
		}
		if p < 0 {
			return fmt.Errorf("severity penalty for %s must be >= 0, got %f", name, p)
		}
	}
	return nil
}

// EnabledCategories returns the configured categories as typed values,
// in registration order. Unknown names are dropped.
func (c *Config) EnabledCategories() []models.Category {
	enabled := make(map[models.Category]bool, len(c.Analysis.Categories))
	for _, name := range c.Analysis.Categories {
		if cat, err := models.ParseCategory(name); err == nil {
			enabled[cat] = true
		}
	}
	var out []models.Category
	for _, cat := range models.AllCategories() {
		if enabled[cat] {
			out = append(out, cat)
		}
	}
	return out
}

// AllowedLanguages returns the configured language allow-list as typed values.
func (c *Config) AllowedLanguages() map[models.Language]bool {
	out := make(map[models.Language]bool, len(c.Discovery.Languages))
	for _, name := range c.Discovery.Languages {
		lang := models.Language(strings.ToLower(name))
		for _, known := range models.AllLanguages() {
			if lang == known {
				out[lang] = true
			}
		}
	}
	return out
}

// AnalyzerHash returns a stable hash of the config an analyzer's output
// depends on. Cached entries produced under a different hash are stale.
// Only the threshold fields the analyzer reads participate, so tuning
// one analyzer leaves the others' cache entries valid.
func (c *Config) AnalyzerHash(analyzer string) string {
	payload := map[string]any{"analyzer": analyzer}
	switch analyzer {
	case "complexity":
		payload["cyclomatic_complexity"] = c.Thresholds.CyclomaticComplexity
	case "duplication":
		payload["duplicate_min_lines"] = c.Thresholds.DuplicateMinLines
		payload["duplicate_similarity"] = c.Thresholds.DuplicateSimilarity
	case "testing":
		payload["min_test_ratio"] = c.Thresholds.MinTestRatio
	}

	data, _ := json.Marshal(payload)
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
