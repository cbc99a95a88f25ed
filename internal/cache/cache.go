// Package cache provides content-addressed storage for per-file analyzer
// results. Entries are keyed on the file's content fingerprint plus the
// analyzer name and its config hash, so edits and config changes both
// invalidate naturally without any mtime bookkeeping.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/augurhq/augur/pkg/models"
)

// HashFile computes a BLAKE3 fingerprint of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes computes a BLAKE3 fingerprint of bytes as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Entry is one cached analyzer result.
type Entry struct {
	Fingerprint string         `json:"fingerprint"`
	Analyzer    string         `json:"analyzer"`
	ConfigHash  string         `json:"config_hash"`
	Timestamp   time.Time      `json:"timestamp"`
	Issues      []models.Issue `json:"issues"`
}

// Store is a file-based cache of analyzer results.
type Store struct {
	dir     string
	ttl     time.Duration
	enabled bool
	bypass  bool

	mu       sync.Mutex
	corrupt  int
	degraded bool
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the entry time-to-live. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithBypass makes every lookup miss while leaving the persisted store
// intact. Writes still happen so the next run starts warm.
func WithBypass() Option {
	return func(s *Store) {
		s.bypass = true
	}
}

// New creates a cache store rooted at dir. A store that cannot create its
// directory degrades to all-miss rather than failing the run.
func New(dir string, enabled bool, opts ...Option) *Store {
	s := &Store{
		dir:     dir,
		enabled: enabled,
		ttl:     24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.enabled {
		if err := os.MkdirAll(dir, 0755); err != nil {
			s.enabled = false
			s.degraded = true
		}
	}
	return s
}

// Enabled reports whether the store is operational.
func (s *Store) Enabled() bool {
	return s.enabled
}

// Degraded reports whether the store fell back to all-miss because its
// directory was unusable.
func (s *Store) Degraded() bool {
	return s.degraded
}

// Get returns cached issues for a (fingerprint, analyzer, configHash) key.
// Misses on absence, key mismatch, expiry, and corrupt entries. Corrupt
// entries are removed and counted.
func (s *Store) Get(fingerprint, analyzer, configHash string) ([]models.Issue, bool) {
	if !s.enabled || s.bypass {
		return nil, false
	}

	path := s.entryPath(fingerprint, analyzer, configHash)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		os.Remove(path)
		s.mu.Lock()
		s.corrupt++
		s.mu.Unlock()
		return nil, false
	}

	if entry.Fingerprint != fingerprint || entry.ConfigHash != configHash {
		return nil, false
	}
	if s.ttl > 0 && time.Since(entry.Timestamp) > s.ttl {
		os.Remove(path)
		return nil, false
	}

	return entry.Issues, true
}

// Put stores analyzer issues for a fingerprint. Existing entries for the
// same key are overwritten. Writes are serialized; a failed write is
// reported but never fails the analysis.
func (s *Store) Put(fingerprint, analyzer, configHash string, issues []models.Issue) error {
	if !s.enabled {
		return nil
	}

	entry := Entry{
		Fingerprint: fingerprint,
		Analyzer:    analyzer,
		ConfigHash:  configHash,
		Timestamp:   time.Now(),
		Issues:      issues,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return os.WriteFile(s.entryPath(fingerprint, analyzer, configHash), data, 0600)
}

// CorruptCount returns how many corrupt entries were discarded.
func (s *Store) CorruptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corrupt
}

// Clear removes all cache entries.
func (s *Store) Clear() error {
	if s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// entryPath converts a cache key to a filesystem path. The key is hashed
// so analyzer names and hashes never leak into path syntax.
func (s *Store) entryPath(fingerprint, analyzer, configHash string) string {
	key := fmt.Sprintf("%s\x00%s\x00%s", fingerprint, analyzer, configHash)
	hash := blake3.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(hash[:])+".json")
}

// Stats summarizes the on-disk cache.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// GetStats walks the store directory and reports entry counts and sizes.
func (s *Store) GetStats() (*Stats, error) {
	if !s.enabled {
		return &Stats{}, nil
	}

	stats := &Stats{}
	var oldest, newest time.Time

	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}
	return stats, nil
}
