// Package scanner discovers analyzable source files under a root path.
package scanner

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/augurhq/augur/pkg/config"
	"github.com/augurhq/augur/pkg/models"
)

// binarySniffLen is how many leading bytes are checked for NUL when
// classifying a file as binary.
const binarySniffLen = 8192

// DiscoveryError means the root path itself could not be analyzed.
// Individual unreadable files inside a valid root never produce one.
type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %s: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Scanner finds source files eligible for analysis.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher
}

// New creates a scanner from config.
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot walks up from start looking for a .git directory.
// Returns empty string when not inside a repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines config exclude patterns with .gitignore
// files. Config patterns use gitignore syntax and always apply.
func (s *Scanner) loadExcludePatterns(root string) {
	var patterns []gitignore.Pattern

	for _, pattern := range s.config.Discovery.Exclude {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if s.config.Discovery.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			fs := osfs.New(gitRoot)
			if gitPatterns, err := gitignore.ReadPatterns(fs, nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

// isExcluded checks a relative path against the exclusion matchers.
func (s *Scanner) isExcluded(relPath string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}
	parts := strings.Split(relPath, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

// matchesInclude applies the include pattern allow-list against a relative
// path. An empty list admits everything.
func (s *Scanner) matchesInclude(relPath string) bool {
	if len(s.config.Discovery.Include) == 0 {
		return true
	}
	base := filepath.Base(relPath)
	for _, pattern := range s.config.Discovery.Include {
		if ok, _ := filepath.Match(pattern, relPath); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Scan discovers source files under root. Root may be a single file or a
// directory. The returned file list is sorted by path and duplicate-free;
// candidates rejected for content reasons are returned as skip records.
func (s *Scanner) Scan(root string) ([]models.SourceFile, []models.SkippedFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, &DiscoveryError{Root: root, Err: err}
	}

	if !info.IsDir() {
		return s.scanSingle(root, info)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, &DiscoveryError{Root: root, Err: err}
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, nil, &DiscoveryError{Root: root, Err: err}
	}

	s.loadExcludePatterns(root)
	allowed := s.config.AllowedLanguages()

	var files []models.SourceFile
	var skipped []models.SkippedFile
	seen := make(map[string]bool)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		// Symlinks must resolve inside the root. WalkDir never descends
		// into symlinked directories, which also rules out link cycles.
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
			if info, err := os.Stat(resolved); err == nil && info.IsDir() {
				return nil
			}
		}

		if d.IsDir() {
			if relPath != "." && s.isExcluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(relPath, false) || !s.matchesInclude(relPath) {
			return nil
		}

		lang := models.DetectLanguage(path)
		if lang == models.LangUnknown || !allowed[lang] {
			return nil
		}

		if seen[relPath] {
			return nil
		}
		seen[relPath] = true

		if sf, skip := s.classify(path, relPath, lang); skip != nil {
			skipped = append(skipped, *skip)
		} else {
			files = append(files, sf)
		}
		return nil
	})
	if walkErr != nil {
		return nil, nil, &DiscoveryError{Root: root, Err: walkErr}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })
	return files, skipped, nil
}

// scanSingle handles a root that is a regular file.
func (s *Scanner) scanSingle(root string, info os.FileInfo) ([]models.SourceFile, []models.SkippedFile, error) {
	lang := models.DetectLanguage(root)
	if lang == models.LangUnknown || !s.config.AllowedLanguages()[lang] {
		return nil, nil, nil
	}
	rel := filepath.Base(root)
	if sf, skip := s.classify(root, rel, lang); skip != nil {
		return nil, []models.SkippedFile{*skip}, nil
	} else {
		return []models.SourceFile{sf}, nil, nil
	}
}

// classify reads file metadata and content headers, producing either a
// source file record or a skip record. Unreadable files are skips, not
// errors.
func (s *Scanner) classify(path, relPath string, lang models.Language) (models.SourceFile, *models.SkippedFile) {
	info, err := os.Stat(path)
	if err != nil {
		return models.SourceFile{}, &models.SkippedFile{Path: relPath, Reason: models.SkipUnreadable}
	}

	if max := s.config.Discovery.MaxFileSize; max > 0 && info.Size() > max {
		return models.SourceFile{}, &models.SkippedFile{Path: relPath, Reason: models.SkipTooLarge}
	}

	f, err := os.Open(path)
	if err != nil {
		return models.SourceFile{}, &models.SkippedFile{Path: relPath, Reason: models.SkipUnreadable}
	}
	defer f.Close()

	head := make([]byte, binarySniffLen)
	n, err := f.Read(head)
	if err != nil && n == 0 && info.Size() > 0 {
		return models.SourceFile{}, &models.SkippedFile{Path: relPath, Reason: models.SkipUnreadable}
	}
	if bytes.IndexByte(head[:n], 0) >= 0 {
		return models.SourceFile{}, &models.SkippedFile{Path: relPath, Reason: models.SkipBinary}
	}

	return models.SourceFile{
		Path:     relPath,
		Language: lang,
		Size:     info.Size(),
	}, nil
}

// isWithinRoot checks that path does not escape root via symlinks or
// relative segments.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}
