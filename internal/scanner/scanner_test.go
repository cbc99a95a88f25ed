package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/augurhq/augur/pkg/config"
	"github.com/augurhq/augur/pkg/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanDiscoversSupportedLanguages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "x = 1\n")
	writeFile(t, dir, "web/index.js", "var a = 1;\n")
	writeFile(t, dir, "web/app.tsx", "export const a = 1;\n")
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "README.md", "# readme\n")

	files, skipped, err := New(config.DefaultConfig()).Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v, want none", skipped)
	}
	if len(files) != 3 {
		t.Fatalf("files = %d, want 3: %+v", len(files), files)
	}

	// Sorted by relative path.
	wantPaths := []string{"app.py", "web/app.tsx", "web/index.js"}
	for i, want := range wantPaths {
		if files[i].Path != want {
			t.Errorf("files[%d] = %s, want %s", i, files[i].Path, want)
		}
	}
	if files[0].Language != models.LangPython {
		t.Errorf("app.py language = %s, want python", files[0].Language)
	}
}

func TestScanExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "x = 1\n")
	writeFile(t, dir, "node_modules/lib/index.js", "var a = 1;\n")
	writeFile(t, dir, "bundle.min.js", "var a=1;\n")

	files, _, err := New(config.DefaultConfig()).Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0].Path != "app.py" {
		t.Errorf("files = %+v, want only app.py", files)
	}
}

func TestScanGitignore(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, dir, ".gitignore", "generated.py\n")
	writeFile(t, dir, "app.py", "x = 1\n")
	writeFile(t, dir, "generated.py", "x = 2\n")

	files, _, err := New(config.DefaultConfig()).Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0].Path != "app.py" {
		t.Errorf("files = %+v, want only app.py", files)
	}
}

func TestScanIncludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "x = 1\n")
	writeFile(t, dir, "util.js", "var a = 1;\n")

	cfg := config.DefaultConfig()
	cfg.Discovery.Include = []string{"*.py"}

	files, _, err := New(cfg).Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0].Path != "app.py" {
		t.Errorf("files = %+v, want only app.py", files)
	}
}

func TestScanLanguageFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "x = 1\n")
	writeFile(t, dir, "util.js", "var a = 1;\n")

	cfg := config.DefaultConfig()
	cfg.Discovery.Languages = []string{"python"}

	files, _, err := New(cfg).Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0].Path != "app.py" {
		t.Errorf("files = %+v, want only app.py", files)
	}
}

func TestScanSkipsBinaryAndOversized(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "x = 1\n")
	writeFile(t, dir, "blob.py", "data\x00more")
	writeFile(t, dir, "big.py", string(make([]byte, 64)))

	cfg := config.DefaultConfig()
	cfg.Discovery.MaxFileSize = 32

	files, skipped, err := New(cfg).Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0].Path != "app.py" {
		t.Errorf("files = %+v, want only app.py", files)
	}

	reasons := map[string]models.SkipReason{}
	for _, sk := range skipped {
		reasons[sk.Path] = sk.Reason
	}
	if reasons["blob.py"] != models.SkipBinary {
		t.Errorf("blob.py reason = %s, want binary", reasons["blob.py"])
	}
	if reasons["big.py"] != models.SkipTooLarge {
		t.Errorf("big.py reason = %s, want too_large", reasons["big.py"])
	}
}

func TestScanSingleFileRoot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "app.py", "x = 1\n")

	files, _, err := New(config.DefaultConfig()).Scan(path)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(files) != 1 || files[0].Path != "app.py" {
		t.Errorf("files = %+v, want app.py", files)
	}
}

func TestScanMissingRoot(t *testing.T) {
	_, _, err := New(config.DefaultConfig()).Scan(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	var de *DiscoveryError
	if !errors.As(err, &de) {
		t.Errorf("error type = %T, want *DiscoveryError", err)
	}
}

func TestScanSymlinkEscapeAndCycle(t *testing.T) {
	outside := t.TempDir()
	writeFile(t, outside, "secret.py", "x = 1\n")

	dir := t.TempDir()
	writeFile(t, dir, "app.py", "x = 1\n")
	if err := os.Symlink(outside, filepath.Join(dir, "escape")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	// Self-referencing directory link.
	if err := os.Symlink(dir, filepath.Join(dir, "loop")); err != nil {
		t.Fatal(err)
	}

	files, _, err := New(config.DefaultConfig()).Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, f := range files {
		if f.Path != "app.py" {
			t.Errorf("unexpected file through symlink: %s", f.Path)
		}
	}
}
