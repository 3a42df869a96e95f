// Package testutil holds helpers for tests that work on real directory trees.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// WriteTree creates files below root. Keys are slash-separated paths
// relative to root; parent directories are created as needed.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

// FileAssertions checks the state of a directory tree.
type FileAssertions struct {
	t       testing.TB
	baseDir string
}

// NewFileAssertions returns assertions rooted at baseDir.
func NewFileAssertions(t testing.TB, baseDir string) *FileAssertions {
	return &FileAssertions{t: t, baseDir: baseDir}
}

func (fa *FileAssertions) path(rel string) string {
	return filepath.Join(fa.baseDir, filepath.FromSlash(rel))
}

// Exists fails unless rel is a regular file.
func (fa *FileAssertions) Exists(rel string) *FileAssertions {
	fa.t.Helper()
	st, err := os.Stat(fa.path(rel))
	switch {
	case err != nil:
		fa.t.Errorf("Expected file to exist: %s", rel)
	case st.IsDir():
		fa.t.Errorf("Expected %s to be a file, but it's a directory", rel)
	}
	return fa
}

// Missing fails if anything exists at rel.
func (fa *FileAssertions) Missing(rel string) *FileAssertions {
	fa.t.Helper()
	if _, err := os.Stat(fa.path(rel)); err == nil {
		fa.t.Errorf("Expected nothing at %s", rel)
	}
	return fa
}

// Equals fails unless the file at rel holds exactly want.
func (fa *FileAssertions) Equals(rel, want string) *FileAssertions {
	fa.t.Helper()
	got, err := os.ReadFile(fa.path(rel))
	if err != nil {
		fa.t.Errorf("Failed to read file %s: %v", rel, err)
		return fa
	}
	if string(got) != want {
		fa.t.Errorf("File %s:\nwant: %q\n got: %q", rel, want, string(got))
	}
	return fa
}

// Contains fails unless the file at rel contains sub.
func (fa *FileAssertions) Contains(rel, sub string) *FileAssertions {
	fa.t.Helper()
	got, err := os.ReadFile(fa.path(rel))
	if err != nil {
		fa.t.Errorf("Failed to read file %s: %v", rel, err)
		return fa
	}
	if !strings.Contains(string(got), sub) {
		fa.t.Errorf("Expected file %s to contain %q\nActual content:\n%s", rel, sub, string(got))
	}
	return fa
}

// Files lists every regular file below the base directory as sorted
// slash-separated relative paths.
func (fa *FileAssertions) Files() []string {
	fa.t.Helper()
	var files []string
	err := filepath.WalkDir(fa.baseDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, _ := filepath.Rel(fa.baseDir, p)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		fa.t.Fatalf("Failed to walk %s: %v", fa.baseDir, err)
	}
	sort.Strings(files)
	return files
}
