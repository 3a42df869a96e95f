package pipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// tree is the classified content of the source directory, as paths
// relative to it.
type tree struct {
	data   []string
	assets []string
}

// walkSource lists regular files under root. Paths in exclude, and anything
// below an excluded directory, are left out.
func walkSource(ctx context.Context, root string, exclude []string, isData func(string) bool) (*tree, error) {
	t := &tree{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && excluded(path, exclude) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if isData(rel) {
			t.data = append(t.data, rel)
		} else {
			t.assets = append(t.assets, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(t.data)
	sort.Strings(t.assets)
	return t, nil
}

func excluded(path string, exclude []string) bool {
	for _, ex := range exclude {
		if ex == "" {
			continue
		}
		if path == ex || strings.HasPrefix(path, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
