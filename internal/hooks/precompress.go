package hooks

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"git.home.luguber.info/inful/brim/internal/assets"
	"git.home.luguber.info/inful/brim/internal/logfields"
)

// DefaultPrecompressExtensions are compressed when precompress has no arguments.
var DefaultPrecompressExtensions = []string{".html", ".css", ".js", ".svg"}

func runPrecompress(ctx context.Context, env Env, a Action) error {
	exts := DefaultPrecompressExtensions
	if len(a.Args) > 0 {
		exts = make([]string, 0, len(a.Args))
		for _, e := range a.Args {
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			exts = append(exts, strings.ToLower(e))
		}
	}
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[e] = true
	}

	count := 0
	err := filepath.WalkDir(env.Dest, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !want[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if err := gzipFile(path); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	env.Log.Info("Precompressed files", logfields.Count(count), logfields.Path(env.Dest))
	return nil
}

func gzipFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return err
	}
	zw.Name = filepath.Base(path)
	zw.ModTime = info.ModTime()
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return assets.WriteFile(path+".gz", buf.Bytes(), info.Mode().Perm(), info.ModTime())
}
