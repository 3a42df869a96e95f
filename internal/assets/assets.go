// Package assets mirrors non-data files of the source tree into the
// destination tree, optionally re-encoding images and adding WOFF versions
// of fonts. Source files are only ever read.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"

	"git.home.luguber.info/inful/brim/internal/errors"
	"git.home.luguber.info/inful/brim/internal/logfields"
	"git.home.luguber.info/inful/brim/internal/metrics"
)

// DefaultJPEGQuality matches the quality used when no setting is given.
const DefaultJPEGQuality = 85

// Kind describes what was done with a file.
type Kind string

const (
	KindCopy  Kind = "copy"
	KindImage Kind = "image"
	KindFont  Kind = "font"
)

// Options selects optional transcoding.
type Options struct {
	OptimizeImages bool
	OptimizeFonts  bool
	JPEGQuality    int
}

// Result describes one processed file.
type Result struct {
	Kind Kind
	// Before and After are the source size and the size written for it.
	Before int64
	After  int64
	// Written lists every destination path produced, the mirrored file first.
	Written []string
}

// Processor copies and transcodes single files. It is safe for concurrent use.
type Processor struct {
	opts     Options
	recorder metrics.Recorder
	log      *slog.Logger
}

// NewProcessor returns a Processor. A nil recorder disables metrics.
func NewProcessor(opts Options, rec metrics.Recorder) *Processor {
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = DefaultJPEGQuality
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Processor{opts: opts, recorder: rec, log: slog.Default()}
}

// WithLogger returns a copy of p logging to log.
func (p *Processor) WithLogger(log *slog.Logger) *Processor {
	c := *p
	if log != nil {
		c.log = log
	}
	return &c
}

// Process mirrors src to dst, transcoding it when enabled for its type.
func (p *Processor) Process(ctx context.Context, src, dst string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, errors.AssetFailure(src, err)
	}

	ext := strings.ToLower(filepath.Ext(src))
	switch {
	case p.opts.OptimizeImages && isImage(ext):
		return p.image(src, dst, ext, info)
	case p.opts.OptimizeFonts && isFont(ext):
		return p.font(src, dst, info)
	}

	n, err := CopyFile(src, dst)
	if err != nil {
		return nil, errors.AssetFailure(src, err)
	}
	return &Result{Kind: KindCopy, Before: n, After: n, Written: []string{dst}}, nil
}

func isImage(ext string) bool {
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png"
}

func isFont(ext string) bool {
	return ext == ".ttf" || ext == ".otf"
}

func (p *Processor) image(src, dst, ext string, info fs.FileInfo) (*Result, error) {
	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return nil, errors.AssetFailure(src, err)
	}
	out, err := optimizeImage(data, ext, p.opts.JPEGQuality)
	if err != nil {
		// Undecodable images are mirrored as they are.
		p.log.Warn("Image not optimized", logfields.Path(src), logfields.Error(err))
		out = data
	}
	if len(out) >= len(data) {
		out = data
	}
	if err := WriteFile(dst, out, info.Mode().Perm(), info.ModTime()); err != nil {
		return nil, errors.AssetFailure(src, err)
	}
	before, after := int64(len(data)), int64(len(out))
	p.recorder.AddAssetBytes(string(KindImage), before, after)
	w, h, _ := imageSize(data)
	p.log.Info("Optimized image",
		logfields.Path(filepath.Base(src)),
		slog.String("dimensions", fmt.Sprintf("%dx%d", w, h)),
		slog.String("before", humanize.Bytes(uint64(before))),
		slog.String("after", humanize.Bytes(uint64(after))))
	return &Result{Kind: KindImage, Before: before, After: after, Written: []string{dst}}, nil
}

func (p *Processor) font(src, dst string, info fs.FileInfo) (*Result, error) {
	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return nil, errors.AssetFailure(src, err)
	}
	if err := WriteFile(dst, data, info.Mode().Perm(), info.ModTime()); err != nil {
		return nil, errors.AssetFailure(src, err)
	}
	res := &Result{Kind: KindCopy, Before: int64(len(data)), After: int64(len(data)), Written: []string{dst}}

	woff, err := EncodeWOFF(data)
	if err != nil {
		p.log.Warn("Font not converted", logfields.Path(src), logfields.Error(err))
		return res, nil
	}
	woffPath := strings.TrimSuffix(dst, filepath.Ext(dst)) + ".woff"
	if err := WriteFile(woffPath, woff, info.Mode().Perm(), info.ModTime()); err != nil {
		return nil, errors.AssetFailure(src, err)
	}
	res.Kind = KindFont
	res.After = int64(len(woff))
	res.Written = append(res.Written, woffPath)
	p.recorder.AddAssetBytes(string(KindFont), res.Before, res.After)
	p.log.Info("Converted font",
		logfields.Path(filepath.Base(woffPath)),
		slog.String("before", humanize.Bytes(uint64(res.Before))),
		slog.String("after", humanize.Bytes(uint64(res.After))))
	return res, nil
}

// CopyFile copies src to dst atomically, keeping permissions and
// modification time. It returns the number of bytes copied.
func CopyFile(src, dst string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", src)
	}
	data, err := os.ReadFile(filepath.Clean(src))
	if err != nil {
		return 0, err
	}
	if err := WriteFile(dst, data, info.Mode().Perm(), info.ModTime()); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// WriteFile replaces path with data in one rename, creating parent
// directories. A zero modTime leaves the modification time at now.
func WriteFile(path string, data []byte, perm fs.FileMode, modTime time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := os.Chmod(path, perm); err != nil {
		return err
	}
	if modTime.IsZero() {
		return nil
	}
	return os.Chtimes(path, modTime, modTime)
}
