package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/brim/internal/pipeline"
)

type countingBuilder struct {
	runs atomic.Int32
	err  error
}

func (b *countingBuilder) Run(context.Context) (*pipeline.Result, error) {
	n := b.runs.Add(1)
	return &pipeline.Result{Rendered: int(n)}, b.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, b Builder, opts Options) *Watcher {
	t.Helper()
	opts.Log = quietLogger()
	w := New(b, opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	require.Eventually(t, func() bool { return w.Status().Builds >= 1 }, 2*time.Second, 10*time.Millisecond)
	return w
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestWatcherRebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	b := &countingBuilder{}
	w := startWatcher(t, b, Options{Dirs: []string{dir}, Debounce: 20 * time.Millisecond})

	write(t, filepath.Join(dir, "a.json"), `{}`)
	require.Eventually(t, func() bool { return w.Status().Builds >= 2 }, 2*time.Second, 10*time.Millisecond)

	st := w.Status()
	assert.True(t, st.HasGoodBuild)
	assert.NoError(t, st.LastError)
	assert.NotNil(t, st.LastResult)
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	b := &countingBuilder{}
	w := startWatcher(t, b, Options{Dirs: []string{dir}, Debounce: 150 * time.Millisecond})

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		write(t, filepath.Join(dir, name+".json"), `{}`)
	}
	require.Eventually(t, func() bool { return w.Status().Builds == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return w.Status().Builds > 2 }, 400*time.Millisecond, 20*time.Millisecond)
}

func TestWatcherIgnoresHiddenTempAndDestination(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(dest, 0o750))
	b := &countingBuilder{}
	w := startWatcher(t, b, Options{Dirs: []string{dir}, Ignore: []string{dest}, Debounce: 20 * time.Millisecond})

	write(t, filepath.Join(dir, ".hidden"), "x")
	write(t, filepath.Join(dir, "page.json~"), "x")
	write(t, filepath.Join(dest, "index.html"), "x")
	assert.Never(t, func() bool { return w.Status().Builds > 1 }, 300*time.Millisecond, 20*time.Millisecond)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	b := &countingBuilder{}
	w := startWatcher(t, b, Options{Dirs: []string{dir}, Debounce: 20 * time.Millisecond})

	require.NoError(t, os.Mkdir(filepath.Join(dir, "blog"), 0o750))
	require.Eventually(t, func() bool { return w.Status().Builds >= 2 }, 2*time.Second, 10*time.Millisecond)
	before := w.Status().Builds

	write(t, filepath.Join(dir, "blog", "post.json"), `{}`)
	require.Eventually(t, func() bool { return w.Status().Builds > before }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherRecordsFailures(t *testing.T) {
	b := &countingBuilder{err: errors.New("template missing")}
	w := startWatcher(t, b, Options{})

	st := w.Status()
	assert.EqualError(t, st.LastError, "template missing")
	assert.False(t, st.HasGoodBuild)
}

func TestWatcherPeriodicRebuild(t *testing.T) {
	b := &countingBuilder{}
	w := startWatcher(t, b, Options{Interval: 50 * time.Millisecond})
	require.Eventually(t, func() bool { return w.Status().Builds >= 3 }, 3*time.Second, 10*time.Millisecond)
}

func TestShouldIgnore(t *testing.T) {
	for path, want := range map[string]bool{
		"/site/.git":         true,
		"/site/a.json.swp":   true,
		"/site/a.json~":      true,
		"/site/#a.json#":     true,
		"/site/upload.tmp":   true,
		"/site/a.json":       false,
		"/site/img/logo.png": false,
	} {
		assert.Equal(t, want, ShouldIgnore(path), path)
	}
}

func TestServeMetrics(t *testing.T) {
	reg := prom.NewRegistry()
	c := prom.NewCounter(prom.CounterOpts{Name: "brim_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr, err := Serve(ctx, "127.0.0.1:0", Router(reg, nil), quietLogger())
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "brim_test_total 1")
}

func TestHealthz(t *testing.T) {
	st := Status{Builds: 1, LastError: errors.New("template not found")}
	h := Router(prom.NewRegistry(), func() Status { return st })

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"builds":1,"has_good_build":false,"last_error":"template not found","rendered":0,"failed":0}`, rec.Body.String())

	st = Status{Builds: 2, HasGoodBuild: true, LastResult: &pipeline.Result{Rendered: 4, Failed: 1}}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"builds":2,"has_good_build":true,"rendered":4,"failed":1}`, rec.Body.String())
}

func TestRouterWithoutStatusHasNoHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Router(prom.NewRegistry(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
