package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("render", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.ObserveRenderDuration(2 * time.Millisecond)
	pr.IncRenderResult(ResultRendered)
	pr.IncRenderResult(ResultRendered)
	pr.IncRenderResult(ResultFailed)
	pr.IncDiagnostic("evaluation")
	pr.AddAssetBytes("image", 2048, 1024)
	pr.IncBuildOutcome(BuildOutcomeSuccess)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.renderResults.WithLabelValues("rendered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.renderResults.WithLabelValues("failed")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(pr.assetBytesOut.WithLabelValues("image")))
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncRenderResult(ResultRendered)
	pr.ObserveBuildDuration(time.Second)
	pr.AddAssetBytes("font", 1, 1)
}

func TestNoopRecorder_SatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncDiagnostic("loop")
	r.IncBuildOutcome(BuildOutcomeFailed)
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncRenderResult(ResultSkipped)

	path := filepath.Join(t.TempDir(), "brim.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `brim_render_results_total{result="skipped"} 1`)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncDiagnostic("hook")

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "brim_diagnostics_total"))
}
