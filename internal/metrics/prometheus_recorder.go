package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	stageDuration  *prom.HistogramVec
	buildDuration  prom.Histogram
	renderDuration prom.Histogram
	renderResults  *prom.CounterVec
	diagnostics    *prom.CounterVec
	assetBytesIn   *prom.CounterVec
	assetBytesOut  *prom.CounterVec
	buildOutcome   *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "brim",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual run stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "brim",
			Name:      "build_duration_seconds",
			Help:      "Total run duration",
			Buckets:   prom.DefBuckets,
		})
		pr.renderDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "brim",
			Name:      "render_duration_seconds",
			Help:      "Duration of a single data record render",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		})
		pr.renderResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "brim",
			Name:      "render_results_total",
			Help:      "Data record render results",
		}, []string{"result"})
		pr.diagnostics = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "brim",
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported by kind",
		}, []string{"kind"})
		pr.assetBytesIn = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "brim",
			Name:      "asset_input_bytes_total",
			Help:      "Bytes read from transcoded assets",
		}, []string{"kind"})
		pr.assetBytesOut = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "brim",
			Name:      "asset_output_bytes_total",
			Help:      "Bytes written for transcoded assets",
		}, []string{"kind"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "brim",
			Name:      "build_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.renderDuration, pr.renderResults,
			pr.diagnostics, pr.assetBytesIn, pr.assetBytesOut, pr.buildOutcome)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveRenderDuration(d time.Duration) {
	if p == nil || p.renderDuration == nil {
		return
	}
	p.renderDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRenderResult(result ResultLabel) {
	if p == nil || p.renderResults == nil {
		return
	}
	p.renderResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncDiagnostic(kind string) {
	if p == nil || p.diagnostics == nil {
		return
	}
	p.diagnostics.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) AddAssetBytes(kind string, before, after int64) {
	if p == nil || p.assetBytesIn == nil {
		return
	}
	p.assetBytesIn.WithLabelValues(kind).Add(float64(before))
	p.assetBytesOut.WithLabelValues(kind).Add(float64(after))
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}
