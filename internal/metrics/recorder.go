package metrics

import "time"

// ResultLabel enumerates per-record render results.
type ResultLabel string

const (
	ResultRendered ResultLabel = "rendered"
	ResultSkipped  ResultLabel = "skipped"
	ResultFailed   ResultLabel = "failed"
)

// BuildOutcomeLabel enumerates final run outcomes.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeWarning  BuildOutcomeLabel = "warning"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for runs, stages and renders.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	ObserveRenderDuration(d time.Duration)
	IncRenderResult(result ResultLabel)
	IncDiagnostic(kind string)
	AddAssetBytes(kind string, before, after int64)
	IncBuildOutcome(outcome BuildOutcomeLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) ObserveRenderDuration(time.Duration)        {}
func (NoopRecorder) IncRenderResult(ResultLabel)                {}
func (NoopRecorder) IncDiagnostic(string)                       {}
func (NoopRecorder) AddAssetBytes(string, int64, int64)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
