// Package metrics provides build metrics for brim runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	coordinator := pipeline.New(cfg, pipeline.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder registers brim_* collectors on a caller-supplied
// registry. One-shot builds export the registry with WriteTextfile (for the
// node_exporter textfile collector); watch mode serves it with HTTPHandler.
package metrics
