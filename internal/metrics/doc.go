// Package metrics records publish activity: push attempts, rebases, outcomes
// and stage durations.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	coord := publish.NewCoordinator(5, retry.Immediate(), metrics.NoopRecorder{})
//
// When a textfile path is configured the pipeline swaps in a PrometheusRecorder
// and flushes its registry after each run with WriteTextfile, in the format the
// node exporter textfile collector picks up.
package metrics
