// Package pipeline executes one publish run end to end: resolve the triggering
// revision, produce the artifact, clone the target into a fresh workspace, run
// the publish coordinator, then record the outcome in the journal, on NATS and
// in the metrics textfile.
package pipeline
