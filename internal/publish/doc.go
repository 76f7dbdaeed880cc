// Package publish commits a generated artifact to a shared remote branch and
// reconciles concurrent writers with a bounded pull-rebase and retry loop.
//
// The push is the compare-and-swap: a rejected push means another writer landed
// first, so the coordinator replays its commit on top of theirs and tries again,
// at most MaxAttempts pushes in total. It never force-pushes.
package publish
