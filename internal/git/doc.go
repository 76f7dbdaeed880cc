// Package git is the staging repository client: a go-git backed working copy of
// the publication target that can stage an artifact, commit it under a given
// identity, push the branch, and replay local commits on top of the remote tip
// when a push is rejected.
package git
