package git

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// isAncestor returns true if a is an ancestor of b (or equal).
func isAncestor(repo *git.Repository, a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	found := false
	err := walk(repo, b, func(h plumbing.Hash) bool {
		found = h == a
		return !found
	})
	return found, err
}

// reachable collects every commit reachable from tip.
func reachable(repo *git.Repository, tip plumbing.Hash) (map[plumbing.Hash]struct{}, error) {
	seen := map[plumbing.Hash]struct{}{}
	err := walk(repo, tip, func(h plumbing.Hash) bool {
		seen[h] = struct{}{}
		return true
	})
	return seen, err
}

// walk visits commits breadth first from tip until visit returns false.
func walk(repo *git.Repository, tip plumbing.Hash, visit func(plumbing.Hash) bool) error {
	seen := map[plumbing.Hash]struct{}{}
	queue := []plumbing.Hash{tip}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		if !visit(h) {
			return nil
		}
		commit, err := repo.CommitObject(h)
		if err != nil {
			return err
		}
		queue = append(queue, commit.ParentHashes...)
	}
	return nil
}
