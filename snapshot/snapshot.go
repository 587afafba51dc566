/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package snapshot lists the files of a working tree so the oracle has some
// situational awareness of the repository it is changing. The listing is
// advisory only and is never used to validate a change plan.
package snapshot

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

const (
	// DefaultLimit caps the number of paths in a snapshot.
	DefaultLimit = 100

	// DefaultDepth is the deepest directory level, relative to the root,
	// whose files are included.
	DefaultDepth = 6
)

// Paths is an ordered list of slash-separated, root-relative file paths.
type Paths []string

// String joins the paths with newlines.
func (p Paths) String() string {
	return strings.Join(p, "\n")
}

// Option configures Take.
type Option func(*options)

type options struct {
	limit int
	depth int
}

// WithLimit overrides DefaultLimit.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// WithDepth overrides DefaultDepth.
func WithDepth(n int) Option {
	return func(o *options) {
		o.depth = n
	}
}

var errLimitReached = errors.New("snapshot limit reached")

// Take walks root in lexical order and returns the first regular files it
// encounters, skipping any .git entry (directory, or the file a linked
// worktree or submodule uses) and anything nested deeper than
// the depth limit.
func Take(root string, opts ...Option) (Paths, error) {
	o := options{limit: DefaultLimit, depth: DefaultDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.limit <= 0 {
		return Paths{}, nil
	}

	paths := make(Paths, 0, o.limit)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if d.Name() == ".git" {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if depth(rel) > o.depth {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		paths = append(paths, filepath.ToSlash(rel))
		if len(paths) >= o.limit {
			return errLimitReached
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		return nil, err
	}
	return paths, nil
}

// depth counts the directory levels of a root-relative directory path, so
// a top-level directory has depth 1.
func depth(rel string) int {
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
