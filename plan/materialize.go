/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package plan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
)

// MaterializeOption configures Materialize.
type MaterializeOption func(*materializer)

// WithConfinement skips items whose path resolves outside the root.
func WithConfinement() MaterializeOption {
	return func(m *materializer) {
		m.confine = true
	}
}

// Result summarizes a Materialize call.
type Result struct {
	// Applied lists the paths written, in plan order.
	Applied []string

	// Skipped lists the items that were not applied.
	Skipped []*ItemError
}

type materializer struct {
	root    string
	confine bool
}

// Materialize applies every valid item of p beneath root, in order. Invalid
// items are logged and skipped; the remaining items are still applied. An
// error is only returned when writing a valid item fails.
func Materialize(ctx context.Context, root string, p *ChangePlan, opts ...MaterializeOption) (*Result, error) {
	log := clog.FromContext(ctx)

	m := &materializer{root: root}
	for _, opt := range opts {
		opt(m)
	}

	res := &Result{}
	if p.Empty() {
		return res, nil
	}

	for i, item := range p.Changes {
		full, err := m.resolve(item)
		if err != nil {
			ierr := &ItemError{Index: i, Path: item.Path, Err: err}
			log.Warnf("Skipping invalid change: %v", ierr)
			res.Skipped = append(res.Skipped, ierr)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return res, fmt.Errorf("creating parent directories for %s: %w", item.Path, err)
		}
		if err := os.WriteFile(full, []byte(item.Content), 0o644); err != nil {
			return res, fmt.Errorf("writing %s: %w", item.Path, err)
		}

		log.With("path", item.Path, "bytes", len(item.Content)).Info("Wrote file")
		res.Applied = append(res.Applied, item.Path)
	}

	return res, nil
}

// resolve validates item and returns the filesystem path it writes to.
// Absolute item paths are used as-is unless confinement is enabled.
func (m *materializer) resolve(item ChangeItem) (string, error) {
	if err := item.Validate(); err != nil {
		return "", err
	}

	if !m.confine {
		if filepath.IsAbs(item.Path) {
			return item.Path, nil
		}
		return filepath.Join(m.root, item.Path), nil
	}

	full := filepath.Join(m.root, filepath.Clean(item.Path))
	rel, err := filepath.Rel(m.root, full)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEscapesRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrEscapesRoot
	}
	if rel == "." {
		return "", ErrMissingPath
	}
	return full, nil
}
