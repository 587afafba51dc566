/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package plan

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the change plan wire contract version this package produces
// and accepts.
const Version = "1"

// Action enumerates what a ChangeItem does to its path.
type Action string

// ActionCreateOrUpdate replaces the file at Path with Content, creating it
// and any missing parent directories.
const ActionCreateOrUpdate Action = "create_or_update"

// ChangePlan is the structured set of file changes produced by the oracle.
type ChangePlan struct {
	// Version of the wire contract. Optional; when present it must be "1".
	Version string `json:"version,omitempty" jsonschema:"enum=1,description=Wire contract version"`

	// Changes to apply in order. An empty or absent list means nothing to do.
	Changes []ChangeItem `json:"changes" jsonschema:"required,description=Ordered file changes to apply"`
}

// ChangeItem is a single full-content file write.
type ChangeItem struct {
	// Path is relative to the repository root.
	Path string `json:"path" jsonschema:"required,description=Repository-root-relative file path"`

	// Action must be create_or_update.
	Action Action `json:"action" jsonschema:"required,enum=create_or_update"`

	// Content is the complete final body of the file.
	Content string `json:"content" jsonschema:"required,description=Full final file content"`
}

// Empty reports whether the plan contains no changes.
func (p *ChangePlan) Empty() bool {
	return p == nil || len(p.Changes) == 0
}

// ParseError reports oracle output that is not a valid change plan document.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing change plan: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes raw as a change plan. The whole input must be a single JSON
// document; surrounding prose or code fences are not stripped.
func Parse(raw string) (*ChangePlan, error) {
	var p ChangePlan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if p.Version != "" && p.Version != Version {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("unsupported plan version %q", p.Version)}
	}
	return &p, nil
}

// ItemError reports a change item that cannot be applied. It only ever
// causes the item to be skipped.
type ItemError struct {
	Index int
	Path  string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("change %d (%q): %v", e.Index, e.Path, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

var (
	// ErrMissingPath is reported for items without a path.
	ErrMissingPath = errors.New("missing path")

	// ErrUnsupportedAction is reported for items whose action is not
	// create_or_update.
	ErrUnsupportedAction = errors.New("unsupported action")

	// ErrEscapesRoot is reported, when confinement is enabled, for items
	// whose path resolves outside the repository root.
	ErrEscapesRoot = errors.New("path escapes repository root")
)

// Validate checks the item's shape. Content is not inspected: an empty
// content truncates the file.
func (c ChangeItem) Validate() error {
	switch {
	case c.Path == "":
		return ErrMissingPath
	case c.Action != ActionCreateOrUpdate:
		return fmt.Errorf("%w %q", ErrUnsupportedAction, c.Action)
	}
	return nil
}
