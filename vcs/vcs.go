/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package vcs

import (
	"context"
	"errors"
	"fmt"
)

// VersionControl is the set of repository mutations the pipeline performs
// against a single working tree. Every method is synchronous and must succeed
// before the next stage proceeds. Implementations never retry and never roll
// back earlier mutations; failures are reported as *Error.
type VersionControl interface {
	// VerifyRepository confirms the working directory is a git working tree.
	VerifyRepository(ctx context.Context) error

	// Fetch updates the remote-tracking refs from origin.
	Fetch(ctx context.Context) error

	// Checkout switches the working tree to the named branch.
	Checkout(ctx context.Context, branch string) error

	// Pull integrates origin's copy of branch into the current branch.
	Pull(ctx context.Context, branch string) error

	// CreateBranch creates branch at HEAD and checks it out.
	CreateBranch(ctx context.Context, branch string) error

	// Status returns the porcelain status of the working tree. An empty
	// string means the tree is clean relative to HEAD.
	Status(ctx context.Context) (string, error)

	// AddAll stages every modification, addition and deletion.
	AddAll(ctx context.Context) error

	// Commit records the staged changes with the given message.
	Commit(ctx context.Context, message string) error

	// Push publishes branch to origin and sets it as upstream.
	Push(ctx context.Context, branch string) error
}

// Error is returned by VersionControl implementations when an operation
// fails. Code carries the originating exit status so the process can
// propagate it.
type Error struct {
	Op     string
	Code   int
	Output string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("git %s failed (exit %d)", e.Op, e.Code)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the status the process should exit with.
func (e *Error) ExitCode() int {
	if e.Code <= 0 {
		return 1
	}
	return e.Code
}

// ExitCode extracts the exit status carried by a version control failure
// anywhere in err's chain. The second result is false when err does not
// wrap an *Error.
func ExitCode(err error) (int, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.ExitCode(), true
	}
	return 0, false
}
