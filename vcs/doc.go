/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package vcs defines the VersionControl capability used by the pipeline to
// prepare a feature branch, detect working tree changes, and publish commits.
//
// Two implementations are provided:
//   - gitcli shells out to the git binary, so exit statuses and the user's
//     existing credential helpers are preserved.
//   - gogit binds github.com/go-git/go-git/v5 and authenticates pushes with
//     an OAuth2 token source.
//
// Both are fail-fast: the first failing operation returns an *Error and the
// caller is expected to abort the run. Nothing is retried or rolled back.
package vcs
