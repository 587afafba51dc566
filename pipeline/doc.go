/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package pipeline turns a natural-language instruction into a pull request.
//
// A run prepares a feature branch from the base branch, snapshots the
// repository, asks a PlanGenerator for a change plan, writes the plan into
// the working tree, and, if the tree changed, commits, pushes and opens a
// pull request.
//
// An empty plan, or a plan that leaves the working tree unchanged, ends the
// run with OutcomeNoOp. Every stage is attempted once and the first failure
// ends the run; errors wrap the typed error of the failing component, such
// as *vcs.Error or *publisher.Error.
package pipeline
