/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package plan defines the change plan wire contract exchanged with the
// oracle and applies plans to a working tree.
//
// A plan is a JSON document of the form
//
//	{"version": "1", "changes": [{"path": "...", "action": "create_or_update", "content": "..."}]}
//
// Parse is strict: the input must be exactly one JSON document. Materialize
// writes every valid item as a full replacement of the file body and skips,
// with a warning, items that are missing a path or carry an unknown action.
//
// By default paths are not confined to the repository root. WithConfinement
// turns escaping paths into skipped items.
package plan
