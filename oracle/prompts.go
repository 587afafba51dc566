/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package oracle

import (
	"strings"
	"sync"

	"chainguard.dev/autopr/plan"
	"chainguard.dev/autopr/promptbuilder"
	"chainguard.dev/autopr/snapshot"
)

var systemPrompt = promptbuilder.MustNewPrompt(`You are an automated code change generator working inside a git repository.

Given an instruction and a partial list of the repository's files, respond with
a JSON change plan describing every file that must be created or updated.

Rules:
- Respond with a single JSON object and nothing else. No prose, no explanations.
- Do not wrap the JSON in markdown code fences.
- The only supported action is "create_or_update".
- Paths are relative to the repository root.
- Every changed file must include its FULL final content, not a diff or excerpt.
- If no change is needed, respond with {"version": "{{version}}", "changes": []}.

The response must validate against this JSON schema:
{{schema}}`).
	MustBindStringLiteral("version", plan.Version).
	MustBindJSON("schema", plan.Schema())

// SystemPrompt returns the fixed system instruction, including the change
// plan schema.
var SystemPrompt = sync.OnceValues(systemPrompt.Build)

// UserPrompt renders the instruction and the repository context. The
// instruction is inserted verbatim.
func UserPrompt(instruction string, paths snapshot.Paths) string {
	var sb strings.Builder
	sb.WriteString("Instruction:\n")
	sb.WriteString(instruction)
	sb.WriteString("\n\nRepository files (partial list):\n")
	sb.WriteString(paths.String())
	sb.WriteString("\n")
	return sb.String()
}
