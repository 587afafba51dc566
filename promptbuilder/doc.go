/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package promptbuilder assembles model prompts from templates with named
// placeholders.
//
// A template marks placeholders as {{name}}. Each placeholder must be bound
// exactly once before Build succeeds. Only developer-written text can be
// bound verbatim: BindStringLiteral accepts untyped string constants, so a
// runtime string cannot be passed to it by accident. Structured data goes
// through BindJSON, which marshals it.
//
//	var system = promptbuilder.MustNewPrompt(`Answer with JSON matching:
//	{{schema}}`).MustBindJSON("schema", plan.Schema())
//
// Values are substituted in a single pass, so bound text that contains
// {{...}} is never expanded again.
package promptbuilder
