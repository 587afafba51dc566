/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package oracle asks an external reasoning service for a change plan.
//
// The service is reached through a Completer, a single request/response
// exchange of a system message and a user message. Three backends exist:
// openaioracle (chat completions), claudeoracle (messages) and geminioracle
// (generateContent). openaioracle and claudeoracle disable SDK-level
// retries; the genai SDK used by geminioracle does not retry generateContent
// requests. Each request is therefore attempted exactly once.
//
// Generator wraps a Completer and implements PlanGenerator. It owns the
// boundary between raw service output and the typed plan.ChangePlan. The
// system prompt is built once with promptbuilder and embeds the plan schema.
package oracle
