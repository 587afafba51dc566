/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package oracle

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/autopr/plan"
	"chainguard.dev/autopr/snapshot"
	"github.com/chainguard-dev/clog"
)

// DefaultTemperature keeps plan generation close to deterministic.
const DefaultTemperature = 0.2

// Completer sends one system and one user message to a reasoning service
// and returns the assistant's text verbatim. Implementations make exactly
// one attempt and report non-success responses as *RequestError.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// PlanGenerator turns an instruction and repository context into a change
// plan.
type PlanGenerator interface {
	Generate(ctx context.Context, instruction string, paths snapshot.Paths) (*plan.ChangePlan, error)
}

// RequestError is a non-success response from the reasoning service.
type RequestError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Generator implements PlanGenerator on top of a Completer. The response is
// parsed strictly as a change plan; malformed output surfaces here as a
// *plan.ParseError.
type Generator struct {
	completer Completer
}

var _ PlanGenerator = (*Generator)(nil)

// NewGenerator returns a Generator backed by c.
func NewGenerator(c Completer) (*Generator, error) {
	if c == nil {
		return nil, errors.New("completer cannot be nil")
	}
	return &Generator{completer: c}, nil
}

// Generate asks the oracle for a plan.
func (g *Generator) Generate(ctx context.Context, instruction string, paths snapshot.Paths) (*plan.ChangePlan, error) {
	log := clog.FromContext(ctx)

	system, err := SystemPrompt()
	if err != nil {
		return nil, fmt.Errorf("building system prompt: %w", err)
	}
	user := UserPrompt(instruction, paths)

	log.With("prompt_length", len(system)+len(user), "context_files", len(paths)).
		Info("Requesting change plan")

	raw, err := g.completer.Complete(ctx, system, user)
	if err != nil {
		var rerr *RequestError
		if errors.As(err, &rerr) {
			log.Errorf("Oracle request failed with status %d: %s", rerr.Status, rerr.Body)
		}
		return nil, err
	}

	p, err := plan.Parse(raw)
	if err != nil {
		log.Errorf("Oracle returned content that is not a change plan: %v\n%s", err, raw)
		return nil, err
	}

	log.Infof("Received change plan with %d change(s)", len(p.Changes))
	return p, nil
}
