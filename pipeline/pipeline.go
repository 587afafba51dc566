/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/autopr/metrics"
	"chainguard.dev/autopr/oracle"
	"chainguard.dev/autopr/plan"
	"chainguard.dev/autopr/publisher"
	"chainguard.dev/autopr/snapshot"
	"chainguard.dev/autopr/vcs"
	"github.com/chainguard-dev/clog"
)

// Outcome is how a run that did not fail ended.
type Outcome string

const (
	// OutcomeNoOp means the plan was empty or produced no working tree change.
	OutcomeNoOp Outcome = "noop"

	// OutcomeOpened means a pull request was opened.
	OutcomeOpened Outcome = "opened"

	// OutcomeDryRun means the plan was applied locally and the run stopped
	// before committing.
	OutcomeDryRun Outcome = "dry_run"
)

// ErrEmptyInstruction is returned when the instruction is blank.
var ErrEmptyInstruction = errors.New("instruction cannot be empty")

// Publisher opens a pull request and returns its URL.
type Publisher interface {
	Publish(ctx context.Context, req publisher.Request) (string, error)
}

// Session names the branches of a run.
type Session struct {
	BaseBranch    string
	FeatureBranch string
}

// Request is the input to a single run.
type Request struct {
	Instruction string

	// Session.FeatureBranch defaults to BranchName("", Instruction).
	Session Session

	// Title and Body override CommitTitle and DefaultBody for the PR.
	Title string
	Body  string
}

// Result describes a finished run.
type Result struct {
	Outcome Outcome
	Session Session

	// URL is the pull request URL when Outcome is OutcomeOpened.
	URL string

	// Applied and Skipped report materialization.
	Applied []string
	Skipped []*plan.ItemError

	// Status is the porcelain status after materialization.
	Status string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRoot sets the working tree the snapshot is taken from and the plan is
// written to. The default is the current directory.
func WithRoot(root string) Option {
	return func(p *Pipeline) {
		p.root = root
	}
}

// WithDryRun stops the run after the status check.
func WithDryRun() Option {
	return func(p *Pipeline) {
		p.dryRun = true
	}
}

// WithConfinement skips plan items whose path escapes the working tree.
func WithConfinement() Option {
	return func(p *Pipeline) {
		p.materializeOpts = append(p.materializeOpts, plan.WithConfinement())
	}
}

// WithSnapshotOptions configures the repository snapshot.
func WithSnapshotOptions(opts ...snapshot.Option) Option {
	return func(p *Pipeline) {
		p.snapshotOpts = append(p.snapshotOpts, opts...)
	}
}

// WithMetrics counts runs by outcome.
func WithMetrics(m *metrics.Pipeline) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// Pipeline turns an instruction into a pull request. Runs are sequential
// and a Pipeline must not be shared by concurrent runs on the same tree.
type Pipeline struct {
	vc        vcs.VersionControl
	generator oracle.PlanGenerator
	publisher Publisher

	root            string
	dryRun          bool
	snapshotOpts    []snapshot.Option
	materializeOpts []plan.MaterializeOption
	metrics         *metrics.Pipeline
}

// New returns a Pipeline.
func New(vc vcs.VersionControl, generator oracle.PlanGenerator, pub Publisher, opts ...Option) *Pipeline {
	p := &Pipeline{
		vc:        vc,
		generator: generator,
		publisher: pub,
		root:      ".",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every stage once, in order. The first failure ends the run
// and is returned wrapped with its stage; nothing already done is undone.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	res, stage, err := p.run(ctx, req)
	if p.metrics != nil {
		if err != nil {
			p.metrics.RecordRun(ctx, "failed", stage)
		} else {
			p.metrics.RecordRun(ctx, string(res.Outcome), "")
		}
	}
	return res, err
}

func (p *Pipeline) run(ctx context.Context, req Request) (*Result, string, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, "validate", ErrEmptyInstruction
	}
	if req.Session.BaseBranch == "" {
		return nil, "validate", errors.New("base branch cannot be empty")
	}

	session := Session{
		BaseBranch:    req.Session.BaseBranch,
		FeatureBranch: BranchName(req.Session.FeatureBranch, req.Instruction),
	}
	ctx = clog.WithValues(ctx, "base", session.BaseBranch, "branch", session.FeatureBranch)
	log := clog.FromContext(ctx)
	res := &Result{Session: session}

	prepare := []struct {
		stage string
		fn    func(context.Context) error
	}{
		{"verify", p.vc.VerifyRepository},
		{"fetch", p.vc.Fetch},
		{"checkout", func(ctx context.Context) error { return p.vc.Checkout(ctx, session.BaseBranch) }},
		{"pull", func(ctx context.Context) error { return p.vc.Pull(ctx, session.BaseBranch) }},
		{"branch", func(ctx context.Context) error { return p.vc.CreateBranch(ctx, session.FeatureBranch) }},
	}
	for _, step := range prepare {
		if err := step.fn(ctx); err != nil {
			return nil, step.stage, fmt.Errorf("%s: %w", step.stage, err)
		}
	}
	log.Info("Prepared feature branch")

	paths, err := snapshot.Take(p.root, p.snapshotOpts...)
	if err != nil {
		return nil, "snapshot", fmt.Errorf("snapshot: %w", err)
	}
	log.Infof("Collected %d repository paths as context", len(paths))

	cp, err := p.generator.Generate(ctx, req.Instruction, paths)
	if err != nil {
		return nil, "generate", fmt.Errorf("generate: %w", err)
	}
	if cp.Empty() {
		log.Info("Plan contains no changes, nothing to do")
		res.Outcome = OutcomeNoOp
		return res, "", nil
	}

	mres, err := plan.Materialize(ctx, p.root, cp, p.materializeOpts...)
	if err != nil {
		return nil, "materialize", fmt.Errorf("materialize: %w", err)
	}
	res.Applied, res.Skipped = mres.Applied, mres.Skipped
	log.Infof("Applied %d change(s), skipped %d", len(mres.Applied), len(mres.Skipped))

	status, err := p.vc.Status(ctx)
	if err != nil {
		return nil, "status", fmt.Errorf("status: %w", err)
	}
	res.Status = status
	if status == "" {
		log.Info("Working tree is clean after applying the plan, nothing to do")
		res.Outcome = OutcomeNoOp
		return res, "", nil
	}

	if p.dryRun {
		log.Infof("Dry run, not committing:\n%s", status)
		res.Outcome = OutcomeDryRun
		return res, "", nil
	}

	message := CommitTitle(req.Instruction)
	publish := []struct {
		stage string
		fn    func(context.Context) error
	}{
		{"add", p.vc.AddAll},
		{"commit", func(ctx context.Context) error { return p.vc.Commit(ctx, message) }},
		{"push", func(ctx context.Context) error { return p.vc.Push(ctx, session.FeatureBranch) }},
	}
	for _, step := range publish {
		if err := step.fn(ctx); err != nil {
			return nil, step.stage, fmt.Errorf("%s: %w", step.stage, err)
		}
	}

	title := req.Title
	if title == "" {
		title = message
	}
	body := req.Body
	if body == "" {
		body = DefaultBody(req.Instruction, session.BaseBranch)
	}

	url, err := p.publisher.Publish(ctx, publisher.Request{
		Title: title,
		Body:  body,
		Head:  session.FeatureBranch,
		Base:  session.BaseBranch,
	})
	if err != nil {
		return nil, "publish", fmt.Errorf("publish: %w", err)
	}

	res.Outcome = OutcomeOpened
	res.URL = url
	return res, "", nil
}
