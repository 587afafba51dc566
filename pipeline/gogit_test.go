/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline_test

import (
	"context"
	"testing"

	"chainguard.dev/autopr/pipeline"
	"chainguard.dev/autopr/plan"
	"chainguard.dev/autopr/publisher"
	"chainguard.dev/autopr/snapshot"
	"chainguard.dev/autopr/vcs/gogit"
	"chainguard.dev/autopr/vcs/vcstest"
	"github.com/stretchr/testify/require"
)

type staticGenerator struct {
	plan *plan.ChangePlan
}

func (g staticGenerator) Generate(context.Context, string, snapshot.Paths) (*plan.ChangePlan, error) {
	return g.plan, nil
}

type recordingPublisher struct {
	requests []publisher.Request
}

func (p *recordingPublisher) Publish(_ context.Context, req publisher.Request) (string, error) {
	p.requests = append(p.requests, req)
	return "https://example.com/pull/1", nil
}

func TestRunAgainstRepository(t *testing.T) {
	origin, baseHash := vcstest.NewOrigin(t)
	work := vcstest.Clone(t, origin)

	pub := &recordingPublisher{}
	p := pipeline.New(
		gogit.New(work, gogit.WithIdentity("autopr", "autopr@example.com")),
		staticGenerator{plan: &plan.ChangePlan{Changes: []plan.ChangeItem{{
			Path:    "packages/bar.yaml",
			Action:  plan.ActionCreateOrUpdate,
			Content: "name: bar\n",
		}}}},
		pub,
		pipeline.WithRoot(work),
	)

	res, err := p.Run(context.Background(), pipeline.Request{
		Instruction: "Add the bar package",
		Session:     pipeline.Session{BaseBranch: vcstest.BaseBranch},
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.OutcomeOpened, res.Outcome)

	require.NotEmpty(t, vcstest.BranchHash(t, origin, "auto/add-the-bar-package"))
	require.Equal(t, "Auto: Add the bar package", vcstest.HeadMessage(t, origin, "auto/add-the-bar-package"))
	require.Equal(t, baseHash, vcstest.BranchHash(t, origin, vcstest.BaseBranch))

	require.Len(t, pub.requests, 1)
	require.Equal(t, "auto/add-the-bar-package", pub.requests[0].Head)
	require.Equal(t, vcstest.BaseBranch, pub.requests[0].Base)
}

func TestRunAgainstRepositoryUnchangedContent(t *testing.T) {
	origin, _ := vcstest.NewOrigin(t)
	work := vcstest.Clone(t, origin)

	pub := &recordingPublisher{}
	p := pipeline.New(
		gogit.New(work),
		staticGenerator{plan: &plan.ChangePlan{Changes: []plan.ChangeItem{{
			Path:    "README.md",
			Action:  plan.ActionCreateOrUpdate,
			Content: "# fixture\n",
		}}}},
		pub,
		pipeline.WithRoot(work),
	)

	res, err := p.Run(context.Background(), pipeline.Request{
		Instruction: "Rewrite the README",
		Session:     pipeline.Session{BaseBranch: vcstest.BaseBranch},
	})
	require.NoError(t, err)
	require.Equal(t, pipeline.OutcomeNoOp, res.Outcome)
	require.Empty(t, pub.requests)
	require.Empty(t, vcstest.BranchHash(t, origin, "auto/rewrite-the-readme"))
}
