/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gogit implements vcs.VersionControl on top of go-git, operating on
// an existing working tree. Remote operations authenticate with an OAuth2
// token source when one is configured.
package gogit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chainguard.dev/autopr/vcs"
	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

// Option configures a Driver.
type Option func(*Driver)

// WithTokenSource authenticates fetch, pull and push with the token as the
// HTTP basic auth password.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(d *Driver) {
		d.tokenSource = ts
	}
}

// WithIdentity sets the commit author. When it is unset, the author is read
// from the repository configuration.
func WithIdentity(name, email string) Option {
	return func(d *Driver) {
		d.name = name
		d.email = email
	}
}

// Driver performs repository mutations on the working tree at dir.
type Driver struct {
	dir         string
	remote      string
	tokenSource oauth2.TokenSource
	name        string
	email       string

	repo *git.Repository
}

var _ vcs.VersionControl = (*Driver)(nil)

// New returns a Driver for the working tree at dir. The repository is opened
// lazily by VerifyRepository.
func New(dir string, opts ...Option) *Driver {
	d := &Driver{
		dir:    dir,
		remote: "origin",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func fail(op string, err error) error {
	return &vcs.Error{Op: op, Code: 1, Err: err}
}

func (d *Driver) open(op string) (*git.Repository, *git.Worktree, error) {
	if d.repo == nil {
		repo, err := git.PlainOpenWithOptions(d.dir, &git.PlainOpenOptions{DetectDotGit: true})
		if err != nil {
			return nil, nil, fail(op, fmt.Errorf("opening repo: %w", err))
		}
		d.repo = repo
	}
	wt, err := d.repo.Worktree()
	if err != nil {
		return nil, nil, fail(op, fmt.Errorf("getting worktree: %w", err))
	}
	return d.repo, wt, nil
}

func (d *Driver) VerifyRepository(_ context.Context) error {
	_, _, err := d.open("verify")
	return err
}

func (d *Driver) Fetch(ctx context.Context) error {
	repo, _, err := d.open("fetch")
	if err != nil {
		return err
	}
	auth, err := d.auth()
	if err != nil {
		return fail("fetch", fmt.Errorf("getting token: %w", err))
	}

	clog.FromContext(ctx).Infof("Fetching %s", d.remote)
	if err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: d.remote,
		Auth:       auth,
	}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fail("fetch", fmt.Errorf("fetching %s: %w", d.remote, err))
	}
	return nil
}

// Checkout switches to branch. A branch that only exists as a
// remote-tracking ref is created locally at the remote's commit, matching
// git's checkout behavior.
func (d *Driver) Checkout(ctx context.Context, branch string) error {
	repo, wt, err := d.open("checkout")
	if err != nil {
		return err
	}

	refName := plumbing.NewBranchReferenceName(branch)
	if _, err := repo.Reference(refName, true); err != nil {
		if !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fail("checkout", fmt.Errorf("resolving %s: %w", branch, err))
		}
		remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(d.remote, branch), true)
		if err != nil {
			return fail("checkout", fmt.Errorf("branch %s not found locally or on %s: %w", branch, d.remote, err))
		}
		clog.FromContext(ctx).Infof("Creating local branch %s from %s/%s", branch, d.remote, branch)
		if err := repo.Storer.SetReference(plumbing.NewHashReference(refName, remoteRef.Hash())); err != nil {
			return fail("checkout", fmt.Errorf("setting branch reference: %w", err))
		}
	}

	if err := wt.Checkout(&git.CheckoutOptions{Branch: refName, Keep: true}); err != nil {
		return fail("checkout", fmt.Errorf("checking out %s: %w", branch, err))
	}
	return nil
}

func (d *Driver) Pull(ctx context.Context, branch string) error {
	_, wt, err := d.open("pull")
	if err != nil {
		return err
	}
	auth, err := d.auth()
	if err != nil {
		return fail("pull", fmt.Errorf("getting token: %w", err))
	}

	clog.FromContext(ctx).Infof("Pulling %s from %s", branch, d.remote)
	if err := wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    d.remote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Auth:          auth,
	}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fail("pull", fmt.Errorf("pulling %s: %w", branch, err))
	}
	return nil
}

func (d *Driver) CreateBranch(_ context.Context, branch string) error {
	if branch == "" {
		return fail("branch", errors.New("branch name cannot be empty"))
	}
	_, wt, err := d.open("branch")
	if err != nil {
		return err
	}

	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: true,
		Keep:   true,
	}); err != nil {
		return fail("branch", fmt.Errorf("creating branch %s: %w", branch, err))
	}
	return nil
}

func (d *Driver) Status(_ context.Context) (string, error) {
	_, wt, err := d.open("status")
	if err != nil {
		return "", err
	}
	status, err := wt.Status()
	if err != nil {
		return "", fail("status", fmt.Errorf("getting worktree status: %w", err))
	}
	if status.IsClean() {
		return "", nil
	}
	return strings.TrimRight(status.String(), "\n"), nil
}

func (d *Driver) AddAll(_ context.Context) error {
	_, wt, err := d.open("add")
	if err != nil {
		return err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fail("add", fmt.Errorf("staging changes: %w", err))
	}
	return nil
}

func (d *Driver) Commit(_ context.Context, message string) error {
	if message == "" {
		return fail("commit", errors.New("commit message cannot be empty"))
	}
	_, wt, err := d.open("commit")
	if err != nil {
		return err
	}

	opts := &git.CommitOptions{}
	if d.name != "" {
		email := d.email
		if !strings.Contains(email, "@") {
			email = fmt.Sprintf("%s@users.noreply.github.com", d.name)
		}
		opts.Author = &object.Signature{
			Name:  d.name,
			Email: email,
			When:  time.Now(),
		}
	}

	if _, err := wt.Commit(message, opts); err != nil {
		return fail("commit", fmt.Errorf("committing: %w", err))
	}
	return nil
}

func (d *Driver) Push(ctx context.Context, branch string) error {
	log := clog.FromContext(ctx)

	repo, _, err := d.open("push")
	if err != nil {
		return err
	}
	auth, err := d.auth()
	if err != nil {
		return fail("push", fmt.Errorf("getting token: %w", err))
	}

	ref := plumbing.NewBranchReferenceName(branch)
	refSpec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", ref.String(), ref.String()))
	log.Infof("Pushing %s", refSpec)

	if err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: d.remote,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       auth,
	}); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			log.Infof("Branch already up to date")
		} else {
			return fail("push", fmt.Errorf("pushing: %w", err))
		}
	}

	if err := repo.CreateBranch(&gitconfig.Branch{
		Name:   branch,
		Remote: d.remote,
		Merge:  ref,
	}); err != nil && !errors.Is(err, git.ErrBranchExists) {
		return fail("push", fmt.Errorf("setting upstream: %w", err))
	}
	return nil
}

// auth returns nil when no token source is configured so local remotes and
// ambient credentials keep working.
func (d *Driver) auth() (transport.AuthMethod, error) {
	if d.tokenSource == nil {
		return nil, nil
	}
	token, err := d.tokenSource.Token()
	if err != nil {
		return nil, err
	}
	return &githttp.BasicAuth{
		Username: "unused-when-using-access-tokens",
		Password: token.AccessToken,
	}, nil
}
