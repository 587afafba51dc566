/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gitcli implements vcs.VersionControl by running the git binary in
// a working directory.
package gitcli

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"chainguard.dev/autopr/vcs"
	"github.com/chainguard-dev/clog"
)

// Option configures a Driver.
type Option func(*Driver)

// WithIdentity sets the committer and author used for commits. When unset,
// git falls back to the repository or global configuration.
func WithIdentity(name, email string) Option {
	return func(d *Driver) {
		d.name = name
		d.email = email
	}
}

// WithBinary overrides the git executable.
func WithBinary(path string) Option {
	return func(d *Driver) {
		d.binary = path
	}
}

// Driver runs git subcommands inside dir.
type Driver struct {
	dir    string
	binary string
	remote string
	name   string
	email  string
}

var _ vcs.VersionControl = (*Driver)(nil)

// New returns a Driver operating on the working tree at dir.
func New(dir string, opts ...Option) *Driver {
	d := &Driver{
		dir:    dir,
		binary: "git",
		remote: "origin",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) VerifyRepository(ctx context.Context) error {
	out, err := d.run(ctx, "verify", "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) != "true" {
		return &vcs.Error{Op: "verify", Code: 1, Output: out, Err: errors.New("not inside a work tree")}
	}
	return nil
}

func (d *Driver) Fetch(ctx context.Context) error {
	_, err := d.run(ctx, "fetch", "fetch", d.remote)
	return err
}

func (d *Driver) Checkout(ctx context.Context, branch string) error {
	_, err := d.run(ctx, "checkout", "checkout", branch)
	return err
}

func (d *Driver) Pull(ctx context.Context, branch string) error {
	_, err := d.run(ctx, "pull", "pull", d.remote, branch)
	return err
}

func (d *Driver) CreateBranch(ctx context.Context, branch string) error {
	_, err := d.run(ctx, "branch", "checkout", "-b", branch)
	return err
}

func (d *Driver) Status(ctx context.Context) (string, error) {
	out, err := d.run(ctx, "status", "status", "--porcelain")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

func (d *Driver) AddAll(ctx context.Context) error {
	_, err := d.run(ctx, "add", "add", "-A")
	return err
}

func (d *Driver) Commit(ctx context.Context, message string) error {
	_, err := d.run(ctx, "commit", "commit", "-m", message)
	return err
}

func (d *Driver) Push(ctx context.Context, branch string) error {
	_, err := d.run(ctx, "push", "push", "-u", d.remote, branch)
	return err
}

// run executes git with args and converts a non-zero exit into *vcs.Error
// carrying the exit status and combined output.
func (d *Driver) run(ctx context.Context, op string, args ...string) (string, error) {
	full := make([]string, 0, len(args)+4)
	if d.name != "" {
		full = append(full, "-c", "user.name="+d.name)
	}
	if d.email != "" {
		full = append(full, "-c", "user.email="+d.email)
	}
	full = append(full, args...)

	clog.FromContext(ctx).Debugf("Running git %s", strings.Join(args, " "))

	cmd := exec.Command(d.binary, full...)
	cmd.Dir = d.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := 1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		return "", &vcs.Error{Op: op, Code: code, Output: output, Err: err}
	}
	return stdout.String(), nil
}
