/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package vcstest builds throwaway git repositories for tests of the
// VersionControl implementations and the pipeline.
package vcstest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// BaseBranch is the branch every fixture repository starts on.
const BaseBranch = "master"

// Signature is the author used for fixture commits.
func Signature() *object.Signature {
	return &object.Signature{
		Name:  "Test",
		Email: "test@example.com",
		When:  time.Now(),
	}
}

// NewOrigin creates a repository with a single commit on BaseBranch that
// contains README.md and packages/foo.yaml. It returns the directory and the
// commit hash.
func NewOrigin(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	WriteFile(t, dir, "README.md", "# fixture\n")
	WriteFile(t, dir, "packages/foo.yaml", "name: foo\n")

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	hash, err := wt.Commit("initial", &git.CommitOptions{Author: Signature()})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(BaseBranch))); err != nil {
		t.Fatalf("SetReference: %v", err)
	}

	return dir, hash.String()
}

// Clone clones origin into a fresh temporary directory and returns its path.
func Clone(t *testing.T, origin string) string {
	t.Helper()

	dir := t.TempDir()
	if _, err := git.PlainClone(dir, false, &git.CloneOptions{URL: origin}); err != nil {
		t.Fatalf("PlainClone: %v", err)
	}
	return dir
}

// WriteFile writes content to the slash-separated path under root, creating
// parent directories.
func WriteFile(t *testing.T, root, path, content string) {
	t.Helper()

	full := filepath.Join(root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// BranchHash returns the hash the named branch points to in the repository
// at dir, or "" when the branch does not exist.
func BranchHash(t *testing.T, dir, branch string) string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("PlainOpen: %v", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}

// HeadMessage returns the commit message at the tip of branch in dir.
func HeadMessage(t *testing.T, dir, branch string) string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatalf("PlainOpen: %v", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		t.Fatalf("Reference %s: %v", branch, err)
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		t.Fatalf("CommitObject: %v", err)
	}
	return commit.Message
}
