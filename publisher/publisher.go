/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package publisher opens pull requests on GitHub.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// Request describes the pull request to open.
type Request struct {
	Title string
	Body  string
	Head  string
	Base  string
}

// Error is a pull request creation that did not return 201 Created. Body is
// the response body as GitHub sent it.
type Error struct {
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("creating pull request failed with status %d: %s", e.Status, e.Body)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Publisher opens pull requests against a single repository.
type Publisher struct {
	client *github.Client
	owner  string
	repo   string
}

// New returns a Publisher for owner/repo.
func New(client *github.Client, owner, repo string) *Publisher {
	return &Publisher{
		client: client,
		owner:  owner,
		repo:   repo,
	}
}

// Publish creates the pull request and returns its HTML URL. It makes a
// single attempt.
func (p *Publisher) Publish(ctx context.Context, req Request) (string, error) {
	log := clog.FromContext(ctx)
	log.Infof("Creating pull request on %s/%s with head %s and base %s", p.owner, p.repo, req.Head, req.Base)

	pr, resp, err := p.client.PullRequests.Create(ctx, p.owner, p.repo, &github.NewPullRequest{
		Title: github.Ptr(req.Title),
		Body:  github.Ptr(req.Body),
		Head:  github.Ptr(req.Head),
		Base:  github.Ptr(req.Base),
	})
	if err != nil {
		if perr := fromResponse(responseOf(err), err); perr != nil {
			log.Errorf("Pull request creation failed with status %d: %s", perr.Status, perr.Body)
			return "", perr
		}
		return "", fmt.Errorf("creating pull request: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		// go-github has already decoded the body, so re-encode what it saw.
		body, _ := json.Marshal(pr)
		perr := &Error{Status: resp.StatusCode, Body: string(body)}
		log.Errorf("Pull request creation failed with status %d: %s", perr.Status, perr.Body)
		return "", perr
	}

	log.Infof("Created PR #%d: %s", pr.GetNumber(), pr.GetHTMLURL())
	return pr.GetHTMLURL(), nil
}

// responseOf extracts the HTTP response from the error types go-github
// returns for non-2xx statuses.
func responseOf(err error) *http.Response {
	var erresp *github.ErrorResponse
	if errors.As(err, &erresp) {
		return erresp.Response
	}
	var rlerr *github.RateLimitError
	if errors.As(err, &rlerr) {
		return rlerr.Response
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return abuse.Response
	}
	return nil
}

func fromResponse(resp *http.Response, err error) *Error {
	if resp == nil {
		return nil
	}
	perr := &Error{Status: resp.StatusCode, Err: err}
	if resp.Body != nil {
		if b, rerr := io.ReadAll(resp.Body); rerr == nil {
			perr.Body = string(b)
		}
	}
	return perr
}
