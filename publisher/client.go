/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package publisher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// NewClient returns a GitHub client authenticated with ts. When apiURL is
// non-empty it replaces the public API endpoint, as with GitHub Enterprise
// Server where it is typically https://<host>/api/v3.
func NewClient(ctx context.Context, ts oauth2.TokenSource, apiURL string) (*github.Client, error) {
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	if apiURL == "" {
		return client, nil
	}

	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("parsing GitHub API URL %q: %w", apiURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("GitHub API URL %q must be absolute", apiURL)
	}
	client.BaseURL = u
	return client, nil
}
