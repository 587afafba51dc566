/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package config holds the configuration of the autopr and relay binaries.
// Values are read from the environment once, at the entry point, and passed
// down explicitly.
package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Providers of the plan oracle.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Version control backends.
const (
	VCSGit   = "git"
	VCSGoGit = "go-git"
)

// Error is a missing or invalid configuration value. It is reported before
// any repository mutation.
type Error struct {
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := "configuration: " + e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("configuration: %s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Pipeline configures cmd/autopr. Fields without an env tag are set from
// command-line flags only.
type Pipeline struct {
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GeminiBaseURL    string `env:"GEMINI_BASE_URL"`

	GitHubToken  string `env:"GITHUB_TOKEN"`
	GitHubAPIURL string `env:"GITHUB_API_URL"`

	// Repository is owner/name.
	Repository string `env:"GITHUB_REPOSITORY"`
	BaseBranch string `env:"BASE_BRANCH,default=main"`

	AuthorName  string `env:"GIT_AUTHOR_NAME"`
	AuthorEmail string `env:"GIT_AUTHOR_EMAIL"`

	Provider      string `env:"AUTOPR_PROVIDER,default=openai"`
	Model         string `env:"AUTOPR_MODEL"`
	VCS           string `env:"AUTOPR_VCS,default=git"`
	Workdir       string `env:"AUTOPR_WORKDIR,default=."`
	FeatureBranch string
	Title         string
	BodyFile      string
	ConfinePaths  bool
	DryRun        bool
}

// LoadPipeline reads the Pipeline configuration through l, or the process
// environment when l is nil.
func LoadPipeline(ctx context.Context, l envconfig.Lookuper) (*Pipeline, error) {
	var cfg Pipeline
	if err := process(ctx, &cfg, l); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every value the selected provider and backend need is
// present. The GitHub token and repository are not needed for a dry run.
func (c *Pipeline) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return &Error{Field: "OPENAI_API_KEY", Message: "required for the openai provider"}
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return &Error{Field: "ANTHROPIC_API_KEY", Message: "required for the anthropic provider"}
		}
	case ProviderGoogle:
		if c.GeminiAPIKey == "" {
			return &Error{Field: "GEMINI_API_KEY", Message: "required for the google provider"}
		}
	default:
		return &Error{Field: "provider", Message: fmt.Sprintf("unknown provider %q, want one of %q, %q or %q", c.Provider, ProviderOpenAI, ProviderAnthropic, ProviderGoogle)}
	}

	switch c.VCS {
	case VCSGit, VCSGoGit:
	default:
		return &Error{Field: "vcs", Message: fmt.Sprintf("unknown backend %q, want %q or %q", c.VCS, VCSGit, VCSGoGit)}
	}

	if c.BaseBranch == "" {
		return &Error{Field: "BASE_BRANCH", Message: "required"}
	}

	if c.DryRun {
		return nil
	}
	if c.GitHubToken == "" {
		return &Error{Field: "GITHUB_TOKEN", Message: "required"}
	}
	if c.Repository == "" {
		return &Error{Field: "GITHUB_REPOSITORY", Message: "required"}
	}
	if _, _, err := SplitRepository(c.Repository); err != nil {
		return err
	}
	if c.GitHubAPIURL != "" {
		if err := checkURL("GITHUB_API_URL", c.GitHubAPIURL); err != nil {
			return err
		}
	}
	return nil
}

// SplitRepository splits owner/name.
func SplitRepository(repository string) (string, string, error) {
	owner, name, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", &Error{Field: "GITHUB_REPOSITORY", Message: fmt.Sprintf("%q is not of the form owner/name", repository)}
	}
	return owner, name, nil
}

// Relay configures cmd/relay.
type Relay struct {
	Port        int `env:"PORT,default=8080"`
	MetricsPort int `env:"METRICS_PORT,default=2112"`

	// Secret, when set, must match the TokenHeader of every request.
	Secret      string `env:"RELAY_SECRET"`
	TokenHeader string `env:"RELAY_TOKEN_HEADER,default=X-Relay-Token"`

	// ChatbotURL receives forwarded events. Forwarding is disabled when it
	// is empty.
	ChatbotURL string `env:"CHATBOT_URL"`
}

// LoadRelay reads the Relay configuration through l, or the process
// environment when l is nil.
func LoadRelay(ctx context.Context, l envconfig.Lookuper) (*Relay, error) {
	var cfg Relay
	if err := process(ctx, &cfg, l); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the relay configuration.
func (c *Relay) Validate() error {
	if c.TokenHeader == "" {
		return &Error{Field: "RELAY_TOKEN_HEADER", Message: "cannot be empty"}
	}
	if c.ChatbotURL != "" {
		return checkURL("CHATBOT_URL", c.ChatbotURL)
	}
	return nil
}

func process(ctx context.Context, target any, l envconfig.Lookuper) error {
	if l == nil {
		l = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   target,
		Lookuper: l,
	}); err != nil {
		return &Error{Message: "processing environment", Err: err}
	}
	return nil
}

func checkURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &Error{Field: field, Message: "invalid URL", Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return &Error{Field: field, Message: fmt.Sprintf("%q must be an absolute URL", raw)}
	}
	return nil
}
