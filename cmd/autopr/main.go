/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements autopr, which turns an instruction into a pull
// request against the repository checked out in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"chainguard.dev/autopr/config"
	"chainguard.dev/autopr/metrics"
	"chainguard.dev/autopr/oracle"
	"chainguard.dev/autopr/oracle/claudeoracle"
	"chainguard.dev/autopr/oracle/geminioracle"
	"chainguard.dev/autopr/oracle/openaioracle"
	"chainguard.dev/autopr/pipeline"
	"chainguard.dev/autopr/publisher"
	"chainguard.dev/autopr/vcs"
	"chainguard.dev/autopr/vcs/gitcli"
	"chainguard.dev/autopr/vcs/gogit"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

// exitConfig is the exit status for configuration errors.
const exitConfig = 2

type flags struct {
	repo         string
	base         string
	branch       string
	instruction  string
	title        string
	bodyFile     string
	workdir      string
	provider     string
	model        string
	vcs          string
	logLevel     string
	confinePaths bool
	dryRun       bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newCommand(&flags{}).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "autopr: %v\n", err)
	}
	cancel()
	os.Exit(exitCode(err))
}

func newCommand(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autopr",
		Short: "Turn an instruction into a pull request",
		Long: `autopr asks a language model for a change plan that implements the
instruction, applies it on a new branch of the repository in --workdir, and
opens a pull request when the working tree changed.

The instruction is read from standard input when --instruction is omitted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.repo, "repo", "", "target repository as owner/name (env GITHUB_REPOSITORY)")
	fs.StringVar(&f.base, "base", "", "base branch (env BASE_BRANCH, default main)")
	fs.StringVar(&f.branch, "branch", "", "feature branch name (default auto/<slug of instruction>)")
	fs.StringVar(&f.instruction, "instruction", "", "instruction text (read from stdin when omitted)")
	fs.StringVar(&f.title, "title", "", "pull request title (default derived from the instruction)")
	fs.StringVar(&f.bodyFile, "body-file", "", "file containing the pull request body")
	fs.StringVar(&f.workdir, "workdir", "", "repository working tree (env AUTOPR_WORKDIR, default .)")
	fs.StringVar(&f.provider, "provider", "", "plan oracle provider: openai, anthropic or google (env AUTOPR_PROVIDER)")
	fs.StringVar(&f.model, "model", "", "model identifier (env AUTOPR_MODEL, default per provider)")
	fs.StringVar(&f.vcs, "vcs", "", "version control backend: git or go-git (env AUTOPR_VCS)")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.BoolVar(&f.confinePaths, "confine-paths", false, "skip plan items whose path escapes the working tree")
	fs.BoolVar(&f.dryRun, "dry-run", false, "apply the plan locally without committing or opening a pull request")

	return cmd
}

func run(cmd *cobra.Command, f *flags) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return &config.Error{Field: "log-level", Message: fmt.Sprintf("invalid level %q", f.logLevel), Err: err}
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	ctx := clog.WithLogger(cmd.Context(), clog.New(handler))
	log := clog.FromContext(ctx)

	cfg, err := config.LoadPipeline(ctx, nil)
	if err != nil {
		return err
	}
	f.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	instruction := f.instruction
	if !cmd.Flags().Changed("instruction") {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading instruction from stdin: %w", err)
		}
		instruction = string(b)
	}
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return &config.Error{Field: "instruction", Message: "required, pass --instruction or write it to stdin"}
	}

	var body string
	if cfg.BodyFile != "" {
		b, err := os.ReadFile(cfg.BodyFile)
		if err != nil {
			return &config.Error{Field: "body-file", Message: "unreadable", Err: err}
		}
		body = string(b)
	}

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}

	var pub pipeline.Publisher
	if !cfg.DryRun {
		owner, repo, err := config.SplitRepository(cfg.Repository)
		if err != nil {
			return err
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
		client, err := publisher.NewClient(ctx, ts, cfg.GitHubAPIURL)
		if err != nil {
			return &config.Error{Field: "GITHUB_API_URL", Message: "invalid", Err: err}
		}
		pub = publisher.New(client, owner, repo)
	}

	opts := []pipeline.Option{
		pipeline.WithRoot(cfg.Workdir),
		pipeline.WithMetrics(metrics.NewPipeline()),
	}
	if cfg.ConfinePaths {
		opts = append(opts, pipeline.WithConfinement())
	}
	if cfg.DryRun {
		opts = append(opts, pipeline.WithDryRun())
	}

	res, err := pipeline.New(newVCS(cfg), generator, pub, opts...).Run(ctx, pipeline.Request{
		Instruction: instruction,
		Session: pipeline.Session{
			BaseBranch:    cfg.BaseBranch,
			FeatureBranch: cfg.FeatureBranch,
		},
		Title: cfg.Title,
		Body:  body,
	})
	if err != nil {
		return err
	}

	switch res.Outcome {
	case pipeline.OutcomeOpened:
		log.Infof("Opened pull request %s", res.URL)
		fmt.Fprintln(cmd.OutOrStdout(), res.URL)
	case pipeline.OutcomeDryRun:
		log.Infof("Dry run applied %d change(s) on %s", len(res.Applied), res.Session.FeatureBranch)
		fmt.Fprintln(cmd.OutOrStdout(), res.Status)
	case pipeline.OutcomeNoOp:
		log.Info("No changes to propose")
	}
	return nil
}

// apply overrides cfg with the flags that were set on the command line.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Pipeline) {
	changed := cmd.Flags().Changed
	set := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	set("repo", &cfg.Repository, f.repo)
	set("base", &cfg.BaseBranch, f.base)
	set("branch", &cfg.FeatureBranch, f.branch)
	set("title", &cfg.Title, f.title)
	set("body-file", &cfg.BodyFile, f.bodyFile)
	set("workdir", &cfg.Workdir, f.workdir)
	set("provider", &cfg.Provider, f.provider)
	set("model", &cfg.Model, f.model)
	set("vcs", &cfg.VCS, f.vcs)
	if changed("confine-paths") {
		cfg.ConfinePaths = f.confinePaths
	}
	if changed("dry-run") {
		cfg.DryRun = f.dryRun
	}
}

func newGenerator(ctx context.Context, cfg *config.Pipeline) (*oracle.Generator, error) {
	m := metrics.NewOracle()

	var (
		c   oracle.Completer
		err error
	)
	switch cfg.Provider {
	case config.ProviderAnthropic:
		opts := []claudeoracle.Option{
			claudeoracle.WithBaseURL(cfg.AnthropicBaseURL),
			claudeoracle.WithMetrics(m),
		}
		if cfg.Model != "" {
			opts = append(opts, claudeoracle.WithModel(cfg.Model))
		}
		c, err = claudeoracle.New(cfg.AnthropicAPIKey, opts...)
	case config.ProviderGoogle:
		opts := []geminioracle.Option{
			geminioracle.WithBaseURL(cfg.GeminiBaseURL),
			geminioracle.WithMetrics(m),
		}
		if cfg.Model != "" {
			opts = append(opts, geminioracle.WithModel(cfg.Model))
		}
		c, err = geminioracle.New(ctx, cfg.GeminiAPIKey, opts...)
	default:
		opts := []openaioracle.Option{
			openaioracle.WithBaseURL(cfg.OpenAIBaseURL),
			openaioracle.WithMetrics(m),
		}
		if cfg.Model != "" {
			opts = append(opts, openaioracle.WithModel(cfg.Model))
		}
		c, err = openaioracle.New(cfg.OpenAIAPIKey, opts...)
	}
	if err != nil {
		return nil, &config.Error{Field: "provider", Message: "creating " + cfg.Provider + " client", Err: err}
	}
	return oracle.NewGenerator(c)
}

func newVCS(cfg *config.Pipeline) vcs.VersionControl {
	if cfg.VCS == config.VCSGoGit {
		var opts []gogit.Option
		if cfg.GitHubToken != "" {
			opts = append(opts, gogit.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})))
		}
		if cfg.AuthorName != "" {
			opts = append(opts, gogit.WithIdentity(cfg.AuthorName, cfg.AuthorEmail))
		}
		return gogit.New(cfg.Workdir, opts...)
	}

	var opts []gitcli.Option
	if cfg.AuthorName != "" {
		opts = append(opts, gitcli.WithIdentity(cfg.AuthorName, cfg.AuthorEmail))
	}
	return gitcli.New(cfg.Workdir, opts...)
}

// exitCode maps a run error to the process exit status: 2 for configuration
// errors, the git status for version control errors, and 1 otherwise.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var cerr *config.Error
	if errors.As(err, &cerr) {
		return exitConfig
	}
	if code, ok := vcs.ExitCode(err); ok {
		return code
	}
	return 1
}
