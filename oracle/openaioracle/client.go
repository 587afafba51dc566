/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaioracle implements oracle.Completer with the OpenAI chat
// completions API.
package openaioracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"chainguard.dev/autopr/metrics"
	"chainguard.dev/autopr/oracle"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	provider = "openai"

	// DefaultModel is used when WithModel is not supplied.
	DefaultModel = "gpt-4o-mini"
)

// Option configures a Client.
type Option func(*Client) error

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *Client) error {
		if model == "" {
			return errors.New("model cannot be empty")
		}
		c.model = model
		return nil
	}
}

// WithTemperature sets the sampling temperature. OpenAI accepts 0.0 to 2.0.
func WithTemperature(temp float64) Option {
	return func(c *Client) error {
		if temp < 0.0 || temp > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		c.temperature = temp
		return nil
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) error {
		if url != "" {
			c.requestOpts = append(c.requestOpts, option.WithBaseURL(url))
		}
		return nil
	}
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		c.requestOpts = append(c.requestOpts, option.WithHTTPClient(hc))
		return nil
	}
}

// WithMetrics records token usage and request outcomes.
func WithMetrics(m *metrics.Oracle) Option {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

// Client sends one chat completion request per Complete call.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	metrics     *metrics.Oracle
	requestOpts []option.RequestOption
}

var _ oracle.Completer = (*Client)(nil)

// New constructs a Client authenticated with apiKey.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key cannot be empty")
	}

	c := &Client{
		model:       DefaultModel,
		temperature: oracle.DefaultTemperature,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, c.requestOpts...)
	c.client = openai.NewClient(reqOpts...)

	return c, nil
}

// Complete implements oracle.Completer.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	log := clog.FromContext(ctx)
	log.With("model", c.model, "temperature", c.temperature).Info("Sending chat completion request")

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			c.recordRequest(ctx, apierr.StatusCode)
			return "", &oracle.RequestError{
				Provider: provider,
				Status:   apierr.StatusCode,
				Body:     errorBody(apierr.Response, apierr.RawJSON()),
				Err:      err,
			}
		}
		c.recordRequest(ctx, 0)
		return "", fmt.Errorf("calling openai: %w", err)
	}
	c.recordRequest(ctx, http.StatusOK)

	if c.metrics != nil {
		c.metrics.RecordTokens(ctx, provider, c.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) recordRequest(ctx context.Context, status int) {
	if c.metrics != nil {
		c.metrics.RecordRequest(ctx, provider, c.model, status)
	}
}

// errorBody returns the verbatim response body when the SDK left it
// readable, falling back to the decoded error JSON.
func errorBody(resp *http.Response, fallback string) string {
	if resp != nil && resp.Body != nil {
		if b, err := io.ReadAll(resp.Body); err == nil && len(b) > 0 {
			return string(b)
		}
	}
	return fallback
}
