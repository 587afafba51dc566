/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudeoracle implements oracle.Completer with the Anthropic
// messages API.
package claudeoracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chainguard.dev/autopr/metrics"
	"chainguard.dev/autopr/oracle"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chainguard-dev/clog"
)

const (
	provider = "anthropic"

	// DefaultModel is used when WithModel is not supplied.
	DefaultModel = "claude-sonnet-4-5"

	// DefaultMaxTokens bounds the length of a response.
	DefaultMaxTokens = 8192
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

// WithMaxTokens sets the maximum tokens for responses.
func WithMaxTokens(tokens int64) Option {
	return func(c *Client) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		c.maxTokens = tokens
		return nil
	}
}

// WithTemperature sets the temperature for responses.
// Claude models support temperature values from 0.0 to 1.0.
func WithTemperature(temp float64) Option {
	return func(c *Client) error {
		if temp < 0.0 || temp > 1.0 {
			return fmt.Errorf("temperature must be between 0.0 and 1.0, got %f", temp)
		}
		c.temperature = temp
		return nil
	}
}

// WithBaseURL points the client at a different messages endpoint.
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

// Client sends one messages request per Complete call.
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
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
		maxTokens:   DefaultMaxTokens,
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
	c.client = anthropic.NewClient(reqOpts...)

	return c, nil
}

// Complete implements oracle.Completer. The text blocks of the response are
// concatenated in order.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	log := clog.FromContext(ctx)
	log.With("model", c.model, "max_tokens", c.maxTokens).Info("Sending messages request")

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(user))},
		Temperature: anthropic.Float(c.temperature),
	})
	if err != nil {
		var apierr *anthropic.Error
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
		return "", fmt.Errorf("calling anthropic: %w", err)
	}
	c.recordRequest(ctx, http.StatusOK)

	if c.metrics != nil {
		c.metrics.RecordTokens(ctx, provider, c.model, msg.Usage.InputTokens, msg.Usage.OutputTokens)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("no text content in response")
	}
	return sb.String(), nil
}

func (c *Client) recordRequest(ctx context.Context, status int) {
	if c.metrics != nil {
		c.metrics.RecordRequest(ctx, provider, c.model, status)
	}
}

func errorBody(resp *http.Response, fallback string) string {
	if resp != nil && resp.Body != nil {
		if b, err := io.ReadAll(resp.Body); err == nil && len(b) > 0 {
			return string(b)
		}
	}
	return fallback
}
