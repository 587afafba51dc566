/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package geminioracle implements oracle.Completer with the Gemini
// generateContent API.
package geminioracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chainguard.dev/autopr/metrics"
	"chainguard.dev/autopr/oracle"
	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"
)

const (
	provider = "google"

	// DefaultModel is used when WithModel is not supplied.
	DefaultModel = "gemini-2.5-flash"
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

// WithTemperature sets the sampling temperature. Gemini accepts 0.0 to 2.0.
func WithTemperature(temp float32) Option {
	return func(c *Client) error {
		if temp < 0.0 || temp > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		c.temperature = temp
		return nil
	}
}

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) error {
		c.baseURL = url
		return nil
	}
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = hc
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

// Client sends one generateContent request per Complete call.
type Client struct {
	client      *genai.Client
	model       string
	temperature float32
	baseURL     string
	httpClient  *http.Client
	metrics     *metrics.Oracle
}

var _ oracle.Completer = (*Client)(nil)

// New constructs a Client for the Gemini API authenticated with apiKey.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
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

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	c.client = client

	return c, nil
}

// Complete implements oracle.Completer.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	log := clog.FromContext(ctx)
	log.With("model", c.model, "temperature", c.temperature).Info("Sending generateContent request")

	temperature := c.temperature
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(user), &genai.GenerateContentConfig{
		Temperature: &temperature,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	})
	if err != nil {
		if rerr := requestError(err); rerr != nil {
			c.recordRequest(ctx, rerr.Status)
			return "", rerr
		}
		c.recordRequest(ctx, 0)
		return "", fmt.Errorf("calling gemini: %w", err)
	}
	c.recordRequest(ctx, http.StatusOK)

	if c.metrics != nil && resp.UsageMetadata != nil {
		c.metrics.RecordTokens(ctx, provider, c.model, int64(resp.UsageMetadata.PromptTokenCount), int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no content generated - no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
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

// requestError converts the genai API error, which carries the decoded
// error object rather than the raw body, into an *oracle.RequestError.
func requestError(err error) *oracle.RequestError {
	var apierr genai.APIError
	if !errors.As(err, &apierr) {
		var p *genai.APIError
		if !errors.As(err, &p) || p == nil {
			return nil
		}
		apierr = *p
	}
	body, merr := json.Marshal(apierr)
	if merr != nil {
		body = []byte(apierr.Message)
	}
	return &oracle.RequestError{
		Provider: provider,
		Status:   apierr.Code,
		Body:     string(body),
		Err:      err,
	}
}
