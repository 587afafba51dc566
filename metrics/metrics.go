/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics provides OpenTelemetry instruments for the pipeline. The
// instruments are created from the global meter provider, so they are no-ops
// unless the process installs one.
package metrics

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is shared by every component that records pipeline metrics.
const MeterName = "chainguard.dev/autopr"

// Oracle records token usage of plan generation requests, with the provider
// and model as dimensions.
type Oracle struct {
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	requests         metric.Int64Counter
}

// NewOracle creates the oracle instruments. If an instrument cannot be
// created a warning is logged and a no-op counter is used instead.
func NewOracle() *Oracle {
	meter := otel.Meter(MeterName, metric.WithInstrumentationVersion("1.0.0"))

	promptTokens, err := meter.Int64Counter("genai.token.prompt",
		metric.WithDescription("The number of prompt tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create prompt tokens counter, metrics will be disabled", "error", err)
		promptTokens = noop.Int64Counter{}
	}

	completionTokens, err := meter.Int64Counter("genai.token.completion",
		metric.WithDescription("The number of completion tokens used"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create completion tokens counter, metrics will be disabled", "error", err)
		completionTokens = noop.Int64Counter{}
	}

	requests, err := meter.Int64Counter("genai.requests",
		metric.WithDescription("The number of oracle requests by result"),
		metric.WithUnit("{requests}"))
	if err != nil {
		slog.Warn("Failed to create oracle request counter, metrics will be disabled", "error", err)
		requests = noop.Int64Counter{}
	}

	return &Oracle{
		promptTokens:     promptTokens,
		completionTokens: completionTokens,
		requests:         requests,
	}
}

// RecordTokens records prompt and completion token usage.
func (m *Oracle) RecordTokens(ctx context.Context, provider, model string, promptTokens, completionTokens int64) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
	)
	m.promptTokens.Add(ctx, promptTokens, attrs)
	m.completionTokens.Add(ctx, completionTokens, attrs)
}

// RecordRequest counts one oracle request. status is the HTTP status, or 0
// when no response was received.
func (m *Oracle) RecordRequest(ctx context.Context, provider, model string, status int) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.Int("status", status),
	))
}

// Pipeline counts completed runs by outcome.
type Pipeline struct {
	runs metric.Int64Counter
}

// NewPipeline creates the run counter.
func NewPipeline() *Pipeline {
	meter := otel.Meter(MeterName, metric.WithInstrumentationVersion("1.0.0"))

	runs, err := meter.Int64Counter("autopr.runs",
		metric.WithDescription("The number of pipeline runs by outcome"),
		metric.WithUnit("{runs}"))
	if err != nil {
		slog.Warn("Failed to create run counter, metrics will be disabled", "error", err)
		runs = noop.Int64Counter{}
	}
	return &Pipeline{runs: runs}
}

// RecordRun counts a run that finished with outcome, or failed at stage when
// stage is non-empty.
func (m *Pipeline) RecordRun(ctx context.Context, outcome, stage string) {
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if stage != "" {
		attrs = append(attrs, attribute.String("stage", stage))
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attrs...))
}
