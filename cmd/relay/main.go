/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main serves the issue tracker webhook relay.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainguard.dev/autopr/config"
	"chainguard.dev/autopr/relay"
	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadRelay(ctx, nil)
	if err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		clog.FatalContextf(ctx, "validating config: %v", err)
	}

	if cfg.Secret == "" {
		clog.WarnContextf(ctx, "RELAY_SECRET is not set, webhooks will not be authenticated")
	}
	if cfg.ChatbotURL == "" {
		clog.WarnContextf(ctx, "CHATBOT_URL is not set, webhooks will be acknowledged but not forwarded")
	}

	mux := http.NewServeMux()
	mux.Handle("/", relay.NewHandler(
		relay.WithSecret(cfg.TokenHeader, cfg.Secret),
		relay.WithChatbotURL(cfg.ChatbotURL),
	))

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	servers := []*http.Server{{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}, {
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		clog.InfoContextf(ctx, "Listening on %s", srv.Addr)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				clog.ErrorContextf(ctx, "shutting down %s: %v", srv.Addr, err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		clog.FatalContextf(ctx, "server failed: %v", err)
	}
}
