/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package relay forwards issue tracker webhooks to a chatbot endpoint.
//
// The Handler checks a shared secret header, normalizes the JSON body into
// an Event, and posts a Message to the configured chatbot URL. Forwarding
// failures are logged and counted but never returned to the caller.
package relay

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultTokenHeader carries the shared secret.
const DefaultTokenHeader = "X-Relay-Token"

const maxBodyBytes = 1 << 20

var (
	requestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Total number of webhook requests by response code",
		},
		[]string{"code"},
	)

	forwardCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_forwards_total",
			Help: "Total number of events forwarded to the chatbot endpoint by result",
		},
		[]string{"result"},
	)
)

// Option configures a Handler.
type Option func(*Handler)

// WithSecret requires header to equal secret on every request. An empty
// secret disables the check.
func WithSecret(header, secret string) Option {
	return func(h *Handler) {
		if header != "" {
			h.header = header
		}
		h.secret = secret
	}
}

// WithChatbotURL sets the endpoint events are posted to. Forwarding is
// skipped when it is empty.
func WithChatbotURL(url string) Option {
	return func(h *Handler) {
		h.chatbotURL = url
	}
}

// WithHTTPClient overrides the client used to forward events.
func WithHTTPClient(c *http.Client) Option {
	return func(h *Handler) {
		h.client = c
	}
}

// Handler is an http.Handler for issue tracker webhooks.
type Handler struct {
	header     string
	secret     string
	chatbotURL string
	client     *http.Client
}

var _ http.Handler = (*Handler)(nil)

// NewHandler returns a Handler.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{
		header: DefaultTokenHeader,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP responds 401 on a secret mismatch, 500 on an unreadable body or
// a panic, and 200 otherwise.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := clog.FromContext(ctx)

	defer func() {
		if v := recover(); v != nil {
			log.Errorf("Recovered from panic handling webhook: %v", v)
			respond(w, http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodPost {
		respond(w, http.StatusMethodNotAllowed)
		return
	}

	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(h.header)), []byte(h.secret)) != 1 {
		log.Warnf("Rejecting webhook with missing or invalid %s", h.header)
		respond(w, http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Errorf("Failed to read webhook body: %v", err)
		respond(w, http.StatusInternalServerError)
		return
	}

	event, err := Normalize(body)
	if err != nil {
		log.Errorf("Failed to normalize webhook: %v", err)
		respond(w, http.StatusInternalServerError)
		return
	}
	log.With("issue", event.IssueKey, "project", event.ProjectKey).Info("Received webhook")

	if h.chatbotURL == "" {
		log.Info("No chatbot endpoint configured, not forwarding")
		respond(w, http.StatusOK)
		return
	}

	if err := h.forward(ctx, event); err != nil {
		log.Warnf("Failed to forward event %s: %v", event.IssueKey, err)
		forwardCounter.WithLabelValues("error").Inc()
	} else {
		forwardCounter.WithLabelValues("success").Inc()
	}
	respond(w, http.StatusOK)
}

func (h *Handler) forward(ctx context.Context, event Event) error {
	payload, err := json.Marshal(Message{Text: event.Text(), Event: event})
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.chatbotURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to chatbot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("chatbot returned status %d: %s", resp.StatusCode, b)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func respond(w http.ResponseWriter, code int) {
	requestCounter.WithLabelValues(fmt.Sprint(code)).Inc()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, http.StatusText(code))
}
