/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const jiraPayload = `{
  "webhookEvent": "jira:issue_updated",
  "user": {"displayName": "Ada Lovelace"},
  "issue": {
    "key": "ENG-42",
    "self": "https://jira.example.com/rest/api/2/issue/10042",
    "fields": {
      "summary": "Add a contributing guide",
      "description": "We need docs for new contributors.",
      "project": {"key": "ENG"}
    }
  }
}`

type chatbot struct {
	srv      *httptest.Server
	calls    atomic.Int32
	messages chan Message
	status   int
}

func newChatbot(t *testing.T, status int) *chatbot {
	t.Helper()
	c := &chatbot{messages: make(chan Message, 1), status: status}
	c.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls.Add(1)
		var m Message
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			t.Errorf("decoding forwarded message: %v", err)
		}
		select {
		case c.messages <- m:
		default:
		}
		w.WriteHeader(c.status)
	}))
	t.Cleanup(c.srv.Close)
	return c
}

func post(t *testing.T, h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerForwards(t *testing.T) {
	bot := newChatbot(t, http.StatusOK)
	before := testutil.ToFloat64(forwardCounter.WithLabelValues("success"))

	h := NewHandler(WithSecret("", "s3cret"), WithChatbotURL(bot.srv.URL))
	rec := post(t, h, jiraPayload, map[string]string{DefaultTokenHeader: "s3cret"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if got := bot.calls.Load(); got != 1 {
		t.Fatalf("chatbot calls: got %d, want 1", got)
	}

	got := <-bot.messages
	want := Message{
		Text: "ENG-42 updated by Ada Lovelace: Add a contributing guide\nhttps://jira.example.com/rest/api/2/issue/10042",
		Event: Event{
			IssueKey:    "ENG-42",
			Summary:     "Add a contributing guide",
			Description: "We need docs for new contributors.",
			URL:         "https://jira.example.com/rest/api/2/issue/10042",
			ProjectKey:  "ENG",
			UpdatedBy:   "Ada Lovelace",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("forwarded message mismatch (-want +got):\n%s", diff)
	}

	if delta := testutil.ToFloat64(forwardCounter.WithLabelValues("success")) - before; delta != 1 {
		t.Errorf("success forwards: got delta %v, want 1", delta)
	}
}

func TestHandlerRejectsBadToken(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "missing header"},
		{name: "wrong token", headers: map[string]string{"X-Hook-Token": "nope"}},
		{name: "token in default header", headers: map[string]string{DefaultTokenHeader: "s3cret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot := newChatbot(t, http.StatusOK)
			before := testutil.ToFloat64(requestCounter.WithLabelValues("401"))

			h := NewHandler(WithSecret("X-Hook-Token", "s3cret"), WithChatbotURL(bot.srv.URL))
			rec := post(t, h, jiraPayload, tt.headers)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want 401", rec.Code)
			}
			if got := bot.calls.Load(); got != 0 {
				t.Errorf("chatbot calls: got %d, want 0", got)
			}
			if delta := testutil.ToFloat64(requestCounter.WithLabelValues("401")) - before; delta != 1 {
				t.Errorf("401 responses: got delta %v, want 1", delta)
			}
		})
	}
}

func TestHandlerWithoutSecretAcceptsAnyToken(t *testing.T) {
	bot := newChatbot(t, http.StatusOK)
	h := NewHandler(WithChatbotURL(bot.srv.URL))

	if rec := post(t, h, jiraPayload, nil); rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
	if got := bot.calls.Load(); got != 1 {
		t.Errorf("chatbot calls: got %d, want 1", got)
	}
}

func TestHandlerUnconfiguredChatbot(t *testing.T) {
	var outbound atomic.Int32
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		outbound.Add(1)
		return nil, io.EOF
	})}

	h := NewHandler(WithSecret("", "s3cret"), WithHTTPClient(client))
	rec := post(t, h, jiraPayload, map[string]string{DefaultTokenHeader: "s3cret"})

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
	if got := outbound.Load(); got != 0 {
		t.Errorf("outbound calls: got %d, want 0", got)
	}
}

func TestHandlerDownstreamFailureIsNotSurfaced(t *testing.T) {
	bot := newChatbot(t, http.StatusBadGateway)
	before := testutil.ToFloat64(forwardCounter.WithLabelValues("error"))

	h := NewHandler(WithChatbotURL(bot.srv.URL))
	rec := post(t, h, jiraPayload, nil)

	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
	if got := bot.calls.Load(); got != 1 {
		t.Errorf("chatbot calls: got %d, want 1", got)
	}
	if delta := testutil.ToFloat64(forwardCounter.WithLabelValues("error")) - before; delta != 1 {
		t.Errorf("error forwards: got delta %v, want 1", delta)
	}
}

func TestHandlerInternalErrors(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		bot := newChatbot(t, http.StatusOK)
		h := NewHandler(WithChatbotURL(bot.srv.URL))
		if rec := post(t, h, "not json", nil); rec.Code != http.StatusInternalServerError {
			t.Errorf("status: got %d, want 500", rec.Code)
		}
		if got := bot.calls.Load(); got != 0 {
			t.Errorf("chatbot calls: got %d, want 0", got)
		}
	})

	t.Run("panic", func(t *testing.T) {
		client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			panic("transport exploded")
		})}
		h := NewHandler(WithChatbotURL("http://chatbot.invalid"), WithHTTPClient(client))
		if rec := post(t, h, jiraPayload, nil); rec.Code != http.StatusInternalServerError {
			t.Errorf("status: got %d, want 500", rec.Code)
		}
	})
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rec.Code)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
