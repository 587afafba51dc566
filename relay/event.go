/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package relay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidPayload is returned for a request body that is not JSON.
var ErrInvalidPayload = errors.New("payload is not valid JSON")

// Event is the normalized form of an issue tracker webhook.
type Event struct {
	IssueKey    string `json:"issueKey"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	URL         string `json:"url"`
	ProjectKey  string `json:"projectKey"`
	UpdatedBy   string `json:"updatedBy"`
}

// Message is the payload posted to the chatbot endpoint.
type Message struct {
	Text  string `json:"text"`
	Event Event  `json:"event"`
}

// Normalize extracts an Event from a Jira-shaped webhook body. Missing
// fields are left empty.
func Normalize(body []byte) (Event, error) {
	if !gjson.ValidBytes(body) {
		return Event{}, ErrInvalidPayload
	}
	r := gjson.ParseBytes(body)
	if !r.IsObject() {
		return Event{}, ErrInvalidPayload
	}

	return Event{
		IssueKey:    r.Get("issue.key").String(),
		Summary:     r.Get("issue.fields.summary").String(),
		Description: r.Get("issue.fields.description").String(),
		URL:         r.Get("issue.self").String(),
		ProjectKey:  r.Get("issue.fields.project.key").String(),
		UpdatedBy:   r.Get("user.displayName").String(),
	}, nil
}

// Text renders a one-line summary of e followed by its URL.
func (e Event) Text() string {
	var sb strings.Builder
	key := e.IssueKey
	if key == "" {
		key = "Issue"
	}
	sb.WriteString(key)
	if e.UpdatedBy != "" {
		fmt.Fprintf(&sb, " updated by %s", e.UpdatedBy)
	} else {
		sb.WriteString(" updated")
	}
	if e.Summary != "" {
		fmt.Fprintf(&sb, ": %s", e.Summary)
	}
	if e.URL != "" {
		fmt.Fprintf(&sb, "\n%s", e.URL)
	}
	return sb.String()
}
