/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package plan

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *ChangePlan
		wantErr bool
	}{{
		name:  "single change",
		input: `{"changes":[{"path":"a.txt","action":"create_or_update","content":"hi"}]}`,
		want: &ChangePlan{Changes: []ChangeItem{{
			Path: "a.txt", Action: ActionCreateOrUpdate, Content: "hi",
		}}},
	}, {
		name:  "explicit version",
		input: `{"version":"1","changes":[]}`,
		want:  &ChangePlan{Version: "1", Changes: []ChangeItem{}},
	}, {
		name:  "absent changes",
		input: `{}`,
		want:  &ChangePlan{},
	}, {
		name:  "null changes",
		input: `{"changes":null}`,
		want:  &ChangePlan{},
	}, {
		name:  "invalid items still parse",
		input: `{"changes":[{"action":"delete","path":"x"},{"content":"y"}]}`,
		want: &ChangePlan{Changes: []ChangeItem{
			{Path: "x", Action: "delete"},
			{Content: "y"},
		}},
	}, {
		name:    "prose around json",
		input:   "Here you go:\n{\"changes\":[]}",
		wantErr: true,
	}, {
		name:    "code fenced json",
		input:   "```json\n{\"changes\":[]}\n```",
		wantErr: true,
	}, {
		name:    "truncated",
		input:   `{"changes":[{"path":"a"`,
		wantErr: true,
	}, {
		name:    "unsupported version",
		input:   `{"version":"2","changes":[]}`,
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				var perr *ParseError
				if !errors.As(err, &perr) {
					t.Fatalf("expected *ParseError, got %v", err)
				}
				if perr.Raw != tt.input {
					t.Errorf("Raw: got %q, want %q", perr.Raw, tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChangePlanEmpty(t *testing.T) {
	var nilPlan *ChangePlan
	if !nilPlan.Empty() {
		t.Error("nil plan should be empty")
	}
	if !(&ChangePlan{}).Empty() {
		t.Error("plan without changes should be empty")
	}
	if (&ChangePlan{Changes: []ChangeItem{{}}}).Empty() {
		t.Error("plan with an item should not be empty")
	}
}

func TestChangeItemValidate(t *testing.T) {
	tests := []struct {
		name string
		item ChangeItem
		want error
	}{{
		name: "valid",
		item: ChangeItem{Path: "a", Action: ActionCreateOrUpdate},
	}, {
		name: "valid with empty content",
		item: ChangeItem{Path: "a", Action: ActionCreateOrUpdate, Content: ""},
	}, {
		name: "missing path",
		item: ChangeItem{Action: ActionCreateOrUpdate, Content: "x"},
		want: ErrMissingPath,
	}, {
		name: "unknown action",
		item: ChangeItem{Path: "a", Action: "delete"},
		want: ErrUnsupportedAction,
	}, {
		name: "missing action",
		item: ChangeItem{Path: "a"},
		want: ErrUnsupportedAction,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	b, err := json.Marshal(Schema())
	if err != nil {
		t.Fatalf("marshaling schema: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"changes"`, `"path"`, `"action"`, `"content"`, `"create_or_update"`} {
		if !strings.Contains(s, want) {
			t.Errorf("schema missing %s:\n%s", want, s)
		}
	}
}
