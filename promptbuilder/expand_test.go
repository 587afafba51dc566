/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewPrompt(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     map[string]struct{}
		wantErr  bool
	}{{
		name:     "no bindings",
		template: "Respond with JSON only.",
		want:     map[string]struct{}{},
	}, {
		name:     "repeated binding",
		template: "{{schema}} and again {{ schema }}",
		want:     map[string]struct{}{"schema": {}},
	}, {
		name:     "multiple bindings",
		template: "version {{version}}\n{{schema}}",
		want:     map[string]struct{}{"version": {}, "schema": {}},
	}, {
		name:     "single braces are text",
		template: `{"version": "{{version}}", "changes": []}`,
		want:     map[string]struct{}{"version": {}},
	}, {
		name:     "unclosed",
		template: "{{schema",
		wantErr:  true,
	}, {
		name:     "invalid identifier",
		template: "{{1st}}",
		wantErr:  true,
	}, {
		name:     "empty identifier",
		template: "{{}}",
		wantErr:  true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPrompt(stringLiteral(tt.template))
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewPrompt() error = nil, wanted an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPrompt() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, p.Placeholders()); diff != "" {
				t.Errorf("Placeholders() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsIdentifier(t *testing.T) {
	tests := map[string]bool{
		"schema":      true,
		"plan_v1":     true,
		"Schema2":     true,
		"données":     true,
		"":            false,
		"1st":         false,
		"_private":    false,
		"has space":   false,
		"dash-name":   false,
		"dotted.name": false,
	}
	for in, want := range tests {
		if got := isIdentifier(in); got != want {
			t.Errorf("isIdentifier(%q): got = %t, wanted = %t", in, got, want)
		}
	}
}

func TestExpandUnchangedWithoutBindings(t *testing.T) {
	const in = `{"a": {"b": 1}}`
	got, err := expand(in, func(string) (string, error) {
		t.Fatal("resolve called for a template without bindings")
		return "", nil
	})
	if err != nil {
		t.Fatalf("expand() error = %v", err)
	}
	if got != in {
		t.Errorf("expand(): got = %q, wanted = %q", got, in)
	}
}
