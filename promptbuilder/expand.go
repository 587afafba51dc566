/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// expand copies template, replacing each {{name}} with resolve(name).
func expand(template string, resolve func(name string) (string, error)) (string, error) {
	var sb strings.Builder
	for {
		start := strings.Index(template, "{{")
		if start < 0 {
			sb.WriteString(template)
			return sb.String(), nil
		}
		sb.WriteString(template[:start])

		rest := template[start+2:]
		end := strings.Index(rest, "}}")
		if end < 0 {
			return "", errors.New("unclosed binding: missing '}}'")
		}
		name := strings.TrimSpace(rest[:end])
		if !isIdentifier(name) {
			return "", fmt.Errorf("invalid binding identifier %q", name)
		}
		v, err := resolve(name)
		if err != nil {
			return "", err
		}
		sb.WriteString(v)
		template = rest[end+2:]
	}
}

// isIdentifier reports whether s is a letter followed by letters, digits or
// underscores.
func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '_'):
		default:
			return false
		}
	}
	return s != ""
}
