/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package pipeline

import (
	"strings"
	"text/template"
)

const (
	// BranchPrefix is prepended to derived feature branch names.
	BranchPrefix = "auto/"

	// TitlePrefix starts every derived commit message and PR title.
	TitlePrefix = "Auto: "

	maxSlugLength  = 40
	maxTitleLength = 60
	fallbackSlug   = "change"
)

// Slugify derives a branch-safe token from s: lower-case ASCII letters and
// digits separated by single hyphens, no leading or trailing hyphen, at most
// 40 characters. An empty result becomes "change".
func Slugify(s string) string {
	var sb strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(s) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			sb.WriteRune(r)
			hyphen = false
			continue
		}
		if !hyphen {
			sb.WriteByte('-')
			hyphen = true
		}
	}

	slug := strings.Trim(sb.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// BranchName returns override when set, otherwise auto/<slug>.
func BranchName(override, instruction string) string {
	if override != "" {
		return override
	}
	return BranchPrefix + Slugify(instruction)
}

// CommitTitle is the commit message and default PR title for instruction.
func CommitTitle(instruction string) string {
	r := []rune(strings.TrimSpace(instruction))
	if len(r) <= maxTitleLength {
		return TitlePrefix + string(r)
	}
	return TitlePrefix + string(r[:maxTitleLength]) + "..."
}

var bodyTemplate = template.Must(template.New("body").Parse(`This pull request was generated automatically from an instruction.

**Base branch:** ` + "`{{.Base}}`" + `

### Instruction

{{.Instruction}}
`))

// DefaultBody renders the PR body used when no body file is supplied.
func DefaultBody(instruction, base string) string {
	var sb strings.Builder
	// The template only references string fields, so Execute cannot fail.
	_ = bodyTemplate.Execute(&sb, struct {
		Instruction string
		Base        string
	}{
		Instruction: strings.TrimSpace(instruction),
		Base:        base,
	})
	return sb.String()
}
