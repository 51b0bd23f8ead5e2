package frontmatter

import (
	"regexp"
	"strings"
)

var (
	slugRe = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
	tagRe  = regexp.MustCompile(`\s*([^\s,]+)\s*(?:,\s*|$)`)
)

// Verification is the outcome of Verify. Reason is empty when Verified.
type Verification struct {
	Verified bool   `json:"verified"`
	Reason   string `json:"reason,omitempty"`
}

type rule func(v any) string

var rules = map[string]rule{
	FieldSlug: func(v any) string {
		s, ok := v.(string)
		if !ok {
			return "`slug` must be string"
		}
		if !slugRe.MatchString(s) {
			return "`slug` can only contain english, number and dash"
		}
		return ""
	},
	FieldTitle: stringRule("`title` must be string"),
	FieldTags: func(v any) string {
		switch TagsOf(v).Kind {
		case TagsSequence:
			return ""
		case TagsString:
			trimmed := strings.TrimSpace(v.(string))
			if trimmed == "" || tagRe.MatchString(trimmed) {
				return ""
			}
			return "`tags` must be string, split by comma"
		}
		return "`tags` must be string"
	},
	FieldDatetime: func(v any) string {
		if _, ok := v.(string); ok {
			return ""
		}
		if _, ok := asTime(v); ok {
			return ""
		}
		return "`datetime` must be date string"
	},
	FieldSummary:       stringRule("`summary` must be string"),
	FieldCoverImageURL: stringRule("`cover_image_url` must be string"),
}

func stringRule(reason string) rule {
	return func(v any) string {
		if _, ok := v.(string); ok {
			return ""
		}
		return reason
	}
}

// Verify checks rec and reports the first failing field. A missing slug is
// checked before anything else. The remaining recognized fields are checked
// in the order of Fields; null values count as absent and unknown keys are
// ignored. Verify never panics on malformed input.
func Verify(rec Record) Verification {
	if rec.IsEmpty(FieldSlug) {
		return Verification{Reason: "`slug` is required"}
	}
	for _, field := range Fields {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		if reason := rules[field](v); reason != "" {
			return Verification{Reason: reason}
		}
	}
	return Verification{Verified: true}
}
