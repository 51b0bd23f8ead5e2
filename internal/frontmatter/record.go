// Package frontmatter validates and formalizes the metadata block of a post.
//
// A Record is the loosely typed mapping decoded from the document's YAML
// block. Verify checks it field by field, Formalize turns a verified Record
// and the final body into the Payload sent to Quail.
package frontmatter

import (
	"strings"
	"time"
)

// Recognized frontmatter keys.
const (
	FieldSlug          = "slug"
	FieldTitle         = "title"
	FieldTags          = "tags"
	FieldDatetime      = "datetime"
	FieldSummary       = "summary"
	FieldCoverImageURL = "cover_image_url"
)

// Fields lists the recognized keys in validation order.
var Fields = []string{
	FieldSlug,
	FieldTitle,
	FieldTags,
	FieldDatetime,
	FieldSummary,
	FieldCoverImageURL,
}

// Record is a document's frontmatter as decoded from YAML. Values keep the
// types the decoder produced; nothing is guaranteed until Verify passes.
type Record map[string]any

// String returns the value at key when it is a string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Trimmed returns the trimmed string at key, or "" for absent and
// non-string values.
func (r Record) Trimmed(key string) string {
	s, _ := r.String(key)
	return strings.TrimSpace(s)
}

// IsEmpty reports whether key is missing, null or the empty string.
func (r Record) IsEmpty(key string) bool {
	return isEmpty(r[key])
}

// Incomplete reports whether any field the composer can suggest is empty.
func (r Record) Incomplete() bool {
	return r.IsEmpty(FieldSlug) || r.IsEmpty(FieldSummary) || r.IsEmpty(FieldTags)
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	}
	return false
}

// TagsKind tells which representation a tags value used.
type TagsKind int

const (
	TagsAbsent TagsKind = iota
	TagsString
	TagsSequence
	TagsInvalid
)

// Tags is the tagged variant behind the `tags` field: either a
// comma-separated string or a sequence of strings.
type Tags struct {
	Kind  TagsKind
	Value string   // TagsString
	Items []string // TagsSequence, non-string elements become ""
}

// TagsOf classifies a raw tags value.
func TagsOf(v any) Tags {
	switch x := v.(type) {
	case nil:
		return Tags{Kind: TagsAbsent}
	case string:
		return Tags{Kind: TagsString, Value: x}
	case []string:
		return Tags{Kind: TagsSequence, Items: append([]string(nil), x...)}
	case []any:
		items := make([]string, len(x))
		for i, item := range x {
			if s, ok := item.(string); ok {
				items[i] = s
			}
		}
		return Tags{Kind: TagsSequence, Items: items}
	}
	return Tags{Kind: TagsInvalid}
}

// Canonical renders the tags as a comma-joined string. Sequence elements are
// trimmed and empty ones dropped; a string is trimmed as a whole.
func (t Tags) Canonical() string {
	switch t.Kind {
	case TagsString:
		return strings.TrimSpace(t.Value)
	case TagsSequence:
		kept := make([]string, 0, len(t.Items))
		for _, item := range t.Items {
			if item = strings.TrimSpace(item); item != "" {
				kept = append(kept, item)
			}
		}
		return strings.Join(kept, ",")
	}
	return ""
}

// asTime accepts the time.Time a YAML decoder may produce for typed targets.
func asTime(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}
