package frontmatter

import (
	"time"

	"github.com/gosimple/slug"
)

// Placeholders written by Template.
const (
	PlaceholderSlug    = "INSERT_YOUR_SLUG_HERE"
	PlaceholderSummary = "INSERT_YOUR_SUMMARY_HERE"
	PlaceholderTags    = "INSERT_YOUR_TAGS_HERE"
)

// TemplateDatetimeLayout is the datetime format of inserted templates.
const TemplateDatetimeLayout = "2006-01-02 15:04"

// Template returns a fresh frontmatter block for a document without one.
// The slug is derived from title when it yields a valid slug.
func Template(title string, now time.Time) Record {
	s := PlaceholderSlug
	if title != "" {
		if derived := slug.Make(title); derived != "" && slugRe.MatchString(derived) {
			s = derived
		}
	}
	return Record{
		FieldSlug:          s,
		FieldDatetime:      now.Format(TemplateDatetimeLayout),
		FieldSummary:       PlaceholderSummary,
		FieldTags:          PlaceholderTags,
		FieldCoverImageURL: "",
	}
}

// Suggestion is metadata proposed by the Quail composer.
type Suggestion struct {
	Slug    string `json:"slug"`
	Summary string `json:"summary"`
	Tags    string `json:"tags"`
}

// Record renders s as a full frontmatter block dated now.
func (s Suggestion) Record(now time.Time) Record {
	return Record{
		FieldSlug:          s.Slug,
		FieldDatetime:      now.Format(TemplateDatetimeLayout),
		FieldSummary:       s.Summary,
		FieldTags:          s.Tags,
		FieldCoverImageURL: "",
	}
}

// MergeEmpty copies every non-empty src value into dst where dst has none.
// It returns the keys it filled, in Fields order.
func MergeEmpty(dst, src Record) []string {
	var filled []string
	for _, key := range Fields {
		v, ok := src[key]
		if !ok || isEmpty(v) || !dst.IsEmpty(key) {
			continue
		}
		dst[key] = v
		filled = append(filled, key)
	}
	return filled
}

// Overwrite copies every src value into dst.
func Overwrite(dst, src Record) {
	for k, v := range src {
		dst[k] = v
	}
}
