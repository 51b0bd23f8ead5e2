package frontmatter

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// SummaryLength is the maximum number of characters kept in a summary.
const SummaryLength = 120

// DatetimeLayout is the wire format of Payload.Datetime.
const DatetimeLayout = "2006-01-02T15:04:05-07:00"

// ErrEmptySlug is returned by Formalize when the slug is empty after trimming.
var ErrEmptySlug = errors.New("frontmatter: slug is empty")

// Layouts Formalize tries, in order, when parsing a datetime string. Layouts
// without a zone are read in the clock's location.
var inputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
}

// Payload is the canonical post sent to Quail.
type Payload struct {
	Slug          string `json:"slug"`
	Title         string `json:"title,omitempty"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	Summary       string `json:"summary"`
	Tags          string `json:"tags"`
	Datetime      string `json:"datetime"`
	Content       string `json:"content"`
}

type formalizer struct {
	now func() time.Time
}

// Option configures Formalize.
type Option func(*formalizer)

// WithClock overrides the clock used for missing or unparseable datetimes.
func WithClock(now func() time.Time) Option {
	return func(f *formalizer) {
		if now != nil {
			f.now = now
		}
	}
}

// Formalize converts a verified record and the final body into a Payload.
// Call Verify first; Formalize assumes field types are already correct and
// treats anything else as absent.
func Formalize(rec Record, body string, opts ...Option) (*Payload, error) {
	f := formalizer{now: time.Now}
	for _, o := range opts {
		o(&f)
	}

	slug := rec.Trimmed(FieldSlug)
	if slug == "" {
		return nil, ErrEmptySlug
	}

	return &Payload{
		Slug:          slug,
		Title:         rec.Trimmed(FieldTitle),
		CoverImageURL: rec.Trimmed(FieldCoverImageURL),
		Summary:       summary(rec.Trimmed(FieldSummary), body),
		Tags:          TagsOf(rec[FieldTags]).Canonical(),
		Datetime:      f.datetime(rec[FieldDatetime]).Format(DatetimeLayout),
		Content:       body,
	}, nil
}

func (f formalizer) datetime(v any) time.Time {
	now := f.now()
	if t, ok := asTime(v); ok {
		return t
	}
	s, ok := v.(string)
	if !ok {
		return now
	}
	if t, ok := ParseDatetime(s, now.Location()); ok {
		return t
	}
	return now
}

// ParseDatetime parses s with the accepted input layouts. Zone-less values
// are interpreted in loc.
func ParseDatetime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func summary(declared, body string) string {
	if declared != "" {
		return truncate(declared, SummaryLength)
	}
	return truncate(strings.TrimSpace(body), SummaryLength)
}

// truncate keeps the first n characters of s after NFC normalization, so a
// base letter and its combining mark count once.
func truncate(s string, n int) string {
	s = norm.NFC.String(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
