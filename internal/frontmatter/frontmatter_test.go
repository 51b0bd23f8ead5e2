package frontmatter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("CST", 8*3600))

func clock() time.Time { return fixedNow }

func TestVerifySlug(t *testing.T) {
	valid := []string{"a", "hello-world", "ABC-123", "-", "2024-05-06"}
	for _, s := range valid {
		got := Verify(Record{FieldSlug: s})
		assert.True(t, got.Verified, "slug %q", s)
		assert.Empty(t, got.Reason)
	}

	invalid := []string{"hello world", "hello_world", "héllo", "a/b", "slug!", " padded", "中文"}
	for _, s := range invalid {
		got := Verify(Record{FieldSlug: s})
		assert.False(t, got.Verified, "slug %q", s)
		assert.Equal(t, "`slug` can only contain english, number and dash", got.Reason)
	}
}

func TestVerifySlugAlphabet(t *testing.T) {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-"
	for i := 1; i < len(alphabet); i += 7 {
		s := alphabet[:i]
		assert.True(t, Verify(Record{FieldSlug: s}).Verified, s)
		assert.False(t, Verify(Record{FieldSlug: s + "."}).Verified, s+".")
	}
}

func TestVerifyMissingSlugShortCircuits(t *testing.T) {
	cases := []Record{
		{FieldTitle: "x"},
		{FieldSlug: nil, FieldTitle: 42},
		{FieldSlug: "", FieldTags: 3.5},
		{},
	}
	for _, rec := range cases {
		assert.Equal(t, Verification{Reason: "`slug` is required"}, Verify(rec))
	}
}

func TestVerifyFieldOrder(t *testing.T) {
	tests := []struct {
		name   string
		rec    Record
		reason string
	}{
		{"slug type", Record{FieldSlug: 12}, "`slug` must be string"},
		{"title before summary", Record{FieldSlug: "ok", FieldSummary: 1, FieldTitle: 2}, "`title` must be string"},
		{"tags before datetime", Record{FieldSlug: "ok", FieldDatetime: 1, FieldTags: 2}, "`tags` must be string"},
		{"tags separators only", Record{FieldSlug: "ok", FieldTags: " , ,"}, "`tags` must be string, split by comma"},
		{"datetime", Record{FieldSlug: "ok", FieldDatetime: true}, "`datetime` must be date string"},
		{"summary", Record{FieldSlug: "ok", FieldSummary: []any{"a"}}, "`summary` must be string"},
		{"cover", Record{FieldSlug: "ok", FieldCoverImageURL: 7}, "`cover_image_url` must be string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Verify(tt.rec)
			assert.False(t, got.Verified)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestVerifyAccepts(t *testing.T) {
	rec := Record{
		FieldSlug:          "ok",
		FieldTitle:         "Title",
		FieldTags:          []any{"go", "yaml"},
		FieldDatetime:      "not-a-date",
		FieldSummary:       "",
		FieldCoverImageURL: nil,
		"draft":            map[string]any{"nested": 1},
	}
	assert.True(t, Verify(rec).Verified)

	assert.True(t, Verify(Record{FieldSlug: "ok", FieldTags: "   "}).Verified)
	assert.True(t, Verify(Record{FieldSlug: "ok", FieldTags: "a, b ,c"}).Verified)
	assert.True(t, Verify(Record{FieldSlug: "ok", FieldDatetime: fixedNow}).Verified)
}

func TestFormalizeEmptySlug(t *testing.T) {
	_, err := Formalize(Record{FieldSlug: "   "}, "body")
	require.ErrorIs(t, err, ErrEmptySlug)

	_, err = Formalize(Record{}, "body")
	require.ErrorIs(t, err, ErrEmptySlug)
}

func TestFormalizeTrimsFields(t *testing.T) {
	p, err := Formalize(Record{
		FieldSlug:          "  hello ",
		FieldTitle:         "  Hello  ",
		FieldCoverImageURL: " https://cdn/c.png ",
		FieldSummary:       " short ",
	}, "content", WithClock(clock))
	require.NoError(t, err)
	assert.Equal(t, "hello", p.Slug)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, "https://cdn/c.png", p.CoverImageURL)
	assert.Equal(t, "short", p.Summary)
	assert.Equal(t, "content", p.Content)
}

func TestFormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		tags any
		want string
	}{
		{"canonical string unchanged", "go,yaml,quail", "go,yaml,quail"},
		{"string trimmed whole", "  go, yaml  ", "go, yaml"},
		{"sequence", []any{" go ", "", "yaml", 3}, "go,yaml"},
		{"string slice", []string{"a", " b"}, "a,b"},
		{"absent", nil, ""},
		{"other", 12, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Formalize(Record{FieldSlug: "s", FieldTags: tt.tags}, "", WithClock(clock))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Tags)
		})
	}
}

func TestFormalizeTagsIdempotent(t *testing.T) {
	for _, canonical := range []string{"a", "a,b", "go,yaml,quail-ink", "x y,z"} {
		p, err := Formalize(Record{FieldSlug: "s", FieldTags: canonical}, "")
		require.NoError(t, err)
		assert.Equal(t, canonical, p.Tags)

		again, err := Formalize(Record{FieldSlug: "s", FieldTags: p.Tags}, "")
		require.NoError(t, err)
		assert.Equal(t, p.Tags, again.Tags)
	}
}

func TestFormalizeSummaryFromBody(t *testing.T) {
	body := strings.Repeat("a", 200)
	p, err := Formalize(Record{FieldSlug: "s"}, body)
	require.NoError(t, err)
	assert.Len(t, p.Summary, 120)
	assert.Equal(t, strings.Repeat("a", 120), p.Summary)
}

func TestFormalizeSummaryTruncation(t *testing.T) {
	long := strings.Repeat("字", 130)
	p, err := Formalize(Record{FieldSlug: "s", FieldSummary: long}, "body")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("字", 120), p.Summary)

	// "e" followed by a combining acute accent composes into one character.
	decomposed := strings.Repeat("e\u0301", 121)
	p, err = Formalize(Record{FieldSlug: "s", FieldSummary: decomposed}, "body")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("\u00e9", 120), p.Summary)

	p, err = Formalize(Record{FieldSlug: "s", FieldSummary: "   "}, "  from body  ")
	require.NoError(t, err)
	assert.Equal(t, "from body", p.Summary)
}

func TestFormalizeDatetime(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"fallback on garbage", "not-a-date", "2024-05-06T07:08:09+08:00"},
		{"absent", nil, "2024-05-06T07:08:09+08:00"},
		{"rfc3339", "2023-01-02T03:04:05Z", "2023-01-02T03:04:05+00:00"},
		{"rfc3339 offset", "2023-01-02T03:04:05-05:00", "2023-01-02T03:04:05-05:00"},
		{"template layout", "2023-01-02 03:04", "2023-01-02T03:04:00+08:00"},
		{"date only", "2023-01-02", "2023-01-02T00:00:00+08:00"},
		{"slashes", "2023/01/02 10:00", "2023-01-02T10:00:00+08:00"},
		{"time value", time.Date(2022, 2, 2, 2, 2, 2, 0, time.UTC), "2022-02-02T02:02:02+00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Formalize(Record{FieldSlug: "s", FieldDatetime: tt.in}, "", WithClock(clock))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Datetime)
		})
	}
}

func TestFormalizeDatetimeFallbackIsValid(t *testing.T) {
	p, err := Formalize(Record{FieldSlug: "s", FieldDatetime: "not-a-date"}, "")
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339, p.Datetime)
	assert.NoError(t, err)
}

func TestTemplate(t *testing.T) {
	rec := Template("", fixedNow)
	assert.Equal(t, PlaceholderSlug, rec[FieldSlug])
	assert.Equal(t, "2024-05-06 07:08", rec[FieldDatetime])
	assert.Equal(t, PlaceholderSummary, rec[FieldSummary])
	assert.Equal(t, PlaceholderTags, rec[FieldTags])
	assert.Equal(t, "", rec[FieldCoverImageURL])

	rec = Template("Hello, Quail World", fixedNow)
	assert.Equal(t, "hello-quail-world", rec[FieldSlug])
	assert.True(t, Verify(rec).Verified)
}

func TestMergeEmpty(t *testing.T) {
	dst := Record{FieldSlug: "mine", FieldSummary: "", FieldTitle: "T"}
	src := Suggestion{Slug: "theirs", Summary: "sum", Tags: "a,b"}.Record(fixedNow)

	filled := MergeEmpty(dst, src)
	assert.Equal(t, []string{FieldTags, FieldDatetime, FieldSummary}, filled)
	assert.Equal(t, "mine", dst[FieldSlug])
	assert.Equal(t, "sum", dst[FieldSummary])
	assert.Equal(t, "a,b", dst[FieldTags])
	assert.Equal(t, "T", dst[FieldTitle])
	assert.NotContains(t, dst, FieldCoverImageURL)
}

func TestOverwrite(t *testing.T) {
	dst := Record{FieldSlug: "mine", "extra": 1}
	Overwrite(dst, Suggestion{Slug: "theirs", Summary: "s", Tags: "t"}.Record(fixedNow))
	assert.Equal(t, "theirs", dst[FieldSlug])
	assert.Equal(t, 1, dst["extra"])
}

func TestIncomplete(t *testing.T) {
	assert.True(t, Record{FieldSlug: "a", FieldSummary: "b"}.Incomplete())
	assert.False(t, Record{FieldSlug: "a", FieldSummary: "b", FieldTags: []any{}}.Incomplete())
}
