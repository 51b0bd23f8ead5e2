// Package rewrite replaces local image references with their uploaded URLs.
package rewrite

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/quailpub/internal/imageref"
)

// ErrLengthMismatch is returned by NewMapping when the old and new URL
// slices differ in length.
var ErrLengthMismatch = errors.New("rewrite: old and new url counts differ")

// Entry is the replacement for one original reference target.
type Entry struct {
	NewURL string
	Used   bool
}

// Mapping maps an original reference target to its replacement.
type Mapping map[string]*Entry

// NewMapping pairs oldURLs[i] with newURLs[i].
func NewMapping(oldURLs, newURLs []string) (Mapping, error) {
	if len(oldURLs) != len(newURLs) {
		return nil, fmt.Errorf("%w: %d old, %d new", ErrLengthMismatch, len(oldURLs), len(newURLs))
	}
	m := make(Mapping, len(oldURLs))
	for i, old := range oldURLs {
		m[old] = &Entry{NewURL: newURLs[i]}
	}
	return m, nil
}

// Rewrite builds a mapping from the paired slices and applies it to body.
// When the slices differ in length nothing is rewritten: the mismatch is
// logged and body is returned as is.
func Rewrite(body string, oldURLs, newURLs []string, logger *slog.Logger) string {
	m, err := NewMapping(oldURLs, newURLs)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("rewrite skipped", slog.String("error", err.Error()))
		return body
	}
	return Apply(body, m)
}

type edit struct {
	start, end int
	text       string
}

type deferred struct {
	line int
	tok  imageref.Token
	base int
}

// Apply rewrites the image references of body found in m and marks the
// entries it consumes. Lines are matched on their trimmed content and edited
// in place, so indentation and line endings survive.
//
// Path-style references and wiki embeds are first looked up by exact target.
// Wiki embeds that miss are retried against the unused entries whose key ends
// with the embed name; see pick for the tie-break. References without a
// match are left untouched.
func Apply(body string, m Mapping) string {
	lines := strings.Split(body, "\n")
	edits := make([][]edit, len(lines))
	var pending []deferred

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		base := strings.Index(line, trimmed)
		for _, tok := range imageref.Tokens(trimmed) {
			entry, ok := m[tok.Target]
			if !ok {
				if tok.Kind == imageref.KindWiki {
					pending = append(pending, deferred{line: i, tok: tok, base: base})
				}
				continue
			}
			entry.Used = true
			edits[i] = append(edits[i], replacement(tok, base, entry.NewURL))
		}
	}

	for _, d := range pending {
		key, ok := pick(m, d.tok.Target)
		if !ok {
			continue
		}
		entry := m[key]
		entry.Used = true
		edits[d.line] = append(edits[d.line], replacement(d.tok, d.base, entry.NewURL))
	}

	for i, es := range edits {
		if len(es) > 0 {
			lines[i] = applyEdits(lines[i], es)
		}
	}
	return strings.Join(lines, "\n")
}

// replacement swaps only the target of a path-style token, keeping its
// title and angle brackets. Embeds become path-style images named after
// their file.
func replacement(tok imageref.Token, base int, newURL string) edit {
	if tok.Kind == imageref.KindPath {
		return edit{start: base + tok.TargetStart, end: base + tok.TargetEnd, text: newURL}
	}
	return edit{
		start: base + tok.Start,
		end:   base + tok.End,
		text:  "![" + tok.Name() + "](" + newURL + ")",
	}
}

func applyEdits(line string, es []edit) string {
	sort.Slice(es, func(i, j int) bool { return es[i].start < es[j].start })
	var b strings.Builder
	last := 0
	for _, e := range es {
		b.WriteString(line[last:e.start])
		b.WriteString(e.text)
		last = e.end
	}
	b.WriteString(line[last:])
	return b.String()
}

// pick chooses the unused key ending with name. Keys where name starts a
// path segment beat plain suffix matches; after that the shortest key wins,
// then the lexicographically smallest.
func pick(m Mapping, name string) (string, bool) {
	var (
		best      string
		bestBound bool
		found     bool
	)
	for key, entry := range m {
		if entry.Used || !strings.HasSuffix(key, name) {
			continue
		}
		bound := onBoundary(key, name)
		if !found || better(key, bound, best, bestBound) {
			best, bestBound, found = key, bound, true
		}
	}
	return best, found
}

func better(key string, bound bool, best string, bestBound bool) bool {
	if bound != bestBound {
		return bound
	}
	if len(key) != len(best) {
		return len(key) < len(best)
	}
	return key < best
}

func onBoundary(key, name string) bool {
	if len(key) == len(name) {
		return true
	}
	c := key[len(key)-len(name)-1]
	return c == '/' || c == '\\'
}
