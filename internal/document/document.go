// Package document splits a Markdown file into its frontmatter and body and
// renders frontmatter back into the file.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/quailpub/internal/frontmatter"
)

const delim = "---"

// ErrInvalidFrontmatter is returned when the frontmatter block is not a
// YAML mapping.
var ErrInvalidFrontmatter = errors.New("document: invalid frontmatter")

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// Snapshot is a read-only view of a document taken when an action starts.
type Snapshot struct {
	Path  string // vault path
	Title string // file name without .md
	Raw   string

	// Record is nil when the document has no frontmatter block.
	Record frontmatter.Record
	// EndLine is the index of the closing delimiter line, -1 without
	// frontmatter.
	EndLine int
	Body    string
	// Links are the wikilink targets of the body, embeds included.
	Links []string
}

// HasFrontmatter reports whether the document starts with a frontmatter block.
func (s *Snapshot) HasFrontmatter() bool {
	return s.EndLine >= 0
}

// Dir is the vault directory holding the document, "." at the root.
func (s *Snapshot) Dir() string {
	return path.Dir(s.Path)
}

// Load parses raw as the document stored at p.
func Load(p string, raw []byte) (*Snapshot, error) {
	text := string(raw)
	snap := &Snapshot{
		Path:    p,
		Title:   strings.TrimSuffix(path.Base(p), ".md"),
		Raw:     text,
		EndLine: -1,
		Body:    text,
	}

	lines := strings.Split(text, "\n")
	end := closingLine(lines)
	if end < 0 {
		snap.Links = extractLinks(snap.Body)
		return snap, nil
	}

	rec := frontmatter.Record{}
	var block strings.Builder
	for _, line := range lines[1:end] {
		block.WriteString(strings.TrimSuffix(line, "\r"))
		block.WriteByte('\n')
	}
	if err := yaml.Unmarshal([]byte(block.String()), &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFrontmatter, p, err)
	}
	if rec == nil {
		rec = frontmatter.Record{}
	}

	snap.Record = rec
	snap.EndLine = end
	snap.Body = strings.Join(lines[end+1:], "\n")
	snap.Links = extractLinks(snap.Body)
	return snap, nil
}

// closingLine returns the index of the line closing a frontmatter block that
// opens on the first line, or -1.
func closingLine(lines []string) int {
	if len(lines) < 2 || strings.TrimRight(lines[0], " \t\r") != delim {
		return -1
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " \t\r") == delim {
			return i
		}
	}
	return -1
}

// WithFrontmatter renders the document with rec as its frontmatter block.
// An existing block is replaced; otherwise the block is prepended. The body
// is kept byte for byte.
func (s *Snapshot) WithFrontmatter(rec frontmatter.Record) ([]byte, error) {
	block, err := Render(rec)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(block)
	if s.HasFrontmatter() {
		buf.WriteString(s.Body)
	} else {
		buf.WriteString(s.Raw)
	}
	return buf.Bytes(), nil
}

// Render encodes rec as a delimited YAML block. Recognized fields come
// first in their canonical order, other keys follow sorted.
func Render(rec frontmatter.Record) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range orderedKeys(rec) {
		var value yaml.Node
		if err := value.Encode(rec[key]); err != nil {
			return nil, fmt.Errorf("document: encode %s: %w", key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&value,
		)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	if len(node.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(node); err != nil {
			return nil, fmt.Errorf("document: encode frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("document: encode frontmatter: %w", err)
		}
	}
	buf.WriteString(delim + "\n")
	return buf.Bytes(), nil
}

func orderedKeys(rec frontmatter.Record) []string {
	keys := make([]string, 0, len(rec))
	known := make(map[string]bool, len(frontmatter.Fields))
	for _, f := range frontmatter.Fields {
		known[f] = true
		if _, ok := rec[f]; ok {
			keys = append(keys, f)
		}
	}
	var rest []string
	for k := range rec {
		if !known[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// extractLinks returns the distinct wikilink targets of body with aliases
// and sizes removed.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		if i := strings.Index(target, "#"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}
