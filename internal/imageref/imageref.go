// Package imageref finds the image references embedded in a Markdown body.
//
// Two forms are recognized: path-style `![alt](target)` and Obsidian-style
// embeds `![[target]]`. Nothing else of Markdown is parsed.
package imageref

import (
	"iter"
	"net/url"
	"regexp"
	"strings"
)

// Kind distinguishes the two reference syntaxes.
type Kind int

const (
	// KindPath is `![alt](target)`.
	KindPath Kind = iota
	// KindWiki is `![[target]]`, where target is usually a bare file name.
	KindWiki
)

func (k Kind) String() string {
	if k == KindWiki {
		return "wiki"
	}
	return "path"
}

// imageRe matches both forms; the embed alternative comes first so that
// `![[x]]` is never read as a path-style image with alt text "[x".
var imageRe = regexp.MustCompile(`!\[\[([^\]]+)\]\]|!\[([^\]]*)\]\(([^)]*)\)`)

// Reference is one image mention in a document body.
type Reference struct {
	Raw    string // exact matched substring
	Target string // decoded link target
	Kind   Kind
	Remote bool // target is already an http(s) URL
}

// Name returns the last path segment of the target.
func (r Reference) Name() string {
	return BaseName(r.Target)
}

// Token is a Reference located inside a single line.
type Token struct {
	Reference
	Alt        string
	Start, End int // byte offsets of Raw within the line

	// TargetStart and TargetEnd locate the undecoded target of a
	// path-style token; zero for embeds.
	TargetStart, TargetEnd int
}

// Tokens returns every image reference found in line, in order of appearance.
// Remote references are included and flagged. Malformed or empty syntax is
// simply not matched.
func Tokens(line string) []Token {
	matches := imageRe.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]Token, 0, len(matches))
	for _, m := range matches {
		tok := Token{Start: m[0], End: m[1]}
		tok.Raw = line[m[0]:m[1]]
		var target string
		if m[2] >= 0 {
			tok.Kind = KindWiki
			target = wikiTarget(line[m[2]:m[3]])
		} else {
			tok.Kind = KindPath
			tok.Alt = line[m[4]:m[5]]
			inner := line[m[6]:m[7]]
			target = pathTarget(inner)
			tok.TargetStart = m[6] + strings.Index(inner, target)
			tok.TargetEnd = tok.TargetStart + len(target)
		}
		if target == "" {
			continue
		}
		tok.Target = Decode(target)
		tok.Remote = IsRemote(tok.Target)
		out = append(out, tok)
	}
	return out
}

// Scan yields the resolvable image references of body in order of first
// appearance. Remote references need no upload and are left out. The
// sequence re-scans body on every iteration.
func Scan(body string) iter.Seq[Reference] {
	return func(yield func(Reference) bool) {
		for _, line := range Lines(body) {
			for _, tok := range Tokens(strings.TrimSpace(line)) {
				if tok.Remote {
					continue
				}
				if !yield(tok.Reference) {
					return
				}
			}
		}
	}
}

// Lines splits body into lines, tolerating CRLF endings.
func Lines(body string) []string {
	return strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
}

// IsRemote reports whether target is an absolute http(s) URL.
func IsRemote(target string) bool {
	lower := strings.ToLower(strings.TrimSpace(target))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Decode percent-decodes target, returning it unchanged when it is not
// validly encoded.
func Decode(target string) string {
	decoded, err := url.PathUnescape(target)
	if err != nil {
		return target
	}
	return decoded
}

// BaseName returns the segment after the last slash, or target itself.
func BaseName(target string) string {
	if i := strings.LastIndexAny(target, `/\`); i >= 0 {
		return target[i+1:]
	}
	return target
}

// pathTarget strips angle brackets and an optional quoted title.
func pathTarget(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "<") {
		if end := strings.Index(raw, ">"); end > 0 {
			return strings.TrimSpace(raw[1:end])
		}
	}
	if i := strings.IndexAny(raw, " \t"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

// wikiTarget drops the `|size` or `|alias` suffix of an embed.
func wikiTarget(raw string) string {
	if i := strings.Index(raw, "|"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}
