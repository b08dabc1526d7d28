// Package speech prepares raw text for synthesis. Markdown structure
// is flattened to spoken prose, things no one wants read aloud (URLs,
// code blocks, deep filesystem paths) are dropped, and identifiers are
// unfolded into words a voice can pronounce.
package speech

import (
	"regexp"
	"strings"
	"unicode/utf8"

	runewidth "github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

var (
	urlRe   = regexp.MustCompile(`https?://[^\s<>()\[\]]+`)
	wwwRe   = regexp.MustCompile(`\bwww\.[^\s<>()\[\]]+`)
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// Four or more path segments is machinery, not prose; keep only
	// the basename.
	pathRe = regexp.MustCompile(`(?:^|[\s"'(])(?:/[^/\s]+){4,}/([^/\s]+)`)

	camelRe   = regexp.MustCompile(`([a-z])([A-Z])`)
	acronymRe = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	parenRe   = regexp.MustCompile(`\([^)]*\)`)
	runsRe    = regexp.MustCompile(`[ \t]+`)
	blanksRe  = regexp.MustCompile(`\n{3,}`)
)

// Clean flattens input into speakable prose. Markdown links keep their
// text and lose their destination, inline code is naturalized, fenced
// code blocks, images, and raw HTML are dropped, and bare URLs,
// email addresses, and deep paths disappear. Plain text passes through
// with only whitespace tidying.
func Clean(input string) string {
	source := []byte(input)
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote:
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.CodeSpan:
			b.WriteString(naturalizeCode(string(codeSpanText(t, source))))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink, *ast.Image:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	s := b.String()
	s = urlRe.ReplaceAllString(s, "")
	s = wwwRe.ReplaceAllString(s, "")
	s = emailRe.ReplaceAllString(s, "")
	s = pathRe.ReplaceAllString(s, " $1")
	return tidy(s)
}

// codeSpanText collects the raw text inside a code span.
func codeSpanText(n *ast.CodeSpan, source []byte) []byte {
	var out []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			out = append(out, t.Segment.Value(source)...)
		}
	}
	return out
}

// naturalizeCode unfolds an identifier into pronounceable words:
// "getUserName" becomes "get user name", "parse_args()" becomes
// "parse args". Paths, URLs, and anything too long to be an
// identifier are dropped instead.
func naturalizeCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || utf8.RuneCountInString(code) > 50 {
		return ""
	}
	if strings.ContainsAny(code, `/\`) || strings.Contains(code, "://") {
		return ""
	}
	s := strings.ReplaceAll(code, "_", " ")
	s = camelRe.ReplaceAllString(s, "$1 $2")
	s = acronymRe.ReplaceAllString(s, "$1 $2")
	s = parenRe.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	return strings.TrimSpace(runsRe.ReplaceAllString(s, " "))
}

// tidy collapses space runs, trims line ends, and caps blank runs at
// one empty line.
func tidy(s string) string {
	s = runsRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blanksRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Preview shortens s to at most max display cells on one line, for
// indexes and logs.
func Preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) <= max {
		return s
	}
	return runewidth.Truncate(s, max, "…")
}
