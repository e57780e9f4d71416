package migration

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NormalizedContent is message text with a leading @mention split off.
type NormalizedContent struct {
	Target string `json:"target,omitempty"`
	Body   string `json:"body"`
}

// Text rejoins the mention and body the way they appeared in the extracted text.
func (c NormalizedContent) Text() string {
	if c.Target == "" {
		return c.Body
	}
	if c.Body == "" {
		return c.Target
	}
	return c.Target + " " + c.Body
}

// RE2 \s is ASCII only; \p{Z} adds NBSP and the ideographic space.
var leadingMention = regexp.MustCompile(`(?s)^(@[^\s\p{Z}]+)[\s\p{Z}]*(.*)$`)

// Normalize extracts visible text from markup-bearing content and splits a leading
// "@target" mention from the rest.
func Normalize(raw string) NormalizedContent {
	if raw == "" {
		return NormalizedContent{}
	}
	text := ExtractText(raw)
	if m := leadingMention.FindStringSubmatch(text); m != nil {
		return NormalizedContent{Target: m[1], Body: m[2]}
	}
	return NormalizedContent{Body: text}
}

// ExtractText returns the concatenated text nodes of an HTML fragment. Script and style
// contents are dropped; <br> becomes a newline and a paragraph opened after earlier
// text starts on a new line.
func ExtractText(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))

	var (
		b    strings.Builder
		skip int
	)
	newline := func() {
		if s := b.String(); len(s) > 0 && s[len(s)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way we keep what was read.
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style:
				if tt == html.StartTagToken {
					skip++
				}
			case atom.Br:
				if skip == 0 {
					b.WriteByte('\n')
				}
			case atom.P:
				if skip == 0 {
					newline()
				}
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style:
				if skip > 0 {
					skip--
				}
			}
		}
	}
}
