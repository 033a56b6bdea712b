// Package htmlmd converts community page HTML into clean Markdown.
//
// Conversion is a pure function of the input: the same HTML and base
// URL always produce the same Markdown. Pages are reduced to their
// main content container, stripped of scripts, navigation chrome, and
// tracking pixels, and link targets are resolved against the page URL
// before the structural mapping to Markdown runs.
package htmlmd

import (
	"fmt"
	stdhtml "html"
	"net/url"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/Laisky/errors/v2"
	"github.com/PuerkitoBio/goquery"
)

// DefaultMaxChars caps returned Markdown unless overridden.
const DefaultMaxChars = 50000

// ErrNotText reports input that is not textual HTML.
var ErrNotText = errors.New("input is not text")

// noiseSelector matches elements that carry no readable content.
var noiseSelector = strings.Join([]string{
	"script", "style", "noscript", "template",
	"nav", "footer", "header", "aside",
	"iframe", "object", "embed",
	"svg", "canvas",
	"form", "button", "input", "select", "textarea",
}, ", ")

// Option configures a Converter.
type Option func(*Converter)

// WithMaxChars overrides how many characters of Markdown are returned
// before the document is cut at a line boundary.
func WithMaxChars(n int) Option {
	return func(c *Converter) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// Converter renders community pages as Markdown. It holds no state
// between calls and is safe for concurrent use.
type Converter struct {
	maxChars int
}

// New constructs a Converter.
func New(opts ...Option) *Converter {
	conv := &Converter{maxChars: DefaultMaxChars}
	for _, opt := range opts {
		if opt != nil {
			opt(conv)
		}
	}
	return conv
}

// Result carries converted Markdown plus truncation metadata.
type Result struct {
	Markdown   string
	TotalChars int
	Truncated  bool
	// NextStartIndex is the document offset to continue reading from.
	// Zero when the document was returned in full.
	NextStartIndex int
	// CurrentSection is the heading path open at the cut point.
	CurrentSection string
	// UpcomingSections lists headings that follow the cut point.
	UpcomingSections []string
}

// Convert renders the page to Markdown from its beginning.
func (c *Converter) Convert(rawHTML, baseURL string) (*Result, error) {
	return c.ConvertFrom(rawHTML, baseURL, 0)
}

// ConvertFrom renders the page to Markdown starting at the given
// character offset of the converted document. Offsets come from the
// NextStartIndex of an earlier call; an offset past the end of the
// document yields an empty result.
func (c *Converter) ConvertFrom(rawHTML, baseURL string, startIndex int) (*Result, error) {
	if strings.ContainsRune(rawHTML, '\x00') || !utf8.ValidString(rawHTML) {
		return nil, errors.WithStack(ErrNotText)
	}

	fragment, err := extractContent(rawHTML, baseURL)
	if err != nil {
		return nil, err
	}

	markdown, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return nil, errors.Wrap(err, "convert html to markdown")
	}
	markdown = normalizeWhitespace(unescapeMarkdown(markdown))

	result := &Result{TotalChars: len(markdown)}
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= len(markdown) {
		return result, nil
	}
	for startIndex > 0 && !utf8.RuneStart(markdown[startIndex]) {
		startIndex++
	}

	window := markdown[startIndex:]
	cut, next, truncated := truncateAtBoundary(window, c.maxChars)
	result.Markdown = cut
	result.Truncated = truncated
	if truncated {
		result.NextStartIndex = startIndex + next
		result.CurrentSection, result.UpcomingSections = sectionContext(markdown, startIndex+len(cut))
	}
	return result, nil
}

// extractContent reduces a page to its main content fragment.
func extractContent(rawHTML, baseURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", errors.Wrap(err, "parse html")
	}

	doc.Find(noiseSelector).Remove()
	dropTrackingPixels(doc)
	resolveReferences(doc, baseURL)

	for _, tag := range []string{"main", "article", "body"} {
		if sel := doc.Find(tag); sel.Length() > 0 {
			fragment, err := goquery.OuterHtml(sel.First())
			if err != nil {
				return "", errors.Wrap(err, "serialize content")
			}
			return fragment, nil
		}
	}
	return rawHTML, nil
}

// dropTrackingPixels removes zero- and one-pixel images.
func dropTrackingPixels(doc *goquery.Document) {
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		width := strings.TrimSpace(img.AttrOr("width", ""))
		height := strings.TrimSpace(img.AttrOr("height", ""))
		if isPixelDimension(width) && isPixelDimension(height) {
			img.Remove()
		}
	})
}

func isPixelDimension(value string) bool {
	return value == "0" || value == "1"
}

// resolveReferences rewrites link and image targets to absolute URLs.
//
// Targets that do not parse as URLs are kept as visible text next to
// their label instead of being dropped, so a reader still sees where
// the author pointed.
func resolveReferences(doc *goquery.Document, baseURL string) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || base.Scheme == "" {
		base = nil
	}

	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href := strings.TrimSpace(anchor.AttrOr("href", ""))
		resolved, ok := resolveRef(base, href)
		if ok {
			anchor.SetAttr("href", resolved)
			return
		}

		label := strings.TrimSpace(anchor.Text())
		var replacement string
		switch {
		case label != "" && href != "":
			replacement = fmt.Sprintf("%s (%s)", label, href)
		case label != "":
			replacement = label
		default:
			replacement = href
		}
		anchor.ReplaceWithHtml(stdhtml.EscapeString(replacement))
	})

	doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		resolved, ok := resolveRef(base, src)
		if ok {
			img.SetAttr("src", resolved)
			return
		}
		if alt := strings.TrimSpace(img.AttrOr("alt", "")); alt != "" {
			img.ReplaceWithHtml(stdhtml.EscapeString(alt))
			return
		}
		img.Remove()
	})
}

// resolveRef absolutizes ref against base, reporting parse failures.
func resolveRef(base *url.URL, ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if parsed.IsAbs() || base == nil {
		return ref, true
	}
	return base.ResolveReference(parsed).String(), true
}

// unescapeMarkdown strips the backslash escapes the structural
// conversion inserts, leaving code spans and fenced blocks untouched.
// Escaping is undone so converted output reads like hand-written
// Markdown and survives a second conversion unchanged.
func unescapeMarkdown(markdown string) string {
	lines := strings.Split(markdown, "\n")
	inFence := false
	for i, line := range lines {
		if isFenceLine(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		lines[i] = unescapeLine(line)
	}
	return strings.Join(lines, "\n")
}

func unescapeLine(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	inCode := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if ch == '`' {
			inCode = !inCode
			b.WriteByte(ch)
			continue
		}
		if !inCode && ch == '\\' && i+1 < len(line) && isEscapable(line[i+1]) {
			b.WriteByte(line[i+1])
			i++
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// isEscapable reports whether ch is CommonMark-escapable punctuation.
func isEscapable(ch byte) bool {
	return strings.IndexByte("\\!\"#$%&'()*+,-./:;<=>?@[]^_`{|}~", ch) >= 0
}

func isFenceLine(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}
