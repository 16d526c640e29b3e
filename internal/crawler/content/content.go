// Package content turns a fetched Wikipedia article page into clean,
// storable text: strip navigation chrome, excise non-prose boxes, trim
// everything from the first appendix heading onward, selectively render a
// handful of inline tags, and collapse whitespace. Grounded on the
// teacher's content_processor.go (goquery tree walk, selective per-tag
// handling, whitespace cleanup), narrowed from general-purpose HTML→Markdown
// conversion to Wikipedia's specific article-body conventions.
package content

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// appendixHeadings mark the start of the "back matter" of an article —
// everything from the first of these onward is dropped.
var appendixHeadings = map[string]bool{
	"see also":        true,
	"references":      true,
	"external links":  true,
	"further reading": true,
	"notes":           true,
	"bibliography":    true,
	"gallery":         true,
}

// excisedSelectors remove elements that are never article prose: edit
// links, navigation boxes, infoboxes, reference lists, and Wikipedia's
// internal maintenance banners.
const excisedSelectors = "sup.reference, span.mw-editsection, table.infobox, " +
	"table.navbox, table.vertical-navbox, table.metadata, div.hatnote, " +
	".mw-references-wrap, .reflist, .navbox, .ambox, .sistersitebox, " +
	".noprint, style, script"

var multiBlankLines = regexp.MustCompile(`\n{3,}`)
var multiSpaces = regexp.MustCompile(`[ \t]{2,}`)

// Pipeline converts a fetched article page into cleaned prose text.
type Pipeline struct {
	minContentLength int
}

// New constructs a Pipeline with minContentLength as the floor below which
// Process reports an article as too short to keep.
func New(minContentLength int) *Pipeline {
	return &Pipeline{minContentLength: minContentLength}
}

// Result is the outcome of running the content pipeline on one page.
type Result struct {
	Title       string
	Text        string
	WordCount   int
	TooShort    bool
	ProcessedAt time.Time
}

// Process extracts and cleans the article body from html.
func (p *Pipeline) Process(html string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{}, err
	}

	title := strings.TrimSpace(doc.Find("#firstHeading").First().Text())

	body := doc.Find("#mw-content-text .mw-parser-output").First()
	if body.Length() == 0 {
		body = doc.Find("#mw-content-text").First()
	}

	body.Find(excisedSelectors).Remove()
	trimAtFirstAppendixHeading(body)

	var b strings.Builder
	renderElement(body, &b)

	text := cleanText(b.String())
	wordCount := len(strings.Fields(text))

	return Result{
		Title:       title,
		Text:        text,
		WordCount:   wordCount,
		TooShort:    utf8.RuneCountInString(text) < p.minContentLength,
		ProcessedAt: time.Now().UTC(),
	}, nil
}

// trimAtFirstAppendixHeading removes the first h2 whose text matches an
// appendix heading (see also, references, ...) and every sibling after it,
// so only the lead and body sections of the article remain.
func trimAtFirstAppendixHeading(body *goquery.Selection) {
	children := body.Children()
	cutFrom := -1
	children.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if goquery.NodeName(s) != "h2" {
			return true
		}
		heading := strings.ToLower(strings.TrimSpace(s.Text()))
		if appendixHeadings[heading] {
			cutFrom = i
			return false
		}
		return true
	})
	if cutFrom < 0 {
		return
	}
	children.Slice(cutFrom, children.Length()).Remove()
}

// renderElement selectively renders a narrow set of block/inline tags as
// plain text with paragraph and heading breaks; everything else is walked
// for its text content only.
func renderElement(s *goquery.Selection, b *strings.Builder) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "#text":
			b.WriteString(child.Text())
		case "p", "li":
			renderElement(child, b)
			b.WriteString("\n\n")
		case "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n\n")
			renderElement(child, b)
			b.WriteString("\n\n")
		case "br":
			b.WriteString("\n")
		default:
			renderElement(child, b)
		}
	})
}

// cleanText collapses repeated whitespace and trims leading/trailing blank
// lines, leaving readable, storable prose.
func cleanText(text string) string {
	text = multiSpaces.ReplaceAllString(text, " ")
	text = multiBlankLines.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
