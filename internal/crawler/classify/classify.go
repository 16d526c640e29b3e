// Package classify determines whether a fetched Wikipedia page is a
// category page, an article, or neither (disambiguation, redirect, missing
// page) before the rest of the pipeline commits to processing it one way
// or the other. Grounded on core/page_processor.py's
// _determine_page_type, reimplemented against goquery-parsed DOM markers
// instead of string search over raw HTML.
package classify

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
)

// Result is the outcome of classifying a fetched page.
type Result struct {
	Kind             model.Kind
	Title            string
	IsDisambiguation bool
	IsRedirect       bool
	IsMissing        bool
}

// Classify inspects page's URL and parsed DOM to decide what kind of page
// it is.
func Classify(doc *goquery.Document, pageURL string) Result {
	title := extractTitle(doc)

	if isMissingPage(doc) {
		return Result{Kind: model.KindUnknown, Title: title, IsMissing: true}
	}

	if isRedirect(doc) {
		return Result{Kind: model.KindUnknown, Title: title, IsRedirect: true}
	}

	if isCategoryURL(pageURL) || hasCategoryMarkers(doc) {
		return Result{Kind: model.KindCategory, Title: title}
	}

	if isDisambiguation(doc) {
		return Result{Kind: model.KindArticle, Title: title, IsDisambiguation: true}
	}

	return Result{Kind: model.KindArticle, Title: title}
}

func extractTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("#firstHeading").First().Text())
	if title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func isCategoryURL(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	decoded, err := url.PathUnescape(strings.TrimPrefix(u.Path, "/wiki/"))
	if err != nil {
		decoded = u.Path
	}
	return strings.HasPrefix(decoded, "Category:")
}

func hasCategoryMarkers(doc *goquery.Document) bool {
	if doc.Find("#mw-pages, #mw-subcategories, #mw-category-media, .mw-category, .CategoryTreeTag").Length() > 0 {
		return true
	}
	found := false
	doc.Find("h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.ToLower(s.Text())
		found = strings.Contains(text, "subcategories") || strings.Contains(text, "pages in category")
		return !found
	})
	if found {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(doc.Find("h1#firstHeading").First().Text()), "Category:")
}

func isDisambiguation(doc *goquery.Document) bool {
	found := false
	doc.Find("table.metadata, .disambig, #disambigbox").Each(func(_ int, s *goquery.Selection) {
		found = true
	})
	if found {
		return true
	}
	return strings.Contains(strings.ToLower(doc.Find("body").Text()), "may refer to:")
}

func isRedirect(doc *goquery.Document) bool {
	return doc.Find(".redirectMsg, .redirectText").Length() > 0
}

func isMissingPage(doc *goquery.Document) bool {
	return doc.Find("#noarticletext").Length() > 0
}
