// Package linkutil extracts and classifies the links a Wikipedia page
// points at: subcategories, member articles, and everything else (which is
// discarded). Grounded on the teacher's link_extractor.go (goquery-based
// <a href> discovery, relative-URL resolution against a base URL) narrowed
// to Wikipedia's namespace conventions instead of generic include/exclude
// regex filtering.
package linkutil

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
)

// excludedNamespaces are Wikipedia namespace prefixes that are never
// categories or articles worth following (talk pages, special pages,
// project admin pages, files, templates, help).
var excludedNamespaces = []string{
	"Talk:", "User:", "User_talk:", "Wikipedia:", "Wikipedia_talk:",
	"File:", "File_talk:", "Template:", "Template_talk:", "Help:",
	"Help_talk:", "Special:", "Portal:", "Portal_talk:", "Draft:",
	"Module:", "MediaWiki:", "TimedText:",
}

// Extractor discovers and classifies links from a rendered Wikipedia page.
type Extractor struct {
	logger arbor.ILogger
}

// New constructs an Extractor.
func New(logger arbor.ILogger) *Extractor {
	return &Extractor{logger: logger}
}

// Extracted holds the links discovered from a page, already split into
// subcategories and member articles by Wikipedia namespace convention.
type Extracted struct {
	Subcategories []string
	Articles      []string
}

// Extract parses html (from sourceURL) and returns every /wiki/ link it
// contains, classified by namespace.
func (e *Extractor) Extract(html, sourceURL string) (Extracted, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Extracted{}, fmt.Errorf("linkutil: failed to parse HTML: %w", err)
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return Extracted{}, fmt.Errorf("linkutil: invalid source URL: %w", err)
	}

	var result Extracted
	seen := make(map[string]bool)

	doc.Find("#mw-pages a[href], #mw-subcategories a[href], #bodyContent a[href], .mw-category a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "#") {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		resolvedURL := resolved.String()
		if seen[resolvedURL] {
			return
		}

		title, kind, ok := classifyWikiLink(resolved)
		if !ok {
			return
		}
		seen[resolvedURL] = true

		switch kind {
		case model.KindCategory:
			result.Subcategories = append(result.Subcategories, resolvedURL)
		case model.KindArticle:
			result.Articles = append(result.Articles, resolvedURL)
		}
		_ = title
	})

	if e.logger != nil {
		e.logger.Debug().
			Str("source_url", sourceURL).
			Int("subcategories", len(result.Subcategories)).
			Int("articles", len(result.Articles)).
			Msg("links extracted")
	}

	return result, nil
}

// classifyWikiLink inspects a resolved /wiki/<Title> URL and reports the
// decoded title, its kind, and whether it is a link worth following at all.
func classifyWikiLink(u *url.URL) (title string, kind model.Kind, ok bool) {
	const wikiPrefix = "/wiki/"
	if !strings.HasPrefix(u.Path, wikiPrefix) {
		return "", model.KindUnknown, false
	}

	raw := strings.TrimPrefix(u.Path, wikiPrefix)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	decoded = strings.ReplaceAll(decoded, "_", " ")

	if strings.HasPrefix(decoded, "Category:") {
		return decoded, model.KindCategory, true
	}

	for _, ns := range excludedNamespaces {
		if strings.HasPrefix(decoded, strings.ReplaceAll(ns, "_", " ")) {
			return decoded, model.KindUnknown, false
		}
	}

	if decoded == "" {
		return "", model.KindUnknown, false
	}

	return decoded, model.KindArticle, true
}
