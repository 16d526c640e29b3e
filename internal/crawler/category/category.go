// Package category builds the persisted record for a classified category
// page: its title, its direct subcategories, and its direct member
// articles. Grounded on processors/category_handler.py, which performs the
// same page → (subcategories, articles) reduction against the Python
// crawler's DOM handle.
package category

import (
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/wikicrawl/wikicrawl/internal/crawler/linkutil"
	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
)

// Handler turns extracted links from a category page into a persisted
// CategoryRecord and the list of child URLs the orchestrator should enqueue,
// applying the crawl's sole depth gate in the process.
type Handler struct {
	extractor *linkutil.Extractor
	logger    arbor.ILogger
}

// New constructs a Handler. logger may be nil.
func New(extractor *linkutil.Extractor, logger arbor.ILogger) *Handler {
	return &Handler{extractor: extractor, logger: logger}
}

// Child describes one link discovered on a category page, ready for
// frontier enqueueing at its given Depth.
type Child struct {
	URL   string
	Kind  model.Kind
	Depth int
}

// Process extracts the subcategories and articles referenced by a category
// page found at depth and returns both the record to persist and the
// children to enqueue. This is the crawl's only depth gate: articles are
// always emitted, at the same depth as the category that discovered them;
// subcategories are emitted at depth+1 only while depth < maxDepth, and are
// otherwise dropped as depth-limited. maxDepth <= 0 means the root itself is
// already at the limit, so only its articles are emitted.
func (h *Handler) Process(html, pageURL, title string, depth, maxDepth int) (model.CategoryRecord, []Child, error) {
	extracted, err := h.extractor.Extract(html, pageURL)
	if err != nil {
		return model.CategoryRecord{}, nil, err
	}

	record := model.CategoryRecord{
		URL:           pageURL,
		Title:         normalizeCategoryTitle(title),
		Subcategories: append([]string{}, extracted.Subcategories...),
		Articles:      append([]string{}, extracted.Articles...),
		ProcessedAt:   time.Now().UTC(),
		Type:          "category",
	}

	children := make([]Child, 0, len(extracted.Subcategories)+len(extracted.Articles))
	if depth < maxDepth {
		for _, u := range extracted.Subcategories {
			children = append(children, Child{URL: u, Kind: model.KindCategory, Depth: depth + 1})
		}
	} else if len(extracted.Subcategories) > 0 && h.logger != nil {
		h.logger.Debug().Str("url", pageURL).Int("depth", depth).Int("dropped", len(extracted.Subcategories)).Msg("subcategories dropped: depth limited")
	}
	for _, u := range extracted.Articles {
		children = append(children, Child{URL: u, Kind: model.KindArticle, Depth: depth})
	}

	return record, children, nil
}

func normalizeCategoryTitle(title string) string {
	if !strings.HasPrefix(title, "Category:") {
		return "Category:" + title
	}
	return title
}

func titlesFromURLs(urls []string) []string {
	titles := make([]string, 0, len(urls))
	for _, u := range urls {
		const marker = "/wiki/"
		idx := strings.Index(u, marker)
		if idx < 0 {
			continue
		}
		raw := u[idx+len(marker):]
		if decoded, err := decodeTitle(raw); err == nil {
			titles = append(titles, decoded)
		}
	}
	return titles
}

func decodeTitle(raw string) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(decoded, "_", " "), nil
}
