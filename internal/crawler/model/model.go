// Package model holds the shared data types passed between crawler components.
package model

import "time"

// Kind tags a URL as a category page or an article page.
type Kind string

const (
	KindCategory Kind = "category"
	KindArticle  Kind = "article"
	KindUnknown  Kind = "unknown"
)

// Priority returns the frontier dequeue priority for the kind; lower is served first.
func (k Kind) Priority() int {
	if k == KindCategory {
		return 1
	}
	return 2
}

// Status is the terminal (or in-flight) state of a URL moving through the crawl.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFiltered   Status = "filtered"
	StatusError      Status = "error"
)

// Entry is a frontier item: a URL discovered but not yet dequeued.
type Entry struct {
	URL          string    `json:"url"`
	Kind         Kind      `json:"url_type"`
	Depth        int       `json:"depth"`
	DiscoveredAt time.Time `json:"discovered_at"`
	Priority     int       `json:"priority"`
}

// Metadata is stamped onto every persisted record by the file store.
type Metadata struct {
	SavedAt           time.Time `json:"saved_at"`
	CrawlerVersion    string    `json:"crawler_version"`
	FileFormatVersion string    `json:"file_format_version"`
}

// CategoryRecord is the persisted shape of a processed category page.
type CategoryRecord struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Subcategories []string  `json:"subcategories"`
	Articles      []string  `json:"articles"`
	ProcessedAt   time.Time `json:"processed_at"`
	Type          string    `json:"type"`
}

// ArticleRecord is the persisted shape of a processed article page.
type ArticleRecord struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Language    string    `json:"language"`
	ProcessedAt time.Time `json:"processed_at"`
	Type        string    `json:"type"`
}

// Page is the fetched, not-yet-classified representation of a URL's response.
type Page struct {
	URL        string
	Body       string
	StatusCode int
	Headers    map[string][]string
	Length     int
}
