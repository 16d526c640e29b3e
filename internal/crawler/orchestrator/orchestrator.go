// Package orchestrator wires the frontier, fetcher, classifier, category
// handler, content pipeline, language filter, dedup registry, and file
// store into a worker pool that drains the frontier breadth-first until it
// empties or the context is cancelled. Grounded on the teacher's
// worker.go (per-worker loop popping from a shared queue with a
// context-bounded timeout, periodic diagnostics, graceful empty-queue
// exit) and service.go's WaitGroup-based worker pool shutdown.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/wikicrawl/wikicrawl/internal/common"
	"github.com/wikicrawl/wikicrawl/internal/crawler/category"
	"github.com/wikicrawl/wikicrawl/internal/crawler/classify"
	"github.com/wikicrawl/wikicrawl/internal/crawler/content"
	"github.com/wikicrawl/wikicrawl/internal/crawler/dedup"
	"github.com/wikicrawl/wikicrawl/internal/crawler/fetch"
	"github.com/wikicrawl/wikicrawl/internal/crawler/frontier"
	"github.com/wikicrawl/wikicrawl/internal/crawler/language"
	"github.com/wikicrawl/wikicrawl/internal/crawler/linkutil"
	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
	"github.com/wikicrawl/wikicrawl/internal/crawler/progress"
	"github.com/wikicrawl/wikicrawl/internal/crawler/store"

	"github.com/PuerkitoBio/goquery"
)

// Config configures an Orchestrator run.
type Config struct {
	SeedURL      string
	MaxDepth     int
	Concurrency  int
	StateDir     string
	SaveInterval time.Duration
}

// Orchestrator drives a single breadth-first crawl of a Wikipedia category
// tree, rooted at Config.SeedURL, across a pool of worker goroutines.
type Orchestrator struct {
	cfg Config

	frontier   *frontier.Frontier
	fetcher    *fetch.Fetcher
	dedupe     *dedup.Registry
	store      *store.Store
	tracker    *progress.Tracker
	links      *linkutil.Extractor
	categories *category.Handler
	content    *content.Pipeline
	langs      *language.Filter
	logger     arbor.ILogger

	wg sync.WaitGroup
}

// New constructs an Orchestrator from its already-built components.
func New(
	cfg Config,
	f *frontier.Frontier,
	fetcher *fetch.Fetcher,
	dedupe *dedup.Registry,
	st *store.Store,
	tracker *progress.Tracker,
	contentPipeline *content.Pipeline,
	langFilter *language.Filter,
	logger arbor.ILogger,
) *Orchestrator {
	extractor := linkutil.New(logger)
	return &Orchestrator{
		cfg:        cfg,
		frontier:   f,
		fetcher:    fetcher,
		dedupe:     dedupe,
		store:      st,
		tracker:    tracker,
		links:      extractor,
		categories: category.New(extractor, logger),
		content:    contentPipeline,
		langs:      langFilter,
		logger:     logger,
	}
}

// Run seeds the frontier with the configured start URL (if not already
// known) and drains it with Config.Concurrency worker goroutines until the
// frontier empties or ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.frontier.IsDone(o.cfg.SeedURL) {
		o.frontier.Add(o.cfg.SeedURL, model.KindCategory, 0)
	}

	concurrency := o.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	stopSaving := o.startPeriodicSave(ctx)
	defer stopSaving()

	for i := 0; i < concurrency; i++ {
		o.wg.Add(1)
		workerIndex := i
		common.SafeGoWithContext(ctx, o.logger, fmt.Sprintf("crawl-worker-%d", workerIndex), func() {
			defer o.wg.Done()
			o.workerLoop(ctx, workerIndex)
		})
	}

	o.wg.Wait()
	return o.saveState()
}

func (o *Orchestrator) workerLoop(ctx context.Context, workerIndex int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		entry, ok, err := o.frontier.Next(ctx)
		if err != nil {
			return
		}
		if !ok {
			return
		}
		o.tracker.SetPending(o.frontier.Len())

		o.processEntry(ctx, entry)
	}
}

func (o *Orchestrator) processEntry(ctx context.Context, entry model.Entry) {
	defer o.frontier.MarkCompleted(entry.URL)

	if !o.dedupe.MarkProcessed(entry.URL) {
		return
	}

	page, err := o.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		o.logger.Warn().Err(err).Str("url", entry.URL).Msg("fetch failed")
		o.tracker.Update(entry.URL, model.StatusError, entry.Kind, "", err.Error())
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.Body))
	if err != nil {
		o.tracker.Update(entry.URL, model.StatusError, entry.Kind, "", fmt.Sprintf("content processing error: %v", err))
		return
	}

	classification := classify.Classify(doc, entry.URL)
	if classification.IsMissing || classification.IsRedirect {
		o.tracker.Update(entry.URL, model.StatusFiltered, entry.Kind, "", "")
		return
	}

	switch classification.Kind {
	case model.KindCategory:
		o.processCategory(entry, page, classification.Title)
	case model.KindArticle:
		o.processArticle(entry, page, classification.Title)
	default:
		o.tracker.Update(entry.URL, model.StatusFiltered, entry.Kind, "", "")
	}
}

// processCategory persists the category and enqueues its children. The
// depth gate lives entirely in o.categories.Process: articles always come
// back at entry.Depth, subcategories at entry.Depth+1 and only while
// entry.Depth < o.cfg.MaxDepth.
func (o *Orchestrator) processCategory(entry model.Entry, page model.Page, title string) {
	record, children, err := o.categories.Process(page.Body, entry.URL, title, entry.Depth, o.cfg.MaxDepth)
	if err != nil {
		o.tracker.Update(entry.URL, model.StatusError, model.KindCategory, "", fmt.Sprintf("content processing error: %v", err))
		return
	}

	if _, err := o.store.SaveCategory(record); err != nil {
		o.tracker.Update(entry.URL, model.StatusError, model.KindCategory, "", fmt.Sprintf("storage error: %v", err))
		return
	}
	o.tracker.Update(entry.URL, model.StatusCompleted, model.KindCategory, "", "")

	for _, child := range children {
		o.frontier.Add(child.URL, child.Kind, child.Depth)
	}
}

func (o *Orchestrator) processArticle(entry model.Entry, page model.Page, title string) {
	result, err := o.content.Process(page.Body)
	if err != nil {
		o.tracker.Update(entry.URL, model.StatusError, model.KindArticle, "", fmt.Sprintf("content processing error: %v", err))
		return
	}
	if result.TooShort {
		o.logger.Warn().Str("url", entry.URL).Int("length", len([]rune(result.Text))).Msg("article content below minimum length")
		o.tracker.Update(entry.URL, model.StatusError, model.KindArticle, "", "content processing error: article content below minimum length")
		return
	}

	accept, lang := o.langs.Filter(result.Text, entry.URL)
	if !accept {
		o.tracker.Update(entry.URL, model.StatusFiltered, model.KindArticle, lang, "")
		return
	}

	if !o.dedupe.MarkContentIfNew(result.Text) {
		o.tracker.Update(entry.URL, model.StatusFiltered, model.KindArticle, lang, "")
		return
	}

	record := model.ArticleRecord{
		URL:         entry.URL,
		Title:       result.Title,
		Content:     result.Text,
		Language:    lang,
		ProcessedAt: time.Now().UTC(),
		Type:        "article",
	}

	if _, err := o.store.SaveArticle(record); err != nil {
		o.tracker.Update(entry.URL, model.StatusError, model.KindArticle, lang, fmt.Sprintf("storage error: %v", err))
		return
	}
	o.tracker.Update(entry.URL, model.StatusCompleted, model.KindArticle, lang, "")
}

// startPeriodicSave snapshots frontier, dedup, and progress state to disk
// every Config.SaveInterval so a killed process can resume without losing
// more than one interval's worth of work. Returns a function that stops the
// ticker; it does not itself save on stop (Run does a final save after the
// worker pool drains).
func (o *Orchestrator) startPeriodicSave(ctx context.Context) func() {
	if o.cfg.SaveInterval <= 0 || o.cfg.StateDir == "" {
		return func() {}
	}

	ticker := time.NewTicker(o.cfg.SaveInterval)
	done := make(chan struct{})

	common.SafeGoWithContext(ctx, o.logger, "state-saver", func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if err := o.saveState(); err != nil {
					o.logger.Warn().Err(err).Msg("periodic state save failed")
				}
			}
		}
	})

	return func() {
		ticker.Stop()
		close(done)
	}
}

func (o *Orchestrator) saveState() error {
	if o.cfg.StateDir == "" {
		return nil
	}
	if err := o.frontier.Save(filepath.Join(o.cfg.StateDir, "queue_state.json")); err != nil {
		return err
	}
	if err := o.dedupe.Save(filepath.Join(o.cfg.StateDir, "deduplication_state.json")); err != nil {
		return err
	}
	return o.tracker.Save(filepath.Join(o.cfg.StateDir, "progress_state.json"))
}
