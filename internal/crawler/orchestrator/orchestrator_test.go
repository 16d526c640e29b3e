package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/wikicrawl/wikicrawl/internal/crawler/content"
	"github.com/wikicrawl/wikicrawl/internal/crawler/dedup"
	"github.com/wikicrawl/wikicrawl/internal/crawler/fetch"
	"github.com/wikicrawl/wikicrawl/internal/crawler/frontier"
	"github.com/wikicrawl/wikicrawl/internal/crawler/language"
	"github.com/wikicrawl/wikicrawl/internal/crawler/progress"
	"github.com/wikicrawl/wikicrawl/internal/crawler/store"
)

const testArticleBody = `On this day in 1819, Sir Stamford Raffles landed on the island and founded a trading post that would grow into one of the busiest ports in the world, shaping the region for the next two centuries.`

const testSubArticleBody = `The tiger is the largest living cat species, recognisable by its dark vertical stripes on orange fur, and it once ranged widely across the forests and grasslands of Asia.`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/Category:Mammals", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<h1 id="firstHeading">Mammals</h1>
<div id="mw-subcategories"><a href="/wiki/Category:Felines">Felines</a></div>
<div id="mw-pages"><a href="/wiki/Lion">Lion</a></div>
</body></html>`)
	})
	mux.HandleFunc("/wiki/Category:Felines", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<h1 id="firstHeading">Felines</h1>
<div id="mw-subcategories"></div>
<div id="mw-pages"><a href="/wiki/Tiger">Tiger</a></div>
</body></html>`)
	})
	mux.HandleFunc("/wiki/Lion", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<h1 id="firstHeading">Lion</h1>
<div id="mw-content-text"><div class="mw-parser-output">
<p>%s</p>
</div></div>
</body></html>`, testArticleBody)
	})
	mux.HandleFunc("/wiki/Tiger", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<h1 id="firstHeading">Tiger</h1>
<div id="mw-content-text"><div class="mw-parser-output">
<p>%s</p>
</div></div>
</body></html>`, testSubArticleBody)
	})
	return httptest.NewServer(mux)
}

func buildOrchestrator(t *testing.T, seedURL, stateDir string, maxDepth int) *Orchestrator {
	t.Helper()
	logger := arbor.NewLogger()

	st, err := store.New(store.Config{OutputDir: stateDir, OrganizeBy: store.OrganizeFlat}, logger)
	require.NoError(t, err)

	fetcher := fetch.New(fetch.Config{
		RequestDelay:   time.Millisecond,
		RequestTimeout: 5 * time.Second,
	}, logger)

	return New(
		Config{
			SeedURL:     seedURL,
			MaxDepth:    maxDepth,
			Concurrency: 2,
			StateDir:    stateDir,
		},
		frontier.New(),
		fetcher,
		dedup.New(),
		st,
		progress.New(),
		content.New(0),
		language.New([]string{"en"}),
		logger,
	)
}

func TestRunCrawlsCategoryTreeAndArticlesToCompletion(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	stateDir := t.TempDir()
	seedURL := srv.URL + "/wiki/Category:Mammals"
	orch := buildOrchestrator(t, seedURL, stateDir, 5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, orch.Run(ctx))

	snap := orch.tracker.Snapshot()
	assert.Equal(t, 2, snap.Status.Categories)
	assert.Equal(t, 2, snap.Status.Articles)
	assert.Equal(t, 0, snap.Status.Errors)

	entries, err := os.ReadDir(stateDir)
	require.NoError(t, err)
	var sawCategory, sawSubcategory, sawArticle, sawSubArticle bool
	for _, e := range entries {
		switch {
		case strings.Contains(e.Name(), "Mammals"):
			sawCategory = true
		case strings.Contains(e.Name(), "Felines"):
			sawSubcategory = true
		case strings.Contains(e.Name(), "Lion"):
			sawArticle = true
		case strings.Contains(e.Name(), "Tiger"):
			sawSubArticle = true
		}
	}
	assert.True(t, sawCategory, "expected a saved file for the root category")
	assert.True(t, sawSubcategory, "expected a saved file for the subcategory")
	assert.True(t, sawArticle, "expected a saved file for the root category's article")
	assert.True(t, sawSubArticle, "expected a saved file for the subcategory's article")

	for _, name := range []string{"queue_state.json", "deduplication_state.json", "progress_state.json"} {
		_, err := os.Stat(filepath.Join(stateDir, name))
		assert.NoError(t, err, "expected %s to be saved", name)
	}
}

func TestRunAtMaxDepthZeroStillEmitsArticlesButDropsSubcategories(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	stateDir := t.TempDir()
	seedURL := srv.URL + "/wiki/Category:Mammals"
	orch := buildOrchestrator(t, seedURL, stateDir, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, orch.Run(ctx))

	snap := orch.tracker.Snapshot()
	assert.Equal(t, 1, snap.Status.Categories, "only the root category should be dequeued")
	assert.Equal(t, 1, snap.Status.Articles, "the root category's direct article is always emitted")

	entries, err := os.ReadDir(stateDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "Felines", "subcategory must never be enqueued at max_depth=0")
		assert.NotContains(t, e.Name(), "Tiger", "subcategory's article must never be reached at max_depth=0")
	}
}
