// Package frontier implements the crawler's priority URL queue: a
// breadth-first, category-first frontier with save/load persistence so a
// crawl can resume. Grounded on the teacher's queue.go (container/heap +
// sync.Cond blocking pop) and core/url_queue.py (the on-disk
// queue_state.json schema: queue_items, pending_urls, completed_urls,
// stats, saved_at).
package frontier

import (
	"container/heap"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/wikicrawl/wikicrawl/internal/crawler/canon"
	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
)

// Stats summarizes the frontier's current state.
type Stats struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

// Frontier is a priority queue of pending URL entries, ordered by kind
// priority (categories before articles, globally, regardless of depth),
// then by discovery order.
type Frontier struct {
	mu        sync.Mutex
	cond      *sync.Cond
	items     *entryHeap
	pending   map[string]struct{}
	completed map[string]struct{}
	closed    bool
	canonOpts canon.Options
}

type entryHeap []model.Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].DiscoveredAt.Before(h[j].DiscoveredAt)
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(model.Entry))
}

func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// New constructs an empty Frontier.
func New() *Frontier {
	h := &entryHeap{}
	heap.Init(h)
	f := &Frontier{
		items:     h,
		pending:   make(map[string]struct{}),
		completed: make(map[string]struct{}),
		canonOpts: canon.DefaultOptions(),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Add enqueues url at depth with kind, unless it is already pending or
// completed. Returns true if the entry was newly added.
func (f *Frontier) Add(rawURL string, kind model.Kind, depth int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}

	key := canon.Canon(rawURL, f.canonOpts)
	if _, ok := f.pending[key]; ok {
		return false
	}
	if _, ok := f.completed[key]; ok {
		return false
	}

	f.pending[key] = struct{}{}
	heap.Push(f.items, model.Entry{
		URL:          rawURL,
		Kind:         kind,
		Depth:        depth,
		DiscoveredAt: time.Now(),
		Priority:     kind.Priority(),
	})
	f.cond.Signal()
	return true
}

// Next blocks until an entry is available, the frontier is closed, or ctx is
// cancelled. Returns (entry, true, nil) on success, (zero, false, nil) if
// the frontier was closed and drained.
const maxWait = 10 * time.Second

func (f *Frontier) Next(ctx context.Context) (model.Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return model.Entry{}, false, ctx.Err()
		default:
		}

		if f.items.Len() > 0 {
			entry := heap.Pop(f.items).(model.Entry)
			return entry, true, nil
		}

		if f.closed {
			return model.Entry{}, false, nil
		}

		timer := time.AfterFunc(maxWait, func() {
			f.cond.Broadcast()
		})
		f.cond.Wait()
		timer.Stop()
	}
}

// MarkCompleted moves url from pending to completed, regardless of outcome
// (success, filtered, or error all count as "done" for dedup purposes).
func (f *Frontier) MarkCompleted(rawURL string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := canon.Canon(rawURL, f.canonOpts)
	delete(f.pending, key)
	f.completed[key] = struct{}{}
}

// IsDone reports whether url has already been recorded as completed.
func (f *Frontier) IsDone(rawURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.completed[canon.Canon(rawURL, f.canonOpts)]
	return ok
}

// Len returns the number of entries currently queued.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items.Len()
}

// Close closes the frontier, waking all blocked Next callers.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// Stats returns a snapshot of pending/completed counts.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{Pending: f.items.Len(), Completed: len(f.completed)}
}

// snapshot is the on-disk schema for queue_state.json, matching the field
// names of the Python original's URLQueueManager.save_state.
type snapshot struct {
	QueueItems    []model.Entry `json:"queue_items"`
	PendingURLs   []string      `json:"pending_urls"`
	CompletedURLs []string      `json:"completed_urls"`
	Stats         Stats         `json:"stats"`
	SavedAt       time.Time     `json:"saved_at"`
}

// Save writes the frontier's full state to path as JSON.
func (f *Frontier) Save(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := make([]model.Entry, len(*f.items))
	copy(items, *f.items)

	pending := make([]string, 0, len(f.pending))
	for k := range f.pending {
		pending = append(pending, k)
	}
	completed := make([]string, 0, len(f.completed))
	for k := range f.completed {
		completed = append(completed, k)
	}

	snap := snapshot{
		QueueItems:    items,
		PendingURLs:   pending,
		CompletedURLs: completed,
		Stats:         Stats{Pending: len(items), Completed: len(completed)},
		SavedAt:       time.Now().UTC(),
	}

	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("frontier: cannot encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-queue-*.json")
	if err != nil {
		return fmt.Errorf("frontier: cannot create temp file: %w", err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("frontier: cannot write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("frontier: cannot sync temp file: %w", err)
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("frontier: cannot rename temp file into place: %w", err)
	}
	return nil
}

// Load returns a new Frontier restored from the state saved at path.
func Load(path string) (*Frontier, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frontier: cannot read state file: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("frontier: cannot decode state file: %w", err)
	}

	f := New()
	for _, item := range snap.QueueItems {
		heap.Push(f.items, item)
	}
	for _, u := range snap.CompletedURLs {
		f.completed[u] = struct{}{}
	}
	for _, u := range snap.PendingURLs {
		f.pending[u] = struct{}{}
	}
	return f, nil
}
