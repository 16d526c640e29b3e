// Package progress tracks crawl progress: counters, per-URL status, a
// bounded recent-activity ring, and language/error histograms,
// snapshotted to disk so long crawls can report where they are and resume
// cleanly. Grounded on core/progress_tracker.py (Update(url, status, kind,
// language, error), counters, ring, histograms, save_state/load_state JSON
// snapshot).
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
)

// recentActivityLimit bounds the in-memory and persisted activity ring.
const recentActivityLimit = 100

// snapshotVersion tags the on-disk schema so a future format change can be
// detected on load.
const snapshotVersion = "1.0"

// Tracker accumulates crawl progress under a single mutex so it can be
// shared across worker goroutines.
type Tracker struct {
	mu sync.Mutex

	running         bool
	startedAt       time.Time
	lastActivityAt  time.Time
	totalProcessed  int
	categoriesCount int
	articlesCount   int
	filteredCount   int
	errorsCount     int
	pending         int

	recentActivity  []string
	languageStats   map[string]int
	errorSummary    map[string]int
	urlStatus       map[string]string
	urlTypes        map[string]string
	urlTimestamps   map[string]time.Time

	totalUpdates int
	stateSaves   int
	stateLoads   int
}

// New constructs a running Tracker with its start time set to now.
func New() *Tracker {
	return &Tracker{
		running:       true,
		startedAt:     time.Now().UTC(),
		languageStats: make(map[string]int),
		errorSummary:  make(map[string]int),
		urlStatus:     make(map[string]string),
		urlTypes:      make(map[string]string),
		urlTimestamps: make(map[string]time.Time),
	}
}

// Update records the outcome of one URL's processing: its terminal (or
// in-flight) status, its kind, the language detected (if any, for
// COMPLETED/FILTERED articles), and an error message (if status is
// ERROR). Mirrors core/progress_tracker.py::update.
func (t *Tracker) Update(rawURL string, status model.Status, kind model.Kind, language, errorMessage string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now().UTC()
	t.totalUpdates++
	t.lastActivityAt = now
	t.urlStatus[rawURL] = string(status)
	t.urlTypes[rawURL] = string(kind)
	t.urlTimestamps[rawURL] = now

	switch status {
	case model.StatusCompleted:
		t.totalProcessed++
		if kind == model.KindCategory {
			t.categoriesCount++
		} else {
			t.articlesCount++
		}
	case model.StatusFiltered:
		t.totalProcessed++
		t.filteredCount++
	case model.StatusError:
		t.totalProcessed++
		t.errorsCount++
		t.errorSummary[categorizeError(errorMessage)]++
	}

	if language != "" {
		t.languageStats[language]++
	}

	t.appendActivity(fmt.Sprintf("%s [%s] %s", now.Format(time.RFC3339), status, rawURL))
}

func (t *Tracker) appendActivity(line string) {
	t.recentActivity = append(t.recentActivity, line)
	if len(t.recentActivity) > recentActivityLimit {
		t.recentActivity = t.recentActivity[len(t.recentActivity)-recentActivityLimit:]
	}
}

// SetPending records the frontier's current pending count, pushed in by
// the orchestrator after every dequeue.
func (t *Tracker) SetPending(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = n
}

// Stop marks the tracker as no longer running (set at shutdown).
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
}

// categorizeError buckets an error message into one of a handful of
// coarse categories, checked in this order, matching
// core/progress_tracker.py::_categorize_error.
func categorizeError(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "connection"):
		return "network_error"
	case strings.Contains(lower, "not found") || strings.Contains(lower, "404"):
		return "page_not_found"
	case strings.Contains(lower, "permission") || strings.Contains(lower, "forbidden"):
		return "access_denied"
	case strings.Contains(lower, "content") || strings.Contains(lower, "processing"):
		return "content_processing_error"
	case strings.Contains(lower, "save") || strings.Contains(lower, "storage"):
		return "storage_error"
	default:
		return "other_error"
	}
}

// StatusSnapshot is the scalar-counters portion of a progress snapshot.
type StatusSnapshot struct {
	Running        bool      `json:"running"`
	TotalProcessed int       `json:"total_processed"`
	Pending        int       `json:"pending"`
	Categories     int       `json:"categories"`
	Articles       int       `json:"articles"`
	Filtered       int       `json:"filtered"`
	Errors         int       `json:"errors"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Snapshot is a point-in-time, JSON-serializable copy of the tracker,
// matching progress_state.json's schema.
type Snapshot struct {
	Status        StatusSnapshot        `json:"status"`
	RecentURLs    []string              `json:"recent_urls"`
	LanguageStats map[string]int        `json:"language_stats"`
	ErrorSummary  map[string]int        `json:"error_summary"`
	URLStatus     map[string]string     `json:"url_status"`
	URLTypes      map[string]string     `json:"url_types"`
	URLTimestamps map[string]time.Time  `json:"url_timestamps"`
	Stats         struct {
		TotalUpdates int `json:"total_updates"`
		StateSaves   int `json:"state_saves"`
		StateLoads   int `json:"state_loads"`
	} `json:"stats"`
	SavedAt time.Time `json:"saved_at"`
	Version string    `json:"version"`
}

// Snapshot returns a copy of the tracker's current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	recent := make([]string, len(t.recentActivity))
	copy(recent, t.recentActivity)

	langs := make(map[string]int, len(t.languageStats))
	for k, v := range t.languageStats {
		langs[k] = v
	}
	errs := make(map[string]int, len(t.errorSummary))
	for k, v := range t.errorSummary {
		errs[k] = v
	}
	statusMap := make(map[string]string, len(t.urlStatus))
	for k, v := range t.urlStatus {
		statusMap[k] = v
	}
	typesMap := make(map[string]string, len(t.urlTypes))
	for k, v := range t.urlTypes {
		typesMap[k] = v
	}
	timestamps := make(map[string]time.Time, len(t.urlTimestamps))
	for k, v := range t.urlTimestamps {
		timestamps[k] = v
	}

	snap := Snapshot{
		Status: StatusSnapshot{
			Running:        t.running,
			TotalProcessed: t.totalProcessed,
			Pending:        t.pending,
			Categories:     t.categoriesCount,
			Articles:       t.articlesCount,
			Filtered:       t.filteredCount,
			Errors:         t.errorsCount,
			StartedAt:      t.startedAt,
			LastActivityAt: t.lastActivityAt,
		},
		RecentURLs:    recent,
		LanguageStats: langs,
		ErrorSummary:  errs,
		URLStatus:     statusMap,
		URLTypes:      typesMap,
		URLTimestamps: timestamps,
		SavedAt:       time.Now().UTC(),
		Version:       snapshotVersion,
	}
	snap.Stats.TotalUpdates = t.totalUpdates
	snap.Stats.StateSaves = t.stateSaves
	snap.Stats.StateLoads = t.stateLoads
	return snap
}

// Save writes a snapshot of the tracker's state atomically to path.
func (t *Tracker) Save(path string) error {
	t.mu.Lock()
	t.stateSaves++
	snap := t.snapshotLocked()
	t.mu.Unlock()

	encoded, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("progress: cannot encode state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-progress-*.json")
	if err != nil {
		return fmt.Errorf("progress: cannot create temp file: %w", err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("progress: cannot write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("progress: cannot sync temp file: %w", err)
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("progress: cannot rename temp file into place: %w", err)
	}
	return nil
}

// Load restores a Tracker from a previously saved snapshot. A corrupt or
// unreadable file is reported as an error; the caller is expected to fall
// back to a fresh Tracker and keep crawling rather than treat this as
// fatal.
func Load(path string) (*Tracker, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("progress: cannot read state file: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("progress: cannot decode state file: %w", err)
	}

	t := New()
	t.startedAt = snap.Status.StartedAt
	t.lastActivityAt = snap.Status.LastActivityAt
	t.totalProcessed = snap.Status.TotalProcessed
	t.pending = snap.Status.Pending
	t.categoriesCount = snap.Status.Categories
	t.articlesCount = snap.Status.Articles
	t.filteredCount = snap.Status.Filtered
	t.errorsCount = snap.Status.Errors
	t.recentActivity = append([]string(nil), snap.RecentURLs...)
	for k, v := range snap.LanguageStats {
		t.languageStats[k] = v
	}
	for k, v := range snap.ErrorSummary {
		t.errorSummary[k] = v
	}
	for k, v := range snap.URLStatus {
		t.urlStatus[k] = v
	}
	for k, v := range snap.URLTypes {
		t.urlTypes[k] = v
	}
	for k, v := range snap.URLTimestamps {
		t.urlTimestamps[k] = v
	}
	t.totalUpdates = snap.Stats.TotalUpdates
	t.stateSaves = snap.Stats.StateSaves
	t.stateLoads = snap.Stats.StateLoads + 1
	return t, nil
}
