// Package store writes crawl output durably and keeps track of which
// filenames already exist so callers get unique on-disk names. Grounded on
// core/file_storage.py (atomic temp-file-then-rename writes, folder
// organization modes, existing-files preload by directory walk).
//
// Uniqueness of the existing-names set holds per-subfolder, not globally,
// under any non-flat OrganizeBy: the set stores paths relative to the output
// root, and two different subfolders may legitimately contain a file with
// the same basename. Only the flat layout gives a global uniqueness
// guarantee, because every file shares the same (empty) subfolder. This is
// the open design decision from SPEC_FULL.md §9, made explicit here rather
// than left implicit in behavior.
package store

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
	"github.com/wikicrawl/wikicrawl/internal/crawler/sanitize"
)

// OrganizeBy selects the folder layout under the output root.
type OrganizeBy string

const (
	OrganizeFlat     OrganizeBy = "flat"
	OrganizeCategory OrganizeBy = "category"
	OrganizeType     OrganizeBy = "type"
	OrganizeDate     OrganizeBy = "date"
)

const (
	crawlerVersion    = "1.0.0"
	fileFormatVersion = "1.0"
)

// Config configures a Store's folder layout.
type Config struct {
	OutputDir          string
	OrganizeBy         OrganizeBy
	CategoryFolderName string
	CreateSubfolders   bool
}

// Store writes JSON documents atomically under a configured folder layout
// and tracks which relative paths already exist.
type Store struct {
	cfg    Config
	logger arbor.ILogger

	mu       sync.Mutex
	existing map[string]struct{}
}

// New constructs a Store, creating the output root if needed and
// pre-populating the existing-names set by walking it for *.json files.
func New(cfg Config, logger arbor.ILogger) (*Store, error) {
	if cfg.OrganizeBy == "" {
		cfg.OrganizeBy = OrganizeFlat
	}
	s := &Store{cfg: cfg, logger: logger, existing: make(map[string]struct{})}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: cannot create output directory: %w", err)
	}

	err := filepath.WalkDir(cfg.OutputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		rel, relErr := filepath.Rel(cfg.OutputDir, path)
		if relErr != nil {
			return nil
		}
		s.existing[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to scan existing files: %w", err)
	}

	return s, nil
}

// SaveCategory persists a category record and returns the path it was
// written to.
func (s *Store) SaveCategory(record model.CategoryRecord) (string, error) {
	filename := sanitize.Sanitize(record.Title, model.KindCategory)
	return s.save(filename, "category", record)
}

// SaveArticle persists an article record and returns the path it was
// written to.
func (s *Store) SaveArticle(record model.ArticleRecord) (string, error) {
	filename := sanitize.Sanitize(record.Title, model.KindArticle)
	return s.save(filename, "article", record)
}

// SaveJSON persists an arbitrary payload under basename as given (it is not
// sanitized), appending ".json" if the extension is missing.
func (s *Store) SaveJSON(basename string, payload any, contentKind string) (string, error) {
	if !strings.HasSuffix(basename, ".json") {
		basename += ".json"
	}
	return s.save(basename, contentKind, payload)
}

func (s *Store) save(filename, contentKind string, payload any) (string, error) {
	targetDir := s.targetDirectory(contentKind)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("store: cannot create target directory %s: %w", targetDir, err)
	}

	s.mu.Lock()
	relDir, _ := filepath.Rel(s.cfg.OutputDir, targetDir)
	relDir = filepath.ToSlash(relDir)
	key := func(name string) string {
		if relDir == "." || relDir == "" {
			return name
		}
		return relDir + "/" + name
	}
	uniqueName, err := sanitize.Unique(filename, s.relativeExistingIn(relDir))
	if err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("store: %w", err)
	}
	s.existing[key(uniqueName)] = struct{}{}
	s.mu.Unlock()

	fullPath := filepath.Join(targetDir, uniqueName)
	if err := s.writeJSONAtomic(fullPath, payload); err != nil {
		return "", err
	}

	if s.logger != nil {
		s.logger.Info().Str("path", fullPath).Str("kind", contentKind).Msg("saved crawl output")
	}
	return fullPath, nil
}

// relativeExistingIn returns the subset of existing names that live directly
// under relDir, keyed by basename, matching the per-subfolder uniqueness
// contract for non-flat layouts.
func (s *Store) relativeExistingIn(relDir string) map[string]struct{} {
	out := make(map[string]struct{})
	prefix := ""
	if relDir != "." && relDir != "" {
		prefix = relDir + "/"
	}
	for existing := range s.existing {
		if prefix == "" {
			if !strings.Contains(existing, "/") {
				out[existing] = struct{}{}
			}
			continue
		}
		if strings.HasPrefix(existing, prefix) && !strings.Contains(strings.TrimPrefix(existing, prefix), "/") {
			out[strings.TrimPrefix(existing, prefix)] = struct{}{}
		}
	}
	return out
}

// Exists reports whether relativePath has already been recorded.
func (s *Store) Exists(relativePath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.existing[filepath.ToSlash(relativePath)]
	return ok
}

func (s *Store) targetDirectory(contentKind string) string {
	base := s.cfg.OutputDir

	switch s.cfg.OrganizeBy {
	case OrganizeCategory:
		folder := s.cfg.CategoryFolderName
		if folder == "" {
			folder = "category"
		}
		dir := filepath.Join(base, folder)
		if s.cfg.CreateSubfolders {
			dir = filepath.Join(dir, subfolderFor(contentKind))
		}
		return dir
	case OrganizeType:
		return filepath.Join(base, subfolderFor(contentKind))
	case OrganizeDate:
		dir := filepath.Join(base, time.Now().Format("2006-01-02"))
		if s.cfg.CreateSubfolders {
			dir = filepath.Join(dir, contentKind)
		}
		return dir
	default:
		return base
	}
}

func subfolderFor(contentKind string) string {
	switch contentKind {
	case "category":
		return "categories"
	case "article":
		return "articles"
	default:
		return "general"
	}
}

// writeJSONAtomic serializes payload with sorted keys and a _metadata block,
// writes it to a sibling temp file, fsyncs, and renames over the target.
func (s *Store) writeJSONAtomic(path string, payload any) error {
	withMeta, err := attachMetadata(payload)
	if err != nil {
		return fmt.Errorf("store: cannot marshal payload: %w", err)
	}

	encoded, err := marshalSortedIndent(withMeta)
	if err != nil {
		return fmt.Errorf("store: cannot encode json: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("store: cannot create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: cannot write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("store: cannot sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: cannot close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("store: cannot rename temp file into place: %w", err)
	}
	return nil
}

// attachMetadata round-trips payload through JSON to merge in a _metadata
// block, regardless of whether payload is a struct or a map.
func attachMetadata(payload any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return nil, err
	}
	asMap["_metadata"] = model.Metadata{
		SavedAt:           time.Now().UTC(),
		CrawlerVersion:    crawlerVersion,
		FileFormatVersion: fileFormatVersion,
	}
	return asMap, nil
}

// marshalSortedIndent marshals v with sorted keys and two-space indent.
// encoding/json already sorts map[string]any keys, so this is a thin
// wrapper that exists to name the contract explicitly.
func marshalSortedIndent(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
