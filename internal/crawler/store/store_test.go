package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
)

func TestSaveCategoryWritesAtomicallyWithMetadata(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{OutputDir: dir, OrganizeBy: OrganizeFlat}, nil)
	require.NoError(t, err)

	path, err := s.SaveCategory(model.CategoryRecord{
		URL:         "https://en.wikipedia.org/wiki/Category:Singapore_History",
		Title:       "Category:Singapore History",
		ProcessedAt: time.Now(),
		Type:        "category",
	})
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, filepath.Join(dir, "category_Singapore History.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	meta, ok := decoded["_metadata"].(map[string]any)
	require.True(t, ok, "expected _metadata block")
	assert.NotEmpty(t, meta["saved_at"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "no leftover temp files")
	}
}

func TestSaveArticleFlatLayoutDedupesGlobally(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{OutputDir: dir, OrganizeBy: OrganizeFlat}, nil)
	require.NoError(t, err)

	first, err := s.SaveArticle(model.ArticleRecord{Title: "Singapore", Type: "article"})
	require.NoError(t, err)
	second, err := s.SaveArticle(model.ArticleRecord{Title: "Singapore", Type: "article"})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Join(dir, "Singapore.json"), first)
	assert.Equal(t, filepath.Join(dir, "Singapore_1.json"), second)
}

func TestCategoryLayoutAllowsSameBasenameInDifferentSubfolders(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{
		OutputDir:          dir,
		OrganizeBy:         OrganizeCategory,
		CategoryFolderName: "category",
		CreateSubfolders:   true,
	}, nil)
	require.NoError(t, err)

	categoryPath, err := s.SaveCategory(model.CategoryRecord{Title: "Singapore", Type: "category"})
	require.NoError(t, err)
	articlePath, err := s.SaveArticle(model.ArticleRecord{Title: "Singapore", Type: "article"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "category", "categories", "category_Singapore.json"), categoryPath)
	assert.Equal(t, filepath.Join(dir, "category", "articles", "Singapore.json"), articlePath)
}

func TestNewPreloadsExistingNamesFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Singapore.json"), []byte(`{}`), 0o644))

	s, err := New(Config{OutputDir: dir, OrganizeBy: OrganizeFlat}, nil)
	require.NoError(t, err)
	assert.True(t, s.Exists("Singapore.json"))

	path, err := s.SaveArticle(model.ArticleRecord{Title: "Singapore", Type: "article"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Singapore_1.json"), path)
}

func TestSaveJSONAppendsExtensionWhenMissing(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Config{OutputDir: dir, OrganizeBy: OrganizeFlat}, nil)
	require.NoError(t, err)

	path, err := s.SaveJSON("queue_state", map[string]any{"pending": []string{}}, "state")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "queue_state.json"), path)
}
