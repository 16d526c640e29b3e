package frontier

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
)

func TestAddRejectsDuplicatesAfterCanonicalization(t *testing.T) {
	f := New()
	assert.True(t, f.Add("https://EN.wikipedia.org/wiki/Category:Singapore", model.KindCategory, 0))
	assert.False(t, f.Add("https://en.wikipedia.org/wiki/Category:Singapore", model.KindCategory, 0))
	assert.Equal(t, 1, f.Len())
}

func TestNextReturnsCategoriesBeforeArticlesAtSameDepth(t *testing.T) {
	f := New()
	f.Add("https://en.wikipedia.org/wiki/Singapore", model.KindArticle, 1)
	f.Add("https://en.wikipedia.org/wiki/Category:Asia", model.KindCategory, 1)

	ctx := context.Background()
	entry, ok, err := f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.KindCategory, entry.Kind)
}

func TestNextPrefersCategoryEvenAtGreaterDepthThanArticle(t *testing.T) {
	f := New()
	f.Add("https://en.wikipedia.org/wiki/Shallow", model.KindArticle, 0)
	f.Add("https://en.wikipedia.org/wiki/Category:Deep", model.KindCategory, 3)

	entry, ok, err := f.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.KindCategory, entry.Kind)
}

func TestMarkCompletedPreventsReAdd(t *testing.T) {
	f := New()
	f.Add("https://en.wikipedia.org/wiki/Singapore", model.KindArticle, 0)
	entry, _, _ := f.Next(context.Background())
	f.MarkCompleted(entry.URL)

	assert.True(t, f.IsDone(entry.URL))
	assert.False(t, f.Add(entry.URL, model.KindArticle, 0))
}

func TestNextReturnsFalseWhenClosedAndEmpty(t *testing.T) {
	f := New()
	f.Close()
	entry, ok, err := f.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, model.Entry{}, entry)
}

func TestNextHonorsContextCancellation(t *testing.T) {
	f := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := f.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSaveAndLoadRoundTripsPendingAndCompleted(t *testing.T) {
	f := New()
	f.Add("https://en.wikipedia.org/wiki/Category:Asia", model.KindCategory, 0)
	f.Add("https://en.wikipedia.org/wiki/Singapore", model.KindArticle, 1)
	entry, _, _ := f.Next(context.Background())
	f.MarkCompleted(entry.URL)

	path := filepath.Join(t.TempDir(), "queue_state.json")
	require.NoError(t, f.Save(path))

	restored, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Len())
	assert.True(t, restored.IsDone(entry.URL))
}
