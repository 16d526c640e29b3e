package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikicrawl/wikicrawl/internal/crawler/linkutil"
	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
)

const mammalsCategoryHTML = `
<html><body>
<div id="mw-subcategories">
<a href="/wiki/Category:Felines">Felines</a>
</div>
<div id="mw-pages">
<a href="/wiki/Lion">Lion</a>
</div>
</body></html>
`

func TestProcessBuildsCategoryRecordAndChildrenUnderDepthLimit(t *testing.T) {
	h := New(linkutil.New(nil), nil)
	record, children, err := h.Process(mammalsCategoryHTML, "https://en.wikipedia.org/wiki/Category:Mammals", "Mammals", 0, 5)
	require.NoError(t, err)

	assert.Equal(t, "Category:Mammals", record.Title)
	assert.Equal(t, "category", record.Type)
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/Category:Felines"}, record.Subcategories)
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/Lion"}, record.Articles)

	require.Len(t, children, 2)
	kinds := map[model.Kind]int{}
	for _, c := range children {
		kinds[c.Kind]++
		if c.Kind == model.KindCategory {
			assert.Equal(t, 1, c.Depth)
		} else {
			assert.Equal(t, 0, c.Depth)
		}
	}
	assert.Equal(t, 1, kinds[model.KindCategory])
	assert.Equal(t, 1, kinds[model.KindArticle])
}

func TestProcessDropsSubcategoriesAtDepthLimitButKeepsArticles(t *testing.T) {
	h := New(linkutil.New(nil), nil)
	_, children, err := h.Process(mammalsCategoryHTML, "https://en.wikipedia.org/wiki/Category:Mammals", "Mammals", 2, 2)
	require.NoError(t, err)

	require.Len(t, children, 1)
	assert.Equal(t, model.KindArticle, children[0].Kind)
	assert.Equal(t, 2, children[0].Depth)
}

func TestProcessDropsSubcategoriesWhenMaxDepthIsZero(t *testing.T) {
	h := New(linkutil.New(nil), nil)
	_, children, err := h.Process(mammalsCategoryHTML, "https://en.wikipedia.org/wiki/Category:Mammals", "Mammals", 0, 0)
	require.NoError(t, err)

	require.Len(t, children, 1)
	assert.Equal(t, model.KindArticle, children[0].Kind)
	assert.Equal(t, 0, children[0].Depth)
}

func TestProcessLeavesAlreadyPrefixedTitleUnchanged(t *testing.T) {
	h := New(linkutil.New(nil), nil)
	record, _, err := h.Process(mammalsCategoryHTML, "https://en.wikipedia.org/wiki/Category:Mammals", "Category:Mammals", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "Category:Mammals", record.Title)
}

func TestTitlesFromURLsDecodesUnderscoresAndPercentEncoding(t *testing.T) {
	titles := titlesFromURLs([]string{
		"https://en.wikipedia.org/wiki/Big_cat",
		"https://en.wikipedia.org/wiki/Caf%C3%A9",
	})
	assert.Equal(t, []string{"Big cat", "Café"}, titles)
}
