package linkutil

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

const categoryPageHTML = `
<html><body>
<div id="mw-subcategories">
<a href="/wiki/Category:Felines">Felines</a>
</div>
<div id="mw-pages">
<a href="/wiki/Lion">Lion</a>
<a href="/wiki/Tiger">Tiger</a>
</div>
<div id="bodyContent">
<a href="/wiki/Talk:Lion">Talk</a>
<a href="/wiki/Special:Search">Search</a>
<a href="#cite_note-1">footnote</a>
<a href="https://example.com/external">external</a>
</div>
</body></html>
`

func TestExtractSplitsSubcategoriesAndArticles(t *testing.T) {
	e := New(nil)
	extracted, err := e.Extract(categoryPageHTML, "https://en.wikipedia.org/wiki/Category:Mammals")
	require.NoError(t, err)

	require.Len(t, extracted.Subcategories, 1)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Category:Felines", extracted.Subcategories[0])

	require.Len(t, extracted.Articles, 2)
	assert.ElementsMatch(t, []string{
		"https://en.wikipedia.org/wiki/Lion",
		"https://en.wikipedia.org/wiki/Tiger",
	}, extracted.Articles)
}

func TestExtractExcludesNonContentNamespaces(t *testing.T) {
	e := New(nil)
	extracted, err := e.Extract(categoryPageHTML, "https://en.wikipedia.org/wiki/Category:Mammals")
	require.NoError(t, err)

	all := append(append([]string{}, extracted.Subcategories...), extracted.Articles...)
	for _, u := range all {
		assert.NotContains(t, u, "Talk:")
		assert.NotContains(t, u, "Special:")
	}
}

func TestExtractDedupesRepeatedLinks(t *testing.T) {
	e := New(nil)
	html := `<div id="bodyContent"><a href="/wiki/Lion">a</a><a href="/wiki/Lion">b</a></div>`
	extracted, err := e.Extract(html, "https://en.wikipedia.org/wiki/Category:Mammals")
	require.NoError(t, err)
	assert.Len(t, extracted.Articles, 1)
}

func TestClassifyWikiLinkDecodesUnderscoresAndPercentEncoding(t *testing.T) {
	title, kind, ok := classifyWikiLink(mustParseURL(t, "https://en.wikipedia.org/wiki/Caf%C3%A9_culture"))
	require.True(t, ok)
	assert.Equal(t, "Café culture", title)
	assert.Equal(t, "article", string(kind))
}

func TestClassifyWikiLinkRejectsNonWikiPath(t *testing.T) {
	_, _, ok := classifyWikiLink(mustParseURL(t, "https://en.wikipedia.org/w/index.php?title=Lion"))
	assert.False(t, ok)
}
