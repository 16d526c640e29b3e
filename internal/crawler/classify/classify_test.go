package classify

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestClassifyCategoryPageByURL(t *testing.T) {
	doc := parseHTML(t, `<html><body><h1 id="firstHeading">Mammals</h1></body></html>`)
	result := Classify(doc, "https://en.wikipedia.org/wiki/Category:Mammals")

	assert.Equal(t, model.KindCategory, result.Kind)
	assert.Equal(t, "Mammals", result.Title)
}

func TestClassifyCategoryPageByDOMMarkers(t *testing.T) {
	doc := parseHTML(t, `<html><body>
<h1 id="firstHeading">Mammals</h1>
<div id="mw-subcategories"></div>
<div id="mw-pages"></div>
</body></html>`)
	result := Classify(doc, "https://en.wikipedia.org/wiki/Mammals")

	assert.Equal(t, model.KindCategory, result.Kind)
}

func TestClassifyOrdinaryArticle(t *testing.T) {
	doc := parseHTML(t, `<html><body><h1 id="firstHeading">Lion</h1><p>The lion is a species.</p></body></html>`)
	result := Classify(doc, "https://en.wikipedia.org/wiki/Lion")

	assert.Equal(t, model.KindArticle, result.Kind)
	assert.False(t, result.IsDisambiguation)
	assert.False(t, result.IsRedirect)
	assert.False(t, result.IsMissing)
}

func TestClassifyDisambiguationPage(t *testing.T) {
	doc := parseHTML(t, `<html><body><h1 id="firstHeading">Mercury</h1><div id="disambigbox"></div></body></html>`)
	result := Classify(doc, "https://en.wikipedia.org/wiki/Mercury")

	assert.Equal(t, model.KindArticle, result.Kind)
	assert.True(t, result.IsDisambiguation)
}

func TestClassifyRedirectPage(t *testing.T) {
	doc := parseHTML(t, `<html><body><div class="redirectMsg">Redirected from Foo</div></body></html>`)
	result := Classify(doc, "https://en.wikipedia.org/wiki/Foo")

	assert.True(t, result.IsRedirect)
}

func TestClassifyMissingPage(t *testing.T) {
	doc := parseHTML(t, `<html><body><div id="noarticletext">no such page</div></body></html>`)
	result := Classify(doc, "https://en.wikipedia.org/wiki/Nonexistent")

	assert.True(t, result.IsMissing)
}
