package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `
<html><body>
<h1 id="firstHeading">Singapore</h1>
<div id="mw-content-text"><div class="mw-parser-output">
<p>Singapore is a sovereign <sup class="reference">[1]</sup> island country.</p>
<table class="infobox"><tr><td>Capital</td></tr></table>
<h2>History</h2>
<p>Founded in 1819.</p>
<h2>See also</h2>
<ul><li>Singapore</li></ul>
<h2>References</h2>
<div class="reflist">junk</div>
</div></div>
</body></html>
`

func TestProcessStripsInfoboxAndReferences(t *testing.T) {
	p := New(0)
	result, err := p.Process(samplePage)
	require.NoError(t, err)

	assert.Equal(t, "Singapore", result.Title)
	assert.Contains(t, result.Text, "sovereign")
	assert.Contains(t, result.Text, "Founded in 1819")
	assert.NotContains(t, result.Text, "Capital")
	assert.NotContains(t, result.Text, "junk")
	assert.NotContains(t, result.Text, "See also")
}

func TestProcessFlagsTooShortArticles(t *testing.T) {
	p := New(100000)
	result, err := p.Process(samplePage)
	require.NoError(t, err)
	assert.True(t, result.TooShort)
}

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	got := cleanText("a\n\n\n\nb   c\n\n")
	assert.Equal(t, "a\n\nb c", got)
}
