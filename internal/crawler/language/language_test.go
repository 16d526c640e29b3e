package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const englishSample = "Singapore is a sovereign island country and city-state in maritime Southeast Asia."

func TestFilterAcceptsSupportedLanguageDetectedFromText(t *testing.T) {
	f := New([]string{"en"})
	accept, code := f.Filter(englishSample, "https://example.org/Singapore")
	assert.True(t, accept)
	assert.Equal(t, "en", code)
}

func TestFilterRejectsUnsupportedLanguage(t *testing.T) {
	f := New([]string{"ja"})
	accept, _ := f.Filter(englishSample, "https://example.org/Singapore")
	assert.False(t, accept)
}

func TestFilterURLRuleWinsRegardlessOfDetectorOutput(t *testing.T) {
	f := New([]string{"en"})
	accept, code := f.Filter("zupełnie nie po angielsku", "https://en.wikipedia.org/wiki/Singapore")
	assert.True(t, accept)
	assert.Equal(t, "en", code)
}

func TestFilterURLRuleAppliesPerLanguageSubdomain(t *testing.T) {
	f := New([]string{"zh"})
	accept, code := f.Filter(englishSample, "https://zh.wikipedia.org/wiki/%E6%96%B0%E5%8A%A0%E5%9D%A1")
	assert.True(t, accept)
	assert.Equal(t, "zh", code)
}

func TestDetectEmptyTextIsUnknown(t *testing.T) {
	f := New([]string{"en"})
	assert.Equal(t, "unknown", f.Detect("   ", "https://example.org/x"))
}

func TestScriptHeuristicAppliesCJKAndLatinThresholds(t *testing.T) {
	assert.Equal(t, "zh", scriptHeuristic("新加坡是一个主权岛国"))
	assert.Equal(t, "en", scriptHeuristic("Hello there, this is English text."))
	assert.Equal(t, "unknown", scriptHeuristic("12345 !!! ???"))
}

func TestIsSupportedNormalizesAliases(t *testing.T) {
	f := New([]string{"zh", "zh-cn", "zh-tw"})
	assert.True(t, f.IsSupported("chinese"))
	assert.True(t, f.IsSupported("zh-hans"))
	assert.True(t, f.IsSupported("zh-hant"))
	assert.True(t, f.IsSupported("zh-sg"))
}

func TestHistogramAccumulatesDetectedCodes(t *testing.T) {
	f := New([]string{"en"})
	f.Detect(englishSample, "https://en.wikipedia.org/wiki/Singapore")
	f.Detect(englishSample, "https://en.wikipedia.org/wiki/Malaysia")
	hist := f.Histogram()
	assert.Equal(t, 2, hist["en"])
}
