// Package language decides whether a rendered article's language is in a
// configured allow-set. The URL itself is the highest-confidence signal
// (Wikipedia's per-language subdomains), falling back to the
// abadojack/whatlanggo probabilistic detector (called directly; there is no
// interface for swapping it) and finally to a cheap script-range heuristic. Grounded on processors/language_filter.py.
package language

import (
	"net/url"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// Filter decides whether article text is written in one of a configured
// set of supported languages, keeping a histogram of every code it has
// detected.
type Filter struct {
	supported map[string]struct{}

	mu        sync.Mutex
	histogram map[string]int
}

// New constructs a Filter. Languages are codes as used in CrawlConfig's
// supported_languages list ("en", "zh", "zh-cn", "zh-tw", ...).
func New(supportedLanguages []string) *Filter {
	supported := make(map[string]struct{}, len(supportedLanguages))
	for _, lang := range supportedLanguages {
		supported[normalizeCode(lang)] = struct{}{}
	}
	return &Filter{
		supported: supported,
		histogram: make(map[string]int),
	}
}

// hostLanguage maps a Wikipedia language subdomain to its code, the §4.J
// URL rule.
var hostLanguage = map[string]string{
	"en.wikipedia.org":    "en",
	"zh.wikipedia.org":    "zh",
	"zh-cn.wikipedia.org": "zh-cn",
	"zh-tw.wikipedia.org": "zh-tw",
}

// urlLanguage returns the language implied by rawURL's host, or "" if the
// host carries no known language subdomain.
func urlLanguage(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return hostLanguage[strings.ToLower(u.Host)]
}

// minConfidentLength below which whatlanggo's detection is unreliable
// enough that the script heuristic should decide instead.
const minConfidentLength = 30

var nonTextPattern = regexp.MustCompile(`https?://\S+|[\w.+-]+@[\w.-]+|\d+|[[:punct:]]`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// cleanForDetection strips URLs, emails, digits, and punctuation and
// collapses whitespace before handing text to the detector.
func cleanForDetection(text string) string {
	cleaned := nonTextPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
}

// Detect identifies content's language: the URL rule first, then the
// probabilistic detector, then the script heuristic.
func (f *Filter) Detect(content, rawURL string) string {
	if code := urlLanguage(rawURL); code != "" {
		f.record(code)
		return code
	}

	cleaned := cleanForDetection(content)
	if cleaned == "" {
		f.record("unknown")
		return "unknown"
	}

	if len([]rune(cleaned)) >= minConfidentLength {
		info := whatlanggo.Detect(cleaned)
		if info.Confidence >= 0.1 {
			if code := normalizeCode(info.Lang.Iso6391()); code != "" {
				f.record(code)
				return code
			}
		}
	}

	code := scriptHeuristic(cleaned)
	f.record(code)
	return code
}

// scriptHeuristic counts code points in the CJK Unified Ideographs range
// and in [A-Za-z]: CJK >= 10% of scripted characters -> zh; else Latin >=
// 80% -> en; else unknown.
func scriptHeuristic(text string) string {
	var cjk, latin, scripted int

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			cjk++
			scripted++
		case (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z'):
			latin++
			scripted++
		}
	}

	if scripted == 0 {
		return "unknown"
	}
	if float64(cjk)/float64(scripted) >= 0.10 {
		return "zh"
	}
	if float64(latin)/float64(scripted) >= 0.80 {
		return "en"
	}
	return "unknown"
}

// aliases maps alternate spellings down to the codes used by
// CrawlConfig.SupportedLanguages, matching processors/language_filter.py's
// IsSupported normalization table.
var aliases = map[string]string{
	"chinese":  "zh",
	"mandarin": "zh",
	"zh-hans":  "zh-cn",
	"zh-hant":  "zh-tw",
	"zh-sg":    "zh-cn",
	"zh-my":    "zh-cn",
	"eng":      "en",
	"jpn":      "ja",
	"cmn":      "zh",
	"zho":      "zh",
	"kor":      "ko",
	"rus":      "ru",
	"ara":      "ar",
}

func normalizeCode(code string) string {
	lower := strings.ToLower(strings.TrimSpace(code))
	if mapped, ok := aliases[lower]; ok {
		return mapped
	}
	return lower
}

// IsSupported reports whether code, after normalization, is in the
// filter's allow-set.
func (f *Filter) IsSupported(code string) bool {
	_, ok := f.supported[normalizeCode(code)]
	return ok
}

// Filter decides whether content (fetched from rawURL) is in the allow-set.
// Soft rule: if the detector lands on "unknown" but rawURL's host implies a
// supported language, accept using the URL's code.
func (f *Filter) Filter(content, rawURL string) (accept bool, code string) {
	code = f.Detect(content, rawURL)
	if f.IsSupported(code) {
		return true, code
	}
	if code == "unknown" {
		if urlCode := urlLanguage(rawURL); urlCode != "" && f.IsSupported(urlCode) {
			return true, urlCode
		}
	}
	return false, code
}

func (f *Filter) record(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histogram[code]++
}

// Histogram returns a copy of the per-code detection counts accumulated
// so far.
func (f *Filter) Histogram() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.histogram))
	for k, v := range f.histogram {
		out[k] = v
	}
	return out
}
