// Package sanitize derives safe, unique on-disk filenames from Wikipedia page
// titles. Grounded on utils/filename_utils.py (sanitize_filename,
// sanitize_wikipedia_title, create_unique_filename) from the original
// implementation; the Unicode normalization step uses golang.org/x/text, the
// one stdlib-adjacent dependency the rest of the corpus reaches for whenever
// it touches Unicode text width/normalization.
package sanitize

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/wikicrawl/wikicrawl/internal/crawler/model"
)

const maxCodePoints = 200

var disallowed = map[rune]bool{
	'<': true, '>': true, ':': true, '"': true,
	'/': true, '\\': true, '|': true, '?': true, '*': true,
}

var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Sanitize turns a raw page title into a safe, bounded filename with the
// ".json" extension, prefixing "category_" for CATEGORY titles.
func Sanitize(title string, kind model.Kind) string {
	title = strings.TrimPrefix(title, "Category:")
	title = strings.ReplaceAll(title, "_", " ")

	clean := norm.NFKC.String(title)
	clean = replaceDisallowed(clean)
	clean = strings.Trim(clean, ". ")
	if clean == "" {
		clean = "untitled"
	}

	if reservedNames[strings.ToUpper(clean)] {
		clean = clean + "_file"
	}

	prefix := ""
	if kind == model.KindCategory {
		prefix = "category_"
	}

	const suffix = ".json"
	budget := maxCodePoints - len([]rune(prefix)) - len([]rune(suffix))
	if budget < 1 {
		budget = 1
	}
	runes := []rune(clean)
	if len(runes) > budget {
		clean = strings.TrimRight(string(runes[:budget]), ". ")
		if clean == "" {
			clean = "untitled"
		}
	}

	return prefix + clean + suffix
}

// replaceDisallowed replaces disallowed and control characters with "_",
// collapsing consecutive replacements into a single underscore.
func replaceDisallowed(s string) string {
	var b strings.Builder
	lastWasUnderscore := false
	for _, r := range s {
		if disallowed[r] || r < 32 {
			if !lastWasUnderscore {
				b.WriteRune('_')
				lastWasUnderscore = true
			}
			continue
		}
		b.WriteRune(r)
		lastWasUnderscore = r == '_'
	}
	return b.String()
}

// Unique returns name if it is not already present in existing; otherwise it
// appends an incrementing counter before the extension until a free name is
// found, giving up after 10000 attempts.
func Unique(name string, existing map[string]struct{}) (string, error) {
	if _, ok := existing[name]; !ok {
		return name, nil
	}

	stem := name
	ext := ""
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		stem, ext = name[:idx], name[idx:]
	}

	for i := 1; i <= 10000; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, ok := existing[candidate]; !ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("sanitize: could not find a unique name for %q after 10000 attempts", name)
}
