package common

// Seed URL validation for the crawler's fatal-initialization-failure check
// (§6: exit code 1 on an invalid seed URL). Grounded on the teacher's
// url_utils.go host/scheme validation and its segment-based hasWikiPath
// check, generalized from "sources define WHAT to connect to" to "is this a
// usable Wikipedia category seed".

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateSeedURL checks that seedURL is a well-formed HTTPS Wikipedia URL
// with a /wiki/ path segment. It does not require a Category: prefix — an
// article URL is a legal (if unusual) seed.
func ValidateSeedURL(seedURL string) error {
	parsed, err := url.Parse(seedURL)
	if err != nil {
		return fmt.Errorf("invalid seed URL: %w", err)
	}

	if parsed.Scheme != "https" {
		return fmt.Errorf("seed URL must use https, got %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("seed URL host is empty")
	}

	host := strings.ToLower(parsed.Host)
	if host != "wikipedia.org" && !strings.HasSuffix(host, ".wikipedia.org") {
		return fmt.Errorf("seed URL host %q is not a wikipedia.org host", parsed.Host)
	}

	if !hasWikiPath(parsed.Path) {
		return fmt.Errorf("seed URL path %q does not contain a /wiki/ segment", parsed.Path)
	}

	return nil
}

// hasWikiPath checks whether basePath contains a "wiki" path segment.
func hasWikiPath(basePath string) bool {
	if basePath == "" {
		return false
	}
	for _, segment := range strings.Split(basePath, "/") {
		if segment == "wiki" {
			return true
		}
	}
	return false
}
