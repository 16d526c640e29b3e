// Package canon canonicalizes URLs to a normal form used for dedup equality
// across the frontier and the dedup registry. Grounded on the teacher's
// queue.go normalizeURL, extended with the independently toggleable options
// the dedup registry needs (fragment stripping, query sorting, host/path
// normalization can each be switched off).
package canon

import (
	"net/url"
	"sort"
	"strings"
)

// Options controls which normalization steps run. All default to true.
type Options struct {
	NormalizeHost bool
	SortQuery     bool
	StripFragment bool
}

// DefaultOptions returns the spec's default: all three normalizations on.
func DefaultOptions() Options {
	return Options{NormalizeHost: true, SortQuery: true, StripFragment: true}
}

// Canon reduces rawURL to its canonical form under opts.
func Canon(rawURL string, opts Options) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}

	if opts.NormalizeHost {
		u.Scheme = strings.ToLower(u.Scheme)
		u.Host = strings.ToLower(u.Host)
	}

	if opts.StripFragment {
		u.Fragment = ""
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	if opts.SortQuery && u.RawQuery != "" {
		query := u.Query()
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		values := url.Values{}
		for _, k := range keys {
			values[k] = query[k]
		}
		u.RawQuery = values.Encode()
	}

	return u.String()
}
