package parser

import (
	"regexp"
	"strings"
)

// schemeRegex matches the scheme of an absolute URL, up to and including "//"
var schemeRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// NormalizeAsset lowercases an identifier for comparison
func NormalizeAsset(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeSource reduces a script URL to its lowercased path, dropping the
// scheme, host, query string and fragment. The path is kept as written:
// spaces and non-ASCII characters are not escaped.
func NormalizeSource(src string) string {
	src = strings.TrimSpace(src)
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}

	var authority bool
	switch {
	case strings.HasPrefix(src, "//"):
		src, authority = src[2:], true
	case schemeRegex.MatchString(src):
		src, authority = src[len(schemeRegex.FindString(src)):], true
	}
	if authority {
		i := strings.IndexByte(src, '/')
		if i < 0 {
			return ""
		}
		src = src[i:]
	}
	return strings.ToLower(src)
}
