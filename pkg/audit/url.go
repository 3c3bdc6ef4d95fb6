package audit

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned for targets that are not absolute https URLs
var ErrInvalidURL = errors.New("invalid URL: expected an absolute https:// URL")

// ErrFetchFailed wraps every failure to download the target page
var ErrFetchFailed = errors.New("request failed")

// InvalidURLMessage is the message shown to users for an invalid target
const InvalidURLMessage = "Please enter a valid URL starting with https://"

// Variant selects how the target page is requested
type Variant string

const (
	// VariantDefault requests the page as is
	VariantDefault Variant = "default"
	// VariantPerfmattersOff requests the page with Perfmatters disabled
	VariantPerfmattersOff Variant = "perfmattersoff"
	// VariantNoCache requests the page bypassing the page cache
	VariantNoCache Variant = "nocache"
)

var validURLRegex = regexp.MustCompile(`^https://[^\s$.?#].[^\s]*$`)

// ValidateURL checks that rawURL is an https URL with a host
func ValidateURL(rawURL string) error {
	if !validURLRegex.MatchString(rawURL) {
		return ErrInvalidURL
	}
	return nil
}

// ApplyVariant adds the query flag of variant to rawURL. Unknown variants
// leave the URL unchanged.
func ApplyVariant(rawURL string, variant Variant) string {
	switch variant {
	case VariantPerfmattersOff, VariantNoCache:
	default:
		return rawURL
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + string(variant)
}
