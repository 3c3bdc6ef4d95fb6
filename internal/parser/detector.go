package parser

import (
	"regexp"
)

var (
	// Regex for plugin directories referenced in the markup
	pluginPathRegex = regexp.MustCompile(`/wp-content/plugins/([^/\s"'<>]+)/`)

	// Regex for theme directories referenced in the markup
	themePathRegex = regexp.MustCompile(`/wp-content/themes/([^/\s"'<>]+)/`)
)

// DetectOwners extracts the plugin and theme directory names referenced in
// the raw page markup. Matching is case sensitive and names keep the case
// they were found in. Both lists are sorted and deduplicated.
func DetectOwners(body []byte) (plugins, themes []string) {
	return extractNames(pluginPathRegex, body), extractNames(themePathRegex, body)
}

// extractNames collects the first capture group of every match
func extractNames(re *regexp.Regexp, body []byte) []string {
	set := make(map[string]struct{})
	for _, match := range re.FindAllSubmatch(body, -1) {
		if len(match) > 1 && len(match[1]) > 0 {
			set[string(match[1])] = struct{}{}
		}
	}
	return sortedKeys(set)
}
