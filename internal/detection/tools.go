package detection

import "strings"

// Performance tool summaries
const (
	ToolsBoth        = "Perfmatters + WP Rocket"
	ToolsPerfmatters = "Perfmatters"
	ToolsWPRocket    = "WP Rocket"
	ToolsNone        = "No Perfmatters"
)

// PerformanceTools reports which optimization plugins load assets on the page.
// lowerText is the page markup, lowercased.
func PerformanceTools(lowerText string) string {
	perfmatters := strings.Contains(lowerText, "/plugins/perfmatters")
	rocket := strings.Contains(lowerText, "/plugins/wp-rocket")

	switch {
	case perfmatters && rocket:
		return ToolsBoth
	case perfmatters:
		return ToolsPerfmatters
	case rocket:
		return ToolsWPRocket
	default:
		return ToolsNone
	}
}
