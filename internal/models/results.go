package models

// AnalysisResult represents the complete result of auditing one page
type AnalysisResult struct {
	// URL that was analyzed, including any option suffix
	URL string `json:"url"`
	// Plugins detected in the page markup, sorted
	Plugins []string `json:"plugins"`
	// Themes detected in the page markup, sorted
	Themes []string `json:"themes"`
	// Findings is the structured recommendation list
	Findings Recommendations `json:"findings"`
	// Inventory of scripts and styles the audit was based on
	Inventory Inventory `json:"-"`
	// Cache diagnostics taken from the response headers
	Cache CacheStatus `json:"cache"`
	// PerformanceTools names the optimization plugins present on the page
	PerformanceTools string `json:"performance_tools"`
	// StatusCode of the page fetch
	StatusCode int `json:"status_code,omitempty"`
	// ResponseTime of the page fetch in milliseconds
	ResponseTime int64 `json:"response_time_ms,omitempty"`
	// PolicyVersion identifies the policy table the findings were computed with
	PolicyVersion string `json:"policy_version,omitempty"`
	// Scores from the scoring services, when requested
	Scores *Scores `json:"scores,omitempty"`
}

// CacheStatus holds cache header diagnostics
type CacheStatus struct {
	// Cloudflare is rendered as "CF-CACHE: <value>"
	Cloudflare string `json:"cache_status"`
	// BigScoots is rendered as "X-Bigscoots-Cache-Status: <value>"
	BigScoots string `json:"bigscoots_cache_status"`
	// Plan is "Performance Plus" for the Performance+ plan, empty otherwise
	Plan string `json:"cache_plan"`
}

// Platform is a device class used by the scoring services
type Platform string

const (
	PlatformMobile  Platform = "mobile"
	PlatformDesktop Platform = "desktop"
)

// Platforms lists the platforms scored on every request, in reporting order
var Platforms = []Platform{PlatformMobile, PlatformDesktop}

// LabScores are the lab metrics reported by PageSpeed Insights.
// LCP and TBT are in seconds.
type LabScores struct {
	LCP          float64 `json:"LCP"`
	CLS          float64 `json:"CLS"`
	TBT          float64 `json:"TBT"`
	OverallScore float64 `json:"overall_score"`
}

// FieldStatus describes the outcome of a field data lookup
type FieldStatus string

const (
	FieldPresent     FieldStatus = "present"
	FieldNotPresent  FieldStatus = "Field Data Not Present"
	FieldUnavailable FieldStatus = "unavailable"
)

// FieldData are p75 values reported by the Chrome UX Report.
// Time based metrics are in seconds; a nil metric was not reported.
type FieldData struct {
	Status FieldStatus `json:"status"`
	FCP    *float64    `json:"FCP,omitempty"`
	LCP    *float64    `json:"LCP,omitempty"`
	CLS    *float64    `json:"CLS,omitempty"`
	TTFB   *float64    `json:"TTFB,omitempty"`
}

// Scores gathers everything the scoring services returned for one URL.
// Platforms whose lab scores could not be fetched are absent from Lab.
type Scores struct {
	Lab   map[Platform]LabScores `json:"cwv,omitempty"`
	Field map[Platform]FieldData `json:"field_data,omitempty"`
}
