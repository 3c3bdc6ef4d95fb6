package detection

import (
	"strings"

	"github.com/mamamialezatoz/go-pmaudit/internal/models"
)

const (
	headerCloudflareCache = "cf-cache-status"
	headerBigScootsCache  = "x-bigscoots-cache-status"
	headerBigScootsPlan   = "x-bigscoots-cache-plan"

	notFound = "Not Found"

	// PlanPerformancePlus is reported for sites on the BigScoots Performance+ plan
	PlanPerformancePlus = "Performance Plus"
)

// CacheStatusFromHeaders reads the cache diagnostics set by Cloudflare and
// BigScoots from the response headers of a page
func CacheStatusFromHeaders(headers map[string][]string) models.CacheStatus {
	// Convert headers to lowercase for case-insensitive matching
	normalizedHeaders := make(map[string]string, len(headers))
	for header, values := range headers {
		if len(values) > 0 {
			normalizedHeaders[strings.ToLower(header)] = strings.TrimSpace(values[0])
		}
	}

	status := models.CacheStatus{
		Cloudflare: "CF-CACHE: " + valueOr(normalizedHeaders[headerCloudflareCache], notFound),
		BigScoots:  "X-Bigscoots-Cache-Status: " + valueOr(normalizedHeaders[headerBigScootsCache], notFound),
	}
	if normalizedHeaders[headerBigScootsPlan] == "Performance+" {
		status.Plan = PlanPerformancePlus
	}
	return status
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
