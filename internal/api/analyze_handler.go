package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/internal/models"
	"github.com/mamamialezatoz/go-pmaudit/pkg/audit"
)

// AnalyzeRequest is the body of POST /api/analyze
type AnalyzeRequest struct {
	URL    string `json:"url"`
	Option string `json:"option"`
	RunPSI bool   `json:"run_psi"`
}

// AnalyzeResponse keeps the field names existing front ends read, plus
// the structured findings
type AnalyzeResponse struct {
	URL                  string                               `json:"url"`
	JSIDs                []string                             `json:"js_ids"`
	CSSIDs               []string                             `json:"css_ids"`
	InlineScripts        []string                             `json:"inline_scripts"`
	CacheStatus          string                               `json:"cache_status"`
	BigScootsCacheStatus string                               `json:"bigscoots_cache_status"`
	CachePlan            string                               `json:"cache_plan"`
	PerformanceTools     string                               `json:"performance_tools"`
	Plugins              []string                             `json:"plugins"`
	Themes               []string                             `json:"themes"`
	Recommendations      []string                             `json:"recommendations"`
	Findings             models.Recommendations               `json:"findings"`
	PolicyVersion        string                               `json:"policy_version"`
	CWV                  map[models.Platform]models.LabScores `json:"cwv,omitempty"`
	FieldData            map[models.Platform]models.FieldData `json:"field_data,omitempty"`
}

// AnalyzeHandler serves page audits
type AnalyzeHandler struct {
	analyzer Analyzer
	log      logger.Logger
}

// NewAnalyzeHandler creates an analyze handler
func NewAnalyzeHandler(analyzer Analyzer, log logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, log: log}
}

// Analyze handles POST /api/analyze
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Option == "" {
		req.Option = string(audit.VariantDefault)
	}

	h.log.Info("Analyze request received",
		logger.String("url", req.URL),
		logger.String("option", req.Option),
		logger.Bool("run_psi", req.RunPSI),
	)

	result, err := h.analyzer.AnalyzeURL(c.Request.Context(), req.URL, audit.AnalyzeOptions{
		Variant: audit.Variant(req.Option),
		Scores:  req.RunPSI,
	})
	switch {
	case err == nil:
	case errors.Is(err, audit.ErrInvalidURL):
		h.log.Warn("Invalid URL provided", logger.String("url", req.URL))
		c.JSON(http.StatusBadRequest, gin.H{"error": audit.InvalidURLMessage})
		return
	case errors.Is(err, audit.ErrFetchFailed):
		h.log.Error("Request failed", logger.String("url", req.URL), logger.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Request failed: " + err.Error()})
		return
	default:
		h.log.Error("Analysis failed", logger.String("url", req.URL), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, NewAnalyzeResponse(result))
}

// NewAnalyzeResponse converts an analysis result into the API payload
func NewAnalyzeResponse(r *models.AnalysisResult) AnalyzeResponse {
	resp := AnalyzeResponse{
		URL:                  r.URL,
		JSIDs:                nonNil(r.Inventory.ScriptIDs),
		CSSIDs:               nonNil(r.Inventory.StyleIDs),
		InlineScripts:        nonNil(r.Inventory.InlineDelayed),
		CacheStatus:          r.Cache.Cloudflare,
		BigScootsCacheStatus: r.Cache.BigScoots,
		CachePlan:            r.Cache.Plan,
		PerformanceTools:     r.PerformanceTools,
		Plugins:              nonNil(r.Plugins),
		Themes:               nonNil(r.Themes),
		Recommendations:      r.Findings.Strings(),
		Findings:             r.Findings,
		PolicyVersion:        r.PolicyVersion,
	}
	if resp.Findings == nil {
		resp.Findings = models.Recommendations{}
	}
	if r.Scores != nil {
		resp.CWV = r.Scores.Lab
		resp.FieldData = r.Scores.Field
	}
	return resp
}

// nonNil keeps empty lists as [] in JSON
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
