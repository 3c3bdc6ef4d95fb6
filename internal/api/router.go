// Package api exposes the audit over HTTP.
package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/internal/metrics"
	"github.com/mamamialezatoz/go-pmaudit/internal/models"
	"github.com/mamamialezatoz/go-pmaudit/internal/policy"
	"github.com/mamamialezatoz/go-pmaudit/pkg/audit"
)

const corsMaxAgeHours = 12

// Analyzer runs an audit of a URL
type Analyzer interface {
	AnalyzeURL(ctx context.Context, rawURL string, opts audit.AnalyzeOptions) (*models.AnalysisResult, error)
}

// Deps are the collaborators of the HTTP handlers
type Deps struct {
	Analyzer    Analyzer
	Policy      *policy.Store
	Metrics     *metrics.Metrics
	Log         logger.Logger
	CORSOrigins []string
}

// NewRouter builds the HTTP routes of the service
func NewRouter(deps Deps) *gin.Engine {
	if deps.Log == nil {
		deps.Log = logger.NewNop()
	}

	router := gin.New()

	// CORS middleware - must be first
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))

	router.Use(ginLogger(deps.Log))
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	api := router.Group("/api")

	analyzeHandler := NewAnalyzeHandler(deps.Analyzer, deps.Log)
	api.POST("/analyze", analyzeHandler.Analyze)

	if deps.Policy != nil {
		policyHandler := NewPolicyHandler(deps.Policy, deps.Metrics, deps.Log)
		policies := api.Group("/policy")
		policies.GET("", policyHandler.Get)
		policies.PUT("", policyHandler.Put)
		policies.POST("/validate", policyHandler.Validate)
		policies.POST("/reload", policyHandler.Reload)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept-Encoding",
			"Authorization", "Accept", "Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        corsMaxAgeHours * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func ginLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", c.Writer.Status()),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", time.Since(start)),
		)
	}
}
