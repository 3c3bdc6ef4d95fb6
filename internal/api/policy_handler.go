package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/internal/metrics"
	"github.com/mamamialezatoz/go-pmaudit/internal/policy"
)

const maxPolicyBody = 4 << 20

// PolicyResponse describes the active policy table
type PolicyResponse struct {
	Version  string              `json:"version"`
	Digest   string              `json:"digest"`
	LoadedAt time.Time           `json:"loaded_at"`
	Owners   int                 `json:"owners"`
	Entries  map[string][]string `json:"entries"`
}

// PolicyHandler administers the policy table
type PolicyHandler struct {
	store   *policy.Store
	metrics *metrics.Metrics
	log     logger.Logger
}

// NewPolicyHandler creates a policy handler
func NewPolicyHandler(store *policy.Store, m *metrics.Metrics, log logger.Logger) *PolicyHandler {
	return &PolicyHandler{store: store, metrics: m, log: log}
}

// Get handles GET /api/policy
func (h *PolicyHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, newPolicyResponse(h.store.Current()))
}

// Validate handles POST /api/policy/validate. The body is a YAML policy
// document; nothing is installed.
func (h *PolicyHandler) Validate(c *gin.Context) {
	data, ok := readBody(c)
	if !ok {
		return
	}
	snap, err := policy.Parse(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "version": snap.Version(), "owners": snap.Len()})
}

// Put handles PUT /api/policy: the document is validated, written to the
// policy file and installed
func (h *PolicyHandler) Put(c *gin.Context) {
	data, ok := readBody(c)
	if !ok {
		return
	}
	if _, err := policy.Parse(data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
		return
	}

	snap, err := h.store.Save(data)
	if errors.Is(err, policy.ErrNotWritable) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("Failed to save policy", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file: " + err.Error()})
		return
	}

	h.log.Info("Policy saved", logger.String("version", snap.Version()), logger.String("digest", snap.Digest()))
	c.JSON(http.StatusOK, gin.H{"message": "File saved successfully!", "version": snap.Version(), "digest": snap.Digest()})
}

// Reload handles POST /api/policy/reload
func (h *PolicyHandler) Reload(c *gin.Context) {
	snap, err := h.store.Reload(c.Request.Context())
	if err != nil {
		h.metrics.PolicyReloaded(err, 0)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Policy reload failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, newPolicyResponse(snap))
}

func newPolicyResponse(snap *policy.Snapshot) PolicyResponse {
	return PolicyResponse{
		Version:  snap.Version(),
		Digest:   snap.Digest(),
		LoadedAt: snap.LoadedAt(),
		Owners:   snap.Len(),
		Entries:  snap.Document().Entries,
	}
}

// readBody reads a bounded request body, answering the request on failure
func readBody(c *gin.Context) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPolicyBody))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return nil, false
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "empty policy document"})
		return nil, false
	}
	return data, true
}
