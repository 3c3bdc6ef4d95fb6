package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/internal/models"
)

// CrUX metric names
const (
	metricLCP  = "largest_contentful_paint"
	metricFCP  = "first_contentful_paint"
	metricCLS  = "cumulative_layout_shift"
	metricTTFB = "experimental_time_to_first_byte"
)

type cruxRequest struct {
	Origin     string   `json:"origin"`
	FormFactor string   `json:"formFactor"`
	Metrics    []string `json:"metrics"`
}

type cruxResponse struct {
	Record *struct {
		Metrics map[string]struct {
			Percentiles struct {
				P75 json.RawMessage `json:"p75"`
			} `json:"percentiles"`
		} `json:"metrics"`
	} `json:"record"`
}

// FormFactor maps a platform to its CrUX form factor
func FormFactor(platform models.Platform) string {
	if platform == models.PlatformMobile {
		return "PHONE"
	}
	return "DESKTOP"
}

// Origin reduces a page URL to the scheme and host CrUX records are kept for
func Origin(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return pageURL
	}
	return u.Scheme + "://" + strings.ToLower(u.Host)
}

// FieldData queries the Chrome UX Report for the origin of pageURL. A
// missing record is not an error: it is reported as FieldNotPresent.
// Results are cached per origin and form factor.
func (c *Client) FieldData(ctx context.Context, pageURL string, platform models.Platform) (models.FieldData, error) {
	if c.cfg.APIKey == "" {
		return models.FieldData{}, ErrNoAPIKey
	}

	key := fieldKey{origin: Origin(pageURL), formFactor: FormFactor(platform)}
	if data, ok := c.field.Get(key); ok {
		c.metrics.FieldCacheLookup(true)
		return data, nil
	}
	c.metrics.FieldCacheLookup(false)

	payload, err := json.Marshal(cruxRequest{
		Origin:     key.origin,
		FormFactor: key.formFactor,
		Metrics:    []string{metricLCP, metricFCP, metricCLS, metricTTFB},
	})
	if err != nil {
		return models.FieldData{}, err
	}
	endpoint := c.cfg.CrUXEndpoint + "?" + url.Values{"key": {c.cfg.APIKey}}.Encode()

	var data models.FieldData
	err = c.retry(ctx, serviceCrUX, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		body, err := c.do(req)
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			data = models.FieldData{Status: models.FieldNotPresent}
			return nil
		}
		if err != nil {
			return err
		}

		var resp cruxResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return backoff.Permanent(fmt.Errorf("decode CrUX response: %w", err))
		}
		data = resp.fieldData()
		return nil
	})
	if err != nil {
		return models.FieldData{}, err
	}

	c.field.Add(key, data)
	c.log.Info("Field data fetched",
		logger.String("origin", key.origin),
		logger.String("form_factor", key.formFactor),
		logger.String("status", string(data.Status)),
	)
	return data, nil
}

func (r *cruxResponse) fieldData() models.FieldData {
	if r.Record == nil || len(r.Record.Metrics) == 0 {
		return models.FieldData{Status: models.FieldNotPresent}
	}

	p75 := func(metric string, scale float64) *float64 {
		m, ok := r.Record.Metrics[metric]
		if !ok {
			return nil
		}
		v, ok := parseNumber(m.Percentiles.P75)
		if !ok {
			return nil
		}
		v /= scale
		return &v
	}

	return models.FieldData{
		Status: models.FieldPresent,
		FCP:    p75(metricFCP, 1000),
		LCP:    p75(metricLCP, 1000),
		CLS:    p75(metricCLS, 1),
		TTFB:   p75(metricTTFB, 1000),
	}
}

// parseNumber reads a percentile that CrUX encodes either as a JSON number
// or as a decimal string
func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
