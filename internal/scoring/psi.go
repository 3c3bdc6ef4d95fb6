package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/cenkalti/backoff/v4"

	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/internal/models"
)

const maxResponseSize = 16 << 20

// psiResponse is the part of a runPagespeed response that is read
type psiResponse struct {
	LighthouseResult struct {
		Categories struct {
			Performance struct {
				Score *float64 `json:"score"`
			} `json:"performance"`
		} `json:"categories"`
		Audits map[string]struct {
			NumericValue *float64 `json:"numericValue"`
		} `json:"audits"`
	} `json:"lighthouseResult"`
}

// LabScores runs a PageSpeed Insights test of pageURL for one platform.
// LCP and TBT are converted to seconds and the performance score to 0-100.
func (c *Client) LabScores(ctx context.Context, pageURL string, platform models.Platform) (*models.LabScores, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	query := url.Values{}
	query.Set("url", pageURL)
	query.Set("key", c.cfg.APIKey)
	query.Set("strategy", string(platform))
	endpoint := c.cfg.PSIEndpoint + "?" + query.Encode()

	var scores *models.LabScores
	err := c.retry(ctx, servicePSI, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		body, err := c.do(req)
		if err != nil {
			return err
		}

		var resp psiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return backoff.Permanent(fmt.Errorf("decode PSI response: %w", err))
		}
		parsed, err := resp.labScores()
		if err != nil {
			return backoff.Permanent(err)
		}
		scores = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("Lab scores fetched",
		logger.String("url", pageURL),
		logger.String("platform", string(platform)),
		logger.Float64("lcp", scores.LCP),
		logger.Float64("cls", scores.CLS),
		logger.Float64("tbt", scores.TBT),
		logger.Float64("score", scores.OverallScore),
	)
	return scores, nil
}

func (r *psiResponse) labScores() (*models.LabScores, error) {
	audit := func(name string) (float64, error) {
		a, ok := r.LighthouseResult.Audits[name]
		if !ok || a.NumericValue == nil {
			return 0, fmt.Errorf("PSI response has no %s audit", name)
		}
		return *a.NumericValue, nil
	}

	score := r.LighthouseResult.Categories.Performance.Score
	if score == nil {
		return nil, errors.New("PSI response has no performance score")
	}
	lcp, err := audit("largest-contentful-paint")
	if err != nil {
		return nil, err
	}
	cls, err := audit("cumulative-layout-shift")
	if err != nil {
		return nil, err
	}
	tbt, err := audit("total-blocking-time")
	if err != nil {
		return nil, err
	}

	return &models.LabScores{
		LCP:          lcp / 1000,
		CLS:          cls,
		TBT:          tbt / 1000,
		OverallScore: *score * 100,
	}, nil
}

// statusError is a non-2xx answer from a scoring service
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

// do sends req and returns the body of a 2xx answer. Client errors other
// than timeouts and rate limiting are not retried.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := &statusError{code: resp.StatusCode}
		if retryableStatus(resp.StatusCode) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}
