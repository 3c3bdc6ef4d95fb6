package scoring_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-pmaudit/internal/models"
	"github.com/mamamialezatoz/go-pmaudit/internal/scoring"
)

const psiBody = `{
  "lighthouseResult": {
    "categories": {"performance": {"score": 0.87}},
    "audits": {
      "largest-contentful-paint": {"numericValue": 2450},
      "cumulative-layout-shift": {"numericValue": 0.04},
      "total-blocking-time": {"numericValue": 310}
    }
  }
}`

const cruxBody = `{
  "record": {
    "metrics": {
      "largest_contentful_paint": {"percentiles": {"p75": 2100}},
      "first_contentful_paint": {"percentiles": {"p75": 1200}},
      "cumulative_layout_shift": {"percentiles": {"p75": "0.05"}},
      "experimental_time_to_first_byte": {"percentiles": {"p75": 450}}
    }
  }
}`

func newClient(psi, crux *httptest.Server) *scoring.Client {
	cfg := scoring.Config{
		APIKey:         "test-key",
		MaxRetries:     scoring.DefaultMaxRetries,
		InitialBackoff: time.Millisecond,
		Timeout:        2 * time.Second,
	}
	if psi != nil {
		cfg.PSIEndpoint = psi.URL
	}
	if crux != nil {
		cfg.CrUXEndpoint = crux.URL
	}
	return scoring.New(cfg, nil, nil)
}

func TestLabScores_ParsesAndConverts(t *testing.T) {
	t.Parallel()

	queries := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.RawQuery
		_, _ = w.Write([]byte(psiBody))
	}))
	defer srv.Close()

	scores, err := newClient(srv, nil).LabScores(context.Background(), "https://example.com/", models.PlatformMobile)
	require.NoError(t, err)

	assert.InDelta(t, 2.45, scores.LCP, 1e-9)
	assert.InDelta(t, 0.04, scores.CLS, 1e-9)
	assert.InDelta(t, 0.31, scores.TBT, 1e-9)
	assert.InDelta(t, 87, scores.OverallScore, 1e-9)
	assert.Equal(t, "key=test-key&strategy=mobile&url=https%3A%2F%2Fexample.com%2F", <-queries)
}

func TestLabScores_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(psiBody))
	}))
	defer srv.Close()

	_, err := newClient(srv, nil).LabScores(context.Background(), "https://example.com/", models.PlatformDesktop)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLabScores_GivesUpAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(srv, nil).LabScores(context.Background(), "https://example.com/", models.PlatformDesktop)
	require.Error(t, err)
	assert.Equal(t, int32(1+scoring.DefaultMaxRetries), calls.Load())
}

func TestLabScores_ClientErrorsAreNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newClient(srv, nil).LabScores(context.Background(), "https://example.com/", models.PlatformDesktop)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFieldData_ParsesRecord(t *testing.T) {
	t.Parallel()

	requests := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		requests <- body
		_, _ = w.Write([]byte(cruxBody))
	}))
	defer srv.Close()

	data, err := newClient(nil, srv).FieldData(context.Background(), "https://Example.com/blog/post?x=1", models.PlatformMobile)
	require.NoError(t, err)

	assert.Equal(t, models.FieldPresent, data.Status)
	require.NotNil(t, data.LCP)
	assert.InDelta(t, 2.1, *data.LCP, 1e-9)
	assert.InDelta(t, 1.2, *data.FCP, 1e-9)
	assert.InDelta(t, 0.05, *data.CLS, 1e-9)
	assert.InDelta(t, 0.45, *data.TTFB, 1e-9)

	body := <-requests
	assert.Equal(t, "https://example.com", body["origin"])
	assert.Equal(t, "PHONE", body["formFactor"])
}

func TestFieldData_NotFoundIsNotPresent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newClient(nil, srv)
	for range 2 {
		data, err := client.FieldData(context.Background(), "https://example.com/", models.PlatformDesktop)
		require.NoError(t, err)
		assert.Equal(t, models.FieldNotPresent, data.Status)
	}
	assert.Equal(t, int32(1), calls.Load(), "second lookup is served from cache")
}

func TestFieldData_EmptyRecordIsNotPresent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	data, err := newClient(nil, srv).FieldData(context.Background(), "https://example.com/", models.PlatformDesktop)
	require.NoError(t, err)
	assert.Equal(t, models.FieldNotPresent, data.Status)
}

func TestScore_OmitsFailedPlatforms(t *testing.T) {
	t.Parallel()

	psi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("strategy") == "mobile" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(psiBody))
	}))
	defer psi.Close()

	crux := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer crux.Close()

	scores, err := newClient(psi, crux).Score(context.Background(), "https://example.com/")
	require.NoError(t, err)

	assert.NotContains(t, scores.Lab, models.PlatformMobile)
	assert.Contains(t, scores.Lab, models.PlatformDesktop)
	assert.Equal(t, models.FieldUnavailable, scores.Field[models.PlatformMobile].Status)
	assert.Equal(t, models.FieldUnavailable, scores.Field[models.PlatformDesktop].Status)
}

func TestScore_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := scoring.New(scoring.Config{}, nil, nil).Score(context.Background(), "https://example.com/")
	require.ErrorIs(t, err, scoring.ErrNoAPIKey)
}

func TestOrigin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://example.com", scoring.Origin("https://EXAMPLE.com/a/b?c=d"))
	assert.Equal(t, "not a url", scoring.Origin("not a url"))
}
