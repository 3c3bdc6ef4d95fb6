package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamamialezatoz/go-pmaudit/internal/scoring"
)

func TestMetricRating(t *testing.T) {
	t.Parallel()

	tests := []struct {
		metric string
		value  float64
		want   scoring.Rating
	}{
		{"CLS", 0.1, scoring.RatingGood},
		{"CLS", 0.2, scoring.RatingAverage},
		{"CLS", 0.3, scoring.RatingPoor},
		{"LCP", 2.5, scoring.RatingGood},
		{"LCP", 4.0, scoring.RatingAverage},
		{"LCP", 4.01, scoring.RatingPoor},
		{"FID", 150, scoring.RatingAverage},
		{"TBT", 0.61, scoring.RatingPoor},
		{"FCP", 1.0, scoring.RatingGood},
		{"TTFB", 0.5, scoring.RatingAverage},
		{"INP", 1, scoring.RatingUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, scoring.MetricRating(tt.metric, tt.value), "%s=%v", tt.metric, tt.value)
	}
}

func TestScoreRating(t *testing.T) {
	t.Parallel()

	assert.Equal(t, scoring.RatingGood, scoring.ScoreRating(90))
	assert.Equal(t, scoring.RatingAverage, scoring.ScoreRating(89.9))
	assert.Equal(t, scoring.RatingAverage, scoring.ScoreRating(50))
	assert.Equal(t, scoring.RatingPoor, scoring.ScoreRating(49))
}
