package scoring

// Rating is the color band a metric or score falls into
type Rating string

const (
	RatingGood    Rating = "green"
	RatingAverage Rating = "orange"
	RatingPoor    Rating = "red"
	RatingUnknown Rating = "gray"
)

// thresholds holds the upper bounds of the good and average bands.
// LCP, TBT, FCP and TTFB are in seconds, FID in milliseconds.
var thresholds = map[string][2]float64{
	"CLS":  {0.1, 0.25},
	"LCP":  {2.5, 4.0},
	"FID":  {100, 300},
	"TBT":  {0.2, 0.6},
	"FCP":  {1.8, 3.0},
	"TTFB": {0.2, 0.6},
}

// MetricRating rates a Core Web Vitals metric value. Unknown metrics are gray.
func MetricRating(metric string, value float64) Rating {
	t, ok := thresholds[metric]
	if !ok {
		return RatingUnknown
	}
	switch {
	case value <= t[0]:
		return RatingGood
	case value <= t[1]:
		return RatingAverage
	default:
		return RatingPoor
	}
}

// ScoreRating rates an overall performance score between 0 and 100
func ScoreRating(score float64) Rating {
	switch {
	case score >= 90:
		return RatingGood
	case score >= 50:
		return RatingAverage
	default:
		return RatingPoor
	}
}
