package models

import "fmt"

// Verdict is the action suggested for one policy asset
type Verdict string

const (
	// VerdictExclude means the asset is delayed and should be excluded from delay
	VerdictExclude Verdict = "Exclude from delay"
	// VerdictNoChange means the asset was found and is already loaded normally
	VerdictNoChange Verdict = "No changes needed"
	// VerdictNotFound means no script on the page matched the asset
	VerdictNotFound Verdict = "Be aware of this: Not found in page source"
)

// Recommendation is a single line of audit output for one owner
type Recommendation struct {
	Owner      string  `json:"owner"`
	Identifier string  `json:"identifier"`
	Verdict    Verdict `json:"verdict"`
}

// String renders the recommendation in the "<owner>: <identifier> - <verdict>" form
func (r Recommendation) String() string {
	return fmt.Sprintf("%s: %s - %s", r.Owner, r.Identifier, r.Verdict)
}

// Recommendations is an ordered recommendation list
type Recommendations []Recommendation

// Strings flattens the list into display lines, preserving order
func (rs Recommendations) Strings() []string {
	lines := make([]string, 0, len(rs))
	for _, r := range rs {
		lines = append(lines, r.String())
	}
	return lines
}

// CountByVerdict returns how many recommendations carry each verdict
func (rs Recommendations) CountByVerdict() map[Verdict]int {
	counts := make(map[Verdict]int)
	for _, r := range rs {
		counts[r.Verdict]++
	}
	return counts
}
