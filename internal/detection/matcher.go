package detection

import (
	"strings"

	"github.com/mamamialezatoz/go-pmaudit/internal/models"
	"github.com/mamamialezatoz/go-pmaudit/internal/parser"
)

// MatchOwner matches the policy assets of one owner against the script tags
// of a page. It returns one recommendation per distinct asset: the first tag
// that matches an asset decides its verdict, and assets no tag matches are
// reported as not found, in policy order.
func MatchOwner(scripts []models.ScriptTag, owner string, assets []string) models.Recommendations {
	if len(assets) == 0 {
		return nil
	}

	owner = parser.NormalizeAsset(owner)
	recs := make(models.Recommendations, 0, len(assets))
	processed := make(map[string]struct{}, len(assets))

	for _, script := range scripts {
		asset, ok := matchScript(script, assets)
		if !ok {
			continue
		}
		if _, done := processed[asset]; done {
			continue
		}

		identifier := asset
		if script.ID != "" {
			identifier = script.ID
		}
		verdict := models.VerdictNoChange
		if script.Delayed {
			verdict = models.VerdictExclude
		}

		recs = append(recs, models.Recommendation{Owner: owner, Identifier: identifier, Verdict: verdict})
		processed[asset] = struct{}{}
	}

	for _, asset := range assets {
		if _, done := processed[asset]; done {
			continue
		}
		recs = append(recs, models.Recommendation{Owner: owner, Identifier: asset, Verdict: models.VerdictNotFound})
		processed[asset] = struct{}{}
	}

	return recs
}

// matchScript returns the first asset, in policy order, found in the source or id of script
func matchScript(script models.ScriptTag, assets []string) (string, bool) {
	if script.Inert() {
		return "", false
	}
	for _, asset := range assets {
		if asset == "" {
			continue
		}
		if strings.Contains(script.Source, asset) || strings.Contains(script.ID, asset) {
			return asset, true
		}
	}
	return "", false
}
