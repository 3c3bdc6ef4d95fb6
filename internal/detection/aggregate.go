package detection

import (
	"github.com/mamamialezatoz/go-pmaudit/internal/models"
	"github.com/mamamialezatoz/go-pmaudit/internal/policy"
)

// Aggregate runs the matcher for every detected owner that has a policy
// entry. Plugin recommendations come first, then theme recommendations, each
// in the order the owners were given. Owners unknown to the table are skipped.
func Aggregate(scripts []models.ScriptTag, plugins, themes []string, table *policy.Snapshot) models.Recommendations {
	var recs models.Recommendations
	recs = appendOwners(recs, scripts, policy.KindPlugin, plugins, table)
	recs = appendOwners(recs, scripts, policy.KindTheme, themes, table)
	return recs
}

func appendOwners(recs models.Recommendations, scripts []models.ScriptTag, kind string, owners []string, table *policy.Snapshot) models.Recommendations {
	for _, owner := range owners {
		assets, ok := table.Lookup(kind, owner)
		if !ok {
			continue
		}
		recs = append(recs, MatchOwner(scripts, owner, assets)...)
	}
	return recs
}
