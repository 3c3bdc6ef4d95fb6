package detection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-pmaudit/internal/detection"
	"github.com/mamamialezatoz/go-pmaudit/internal/models"
	"github.com/mamamialezatoz/go-pmaudit/internal/policy"
)

func testTable(t *testing.T) *policy.Snapshot {
	t.Helper()

	snap, err := policy.FromDocument(policy.Document{
		Version: "test",
		Entries: map[string][]string{
			"plugins/elementor":  {"elementor-frontend", "swiper"},
			"plugins/mega-menu":  {"mega-menu"},
			"themes/astra":       {"astra-theme-js"},
			"plugins/shared-lib": {"swiper"},
		},
	})
	require.NoError(t, err)
	return snap
}

func TestAggregate_PluginsThenThemes(t *testing.T) {
	t.Parallel()

	scripts := []models.ScriptTag{
		script("/wp-content/plugins/elementor/assets/js/frontend.min.js", "elementor-frontend-js", true),
		script("/wp-content/themes/astra/assets/js/frontend.min.js", "astra-theme-js", false),
	}

	recs := detection.Aggregate(scripts, []string{"Elementor", "mega-menu", "unknown"}, []string{"astra"}, testTable(t))

	assert.Equal(t, []string{
		"elementor: elementor-frontend-js - Exclude from delay",
		"elementor: swiper - Be aware of this: Not found in page source",
		"mega-menu: mega-menu - Be aware of this: Not found in page source",
		"astra: astra-theme-js - No changes needed",
	}, recs.Strings())
}

func TestAggregate_NoCrossOwnerDedup(t *testing.T) {
	t.Parallel()

	scripts := []models.ScriptTag{script("/wp-content/plugins/elementor/lib/swiper/swiper.min.js", "", true)}

	recs := detection.Aggregate(scripts, []string{"elementor", "shared-lib"}, nil, testTable(t))

	assert.Equal(t, []string{
		"elementor: swiper - Exclude from delay",
		"elementor: elementor-frontend - Be aware of this: Not found in page source",
		"shared-lib: swiper - Exclude from delay",
	}, recs.Strings())
}

func TestAggregate_UnknownOwnersAreSkipped(t *testing.T) {
	t.Parallel()

	recs := detection.Aggregate(nil, []string{"nope"}, []string{"twentytwentyfour"}, testTable(t))
	assert.Empty(t, recs)

	assert.Empty(t, detection.Aggregate(nil, []string{"elementor"}, nil, nil), "a nil table matches nothing")
}

func TestAggregate_ThemeKeysDoNotLeakIntoPlugins(t *testing.T) {
	t.Parallel()

	recs := detection.Aggregate(nil, []string{"astra"}, nil, testTable(t))
	assert.Empty(t, recs)
}
