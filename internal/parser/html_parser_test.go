package parser_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-pmaudit/internal/models"
	"github.com/mamamialezatoz/go-pmaudit/internal/parser"
)

// wordpressHTML is a page optimized by Perfmatters with a mix of delayed and normal assets.
const wordpressHTML = `<!DOCTYPE html>
<html>
<head>
  <link rel="stylesheet" id="elementor-frontend-css" href="/wp-content/plugins/elementor/assets/css/frontend.min.css" data-pmdelayedstyle="">
  <link rel="stylesheet" id="plain-css" href="/wp-content/themes/astra/style.css">
  <link rel="stylesheet" href="/no-id.css" data-pmdelayedstyle="">
  <script id="jquery-core-js" src="/wp-includes/js/jquery/jquery.min.js?ver=3.7.1"></script>
  <script type="pmdelayedscript" id="Elementor-Frontend-JS" src="https://example.com/wp-content/plugins/elementor/assets/js/frontend.min.js?ver=3.2"></script>
  <script type="pmdelayedscript" id="elementor-frontend-js-extra">var elementorFrontendConfig = {};</script>
  <script id="perfmatters-delayed-scripts-js">/* loader */</script>
  <script type="pmdelayedscript">window.dataLayer = [];</script>
  <script src="/wp-content/themes/astra/assets/js/frontend.min.js"></script>
  <script src="/wp-content/themes/astra/assets/js/frontend.min.js?ver=2"></script>
  <script></script>
</head>
<body></body>
</html>`

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractInventory_Scripts(t *testing.T) {
	t.Parallel()

	inv := parser.ExtractInventory(parse(t, wordpressHTML))

	assert.Equal(t, []models.ScriptTag{
		{Source: "/wp-includes/js/jquery/jquery.min.js", ID: "jquery-core-js"},
		{Source: "/wp-content/plugins/elementor/assets/js/frontend.min.js", ID: "elementor-frontend-js", Delayed: true},
		{Source: "/wp-content/themes/astra/assets/js/frontend.min.js"},
	}, inv.Scripts)
}

func TestExtractInventory_ScriptIDs(t *testing.T) {
	t.Parallel()

	inv := parser.ExtractInventory(parse(t, wordpressHTML))

	assert.Equal(t, []string{
		"Elementor-Frontend-JS --- pmdelayed",
		"jquery-core-js",
	}, inv.ScriptIDs)
	for _, id := range inv.ScriptIDs {
		assert.NotContains(t, id, "-extra")
		assert.NotContains(t, id, "perfmatters")
	}
}

func TestExtractInventory_InlineDelayed(t *testing.T) {
	t.Parallel()

	inv := parser.ExtractInventory(parse(t, wordpressHTML))

	require.Len(t, inv.InlineDelayed, 2)
	assert.Contains(t, inv.InlineDelayed[0], "elementorFrontendConfig")
	assert.Contains(t, inv.InlineDelayed[1], "window.dataLayer")
	assert.True(t, strings.HasPrefix(inv.InlineDelayed[1], "<script"))
}

func TestExtractInventory_Styles(t *testing.T) {
	t.Parallel()

	inv := parser.ExtractInventory(parse(t, wordpressHTML))

	assert.Equal(t, []models.StyleTag{{ID: "elementor-frontend-css", DelayedStyle: true}}, inv.Styles)
	assert.Equal(t, []string{"elementor-frontend-css --- pmdelayedstyle"}, inv.StyleIDs)
}

func TestExtractInventory_ExtraIDNeverMatchable(t *testing.T) {
	t.Parallel()

	inv := parser.ExtractInventory(parse(t, `<script id="foo-extra">var foo = 1;</script>`))

	assert.Empty(t, inv.ScriptIDs)
	assert.Empty(t, inv.Scripts)
}

func TestExtractInventory_EmptyPage(t *testing.T) {
	t.Parallel()

	inv := parser.ExtractInventory(parse(t, ""))

	assert.Empty(t, inv.Scripts)
	assert.Empty(t, inv.ScriptIDs)
	assert.Empty(t, inv.StyleIDs)
	assert.Empty(t, inv.InlineDelayed)
}

func TestIsBookkeepingID(t *testing.T) {
	t.Parallel()

	assert.True(t, parser.IsBookkeepingID("foo-extra"))
	assert.True(t, parser.IsBookkeepingID("perfmatters-lazy-load-js"))
	assert.True(t, parser.IsBookkeepingID("Foo-EXTRA"))
	assert.False(t, parser.IsBookkeepingID("extra-foo"))
	assert.False(t, parser.IsBookkeepingID("jquery-core-js"))
}
