package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-pmaudit/internal/policy"
)

const samplePolicy = `
version: "7"
entries:
  plugins/Mega-Menu:
    - Mega-Menu
    - hoverIntent
    - mega-menu
    - ""
  plugins/mega-menu:
    - megamenu-pro
  themes/astra:
    - astra-theme-js
`

func TestParse_NormalizesKeysAndAssets(t *testing.T) {
	t.Parallel()

	snap, err := policy.Parse([]byte(samplePolicy))
	require.NoError(t, err)

	assert.Equal(t, "7", snap.Version())
	assert.Len(t, snap.Digest(), 12)
	assert.Equal(t, []string{"plugins/mega-menu", "themes/astra"}, snap.Keys())

	// Keys differing only in case are merged; duplicates and blanks dropped
	assets, ok := snap.Lookup(policy.KindPlugin, "MEGA-menu")
	require.True(t, ok)
	assert.Equal(t, []string{"mega-menu", "hoverintent", "megamenu-pro"}, assets)
}

func TestParse_CaseCollidingKeysMergeInStableOrder(t *testing.T) {
	t.Parallel()

	doc := []byte("entries:\n  plugins/foo: [a1]\n  plugins/Foo: [b1]\n  plugins/FOO: [c1, a1]\n")

	for range 50 {
		snap, err := policy.Parse(doc)
		require.NoError(t, err)

		assets, ok := snap.Lookup(policy.KindPlugin, "foo")
		require.True(t, ok)
		assert.Equal(t, []string{"c1", "a1", "b1"}, assets)
	}
}

func TestParse_KeepsTableOrder(t *testing.T) {
	t.Parallel()

	snap, err := policy.Parse([]byte("entries:\n  plugins/foo: [zeta, alpha, mid]\n"))
	require.NoError(t, err)

	assets, ok := snap.Lookup(policy.KindPlugin, "foo")
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, assets)
}

func TestParse_RejectsMalformedKeys(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no kind":      "entries:\n  elementor: [a]\n",
		"unknown kind": "entries:\n  mu-plugins/foo: [a]\n",
		"empty name":   "entries:\n  plugins/: [a]\n",
		"nested name":  "entries:\n  plugins/foo/bar: [a]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := policy.Parse([]byte(doc))
			require.ErrorIs(t, err, policy.ErrInvalidKey)
		})
	}
}

func TestParse_RejectsBrokenDocuments(t *testing.T) {
	t.Parallel()

	_, err := policy.Parse([]byte("entries: [unclosed"))
	require.Error(t, err)

	_, err = policy.Parse([]byte("version: 1\n"))
	require.ErrorIs(t, err, policy.ErrEmptyDocument)

	_, err = policy.Parse([]byte("entries: {}\nextra: true\n"))
	require.Error(t, err, "unknown fields are rejected")
}

func TestSnapshot_LookupMissingOwner(t *testing.T) {
	t.Parallel()

	snap, err := policy.Parse([]byte(samplePolicy))
	require.NoError(t, err)

	_, ok := snap.Lookup(policy.KindTheme, "mega-menu")
	assert.False(t, ok)

	var nilSnap *policy.Snapshot
	_, ok = nilSnap.Lookup(policy.KindPlugin, "anything")
	assert.False(t, ok)
}

func TestSnapshot_DocumentIsACopy(t *testing.T) {
	t.Parallel()

	snap, err := policy.Parse([]byte(samplePolicy))
	require.NoError(t, err)

	doc := snap.Document()
	doc.Entries["themes/astra"][0] = "mutated"

	assets, _ := snap.Lookup(policy.KindTheme, "astra")
	assert.Equal(t, []string{"astra-theme-js"}, assets)
}

func TestFromDocument_RoundTrip(t *testing.T) {
	t.Parallel()

	snap, err := policy.FromDocument(policy.Document{
		Version: "x",
		Entries: map[string][]string{"Themes/Divi": {"ET-Core-Common"}},
	})
	require.NoError(t, err)

	assets, ok := snap.Lookup(policy.KindTheme, "divi")
	require.True(t, ok)
	assert.Equal(t, []string{"et-core-common"}, assets)
}

func TestDefault_Loads(t *testing.T) {
	t.Parallel()

	snap, err := policy.Default()
	require.NoError(t, err)
	assert.Positive(t, snap.Len())

	_, ok := snap.Lookup(policy.KindPlugin, "elementor")
	assert.True(t, ok)
}
