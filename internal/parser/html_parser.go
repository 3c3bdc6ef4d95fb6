package parser

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mamamialezatoz/go-pmaudit/internal/models"
)

const (
	// DelayedScriptType is the type attribute Perfmatters gives delayed scripts
	DelayedScriptType = "pmdelayedscript"

	// DelayedStyleAttr marks a stylesheet whose loading has been delayed
	DelayedStyleAttr = "data-pmdelayedstyle"

	delayedScriptSuffix = " --- pmdelayed"
	delayedStyleSuffix  = " --- pmdelayedstyle"
)

var delayedStyleSelector = "link[rel~='stylesheet'][" + DelayedStyleAttr + "]"

// IsBookkeepingID reports whether a script id is generated by WordPress or
// Perfmatters rather than naming a real asset
func IsBookkeepingID(id string) bool {
	id = strings.ToLower(id)
	return strings.Contains(id, "perfmatters") || strings.HasSuffix(id, "-extra")
}

// ExtractInventory collects the script and style inventory of a parsed page
func ExtractInventory(doc *goquery.Document) models.Inventory {
	inv := models.Inventory{
		Scripts:       make([]models.ScriptTag, 0),
		Styles:        make([]models.StyleTag, 0),
		InlineDelayed: make([]string, 0),
	}

	seenTags := make(map[models.ScriptTag]struct{})
	scriptIDs := make(map[string]struct{})

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		src, hasSrc := s.Attr("src")
		rawID := strings.TrimSpace(s.AttrOr("id", ""))
		delayed := s.AttrOr("type", "") == DelayedScriptType

		// Inline delayed scripts are reported as-is, never matched
		if delayed && !hasSrc {
			if markup, err := goquery.OuterHtml(s); err == nil {
				inv.InlineDelayed = append(inv.InlineDelayed, markup)
			}
		}

		id := ""
		if rawID != "" && !IsBookkeepingID(rawID) {
			id = NormalizeAsset(rawID)
			if delayed {
				scriptIDs[rawID+delayedScriptSuffix] = struct{}{}
			} else {
				scriptIDs[rawID] = struct{}{}
			}
		}

		tag := models.ScriptTag{
			Source:  NormalizeSource(src),
			ID:      id,
			Delayed: delayed,
		}
		if tag.Inert() {
			return
		}
		if _, ok := seenTags[tag]; ok {
			return
		}
		seenTags[tag] = struct{}{}
		inv.Scripts = append(inv.Scripts, tag)
	})

	styleIDs := make(map[string]struct{})
	doc.Find(delayedStyleSelector).Each(func(_ int, s *goquery.Selection) {
		id := strings.TrimSpace(s.AttrOr("id", ""))
		if id == "" {
			return
		}
		if _, ok := styleIDs[id+delayedStyleSuffix]; ok {
			return
		}
		styleIDs[id+delayedStyleSuffix] = struct{}{}
		inv.Styles = append(inv.Styles, models.StyleTag{ID: id, DelayedStyle: true})
	})

	inv.ScriptIDs = sortedKeys(scriptIDs)
	inv.StyleIDs = sortedKeys(styleIDs)

	return inv
}

// sortedKeys returns the keys of a set in ascending order
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
