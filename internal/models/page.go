package models

// ScriptTag is a single <script> element seen on the page
type ScriptTag struct {
	// Source is the src attribute, lowercased with the query string removed
	Source string
	// ID is the element id, lowercased
	ID string
	// Delayed reports whether the script was marked for delayed execution
	Delayed bool
}

// Inert reports whether the tag carries nothing a policy asset can match against
func (s ScriptTag) Inert() bool {
	return s.Source == "" && s.ID == ""
}

// StyleTag is a delay-loaded stylesheet <link> element
type StyleTag struct {
	ID           string
	DelayedStyle bool
}

// Inventory is everything the extractor collects from one page
type Inventory struct {
	// Scripts are the candidate tags handed to the matcher, in document order
	Scripts []ScriptTag
	// Styles are delay-loaded stylesheets carrying an id
	Styles []StyleTag
	// InlineDelayed holds the serialized markup of delayed scripts without a src
	InlineDelayed []string
	// ScriptIDs is the sorted display list of script ids ("<id> --- pmdelayed" when delayed)
	ScriptIDs []string
	// StyleIDs is the sorted display list of delayed stylesheet ids
	StyleIDs []string
}
