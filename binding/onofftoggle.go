package binding

// OnOffToggle is the bridge's three-valued switch vocabulary.
type OnOffToggle string

const (
	On     OnOffToggle = "ON"
	Off    OnOffToggle = "OFF"
	Toggle OnOffToggle = "TOGGLE"
)

// OnOffToggleValues lists every OnOffToggle literal.
var OnOffToggleValues = []OnOffToggle{On, Off, Toggle}
