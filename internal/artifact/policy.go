package artifact

import (
	"slices"

	"github.com/samber/lo"
)

// Policy classifies the node kinds of one language. Kinds registered as
// unordered may be permuted among their siblings without changing meaning.
// Kinds registered as textual are compared by their whole source text
// instead of their structure.
//
// A Policy is populated once while policy scripts run and is read-only
// afterwards, so it may be shared between concurrent merges.
type Policy struct {
	Language  string
	unordered map[string]bool
	textual   map[string]bool
}

// NewPolicy returns an empty policy under which every kind is ordered.
func NewPolicy(language string) *Policy {
	return &Policy{
		Language:  language,
		unordered: make(map[string]bool),
		textual:   make(map[string]bool),
	}
}

// AddUnordered marks kinds as order-insignificant.
func (p *Policy) AddUnordered(kinds ...string) {
	for _, k := range kinds {
		p.unordered[k] = true
	}
}

// AddTextual marks kinds whose label is their complete source text.
func (p *Policy) AddTextual(kinds ...string) {
	for _, k := range kinds {
		p.textual[k] = true
	}
}

// IsOrdered reports whether the position of a node of the given kind among
// its siblings is significant. A nil policy treats every kind as ordered.
func (p *Policy) IsOrdered(kind string) bool {
	if p == nil {
		return true
	}
	return !p.unordered[kind]
}

// IsTextual reports whether nodes of the given kind are compared by text.
func (p *Policy) IsTextual(kind string) bool {
	if p == nil {
		return false
	}
	return p.textual[kind]
}

// UnorderedKinds returns the unordered kinds in sorted order.
func (p *Policy) UnorderedKinds() []string {
	return sortedKeys(p.unordered)
}

// TextualKinds returns the textual kinds in sorted order.
func (p *Policy) TextualKinds() []string {
	return sortedKeys(p.textual)
}

func sortedKeys(m map[string]bool) []string {
	out := lo.Keys(m)
	slices.Sort(out)
	return out
}
