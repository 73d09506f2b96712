package classifier

import (
	"maps"
	"slices"

	"github.com/JaimeStill/emoclassify/internal/definitions"
)

// Set is a named collection of classifiers sharing one oracle.
type Set map[string]*Classifier

// FromDefinitions builds one classifier per definition, keyed like the
// definition set.
func FromDefinitions(defs definitions.Set, o Oracle, nContext int) Set {
	out := make(Set, len(defs))
	for key, def := range defs {
		out[key] = New(def, o, nContext)
	}
	return out
}

// Names returns the classifier keys in sorted order.
func (s Set) Names() []string {
	return slices.Sorted(maps.Keys(s))
}
