package market

import (
	"maps"
	"slices"

	"github.com/jonandersen/emkt/pkg/marketapi"
)

// IDSet is a set of contract ids.
type IDSet map[int]struct{}

// HoldingIDs derives the set of held contract ids from a holdings list.
func HoldingIDs(holdings []marketapi.Holding) IDSet {
	set := make(IDSet, len(holdings))
	for _, h := range holdings {
		set[h.Contract.ID] = struct{}{}
	}
	return set
}

// Has reports whether id is in the set. A nil set is empty.
func (s IDSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s IDSet) Add(id int) {
	s[id] = struct{}{}
}

// Remove deletes id.
func (s IDSet) Remove(id int) {
	delete(s, id)
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int {
	return slices.Sorted(maps.Keys(s))
}
