package market

import (
	"slices"

	"github.com/jonandersen/emkt/pkg/marketapi"
)

// Selection is the ordered set of contract ids picked for comparison,
// bounded by marketapi.MaxCompare.
type Selection struct {
	ids []int
}

// Toggle removes id if selected, otherwise appends it unless the selection
// is full. It reports whether the selection changed.
func (s *Selection) Toggle(id int) bool {
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(slices.Clone(s.ids), i, i+1)
		return true
	}
	if len(s.ids) >= marketapi.MaxCompare {
		return false
	}
	s.ids = append(slices.Clone(s.ids), id)
	return true
}

// Clear empties the selection and reports whether it held anything.
func (s *Selection) Clear() bool {
	had := len(s.ids) > 0
	s.ids = nil
	return had
}

// IDs returns a copy of the selected ids in selection order.
func (s Selection) IDs() []int {
	return slices.Clone(s.ids)
}

// Has reports whether id is selected.
func (s Selection) Has(id int) bool {
	return slices.Contains(s.ids, id)
}

// Len returns the number of selected ids.
func (s Selection) Len() int {
	return len(s.ids)
}

// Full reports whether no more ids can be added.
func (s Selection) Full() bool {
	return len(s.ids) >= marketapi.MaxCompare
}

// Comparable reports whether enough ids are selected to request a comparison.
func (s Selection) Comparable() bool {
	return len(s.ids) >= marketapi.MinCompare
}
