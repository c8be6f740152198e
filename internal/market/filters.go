// Package market holds the view state of a marketplace session: contract
// filters and sort order, the comparison selection, the portfolio mutation
// guard and the Session that drives the request families.
package market

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jonandersen/emkt/pkg/marketapi"
)

// StatusAny is the status filter value that matches every contract.
const StatusAny = "Any"

// Range is the inclusive domain of a numeric filter.
type Range struct {
	Min  float64
	Max  float64
	Step float64
}

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	return min(max(v, r.Min), r.Max)
}

// Filter domains. Bounds at the domain edges are not sent to the API.
var (
	PriceRange    = Range{Min: 0, Max: 500, Step: 5}
	QuantityRange = Range{Min: 0, Max: 1000, Step: 10}
)

// DateLayout is the format of delivery window dates.
const DateLayout = "2006-01-02"

// minLocationLen is the shortest trimmed location that is applied as a filter.
const minLocationLen = 2

// FilterState is the user-editable contract criteria. It is a value: every
// edit returns a new FilterState and the receiver is never modified.
type FilterState struct {
	EnergyTypes       []marketapi.EnergyType
	Status            string
	PriceMin          float64
	PriceMax          float64
	QuantityMin       float64
	QuantityMax       float64
	Location          string
	DeliveryStartFrom string
	DeliveryEndTo     string
}

// DefaultFilters returns the filters a session starts with.
func DefaultFilters() FilterState {
	return FilterState{
		EnergyTypes: []marketapi.EnergyType{},
		Status:      StatusAny,
		PriceMin:    PriceRange.Min,
		PriceMax:    PriceRange.Max,
		QuantityMin: QuantityRange.Min,
		QuantityMax: QuantityRange.Max,
	}
}

// HasEnergyType reports whether et is selected.
func (f FilterState) HasEnergyType(et marketapi.EnergyType) bool {
	return slices.Contains(f.EnergyTypes, et)
}

// ToggleEnergyType adds et to the selection, or removes it if present.
func (f FilterState) ToggleEnergyType(et marketapi.EnergyType) FilterState {
	next := make([]marketapi.EnergyType, 0, len(f.EnergyTypes)+1)
	found := false
	for _, v := range f.EnergyTypes {
		if v == et {
			found = true
			continue
		}
		next = append(next, v)
	}
	if !found {
		next = append(next, et)
	}
	f.EnergyTypes = next
	return f
}

// WithEnergyTypes replaces the energy type selection.
func (f FilterState) WithEnergyTypes(types []marketapi.EnergyType) FilterState {
	f.EnergyTypes = slices.Clone(types)
	if f.EnergyTypes == nil {
		f.EnergyTypes = []marketapi.EnergyType{}
	}
	return f
}

// WithStatus sets the status filter. An empty status means StatusAny.
func (f FilterState) WithStatus(status string) FilterState {
	if status == "" {
		status = StatusAny
	}
	f.Status = status
	return f
}

// NextStatus cycles the status filter through Any and every contract status.
func (f FilterState) NextStatus() FilterState {
	options := make([]string, 0, len(marketapi.ContractStatuses)+1)
	options = append(options, StatusAny)
	for _, s := range marketapi.ContractStatuses {
		options = append(options, string(s))
	}
	idx := slices.Index(options, f.Status)
	return f.WithStatus(options[(idx+1)%len(options)])
}

// WithPriceMin sets the lower price bound, kept at or below the upper bound.
func (f FilterState) WithPriceMin(v float64) FilterState {
	f.PriceMin = min(PriceRange.Clamp(v), f.PriceMax)
	return f
}

// WithPriceMax sets the upper price bound, kept at or above the lower bound.
func (f FilterState) WithPriceMax(v float64) FilterState {
	f.PriceMax = max(PriceRange.Clamp(v), f.PriceMin)
	return f
}

// WithQuantityMin sets the lower quantity bound, kept at or below the upper bound.
func (f FilterState) WithQuantityMin(v float64) FilterState {
	f.QuantityMin = min(QuantityRange.Clamp(v), f.QuantityMax)
	return f
}

// WithQuantityMax sets the upper quantity bound, kept at or above the lower bound.
func (f FilterState) WithQuantityMax(v float64) FilterState {
	f.QuantityMax = max(QuantityRange.Clamp(v), f.QuantityMin)
	return f
}

// WithLocation sets the free-text location filter.
func (f FilterState) WithLocation(location string) FilterState {
	f.Location = location
	return f
}

// WithDeliveryStart sets the start of the delivery window. An empty date
// clears it. Setting a start fills an empty end with today and pushes the end
// forward so the window never inverts.
func (f FilterState) WithDeliveryStart(date string, today time.Time) (FilterState, error) {
	if date == "" {
		f.DeliveryStartFrom = ""
		return f, nil
	}
	if err := validateDate(date); err != nil {
		return f, err
	}
	end := f.DeliveryEndTo
	if end == "" {
		end = today.Format(DateLayout)
	}
	if date > end {
		end = date
	}
	f.DeliveryStartFrom = date
	f.DeliveryEndTo = end
	return f, nil
}

// WithDeliveryEnd sets the end of the delivery window. An empty date clears
// it. Setting an end fills an empty start with today and pulls the start back
// so the window never inverts.
func (f FilterState) WithDeliveryEnd(date string, today time.Time) (FilterState, error) {
	if date == "" {
		f.DeliveryEndTo = ""
		return f, nil
	}
	if err := validateDate(date); err != nil {
		return f, err
	}
	start := f.DeliveryStartFrom
	if start == "" {
		start = today.Format(DateLayout)
	}
	if start > date {
		start = date
	}
	f.DeliveryStartFrom = start
	f.DeliveryEndTo = date
	return f, nil
}

func validateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	return nil
}

// Equal reports whether f and other hold the same criteria. Energy types are
// compared positionally.
func (f FilterState) Equal(other FilterState) bool {
	return slices.Equal(f.EnergyTypes, other.EnergyTypes) &&
		f.Status == other.Status &&
		f.PriceMin == other.PriceMin &&
		f.PriceMax == other.PriceMax &&
		f.QuantityMin == other.QuantityMin &&
		f.QuantityMax == other.QuantityMax &&
		f.Location == other.Location &&
		f.DeliveryStartFrom == other.DeliveryStartFrom &&
		f.DeliveryEndTo == other.DeliveryEndTo
}

// ActiveCount returns the number of filter groups that narrow the result.
func (f FilterState) ActiveCount() int {
	count := 0
	if len(f.EnergyTypes) > 0 {
		count++
	}
	if f.Status != StatusAny {
		count++
	}
	if f.PriceMin > PriceRange.Min || f.PriceMax < PriceRange.Max {
		count++
	}
	if f.QuantityMin > QuantityRange.Min || f.QuantityMax < QuantityRange.Max {
		count++
	}
	if f.DeliveryStartFrom != "" || f.DeliveryEndTo != "" {
		count++
	}
	if len(strings.TrimSpace(f.Location)) >= minLocationLen {
		count++
	}
	return count
}

// SortState is the requested ordering of the contracts list.
type SortState struct {
	By        marketapi.SortBy
	Direction marketapi.SortDirection
}

// DefaultSort returns the unsorted state.
func DefaultSort() SortState {
	return SortState{By: marketapi.SortNone, Direction: marketapi.SortAsc}
}

// Active reports whether a sort key is selected.
func (s SortState) Active() bool {
	return s.By != marketapi.SortNone
}

var sortKeys = []marketapi.SortBy{
	marketapi.SortNone,
	marketapi.SortPricePerMWh,
	marketapi.SortQuantityMWh,
	marketapi.SortDeliveryStart,
}

// NextKey cycles the sort key through none and every sortable column.
func (s SortState) NextKey() SortState {
	idx := slices.Index(sortKeys, s.By)
	s.By = sortKeys[(idx+1)%len(sortKeys)]
	return s
}

// ToggleDirection flips between ascending and descending.
func (s SortState) ToggleDirection() SortState {
	if s.Direction == marketapi.SortDesc {
		s.Direction = marketapi.SortAsc
	} else {
		s.Direction = marketapi.SortDesc
	}
	return s
}

// Label returns a short description such as "price asc" or "none".
func (s SortState) Label() string {
	switch s.By {
	case marketapi.SortPricePerMWh:
		return "price " + string(s.Direction)
	case marketapi.SortQuantityMWh:
		return "quantity " + string(s.Direction)
	case marketapi.SortDeliveryStart:
		return "delivery " + string(s.Direction)
	default:
		return "none"
	}
}

// Query converts the filters and sort order into API parameters. Only
// criteria that narrow the result are sent: bounds strictly inside their
// domain, a location of at least two characters, and a status other than Any.
func Query(f FilterState, s SortState, limit int) marketapi.ContractQuery {
	q := marketapi.ContractQuery{Offset: 0, Limit: limit}
	if len(f.EnergyTypes) > 0 {
		q.EnergyTypes = slices.Clone(f.EnergyTypes)
	}
	if f.Status != StatusAny && f.Status != "" {
		q.Status = marketapi.ContractStatus(f.Status)
	}
	if f.PriceMin > PriceRange.Min {
		q.PriceMin = marketapi.Float(f.PriceMin)
	}
	if f.PriceMax < PriceRange.Max {
		q.PriceMax = marketapi.Float(f.PriceMax)
	}
	if f.QuantityMin > QuantityRange.Min {
		q.QuantityMin = marketapi.Float(f.QuantityMin)
	}
	if f.QuantityMax < QuantityRange.Max {
		q.QuantityMax = marketapi.Float(f.QuantityMax)
	}
	if loc := strings.TrimSpace(f.Location); len(loc) >= minLocationLen {
		q.Location = loc
	}
	q.DeliveryStartFrom = f.DeliveryStartFrom
	q.DeliveryEndTo = f.DeliveryEndTo
	if s.Active() {
		q.SortBy = s.By
		q.SortDirection = s.Direction
	}
	return q
}

// Change classifies an edit between two filter/sort snapshots.
type Change struct {
	Filter bool
	Sort   bool
}

// Any reports whether either kind of change occurred.
func (c Change) Any() bool {
	return c.Filter || c.Sort
}

// Merge returns the union of c and other.
func (c Change) Merge(other Change) Change {
	return Change{Filter: c.Filter || other.Filter, Sort: c.Sort || other.Sort}
}

// Classify compares two snapshots field by field.
func Classify(prevFilters FilterState, prevSort SortState, nextFilters FilterState, nextSort SortState) Change {
	return Change{
		Filter: !prevFilters.Equal(nextFilters),
		Sort:   prevSort != nextSort,
	}
}
