package marketapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const (
	// DefaultPageLimit is the page size used when a query leaves Limit unset.
	DefaultPageLimit = 50

	// MaxPageLimit is the largest page size the backend accepts.
	MaxPageLimit = 200
)

// ContractQuery holds the filter, sort and paging parameters of GET /contracts.
// Nil pointers and empty values are omitted from the request.
type ContractQuery struct {
	Offset            int
	Limit             int
	EnergyTypes       []EnergyType
	Status            ContractStatus
	PriceMin          *float64
	PriceMax          *float64
	QuantityMin       *float64
	QuantityMax       *float64
	Location          string
	DeliveryStartFrom string
	DeliveryEndTo     string
	SortBy            SortBy
	SortDirection     SortDirection
}

// Values encodes the query as URL parameters.
func (q ContractQuery) Values() url.Values {
	v := url.Values{}
	v.Set("offset", strconv.Itoa(q.Offset))
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	v.Set("limit", strconv.Itoa(limit))
	for _, et := range q.EnergyTypes {
		v.Add("energy_types", string(et))
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	setFloat(v, "price_min", q.PriceMin)
	setFloat(v, "price_max", q.PriceMax)
	setFloat(v, "quantity_min", q.QuantityMin)
	setFloat(v, "quantity_max", q.QuantityMax)
	if q.Location != "" {
		v.Set("location", q.Location)
	}
	if q.DeliveryStartFrom != "" {
		v.Set("delivery_start_from", q.DeliveryStartFrom)
	}
	if q.DeliveryEndTo != "" {
		v.Set("delivery_end_to", q.DeliveryEndTo)
	}
	if q.SortBy != SortNone {
		v.Set("sort_by", string(q.SortBy))
		dir := q.SortDirection
		if dir == "" {
			dir = SortAsc
		}
		v.Set("sort_direction", string(dir))
	}
	return v
}

func setFloat(v url.Values, key string, f *float64) {
	if f != nil {
		v.Set(key, strconv.FormatFloat(*f, 'f', -1, 64))
	}
}

// Float returns a pointer to f, for building a ContractQuery.
func Float(f float64) *float64 {
	return &f
}

// ListContracts retrieves contracts matching the query.
func (c *Client) ListContracts(ctx context.Context, q ContractQuery) ([]Contract, error) {
	resp, err := c.GetWithQuery(ctx, "/contracts", q.Values())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := CheckResponse(resp); err != nil {
		return nil, err
	}

	var contracts []Contract
	if err := DecodeJSON(resp, &contracts); err != nil {
		return nil, err
	}
	if contracts == nil {
		contracts = []Contract{}
	}

	return contracts, nil
}

// GetContract retrieves a single contract by id.
func (c *Client) GetContract(ctx context.Context, id int) (*Contract, error) {
	resp, err := c.Get(ctx, fmt.Sprintf("/contracts/%d", id))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := CheckResponse(resp); err != nil {
		return nil, err
	}

	var contract Contract
	if err := DecodeJSON(resp, &contract); err != nil {
		return nil, err
	}

	return &contract, nil
}

// MinCompare and MaxCompare bound the number of contracts in a comparison.
const (
	MinCompare = 2
	MaxCompare = 3
)

// CompareContracts retrieves a side-by-side comparison of 2 to 3 contracts.
func (c *Client) CompareContracts(ctx context.Context, ids []int) (*Comparison, error) {
	if len(ids) < MinCompare || len(ids) > MaxCompare {
		return nil, fmt.Errorf("comparison requires %d to %d contracts, got %d", MinCompare, MaxCompare, len(ids))
	}

	query := url.Values{}
	for _, id := range ids {
		query.Add("ids", strconv.Itoa(id))
	}

	resp, err := c.GetWithQuery(ctx, "/contracts/compare", query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := CheckResponse(resp); err != nil {
		return nil, err
	}

	var comparison Comparison
	if err := DecodeJSON(resp, &comparison); err != nil {
		return nil, err
	}

	return &comparison, nil
}
