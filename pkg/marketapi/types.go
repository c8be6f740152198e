package marketapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// EnergyType is the generation source of a contract.
type EnergyType string

const (
	EnergySolar      EnergyType = "Solar"
	EnergyWind       EnergyType = "Wind"
	EnergyNaturalGas EnergyType = "Natural Gas"
	EnergyNuclear    EnergyType = "Nuclear"
	EnergyCoal       EnergyType = "Coal"
	EnergyHydro      EnergyType = "Hydro"
)

// EnergyTypes lists every energy type in display order.
var EnergyTypes = []EnergyType{
	EnergySolar, EnergyWind, EnergyNaturalGas, EnergyNuclear, EnergyCoal, EnergyHydro,
}

// ContractStatus is the trading status of a contract.
type ContractStatus string

const (
	StatusAvailable ContractStatus = "Available"
	StatusReserved  ContractStatus = "Reserved"
	StatusSold      ContractStatus = "Sold"
)

// ContractStatuses lists every contract status in display order.
var ContractStatuses = []ContractStatus{StatusAvailable, StatusReserved, StatusSold}

// SortBy names a sortable contract column.
type SortBy string

const (
	SortNone          SortBy = ""
	SortPricePerMWh   SortBy = "price_per_mwh"
	SortQuantityMWh   SortBy = "quantity_mwh"
	SortDeliveryStart SortBy = "delivery_start"
)

// SortDirection is the ordering applied to SortBy.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Number is a JSON number that also accepts a numeric string.
// Aggregates computed with decimals on the server are serialized as strings.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Float64 returns n as a float64.
func (n Number) Float64() float64 {
	return float64(n)
}

// Contract is a tradeable energy delivery contract.
type Contract struct {
	ID            int            `json:"id"`
	EnergyType    EnergyType     `json:"energy_type"`
	QuantityMWh   float64        `json:"quantity_mwh"`
	PricePerMWh   float64        `json:"price_per_mwh"`
	DeliveryStart string         `json:"delivery_start"`
	DeliveryEnd   string         `json:"delivery_end"`
	Location      string         `json:"location"`
	Status        ContractStatus `json:"status"`
}

// ComparedContract is a contract annotated with its delivery duration.
type ComparedContract struct {
	Contract
	DurationDays int `json:"duration_days"`
}

// MetricRange summarizes one attribute across compared contracts.
type MetricRange struct {
	Min    Number `json:"min"`
	Max    Number `json:"max"`
	Spread Number `json:"spread"`
}

// ComparisonMetrics holds the ranges computed for a comparison.
type ComparisonMetrics struct {
	PricePerMWh  MetricRange `json:"price_per_mwh"`
	QuantityMWh  MetricRange `json:"quantity_mwh"`
	DurationDays MetricRange `json:"duration_days"`
}

// Comparison is the API response for a contract comparison.
type Comparison struct {
	Contracts []ComparedContract `json:"contracts"`
	Metrics   ComparisonMetrics  `json:"metrics"`
}

// Holding is a contract held in a portfolio.
type Holding struct {
	ID       int      `json:"id"`
	AddedAt  string   `json:"added_at"`
	Contract Contract `json:"contract"`
}

// Portfolio is the API response for a user's portfolio.
type Portfolio struct {
	UserID   int       `json:"user_id"`
	Holdings []Holding `json:"holdings"`
}

// EnergyBreakdown aggregates holdings of a single energy type.
type EnergyBreakdown struct {
	EnergyType             EnergyType `json:"energy_type"`
	TotalContracts         int        `json:"total_contracts"`
	TotalCapacityMWh       Number     `json:"total_capacity_mwh"`
	TotalCost              Number     `json:"total_cost"`
	WeightedAvgPricePerMWh Number     `json:"weighted_avg_price_per_mwh"`
}

// PortfolioMetrics is the API response for portfolio aggregates.
type PortfolioMetrics struct {
	TotalContracts         int               `json:"total_contracts"`
	TotalCapacityMWh       Number            `json:"total_capacity_mwh"`
	TotalCost              Number            `json:"total_cost"`
	WeightedAvgPricePerMWh Number            `json:"weighted_avg_price_per_mwh"`
	BreakdownByEnergyType  []EnergyBreakdown `json:"breakdown_by_energy_type"`
}
