package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonandersen/emkt/internal/market"
	"github.com/jonandersen/emkt/internal/output"
	"github.com/jonandersen/emkt/pkg/marketapi"
)

// contractFilterFlags holds the raw flag values of "contracts list".
type contractFilterFlags struct {
	energyTypes []string
	status      string
	priceMin    float64
	priceMax    float64
	quantityMin float64
	quantityMax float64
	location    string
	from        string
	to          string
	sortBy      string
	desc        bool
	limit       int
	offset      int
}

func newContractsCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contracts",
		Aliases: []string{"contract", "c"},
		Short:   "Browse energy contracts",
	}
	cmd.AddCommand(newContractsListCmd(opts))
	cmd.AddCommand(newContractsShowCmd(opts))
	cmd.AddCommand(newContractsCompareCmd(opts))
	return cmd
}

func newContractsListCmd(opts *apiOptions) *cobra.Command {
	var flags contractFilterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contracts matching filters",
		Long: `List marketplace contracts.

Price bounds are limited to 0-500 $/MWh and quantity bounds to 0-1000 MWh.
A bound at the edge of its range is not sent.

Examples:
  emkt contracts list
  emkt contracts list --energy solar --energy wind --status available
  emkt contracts list --price-max 60 --sort price --desc
  emkt contracts list --from 2026-01-01 --to 2026-03-31 --location texas`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContractsList(cmd, opts, flags)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&flags.energyTypes, "energy", "e", nil, "Energy type (repeatable): solar, wind, natural-gas, nuclear, coal, hydro")
	f.StringVarP(&flags.status, "status", "s", "", "Status: available, reserved or sold")
	f.Float64Var(&flags.priceMin, "price-min", market.PriceRange.Min, "Minimum price per MWh")
	f.Float64Var(&flags.priceMax, "price-max", market.PriceRange.Max, "Maximum price per MWh")
	f.Float64Var(&flags.quantityMin, "quantity-min", market.QuantityRange.Min, "Minimum quantity in MWh")
	f.Float64Var(&flags.quantityMax, "quantity-max", market.QuantityRange.Max, "Maximum quantity in MWh")
	f.StringVarP(&flags.location, "location", "l", "", "Location substring (at least 2 characters)")
	f.StringVar(&flags.from, "from", "", "Earliest delivery start (YYYY-MM-DD)")
	f.StringVar(&flags.to, "to", "", "Latest delivery end (YYYY-MM-DD)")
	f.StringVar(&flags.sortBy, "sort", "", "Sort by: price, quantity or delivery")
	f.BoolVar(&flags.desc, "desc", false, "Sort descending")
	f.IntVar(&flags.limit, "limit", 0, "Maximum number of contracts (default from config)")
	f.IntVar(&flags.offset, "offset", 0, "Number of contracts to skip")

	cmd.SilenceUsage = true

	return cmd
}

func runContractsList(cmd *cobra.Command, opts *apiOptions, flags contractFilterFlags) error {
	filters, sort, err := flags.state(time.Now())
	if err != nil {
		return err
	}
	if flags.limit < 0 || flags.limit > marketapi.MaxPageLimit {
		return fmt.Errorf("--limit must be between 1 and %d", marketapi.MaxPageLimit)
	}
	if flags.offset < 0 {
		return fmt.Errorf("--offset must not be negative")
	}

	limit := flags.limit
	if limit == 0 {
		limit = opts.limit
	}
	query := market.Query(filters, sort, limit)
	query.Offset = flags.offset

	ctx, cancel := opts.requestContext()
	defer cancel()

	contracts, err := opts.client().ListContracts(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list contracts: %w", err)
	}

	rows := make([][]string, 0, len(contracts))
	for _, c := range contracts {
		rows = append(rows, contractRow(c))
	}
	return output.New(cmd.OutOrStdout(), opts.jsonMode).
		Table(contracts, contractHeaders, rows, "No contracts match the current filters.")
}

// state converts the flags into the same filter and sort state the UI edits.
func (f contractFilterFlags) state(today time.Time) (market.FilterState, market.SortState, error) {
	filters := market.DefaultFilters()

	types := make([]marketapi.EnergyType, 0, len(f.energyTypes))
	for _, raw := range f.energyTypes {
		et, err := parseEnergyType(raw)
		if err != nil {
			return filters, market.SortState{}, err
		}
		types = append(types, et)
	}
	filters = filters.WithEnergyTypes(types)

	if f.status != "" {
		status, err := parseStatus(f.status)
		if err != nil {
			return filters, market.SortState{}, err
		}
		filters = filters.WithStatus(string(status))
	}

	filters = filters.
		WithPriceMax(f.priceMax).
		WithPriceMin(f.priceMin).
		WithQuantityMax(f.quantityMax).
		WithQuantityMin(f.quantityMin).
		WithLocation(f.location)

	var err error
	if f.from != "" {
		if filters, err = filters.WithDeliveryStart(f.from, today); err != nil {
			return filters, market.SortState{}, fmt.Errorf("--from: %w", err)
		}
	}
	if f.to != "" {
		if filters, err = filters.WithDeliveryEnd(f.to, today); err != nil {
			return filters, market.SortState{}, fmt.Errorf("--to: %w", err)
		}
	}

	sort := market.DefaultSort()
	if f.sortBy != "" {
		by, err := parseSortKey(f.sortBy)
		if err != nil {
			return filters, sort, err
		}
		sort.By = by
	}
	if f.desc {
		sort.Direction = marketapi.SortDesc
	}
	return filters, sort, nil
}

// normalizeName lowercases and strips separators so "Natural Gas",
// "natural-gas" and "natural_gas" compare equal.
func normalizeName(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}

func parseEnergyType(s string) (marketapi.EnergyType, error) {
	for _, et := range marketapi.EnergyTypes {
		if normalizeName(string(et)) == normalizeName(s) {
			return et, nil
		}
	}
	return "", fmt.Errorf("unknown energy type %q", s)
}

func parseStatus(s string) (marketapi.ContractStatus, error) {
	for _, status := range marketapi.ContractStatuses {
		if normalizeName(string(status)) == normalizeName(s) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status %q: expected available, reserved or sold", s)
}

func parseSortKey(s string) (marketapi.SortBy, error) {
	switch normalizeName(s) {
	case "price", "pricepermwh":
		return marketapi.SortPricePerMWh, nil
	case "quantity", "quantitymwh":
		return marketapi.SortQuantityMWh, nil
	case "delivery", "deliverystart":
		return marketapi.SortDeliveryStart, nil
	}
	return "", fmt.Errorf("unknown sort key %q: expected price, quantity or delivery", s)
}

var contractHeaders = []string{"ID", "TYPE", "QUANTITY (MWh)", "PRICE/MWh", "DELIVERY", "LOCATION", "STATUS"}

func contractRow(c marketapi.Contract) []string {
	return []string{
		strconv.Itoa(c.ID),
		string(c.EnergyType),
		marketapi.FormatNumber(c.QuantityMWh),
		marketapi.FormatCurrency(c.PricePerMWh),
		marketapi.FormatDateRange(c.DeliveryStart, c.DeliveryEnd),
		c.Location,
		string(c.Status),
	}
}

// parseContractID parses a positional contract id argument.
func parseContractID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(arg), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid contract id %q", arg)
	}
	return id, nil
}

func newContractsShowCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a single contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContractsShow(cmd, opts, args[0])
		},
	}
	cmd.SilenceUsage = true
	return cmd
}

func runContractsShow(cmd *cobra.Command, opts *apiOptions, arg string) error {
	id, err := parseContractID(arg)
	if err != nil {
		return err
	}

	ctx, cancel := opts.requestContext()
	defer cancel()

	contract, err := opts.client().GetContract(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get contract: %w", err)
	}

	total := contract.QuantityMWh * contract.PricePerMWh
	return output.New(cmd.OutOrStdout(), opts.jsonMode).Details(contract, []output.Field{
		{Label: "Contract", Value: "#" + strconv.Itoa(contract.ID)},
		{Label: "Energy type", Value: string(contract.EnergyType)},
		{Label: "Status", Value: string(contract.Status)},
		{Label: "Quantity", Value: marketapi.FormatNumber(contract.QuantityMWh) + " MWh"},
		{Label: "Price", Value: marketapi.FormatCurrency(contract.PricePerMWh) + "/MWh"},
		{Label: "Total value", Value: marketapi.FormatCurrency(total)},
		{Label: "Delivery", Value: marketapi.FormatDateRange(contract.DeliveryStart, contract.DeliveryEnd)},
		{Label: "Location", Value: contract.Location},
	})
}

func newContractsCompareCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare ID ID [ID]",
		Short: "Compare two or three contracts side by side",
		Example: `  emkt contracts compare 4 9
  emkt contracts compare 4 9 12 --json`,
		Args: cobra.RangeArgs(marketapi.MinCompare, marketapi.MaxCompare),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContractsCompare(cmd, opts, args)
		},
	}
	cmd.SilenceUsage = true
	return cmd
}

func runContractsCompare(cmd *cobra.Command, opts *apiOptions, args []string) error {
	var selection market.Selection
	for _, arg := range args {
		id, err := parseContractID(arg)
		if err != nil {
			return err
		}
		if selection.Has(id) {
			return fmt.Errorf("contract %d listed more than once", id)
		}
		selection.Toggle(id)
	}

	ctx, cancel := opts.requestContext()
	defer cancel()

	comparison, err := opts.client().CompareContracts(ctx, selection.IDs())
	if err != nil {
		return fmt.Errorf("failed to compare contracts: %w", err)
	}

	out := output.New(cmd.OutOrStdout(), opts.jsonMode)
	if opts.jsonMode {
		return out.JSON(comparison)
	}

	headers := append([]string{}, contractHeaders...)
	headers = append(headers, "DAYS")
	rows := make([][]string, 0, len(comparison.Contracts))
	for _, c := range comparison.Contracts {
		rows = append(rows, append(contractRow(c.Contract), strconv.Itoa(c.DurationDays)))
	}
	if err := out.Table(comparison, headers, rows, ""); err != nil {
		return err
	}

	if err := out.Section("Metrics"); err != nil {
		return err
	}
	m := comparison.Metrics
	return out.Table(comparison.Metrics, []string{"METRIC", "MIN", "MAX", "SPREAD"}, [][]string{
		metricRow("Price/MWh", m.PricePerMWh, marketapi.FormatCurrency),
		metricRow("Quantity (MWh)", m.QuantityMWh, marketapi.FormatNumber),
		metricRow("Duration (days)", m.DurationDays, marketapi.FormatNumber),
	}, "")
}

func metricRow(label string, r marketapi.MetricRange, format func(float64) string) []string {
	return []string{label, format(r.Min.Float64()), format(r.Max.Float64()), format(r.Spread.Float64())}
}

func init() {
	addAPICommand(newContractsCmd)
}
