package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jonandersen/emkt/internal/market"
	"github.com/jonandersen/emkt/internal/output"
	"github.com/jonandersen/emkt/pkg/marketapi"
)

func newPortfolioCmd(opts *apiOptions) *cobra.Command {
	var userID int

	cmd := &cobra.Command{
		Use:     "portfolio",
		Aliases: []string{"p"},
		Short:   "View and manage your portfolio",
		Long: `View and manage the contracts held in your portfolio.

The portfolio owner defaults to user_id from the config file.`,
	}
	cmd.PersistentFlags().IntVar(&userID, "user", 0, "Portfolio owner (default from config)")

	owner := func() int {
		if userID > 0 {
			return userID
		}
		if opts.userID > 0 {
			return opts.userID
		}
		return market.DefaultUserID
	}

	cmd.AddCommand(newPortfolioShowCmd(opts, owner))
	cmd.AddCommand(newPortfolioMetricsCmd(opts, owner))
	cmd.AddCommand(newPortfolioAddCmd(opts, owner))
	cmd.AddCommand(newPortfolioRemoveCmd(opts, owner))
	return cmd
}

func newPortfolioShowCmd(opts *apiOptions, owner func() int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List holdings with portfolio totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPortfolioShow(cmd, opts, owner())
		},
	}
	cmd.SilenceUsage = true
	return cmd
}

func runPortfolioShow(cmd *cobra.Command, opts *apiOptions, userID int) error {
	ctx, cancel := opts.requestContext()
	defer cancel()

	snapshot, err := market.FetchPortfolio(ctx, opts.client(), userID)
	if err != nil {
		return fmt.Errorf("failed to get portfolio: %w", err)
	}

	out := output.New(cmd.OutOrStdout(), opts.jsonMode)
	if opts.jsonMode {
		return out.JSON(snapshot)
	}

	if err := printPortfolioSummary(out, snapshot.Metrics); err != nil {
		return err
	}
	if err := out.Section("Holdings"); err != nil {
		return err
	}

	rows := make([][]string, 0, len(snapshot.Holdings))
	for _, h := range snapshot.Holdings {
		c := h.Contract
		rows = append(rows, []string{
			strconv.Itoa(c.ID),
			string(c.EnergyType),
			marketapi.FormatNumber(c.QuantityMWh),
			marketapi.FormatCurrency(c.PricePerMWh),
			marketapi.FormatCurrency(c.QuantityMWh * c.PricePerMWh),
			marketapi.FormatDateRange(c.DeliveryStart, c.DeliveryEnd),
			c.Location,
			marketapi.FormatDate(h.AddedAt),
		})
	}
	return out.Table(snapshot.Holdings,
		[]string{"ID", "TYPE", "QUANTITY (MWh)", "PRICE/MWh", "COST", "DELIVERY", "LOCATION", "ADDED"},
		rows, "No contracts in your portfolio yet.")
}

func newPortfolioMetricsCmd(opts *apiOptions, owner func() int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show portfolio totals and the breakdown by energy type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPortfolioMetrics(cmd, opts, owner())
		},
	}
	cmd.SilenceUsage = true
	return cmd
}

func runPortfolioMetrics(cmd *cobra.Command, opts *apiOptions, userID int) error {
	ctx, cancel := opts.requestContext()
	defer cancel()

	metrics, err := opts.client().GetPortfolioMetrics(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get portfolio metrics: %w", err)
	}

	out := output.New(cmd.OutOrStdout(), opts.jsonMode)
	if opts.jsonMode {
		return out.JSON(metrics)
	}

	if err := printPortfolioSummary(out, *metrics); err != nil {
		return err
	}
	if len(metrics.BreakdownByEnergyType) == 0 {
		return nil
	}
	if err := out.Section("By energy type"); err != nil {
		return err
	}

	rows := make([][]string, 0, len(metrics.BreakdownByEnergyType))
	for _, b := range metrics.BreakdownByEnergyType {
		rows = append(rows, []string{
			string(b.EnergyType),
			strconv.Itoa(b.TotalContracts),
			marketapi.FormatNumber(b.TotalCapacityMWh.Float64()),
			marketapi.FormatCurrency(b.TotalCost.Float64()),
			marketapi.FormatCurrency(b.WeightedAvgPricePerMWh.Float64()),
		})
	}
	return out.Table(metrics.BreakdownByEnergyType,
		[]string{"TYPE", "CONTRACTS", "CAPACITY (MWh)", "COST", "AVG PRICE/MWh"}, rows, "")
}

func printPortfolioSummary(out *output.Formatter, m marketapi.PortfolioMetrics) error {
	return out.Details(m, []output.Field{
		{Label: "Contracts", Value: strconv.Itoa(m.TotalContracts)},
		{Label: "Total capacity", Value: marketapi.FormatNumber(m.TotalCapacityMWh.Float64()) + " MWh"},
		{Label: "Total cost", Value: marketapi.FormatCurrency(m.TotalCost.Float64())},
		{Label: "Weighted avg price", Value: marketapi.FormatCurrency(m.WeightedAvgPricePerMWh.Float64()) + "/MWh"},
	})
}

func newPortfolioAddCmd(opts *apiOptions, owner func() int) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add ID",
		Short: "Add a contract to your portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPortfolioAdd(cmd, opts, owner(), args[0])
		},
	}
	cmd.SilenceUsage = true
	return cmd
}

func runPortfolioAdd(cmd *cobra.Command, opts *apiOptions, userID int, arg string) error {
	id, err := parseContractID(arg)
	if err != nil {
		return err
	}

	ctx, cancel := opts.requestContext()
	defer cancel()

	holding, err := opts.client().AddContract(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", market.MsgAddFailed, err)
	}

	return output.New(cmd.OutOrStdout(), opts.jsonMode).
		Message(holding, "Added contract #%d to portfolio.", holding.Contract.ID)
}

func newPortfolioRemoveCmd(opts *apiOptions, owner func() int) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Remove a contract from your portfolio",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPortfolioRemove(cmd, opts, owner(), args[0])
		},
	}
	cmd.SilenceUsage = true
	return cmd
}

func runPortfolioRemove(cmd *cobra.Command, opts *apiOptions, userID int, arg string) error {
	id, err := parseContractID(arg)
	if err != nil {
		return err
	}

	ctx, cancel := opts.requestContext()
	defer cancel()

	if err := opts.client().RemoveContract(ctx, userID, id); err != nil {
		return fmt.Errorf("%s: %w", market.MsgRemoveFailed, err)
	}

	result := map[string]any{"user_id": userID, "contract_id": id, "removed": true}
	return output.New(cmd.OutOrStdout(), opts.jsonMode).
		Message(result, "Removed contract #%d from portfolio.", id)
}

func init() {
	addAPICommand(newPortfolioCmd)
}
