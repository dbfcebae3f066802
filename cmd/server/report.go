package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/warp/accommodation-ledger/api"
	"github.com/warp/accommodation-ledger/ledger"
)

type reportFlags struct {
	period    string
	residence string
	asOf      string
}

func (f *reportFlags) year() (ledger.Year, error) {
	return ledger.ParseYear(f.period)
}

func (f *reportFlags) asOfDate() (*ledger.TimePoint, error) {
	if f.asOf == "" {
		return nil, nil
	}
	tp, err := ledger.ParseDate(f.asOf)
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

func newReportCmd(g *globalFlags) *cobra.Command {
	f := &reportFlags{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a statement as JSON",
	}
	cmd.PersistentFlags().StringVar(&f.period, "period", "", "Four-digit reporting year")
	cmd.PersistentFlags().StringVar(&f.residence, "residence", "", "Residence id (all residences when empty)")
	cmd.PersistentFlags().StringVar(&f.asOf, "as-of", "", "Balance-sheet date YYYY-MM-DD")

	// run opens the app, builds one statement and prints it.
	run := func(build func(ctx context.Context, a *app) (any, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := g.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := build(cmd.Context(), a)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		}
	}
	residence := func() ledger.ResidenceID { return ledger.ResidenceID(f.residence) }

	cmd.AddCommand(
		&cobra.Command{
			Use:   "income",
			Short: "Accrual income statement",
			RunE: run(func(ctx context.Context, a *app) (any, error) {
				y, err := f.year()
				if err != nil {
					return nil, err
				}
				return a.handler.Service.GenerateAccrualIncomeStatement(ctx, y, residence())
			}),
		},
		&cobra.Command{
			Use:   "cash-flow",
			Short: "Cash flow statement",
			RunE: run(func(ctx context.Context, a *app) (any, error) {
				y, err := f.year()
				if err != nil {
					return nil, err
				}
				return a.handler.Service.GenerateCashFlowStatement(ctx, y, residence())
			}),
		},
		&cobra.Command{
			Use:   "balance-sheet",
			Short: "Cash-basis balance sheet (as of --as-of, default today)",
			RunE: run(func(ctx context.Context, a *app) (any, error) {
				at, err := f.asOfDate()
				if err != nil {
					return nil, err
				}
				asOf := ledger.Today()
				if at != nil {
					asOf = *at
				}
				return a.handler.Service.GenerateCashBasisBalanceSheet(ctx, asOf, residence())
			}),
		},
		&cobra.Command{
			Use:   "reconcile",
			Short: "Check the cash flow statement against the balance sheet",
			RunE: run(func(ctx context.Context, a *app) (any, error) {
				y, err := f.year()
				if err != nil {
					return nil, err
				}
				return a.handler.Service.ValidateCashFlowReconciliation(ctx, y, residence())
			}),
		},
		&cobra.Command{
			Use:   "statements",
			Short: "All three statements for one residence",
			RunE: run(func(ctx context.Context, a *app) (any, error) {
				y, err := f.year()
				if err != nil {
					return nil, err
				}
				at, err := f.asOfDate()
				if err != nil {
					return nil, err
				}
				return a.handler.Service.GenerateResidenceFinancialStatements(ctx, y, residence(), at)
			}),
		},
	)
	return cmd
}

func newSeedCmd(g *globalFlags) *cobra.Command {
	var scenarioID, period string
	var list bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a demo scenario into a new residence",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return printJSON(cmd.OutOrStdout(), api.Scenarios())
			}

			year := ledger.Year(ledger.Today().Year())
			if period != "" {
				y, err := ledger.ParseYear(period)
				if err != nil {
					return err
				}
				year = y
			}

			a, err := g.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := api.LoadScenario(cmd.Context(), a.store, scenarioID, year)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&scenarioID, "scenario", "full-year", "Scenario id (see --list)")
	cmd.Flags().StringVar(&period, "period", "", "Year to generate entries for (default current year)")
	cmd.Flags().BoolVar(&list, "list", false, "List scenarios and exit")
	return cmd
}
