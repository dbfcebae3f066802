package accounting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/ledger"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// FULL RESIDENCE STATEMENTS - Composite of all three builders
// =============================================================================

// StatementSummary is the headline view of one residence's year.
type StatementSummary struct {
	ResidenceName     string          `json:"residence_name"`
	ResidenceAddress  string          `json:"residence_address,omitempty"`
	NetIncomeAccrual  decimal.Decimal `json:"net_income_accrual"`
	AdjustedNetIncome decimal.Decimal `json:"adjusted_net_income"`
	NetCashChange     decimal.Decimal `json:"net_change_in_cash"`
	ClosingCash       decimal.Decimal `json:"closing_cash_balance"`
	TotalAssets       decimal.Decimal `json:"total_assets"`
	TotalLiabilities  decimal.Decimal `json:"total_liabilities"`
	TotalEquity       decimal.Decimal `json:"total_equity"`
	IsBalanced        bool            `json:"is_balanced"`
	IsReconciled      bool            `json:"is_reconciled"`
	GeneratedAt       time.Time       `json:"generated_at"`
}

type ResidenceFinancialStatements struct {
	Residence       ledger.Residence        `json:"residence"`
	Period          ledger.Year             `json:"period"`
	AsOf            ledger.TimePoint        `json:"as_of"`
	IncomeStatement *AccrualIncomeStatement `json:"income_statement"`
	CashFlow        *CashFlowStatement      `json:"cash_flow"`
	BalanceSheet    *CashBasisBalanceSheet  `json:"balance_sheet"`
	Summary         StatementSummary        `json:"summary"`
}

// GenerateResidenceFinancialStatements runs the three statement builders
// concurrently for one residence. asOf defaults to the end of the period.
// The first failure cancels the remaining scans and is returned.
func (s *Service) GenerateResidenceFinancialStatements(ctx context.Context, year ledger.Year, residenceID ledger.ResidenceID, asOf *ledger.TimePoint) (*ResidenceFinancialStatements, error) {
	if err := year.Validate(); err != nil {
		return nil, err
	}
	if err := ledger.ValidateResidenceID(residenceID); err != nil {
		return nil, err
	}
	at := year.Period().End
	if asOf != nil {
		if asOf.IsZero() {
			return nil, &ledger.InputError{Field: "as_of", Err: ledger.ErrInvalidDate}
		}
		at = *asOf
	}

	residence, err := s.lookupResidence(ctx, residenceID)
	if err != nil {
		return nil, err
	}

	var (
		income *AccrualIncomeStatement
		flow   *CashFlowStatement
		sheet  *CashBasisBalanceSheet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.incomeStatement(gctx, year, residenceID)
		return err
	})
	g.Go(func() error {
		var err error
		flow, err = s.cashFlowStatement(gctx, year, residenceID)
		return err
	})
	g.Go(func() error {
		var err error
		sheet, err = s.balanceSheet(gctx, at, residenceID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ResidenceFinancialStatements{
		Residence:       *residence,
		Period:          year,
		AsOf:            at,
		IncomeStatement: income,
		CashFlow:        flow,
		BalanceSheet:    sheet,
		Summary: StatementSummary{
			ResidenceName:     residence.Name,
			ResidenceAddress:  residence.Address,
			NetIncomeAccrual:  income.Totals.NetIncomeAccrual,
			AdjustedNetIncome: income.Totals.AdjustedNetIncome,
			NetCashChange:     flow.NetChange,
			ClosingCash:       flow.ClosingBalance,
			TotalAssets:       sheet.Assets.TotalAssets,
			TotalLiabilities:  sheet.Liabilities.TotalLiabilities,
			TotalEquity:       sheet.Equity.TotalEquity,
			IsBalanced:        sheet.IsBalanced,
			IsReconciled:      flow.Reconciliation.IsReconciled,
			GeneratedAt:       s.now(),
		},
	}, nil
}
