package accounting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/ledger"
)

// =============================================================================
// CASH-BASIS BALANCE SHEET
// =============================================================================
// Assets are cash and cash equivalents only. Receivables, prepayments and
// other non-cash assets are not recognized, so total_assets always equals
// the cash total. Income and expense not yet closed to equity are folded
// into retained earnings and also disclosed as unclosed_net_income.

type BalanceSheetAssets struct {
	CashAndCashEquivalents CashBreakdown   `json:"cash_and_cash_equivalents"`
	TotalAssets            decimal.Decimal `json:"total_assets"`
}

type BalanceSheetLiabilities struct {
	LoansPayable     decimal.Decimal `json:"loans_payable"`
	AccountsPayable  decimal.Decimal `json:"accounts_payable"`
	AccruedExpenses  decimal.Decimal `json:"accrued_expenses"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
}

type BalanceSheetEquity struct {
	OwnersEquity     decimal.Decimal `json:"owners_equity"`
	RetainedEarnings decimal.Decimal `json:"retained_earnings"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
}

// BalanceSheetDiagnostics explain the figures. They never alter them.
type BalanceSheetDiagnostics struct {
	Diagnostics
	Difference                decimal.Decimal `json:"difference"`
	UnrecognizedNonCashAssets decimal.Decimal `json:"unrecognized_non_cash_assets"`
	UnclosedNetIncome         decimal.Decimal `json:"unclosed_net_income"`
}

type CashBasisBalanceSheet struct {
	AsOf        ledger.TimePoint        `json:"as_of"`
	Residence   ledger.ResidenceID      `json:"residence,omitempty"`
	Basis       string                  `json:"basis"`
	Assets      BalanceSheetAssets      `json:"assets"`
	Liabilities BalanceSheetLiabilities `json:"liabilities"`
	Equity      BalanceSheetEquity      `json:"equity"`

	// IsBalanced reports |assets - (liabilities + equity)| < 0.01.
	IsBalanced  bool                    `json:"is_balanced"`
	Diagnostics BalanceSheetDiagnostics `json:"diagnostics"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// GenerateCashBasisBalanceSheet builds the balance sheet as of a date.
func (s *Service) GenerateCashBasisBalanceSheet(ctx context.Context, asOf ledger.TimePoint, residence ledger.ResidenceID) (*CashBasisBalanceSheet, error) {
	if asOf.IsZero() {
		return nil, &ledger.InputError{Field: "as_of", Err: ledger.ErrInvalidDate}
	}
	if _, err := s.checkResidence(ctx, residence); err != nil {
		return nil, err
	}
	return s.balanceSheet(ctx, asOf, residence)
}

func (s *Service) balanceSheet(ctx context.Context, asOf ledger.TimePoint, residence ledger.ResidenceID) (*CashBasisBalanceSheet, error) {
	entries, err := s.Ledger.FindUpTo(ctx, asOf, residence)
	if err != nil {
		return nil, err
	}

	diag := BalanceSheetDiagnostics{
		Diagnostics:               Diagnostics{EntriesScanned: len(entries), LinesScanned: countLines(entries)},
		UnrecognizedNonCashAssets: decimal.Zero,
		UnclosedNetIncome:         decimal.Zero,
	}
	cash := s.sumCash(entries, &diag.Diagnostics)

	var liab BalanceSheetLiabilities
	var eq BalanceSheetEquity
	for _, e := range entries {
		for _, line := range e.Entries {
			c := s.classify(line)
			if c.Cash {
				continue
			}
			if c.Defaulted {
				diag.DefaultedLines++
			}
			switch c.Category {
			case CategoryLiability:
				switch c.Subtype {
				case SubtypeLoansPayable:
					liab.LoansPayable = liab.LoansPayable.Add(line.NetCredit())
				case SubtypeAccruedExpenses:
					liab.AccruedExpenses = liab.AccruedExpenses.Add(line.NetCredit())
				default:
					liab.AccountsPayable = liab.AccountsPayable.Add(line.NetCredit())
				}
			case CategoryEquity:
				if c.Subtype == SubtypeRetainedEarnings {
					eq.RetainedEarnings = eq.RetainedEarnings.Add(line.NetCredit())
				} else {
					eq.OwnersEquity = eq.OwnersEquity.Add(line.NetCredit())
				}
			case CategoryAsset:
				diag.UnrecognizedNonCashAssets = diag.UnrecognizedNonCashAssets.Add(line.NetDebit())
			case CategoryIncome, CategoryExpense:
				eq.RetainedEarnings = eq.RetainedEarnings.Add(line.NetCredit())
				diag.UnclosedNetIncome = diag.UnclosedNetIncome.Add(line.NetCredit())
			}
		}
	}
	liab.TotalLiabilities = liab.LoansPayable.Add(liab.AccountsPayable).Add(liab.AccruedExpenses)
	eq.TotalEquity = eq.OwnersEquity.Add(eq.RetainedEarnings)

	breakdown := newCashBreakdown(cash)
	assets := BalanceSheetAssets{CashAndCashEquivalents: breakdown, TotalAssets: breakdown.Total}

	diag.Difference = assets.TotalAssets.Sub(liab.TotalLiabilities.Add(eq.TotalEquity))
	sheet := &CashBasisBalanceSheet{
		AsOf:        asOf,
		Residence:   residence,
		Basis:       "cash",
		Assets:      assets,
		Liabilities: liab,
		Equity:      eq,
		IsBalanced:  diag.Difference.Abs().LessThan(ledger.Tolerance),
		Diagnostics: diag,
		GeneratedAt: s.now(),
	}

	s.Log.Debug().
		Str("statement", "balance_sheet").
		Stringer("as_of", asOf).
		Str("residence", string(residence)).
		Int("entries", diag.EntriesScanned).
		Msg("generated cash-basis balance sheet")
	if !sheet.IsBalanced {
		s.Log.Warn().
			Stringer("as_of", asOf).
			Str("residence", string(residence)).
			Str("difference", diag.Difference.StringFixed(2)).
			Str("unclosed_net_income", diag.UnclosedNetIncome.StringFixed(2)).
			Str("unrecognized_non_cash_assets", diag.UnrecognizedNonCashAssets.StringFixed(2)).
			Msg("balance sheet does not balance")
	}
	return sheet, nil
}
