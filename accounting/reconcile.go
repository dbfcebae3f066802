package accounting

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/ledger"
)

// ReconciliationResult compares the flow-derived closing cash with the cash
// held according to a balance-sheet scan at period end. It carries no
// timestamp so that identical store state yields an identical result.
type ReconciliationResult struct {
	Period    ledger.Year        `json:"period"`
	Residence ledger.ResidenceID `json:"residence,omitempty"`
	AsOf      ledger.TimePoint   `json:"as_of"`

	OpeningBalance  decimal.Decimal `json:"opening_balance"`
	NetChange       decimal.Decimal `json:"net_change_in_cash"`
	ExpectedClosing decimal.Decimal `json:"expected_closing_balance"`
	ActualClosing   decimal.Decimal `json:"actual_closing_balance"`
	ActualBreakdown CashBreakdown   `json:"actual_cash_breakdown"`
	Difference      decimal.Decimal `json:"difference"`
	IsReconciled    bool            `json:"is_reconciled"`
}

// ValidateCashFlowReconciliation checks opening + net change against an
// independent balance-sheet scan as of period end. A mismatch is reported
// in the result, never as an error.
func (s *Service) ValidateCashFlowReconciliation(ctx context.Context, year ledger.Year, residence ledger.ResidenceID) (*ReconciliationResult, error) {
	if err := year.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.checkResidence(ctx, residence); err != nil {
		return nil, err
	}

	flow, err := s.cashFlowStatement(ctx, year, residence)
	if err != nil {
		return nil, err
	}
	end := year.Period().End
	sheet, err := s.balanceSheet(ctx, end, residence)
	if err != nil {
		return nil, err
	}

	expected := flow.OpeningBalance.Add(flow.NetChange)
	actual := sheet.Assets.CashAndCashEquivalents.Total
	diff := expected.Sub(actual)

	result := &ReconciliationResult{
		Period:          year,
		Residence:       residence,
		AsOf:            end,
		OpeningBalance:  flow.OpeningBalance,
		NetChange:       flow.NetChange,
		ExpectedClosing: expected,
		ActualClosing:   actual,
		ActualBreakdown: sheet.Assets.CashAndCashEquivalents,
		Difference:      diff,
		IsReconciled:    diff.Abs().LessThan(ledger.Tolerance),
	}

	event := s.Log.Info()
	if !result.IsReconciled {
		event = s.Log.Warn()
	}
	event.
		Stringer("period", year).
		Str("residence", string(residence)).
		Str("difference", diff.StringFixed(2)).
		Bool("is_reconciled", result.IsReconciled).
		Msg("cash flow reconciliation")
	return result, nil
}
