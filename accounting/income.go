package accounting

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/ledger"
)

// =============================================================================
// ACCRUAL INCOME STATEMENT
// =============================================================================

// RevenueAccount is one income account's earned vs received split.
type RevenueAccount struct {
	Earned     decimal.Decimal `json:"earned"`
	Received   decimal.Decimal `json:"received"`
	Receivable decimal.Decimal `json:"receivable"`
}

// ExpenseAccount is one expense account's incurred vs paid split.
type ExpenseAccount struct {
	Incurred decimal.Decimal `json:"incurred"`
	Paid     decimal.Decimal `json:"paid"`
	Payable  decimal.Decimal `json:"payable"`
}

// Accruals holds the period-end adjustment buckets.
type Accruals struct {
	PrepaidExpenses decimal.Decimal `json:"prepaid_expenses"`
	AccruedExpenses decimal.Decimal `json:"accrued_expenses"`
}

type IncomeTotals struct {
	TotalRevenueEarned    decimal.Decimal `json:"total_revenue_earned"`
	TotalRevenueReceived  decimal.Decimal `json:"total_revenue_received"`
	TotalReceivables      decimal.Decimal `json:"total_receivables"`
	TotalExpensesIncurred decimal.Decimal `json:"total_expenses_incurred"`
	TotalExpensesPaid     decimal.Decimal `json:"total_expenses_paid"`
	TotalPayables         decimal.Decimal `json:"total_payables"`
	NetIncomeAccrual      decimal.Decimal `json:"net_income_accrual"`
	NetIncomeCash         decimal.Decimal `json:"net_income_cash"`
	AdjustedNetIncome     decimal.Decimal `json:"adjusted_net_income"`
}

// AccrualIncomeStatement recognizes revenue when earned and expenses when
// incurred. Revenue and Expenses are keyed by "{code} - {name}".
type AccrualIncomeStatement struct {
	Period      ledger.Year               `json:"period"`
	Start       ledger.TimePoint          `json:"start"`
	End         ledger.TimePoint          `json:"end"`
	Residence   ledger.ResidenceID        `json:"residence,omitempty"`
	Basis       string                    `json:"basis"`
	Revenue     map[string]RevenueAccount `json:"revenue"`
	Expenses    map[string]ExpenseAccount `json:"expenses"`
	Totals      IncomeTotals              `json:"totals"`
	Accruals    Accruals                  `json:"accruals"`
	Diagnostics Diagnostics               `json:"diagnostics"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// GenerateAccrualIncomeStatement builds the accrual-basis income statement
// for a calendar year, optionally for one residence.
func (s *Service) GenerateAccrualIncomeStatement(ctx context.Context, year ledger.Year, residence ledger.ResidenceID) (*AccrualIncomeStatement, error) {
	if err := year.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.checkResidence(ctx, residence); err != nil {
		return nil, err
	}
	return s.incomeStatement(ctx, year, residence)
}

func (s *Service) incomeStatement(ctx context.Context, year ledger.Year, residence ledger.ResidenceID) (*AccrualIncomeStatement, error) {
	period := year.Period()
	entries, err := s.Ledger.FindByDateRange(ctx, period.Start, period.End, residence)
	if err != nil {
		return nil, err
	}

	revenue := make(map[string]RevenueAccount)
	expenses := make(map[string]ExpenseAccount)
	accruals := Accruals{PrepaidExpenses: decimal.Zero, AccruedExpenses: decimal.Zero}
	diag := Diagnostics{EntriesScanned: len(entries), LinesScanned: countLines(entries)}

	for _, e := range entries {
		for _, line := range e.Entries {
			c := s.classify(line)
			if c.Defaulted {
				diag.DefaultedLines++
			}

			switch {
			case c.Category == CategoryIncome:
				acct := revenueAccount(revenue, line.Key())
				acct.Earned = acct.Earned.Add(line.Credit)
				if e.Source == ledger.SourcePayment {
					acct.Received = acct.Received.Add(line.Credit)
				}
				revenue[line.Key()] = acct

			case c.Category == CategoryExpense:
				acct := expenseAccount(expenses, line.Key())
				acct.Incurred = acct.Incurred.Add(line.Debit)
				if e.Source == ledger.SourceExpensePayment {
					acct.Paid = acct.Paid.Add(line.Debit)
				}
				expenses[line.Key()] = acct

			// Adjustments key on the account name alone, so "Accrued Loan
			// Interest" counts as accrued even though it classifies as a loan.
			case c.Category == CategoryAsset && nameContains(line, "prepaid"):
				accruals.PrepaidExpenses = accruals.PrepaidExpenses.Add(line.Debit)

			case c.Category == CategoryLiability && nameContains(line, "accrued"):
				accruals.AccruedExpenses = accruals.AccruedExpenses.Add(line.Credit)
			}
		}
	}

	totals := IncomeTotals{
		TotalRevenueEarned:    decimal.Zero,
		TotalRevenueReceived:  decimal.Zero,
		TotalReceivables:      decimal.Zero,
		TotalExpensesIncurred: decimal.Zero,
		TotalExpensesPaid:     decimal.Zero,
		TotalPayables:         decimal.Zero,
	}
	for k, acct := range revenue {
		acct.Receivable = acct.Earned.Sub(acct.Received)
		revenue[k] = acct
		totals.TotalRevenueEarned = totals.TotalRevenueEarned.Add(acct.Earned)
		totals.TotalRevenueReceived = totals.TotalRevenueReceived.Add(acct.Received)
		totals.TotalReceivables = totals.TotalReceivables.Add(acct.Receivable)
	}
	for k, acct := range expenses {
		acct.Payable = acct.Incurred.Sub(acct.Paid)
		expenses[k] = acct
		totals.TotalExpensesIncurred = totals.TotalExpensesIncurred.Add(acct.Incurred)
		totals.TotalExpensesPaid = totals.TotalExpensesPaid.Add(acct.Paid)
		totals.TotalPayables = totals.TotalPayables.Add(acct.Payable)
	}
	totals.NetIncomeAccrual = totals.TotalRevenueEarned.Sub(totals.TotalExpensesIncurred)
	totals.NetIncomeCash = totals.TotalRevenueReceived.Sub(totals.TotalExpensesPaid)
	totals.AdjustedNetIncome = totals.NetIncomeAccrual.Add(accruals.AccruedExpenses).Sub(accruals.PrepaidExpenses)

	s.Log.Debug().
		Str("statement", "income").
		Stringer("period", year).
		Str("residence", string(residence)).
		Int("entries", diag.EntriesScanned).
		Int("defaulted_lines", diag.DefaultedLines).
		Msg("generated accrual income statement")

	return &AccrualIncomeStatement{
		Period:      year,
		Start:       period.Start,
		End:         period.End,
		Residence:   residence,
		Basis:       "accrual",
		Revenue:     revenue,
		Expenses:    expenses,
		Totals:      totals,
		Accruals:    accruals,
		Diagnostics: diag,
		GeneratedAt: s.now(),
	}, nil
}

func revenueAccount(m map[string]RevenueAccount, key string) RevenueAccount {
	if acct, ok := m[key]; ok {
		return acct
	}
	return RevenueAccount{Earned: decimal.Zero, Received: decimal.Zero, Receivable: decimal.Zero}
}

func expenseAccount(m map[string]ExpenseAccount, key string) ExpenseAccount {
	if acct, ok := m[key]; ok {
		return acct
	}
	return ExpenseAccount{Incurred: decimal.Zero, Paid: decimal.Zero, Payable: decimal.Zero}
}

func nameContains(line ledger.EntryLine, needle string) bool {
	return strings.Contains(strings.ToLower(line.AccountName), needle)
}
