/*
Package pettycash tracks petty-cash floats held by individual staff members.

PURPOSE:
  A staff member is allocated a float, spends from it, and is replenished.
  Each event is a manual journal entry tagged with the user id (sourceId)
  and metadata.transactionType. The balance is never stored; it is derived
  from the tagged entries on every call.

BALANCE:
  current = allocated + replenished - expenses
  The amount of an entry is its total debit.

READ vs WRITE:
  Ledger (this file) only reads and never enforces funds. Fund (fund.go)
  is the write path and rejects expenses larger than the current balance.

SEE ALSO:
  - fund.go: Allocate, RecordExpense, Replenish
*/
package pettycash

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/ledger"
)

// Transaction types carried in metadata.transactionType.
const (
	TypeAllocation    = "petty_cash_allocation"
	TypeExpense       = "petty_cash_expense"
	TypeReplenishment = "petty_cash_replenishment"
)

var allTypes = []string{TypeAllocation, TypeExpense, TypeReplenishment}

// Balance is a user's derived petty-cash position.
type Balance struct {
	UserID           ledger.UserID   `json:"user_id"`
	TotalAllocated   decimal.Decimal `json:"total_allocated"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	TotalReplenished decimal.Decimal `json:"total_replenished"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	TransactionCount int             `json:"transaction_count"`
}

type Ledger struct {
	entries ledger.Ledger
}

func NewLedger(entries ledger.Ledger) *Ledger {
	return &Ledger{entries: entries}
}

// GetBalance derives the user's balance from every tagged entry to date.
func (l *Ledger) GetBalance(ctx context.Context, userID ledger.UserID) (*Balance, error) {
	if err := ledger.ValidateUserID(userID); err != nil {
		return nil, err
	}
	entries, err := l.entries.FindBySource(ctx, filterFor(userID))
	if err != nil {
		return nil, err
	}
	return summarize(userID, entries), nil
}

// GetTransactions returns the user's tagged entries, optionally bounded by
// inclusive start and end days.
func (l *Ledger) GetTransactions(ctx context.Context, userID ledger.UserID, start, end *ledger.TimePoint) ([]ledger.TransactionEntry, error) {
	if err := ledger.ValidateUserID(userID); err != nil {
		return nil, err
	}
	filter := filterFor(userID)
	filter.From = start
	filter.To = end
	if start != nil && end != nil {
		if err := (ledger.Period{Start: *start, End: *end}).Validate(); err != nil {
			return nil, err
		}
	}
	entries, err := l.entries.FindBySource(ctx, filter)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []ledger.TransactionEntry{}
	}
	return entries, nil
}

func filterFor(userID ledger.UserID) ledger.EntryFilter {
	return ledger.EntryFilter{
		Source:           ledger.SourceManual,
		SourceID:         string(userID),
		TransactionTypes: allTypes,
	}
}

func summarize(userID ledger.UserID, entries []ledger.TransactionEntry) *Balance {
	b := &Balance{
		UserID:           userID,
		TotalAllocated:   decimal.Zero,
		TotalExpenses:    decimal.Zero,
		TotalReplenished: decimal.Zero,
	}
	for _, e := range entries {
		amount := e.TotalDebit()
		switch e.TransactionType() {
		case TypeAllocation:
			b.TotalAllocated = b.TotalAllocated.Add(amount)
		case TypeExpense:
			b.TotalExpenses = b.TotalExpenses.Add(amount)
		case TypeReplenishment:
			b.TotalReplenished = b.TotalReplenished.Add(amount)
		default:
			continue
		}
		b.TransactionCount++
	}
	b.CurrentBalance = b.TotalAllocated.Add(b.TotalReplenished).Sub(b.TotalExpenses)
	return b
}
