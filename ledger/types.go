/*
Package ledger provides the journal-entry model and read-side engine that the
accounting statements are built on.

PURPOSE:
  This package contains the types shared by every statement builder: the
  append-only TransactionEntry log, its posting lines, residences, and the
  store/ledger interfaces used to query them. It has no knowledge of how an
  account is classified or how a statement is assembled.

KEY CONCEPTS IN THIS FILE (types.go):
  - TransactionEntry: One journal entry, grouping balanced posting lines
  - EntryLine: One debit-or-credit posting against one account
  - Source: The business event that produced an entry (payment, manual, ...)
  - Residence: Filter key and label for per-property reporting

DESIGN PRINCIPLES:
  1. Immutability: Entries are never modified, only appended
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing residence/user IDs
  4. Read-only core: Statement builders only ever query this log

USAGE:
  entry := ledger.TransactionEntry{
      Date:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
      Source: ledger.SourcePayment,
      Entries: []ledger.EntryLine{
          ledger.Debit("1000", "Bank", ledger.AccountAsset, ledger.MustAmount("500")),
          ledger.Credit("4000", "Rent Income", ledger.AccountIncome, ledger.MustAmount("500")),
      },
  }

SEE ALSO:
  - store.go: Store and ResidenceDirectory interfaces
  - ledger.go: Read-side façade with per-query timeouts
  - period.go: Year and Period boundaries
*/
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNTS
// =============================================================================

// Tolerance is the largest difference treated as zero when comparing totals.
var Tolerance = decimal.New(1, -2)

// ApproxEqual reports whether a and b differ by less than Tolerance.
func ApproxEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

// MustAmount parses a decimal string, panicking on malformed input.
// Intended for fixtures and constants.
func MustAmount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ParseAmount parses a positive decimal amount supplied by a caller.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, &InputError{Field: "amount", Value: s, Err: ErrInvalidAmount}
	}
	if !d.IsPositive() {
		return decimal.Zero, &InputError{Field: "amount", Value: s, Err: ErrInvalidAmount}
	}
	return d, nil
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntryID string
type ResidenceID string
type UserID string

// =============================================================================
// ACCOUNT TYPE
// =============================================================================

// AccountType is the natural category recorded on a posting line.
type AccountType string

const (
	AccountAsset     AccountType = "Asset"
	AccountLiability AccountType = "Liability"
	AccountEquity    AccountType = "Equity"
	AccountIncome    AccountType = "Income"
	AccountExpense   AccountType = "Expense"
)

// Normalize maps a case-insensitive account type to its canonical form.
// Unrecognized types are returned unchanged with ok=false.
func (t AccountType) Normalize() (AccountType, bool) {
	switch strings.ToLower(strings.TrimSpace(string(t))) {
	case "asset", "assets":
		return AccountAsset, true
	case "liability", "liabilities":
		return AccountLiability, true
	case "equity":
		return AccountEquity, true
	case "income", "revenue":
		return AccountIncome, true
	case "expense", "expenses":
		return AccountExpense, true
	default:
		return t, false
	}
}

// =============================================================================
// SOURCE - Originating business event
// =============================================================================

type Source string

const (
	SourcePayment        Source = "payment"         // Tenant/admin-fee receipt
	SourceExpensePayment Source = "expense_payment" // Supplier or staff payout
	SourceManual         Source = "manual"          // Manual journal (incl. petty cash)
	SourceInvoice        Source = "invoice"         // Accrual-only billing
	SourceRentalAccrual  Source = "rental_accrual"  // Month-end rent accrual
	SourceExpenseAccrual Source = "expense_accrual" // Approved expense not yet paid
)

// MetadataTransactionType is the metadata key carrying the petty-cash tag.
const MetadataTransactionType = "transactionType"

// =============================================================================
// ENTRY LINE - One posting against one account
// =============================================================================

type EntryLine struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType AccountType     `json:"account_type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// Key returns the "{code} - {name}" label used for per-account breakdowns.
func (l EntryLine) Key() string {
	return l.AccountCode + " - " + l.AccountName
}

// NetDebit returns debit minus credit.
func (l EntryLine) NetDebit() decimal.Decimal { return l.Debit.Sub(l.Credit) }

// NetCredit returns credit minus debit.
func (l EntryLine) NetCredit() decimal.Decimal { return l.Credit.Sub(l.Debit) }

// Debit builds a debit posting line.
func Debit(code, name string, typ AccountType, amount decimal.Decimal) EntryLine {
	return EntryLine{AccountCode: code, AccountName: name, AccountType: typ, Debit: amount, Credit: decimal.Zero}
}

// Credit builds a credit posting line.
func Credit(code, name string, typ AccountType, amount decimal.Decimal) EntryLine {
	return EntryLine{AccountCode: code, AccountName: name, AccountType: typ, Debit: decimal.Zero, Credit: amount}
}

// =============================================================================
// TRANSACTION ENTRY - Immutable journal entry
// =============================================================================

type TransactionEntry struct {
	ID            EntryID           `json:"id"`
	TransactionID string            `json:"transaction_id,omitempty"`
	Date          time.Time         `json:"date"`
	Description   string            `json:"description"`
	Residence     ResidenceID       `json:"residence,omitempty"`
	Source        Source            `json:"source"`
	SourceID      string            `json:"source_id,omitempty"`
	Entries       []EntryLine       `json:"entries"`
	Metadata      map[string]string `json:"metadata,omitempty"`

	// Audit fields
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Day returns the entry date as a day-granular TimePoint.
func (e TransactionEntry) Day() TimePoint { return At(e.Date) }

// TransactionType returns metadata.transactionType, or "".
func (e TransactionEntry) TransactionType() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[MetadataTransactionType]
}

func (e TransactionEntry) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Entries {
		total = total.Add(l.Debit)
	}
	return total
}

func (e TransactionEntry) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Entries {
		total = total.Add(l.Credit)
	}
	return total
}

// IsBalanced reports whether total debits equal total credits.
func (e TransactionEntry) IsBalanced() bool {
	return e.TotalDebit().Equal(e.TotalCredit())
}

// ValidateForPosting checks the invariants a new entry must satisfy before it
// is appended. Statement builders never call this: the log they read is
// assumed balanced.
func (e TransactionEntry) ValidateForPosting() error {
	if e.Date.IsZero() {
		return &InputError{Field: "date", Err: ErrInvalidDate}
	}
	if len(e.Entries) < 2 {
		return fmt.Errorf("%w: entry needs at least 2 lines, got %d", ErrUnbalancedEntry, len(e.Entries))
	}
	for i, l := range e.Entries {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return &InputError{Field: fmt.Sprintf("entries[%d]", i), Value: l.Key(), Err: ErrInvalidAmount}
		}
		if l.AccountCode == "" {
			return &InputError{Field: fmt.Sprintf("entries[%d].account_code", i), Err: ErrInvalidInput}
		}
	}
	if !e.IsBalanced() {
		return fmt.Errorf("%w: debits %s != credits %s",
			ErrUnbalancedEntry, e.TotalDebit().StringFixed(2), e.TotalCredit().StringFixed(2))
	}
	return nil
}

// =============================================================================
// RESIDENCE
// =============================================================================

type Residence struct {
	ID      ResidenceID `json:"id"`
	Name    string      `json:"name"`
	Address string      `json:"address,omitempty"`
}
