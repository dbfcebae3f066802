package pettycash

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/ledger"
)

// =============================================================================
// ERRORS
// =============================================================================

// InsufficientFundsError is returned when an expense exceeds the float.
type InsufficientFundsError struct {
	UserID    ledger.UserID
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient petty cash for %s: requested %s, available %s",
		e.UserID, e.Requested.StringFixed(2), e.Available.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ledger.ErrInsufficientFunds }

// =============================================================================
// FUND - Write path
// =============================================================================

// Accounts names the chart codes the fund posts against.
type Accounts struct {
	PettyCashCode string
	PettyCashName string
	BankCode      string
	BankName      string
}

func DefaultAccounts() Accounts {
	return Accounts{
		PettyCashCode: "1010",
		PettyCashName: "Petty Cash",
		BankCode:      "1000",
		BankName:      "Bank",
	}
}

// Movement describes one allocation, expense or replenishment.
type Movement struct {
	UserID      ledger.UserID      `json:"user_id"`
	Amount      decimal.Decimal    `json:"amount"`
	Date        time.Time          `json:"date"`
	Description string             `json:"description"`
	Residence   ledger.ResidenceID `json:"residence,omitempty"`
	CreatedBy   string             `json:"created_by,omitempty"`

	// Expense account; used by RecordExpense only.
	ExpenseCode string `json:"expense_code,omitempty"`
	ExpenseName string `json:"expense_name,omitempty"`
}

// Fund posts balanced petty-cash entries through a Journal. Postings are
// serialized so the funds check and the append cannot interleave.
type Fund struct {
	mu       sync.Mutex
	journal  ledger.Journal
	balances *Ledger
	accounts Accounts
	log      zerolog.Logger
}

func NewFund(journal ledger.Journal, balances *Ledger, accounts Accounts, log zerolog.Logger) *Fund {
	return &Fund{journal: journal, balances: balances, accounts: accounts, log: log}
}

// Allocate moves money from the bank into the user's float.
func (f *Fund) Allocate(ctx context.Context, m Movement) (ledger.TransactionEntry, error) {
	if err := f.validate(m); err != nil {
		return ledger.TransactionEntry{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.post(ctx, m, TypeAllocation, "Petty cash allocation",
		ledger.Debit(f.accounts.PettyCashCode, f.accounts.PettyCashName, ledger.AccountAsset, m.Amount),
		ledger.Credit(f.accounts.BankCode, f.accounts.BankName, ledger.AccountAsset, m.Amount),
	)
}

// Replenish tops the user's float back up from the bank.
func (f *Fund) Replenish(ctx context.Context, m Movement) (ledger.TransactionEntry, error) {
	if err := f.validate(m); err != nil {
		return ledger.TransactionEntry{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.post(ctx, m, TypeReplenishment, "Petty cash replenishment",
		ledger.Debit(f.accounts.PettyCashCode, f.accounts.PettyCashName, ledger.AccountAsset, m.Amount),
		ledger.Credit(f.accounts.BankCode, f.accounts.BankName, ledger.AccountAsset, m.Amount),
	)
}

// RecordExpense spends from the float. Rejected with InsufficientFundsError
// when the amount exceeds the current balance.
func (f *Fund) RecordExpense(ctx context.Context, m Movement) (ledger.TransactionEntry, error) {
	if err := f.validate(m); err != nil {
		return ledger.TransactionEntry{}, err
	}
	if strings.TrimSpace(m.ExpenseCode) == "" {
		return ledger.TransactionEntry{}, &ledger.InputError{Field: "expense_code", Err: ledger.ErrInvalidInput}
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	bal, err := f.balances.GetBalance(ctx, m.UserID)
	if err != nil {
		return ledger.TransactionEntry{}, err
	}
	if m.Amount.GreaterThan(bal.CurrentBalance) {
		f.log.Info().
			Str("user", string(m.UserID)).
			Str("requested", m.Amount.StringFixed(2)).
			Str("available", bal.CurrentBalance.StringFixed(2)).
			Msg("petty cash expense rejected")
		return ledger.TransactionEntry{}, &InsufficientFundsError{
			UserID:    m.UserID,
			Requested: m.Amount,
			Available: bal.CurrentBalance,
		}
	}

	name := m.ExpenseName
	if name == "" {
		name = "Petty Cash Expense"
	}
	return f.post(ctx, m, TypeExpense, "Petty cash expense",
		ledger.Debit(m.ExpenseCode, name, ledger.AccountExpense, m.Amount),
		ledger.Credit(f.accounts.PettyCashCode, f.accounts.PettyCashName, ledger.AccountAsset, m.Amount),
	)
}

func (f *Fund) validate(m Movement) error {
	if err := ledger.ValidateUserID(m.UserID); err != nil {
		return err
	}
	if !m.Amount.IsPositive() {
		return &ledger.InputError{Field: "amount", Value: m.Amount.String(), Err: ledger.ErrInvalidAmount}
	}
	return ledger.ValidateOptionalResidenceID(m.Residence)
}

func (f *Fund) post(ctx context.Context, m Movement, txType, defaultDesc string, lines ...ledger.EntryLine) (ledger.TransactionEntry, error) {
	date := m.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	desc := m.Description
	if desc == "" {
		desc = defaultDesc
	}

	entry, err := f.journal.Post(ctx, ledger.TransactionEntry{
		Date:        date,
		Description: desc,
		Residence:   m.Residence,
		Source:      ledger.SourceManual,
		SourceID:    string(m.UserID),
		Entries:     lines,
		Metadata:    map[string]string{ledger.MetadataTransactionType: txType},
		CreatedBy:   m.CreatedBy,
	})
	if err != nil {
		return ledger.TransactionEntry{}, err
	}

	f.log.Info().
		Str("user", string(m.UserID)).
		Str("type", txType).
		Str("amount", m.Amount.StringFixed(2)).
		Str("entry", string(entry.ID)).
		Msg("petty cash posted")
	return entry, nil
}
