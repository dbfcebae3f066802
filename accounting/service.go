/*
Package accounting builds financial statements from the journal-entry log.

PURPOSE:
  The Service answers the finance desk's questions for a residence and year:
  what was earned vs received (accrual income statement), where cash came
  from and went (cash flow), what cash is held against what is owed
  (cash-basis balance sheet), and whether those two views of cash agree
  (reconciliation).

KEY CONCEPTS:
  - Every statement is a fresh value built from a fresh scan. Nothing is
    cached and builders never share intermediate results, so the
    reconciliation check compares figures reached by different paths.
  - Integrity findings (is_balanced, is_reconciled) are reported in the
    result, never returned as errors.
  - Input is validated before any I/O. Store failures propagate unchanged.

SEE ALSO:
  - classifier.go: Shared account classification
  - statements.go: Concurrent composite of all three statements
*/
package accounting

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/ledger"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service generates statements. Collaborators are injected; the zero
// Classifier and Now fall back to HeuristicClassifier and time.Now.
type Service struct {
	Ledger     ledger.Ledger
	Residences ledger.ResidenceDirectory
	Classifier Classifier
	Log        zerolog.Logger
	Now        func() time.Time
}

func NewService(l ledger.Ledger, residences ledger.ResidenceDirectory, log zerolog.Logger) *Service {
	return &Service{
		Ledger:     l,
		Residences: residences,
		Classifier: HeuristicClassifier{},
		Log:        log,
		Now:        time.Now,
	}
}

func (s *Service) classify(line ledger.EntryLine) Classification {
	if s.Classifier == nil {
		return HeuristicClassifier{}.Classify(line)
	}
	return s.Classifier.Classify(line)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// =============================================================================
// VALIDATION
// =============================================================================

// checkResidence validates an optional residence filter and, when set,
// confirms the residence exists.
func (s *Service) checkResidence(ctx context.Context, id ledger.ResidenceID) (*ledger.Residence, error) {
	if id == "" {
		return nil, nil
	}
	if err := ledger.ValidateResidenceID(id); err != nil {
		return nil, err
	}
	return s.lookupResidence(ctx, id)
}

func (s *Service) lookupResidence(ctx context.Context, id ledger.ResidenceID) (*ledger.Residence, error) {
	if s.Residences == nil {
		return &ledger.Residence{ID: id}, nil
	}
	r, err := s.Residences.FindResidence(ctx, id)
	if err != nil {
		return nil, ledger.Upstream("find residence", err)
	}
	return r, nil
}

// =============================================================================
// SHARED OUTPUT TYPES
// =============================================================================

// Diagnostics describes the scan behind a statement without changing figures.
type Diagnostics struct {
	EntriesScanned    int `json:"entries_scanned"`
	LinesScanned      int `json:"lines_scanned"`
	DefaultedLines    int `json:"defaulted_lines"`
	InternalTransfers int `json:"internal_transfers,omitempty"`
}

// CashBreakdown splits cash and cash equivalents by subtype.
type CashBreakdown struct {
	CashOnHand        decimal.Decimal `json:"cash_on_hand"`
	CashAtBank        decimal.Decimal `json:"cash_at_bank"`
	ShortTermDeposits decimal.Decimal `json:"short_term_deposits"`
	MobileWallets     decimal.Decimal `json:"mobile_wallets"`
	PettyCash         decimal.Decimal `json:"petty_cash"`
	Total             decimal.Decimal `json:"total"`
}

func newCashBreakdown(bySubtype map[Subtype]decimal.Decimal) CashBreakdown {
	b := CashBreakdown{
		CashOnHand:        bySubtype[SubtypeCashOnHand],
		CashAtBank:        bySubtype[SubtypeCashAtBank],
		ShortTermDeposits: bySubtype[SubtypeShortTermDeposits],
		MobileWallets:     bySubtype[SubtypeMobileWallets],
		PettyCash:         bySubtype[SubtypePettyCash],
	}
	b.Total = b.CashOnHand.Add(b.CashAtBank).Add(b.ShortTermDeposits).Add(b.MobileWallets).Add(b.PettyCash)
	return b
}

// sumCash folds cash lines into per-subtype net debit balances.
func (s *Service) sumCash(entries []ledger.TransactionEntry, diag *Diagnostics) map[Subtype]decimal.Decimal {
	bySubtype := make(map[Subtype]decimal.Decimal, len(CashSubtypes))
	for _, sub := range CashSubtypes {
		bySubtype[sub] = decimal.Zero
	}
	for _, e := range entries {
		for _, line := range e.Entries {
			c := s.classify(line)
			if !c.Cash {
				continue
			}
			if diag != nil && c.Defaulted {
				diag.DefaultedLines++
			}
			bySubtype[c.Subtype] = bySubtype[c.Subtype].Add(line.NetDebit())
		}
	}
	return bySubtype
}

func countLines(entries []ledger.TransactionEntry) int {
	n := 0
	for _, e := range entries {
		n += len(e.Entries)
	}
	return n
}
