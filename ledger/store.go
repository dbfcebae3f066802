/*
store.go - Persistence interfaces for the journal-entry log

PURPOSE:
  Defines the boundary between the accounting engine and whatever holds the
  entries. The engine only reads; the petty-cash fund and the API write path
  append. There is no Update and no Delete.

KEY INTERFACES:
  Store:              Append-only entry log with filtered queries
  ResidenceDirectory: Residence lookup used for validation and labels
  RunLog:             Reconciliation run history written by the scheduler

ORDERING:
  Query results are ordered by entry date, then by insertion order.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory for tests and demos
  - store/sqlite/sqlite.go: Persistent SQLite store

SEE ALSO:
  - ledger.go: Read façade with per-query timeouts
*/
package ledger

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Append-only entry log
// =============================================================================

// Store persists transaction entries.
// IMPORTANT: Store is APPEND-ONLY. Corrections are new reversing entries.
type Store interface {
	// Append persists one entry. Returns ErrDuplicateEntry if the id exists.
	Append(ctx context.Context, entry TransactionEntry) error

	// AppendBatch persists entries atomically. Either all succeed or none do.
	AppendBatch(ctx context.Context, entries []TransactionEntry) error

	// Query returns entries matching filter, ordered by date then insertion.
	Query(ctx context.Context, filter EntryFilter) ([]TransactionEntry, error)
}

// EntryFilter selects entries. Zero-valued fields do not constrain.
type EntryFilter struct {
	From      *TimePoint // inclusive, by day
	To        *TimePoint // inclusive, by day
	Before    *TimePoint // exclusive, by day
	Residence ResidenceID
	Source    Source
	SourceID  string

	// TransactionTypes matches Metadata["transactionType"].
	TransactionTypes []string
}

// Matches reports whether entry satisfies every set constraint.
func (f EntryFilter) Matches(entry TransactionEntry) bool {
	day := entry.Day()
	if f.From != nil && day.Before(*f.From) {
		return false
	}
	if f.To != nil && day.After(*f.To) {
		return false
	}
	if f.Before != nil && !day.Before(*f.Before) {
		return false
	}
	if f.Residence != "" && entry.Residence != f.Residence {
		return false
	}
	if f.Source != "" && entry.Source != f.Source {
		return false
	}
	if f.SourceID != "" && entry.SourceID != f.SourceID {
		return false
	}
	if len(f.TransactionTypes) > 0 && !slices.Contains(f.TransactionTypes, entry.TransactionType()) {
		return false
	}
	return true
}

// =============================================================================
// RESIDENCE DIRECTORY
// =============================================================================

// ResidenceDirectory resolves residence ids to their labels.
type ResidenceDirectory interface {
	// FindResidence returns ErrResidenceNotFound for an unknown id.
	FindResidence(ctx context.Context, id ResidenceID) (*Residence, error)
	SaveResidence(ctx context.Context, r Residence) error
	ListResidences(ctx context.Context) ([]Residence, error)
}

// =============================================================================
// RECONCILIATION RUNS - Scheduler history
// =============================================================================

type RunStatus string

const (
	RunReconciled RunStatus = "reconciled"
	RunMismatch   RunStatus = "mismatch"
	RunFailed     RunStatus = "failed"
)

// ReconciliationRun records one scheduled reconciliation check.
type ReconciliationRun struct {
	ID           string          `json:"id"`
	Residence    ResidenceID     `json:"residence"`
	Period       Year            `json:"period"`
	Status       RunStatus       `json:"status"`
	Difference   decimal.Decimal `json:"difference"`
	IsReconciled bool            `json:"is_reconciled"`
	Error        string          `json:"error,omitempty"`
	RanAt        time.Time       `json:"ran_at"`
}

// RunLog stores reconciliation runs. Append-only.
type RunLog interface {
	RecordRun(ctx context.Context, run ReconciliationRun) error
	// ListRuns returns the most recent runs first, at most limit (0 = all).
	ListRuns(ctx context.Context, limit int) ([]ReconciliationRun, error)
}
