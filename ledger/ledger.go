/*
ledger.go - Read façade over the append-only entry log

PURPOSE:
  Statement builders never talk to a Store directly. They use Ledger, which
  expresses the handful of scans the statements need and applies a per-query
  timeout at the store boundary. Every builder re-reads from scratch; nothing
  is cached between calls.

SCANS:
  FindByDateRange:  start <= date <= end        (period activity)
  FindBefore:       date < date                 (opening balances)
  FindUpTo:         date <= asOf                (point-in-time balances)
  FindBySource:     arbitrary EntryFilter       (petty cash)

WRITES:
  Post validates an entry (balanced, dated, non-negative), stamps id and
  CreatedAt, and appends it. The read path never validates.

SEE ALSO:
  - store.go: Store interface
  - accounting/service.go: Primary consumer
*/
package ledger

import (
	"context"
	"time"
)

// DefaultQueryTimeout bounds a single store scan.
const DefaultQueryTimeout = 10 * time.Second

// =============================================================================
// LEDGER - Read-side interface
// =============================================================================

// Ledger is the query interface the accounting engine consumes.
type Ledger interface {
	FindByDateRange(ctx context.Context, start, end TimePoint, residence ResidenceID) ([]TransactionEntry, error)
	FindBefore(ctx context.Context, date TimePoint, residence ResidenceID) ([]TransactionEntry, error)
	FindUpTo(ctx context.Context, asOf TimePoint, residence ResidenceID) ([]TransactionEntry, error)
	FindBySource(ctx context.Context, filter EntryFilter) ([]TransactionEntry, error)
}

// Journal is the write-side interface used by the petty-cash fund and the API.
type Journal interface {
	Post(ctx context.Context, entry TransactionEntry) (TransactionEntry, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store        Store
	QueryTimeout time.Duration
	now          func() time.Time
}

func NewLedger(store Store, queryTimeout time.Duration) *DefaultLedger {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &DefaultLedger{Store: store, QueryTimeout: queryTimeout, now: time.Now}
}

func (l *DefaultLedger) FindByDateRange(ctx context.Context, start, end TimePoint, residence ResidenceID) ([]TransactionEntry, error) {
	return l.query(ctx, "find by date range", EntryFilter{From: &start, To: &end, Residence: residence})
}

func (l *DefaultLedger) FindBefore(ctx context.Context, date TimePoint, residence ResidenceID) ([]TransactionEntry, error) {
	return l.query(ctx, "find before", EntryFilter{Before: &date, Residence: residence})
}

func (l *DefaultLedger) FindUpTo(ctx context.Context, asOf TimePoint, residence ResidenceID) ([]TransactionEntry, error) {
	return l.query(ctx, "find up to", EntryFilter{To: &asOf, Residence: residence})
}

func (l *DefaultLedger) FindBySource(ctx context.Context, filter EntryFilter) ([]TransactionEntry, error) {
	return l.query(ctx, "find by source", filter)
}

func (l *DefaultLedger) query(ctx context.Context, op string, filter EntryFilter) ([]TransactionEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, l.QueryTimeout)
	defer cancel()

	entries, err := l.Store.Query(ctx, filter)
	if err != nil {
		return nil, Upstream(op, err)
	}
	return entries, nil
}

// Post validates and appends a new entry, returning it as stored.
func (l *DefaultLedger) Post(ctx context.Context, entry TransactionEntry) (TransactionEntry, error) {
	if err := entry.ValidateForPosting(); err != nil {
		return TransactionEntry{}, err
	}
	if entry.ID == "" {
		entry.ID = NewEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, l.QueryTimeout)
	defer cancel()

	if err := l.Store.Append(ctx, entry); err != nil {
		return TransactionEntry{}, Upstream("append entry", err)
	}
	return entry, nil
}
