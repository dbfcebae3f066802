package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/accommodation-ledger/ledger"
	"github.com/warp/accommodation-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const residenceA ledger.ResidenceID = "64b7f0c2a1e4d3b2c1a09f8e"

func rentEntry(id string, date time.Time, residence ledger.ResidenceID) ledger.TransactionEntry {
	return ledger.TransactionEntry{
		ID:          ledger.EntryID(id),
		Date:        date,
		Description: "Rent received",
		Residence:   residence,
		Source:      ledger.SourcePayment,
		Entries: []ledger.EntryLine{
			ledger.Debit("1000", "Bank", ledger.AccountAsset, ledger.MustAmount("500")),
			ledger.Credit("4000", "Rent Income", ledger.AccountIncome, ledger.MustAmount("500")),
		},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seeded(t *testing.T, entries ...ledger.TransactionEntry) (*ledger.DefaultLedger, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	require.NoError(t, mem.AppendBatch(context.Background(), entries))
	return ledger.NewLedger(mem, time.Second), mem
}

// =============================================================================
// SCAN TESTS
// =============================================================================

func TestFindByDateRange_InclusiveByDay(t *testing.T) {
	// GIVEN: Entries on Dec 31 late evening, Jan 1 of the next year, and mid-year
	// WHEN: Scanning the 2025 period
	// THEN: The late Dec 31 entry is inside, the Jan 1 2026 entry is not

	l, _ := seeded(t,
		rentEntry("e1", date(2025, time.June, 1), residenceA),
		rentEntry("e2", time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC), residenceA),
		rentEntry("e3", date(2026, time.January, 1), residenceA),
	)

	p := ledger.Year(2025).Period()
	got, err := l.FindByDateRange(context.Background(), p.Start, p.End, "")
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, ledger.EntryID("e1"), got[0].ID)
	assert.Equal(t, ledger.EntryID("e2"), got[1].ID)
}

func TestFindBefore_ExcludesStartDay(t *testing.T) {
	l, _ := seeded(t,
		rentEntry("e1", date(2024, time.December, 31), residenceA),
		rentEntry("e2", date(2025, time.January, 1), residenceA),
	)

	got, err := l.FindBefore(context.Background(), ledger.StartOfYear(2025), "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ledger.EntryID("e1"), got[0].ID)
}

func TestFindUpTo_FiltersResidence(t *testing.T) {
	other := ledger.ResidenceID("64b7f0c2a1e4d3b2c1a09f8f")
	l, _ := seeded(t,
		rentEntry("e1", date(2025, time.March, 1), residenceA),
		rentEntry("e2", date(2025, time.March, 2), other),
		rentEntry("e3", date(2025, time.March, 3), residenceA),
	)

	got, err := l.FindUpTo(context.Background(), ledger.NewTimePoint(2025, time.March, 2), residenceA)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ledger.EntryID("e1"), got[0].ID)
}

func TestQuery_OrderedByDateThenInsertion(t *testing.T) {
	// GIVEN: Entries appended out of date order, two on the same day
	// WHEN: Querying everything
	// THEN: Sorted by date, same-day entries keep insertion order

	l, _ := seeded(t,
		rentEntry("late", date(2025, time.May, 1), ""),
		rentEntry("same-1", date(2025, time.April, 1), ""),
		rentEntry("early", date(2025, time.January, 1), ""),
		rentEntry("same-2", date(2025, time.April, 1), ""),
	)

	got, err := l.FindBySource(context.Background(), ledger.EntryFilter{})
	require.NoError(t, err)

	ids := make([]ledger.EntryID, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.Equal(t, []ledger.EntryID{"early", "same-1", "same-2", "late"}, ids)
}

func TestFindBySource_MatchesTransactionType(t *testing.T) {
	tagged := rentEntry("tagged", date(2025, time.February, 1), "")
	tagged.Source = ledger.SourceManual
	tagged.SourceID = "user-1"
	tagged.Metadata = map[string]string{ledger.MetadataTransactionType: "petty_cash_expense"}

	untagged := rentEntry("untagged", date(2025, time.February, 1), "")
	untagged.Source = ledger.SourceManual
	untagged.SourceID = "user-1"

	l, _ := seeded(t, tagged, untagged)

	got, err := l.FindBySource(context.Background(), ledger.EntryFilter{
		Source:           ledger.SourceManual,
		SourceID:         "user-1",
		TransactionTypes: []string{"petty_cash_expense"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ledger.EntryID("tagged"), got[0].ID)
}

// =============================================================================
// UPSTREAM FAILURES
// =============================================================================

type failingStore struct {
	ledger.Store
	err error
}

func (f failingStore) Query(context.Context, ledger.EntryFilter) ([]ledger.TransactionEntry, error) {
	return nil, f.err
}

func TestQuery_StoreFailureIsWrappedAsUpstream(t *testing.T) {
	cause := errors.New("connection reset")
	l := ledger.NewLedger(failingStore{err: cause}, time.Second)

	_, err := l.FindUpTo(context.Background(), ledger.Today(), "")

	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.False(t, ledger.IsClientError(err))
	var up *ledger.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, "find up to", up.Op)
}

type slowStore struct{ ledger.Store }

func (slowStore) Query(ctx context.Context, _ ledger.EntryFilter) ([]ledger.TransactionEntry, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestQuery_TimesOutAtStoreBoundary(t *testing.T) {
	l := ledger.NewLedger(slowStore{}, 20*time.Millisecond)

	_, err := l.FindByDateRange(context.Background(), ledger.StartOfYear(2025), ledger.EndOfYear(2025), "")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ledger.ErrUpstream)
}

// =============================================================================
// POSTING
// =============================================================================

func TestPost_AssignsIDAndRejectsUnbalanced(t *testing.T) {
	l, mem := seeded(t)
	ctx := context.Background()

	posted, err := l.Post(ctx, rentEntry("", date(2025, time.March, 1), residenceA))
	require.NoError(t, err)
	assert.NotEmpty(t, posted.ID)
	assert.False(t, posted.CreatedAt.IsZero())

	bad := rentEntry("", date(2025, time.March, 1), residenceA)
	bad.Entries[1].Credit = ledger.MustAmount("499.99")
	_, err = l.Post(ctx, bad)
	assert.ErrorIs(t, err, ledger.ErrUnbalancedEntry)
	assert.True(t, ledger.IsClientError(err))

	assert.Equal(t, 1, mem.Len())
}

func TestPost_DuplicateIDIsConflict(t *testing.T) {
	l, _ := seeded(t, rentEntry("dup", date(2025, time.March, 1), ""))

	_, err := l.Post(context.Background(), rentEntry("dup", date(2025, time.March, 2), ""))

	assert.True(t, ledger.IsConflict(err))
	assert.False(t, errors.Is(err, ledger.ErrUpstream))
}

func TestAppendBatch_AllOrNothing(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Append(ctx, rentEntry("e1", date(2025, time.March, 1), "")))

	err := mem.AppendBatch(ctx, []ledger.TransactionEntry{
		rentEntry("e2", date(2025, time.March, 2), ""),
		rentEntry("e1", date(2025, time.March, 3), ""),
	})

	assert.ErrorIs(t, err, ledger.ErrDuplicateEntry)
	assert.Equal(t, 1, mem.Len())
}
