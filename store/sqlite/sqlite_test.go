package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/accommodation-ledger/ledger"
	"github.com/warp/accommodation-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const residenceA ledger.ResidenceID = "64b7f0c2a1e4d3b2c1a09f8e"

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(id string, date time.Time, amount string) ledger.TransactionEntry {
	return ledger.TransactionEntry{
		ID:          ledger.EntryID(id),
		Date:        date,
		Description: "Rent received",
		Residence:   residenceA,
		Source:      ledger.SourcePayment,
		Entries: []ledger.EntryLine{
			ledger.Debit("1000", "Bank", ledger.AccountAsset, ledger.MustAmount(amount)),
			ledger.Credit("4000", "Rent Income", ledger.AccountIncome, ledger.MustAmount(amount)),
		},
	}
}

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// ENTRY TESTS
// =============================================================================

func TestAppendAndQuery_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := entry("e1", time.Date(2025, time.March, 1, 14, 30, 0, 0, time.UTC), "1234.5678")
	e.TransactionID = "TXN-1"
	e.SourceID = "pay-1"
	e.CreatedBy = "admin@example.com"
	e.Metadata = map[string]string{ledger.MetadataTransactionType: "petty_cash_allocation"}
	e.Entries[0].Description = "March rent"
	require.NoError(t, s.Append(ctx, e))

	got, err := s.Query(ctx, ledger.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[0]
	assert.Equal(t, e.ID, r.ID)
	assert.Equal(t, "TXN-1", r.TransactionID)
	assert.True(t, e.Date.Equal(r.Date))
	assert.Equal(t, residenceA, r.Residence)
	assert.Equal(t, ledger.SourcePayment, r.Source)
	assert.Equal(t, "pay-1", r.SourceID)
	assert.Equal(t, "admin@example.com", r.CreatedBy)
	assert.Equal(t, "petty_cash_allocation", r.TransactionType())
	require.Len(t, r.Entries, 2)
	assert.True(t, r.Entries[0].Debit.Equal(ledger.MustAmount("1234.5678")))
	assert.Equal(t, "March rent", r.Entries[0].Description)
	assert.Equal(t, "4000", r.Entries[1].AccountCode)
	assert.True(t, r.IsBalanced())
}

func TestQuery_OrderedByDateThenInsertion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, entry("late", day(time.May, 1), "10")))
	require.NoError(t, s.Append(ctx, entry("tie-1", day(time.April, 1), "10")))
	require.NoError(t, s.Append(ctx, entry("tie-2", day(time.April, 1), "10")))
	require.NoError(t, s.Append(ctx, entry("early", day(time.January, 1), "10")))

	got, err := s.Query(ctx, ledger.EntryFilter{})
	require.NoError(t, err)

	var ids []ledger.EntryID
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []ledger.EntryID{"early", "tie-1", "tie-2", "late"}, ids)
}

func TestQuery_FiltersMatchMemorySemantics(t *testing.T) {
	// GIVEN: Entries across days, residences and sources
	// WHEN: Querying with each filter field
	// THEN: The same rows as EntryFilter.Matches would select

	s := newTestStore(t)
	ctx := context.Background()

	other := entry("other-res", day(time.March, 10), "10")
	other.Residence = "64b7f0c2a1e4d3b2c1a09f8f"
	petty := entry("petty", day(time.March, 15), "10")
	petty.Source = ledger.SourceManual
	petty.SourceID = "user-1"
	petty.Metadata = map[string]string{ledger.MetadataTransactionType: "petty_cash_expense"}

	all := []ledger.TransactionEntry{
		entry("jan", day(time.January, 31), "10"),
		other,
		petty,
		entry("late-dec", time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC), "10"),
	}
	require.NoError(t, s.AppendBatch(ctx, all))

	from := ledger.NewTimePoint(2025, time.March, 1)
	to := ledger.NewTimePoint(2025, time.December, 31)
	filters := map[string]ledger.EntryFilter{
		"range":     {From: &from, To: &to},
		"before":    {Before: &from},
		"residence": {Residence: residenceA},
		"source":    {Source: ledger.SourceManual, SourceID: "user-1"},
		"types":     {TransactionTypes: []string{"petty_cash_expense", "petty_cash_allocation"}},
	}

	for name, f := range filters {
		t.Run(name, func(t *testing.T) {
			got, err := s.Query(ctx, f)
			require.NoError(t, err)

			var want []ledger.EntryID
			for _, e := range all {
				if f.Matches(e) {
					want = append(want, e.ID)
				}
			}
			var ids []ledger.EntryID
			for _, e := range got {
				ids = append(ids, e.ID)
				assert.Len(t, e.Entries, 2)
			}
			assert.Equal(t, want, ids)
		})
	}
}

func TestAppend_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, entry("e1", day(time.March, 1), "10")))
	err := s.Append(ctx, entry("e1", day(time.March, 2), "20"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateEntry)
}

func TestAppendBatch_AllOrNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, entry("existing", day(time.March, 1), "10")))

	err := s.AppendBatch(ctx, []ledger.TransactionEntry{
		entry("new-1", day(time.March, 2), "10"),
		entry("existing", day(time.March, 3), "10"),
	})
	require.ErrorIs(t, err, ledger.ErrDuplicateEntry)

	got, err := s.Query(ctx, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, entry("e1", day(time.March, 1), "99.99")))
	require.NoError(t, s.Close())

	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Query(ctx, ledger.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Entries[0].Debit.Equal(ledger.MustAmount("99.99")))
}

func TestWorksUnderLedger(t *testing.T) {
	s := newTestStore(t)
	l := ledger.NewLedger(s, time.Second)
	ctx := context.Background()

	posted, err := l.Post(ctx, entry("", day(time.June, 1), "500"))
	require.NoError(t, err)
	assert.NotEmpty(t, posted.ID)

	got, err := l.FindUpTo(ctx, ledger.NewTimePoint(2025, time.June, 1), residenceA)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, posted.ID, got[0].ID)
}

// =============================================================================
// RESIDENCE AND RUN TESTS
// =============================================================================

func TestResidences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.FindResidence(ctx, residenceA)
	assert.ErrorIs(t, err, ledger.ErrResidenceNotFound)

	require.NoError(t, s.SaveResidence(ctx, ledger.Residence{ID: residenceA, Name: "Old Name"}))
	require.NoError(t, s.SaveResidence(ctx, ledger.Residence{ID: "64b7f0c2a1e4d3b2c1a09f8f", Name: "Second"}))
	require.NoError(t, s.SaveResidence(ctx, ledger.Residence{ID: residenceA, Name: "Belvedere House", Address: "12 Main Rd"}))

	r, err := s.FindResidence(ctx, residenceA)
	require.NoError(t, err)
	assert.Equal(t, "Belvedere House", r.Name)
	assert.Equal(t, "12 Main Rd", r.Address)

	list, err := s.ListResidences(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, residenceA, list[0].ID)
}

func TestRunLog_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i, status := range []ledger.RunStatus{ledger.RunReconciled, ledger.RunMismatch, ledger.RunFailed} {
		require.NoError(t, s.RecordRun(ctx, ledger.ReconciliationRun{
			ID:           string(rune('a' + i)),
			Residence:    residenceA,
			Period:       2025,
			Status:       status,
			Difference:   ledger.MustAmount("0.5"),
			IsReconciled: status == ledger.RunReconciled,
			RanAt:        base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, ledger.RunFailed, runs[0].Status)
	assert.Equal(t, "b", runs[1].ID)
	assert.Equal(t, ledger.Year(2025), runs[1].Period)
	assert.True(t, runs[1].Difference.Equal(ledger.MustAmount("0.5")))

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.True(t, all[2].IsReconciled)
}

func TestCorruptTimestampsAreReported(t *testing.T) {
	// GIVEN: A stored entry and run whose timestamps were overwritten
	//        outside the store
	// WHEN: Reading them back
	// THEN: Both reads fail instead of returning zero times

	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, entry("e1", day(time.March, 1), "10")))
	require.NoError(t, s.RecordRun(ctx, ledger.ReconciliationRun{
		ID: "run-1", Period: 2025, Status: ledger.RunReconciled,
		Difference: ledger.MustAmount("0"), RanAt: day(time.March, 2),
	}))
	require.NoError(t, s.Close())

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`UPDATE transaction_entries SET created_at = 'yesterday'`)
	require.NoError(t, err)
	_, err = raw.Exec(`UPDATE reconciliation_runs SET ran_at = 'noon'`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Query(ctx, ledger.EntryFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "created_at")

	_, err = s.ListRuns(ctx, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ran_at")
}
