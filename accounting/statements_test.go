package accounting_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/accommodation-ledger/accounting"
	"github.com/warp/accommodation-ledger/ledger"
	"github.com/warp/accommodation-ledger/ledger/store"
)

func TestResidenceStatements_BundlesAllThree(t *testing.T) {
	// GIVEN: A residence year with opening capital, rent and a repair
	// WHEN: Generating the full statements without an as-of date
	// THEN: All three statements are present, the balance sheet is as of
	//       Dec 31 and the summary mirrors their figures

	f := newFixture(t,
		tx(on(2024, time.December, 1), ledger.SourceManual, "Opening capital", bank("100", true), ownerEquity("100")),
		tx(on(2025, time.March, 1), ledger.SourcePayment, "Rent", bank("900", true), rentIncome("900")),
		tx(on(2025, time.March, 9), ledger.SourceExpensePayment, "Roof repair",
			side("5000", "Repairs", ledger.AccountExpense, "150", true), bank("150", false)),
	)

	st, err := f.svc.GenerateResidenceFinancialStatements(context.Background(), 2025, marlboroughID, nil)
	require.NoError(t, err)

	require.NotNil(t, st.IncomeStatement)
	require.NotNil(t, st.CashFlow)
	require.NotNil(t, st.BalanceSheet)
	assert.Equal(t, "2025-12-31", st.AsOf.String())
	assert.Equal(t, "2025-12-31", st.BalanceSheet.AsOf.String())

	sum := st.Summary
	assert.Equal(t, "Marlborough House", sum.ResidenceName)
	assert.Equal(t, "12 Oak Ave", sum.ResidenceAddress)
	assertDec(t, "750", sum.NetIncomeAccrual)
	assertDec(t, "750", sum.AdjustedNetIncome)
	assertDec(t, "750", sum.NetCashChange)
	assertDec(t, "850", sum.ClosingCash)
	assertDec(t, "850", sum.TotalAssets)
	assertDec(t, "850", sum.TotalEquity)
	assert.True(t, sum.IsBalanced)
	assert.True(t, sum.IsReconciled)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), sum.GeneratedAt)
}

func TestResidenceStatements_ExplicitAsOf(t *testing.T) {
	f := newFixture(t,
		tx(on(2025, time.March, 1), ledger.SourcePayment, "Rent", bank("900", true), rentIncome("900")),
		tx(on(2025, time.August, 1), ledger.SourcePayment, "Rent", bank("100", true), rentIncome("100")),
	)
	asOf := ledger.NewTimePoint(2025, time.June, 30)

	st, err := f.svc.GenerateResidenceFinancialStatements(context.Background(), 2025, marlboroughID, &asOf)
	require.NoError(t, err)

	assertDec(t, "900", st.BalanceSheet.Assets.TotalAssets)
	assertDec(t, "1000", st.CashFlow.ClosingBalance)
}

// failingRangeLedger fails period scans and blocks other scans until their
// context is canceled, so the test observes cancellation propagating.
type failingRangeLedger struct {
	ledger.Ledger
	err error
}

func (f failingRangeLedger) FindByDateRange(context.Context, ledger.TimePoint, ledger.TimePoint, ledger.ResidenceID) ([]ledger.TransactionEntry, error) {
	return nil, f.err
}

func (f failingRangeLedger) FindUpTo(ctx context.Context, _ ledger.TimePoint, _ ledger.ResidenceID) ([]ledger.TransactionEntry, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResidenceStatements_FirstFailureCancelsOthers(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.SaveResidence(context.Background(), ledger.Residence{ID: marlboroughID, Name: "Marlborough House"}))
	cause := &ledger.UpstreamError{Op: "find by date range", Err: errors.New("database is locked")}
	svc := accounting.NewService(failingRangeLedger{err: cause}, mem, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := svc.GenerateResidenceFinancialStatements(context.Background(), 2025, marlboroughID, nil)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ledger.ErrUpstream)
		assert.ErrorIs(t, err, cause)
	case <-time.After(2 * time.Second):
		t.Fatal("composite did not return after the first failure")
	}
}
