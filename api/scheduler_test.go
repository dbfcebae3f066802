package api

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/accommodation-ledger/accounting"
	"github.com/warp/accommodation-ledger/ledger"
	"github.com/warp/accommodation-ledger/ledger/store"
)

// stubReconciler returns canned outcomes per residence and counts calls.
type stubReconciler struct {
	calls   atomic.Int32
	results map[ledger.ResidenceID]*accounting.ReconciliationResult
	errs    map[ledger.ResidenceID]error
}

func (s *stubReconciler) ValidateCashFlowReconciliation(_ context.Context, year ledger.Year, residence ledger.ResidenceID) (*accounting.ReconciliationResult, error) {
	s.calls.Add(1)
	if err := s.errs[residence]; err != nil {
		return nil, err
	}
	if r, ok := s.results[residence]; ok {
		return r, nil
	}
	return &accounting.ReconciliationResult{Period: year, Residence: residence, IsReconciled: true}, nil
}

const (
	resOK       ledger.ResidenceID = "64b7f0c2a1e4d3b2c1a09f01"
	resMismatch ledger.ResidenceID = "64b7f0c2a1e4d3b2c1a09f02"
	resFailing  ledger.ResidenceID = "64b7f0c2a1e4d3b2c1a09f03"
)

func newTestScheduler(t *testing.T) (*ReconciliationScheduler, *stubReconciler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()
	for _, id := range []ledger.ResidenceID{resOK, resMismatch, resFailing} {
		require.NoError(t, mem.SaveResidence(ctx, ledger.Residence{ID: id, Name: string(id)}))
	}
	stub := &stubReconciler{
		results: map[ledger.ResidenceID]*accounting.ReconciliationResult{
			resMismatch: {Difference: ledger.MustAmount("12.5"), IsReconciled: false},
		},
		errs: map[ledger.ResidenceID]error{
			resFailing: ledger.Upstream("find up to", errors.New("timeout")),
		},
	}
	rs := NewReconciliationScheduler(stub, mem, mem, zerolog.Nop())
	rs.now = func() time.Time { return fixedNow }
	return rs, stub, mem
}

func TestRunNow_RecordsOneRunPerResidence(t *testing.T) {
	// GIVEN: Three residences: one reconciles, one mismatches, one fails
	// WHEN: Running the check
	// THEN: Three runs are recorded with matching statuses

	rs, _, mem := newTestScheduler(t)
	ctx := context.Background()

	runs, err := rs.RunNow(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	byResidence := map[ledger.ResidenceID]ledger.ReconciliationRun{}
	for _, r := range runs {
		byResidence[r.Residence] = r
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, ledger.Year(2025), r.Period)
	}
	assert.Equal(t, ledger.RunReconciled, byResidence[resOK].Status)
	assert.True(t, byResidence[resOK].IsReconciled)

	assert.Equal(t, ledger.RunMismatch, byResidence[resMismatch].Status)
	assert.True(t, byResidence[resMismatch].Difference.Equal(ledger.MustAmount("12.5")))

	assert.Equal(t, ledger.RunFailed, byResidence[resFailing].Status)
	assert.Contains(t, byResidence[resFailing].Error, "timeout")

	stored, err := mem.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	assert.Equal(t, 0, mem.Len(), "runs never write journal entries")
}

func TestRunNow_NoResidencesChecksWholeLedger(t *testing.T) {
	mem := store.NewMemory()
	stub := &stubReconciler{}
	rs := NewReconciliationScheduler(stub, mem, mem, zerolog.Nop())

	runs, err := rs.RunNow(context.Background(), 2025)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ledger.ResidenceID(""), runs[0].Residence)
}

func TestRunNow_InvalidYear(t *testing.T) {
	rs, stub, _ := newTestScheduler(t)
	_, err := rs.RunNow(context.Background(), 25)
	assert.ErrorIs(t, err, ledger.ErrInvalidPeriod)
	assert.Zero(t, stub.calls.Load())
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	rs, stub, mem := newTestScheduler(t)
	rs.CheckInterval = time.Hour

	rs.Start()
	rs.Start() // no-op while running
	require.Eventually(t, func() bool { return stub.calls.Load() >= 3 }, time.Second, 10*time.Millisecond)
	rs.Stop()
	rs.Stop() // no-op when stopped

	runs, err := mem.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestScheduler_Disabled(t *testing.T) {
	rs, stub, _ := newTestScheduler(t)
	rs.Enabled = false

	rs.Start()
	time.Sleep(20 * time.Millisecond)
	rs.Stop()

	assert.Zero(t, stub.calls.Load())
}
