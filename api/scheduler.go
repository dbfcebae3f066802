/*
scheduler.go - Automated reconciliation scheduler

PURPOSE:
  Periodically checks that every residence's cash flow statement agrees with
  its balance sheet for the current year, and records the outcome.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs one check immediately on start
  - Checks each registered residence; with none registered, checks the
    whole ledger once
  - Records one ReconciliationRun per check for audit and UI display
  - Never writes to the journal: a mismatch is recorded, not corrected

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewReconciliationScheduler(service, residences, runs, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: ProcessReconciliation endpoint (manual trigger)
  - accounting/reconcile.go: ValidateCashFlowReconciliation
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/accounting"
	"github.com/warp/accommodation-ledger/ledger"
)

// Reconciler is the check the scheduler runs.
type Reconciler interface {
	ValidateCashFlowReconciliation(ctx context.Context, year ledger.Year, residence ledger.ResidenceID) (*accounting.ReconciliationResult, error)
}

// ReconciliationScheduler handles automated reconciliation checks.
type ReconciliationScheduler struct {
	Reconciler    Reconciler
	Residences    ledger.ResidenceDirectory
	Runs          ledger.RunLog
	CheckInterval time.Duration
	Enabled       bool
	Log           zerolog.Logger

	now    func() time.Time
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReconciliationScheduler creates a new scheduler.
func NewReconciliationScheduler(r Reconciler, residences ledger.ResidenceDirectory, runs ledger.RunLog, log zerolog.Logger) *ReconciliationScheduler {
	return &ReconciliationScheduler{
		Reconciler:    r,
		Residences:    residences,
		Runs:          runs,
		CheckInterval: time.Hour,
		Enabled:       true,
		Log:           log.With().Str("component", "scheduler").Logger(),
		now:           time.Now,
	}
}

// Start begins the scheduler. Calling Start on a running scheduler is a no-op.
func (rs *ReconciliationScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Log.Info().Msg("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.Log.Info().Dur("interval", rs.CheckInterval).Msg("started")
}

// Stop stops the scheduler and waits for an in-flight check to finish.
func (rs *ReconciliationScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	close(rs.stop)
	rs.wg.Wait()
	rs.ticker = nil
	rs.Log.Info().Msg("stopped")
}

func (rs *ReconciliationScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	// Run immediately on start
	rs.checkAndProcess(ctx)

	for {
		select {
		case <-ticker.C:
			rs.checkAndProcess(ctx)
		case <-stop:
			return
		}
	}
}

func (rs *ReconciliationScheduler) checkAndProcess(ctx context.Context) {
	year := ledger.Year(rs.now().Year())
	if _, err := rs.RunNow(ctx, year); err != nil {
		rs.Log.Error().Err(err).Int("period", int(year)).Msg("reconciliation check failed")
	}
}

// RunNow reconciles every residence for year and records the runs. A failed
// check is recorded with status failed; only a failure to list residences
// or to record a run is returned.
func (rs *ReconciliationScheduler) RunNow(ctx context.Context, year ledger.Year) ([]ledger.ReconciliationRun, error) {
	if err := year.Validate(); err != nil {
		return nil, err
	}

	residences, err := rs.Residences.ListResidences(ctx)
	if err != nil {
		return nil, ledger.Upstream("list residences", err)
	}
	ids := make([]ledger.ResidenceID, 0, len(residences))
	for _, r := range residences {
		ids = append(ids, r.ID)
	}
	if len(ids) == 0 {
		ids = append(ids, "")
	}

	runs := make([]ledger.ReconciliationRun, 0, len(ids))
	mismatches := 0
	for _, id := range ids {
		run := rs.check(ctx, year, id)
		if err := rs.Runs.RecordRun(ctx, run); err != nil {
			return runs, ledger.Upstream("record run", err)
		}
		if run.Status != ledger.RunReconciled {
			mismatches++
		}
		runs = append(runs, run)
	}

	rs.Log.Info().
		Int("period", int(year)).
		Int("checked", len(runs)).
		Int("not_reconciled", mismatches).
		Msg("reconciliation check complete")
	return runs, nil
}

func (rs *ReconciliationScheduler) check(ctx context.Context, year ledger.Year, residence ledger.ResidenceID) ledger.ReconciliationRun {
	run := ledger.ReconciliationRun{
		ID:         uuid.NewString(),
		Residence:  residence,
		Period:     year,
		Difference: decimal.Zero,
		RanAt:      rs.now().UTC(),
	}

	result, err := rs.Reconciler.ValidateCashFlowReconciliation(ctx, year, residence)
	switch {
	case err != nil:
		run.Status = ledger.RunFailed
		run.Error = err.Error()
	case result.IsReconciled:
		run.Status = ledger.RunReconciled
		run.Difference = result.Difference
		run.IsReconciled = true
	default:
		run.Status = ledger.RunMismatch
		run.Difference = result.Difference
	}
	return run
}
