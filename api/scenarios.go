/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built residence years that populate the ledger with
  realistic journal entries. Each scenario demonstrates one statement
  behavior (earned vs received, accrued wages, opening balances, ...).

AVAILABLE SCENARIOS:
  rent-received:   Rent earned and received in the same period
  rent-accrued:    Rent earned but still receivable
  tenant-payment:  A bank receipt described as rent
  accrued-wages:   Wages incurred but unpaid at period end
  opening-balance: Prior-year cash carried into the period
  full-year:       A year of rent, wages, petty cash, a loan and furniture

HOW SCENARIOS WORK:
  1. Register a new residence (fresh UUID, so loads never collide)
  2. Build the scenario's entries for the requested year
  3. Validate every entry as if it were posted
  4. Append them in one atomic batch

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "full-year", "period": "2025"}

USAGE VIA CLI:
  ledger seed --scenario full-year --period 2025

NOTE:
  The ledger is append-only, so loading a scenario never clears existing
  data. Each load is a new residence.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - cmd/server/main.go: seed command
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/ledger"
	"github.com/warp/accommodation-ledger/pettycash"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	build func(b *entryBuilder)
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "rent-received",
			Name:        "Rent Received",
			Description: "Rent of 500 earned and received in the period",
		},
		build: func(b *entryBuilder) {
			b.add(b.day(time.March, 1), "March rent", ledger.SourcePayment,
				ledger.Debit("1000", "Bank", ledger.AccountAsset, amount("500")),
				ledger.Credit("4000", "Rent Income", ledger.AccountIncome, amount("500")),
			)
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "rent-accrued",
			Name:        "Rent Accrued",
			Description: "Rent of 500 earned by manual journal, not yet received",
		},
		build: func(b *entryBuilder) {
			b.add(b.day(time.March, 31), "March rent accrual", ledger.SourceManual,
				ledger.Debit("1100", "Accounts Receivable", ledger.AccountAsset, amount("500")),
				ledger.Credit("4000", "Rent Income", ledger.AccountIncome, amount("500")),
			)
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "tenant-payment",
			Name:        "Tenant Payment",
			Description: "A 1000 bank receipt described as rent",
		},
		build: func(b *entryBuilder) {
			b.add(b.day(time.April, 2), "Rent payment room 12", ledger.SourcePayment,
				ledger.Debit("1000", "Bank", ledger.AccountAsset, amount("1000")),
				ledger.Credit("4000", "Rent Income", ledger.AccountIncome, amount("1000")),
			)
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "accrued-wages",
			Name:        "Accrued Wages",
			Description: "Staff wages of 200 incurred but unpaid at period end",
		},
		build: func(b *entryBuilder) {
			b.add(b.day(time.December, 31), "December wages accrual", ledger.SourceExpenseAccrual,
				ledger.Debit("5000", "Salaries and Wages", ledger.AccountExpense, amount("200")),
				ledger.Credit("2000", "Accrued Wages", ledger.AccountLiability, amount("200")),
			)
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "opening-balance",
			Name:        "Opening Balance",
			Description: "100 of prior-year cash plus 50 of rent received in the period",
		},
		build: func(b *entryBuilder) {
			b.add(b.priorDay(time.December, 1), "Opening capital", ledger.SourceManual,
				ledger.Debit("1000", "Bank", ledger.AccountAsset, amount("100")),
				ledger.Credit("3000", "Owner's Capital", ledger.AccountEquity, amount("100")),
			)
			b.add(b.day(time.June, 1), "Rent received", ledger.SourcePayment,
				ledger.Debit("1000", "Bank", ledger.AccountAsset, amount("50")),
				ledger.Credit("4000", "Rent Income", ledger.AccountIncome, amount("50")),
			)
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "full-year",
			Name:        "Full Residence Year",
			Description: "Monthly rent and wages, admin fees, utilities, petty cash, a loan and a furniture purchase",
		},
		build: buildFullYear,
	},
}

func buildFullYear(b *entryBuilder) {
	b.add(b.priorDay(time.December, 15), "Owner capital contribution", ledger.SourceManual,
		ledger.Debit("1000", "Bank", ledger.AccountAsset, amount("5000")),
		ledger.Credit("3000", "Owner's Capital", ledger.AccountEquity, amount("5000")),
	)
	b.add(b.day(time.January, 5), "Loan received from bank", ledger.SourceManual,
		ledger.Debit("1000", "Bank", ledger.AccountAsset, amount("10000")),
		ledger.Credit("2500", "Bank Loan Payable", ledger.AccountLiability, amount("10000")),
	)
	b.add(b.day(time.January, 10), "Purchase of furniture for common room", ledger.SourceExpensePayment,
		ledger.Debit("1500", "Furniture and Equipment", ledger.AccountAsset, amount("2400")),
		ledger.Credit("1000", "Bank", ledger.AccountAsset, amount("2400")),
	)
	b.addTagged(b.day(time.January, 12), "Petty cash float", pettycash.TypeAllocation,
		ledger.Debit("1010", "Petty Cash", ledger.AccountAsset, amount("300")),
		ledger.Credit("1000", "Bank", ledger.AccountAsset, amount("300")),
	)

	for m := time.January; m <= time.December; m++ {
		b.add(b.day(m, 1), fmt.Sprintf("%s rent", m), ledger.SourcePayment,
			ledger.Debit("1000", "Bank", ledger.AccountAsset, amount("4800")),
			ledger.Credit("4000", "Rent Income", ledger.AccountIncome, amount("4800")),
		)
		b.add(b.day(m, 3), fmt.Sprintf("%s admin fee", m), ledger.SourcePayment,
			ledger.Debit("1000", "Bank", ledger.AccountAsset, amount("150")),
			ledger.Credit("4100", "Admin Fee Income", ledger.AccountIncome, amount("150")),
		)
		b.add(b.day(m, 20), fmt.Sprintf("%s electricity bill", m), ledger.SourceExpensePayment,
			ledger.Debit("5100", "Utilities - Electricity", ledger.AccountExpense, amount("620.50")),
			ledger.Credit("1000", "Bank", ledger.AccountAsset, amount("620.50")),
		)
		b.add(b.day(m, 28), fmt.Sprintf("%s staff salaries", m), ledger.SourceExpensePayment,
			ledger.Debit("5000", "Salaries and Wages", ledger.AccountExpense, amount("1800")),
			ledger.Credit("1000", "Bank", ledger.AccountAsset, amount("1800")),
		)
		if m%3 == 0 {
			b.add(b.day(m, 15), fmt.Sprintf("Loan repayment Q%d", m/3), ledger.SourceExpensePayment,
				ledger.Debit("2500", "Bank Loan Payable", ledger.AccountLiability, amount("750")),
				ledger.Credit("1000", "Bank", ledger.AccountAsset, amount("750")),
			)
		}
	}

	b.addTagged(b.day(time.May, 8), "Light bulbs and cleaning supplies", pettycash.TypeExpense,
		ledger.Debit("5200", "Maintenance and Repairs", ledger.AccountExpense, amount("85.40")),
		ledger.Credit("1010", "Petty Cash", ledger.AccountAsset, amount("85.40")),
	)
	b.addTagged(b.day(time.May, 9), "Petty cash top-up", pettycash.TypeReplenishment,
		ledger.Debit("1010", "Petty Cash", ledger.AccountAsset, amount("85.40")),
		ledger.Credit("1000", "Bank", ledger.AccountAsset, amount("85.40")),
	)
	b.add(b.day(time.December, 31), "December maintenance accrual", ledger.SourceExpenseAccrual,
		ledger.Debit("5200", "Maintenance and Repairs", ledger.AccountExpense, amount("450")),
		ledger.Credit("2100", "Accounts Payable", ledger.AccountLiability, amount("450")),
	)
	b.add(b.day(time.December, 31), "December rent accrual room 4", ledger.SourceRentalAccrual,
		ledger.Debit("1100", "Accounts Receivable", ledger.AccountAsset, amount("400")),
		ledger.Credit("4000", "Rent Income", ledger.AccountIncome, amount("400")),
	)
}

// Scenarios lists the available demo scenarios.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, 0, len(scenarios))
	for _, s := range scenarios {
		out = append(out, s.ScenarioDTO)
	}
	return out
}

// =============================================================================
// SCENARIO LOADING
// =============================================================================

// ScenarioStore is what a scenario load writes to.
type ScenarioStore interface {
	ledger.Store
	ledger.ResidenceDirectory
}

// LoadScenario writes a scenario for year into a new residence.
func LoadScenario(ctx context.Context, st ScenarioStore, id string, year ledger.Year) (*LoadScenarioResponse, error) {
	if err := year.Validate(); err != nil {
		return nil, err
	}
	var sc *scenario
	for i := range scenarios {
		if scenarios[i].ID == id {
			sc = &scenarios[i]
			break
		}
	}
	if sc == nil {
		return nil, &ledger.InputError{Field: "scenario_id", Value: id, Err: ledger.ErrInvalidInput}
	}

	residence := ledger.Residence{ID: ledger.NewResidenceID(), Name: sc.Name}
	b := &entryBuilder{year: int(year), residence: residence.ID, createdAt: time.Now().UTC()}
	sc.build(b)

	for i, e := range b.entries {
		if err := e.ValidateForPosting(); err != nil {
			return nil, fmt.Errorf("scenario %s entry %d: %w", id, i, err)
		}
	}

	if err := st.SaveResidence(ctx, residence); err != nil {
		return nil, ledger.Upstream("save residence", err)
	}
	if err := st.AppendBatch(ctx, b.entries); err != nil {
		return nil, ledger.Upstream("append scenario", err)
	}

	return &LoadScenarioResponse{
		Status:    "loaded",
		Scenario:  id,
		Period:    year,
		Residence: residence,
		Entries:   len(b.entries),
	}, nil
}

// entryBuilder accumulates a scenario's entries for one residence year.
type entryBuilder struct {
	year      int
	residence ledger.ResidenceID
	createdAt time.Time
	entries   []ledger.TransactionEntry
}

func (b *entryBuilder) day(m time.Month, d int) time.Time {
	return time.Date(b.year, m, d, 9, 0, 0, 0, time.UTC)
}

func (b *entryBuilder) priorDay(m time.Month, d int) time.Time {
	return time.Date(b.year-1, m, d, 9, 0, 0, 0, time.UTC)
}

func (b *entryBuilder) add(date time.Time, description string, source ledger.Source, lines ...ledger.EntryLine) {
	b.entries = append(b.entries, ledger.TransactionEntry{
		ID:          ledger.NewEntryID(),
		Date:        date,
		Description: description,
		Residence:   b.residence,
		Source:      source,
		Entries:     lines,
		CreatedBy:   "scenario",
		CreatedAt:   b.createdAt,
	})
}

func (b *entryBuilder) addTagged(date time.Time, description, txType string, lines ...ledger.EntryLine) {
	b.add(date, description, ledger.SourceManual, lines...)
	last := &b.entries[len(b.entries)-1]
	last.SourceID = "scenario-custodian"
	last.Metadata = map[string]string{ledger.MetadataTransactionType: txType}
}

func amount(s string) decimal.Decimal { return ledger.MustAmount(s) }

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// LoadScenario loads a predefined scenario into a new residence.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}

	year := ledger.Year(h.now().Year())
	if req.Period != "" {
		y, err := ledger.ParseYear(req.Period)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		year = y
	}

	resp, err := LoadScenario(r.Context(), h.Backend, req.ScenarioID, year)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	log := h.requestLog(r)
	log.Info().
		Str("scenario", resp.Scenario).
		Str("residence", string(resp.Residence.ID)).
		Int("entries", resp.Entries).
		Msg("scenario loaded")

	writeJSON(w, http.StatusCreated, resp)
}
