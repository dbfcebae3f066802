/*
handlers.go - HTTP API handlers for the residence accounting ledger

PURPOSE:
  Exposes the statement builders, the journal and the petty-cash fund via a
  REST API. Handles HTTP request/response and JSON serialization, and
  delegates everything else to the domain packages.

ENDPOINTS:
  Reports:
    GET    /api/reports/income-statement?period=YYYY&residence=ID
    GET    /api/reports/cash-flow?period=YYYY&residence=ID
    GET    /api/reports/balance-sheet?as_of=YYYY-MM-DD&residence=ID
    GET    /api/reports/reconciliation?period=YYYY&residence=ID

  Residences:
    GET    /api/residences                      List residences
    POST   /api/residences                      Register a residence
    GET    /api/residences/{id}/statements      Full statement bundle

  Entries:
    POST   /api/entries                         Post a balanced journal entry

  Petty cash:
    GET    /api/petty-cash/{userID}/balance
    GET    /api/petty-cash/{userID}/transactions?start=&end=
    POST   /api/petty-cash/{userID}/allocations
    POST   /api/petty-cash/{userID}/expenses
    POST   /api/petty-cash/{userID}/replenishments

  Reconciliation:
    GET    /api/reconciliation/runs?limit=N
    POST   /api/reconciliation/process

REQUEST FLOW:
  1. Parse HTTP request
  2. Call domain logic (validation happens there, before any I/O)
  3. Serialize response
  4. Map errors to a status code

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status:
  - 400: Invalid period, date, id, amount or unbalanced entry
  - 404: Residence not found
  - 409: Duplicate entry id
  - 422: Insufficient petty-cash funds
  - 500: Store failures

  Integrity findings (is_balanced=false, is_reconciled=false) are 200s.

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/accommodation-ledger/accounting"
	"github.com/warp/accommodation-ledger/ledger"
	"github.com/warp/accommodation-ledger/logger"
	"github.com/warp/accommodation-ledger/pettycash"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Backend is the persistence the API needs. Both store implementations
// satisfy it.
type Backend interface {
	ledger.Store
	ledger.ResidenceDirectory
	ledger.RunLog
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Backend   Backend
	Ledger    *ledger.DefaultLedger
	Service   *accounting.Service
	PettyCash *pettycash.Ledger
	Fund      *pettycash.Fund
	Scheduler *ReconciliationScheduler
	Log       zerolog.Logger

	now func() time.Time
}

// Options configures NewHandler. A zero Accounts uses the default chart.
type Options struct {
	QueryTimeout time.Duration
	Accounts     pettycash.Accounts
}

// NewHandler wires the ledger, statement service and petty-cash fund over
// one backend. The scheduler is created but not started.
func NewHandler(backend Backend, opts Options, log zerolog.Logger) *Handler {
	l := ledger.NewLedger(backend, opts.QueryTimeout)
	service := accounting.NewService(l, backend, log)
	balances := pettycash.NewLedger(l)
	if opts.Accounts == (pettycash.Accounts{}) {
		opts.Accounts = pettycash.DefaultAccounts()
	}

	return &Handler{
		Backend:   backend,
		Ledger:    l,
		Service:   service,
		PettyCash: balances,
		Fund:      pettycash.NewFund(l, balances, opts.Accounts, log),
		Scheduler: NewReconciliationScheduler(service, backend, backend, log),
		Log:       log,
		now:       time.Now,
	}
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// GetIncomeStatement returns the accrual income statement for a year.
func (h *Handler) GetIncomeStatement(w http.ResponseWriter, r *http.Request) {
	year, err := ledger.ParseYear(r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	stmt, err := h.Service.GenerateAccrualIncomeStatement(r.Context(), year, residenceParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stmt)
}

// GetCashFlow returns the cash flow statement for a year.
func (h *Handler) GetCashFlow(w http.ResponseWriter, r *http.Request) {
	year, err := ledger.ParseYear(r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	stmt, err := h.Service.GenerateCashFlowStatement(r.Context(), year, residenceParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stmt)
}

// GetBalanceSheet returns the cash-basis balance sheet. as_of defaults to today.
func (h *Handler) GetBalanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf := ledger.At(h.now())
	if s := r.URL.Query().Get("as_of"); s != "" {
		parsed, err := ledger.ParseDate(s)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		asOf = parsed
	}
	sheet, err := h.Service.GenerateCashBasisBalanceSheet(r.Context(), asOf, residenceParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

// GetReconciliation checks the cash flow statement against the balance sheet.
func (h *Handler) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	year, err := ledger.ParseYear(r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	result, err := h.Service.ValidateCashFlowReconciliation(r.Context(), year, residenceParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// RESIDENCE ENDPOINTS
// =============================================================================

// ListResidences returns every registered residence.
func (h *Handler) ListResidences(w http.ResponseWriter, r *http.Request) {
	list, err := h.Backend.ListResidences(r.Context())
	if err != nil {
		h.fail(w, r, ledger.Upstream("list residences", err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateResidence registers a residence, generating an id when none is given.
func (h *Handler) CreateResidence(w http.ResponseWriter, r *http.Request) {
	var req CreateResidenceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.fail(w, r, &ledger.InputError{Field: "name", Err: ledger.ErrInvalidInput})
		return
	}

	residence := ledger.Residence{
		ID:      ledger.ResidenceID(req.ID),
		Name:    strings.TrimSpace(req.Name),
		Address: req.Address,
	}
	if residence.ID == "" {
		residence.ID = ledger.NewResidenceID()
	} else if err := ledger.ValidateResidenceID(residence.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Backend.SaveResidence(r.Context(), residence); err != nil {
		h.fail(w, r, ledger.Upstream("save residence", err))
		return
	}
	writeJSON(w, http.StatusCreated, residence)
}

// GetResidenceStatements returns all three statements for one residence.
func (h *Handler) GetResidenceStatements(w http.ResponseWriter, r *http.Request) {
	year, err := ledger.ParseYear(r.URL.Query().Get("period"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var asOf *ledger.TimePoint
	if s := r.URL.Query().Get("as_of"); s != "" {
		parsed, err := ledger.ParseDate(s)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		asOf = &parsed
	}

	id := ledger.ResidenceID(chi.URLParam(r, "id"))
	bundle, err := h.Service.GenerateResidenceFinancialStatements(r.Context(), year, id, asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// =============================================================================
// ENTRY ENDPOINTS
// =============================================================================

// PostEntry validates and appends one balanced journal entry.
func (h *Handler) PostEntry(w http.ResponseWriter, r *http.Request) {
	var req PostEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	residence := ledger.ResidenceID(req.Residence)
	if err := ledger.ValidateOptionalResidenceID(residence); err != nil {
		h.fail(w, r, err)
		return
	}
	if residence != "" {
		if _, err := h.Backend.FindResidence(r.Context(), residence); err != nil {
			h.fail(w, r, ledger.Upstream("find residence", err))
			return
		}
	}

	source := ledger.Source(req.Source)
	if source == "" {
		source = ledger.SourceManual
	}
	entry := ledger.TransactionEntry{
		ID:            ledger.EntryID(req.ID),
		TransactionID: req.TransactionID,
		Date:          date.Time,
		Description:   req.Description,
		Residence:     residence,
		Source:        source,
		SourceID:      req.SourceID,
		Metadata:      req.Metadata,
		CreatedBy:     req.CreatedBy,
	}
	for _, l := range req.Entries {
		entry.Entries = append(entry.Entries, ledger.EntryLine{
			AccountCode: l.AccountCode,
			AccountName: l.AccountName,
			AccountType: ledger.AccountType(l.AccountType),
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}

	posted, err := h.Ledger.Post(r.Context(), entry)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	log := h.requestLog(r)
	log.Info().
		Str("entry_id", string(posted.ID)).
		Str("source", string(posted.Source)).
		Str("residence", string(posted.Residence)).
		Msg("entry posted")
	writeJSON(w, http.StatusCreated, posted)
}

// =============================================================================
// PETTY CASH ENDPOINTS
// =============================================================================

// GetPettyCashBalance returns a custodian's derived float.
func (h *Handler) GetPettyCashBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := h.PettyCash.GetBalance(r.Context(), userParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

// GetPettyCashTransactions lists tagged petty-cash entries, optionally bounded.
func (h *Handler) GetPettyCashTransactions(w http.ResponseWriter, r *http.Request) {
	start, err := optionalDate(r, "start")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := optionalDate(r, "end")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.PettyCash.GetTransactions(r.Context(), userParam(r), start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// AllocatePettyCash funds a custodian's float from the bank.
func (h *Handler) AllocatePettyCash(w http.ResponseWriter, r *http.Request) {
	h.postMovement(w, r, h.Fund.Allocate)
}

// RecordPettyCashExpense spends from the float.
func (h *Handler) RecordPettyCashExpense(w http.ResponseWriter, r *http.Request) {
	h.postMovement(w, r, h.Fund.RecordExpense)
}

// ReplenishPettyCash tops up the float from the bank.
func (h *Handler) ReplenishPettyCash(w http.ResponseWriter, r *http.Request) {
	h.postMovement(w, r, h.Fund.Replenish)
}

type movementFunc func(ctx context.Context, m pettycash.Movement) (ledger.TransactionEntry, error)

func (h *Handler) postMovement(w http.ResponseWriter, r *http.Request, post movementFunc) {
	var req MovementRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amt, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	m := pettycash.Movement{
		UserID:      userParam(r),
		Amount:      amt,
		Description: req.Description,
		Residence:   ledger.ResidenceID(req.Residence),
		CreatedBy:   req.CreatedBy,
		ExpenseCode: req.ExpenseCode,
		ExpenseName: req.ExpenseName,
	}
	if req.Date != "" {
		d, err := ledger.ParseDate(req.Date)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		m.Date = d.Time
	}

	entry, err := post(r.Context(), m)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// =============================================================================
// RECONCILIATION ENDPOINTS
// =============================================================================

// ListReconciliationRuns returns scheduler history, newest first.
func (h *Handler) ListReconciliationRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.fail(w, r, &ledger.InputError{Field: "limit", Value: s, Err: ledger.ErrInvalidInput})
			return
		}
		limit = n
	}
	runs, err := h.Backend.ListRuns(r.Context(), limit)
	if err != nil {
		h.fail(w, r, ledger.Upstream("list runs", err))
		return
	}
	writeJSON(w, http.StatusOK, ReconciliationRunsDTO{Runs: runs})
}

// ProcessReconciliation runs the reconciliation check for every residence now.
func (h *Handler) ProcessReconciliation(w http.ResponseWriter, r *http.Request) {
	var req ProcessReconciliationRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
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

	runs, err := h.Scheduler.RunNow(r.Context(), year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReconciliationRunsDTO{Runs: runs})
}

// =============================================================================
// HELPERS
// =============================================================================

func residenceParam(r *http.Request) ledger.ResidenceID {
	return ledger.ResidenceID(strings.TrimSpace(r.URL.Query().Get("residence")))
}

func userParam(r *http.Request) ledger.UserID {
	return ledger.UserID(chi.URLParam(r, "userID"))
}

func optionalDate(r *http.Request, key string) (*ledger.TimePoint, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	tp, err := ledger.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_input", err)
		return false
	}
	return true
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient_funds"
	case errors.Is(err, ledger.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case ledger.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case ledger.IsConflict(err):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "upstream_failure"
	}
}

// requestLog is the request-scoped logger set by RequestLogger, or h.Log
// when the handler runs without it.
func (h *Handler) requestLog(r *http.Request) zerolog.Logger {
	if _, ok := r.Context().Value(logger.LoggerKey).(zerolog.Logger); ok {
		return logger.FromContext(r.Context())
	}
	return h.Log
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log := h.requestLog(r)
		log.Error().Err(err).Msg("request failed")
		writeError(w, status, "Internal error", code, err)
		return
	}
	writeError(w, status, err.Error(), code, nil)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
