/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication that are not already
  statement types. Statements (income, cash flow, balance sheet,
  reconciliation, full residence bundle) are returned as the accounting
  package builds them.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Entries:
    PostEntryRequest, EntryLineRequest

  Residences:
    CreateResidenceRequest

  Petty cash:
    MovementRequest

  Reconciliation:
    ProcessReconciliationRequest

  Scenarios:
    ScenarioDTO, LoadScenarioRequest, LoadScenarioResponse

VALIDATION:
  Validation is done in handlers and the domain packages, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/ledger"
)

// =============================================================================
// ENTRIES
// =============================================================================

// EntryLineRequest is one posting line. Amounts accept JSON strings or numbers.
type EntryLineRequest struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType string          `json:"account_type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// PostEntryRequest is the request to post a balanced journal entry.
type PostEntryRequest struct {
	ID            string             `json:"id,omitempty"` // client-chosen; a repeat is a 409
	TransactionID string             `json:"transaction_id,omitempty"`
	Date          string             `json:"date"` // YYYY-MM-DD or RFC3339
	Description   string             `json:"description"`
	Residence     string             `json:"residence,omitempty"`
	Source        string             `json:"source"`
	SourceID      string             `json:"source_id,omitempty"`
	CreatedBy     string             `json:"created_by,omitempty"`
	Metadata      map[string]string  `json:"metadata,omitempty"`
	Entries       []EntryLineRequest `json:"entries"`
}

// =============================================================================
// RESIDENCES
// =============================================================================

// CreateResidenceRequest registers a residence. ID is generated when empty.
type CreateResidenceRequest struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// =============================================================================
// PETTY CASH
// =============================================================================

// MovementRequest is the body for allocations, expenses and replenishments.
type MovementRequest struct {
	Amount      string `json:"amount"`
	Date        string `json:"date,omitempty"` // defaults to today
	Description string `json:"description,omitempty"`
	Residence   string `json:"residence,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`

	// Expenses only
	ExpenseCode string `json:"expense_code,omitempty"`
	ExpenseName string `json:"expense_name,omitempty"`
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ProcessReconciliationRequest triggers an immediate check. Period defaults
// to the current year.
type ProcessReconciliationRequest struct {
	Period string `json:"period,omitempty"`
}

// ReconciliationRunsDTO wraps the run history.
type ReconciliationRunsDTO struct {
	Runs []ledger.ReconciliationRun `json:"runs"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
	Period     string `json:"period,omitempty"`
}

// LoadScenarioResponse reports where the scenario was written.
type LoadScenarioResponse struct {
	Status    string           `json:"status"`
	Scenario  string           `json:"scenario"`
	Period    ledger.Year      `json:"period"`
	Residence ledger.Residence `json:"residence"`
	Entries   int              `json:"entries"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
