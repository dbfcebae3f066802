/*
cashflow.go - Cash flow statement (cash basis)

PURPOSE:
  Shows actual cash movement in a period, split into operating, investing
  and financing activities. Only lines on cash accounts are counted; a
  debit to a cash account is an inflow and a credit is an outflow.

BUCKETING:
  Each cash line is assigned one bucket by the first matching rule, using the
  entry's description, the cash line's own description and name, and the
  names of the entry's non-cash lines:

    1. payment inflow           -> admin fees | tenants
    2. expense_payment outflow  -> utilities | maintenance | staff | office | suppliers
    3. equipment/furniture      -> purchase (out) | sale (in)
    4. building/property        -> purchase_of_buildings (out)
    5. improvement/renovation   -> purchase_of_property_improvements (out)
    6. loan counterpart         -> loan_proceeds (in) | loan_repayments (out) | loans_made (out)
    7. contribution/drawing     -> owners_contribution (in) | owner_drawings (out)
    8. fallback                 -> other operating receipts | payments

  Entries touching only cash accounts move money between cash equivalents
  and are left out of the buckets.

THREE INDEPENDENT SCANS:
  1. The period itself (flows)
  2. Everything before the period (opening balance)
  3. Everything up to period end (closing breakdown by subtype)
  The breakdown is NOT derived from the flows. The embedded reconciliation
  compares opening + net change against it.

SEE ALSO:
  - reconcile.go: The stand-alone reconciliation check
*/
package accounting

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/accommodation-ledger/ledger"
)

// =============================================================================
// BUCKETS
// =============================================================================

type Bucket string

const (
	BucketTenants            Bucket = "cash_received_from_tenants"
	BucketAdminFees          Bucket = "cash_received_from_admin_fees"
	BucketOtherReceipts      Bucket = "other_operating_receipts"
	BucketUtilities          Bucket = "cash_paid_for_utilities"
	BucketMaintenance        Bucket = "cash_paid_for_maintenance"
	BucketStaff              Bucket = "cash_paid_to_staff"
	BucketOffice             Bucket = "cash_paid_for_office_expenses"
	BucketSuppliers          Bucket = "cash_paid_to_suppliers"
	BucketOtherPayments      Bucket = "other_operating_payments"
	BucketEquipmentPurchase  Bucket = "purchase_of_equipment"
	BucketEquipmentSale      Bucket = "sale_of_equipment"
	BucketBuildings          Bucket = "purchase_of_buildings"
	BucketImprovements       Bucket = "purchase_of_property_improvements"
	BucketLoansMade          Bucket = "loans_made"
	BucketLoanProceeds       Bucket = "loan_proceeds"
	BucketLoanRepayments     Bucket = "loan_repayments"
	BucketOwnersContribution Bucket = "owners_contribution"
	BucketOwnerDrawings      Bucket = "owner_drawings"
)

type flowDirection int

const (
	inflow flowDirection = iota
	outflow
)

type keywordRule struct {
	needles []string
	bucket  Bucket
}

var expensePaymentRules = []keywordRule{
	{[]string{"utilit", "electric", "water"}, BucketUtilities},
	{[]string{"maintenance", "repair"}, BucketMaintenance},
	{[]string{"staff", "salar", "wage"}, BucketStaff},
	{[]string{"office"}, BucketOffice},
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// flowContext is what the rules see for one cash line.
type flowContext struct {
	source       ledger.Source
	text         string
	loanPayable  bool
	loanReceived bool
}

func bucketFor(fc flowContext, dir flowDirection) Bucket {
	text := fc.text

	if fc.source == ledger.SourcePayment && dir == inflow {
		if containsAny(text, "admin") {
			return BucketAdminFees
		}
		return BucketTenants
	}
	if fc.source == ledger.SourceExpensePayment && dir == outflow {
		for _, r := range expensePaymentRules {
			if containsAny(text, r.needles...) {
				return r.bucket
			}
		}
		return BucketSuppliers
	}
	if containsAny(text, "equipment", "furniture", "computer") {
		if dir == outflow {
			return BucketEquipmentPurchase
		}
		return BucketEquipmentSale
	}
	if dir == outflow && containsAny(text, "building", "construction", "property") {
		return BucketBuildings
	}
	if dir == outflow && containsAny(text, "improvement", "renovation") {
		return BucketImprovements
	}
	if fc.loanPayable {
		if dir == inflow {
			return BucketLoanProceeds
		}
		return BucketLoanRepayments
	}
	if fc.loanReceived && dir == outflow {
		return BucketLoansMade
	}
	if dir == inflow && containsAny(text, "contribution", "capital") {
		return BucketOwnersContribution
	}
	if dir == outflow && containsAny(text, "drawing", "withdrawal") {
		return BucketOwnerDrawings
	}
	if dir == inflow {
		return BucketOtherReceipts
	}
	return BucketOtherPayments
}

// =============================================================================
// STATEMENT
// =============================================================================

type OperatingActivities struct {
	CashReceivedFromTenants   decimal.Decimal `json:"cash_received_from_tenants"`
	CashReceivedFromAdminFees decimal.Decimal `json:"cash_received_from_admin_fees"`
	OtherOperatingReceipts    decimal.Decimal `json:"other_operating_receipts"`
	CashPaidForUtilities      decimal.Decimal `json:"cash_paid_for_utilities"`
	CashPaidForMaintenance    decimal.Decimal `json:"cash_paid_for_maintenance"`
	CashPaidToStaff           decimal.Decimal `json:"cash_paid_to_staff"`
	CashPaidForOfficeExpenses decimal.Decimal `json:"cash_paid_for_office_expenses"`
	CashPaidToSuppliers       decimal.Decimal `json:"cash_paid_to_suppliers"`
	OtherOperatingPayments    decimal.Decimal `json:"other_operating_payments"`
	NetOperating              decimal.Decimal `json:"net_operating"`
}

type InvestingActivities struct {
	PurchaseOfEquipment            decimal.Decimal `json:"purchase_of_equipment"`
	SaleOfEquipment                decimal.Decimal `json:"sale_of_equipment"`
	PurchaseOfBuildings            decimal.Decimal `json:"purchase_of_buildings"`
	PurchaseOfPropertyImprovements decimal.Decimal `json:"purchase_of_property_improvements"`
	LoansMade                      decimal.Decimal `json:"loans_made"`
	NetInvesting                   decimal.Decimal `json:"net_investing"`
}

type FinancingActivities struct {
	LoanProceeds       decimal.Decimal `json:"loan_proceeds"`
	LoanRepayments     decimal.Decimal `json:"loan_repayments"`
	OwnersContribution decimal.Decimal `json:"owners_contribution"`
	OwnerDrawings      decimal.Decimal `json:"owner_drawings"`
	NetFinancing       decimal.Decimal `json:"net_financing"`
}

// CashReconciliation compares the flow-derived closing balance with the
// independently scanned breakdown total.
type CashReconciliation struct {
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	BreakdownTotal decimal.Decimal `json:"breakdown_total"`
	Difference     decimal.Decimal `json:"difference"`
	IsReconciled   bool            `json:"is_reconciled"`
}

type CashFlowStatement struct {
	Period         ledger.Year         `json:"period"`
	Start          ledger.TimePoint    `json:"start"`
	End            ledger.TimePoint    `json:"end"`
	Residence      ledger.ResidenceID  `json:"residence,omitempty"`
	Basis          string              `json:"basis"`
	Operating      OperatingActivities `json:"operating_activities"`
	Investing      InvestingActivities `json:"investing_activities"`
	Financing      FinancingActivities `json:"financing_activities"`
	NetChange      decimal.Decimal     `json:"net_change_in_cash"`
	OpeningBalance decimal.Decimal     `json:"opening_balance"`
	ClosingBalance decimal.Decimal     `json:"closing_balance"`
	Breakdown      CashBreakdown       `json:"cash_breakdown"`
	Reconciliation CashReconciliation  `json:"reconciliation"`
	Diagnostics    Diagnostics         `json:"diagnostics"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// GenerateCashFlowStatement builds the cash flow statement for a calendar year.
func (s *Service) GenerateCashFlowStatement(ctx context.Context, year ledger.Year, residence ledger.ResidenceID) (*CashFlowStatement, error) {
	if err := year.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.checkResidence(ctx, residence); err != nil {
		return nil, err
	}
	return s.cashFlowStatement(ctx, year, residence)
}

func (s *Service) cashFlowStatement(ctx context.Context, year ledger.Year, residence ledger.ResidenceID) (*CashFlowStatement, error) {
	period := year.Period()

	entries, err := s.Ledger.FindByDateRange(ctx, period.Start, period.End, residence)
	if err != nil {
		return nil, err
	}
	buckets, diag := s.bucketFlows(entries)

	opening, err := s.openingCash(ctx, period.Start, residence)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.cashBreakdownAt(ctx, period.End, residence)
	if err != nil {
		return nil, err
	}

	op := OperatingActivities{
		CashReceivedFromTenants:   buckets[BucketTenants],
		CashReceivedFromAdminFees: buckets[BucketAdminFees],
		OtherOperatingReceipts:    buckets[BucketOtherReceipts],
		CashPaidForUtilities:      buckets[BucketUtilities],
		CashPaidForMaintenance:    buckets[BucketMaintenance],
		CashPaidToStaff:           buckets[BucketStaff],
		CashPaidForOfficeExpenses: buckets[BucketOffice],
		CashPaidToSuppliers:       buckets[BucketSuppliers],
		OtherOperatingPayments:    buckets[BucketOtherPayments],
	}
	receipts := op.CashReceivedFromTenants.Add(op.CashReceivedFromAdminFees).Add(op.OtherOperatingReceipts)
	payments := op.CashPaidForUtilities.Add(op.CashPaidForMaintenance).Add(op.CashPaidToStaff).
		Add(op.CashPaidForOfficeExpenses).Add(op.CashPaidToSuppliers).Add(op.OtherOperatingPayments)
	op.NetOperating = receipts.Sub(payments)

	inv := InvestingActivities{
		PurchaseOfEquipment:            buckets[BucketEquipmentPurchase],
		SaleOfEquipment:                buckets[BucketEquipmentSale],
		PurchaseOfBuildings:            buckets[BucketBuildings],
		PurchaseOfPropertyImprovements: buckets[BucketImprovements],
		LoansMade:                      buckets[BucketLoansMade],
	}
	inv.NetInvesting = inv.SaleOfEquipment.Sub(
		inv.PurchaseOfEquipment.Add(inv.PurchaseOfBuildings).Add(inv.PurchaseOfPropertyImprovements).Add(inv.LoansMade))

	fin := FinancingActivities{
		LoanProceeds:       buckets[BucketLoanProceeds],
		LoanRepayments:     buckets[BucketLoanRepayments],
		OwnersContribution: buckets[BucketOwnersContribution],
		OwnerDrawings:      buckets[BucketOwnerDrawings],
	}
	fin.NetFinancing = fin.LoanProceeds.Add(fin.OwnersContribution).Sub(fin.LoanRepayments.Add(fin.OwnerDrawings))

	netChange := op.NetOperating.Add(inv.NetInvesting).Add(fin.NetFinancing)
	closing := opening.Add(netChange)
	diff := closing.Sub(breakdown.Total)

	stmt := &CashFlowStatement{
		Period:         year,
		Start:          period.Start,
		End:            period.End,
		Residence:      residence,
		Basis:          "cash",
		Operating:      op,
		Investing:      inv,
		Financing:      fin,
		NetChange:      netChange,
		OpeningBalance: opening,
		ClosingBalance: closing,
		Breakdown:      breakdown,
		Reconciliation: CashReconciliation{
			ClosingBalance: closing,
			BreakdownTotal: breakdown.Total,
			Difference:     diff,
			IsReconciled:   diff.Abs().LessThan(ledger.Tolerance),
		},
		Diagnostics: diag,
		GeneratedAt: s.now(),
	}

	s.Log.Debug().
		Str("statement", "cash_flow").
		Stringer("period", year).
		Str("residence", string(residence)).
		Int("entries", diag.EntriesScanned).
		Int("internal_transfers", diag.InternalTransfers).
		Msg("generated cash flow statement")
	if !stmt.Reconciliation.IsReconciled {
		s.Log.Warn().
			Stringer("period", year).
			Str("residence", string(residence)).
			Str("difference", diff.StringFixed(2)).
			Msg("cash flow closing balance does not match cash breakdown")
	}
	return stmt, nil
}

// bucketFlows assigns every cash line in the period to exactly one bucket.
func (s *Service) bucketFlows(entries []ledger.TransactionEntry) (map[Bucket]decimal.Decimal, Diagnostics) {
	buckets := make(map[Bucket]decimal.Decimal)
	diag := Diagnostics{EntriesScanned: len(entries), LinesScanned: countLines(entries)}

	for _, e := range entries {
		classes := make([]Classification, len(e.Entries))
		allCash := len(e.Entries) > 0
		cashNet := decimal.Zero
		for i, line := range e.Entries {
			classes[i] = s.classify(line)
			if classes[i].Defaulted {
				diag.DefaultedLines++
			}
			allCash = allCash && classes[i].Cash
			if classes[i].Cash {
				cashNet = cashNet.Add(line.NetDebit())
			}
		}
		// Cash moved between cash accounts. A one-sided cash posting does not
		// net to zero and is bucketed like any other cash line.
		if allCash && cashNet.Abs().LessThan(ledger.Tolerance) {
			diag.InternalTransfers++
			continue
		}

		var counterpartNames []string
		fc := flowContext{source: e.Source}
		for i, line := range e.Entries {
			c := classes[i]
			if c.Cash {
				continue
			}
			counterpartNames = append(counterpartNames, line.AccountName)
			if c.Category == CategoryLiability && c.Subtype == SubtypeLoansPayable {
				fc.loanPayable = true
			}
			if c.Category == CategoryAsset && c.Subtype == SubtypeLoansReceivable {
				fc.loanReceived = true
			}
		}
		shared := e.Description + " " + strings.Join(counterpartNames, " ")

		for i, line := range e.Entries {
			if !classes[i].Cash {
				continue
			}
			fc.text = strings.ToLower(shared + " " + line.Description + " " + line.AccountName)
			if line.Debit.IsPositive() {
				b := bucketFor(fc, inflow)
				buckets[b] = buckets[b].Add(line.Debit)
			}
			if line.Credit.IsPositive() {
				b := bucketFor(fc, outflow)
				buckets[b] = buckets[b].Add(line.Credit)
			}
		}
	}
	return buckets, diag
}

// openingCash is the net cash position strictly before start.
func (s *Service) openingCash(ctx context.Context, start ledger.TimePoint, residence ledger.ResidenceID) (decimal.Decimal, error) {
	entries, err := s.Ledger.FindBefore(ctx, start, residence)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range entries {
		for _, line := range e.Entries {
			if s.classify(line).Cash {
				total = total.Add(line.NetDebit())
			}
		}
	}
	return total, nil
}

// cashBreakdownAt is the cumulative cash position by subtype up to asOf.
func (s *Service) cashBreakdownAt(ctx context.Context, asOf ledger.TimePoint, residence ledger.ResidenceID) (CashBreakdown, error) {
	entries, err := s.Ledger.FindUpTo(ctx, asOf, residence)
	if err != nil {
		return CashBreakdown{}, err
	}
	return newCashBreakdown(s.sumCash(entries, nil)), nil
}
