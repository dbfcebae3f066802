/*
classifier.go - Account classification from code, name and type

PURPOSE:
  Maps a posting line to a semantic category and subtype. Every statement
  builder shares one Classifier so that a line can never be cash in one
  statement and something else in another.

RULES (first match wins, case-insensitive):
  1. Code prefix 100/101 is cash and cash equivalents, whatever accountType says.
     Subtype by name: bank, petty, ecocash/innbucks/mobile, deposit/investment,
     otherwise cash on hand.
  2. Otherwise accountType picks the category. When accountType is not one of
     the five recognized types the leading digit of the code decides
     (1 asset, 2 liability, 3 equity, 4 income, 5 expense).
  3. Within a category the name picks the subtype, with a catch-all per
     category. Lines that reach a catch-all are flagged Defaulted.

TOTALITY:
  Classify never fails. Nonsensical input lands in unknown/unclassified.

SEE ALSO:
  - income.go, cashflow.go, balance_sheet.go: Consumers
*/
package accounting

import (
	"strings"

	"github.com/warp/accommodation-ledger/ledger"
)

// =============================================================================
// CATEGORIES AND SUBTYPES
// =============================================================================

type Category string

const (
	CategoryAsset     Category = "asset"
	CategoryLiability Category = "liability"
	CategoryEquity    Category = "equity"
	CategoryIncome    Category = "income"
	CategoryExpense   Category = "expense"
	CategoryUnknown   Category = "unknown"
)

type Subtype string

const (
	// Cash and cash equivalents
	SubtypeCashOnHand        Subtype = "cash_on_hand"
	SubtypeCashAtBank        Subtype = "cash_at_bank"
	SubtypeShortTermDeposits Subtype = "short_term_deposits"
	SubtypeMobileWallets     Subtype = "mobile_wallets"
	SubtypePettyCash         Subtype = "petty_cash"

	// Non-cash assets
	SubtypePrepaidExpenses    Subtype = "prepaid_expenses"
	SubtypeAccountsReceivable Subtype = "accounts_receivable"
	SubtypeLoansReceivable    Subtype = "loans_receivable"
	SubtypeOtherAssets        Subtype = "other_assets"

	// Liabilities
	SubtypeLoansPayable    Subtype = "loans_payable"
	SubtypeAccountsPayable Subtype = "accounts_payable"
	SubtypeAccruedExpenses Subtype = "accrued_expenses"

	// Equity
	SubtypeOwnersEquity     Subtype = "owners_equity"
	SubtypeRetainedEarnings Subtype = "retained_earnings"

	SubtypeIncome       Subtype = "income"
	SubtypeExpense      Subtype = "expense"
	SubtypeUnclassified Subtype = "unclassified"
)

// CashSubtypes lists the cash-equivalent subtypes in disclosure order.
var CashSubtypes = []Subtype{
	SubtypeCashOnHand,
	SubtypeCashAtBank,
	SubtypeShortTermDeposits,
	SubtypeMobileWallets,
	SubtypePettyCash,
}

// Classification is the derived semantic type of one posting line.
type Classification struct {
	Category Category
	Subtype  Subtype
	Cash     bool

	// Defaulted is set when no name rule matched and the category's
	// catch-all bucket was used.
	Defaulted bool
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// Classifier is the single source of truth for account semantics.
type Classifier interface {
	Classify(line ledger.EntryLine) Classification
}

// HeuristicClassifier classifies by code prefix and name substrings.
type HeuristicClassifier struct{}

var _ Classifier = HeuristicClassifier{}

type nameRule struct {
	needles []string
	subtype Subtype
}

var (
	cashRules = []nameRule{
		{[]string{"bank"}, SubtypeCashAtBank},
		{[]string{"petty"}, SubtypePettyCash},
		{[]string{"ecocash", "innbucks", "mobile"}, SubtypeMobileWallets},
		{[]string{"deposit", "investment"}, SubtypeShortTermDeposits},
	}
	assetRules = []nameRule{
		{[]string{"prepaid"}, SubtypePrepaidExpenses},
		{[]string{"receivable"}, SubtypeAccountsReceivable},
		{[]string{"loan"}, SubtypeLoansReceivable},
	}
	liabilityRules = []nameRule{
		{[]string{"loan"}, SubtypeLoansPayable},
		{[]string{"accrued"}, SubtypeAccruedExpenses},
		{[]string{"payable"}, SubtypeAccountsPayable},
	}
	equityRules = []nameRule{
		{[]string{"retained"}, SubtypeRetainedEarnings},
		{[]string{"capital", "contribution", "owner"}, SubtypeOwnersEquity},
	}
)

func (HeuristicClassifier) Classify(line ledger.EntryLine) Classification {
	code := strings.TrimSpace(line.AccountCode)
	name := strings.ToLower(line.AccountName)

	if IsCashCode(code) {
		sub, defaulted := matchName(name, cashRules, SubtypeCashOnHand)
		return Classification{Category: CategoryAsset, Subtype: sub, Cash: true, Defaulted: defaulted}
	}

	switch categoryOf(line.AccountType, code) {
	case CategoryAsset:
		sub, defaulted := matchName(name, assetRules, SubtypeOtherAssets)
		return Classification{Category: CategoryAsset, Subtype: sub, Defaulted: defaulted}
	case CategoryLiability:
		sub, defaulted := matchName(name, liabilityRules, SubtypeAccountsPayable)
		return Classification{Category: CategoryLiability, Subtype: sub, Defaulted: defaulted}
	case CategoryEquity:
		sub, defaulted := matchName(name, equityRules, SubtypeOwnersEquity)
		return Classification{Category: CategoryEquity, Subtype: sub, Defaulted: defaulted}
	case CategoryIncome:
		return Classification{Category: CategoryIncome, Subtype: SubtypeIncome}
	case CategoryExpense:
		return Classification{Category: CategoryExpense, Subtype: SubtypeExpense}
	default:
		return Classification{Category: CategoryUnknown, Subtype: SubtypeUnclassified, Defaulted: true}
	}
}

// IsCashCode reports whether an account code denotes cash or a cash equivalent.
func IsCashCode(code string) bool {
	return strings.HasPrefix(code, "100") || strings.HasPrefix(code, "101")
}

func categoryOf(typ ledger.AccountType, code string) Category {
	if t, ok := typ.Normalize(); ok {
		switch t {
		case ledger.AccountAsset:
			return CategoryAsset
		case ledger.AccountLiability:
			return CategoryLiability
		case ledger.AccountEquity:
			return CategoryEquity
		case ledger.AccountIncome:
			return CategoryIncome
		case ledger.AccountExpense:
			return CategoryExpense
		}
	}
	// Chart-of-accounts convention
	if code == "" {
		return CategoryUnknown
	}
	switch code[0] {
	case '1':
		return CategoryAsset
	case '2':
		return CategoryLiability
	case '3':
		return CategoryEquity
	case '4':
		return CategoryIncome
	case '5':
		return CategoryExpense
	}
	return CategoryUnknown
}

func matchName(name string, rules []nameRule, fallback Subtype) (Subtype, bool) {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(name, n) {
				return r.subtype, false
			}
		}
	}
	return fallback, true
}
