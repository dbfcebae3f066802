package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/accommodation-ledger/ledger"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		in      string
		want    ledger.Year
		wantErr bool
	}{
		{"2025", 2025, false},
		{" 1999 ", 1999, false},
		{"25", 0, true},
		{"20255", 0, true},
		{"abcd", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ledger.ParseYear(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ledger.ErrInvalidPeriod)
				assert.ErrorIs(t, err, ledger.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestYearValidate_RejectsOutOfRange(t *testing.T) {
	assert.NoError(t, ledger.Year(2025).Validate())
	assert.ErrorIs(t, ledger.Year(999).Validate(), ledger.ErrInvalidPeriod)
	assert.ErrorIs(t, ledger.Year(10000).Validate(), ledger.ErrInvalidPeriod)
}

func TestYearPeriod(t *testing.T) {
	p := ledger.Year(2024).Period()
	assert.Equal(t, "2024-01-01", p.Start.String())
	assert.Equal(t, "2024-12-31", p.End.String())
	assert.True(t, p.Contains(ledger.At(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC))))
	assert.False(t, p.Contains(ledger.NewTimePoint(2025, time.January, 1)))
}

func TestParseDate(t *testing.T) {
	d, err := ledger.ParseDate("2025-06-30")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-30", d.String())

	d, err = ledger.ParseDate("2025-06-30T22:15:00Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-30", d.String())

	_, err = ledger.ParseDate("30/06/2025")
	assert.ErrorIs(t, err, ledger.ErrInvalidDate)
}

func TestValidateResidenceID(t *testing.T) {
	assert.NoError(t, ledger.ValidateResidenceID("64b7f0c2a1e4d3b2c1a09f8e"))
	assert.NoError(t, ledger.ValidateResidenceID(ledger.NewResidenceID()))
	assert.NoError(t, ledger.ValidateOptionalResidenceID(""))

	for _, bad := range []ledger.ResidenceID{"", "abc", "64b7f0c2a1e4d3b2c1a09f8z", "{6ba7b810-9dad-11d1-80b4-00c04fd430c8}"} {
		err := ledger.ValidateResidenceID(bad)
		assert.ErrorIs(t, err, ledger.ErrInvalidResidenceID, "id %q", bad)
	}
}

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ledger.ValidateUserID("user-42"))
	assert.ErrorIs(t, ledger.ValidateUserID(""), ledger.ErrInvalidUserID)
	assert.ErrorIs(t, ledger.ValidateUserID("bad id"), ledger.ErrInvalidUserID)
}

func TestAccountTypeNormalize(t *testing.T) {
	for in, want := range map[string]ledger.AccountType{
		"asset":     ledger.AccountAsset,
		"LIABILITY": ledger.AccountLiability,
		"Equity":    ledger.AccountEquity,
		"revenue":   ledger.AccountIncome,
		"expenses":  ledger.AccountExpense,
	} {
		got, ok := ledger.AccountType(in).Normalize()
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ledger.AccountType("contra").Normalize()
	assert.False(t, ok)
}

func TestParseAmount(t *testing.T) {
	a, err := ledger.ParseAmount("12.50")
	require.NoError(t, err)
	assert.True(t, a.Equal(ledger.MustAmount("12.5")))

	for _, bad := range []string{"0", "-1", "ten"} {
		_, err := ledger.ParseAmount(bad)
		assert.ErrorIs(t, err, ledger.ErrInvalidAmount, bad)
	}
}

func TestValidateForPosting(t *testing.T) {
	base := func() ledger.TransactionEntry {
		return ledger.TransactionEntry{
			Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
			Entries: []ledger.EntryLine{
				ledger.Debit("5000", "Repairs", ledger.AccountExpense, ledger.MustAmount("80")),
				ledger.Credit("1000", "Bank", ledger.AccountAsset, ledger.MustAmount("80")),
			},
		}
	}

	assert.NoError(t, base().ValidateForPosting())

	noDate := base()
	noDate.Date = time.Time{}
	assert.ErrorIs(t, noDate.ValidateForPosting(), ledger.ErrInvalidDate)

	oneLine := base()
	oneLine.Entries = oneLine.Entries[:1]
	assert.ErrorIs(t, oneLine.ValidateForPosting(), ledger.ErrUnbalancedEntry)

	negative := base()
	negative.Entries[0].Debit = ledger.MustAmount("-80")
	negative.Entries[1].Credit = ledger.MustAmount("-80")
	assert.ErrorIs(t, negative.ValidateForPosting(), ledger.ErrInvalidAmount)

	uneven := base()
	uneven.Entries[1].Credit = ledger.MustAmount("79")
	assert.ErrorIs(t, uneven.ValidateForPosting(), ledger.ErrUnbalancedEntry)
}
