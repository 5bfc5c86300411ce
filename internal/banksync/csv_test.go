package banksync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/config"
)

var testAccount = config.LinkedAccount{
	UserID:    "user-1",
	AccountID: "acc-1",
	Currency:  "EUR",
}

func TestParseStatementCSV(t *testing.T) {
	input := "Date,Amount,Description,Merchant\n" +
		"2026-03-01,-12.30,Card payment,Local Bakery\n" +
		"2026-03-02,1500.00,Salary February,ACME Corp\n"

	rows, err := ParseStatementCSV(strings.NewReader(input), testAccount)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "user-1", rows[0].UserID)
	assert.Equal(t, "acc-1", rows[0].AccountID)
	assert.Equal(t, "-12.3", rows[0].Amount.String())
	assert.Equal(t, "EUR", rows[0].Currency)
	assert.Equal(t, "Local Bakery", rows[0].MerchantName)
	assert.Equal(t, 2026, rows[0].BookedAt.Year())

	assert.True(t, rows[1].Amount.IsPositive())
	assert.Equal(t, "Salary February", rows[1].Description)
	assert.False(t, rows[1].IsImported)
}

func TestParseStatementCSVDeterministicKey(t *testing.T) {
	input := "date,amount,description\n2026-01-05,-4.00,coffee\n"

	first, err := ParseStatementCSV(strings.NewReader(input), testAccount)
	require.NoError(t, err)
	second, err := ParseStatementCSV(strings.NewReader(input), testAccount)
	require.NoError(t, err)

	assert.Equal(t, first[0].ProviderKey, second[0].ProviderKey)
	assert.NotEqual(t, first[0].ID, second[0].ID)
}

func TestParseStatementCSVMissingColumn(t *testing.T) {
	input := "date,description\n2026-01-05,coffee\n"

	_, err := ParseStatementCSV(strings.NewReader(input), testAccount)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount")
}

func TestParseStatementCSVBadRow(t *testing.T) {
	input := "date,amount,description\nnot-a-date,-4.00,coffee\n"

	_, err := ParseStatementCSV(strings.NewReader(input), testAccount)
	assert.Error(t, err)
}

func TestGenerateHeaderMap(t *testing.T) {
	headerMap := generateHeaderMap([]string{"Date", " Amount ", "DESCRIPTION"})

	assert.Equal(t, 0, headerMap["date"])
	assert.Equal(t, 1, headerMap["amount"])
	assert.Equal(t, 2, headerMap["description"])
}
