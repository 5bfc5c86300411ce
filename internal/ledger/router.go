package ledger

import "fmt"

// Kind selects which family of monthly tables an entry lands in.
type Kind string

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	incomeTablePrefix  = "monthly_income_"
	expenseTablePrefix = "monthly_transactions_"
)

var monthSuffixes = [12]string{
	"jan", "feb", "mar", "apr", "may", "jun",
	"jul", "aug", "sep", "oct", "nov", "dec",
}

// MonthSuffix maps a 1-12 month number to its three letter table suffix.
func MonthSuffix(month int) (string, error) {
	if month < 1 || month > 12 {
		return "", fmt.Errorf("month must be between 1 and 12, got %d", month)
	}

	return monthSuffixes[month-1], nil
}

// TableName resolves the physical monthly table for a ledger kind and month.
func TableName(kind Kind, month int) (string, error) {
	suffix, err := MonthSuffix(month)
	if err != nil {
		return "", err
	}

	switch kind {
	case Income:
		return incomeTablePrefix + suffix, nil
	case Expense:
		return expenseTablePrefix + suffix, nil
	default:
		return "", fmt.Errorf("unknown ledger kind %q", kind)
	}
}

// AllTableNames returns every monthly table, both kinds, used by migrations.
func AllTableNames() []string {
	names := make([]string, 0, len(monthSuffixes)*2)
	for _, suffix := range monthSuffixes {
		names = append(names, incomeTablePrefix+suffix, expenseTablePrefix+suffix)
	}

	return names
}
