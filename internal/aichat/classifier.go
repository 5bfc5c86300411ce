package aichat

import "regexp"

// Intent is the coarse classification of a chat question, used to decide
// which ledger context gets attached to the prompt.
type Intent string

const (
	IntentSpendingSummary Intent = "spending_summary"
	IntentBudgetStatus    Intent = "budget_status"
	IntentGeneral         Intent = "general"
)

var intentPatterns = []struct {
	intent Intent
	re     *regexp.Regexp
}{
	{IntentSpendingSummary, regexp.MustCompile(`(?i)\b(spen[dt]|spending|expenses?|costs?|paid)\b|where .* money`)},
	{IntentBudgetStatus, regexp.MustCompile(`(?i)\b(budget|remaining|left over|over ?spent|limits?|on track)\b`)},
}

// ClassifyQuery maps a free form question to an intent. First pattern wins,
// anything unmatched is general.
func ClassifyQuery(question string) Intent {
	for _, pattern := range intentPatterns {
		if pattern.re.MatchString(question) {
			return pattern.intent
		}
	}

	return IntentGeneral
}
