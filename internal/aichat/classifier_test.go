package aichat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		question string
		intent   Intent
	}{
		{"How much did I spend on groceries this month?", IntentSpendingSummary},
		{"where did my money go", IntentSpendingSummary},
		{"What are my biggest expenses?", IntentSpendingSummary},
		{"Am I on track with my budget?", IntentBudgetStatus},
		{"how much budget is remaining for dining", IntentBudgetStatus},
		{"Have I overspent this month?", IntentBudgetStatus},
		{"What's a good savings rate?", IntentGeneral},
		{"hello", IntentGeneral},
		{"", IntentGeneral},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.intent, ClassifyQuery(tt.question), "question: %q", tt.question)
	}
}
