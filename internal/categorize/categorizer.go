// Package categorize assigns category ids to bank transactions from a user
// maintained rule table keyed on merchant name, description and amount sign.
package categorize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ErrNoMatch is returned when no rule matches and no fallback category is
// configured.
var ErrNoMatch = errors.New("no categorization rule matched")

const (
	SignAny    = "any"
	SignCredit = "credit"
	SignDebit  = "debit"
)

// Categorizer is the lookup contract consumed by the import pipeline. It is
// side effect free, a failure surfaces as a per-transaction import error.
type Categorizer interface {
	Categorize(ctx context.Context, merchantName, description string, amount decimal.Decimal) (string, error)
}

// Rule maps a keyword to a category. Higher priority rules win. AmountSign
// restricts a rule to credits or debits, "any" matches both.
type Rule struct {
	bun.BaseModel `bun:"table:categorization_rules"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Keyword       string    `bun:"keyword,notnull"`
	AmountSign    string    `bun:"amount_sign,default:'any'"`
	CategoryID    string    `bun:"category_id,notnull"`
	Priority      int       `bun:"priority,default:0"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp"`
}

// RuleCategorizer looks rules up in postgres. fallback, when non-empty, is
// returned instead of ErrNoMatch so unmatched transactions still land in an
// uncategorized bucket.
type RuleCategorizer struct {
	db       *bun.DB
	fallback string
}

func NewRuleCategorizer(db *bun.DB, fallbackCategory string) *RuleCategorizer {
	return &RuleCategorizer{db: db, fallback: fallbackCategory}
}

func (c *RuleCategorizer) Migrate(ctx context.Context) error {
	_, err := c.db.NewCreateTable().Model((*Rule)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating categorization_rules: %w", err)
	}

	return nil
}

func (c *RuleCategorizer) Categorize(ctx context.Context, merchantName, description string, amount decimal.Decimal) (string, error) {
	var rules []Rule

	err := c.db.NewSelect().
		Model(&rules).
		Where("amount_sign IN (?)", bun.In([]string{SignAny, signFor(amount)})).
		Order("priority DESC").
		Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("error loading categorization rules: %w", err)
	}

	return c.resolve(rules, merchantName, description)
}

// resolve picks the matched category, falling back to the configured
// uncategorized bucket, or ErrNoMatch when no fallback is set.
func (c *RuleCategorizer) resolve(rules []Rule, merchantName, description string) (string, error) {
	if categoryID, ok := matchRules(rules, merchantName, description); ok {
		return categoryID, nil
	}

	if c.fallback != "" {
		return c.fallback, nil
	}

	return "", ErrNoMatch
}

// matchRules returns the category of the first rule whose keyword appears in
// the merchant name or description. Rules must already be in priority order.
func matchRules(rules []Rule, merchantName, description string) (string, bool) {
	merchant := strings.ToLower(merchantName)
	desc := strings.ToLower(description)

	for _, rule := range rules {
		keyword := strings.ToLower(rule.Keyword)
		if keyword == "" {
			continue
		}

		if strings.Contains(merchant, keyword) || strings.Contains(desc, keyword) {
			return rule.CategoryID, true
		}
	}

	return "", false
}

func signFor(amount decimal.Decimal) string {
	if amount.Sign() > 0 {
		return SignCredit
	}

	return SignDebit
}
