package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// BankTransaction is one row synced from the banking aggregator. Rows are
// created by the sync task and only ever mutated to flip IsImported.
type BankTransaction struct {
	bun.BaseModel `bun:"table:bank_transactions"`
	ID            string          `bun:"id,pk"`
	UserID        string          `bun:"user_id,notnull"`
	AccountID     string          `bun:"account_id,notnull"`
	ProviderKey   string          `bun:"provider_key,unique,notnull"`
	Amount        decimal.Decimal `bun:"amount,type:numeric,notnull"`
	Currency      string          `bun:"currency"`
	BookedAt      time.Time       `bun:"booked_at"`
	MerchantName  string          `bun:"merchant_name"`
	Description   string          `bun:"description,type:text"`
	IsImported    bool            `bun:"is_imported,default:false"`
	CreatedAt     time.Time       `bun:"created_at,default:current_timestamp"`
	UpdatedAt     time.Time       `bun:"updated_at"`
}

// Entry is one imported line item. The table in the model tag is a template,
// inserts always override it with the routed monthly table. The unique
// bank_transaction_id back-reference is the duplicate import guard.
type Entry struct {
	bun.BaseModel     `bun:"table:monthly_entries"`
	ID                int64           `bun:"id,pk,autoincrement"`
	UserID            string          `bun:"user_id,notnull"`
	CategoryID        string          `bun:"category_id"`
	Amount            decimal.Decimal `bun:"amount,type:numeric,notnull"`
	Description       string          `bun:"description,type:text"`
	Date              time.Time       `bun:"date"`
	BankTransactionID string          `bun:"bank_transaction_id,unique,notnull"`
	CreatedAt         time.Time       `bun:"created_at,default:current_timestamp"`
}
