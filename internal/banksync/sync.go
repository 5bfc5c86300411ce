package banksync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"k8s.io/klog"

	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/config"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/ledger"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/pkg/postgresutils"
)

// Runner is the cron entry point for the sync task.
type Runner struct{}

func (Runner) Run() error {
	db, err := postgresutils.CreatePostgresClient(config.CurrentSQLConfig().Database)
	if err != nil {
		return fmt.Errorf("failed to create postgres client: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if err := ledger.NewStore(db).Migrate(ctx); err != nil {
		return err
	}

	client := NewClient(config.CurrentBankingConfig().Endpoint, config.CurrentBankingSecrets().AccessToken)

	return NewSyncer(db, client).SyncAll(ctx)
}

// Syncer persists aggregator transactions for linked accounts.
type Syncer struct {
	db     *bun.DB
	client *Client
}

func NewSyncer(db *bun.DB, client *Client) *Syncer {
	return &Syncer{db: db, client: client}
}

// SyncAll syncs every linked account from config.
func (s *Syncer) SyncAll(ctx context.Context) error {
	for _, account := range config.CurrentBankingConfig().Accounts {
		count, err := s.SyncAccount(ctx, account)
		if err != nil {
			return fmt.Errorf("error syncing account %s: %w", account.AccountID, err)
		}

		klog.Infof("Wrote %d transactions from account %s\n", count, account.AccountID)
	}

	return nil
}

// SyncUser syncs only the accounts linked by one user, used by the manual
// sync endpoint.
func (s *Syncer) SyncUser(ctx context.Context, userID string) (int, error) {
	total := 0

	for _, account := range config.CurrentBankingConfig().Accounts {
		if account.UserID != userID {
			continue
		}

		count, err := s.SyncAccount(ctx, account)
		if err != nil {
			return total, fmt.Errorf("error syncing account %s: %w", account.AccountID, err)
		}

		total += count
	}

	return total, nil
}

func (s *Syncer) SyncAccount(ctx context.Context, account config.LinkedAccount) (int, error) {
	since, err := s.lastBookedAt(ctx, account.AccountID)
	if err != nil {
		return 0, err
	}

	providerTransactions, err := s.client.Transactions(account.AccountID, since)
	if err != nil {
		return 0, err
	}

	rows := make([]ledger.BankTransaction, 0, len(providerTransactions))

	for _, providerTransaction := range providerTransactions {
		row, err := transactionRow(account, providerTransaction)
		if err != nil {
			return 0, err
		}

		rows = append(rows, *row)
	}

	return len(rows), s.InsertTransactions(ctx, rows)
}

// syncExcludedColumns are never overwritten by a re-sync: the row identity
// stays stable and the imported flag only ever moves through the import
// pipeline.
var syncExcludedColumns = []string{"id", "provider_key", "is_imported", "created_at"}

// InsertTransactions upserts synced rows on the provider key. The imported
// flag and row id are never clobbered by a re-sync.
func (s *Syncer) InsertTransactions(ctx context.Context, rows []ledger.BankTransaction) error {
	if len(rows) == 0 {
		return nil
	}

	batchSize := config.CurrentSQLConfig().BatchSize
	if batchSize == 0 {
		batchSize = 1000
	}

	for i := 0; i < len(rows); i += batchSize {
		endIndex := min(len(rows), i+batchSize)

		records := rows[i:endIndex]
		_, err := s.db.NewInsert().
			Model(&records).
			On("CONFLICT (provider_key) DO UPDATE").
			Set(postgresutils.TableSetString(s.db, (*ledger.BankTransaction)(nil), syncExcludedColumns...)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("error writing to sql: %w", err)
		}
	}

	return nil
}

func (s *Syncer) lastBookedAt(ctx context.Context, accountID string) (time.Time, error) {
	var last time.Time

	err := s.db.NewSelect().
		Model((*ledger.BankTransaction)(nil)).
		ColumnExpr("COALESCE(MAX(booked_at), 'epoch'::timestamptz)").
		Where("account_id = ?", accountID).
		Scan(ctx, &last)
	if err != nil {
		return time.Time{}, fmt.Errorf("error finding last synced transaction: %w", err)
	}

	if last.Unix() <= 0 {
		return time.Time{}, nil
	}

	return last, nil
}

func transactionRow(account config.LinkedAccount, providerTransaction ProviderTransaction) (*ledger.BankTransaction, error) {
	amount, err := decimal.NewFromString(providerTransaction.Amount)
	if err != nil {
		return nil, fmt.Errorf("unable to parse amount %q: %w", providerTransaction.Amount, err)
	}

	bookedAt, err := time.Parse("2006-01-02", providerTransaction.BookingDate)
	if err != nil {
		return nil, fmt.Errorf("unable to parse date: %s", err.Error())
	}

	currency := providerTransaction.Currency
	if currency == "" {
		currency = account.Currency
	}

	return &ledger.BankTransaction{
		ID:           uuid.NewString(),
		UserID:       account.UserID,
		AccountID:    account.AccountID,
		ProviderKey:  account.AccountID + ":" + providerTransaction.ID,
		Amount:       amount,
		Currency:     currency,
		BookedAt:     bookedAt,
		MerchantName: providerTransaction.MerchantName,
		Description:  providerTransaction.Description,
		UpdatedAt:    time.Now(),
	}, nil
}
