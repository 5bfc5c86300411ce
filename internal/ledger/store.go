package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// InsertOutcome makes the duplicate-vs-error branch of a ledger insert
// explicit instead of being inferred from error strings by callers.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota
	Duplicate
	Failed
)

const pgUniqueViolation = "23505"

// Store is the user scoped view over bank transactions and monthly tables.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the bank transaction table and all 24 monthly tables.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*BankTransaction)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating bank_transactions: %w", err)
	}

	for _, tableName := range AllTableNames() {
		_, err = s.db.NewCreateTable().Model((*Entry)(nil)).ModelTableExpr(tableName).IfNotExists().Exec(ctx)
		if err != nil {
			return fmt.Errorf("error creating %s: %w", tableName, err)
		}
	}

	return nil
}

// FetchByIDs resolves transaction ids to full rows, scoped to the user. Ids
// belonging to other users simply do not resolve.
func (s *Store) FetchByIDs(ctx context.Context, userID string, ids []string) ([]BankTransaction, error) {
	var transactions []BankTransaction

	err := s.db.NewSelect().
		Model(&transactions).
		Where("user_id = ?", userID).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("error fetching transactions: %w", err)
	}

	return transactions, nil
}

// List returns the user's synced transactions for the review UI, newest
// first. imported filters on the flag when non-nil.
func (s *Store) List(ctx context.Context, userID string, imported *bool, limit int) ([]BankTransaction, error) {
	var transactions []BankTransaction

	q := s.db.NewSelect().
		Model(&transactions).
		Where("user_id = ?", userID).
		Order("booked_at DESC")

	if imported != nil {
		q = q.Where("is_imported = ?", *imported)
	}

	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("error listing transactions: %w", err)
	}

	return transactions, nil
}

// MarkImported flips the imported flag on a source transaction. The flag
// never reverts.
func (s *Store) MarkImported(ctx context.Context, userID, id string) error {
	_, err := s.db.NewUpdate().
		Model((*BankTransaction)(nil)).
		Set("is_imported = TRUE").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error marking transaction %s imported: %w", id, err)
	}

	return nil
}

// InsertEntry writes a ledger entry into the routed monthly table. A unique
// violation on the back-reference is reported as Duplicate, not an error.
func (s *Store) InsertEntry(ctx context.Context, tableName string, entry *Entry) (InsertOutcome, error) {
	_, err := s.db.NewInsert().
		Model(entry).
		ModelTableExpr(tableName).
		Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return Duplicate, nil
		}

		return Failed, fmt.Errorf("error inserting into %s: %w", tableName, err)
	}

	return Inserted, nil
}

func isDuplicateKey(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation
}
