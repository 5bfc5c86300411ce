package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/ledger"
)

type fakeStore struct {
	transactions map[string]*ledger.BankTransaction
	entries      map[string][]ledger.Entry
	insertErr    map[string]error
	markErr      map[string]error
}

func newFakeStore(transactions ...*ledger.BankTransaction) *fakeStore {
	s := &fakeStore{
		transactions: map[string]*ledger.BankTransaction{},
		entries:      map[string][]ledger.Entry{},
		insertErr:    map[string]error{},
		markErr:      map[string]error{},
	}
	for _, transaction := range transactions {
		s.transactions[transaction.ID] = transaction
	}

	return s
}

func (s *fakeStore) FetchByIDs(ctx context.Context, userID string, ids []string) ([]ledger.BankTransaction, error) {
	var out []ledger.BankTransaction
	for _, id := range ids {
		if transaction, ok := s.transactions[id]; ok && transaction.UserID == userID {
			out = append(out, *transaction)
		}
	}

	return out, nil
}

func (s *fakeStore) MarkImported(ctx context.Context, userID, id string) error {
	if err := s.markErr[id]; err != nil {
		return err
	}

	s.transactions[id].IsImported = true

	return nil
}

func (s *fakeStore) InsertEntry(ctx context.Context, tableName string, entry *ledger.Entry) (ledger.InsertOutcome, error) {
	if err := s.insertErr[entry.BankTransactionID]; err != nil {
		return ledger.Failed, err
	}

	for _, existing := range s.entries {
		for _, e := range existing {
			if e.BankTransactionID == entry.BankTransactionID {
				return ledger.Duplicate, nil
			}
		}
	}

	s.entries[tableName] = append(s.entries[tableName], *entry)

	return ledger.Inserted, nil
}

func (s *fakeStore) entryCount() int {
	n := 0
	for _, entries := range s.entries {
		n += len(entries)
	}

	return n
}

type fakeCategorizer struct {
	category string
	err      error
}

func (c *fakeCategorizer) Categorize(ctx context.Context, merchantName, description string, amount decimal.Decimal) (string, error) {
	if c.err != nil {
		return "", c.err
	}

	return c.category, nil
}

func bankTransaction(id, userID string, amount float64, imported bool) *ledger.BankTransaction {
	return &ledger.BankTransaction{
		ID:           id,
		UserID:       userID,
		AccountID:    "acc-1",
		ProviderKey:  "prov-" + id,
		Amount:       decimal.NewFromFloat(amount),
		Currency:     "EUR",
		BookedAt:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		MerchantName: "Merchant " + id,
		IsImported:   imported,
	}
}

func TestImportMixedBatch(t *testing.T) {
	store := newFakeStore(
		bankTransaction("tx-1", "user-1", 0, true),
		bankTransaction("tx-2", "user-1", 50.00, false),
		bankTransaction("tx-3", "user-1", -12.30, false),
	)
	imp := New(store, &fakeCategorizer{category: "groceries"}, 0)

	result, err := imp.Import(context.Background(), "user-1", Request{
		TransactionIDs: []string{"tx-1", "tx-2", "tx-3"},
		Year:           2026,
		Month:          3,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Nil(t, result.Errors)

	income := store.entries["monthly_income_mar"]
	require.Len(t, income, 1)
	assert.Equal(t, "tx-2", income[0].BankTransactionID)
	assert.Equal(t, "50", income[0].Amount.String())
	assert.Equal(t, "groceries", income[0].CategoryID)

	expense := store.entries["monthly_transactions_mar"]
	require.Len(t, expense, 1)
	assert.Equal(t, "tx-3", expense[0].BankTransactionID)
	assert.Equal(t, "12.3", expense[0].Amount.String())

	assert.True(t, store.transactions["tx-2"].IsImported)
	assert.True(t, store.transactions["tx-3"].IsImported)
}

func TestImportIdempotence(t *testing.T) {
	store := newFakeStore(
		bankTransaction("tx-1", "user-1", 20, false),
		bankTransaction("tx-2", "user-1", -5, false),
	)
	imp := New(store, &fakeCategorizer{category: "misc"}, 0)
	req := Request{TransactionIDs: []string{"tx-1", "tx-2"}, Year: 2026, Month: 12}

	first, err := imp.Import(context.Background(), "user-1", req)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)

	second, err := imp.Import(context.Background(), "user-1", req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Skipped)
	assert.Nil(t, second.Errors)
	assert.Equal(t, 2, store.entryCount())
}

func TestImportDuplicateBackReferenceCountsAsSkip(t *testing.T) {
	// entry exists but the imported flag was never flipped, e.g. a
	// concurrent import won the insert race
	transaction := bankTransaction("tx-1", "user-1", -9.99, false)
	store := newFakeStore(transaction)
	store.entries["monthly_transactions_jan"] = []ledger.Entry{{BankTransactionID: "tx-1"}}

	imp := New(store, &fakeCategorizer{category: "misc"}, 0)
	result, err := imp.Import(context.Background(), "user-1", Request{
		TransactionIDs: []string{"tx-1"}, Year: 2026, Month: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Nil(t, result.Errors)
	// a pre-existing duplicate still flips the flag
	assert.True(t, transaction.IsImported)
}

func TestImportInsertFailureLeavesFlagForRetry(t *testing.T) {
	store := newFakeStore(
		bankTransaction("tx-1", "user-1", -4, false),
		bankTransaction("tx-2", "user-1", -6, false),
	)
	store.insertErr["tx-1"] = errors.New("connection reset")

	imp := New(store, &fakeCategorizer{category: "misc"}, 0)
	result, err := imp.Import(context.Background(), "user-1", Request{
		TransactionIDs: []string{"tx-1", "tx-2"}, Year: 2026, Month: 6,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "tx-1")

	assert.False(t, store.transactions["tx-1"].IsImported)
	assert.True(t, store.transactions["tx-2"].IsImported)
}

func TestImportCategorizationFailureIsPerTransaction(t *testing.T) {
	store := newFakeStore(bankTransaction("tx-1", "user-1", -4, false))
	imp := New(store, &fakeCategorizer{err: errors.New("rules unavailable")}, 0)

	result, err := imp.Import(context.Background(), "user-1", Request{
		TransactionIDs: []string{"tx-1"}, Year: 2026, Month: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Imported)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "categorization failed")
	assert.Equal(t, 0, store.entryCount())
	assert.False(t, store.transactions["tx-1"].IsImported)
}

func TestImportValidation(t *testing.T) {
	store := newFakeStore(bankTransaction("tx-1", "user-1", -4, false))
	imp := New(store, &fakeCategorizer{category: "misc"}, 0)

	tests := []struct {
		name string
		req  Request
	}{
		{"empty ids", Request{Year: 2026, Month: 3}},
		{"missing year", Request{TransactionIDs: []string{"tx-1"}, Month: 3}},
		{"month zero", Request{TransactionIDs: []string{"tx-1"}, Year: 2026, Month: 0}},
		{"month thirteen", Request{TransactionIDs: []string{"tx-1"}, Year: 2026, Month: 13}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := imp.Import(context.Background(), "user-1", tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, 0, store.entryCount())
		})
	}
}

func TestImportNoResolvedTransactions(t *testing.T) {
	store := newFakeStore(bankTransaction("tx-1", "someone-else", -4, false))
	imp := New(store, &fakeCategorizer{category: "misc"}, 0)

	_, err := imp.Import(context.Background(), "user-1", Request{
		TransactionIDs: []string{"tx-1", "tx-unknown"}, Year: 2026, Month: 3,
	})
	assert.ErrorIs(t, err, ErrNoTransactions)
}

func TestImportTallyInvariant(t *testing.T) {
	store := newFakeStore(
		bankTransaction("tx-1", "user-1", 10, false),
		bankTransaction("tx-2", "user-1", -20, true),
		bankTransaction("tx-3", "user-1", 30, false),
		bankTransaction("tx-4", "user-1", -40, false),
	)
	imp := New(store, &fakeCategorizer{category: "misc"}, 0)

	result, err := imp.Import(context.Background(), "user-1", Request{
		TransactionIDs: []string{"tx-1", "tx-2", "tx-3", "tx-4"},
		Year:           2026,
		Month:          9,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, result.Imported+result.Skipped)
	for _, transaction := range store.transactions {
		assert.True(t, transaction.IsImported)
	}
}
