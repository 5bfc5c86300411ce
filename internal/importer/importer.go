// Package importer moves selected bank transactions into the monthly ledger
// tables: categorize, route by sign, insert with a duplicate guard, flip the
// source imported flag, tally the outcome.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/categorize"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/ledger"
)

var (
	// ErrInvalidRequest aborts the whole request before any side effect.
	ErrInvalidRequest = errors.New("invalid import request")
	// ErrNoTransactions means none of the requested ids resolved for the caller.
	ErrNoTransactions = errors.New("no transactions found for the requested ids")
)

// TransactionStore is the subset of the ledger store the orchestrator needs.
type TransactionStore interface {
	FetchByIDs(ctx context.Context, userID string, ids []string) ([]ledger.BankTransaction, error)
	MarkImported(ctx context.Context, userID, id string) error
	InsertEntry(ctx context.Context, tableName string, entry *ledger.Entry) (ledger.InsertOutcome, error)
}

// Request is a caller selected batch of transactions and the target ledger
// month.
type Request struct {
	TransactionIDs []string `json:"transactionIds"`
	Year           int      `json:"year"`
	Month          int      `json:"month"`
}

// Result tallies one import invocation. Errors stays nil when every
// transaction imported or skipped cleanly.
type Result struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

type Importer struct {
	store       TransactionStore
	categorizer categorize.Categorizer
	stepTimeout time.Duration
}

// New creates an import orchestrator. stepTimeout bounds each remote call,
// zero disables the deadline.
func New(store TransactionStore, categorizer categorize.Categorizer, stepTimeout time.Duration) *Importer {
	return &Importer{
		store:       store,
		categorizer: categorizer,
		stepTimeout: stepTimeout,
	}
}

// Import processes the batch sequentially. Transactions fail or succeed
// independently, partial success is the designed behavior: only validation
// and the upfront fetch abort the request.
func (imp *Importer) Import(ctx context.Context, userID string, req Request) (*Result, error) {
	if len(req.TransactionIDs) == 0 {
		return nil, fmt.Errorf("%w: transactionIds must not be empty", ErrInvalidRequest)
	}

	if req.Year == 0 {
		return nil, fmt.Errorf("%w: year is required", ErrInvalidRequest)
	}

	if _, err := ledger.MonthSuffix(req.Month); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	fetchCtx, cancel := imp.stepContext(ctx)
	transactions, err := imp.store.FetchByIDs(fetchCtx, userID, req.TransactionIDs)
	cancel()
	if err != nil {
		return nil, err
	}

	if len(transactions) == 0 {
		return nil, ErrNoTransactions
	}

	result := &Result{}
	for i := range transactions {
		imp.importOne(ctx, userID, &transactions[i], req.Month, result)
	}

	return result, nil
}

func (imp *Importer) importOne(ctx context.Context, userID string, transaction *ledger.BankTransaction, month int, result *Result) {
	// idempotence guard, rows only ever go not-imported -> imported
	if transaction.IsImported {
		result.Skipped++
		return
	}

	stepCtx, cancel := imp.stepContext(ctx)
	categoryID, err := imp.categorizer.Categorize(stepCtx, transaction.MerchantName, transaction.Description, transaction.Amount)
	cancel()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: categorization failed: %v", transaction.ID, err))
		return
	}

	kind := ledger.Expense
	if transaction.Amount.Sign() > 0 {
		kind = ledger.Income
	}

	tableName, err := ledger.TableName(kind, month)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", transaction.ID, err))
		return
	}

	entry := &ledger.Entry{
		UserID:            userID,
		CategoryID:        categoryID,
		Amount:            transaction.Amount.Abs(),
		Description:       entryDescription(transaction),
		Date:              transaction.BookedAt,
		BankTransactionID: transaction.ID,
	}

	stepCtx, cancel = imp.stepContext(ctx)
	outcome, err := imp.store.InsertEntry(stepCtx, tableName, entry)
	cancel()

	switch outcome {
	case ledger.Inserted:
		result.Imported++
	case ledger.Duplicate:
		// a concurrent or earlier import already created this entry
		result.Skipped++
	case ledger.Failed:
		// leave the imported flag untouched so a later call can retry
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", transaction.ID, err))
		return
	}

	stepCtx, cancel = imp.stepContext(ctx)
	err = imp.store.MarkImported(stepCtx, userID, transaction.ID)
	cancel()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: entry written but flag update failed: %v", transaction.ID, err))
	}
}

func (imp *Importer) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if imp.stepTimeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, imp.stepTimeout)
}

func entryDescription(transaction *ledger.BankTransaction) string {
	if transaction.Description != "" {
		return transaction.Description
	}

	return transaction.MerchantName
}
