package banksync

import (
	"bufio"
	"crypto/sha1"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/config"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/ledger"
)

// ParseStatementCSV reads a manually exported bank statement into bank
// transaction rows for the given linked account. Expected columns: date,
// amount, description, optional merchant and currency, matched by header
// name case insensitively.
func ParseStatementCSV(r io.Reader, account config.LinkedAccount) ([]ledger.BankTransaction, error) {
	reader := csv.NewReader(bufio.NewReader(r))

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv header %w", err)
	}

	headerMap := generateHeaderMap(header)

	for _, required := range []string{"date", "amount", "description"} {
		if _, ok := headerMap[required]; !ok {
			return nil, fmt.Errorf("csv is missing required column %q", required)
		}
	}

	var rows []ledger.BankTransaction

	for {
		line, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to parse csv row %w", err)
		}

		row, err := statementRow(line, headerMap, account)
		if err != nil {
			return nil, err
		}

		rows = append(rows, *row)
	}

	return rows, nil
}

func statementRow(line []string, headerMap map[string]int, account config.LinkedAccount) (*ledger.BankTransaction, error) {
	getKey := func(key string) string {
		index, ok := headerMap[key]
		if !ok || index >= len(line) {
			return ""
		}

		return strings.TrimSpace(line[index])
	}

	bookedAt, err := time.Parse("2006-01-02", getKey("date"))
	if err != nil {
		return nil, fmt.Errorf("unable to parse date: %s", err.Error())
	}

	amount, err := decimal.NewFromString(getKey("amount"))
	if err != nil {
		return nil, fmt.Errorf("unable to parse amount %q: %w", getKey("amount"), err)
	}

	currency := getKey("currency")
	if currency == "" {
		currency = account.Currency
	}

	return &ledger.BankTransaction{
		ID:           uuid.NewString(),
		UserID:       account.UserID,
		AccountID:    account.AccountID,
		ProviderKey:  statementKey(account.AccountID, getKey("date"), getKey("amount"), getKey("description")),
		Amount:       amount,
		Currency:     currency,
		BookedAt:     bookedAt,
		MerchantName: getKey("merchant"),
		Description:  getKey("description"),
		UpdatedAt:    time.Now(),
	}, nil
}

// statementKey is deterministic so re-uploading the same statement dedupes on
// the provider key instead of creating duplicate rows.
func statementKey(accountID, date, amount, description string) string {
	sum := sha1.Sum([]byte(accountID + "|" + date + "|" + amount + "|" + description))
	return "csv:" + hex.EncodeToString(sum[:])
}

// generateHeaderMap maps lower cased header names to their column index.
func generateHeaderMap(header []string) map[string]int {
	headerMap := make(map[string]int, len(header))
	for i, name := range header {
		headerMap[strings.ToLower(strings.TrimSpace(name))] = i
	}

	return headerMap
}
