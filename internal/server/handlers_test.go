package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/importer"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/ledger"
)

type stubStore struct {
	transactions []ledger.BankTransaction
	inserted     []string
	marked       []string
}

func (s *stubStore) FetchByIDs(ctx context.Context, userID string, ids []string) ([]ledger.BankTransaction, error) {
	var out []ledger.BankTransaction
	for _, transaction := range s.transactions {
		if transaction.UserID != userID {
			continue
		}
		for _, id := range ids {
			if transaction.ID == id {
				out = append(out, transaction)
			}
		}
	}

	return out, nil
}

func (s *stubStore) MarkImported(ctx context.Context, userID, id string) error {
	s.marked = append(s.marked, id)
	return nil
}

func (s *stubStore) InsertEntry(ctx context.Context, tableName string, entry *ledger.Entry) (ledger.InsertOutcome, error) {
	s.inserted = append(s.inserted, tableName)
	return ledger.Inserted, nil
}

type stubCategorizer struct{}

func (stubCategorizer) Categorize(ctx context.Context, merchantName, description string, amount decimal.Decimal) (string, error) {
	return "uncategorized", nil
}

func importTestRouter(store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	handler := &Handler{importer: importer.New(store, stubCategorizer{}, 0)}

	r := gin.New()
	r.POST("/api/import", AuthRequired(testSecret), handler.Import)

	return r
}

func doImport(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+signedTokenForImport(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func signedTokenForImport(t *testing.T) string {
	return signedToken(t, testSecret, "user-1", time.Now().Add(time.Hour))
}

func TestImportEndpoint(t *testing.T) {
	store := &stubStore{transactions: []ledger.BankTransaction{
		{ID: "tx-1", UserID: "user-1", Amount: decimal.NewFromInt(100)},
		{ID: "tx-2", UserID: "user-1", Amount: decimal.NewFromInt(-40)},
	}}
	r := importTestRouter(store)

	w := doImport(t, r, `{"transactionIds":["tx-1","tx-2"],"year":2026,"month":7}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success  bool     `json:"success"`
		Imported int      `json:"imported"`
		Skipped  int      `json:"skipped"`
		Errors   []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Imported)
	assert.Equal(t, 0, resp.Skipped)
	assert.Nil(t, resp.Errors)
	assert.Equal(t, []string{"monthly_income_jul", "monthly_transactions_jul"}, store.inserted)
}

func TestImportEndpointValidation(t *testing.T) {
	r := importTestRouter(&stubStore{})

	w := doImport(t, r, `{"transactionIds":[],"year":2026,"month":7}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")

	w = doImport(t, r, `{"transactionIds":["tx-1"],"year":2026,"month":13}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportEndpointNotFound(t *testing.T) {
	r := importTestRouter(&stubStore{})

	w := doImport(t, r, `{"transactionIds":["nope"],"year":2026,"month":7}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportEndpointUnauthenticated(t *testing.T) {
	r := importTestRouter(&stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
