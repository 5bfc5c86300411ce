package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog"

	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/aichat"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/analytics"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/banksync"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/config"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/gamification"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/importer"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/ledger"
)

type Handler struct {
	store    *ledger.Store
	importer *importer.Importer
	syncer   *banksync.Syncer
	game     *gamification.Service
	chat     *aichat.Service
	recorder *analytics.Recorder
}

// Import runs the transaction import pipeline for the caller's selection.
func (h *Handler) Import(c *gin.Context) {
	var req importer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	userID := currentUserID(c)

	result, err := h.importer.Import(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, importer.ErrNoTransactions):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			klog.Errorf("import failed for user %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		}

		return
	}

	if h.game != nil {
		if _, err := h.game.AwardImport(c.Request.Context(), userID, result.Imported); err != nil {
			klog.Warningf("failed to award xp for user %s: %v", userID, err)
		}
	}

	if h.recorder != nil {
		h.recorder.RecordImport(userID, req.Year, req.Month, result.Imported, result.Skipped, len(result.Errors))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"errors":   result.Errors,
	})
}

// ListTransactions returns synced transactions for the review UI.
func (h *Handler) ListTransactions(c *gin.Context) {
	var imported *bool
	if raw, ok := c.GetQuery("imported"); ok {
		value := raw == "true"
		imported = &value
	}

	transactions, err := h.store.List(c.Request.Context(), currentUserID(c), imported, 500)
	if err != nil {
		klog.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// UploadStatement imports a manually exported CSV statement into the
// caller's synced transactions, deduped on the statement key.
func (h *Handler) UploadStatement(c *gin.Context) {
	accountID := c.Query("accountId")

	account, ok := linkedAccount(currentUserID(c), accountID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such linked account"})
		return
	}

	rows, err := banksync.ParseStatementCSV(c.Request.Body, account)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.syncer.InsertTransactions(c.Request.Context(), rows); err != nil {
		klog.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(rows)})
}

// Sync pulls fresh transactions from the aggregator for the caller's linked
// accounts.
func (h *Handler) Sync(c *gin.Context) {
	count, err := h.syncer.SyncUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		klog.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "synced": count})
}

// Chat answers a budgeting question through the assistant.
func (h *Handler) Chat(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	answer, err := h.chat.Ask(c.Request.Context(), currentUserID(c), req.Message)
	if err != nil {
		if errors.Is(err, aichat.ErrQuotaExceeded) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}

		klog.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "assistant unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// Progress reports the caller's XP, level and badges.
func (h *Handler) Progress(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)

	progress, err := h.game.Progress(ctx, userID)
	if err != nil {
		klog.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load progress"})
		return
	}

	badges, err := h.game.Badges(ctx, userID)
	if err != nil {
		klog.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load badges"})
		return
	}

	badgeNames := make([]string, 0, len(badges))
	for _, badge := range badges {
		badgeNames = append(badgeNames, badge.Name)
	}

	c.JSON(http.StatusOK, gin.H{
		"xp":                   progress.XP,
		"level":                progress.Level,
		"transactionsImported": progress.TransactionsImported,
		"badges":               badgeNames,
	})
}

func linkedAccount(userID, accountID string) (config.LinkedAccount, bool) {
	for _, account := range config.CurrentBankingConfig().Accounts {
		if account.UserID == userID && account.AccountID == accountID {
			return account, true
		}
	}

	return config.LinkedAccount{}, false
}
