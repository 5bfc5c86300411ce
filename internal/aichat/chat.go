// Package aichat is the budgeting assistant: classify the question, attach
// ledger context, ask the model.
package aichat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"google.golang.org/genai"

	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/billing"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/ledger"
)

// ErrQuotaExceeded means a free tier user is out of messages for today.
var ErrQuotaExceeded = errors.New("daily chat message quota exceeded")

const DefaultModelName = "gemini-2.0-flash"

// ChatMessage persists the conversation, and doubles as the quota counter
// for free tier users.
type ChatMessage struct {
	bun.BaseModel `bun:"table:chat_messages"`
	ID            int64     `bun:"id,pk,autoincrement"`
	UserID        string    `bun:"user_id,notnull"`
	Intent        string    `bun:"intent"`
	Question      string    `bun:"question,type:text"`
	Answer        string    `bun:"answer,type:text"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp"`
}

type Service struct {
	db        *bun.DB
	billing   *billing.Service
	model     string
	freeDaily int
}

func NewService(db *bun.DB, billingService *billing.Service, model string, freeDailyMessages int) *Service {
	if model == "" {
		model = DefaultModelName
	}

	if freeDailyMessages <= 0 {
		freeDailyMessages = 10
	}

	return &Service{
		db:        db,
		billing:   billingService,
		model:     model,
		freeDaily: freeDailyMessages,
	}
}

func (s *Service) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*ChatMessage)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating chat_messages: %w", err)
	}

	return nil
}

// Ask answers one budgeting question for the user.
func (s *Service) Ask(ctx context.Context, userID, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("question must not be empty")
	}

	if err := s.checkQuota(ctx, userID); err != nil {
		return "", err
	}

	intent := ClassifyQuery(question)

	prompt, err := s.buildPrompt(ctx, userID, intent, question)
	if err != nil {
		return "", err
	}

	answer, err := s.generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	message := &ChatMessage{
		UserID:    userID,
		Intent:    string(intent),
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}
	if _, err := s.db.NewInsert().Model(message).Exec(ctx); err != nil {
		return "", fmt.Errorf("error saving chat message: %w", err)
	}

	return answer, nil
}

func (s *Service) checkQuota(ctx context.Context, userID string) error {
	premium, err := s.billing.IsPremium(ctx, userID)
	if err != nil {
		return err
	}

	if premium {
		return nil
	}

	midnight := startOfDay(time.Now())

	count, err := s.db.NewSelect().
		Model((*ChatMessage)(nil)).
		Where("user_id = ?", userID).
		Where("created_at >= ?", midnight).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("error counting chat messages: %w", err)
	}

	if count >= s.freeDaily {
		return ErrQuotaExceeded
	}

	return nil
}

// startOfDay is midnight in the time's own location, truncating through UTC
// would shift the quota window by the server's timezone offset.
func startOfDay(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func (s *Service) buildPrompt(ctx context.Context, userID string, intent Intent, question string) (string, error) {
	var b strings.Builder

	b.WriteString("You are a friendly personal budgeting assistant.\n")
	b.WriteString("Answer briefly and concretely, using the user's own numbers when provided.\n\n")

	if intent == IntentSpendingSummary || intent == IntentBudgetStatus {
		summary, err := s.monthlySummary(ctx, userID, time.Now())
		if err != nil {
			return "", err
		}

		if summary != "" {
			b.WriteString("Current month spending by category:\n")
			b.WriteString(summary)
			b.WriteString("\n")
		}
	}

	b.WriteString("Question: ")
	b.WriteString(question)

	return b.String(), nil
}

type categoryTotal struct {
	CategoryID string          `bun:"category_id"`
	Total      decimal.Decimal `bun:"total"`
}

// monthlySummary aggregates the current month's expense table by category.
func (s *Service) monthlySummary(ctx context.Context, userID string, now time.Time) (string, error) {
	tableName, err := ledger.TableName(ledger.Expense, int(now.Month()))
	if err != nil {
		return "", err
	}

	var totals []categoryTotal

	err = s.db.NewSelect().
		TableExpr(tableName).
		ColumnExpr("category_id").
		ColumnExpr("SUM(amount) AS total").
		Where("user_id = ?", userID).
		GroupExpr("category_id").
		OrderExpr("total DESC").
		Scan(ctx, &totals)
	if err != nil {
		return "", fmt.Errorf("error summarizing %s: %w", tableName, err)
	}

	var b strings.Builder
	for _, total := range totals {
		fmt.Fprintf(&b, "- %s: %s\n", total.CategoryID, total.Total.StringFixed(2))
	}

	return b.String(), nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	answer := resp.Text()
	if answer == "" {
		return "", errors.New("empty response from model")
	}

	return answer, nil
}
