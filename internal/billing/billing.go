// Package billing is the read side of subscription state. Payments and
// webhooks live with the payment processor, this only answers "is this user
// premium right now".
package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

const (
	TierFree    = "free"
	TierPremium = "premium"

	StatusActive = "active"
)

type Subscription struct {
	bun.BaseModel    `bun:"table:subscriptions"`
	UserID           string    `bun:"user_id,pk"`
	Tier             string    `bun:"tier,default:'free'"`
	Status           string    `bun:"status"`
	CurrentPeriodEnd time.Time `bun:"current_period_end"`
	UpdatedAt        time.Time `bun:"updated_at"`
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*Subscription)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating subscriptions: %w", err)
	}

	return nil
}

// IsPremium reports whether the user has an active premium subscription. No
// subscription row means free tier.
func (s *Service) IsPremium(ctx context.Context, userID string) (bool, error) {
	subscription := &Subscription{}

	err := s.db.NewSelect().
		Model(subscription).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error loading subscription: %w", err)
	}

	return subscription.Tier == TierPremium &&
		subscription.Status == StatusActive &&
		subscription.CurrentPeriodEnd.After(time.Now()), nil
}
