// Package gamification tracks XP, levels and badges earned by keeping the
// budget up to date.
package gamification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Progress is the per user rollup shown in the app header.
type Progress struct {
	bun.BaseModel        `bun:"table:user_progress"`
	UserID               string    `bun:"user_id,pk"`
	XP                   int64     `bun:"xp,default:0"`
	Level                int       `bun:"level,default:1"`
	TransactionsImported int64     `bun:"transactions_imported,default:0"`
	UpdatedAt            time.Time `bun:"updated_at"`
}

type XPEvent struct {
	bun.BaseModel `bun:"table:xp_events"`
	ID            int64     `bun:"id,pk,autoincrement"`
	UserID        string    `bun:"user_id,notnull"`
	Amount        int64     `bun:"amount,notnull"`
	Reason        string    `bun:"reason"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp"`
}

type Badge struct {
	bun.BaseModel `bun:"table:badges"`
	ID            int64     `bun:"id,pk,autoincrement"`
	UserID        string    `bun:"user_id,notnull,unique:badges_user_name"`
	Name          string    `bun:"name,notnull,unique:badges_user_name"`
	EarnedAt      time.Time `bun:"earned_at,default:current_timestamp"`
}

const (
	BadgeFirstImport = "first_import"
	BadgeCentury     = "century"
	BadgeLevelFive   = "level_five"
)

// cumulative XP needed to reach level index+1
var levelThresholds = []int64{0, 100, 250, 500, 1000, 2000, 4000, 8000}

// LevelForXP maps total XP to a level, starting at 1.
func LevelForXP(xp int64) int {
	level := 1
	for i, threshold := range levelThresholds {
		if xp >= threshold {
			level = i + 1
		}
	}

	return level
}

// badgesEarned returns the badge names a progress state qualifies for.
func badgesEarned(progress *Progress) []string {
	var earned []string

	if progress.TransactionsImported >= 1 {
		earned = append(earned, BadgeFirstImport)
	}

	if progress.TransactionsImported >= 100 {
		earned = append(earned, BadgeCentury)
	}

	if progress.Level >= 5 {
		earned = append(earned, BadgeLevelFive)
	}

	return earned
}

type Service struct {
	db               *bun.DB
	xpPerTransaction int64
}

func NewService(db *bun.DB, xpPerTransaction int) *Service {
	if xpPerTransaction <= 0 {
		xpPerTransaction = 10
	}

	return &Service{db: db, xpPerTransaction: int64(xpPerTransaction)}
}

func (s *Service) Migrate(ctx context.Context) error {
	for _, model := range []interface{}{(*Progress)(nil), (*XPEvent)(nil), (*Badge)(nil)} {
		_, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		if err != nil {
			return fmt.Errorf("error creating gamification table: %w", err)
		}
	}

	return nil
}

// AwardImport records XP for a finished import batch and refreshes the
// user's level and badges. imported of zero is a no-op.
func (s *Service) AwardImport(ctx context.Context, userID string, imported int) (*Progress, error) {
	progress, err := s.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}

	if imported <= 0 {
		return progress, nil
	}

	xp := s.applyImport(progress, imported)

	event := &XPEvent{
		UserID:    userID,
		Amount:    xp,
		Reason:    fmt.Sprintf("imported %d transactions", imported),
		CreatedAt: time.Now(),
	}
	if _, err := s.db.NewInsert().Model(event).Exec(ctx); err != nil {
		return nil, fmt.Errorf("error recording xp event: %w", err)
	}

	_, err = s.db.NewInsert().
		Model(progress).
		On("CONFLICT (user_id) DO UPDATE").
		Set("xp = EXCLUDED.xp, level = EXCLUDED.level, transactions_imported = EXCLUDED.transactions_imported, updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("error updating progress: %w", err)
	}

	if err := s.awardBadges(ctx, progress); err != nil {
		return nil, err
	}

	return progress, nil
}

// applyImport accrues imported × xpPerTransaction onto the rollup and
// refreshes the level. Returns the XP granted.
func (s *Service) applyImport(progress *Progress, imported int) int64 {
	xp := int64(imported) * s.xpPerTransaction

	progress.XP += xp
	progress.TransactionsImported += int64(imported)
	progress.Level = LevelForXP(progress.XP)
	progress.UpdatedAt = time.Now()

	return xp
}

// Progress loads the user's rollup, returning a fresh level 1 row when the
// user has never imported anything.
func (s *Service) Progress(ctx context.Context, userID string) (*Progress, error) {
	progress := &Progress{UserID: userID, Level: 1}

	err := s.db.NewSelect().
		Model(progress).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		// new user, nothing imported yet
		return &Progress{UserID: userID, Level: 1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading progress: %w", err)
	}

	return progress, nil
}

// Badges lists the badges a user has earned.
func (s *Service) Badges(ctx context.Context, userID string) ([]Badge, error) {
	var badges []Badge

	err := s.db.NewSelect().
		Model(&badges).
		Where("user_id = ?", userID).
		Order("earned_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing badges: %w", err)
	}

	return badges, nil
}

func (s *Service) awardBadges(ctx context.Context, progress *Progress) error {
	for _, name := range badgesEarned(progress) {
		badge := &Badge{UserID: progress.UserID, Name: name, EarnedAt: time.Now()}

		_, err := s.db.NewInsert().
			Model(badge).
			On("CONFLICT (user_id, name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("error awarding badge %s: %w", name, err)
		}
	}

	return nil
}
