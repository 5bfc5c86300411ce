// Package server wires the budgeting API together and serves it over gin.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"k8s.io/klog"

	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/aichat"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/analytics"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/banksync"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/billing"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/categorize"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/config"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/gamification"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/importer"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/internal/ledger"
	"github.com/royvillasana/budget-blueprint-mobile-sub001/pkg/postgresutils"
)

// Runner is the main entry point for the server task.
type Runner struct{}

func (Runner) Run() error {
	db, err := postgresutils.CreatePostgresClient(config.CurrentSQLConfig().Database)
	if err != nil {
		return fmt.Errorf("failed to create postgres client: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	store := ledger.NewStore(db)
	categorizer := categorize.NewRuleCategorizer(db, config.CurrentCategorizeConfig().FallbackCategory)
	gameService := gamification.NewService(db, config.CurrentGamificationConfig().XPPerTransaction)
	billingService := billing.NewService(db)
	chatService := aichat.NewService(db, billingService, config.CurrentChatConfig().Model, config.CurrentChatConfig().FreeDailyMessages)

	for _, migrate := range []func(context.Context) error{
		store.Migrate,
		categorizer.Migrate,
		gameService.Migrate,
		billingService.Migrate,
		chatService.Migrate,
	} {
		if err := migrate(ctx); err != nil {
			return err
		}
	}

	stepTimeout := time.Duration(config.CurrentImportConfig().StepTimeoutSeconds) * time.Second
	imp := importer.New(store, categorizer, stepTimeout)

	bankClient := banksync.NewClient(config.CurrentBankingConfig().Endpoint, config.CurrentBankingSecrets().AccessToken)
	syncer := banksync.NewSyncer(db, bankClient)

	var recorder *analytics.Recorder
	if config.CurrentAnalyticsConfig().Enabled {
		recorder, err = analytics.NewRecorder()
		if err != nil {
			klog.Warningf("analytics disabled: %v", err)
			recorder = nil
		}
	}

	handler := &Handler{
		store:    store,
		importer: imp,
		syncer:   syncer,
		game:     gameService,
		chat:     chatService,
		recorder: recorder,
	}

	engine := setupRouter(handler, config.CurrentAuthSecrets().JWTSecret)

	address := config.CurrentServerConfig().Address
	if address == "" {
		address = ":8080"
	}

	klog.Infof("Listening on %s\n", address)

	return engine.Run(address)
}

func setupRouter(handler *Handler, jwtSecret string) *gin.Engine {
	if mode := config.CurrentServerConfig().Mode; mode != "" {
		gin.SetMode(mode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(AuthRequired(jwtSecret))

	api.POST("/import", handler.Import)
	api.GET("/transactions", handler.ListTransactions)
	api.POST("/transactions/upload", handler.UploadStatement)
	api.POST("/sync", handler.Sync)
	api.POST("/chat", handler.Chat)
	api.GET("/progress", handler.Progress)

	return r
}
