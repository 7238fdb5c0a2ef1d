package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"armonia/internal/api"
	"armonia/internal/chatstore"
	"armonia/internal/config"
	"armonia/internal/database"
	"armonia/internal/events"
	"armonia/internal/repositories"
	"armonia/internal/services"
	"armonia/internal/utils"
	"armonia/pkg/logger"
)

func main() {
	// .env is optional; the environment wins either way.
	_ = utils.LoadEnv()
	cfg := config.Load()

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}

	app := buildApp(cfg, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.startup(ctx)
	defer app.shutdown()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("fatal", zap.Error(err))
		os.Exit(1)
	}
}

// newLogger picks the human-readable console logger for dev builds and
// structured JSON for prod builds.
func newLogger(level string) (*logger.Logger, error) {
	if database.IsDevelopment() {
		return logger.NewDevelopment()
	}
	return logger.New(level)
}

func buildApp(cfg *config.Config, log *logger.Logger) *App {
	var repo repositories.ConversationRepository
	var dbClose func() error

	db, err := database.Init(database.Config{
		Path:     cfg.DBPath,
		LogLevel: gormlogger.Warn,
	})
	if err != nil {
		// Chat still works without persistence; history just will not survive.
		log.Warn("chat history disabled", zap.Error(err))
		repo = repositories.NewNoopConversationRepository()
	} else {
		repo = repositories.NewConversationRepository(db)
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			dbClose = sqlDB.Close
		}
	}

	store := chatstore.New(repo, log)
	creds := services.NewCredentialService(log)
	client := api.NewClient(cfg.APIBaseURL, creds)

	chat := services.NewChatService(store, client, log)
	chat.SetHistoryTTL(cfg.HistoryTTL)
	chat.SetKnowledgeBase(cfg.KnowledgeBaseID)

	sidebar := services.NewSidebarService(store, chat, log)
	cleanup := services.NewCleanupServiceWithInterval(chat, log, cfg.CleanupInterval)

	events.SetCustomEmitter(func(ctx context.Context, evt events.ChatEvent) {
		log.Debug("chat event",
			zap.String("type", string(evt.Type)),
			zap.String("chat_id", evt.ChatID),
			zap.Int64("deleted", evt.Deleted),
		)
	})

	app := NewApp(cfg, log, client, chat, sidebar, cleanup, os.Stdin, os.Stdout)
	app.dbClose = dbClose
	return app
}
