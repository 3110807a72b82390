package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"birthday_reminder_service/internal/app"
	"birthday_reminder_service/internal/domain/email"
	"birthday_reminder_service/internal/domain/notification"
	domainTelegram "birthday_reminder_service/internal/domain/telegram"
	"birthday_reminder_service/internal/infra/config"
	idb "birthday_reminder_service/internal/infra/database"
	emailinfra "birthday_reminder_service/internal/infra/email"
	fs "birthday_reminder_service/internal/infra/firestore"
	"birthday_reminder_service/internal/infra/httpapi"
	"birthday_reminder_service/internal/infra/logger"
	"birthday_reminder_service/internal/infra/scheduler"
	tginfra "birthday_reminder_service/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	log := logger.Get()
	log.WithField("environment", cfg.Environment).Info("Birthday reminder service starting...")

	ctx := context.Background()

	// Firestore backs the rosters, the in-app channel and (by default)
	// the ledger.
	fsClient, err := fs.NewClient(ctx, cfg.GoogleCloudProject)
	if err != nil {
		log.Fatalf("Could not create Firestore client: %v", err)
	}
	defer fsClient.Close()

	churchRepo := fs.NewChurchRepositoryFS(fsClient)
	memberRepo := fs.NewMemberRepositoryFS(fsClient)
	userRepo := fs.NewUserRepositoryFS(fsClient)
	groupRepo := fs.NewGroupRepositoryFS(fsClient)
	inAppNotifier := fs.NewInAppNotifierFS(fsClient)

	var ledger notification.Repository
	if cfg.LedgerBackend == config.LedgerBackendPostgres {
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Could not connect to ledger database: %v", err)
		}
		defer db.Close()
		ledger = idb.NewPostgresLedgerRepository(db)
		log.Info("Postgres ledger store initialized.")
	} else {
		ledger = fs.NewLedgerRepositoryFS(fsClient)
		log.Info("Firestore ledger store initialized.")
	}

	// Email channel is additive: no API key means in-app only.
	var emailSender email.Sender
	if cfg.SendGridAPIKey != "" {
		emailSender = emailinfra.NewSendGridSender(
			cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName, cfg.EmailSendDelay, log)
		log.Info("SendGrid email sender initialized.")
	} else {
		log.Warn("SENDGRID_API_KEY not set; email channel disabled globally.")
	}

	engine := app.NewReminderEngine(ledger, inAppNotifier, emailSender, log).
		WithBatchTimeout(cfg.EmailBatchTimeout)
	coordinator := app.NewCoordinator(churchRepo, memberRepo, userRepo, groupRepo, engine, cfg.BirthdayOffsets, log)
	maintenance := app.NewMaintenanceService(ledger, log)

	// Optional ops reporting over Telegram.
	var opsClient domainTelegram.Client
	if cfg.TelegramToken != "" {
		bot, err := telebot.NewBot(telebot.Settings{Token: cfg.TelegramToken})
		if err != nil {
			log.Fatalf("Could not create Telegram bot: %v", err)
		}
		opsClient = tginfra.NewTelebotAdapter(bot)
		log.Info("Telegram ops reporting initialized.")
	}

	sched := scheduler.NewReminderScheduler(coordinator, opsClient, cfg.OpsChatID, cfg.CronSpecDaily, log)
	if err := sched.Start(); err != nil {
		log.Fatalf("Could not start scheduler: %v", err)
	}

	server := httpapi.NewServer(cfg.HTTPAddr, coordinator, maintenance, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	log.Info("Application setup complete.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}
	log.Info("Application shut down gracefully.")
}
