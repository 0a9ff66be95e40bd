package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/audit"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/config"
	apphttp "github.com/barswebadmin/BigAppleRecSports-sub003/internal/http"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/mailer"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/messaging"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/notifier"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/orderstore"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/refund"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/storage"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/workflow"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	// interaction audit log is optional; everything else works without it
	var auditStore *audit.Store
	if cfg.DBDSN != "" {
		db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		auditStore = audit.NewStore(db, logger)
	} else {
		logger.Warn("DB_DSN not set; interaction audit log disabled")
	}

	schedule := refund.DefaultSchedule()
	if cfg.ScheduleFile != "" {
		schedule, err = refund.LoadScheduleFile(cfg.ScheduleFile)
		if err != nil {
			log.Fatalf("refund schedule: %v", err)
		}
	}

	archive, err := storage.FromEnv(ctx)
	if err != nil {
		log.Fatalf("archive storage: %v", err)
	}
	logger.Info("submission archive ready", "driver", archive.Driver)

	var mail mailer.Service
	switch cfg.MailerDriver {
	case "mailtrap":
		mail = mailer.NewMailtrapMailer(cfg.MailtrapAPIURL, cfg.MailtrapAPIKey)
	case "mock":
		mail = &mailer.Mock{}
	default:
		mail = mailer.NewSMTPMailer(cfg.SMTP)
	}
	notify := notifier.New(mail, cfg.SMTP.FromName, cfg.SMTP.FromEmail, cfg.OperatorEmail, logger)

	store := orderstore.NewClient(cfg.OrderStore, logger)
	gateway := messaging.NewSlackGateway(cfg.Slack)
	engine := workflow.NewEngine(store, refund.NewCalculator(schedule), gateway, notify, cfg.Slack.ChannelID, logger)

	r := apphttp.NewRouter(apphttp.RouterDeps{
		Logger:  logger,
		Config:  cfg,
		Engine:  engine,
		Audit:   auditStore,
		Archive: archive.Storage,
		Notify:  notify,
	})

	logger.Info("listening", "addr", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
