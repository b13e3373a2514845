package main // Entry point package

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/confiado/confiado-api/internal/anchor"
	"github.com/confiado/confiado-api/internal/config"
	"github.com/confiado/confiado-api/internal/confirmation"
	"github.com/confiado/confiado-api/internal/database"
	"github.com/confiado/confiado-api/internal/handler"
	"github.com/confiado/confiado-api/internal/logging"
	"github.com/confiado/confiado-api/internal/queue"
	"github.com/confiado/confiado-api/internal/repository"
	"github.com/confiado/confiado-api/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env wins

	logger := logging.Setup(envOr("LOG_LEVEL", "info"), envOr("LOG_FORMAT", "text"))
	cfg := config.Load()

	// Two handles to the same database. The restricted account serves the
	// general repositories; the elevated one is handed only to the
	// confirmation store, which is what makes the public decision endpoint
	// able to write rows the session user could not.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	elevated, err := database.Open(cfg.DBElevatedUser, cfg.DBElevatedPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open elevated database: %v", err)
	}

	if err := database.Migrate(elevated); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient() // nil disables caching and rate limiting

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	debts := repository.NewDebtRepo(db)
	payments := repository.NewPaymentRepo(db)
	dashboard := repository.NewDashboardRepo(db)
	anchors := repository.NewAnchorRepo(db)
	confirmations := repository.NewConfirmationRepo(elevated)

	confirmSvc := confirmation.NewService(cfg.Confirmation, confirmations, logger)
	anchorSvc := anchor.NewService(payments, anchors, logger)

	h := router.Handlers{
		Auth: handler.NewAuthHandler(cfg, users, tokens),
		Debts: &handler.DebtHandler{
			Debts:         debts,
			Payments:      payments,
			Users:         users,
			Profiles:      profiles,
			Dashboard:     dashboard,
			Confirmations: confirmSvc,
			Log:           logger,
		},
		Payments:  &handler.PaymentHandler{Debts: debts, Payments: payments, Logger: logger},
		Confirm:   &handler.ConfirmHandler{Confirmations: confirmSvc},
		Dashboard: &handler.DashboardHandler{Dashboard: dashboard},
		Profile:   &handler.ProfileHandler{Profiles: profiles},
		Anchors:   &handler.AnchorHandler{Anchors: anchorSvc, Repo: anchors},
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterAll(e, h, cfg.JWTSecret, rdb)

	// Invite notifications drain in the background; the consumer reconnects
	// on broker failures and never takes the API down with it.
	go queue.StartInviteConsumer()

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
