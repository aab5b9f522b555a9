package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/thinhlal/mutrapro-system-sub005/internal/auth"
	"github.com/thinhlal/mutrapro-system-sub005/internal/config"
	"github.com/thinhlal/mutrapro-system-sub005/internal/db"
	"github.com/thinhlal/mutrapro-system-sub005/internal/esign"
	"github.com/thinhlal/mutrapro-system-sub005/internal/excel"
	httphandler "github.com/thinhlal/mutrapro-system-sub005/internal/http"
	"github.com/thinhlal/mutrapro-system-sub005/internal/http/middleware"
	"github.com/thinhlal/mutrapro-system-sub005/internal/logger"
	"github.com/thinhlal/mutrapro-system-sub005/internal/pdf"
	"github.com/thinhlal/mutrapro-system-sub005/internal/pricing"
	"github.com/thinhlal/mutrapro-system-sub005/internal/repository"
	"github.com/thinhlal/mutrapro-system-sub005/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	contractRepo := repository.NewContractRepository(database)
	pricingClient := pricing.NewClient(cfg.Clients.PricingBaseURL)
	esignClient := esign.NewClient(cfg.Clients.EsignBaseURL)

	workflow := service.NewWorkflow(contractRepo, pricingClient)

	go runExpirySweep(workflow, cfg, log)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(
		workflow,
		esignClient,
		pdf.NewGenerator(),
		excel.NewGenerator(),
		cfg.Payments.WebhookSecret,
		log,
	)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting contracts service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

// runExpirySweep periodically expires signed contracts whose deposit never arrived.
func runExpirySweep(workflow *service.Workflow, cfg *config.Config, log zerolog.Logger) {
	ticker := time.NewTicker(cfg.Contracts.SweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		expired, err := workflow.ExpireStaleSigned(ctx, cfg.Contracts.SignExpiry)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("expiry sweep failed")
			continue
		}
		if expired > 0 {
			log.Info().Int("contracts", expired).Msg("expired stale signed contracts")
		}
	}
}
