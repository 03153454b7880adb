package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/autodirecto/autodirecto-engine/pkg/auth"
	"github.com/autodirecto/autodirecto-engine/pkg/config"
	"github.com/autodirecto/autodirecto-engine/pkg/crm"
	"github.com/autodirecto/autodirecto-engine/pkg/database"
	"github.com/autodirecto/autodirecto-engine/pkg/handlers"
	"github.com/autodirecto/autodirecto-engine/pkg/logging"
	"github.com/autodirecto/autodirecto-engine/pkg/middleware"
	"github.com/autodirecto/autodirecto-engine/pkg/repositories"
	"github.com/autodirecto/autodirecto-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("datastore_configured", cfg.Datastore.IsConfigured()),
		zap.String("crm", cfg.CRM.BaseURL),
		zap.String("quotes", cfg.Quotes.BaseURL))

	// The datastore is optional: without it the service still serves the
	// wizard in demo mode and answers match requests with a distinct
	// "not configured" condition.
	var matcher services.MatcherService
	var appointments services.AppointmentService
	var listings repositories.ListingRepository

	if cfg.Datastore.IsConfigured() {
		connString, err := cfg.Datastore.ConnectionString()
		if err != nil {
			logger.Fatal("Invalid datastore URL", zap.Error(err))
		}

		ctx := context.Background()
		db, err := database.NewConnection(ctx, &database.Config{
			URL:            connString,
			MaxConnections: cfg.Datastore.MaxConnections,
		})
		if err != nil {
			logger.Fatal("Failed to connect to datastore",
				zap.String("url", logging.SanitizeConnectionString(cfg.Datastore.URL)),
				zap.String("error", logging.SanitizeError(err)))
		}
		defer db.Close()

		if err := database.RunMigrations(connString, cfg.Datastore.MigrationsPath, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
		}

		apptRepo := repositories.NewAppointmentRepository(db)
		matcher = services.NewMatcherService(apptRepo, logger)
		appointments = services.NewAppointmentService(apptRepo, logger)
		listings = repositories.NewListingRepository(db)
	} else {
		logger.Warn("Datastore not configured, running in degraded mode")
	}

	sessions := auth.NewSessionStore(cfg.Admin.SessionSecret, cfg.Admin.SessionTTLHours*3600, cfg.Admin.SecureCookies)
	crmClient := crm.NewClient(&cfg.CRM, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewBridgeHandler(matcher, logger).RegisterRoutes(mux)
	handlers.NewAppointmentsHandler(appointments, sessions, logger).RegisterRoutes(mux)
	handlers.NewListingsHandler(listings, logger).RegisterRoutes(mux)
	handlers.NewAdminHandler(crmClient, sessions, logger).RegisterRoutes(mux)
	handlers.NewQuotesHandler(&cfg.Quotes, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting autodirecto-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
