package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	audithandler "github.com/travelflow/travelflow-backend/internal/audit/handler"
	auditrepo "github.com/travelflow/travelflow-backend/internal/audit/repository"
	auditservice "github.com/travelflow/travelflow-backend/internal/audit/service"
	expenseevents "github.com/travelflow/travelflow-backend/internal/expense/events"
	"github.com/travelflow/travelflow-backend/internal/expense/export"
	expensehandler "github.com/travelflow/travelflow-backend/internal/expense/handler"
	expenserepo "github.com/travelflow/travelflow-backend/internal/expense/repository"
	expenseservice "github.com/travelflow/travelflow-backend/internal/expense/service"
	identityhandler "github.com/travelflow/travelflow-backend/internal/identity/handler"
	"github.com/travelflow/travelflow-backend/internal/identity/jwt"
	identityrepo "github.com/travelflow/travelflow-backend/internal/identity/repository"
	identityservice "github.com/travelflow/travelflow-backend/internal/identity/service"
	policyhandler "github.com/travelflow/travelflow-backend/internal/policy/handler"
	policyrepo "github.com/travelflow/travelflow-backend/internal/policy/repository"
	policyservice "github.com/travelflow/travelflow-backend/internal/policy/service"
	travelevents "github.com/travelflow/travelflow-backend/internal/travel/events"
	travelhandler "github.com/travelflow/travelflow-backend/internal/travel/handler"
	travelrepo "github.com/travelflow/travelflow-backend/internal/travel/repository"
	travelservice "github.com/travelflow/travelflow-backend/internal/travel/service"
	"github.com/travelflow/travelflow-backend/migrations"
	"github.com/travelflow/travelflow-backend/pkg/config"
	"github.com/travelflow/travelflow-backend/pkg/database"
	"github.com/travelflow/travelflow-backend/pkg/httputil"
	"github.com/travelflow/travelflow-backend/pkg/logger"
	"github.com/travelflow/travelflow-backend/pkg/messaging"
	"github.com/travelflow/travelflow-backend/pkg/storage"
)

const serviceName = "travel-service"

func main() {
	// Load configuration with validation (fails fast in production if secrets are defaults)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment).SetLevel(cfg.Server.LogLevel)
	log.Info().Msg("starting Travel Service")

	// Apply migrations
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.DSN(), migrations.FS, log); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publishers
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeTravelEvents, serviceName, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	travelPublisher := travelevents.NewTravelEventPublisher(publisher, log)
	reportPublisher := expenseevents.NewReportEventPublisher(publisher, log)

	// Initialize repositories
	orgRepo := identityrepo.NewOrganizationRepository(db)
	profileRepo := identityrepo.NewProfileRepository(db)
	invitationRepo := identityrepo.NewInvitationRepository(db)
	auditRepo := auditrepo.NewAuditRepository(db)

	// Initialize services
	tokens := jwt.NewManager(&cfg.JWT)
	auditService := auditservice.NewAuditService(auditRepo, log)
	authService := identityservice.NewAuthService(profileRepo, orgRepo, tokens, log)
	orgService := identityservice.NewOrganizationService(orgRepo, profileRepo, db, auditService, log)
	userService := identityservice.NewUserService(profileRepo, db, log)
	invitationService := identityservice.NewInvitationService(invitationRepo, profileRepo, orgRepo, db, log)

	policyService := policyservice.NewPolicyService(
		policyrepo.NewGradeRepository(db),
		policyrepo.NewRuleRepository(db),
		policyrepo.NewRestrictionRepository(db),
		policyrepo.NewCustomRuleRepository(db),
		db,
		auditService,
		log,
	)

	expenseService := expenseservice.NewExpenseService(
		expenseservice.Stores{
			Reports:  expenserepo.NewReportRepository(db),
			Expenses: expenserepo.NewExpenseRepository(db),
			Rates:    expenserepo.NewExchangeRateRepository(db),
			Receipts: expenserepo.NewReceiptRepository(db),
		},
		profileRepo,
		orgRepo,
		storage.NewSigner(&cfg.Storage),
		db,
		reportPublisher,
		log,
	)

	if cfg.Export.FontRegular != "" {
		font, err := export.LoadFont(cfg.Export.FontFamily, cfg.Export.FontRegular, cfg.Export.FontBold)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load export font")
		}
		expenseService.SetFont(font)
	}

	chainRepo := travelrepo.NewChainRepository(db)
	travelService := travelservice.NewTravelService(
		travelservice.Stores{
			Requests:        travelrepo.NewRequestRepository(db),
			Approvals:       travelrepo.NewApprovalRepository(db),
			Violations:      travelrepo.NewViolationRepository(db),
			Chains:          chainRepo,
			ApprovedTravels: travelrepo.NewApprovedTravelRepository(db),
		},
		profileRepo,
		policyService,
		expenseService,
		expenseService,
		db,
		travelPublisher,
		log,
	)
	chainService := travelservice.NewChainService(chainRepo, profileRepo, db, auditService, log)

	// Initialize handlers
	authHandler := identityhandler.NewAuthHandler(authService, log)
	orgHandler := identityhandler.NewOrganizationHandler(orgService, log)
	userHandler := identityhandler.NewUserHandler(userService, log)
	invitationHandler := identityhandler.NewInvitationHandler(invitationService, log)
	policyHandler := policyhandler.NewPolicyHandler(policyService, log)
	auditHandler := audithandler.NewAuditHandler(auditService, log)
	travelHandler := travelhandler.NewTravelHandler(travelService, log)
	chainHandler := travelhandler.NewChainHandler(chainService, log)
	reportHandler := expensehandler.NewReportHandler(expenseService, log)

	publicLimit, err := httputil.RateLimit(cfg.RateLimit.Public, log)
	if err != nil {
		log.Fatal().Err(err).Str("rate", cfg.RateLimit.Public).Msg("invalid public rate limit")
	}
	loginLimit, err := httputil.RateLimit(cfg.RateLimit.Login, log)
	if err != nil {
		log.Fatal().Err(err).Str("rate", cfg.RateLimit.Login).Msg("invalid login rate limit")
	}

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimit).Post("/login", authHandler.Login)
			r.With(publicLimit).Post("/refresh", authHandler.Refresh)
		})
		r.Route("/public", func(r chi.Router) {
			r.Use(publicLimit)
			r.Post("/organizations", orgHandler.Register)
			r.Route("/invitations", invitationHandler.PublicRoutes)
		})

		// Session routes
		r.Group(func(r chi.Router) {
			r.Use(httputil.Authenticate(tokens))

			r.Get("/me", authHandler.Me)
			r.Route("/organization", orgHandler.Routes)
			r.Route("/users", userHandler.Routes)
			r.Route("/invitations", invitationHandler.Routes)
			r.Route("/policy", func(r chi.Router) {
				policyHandler.Routes(r)
				r.Route("/audit", auditHandler.Routes)
			})
			r.Route("/approval-chains", chainHandler.Routes)
			r.Route("/travel-requests", travelHandler.Routes)
			r.Route("/approvals", travelHandler.ApprovalRoutes)
			r.Route("/approved-travels", travelHandler.ApprovedTravelRoutes)
			r.Route("/reports", reportHandler.Routes)
			r.Route("/receipts", reportHandler.ReceiptRoutes)
			r.Route("/exchange-rates", reportHandler.RateRoutes)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
