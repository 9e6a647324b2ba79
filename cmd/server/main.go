package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	billingapp "github.com/rentledger/backend/internal/application/billing"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/infrastructure/auth"
	"github.com/rentledger/backend/internal/infrastructure/cache"
	"github.com/rentledger/backend/internal/infrastructure/config"
	"github.com/rentledger/backend/internal/infrastructure/logger"
	"github.com/rentledger/backend/internal/infrastructure/persistence"
	"github.com/rentledger/backend/internal/infrastructure/scheduler"
	"github.com/rentledger/backend/internal/infrastructure/storage"
	"github.com/rentledger/backend/internal/infrastructure/telemetry"
	"github.com/rentledger/backend/internal/interfaces/http/handler"
	"github.com/rentledger/backend/internal/interfaces/http/router"
)

//	@title			RentLedger Backend API
//	@version		1.0
//	@description	Invoice lifecycle and payment reconciliation engine for rental billing

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting RentLedger Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	proofStorage, err := storage.NewProofImageStorage(cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize proof image storage", zap.Error(err))
	}

	// Repositories and unit of work
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	claimRepo := persistence.NewGormTransferClaimRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db)

	idempotencyCfg := shared.IdempotencyConfig{
		TTL:     cfg.Idempotency.TTL,
		Enabled: cfg.Idempotency.Enabled,
	}

	// Application services
	invoiceService := billingapp.NewInvoiceService(billingapp.InvoiceServiceConfig{
		InvoiceRepo:       invoiceRepo,
		ClaimRepo:         claimRepo,
		UnitOfWork:        uow,
		IdempotencyStore:  idempotencyStore,
		IdempotencyConfig: idempotencyCfg,
		Logger:            log,
	})
	reviewService := billingapp.NewTransferReviewService(billingapp.TransferReviewServiceConfig{
		InvoiceRepo:       invoiceRepo,
		ClaimRepo:         claimRepo,
		UnitOfWork:        uow,
		IdempotencyStore:  idempotencyStore,
		IdempotencyConfig: idempotencyCfg,
		Logger:            log,
	})
	instructionService := billingapp.NewPaymentInstructionService(invoiceRepo, billing.BankAccount{
		BankName:      cfg.Bank.BankName,
		AccountNumber: cfg.Bank.AccountNumber,
		AccountName:   cfg.Bank.AccountName,
		QRImageURL:    cfg.Bank.QRImageURL,
	})
	statsService := billingapp.NewBillingStatsService(invoiceRepo)
	proofService := billingapp.NewProofUploadService(proofStorage, cfg.Storage.PublicBaseURL, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	// Overdue sweeper
	var sweeper *scheduler.OverdueSweeper
	if cfg.Sweep.Enabled {
		sweeper, err = scheduler.NewOverdueSweeper(scheduler.SweeperConfig{
			Interval:     cfg.Sweep.Interval,
			BatchSize:    cfg.Sweep.BatchSize,
			SweepTimeout: scheduler.DefaultSweeperConfig().SweepTimeout,
		}, invoiceService, log)
		if err != nil {
			log.Fatal("Invalid sweeper configuration", zap.Error(err))
		}
		if err := sweeper.Start(ctx); err != nil {
			log.Fatal("Failed to start overdue sweeper", zap.Error(err))
		}
		log.Info("Overdue sweeper started",
			zap.Duration("interval", cfg.Sweep.Interval),
			zap.Int("batch_size", cfg.Sweep.BatchSize),
		)
	}

	engine, err := router.New(router.Options{
		Config:     cfg,
		Logger:     log,
		JWTService: jwtService,
		Handlers: router.Handlers{
			Invoice: handler.NewInvoiceHandler(invoiceService, instructionService),
			Claim:   handler.NewClaimHandler(reviewService, proofService),
			Stats:   handler.NewStatsHandler(statsService),
			System:  handler.NewSystemHandler(db, sweeper, version),
		},
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if sweeper != nil {
		if err := sweeper.Stop(shutdownCtx); err != nil {
			log.Error("Overdue sweeper shutdown failed", zap.Error(err))
		}
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer provider shutdown failed", zap.Error(err))
	}

	log.Info("Server stopped")
}
