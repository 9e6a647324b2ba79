// Package router assembles the HTTP surface: middleware chain, health
// endpoints and the versioned billing API.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rentledger/backend/internal/infrastructure/auth"
	"github.com/rentledger/backend/internal/infrastructure/config"
	"github.com/rentledger/backend/internal/infrastructure/logger"
	"github.com/rentledger/backend/internal/interfaces/http/handler"
	"github.com/rentledger/backend/internal/interfaces/http/middleware"
)

// Handlers groups the handlers mounted by the router
type Handlers struct {
	Invoice *handler.InvoiceHandler
	Claim   *handler.ClaimHandler
	Stats   *handler.StatsHandler
	System  *handler.SystemHandler
}

// Options holds the router dependencies
type Options struct {
	Config     *config.Config
	Logger     *zap.Logger
	JWTService *auth.JWTService
	Handlers   Handlers
}

// New builds the gin engine with the full middleware chain and all routes
func New(opts Options) (*gin.Engine, error) {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			return nil, err
		}
	}

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
	)

	// Probes stay outside authentication
	engine.GET("/health", opts.Handlers.System.Health)
	engine.GET("/healthz", opts.Handlers.System.Health)
	engine.GET("/ping", opts.Handlers.System.Ping)

	api := engine.Group("/api/v1")
	api.Use(
		middleware.JWTAuthMiddleware(opts.JWTService),
		middleware.SpanEnricher(),
	)

	registerBillingRoutes(api, opts.Handlers)

	return engine, nil
}

func registerBillingRoutes(api *gin.RouterGroup, h Handlers) {
	invoices := api.Group("/invoices")
	{
		invoices.POST("", h.Invoice.CreateInvoice)
		invoices.GET("", h.Invoice.ListInvoices)
		invoices.GET("/by-number/:number", h.Invoice.GetInvoiceByNumber)
		invoices.GET("/:id", h.Invoice.GetInvoice)
		invoices.POST("/:id/issue", h.Invoice.IssueInvoice)
		invoices.POST("/:id/payments", h.Invoice.RecordPayment)
		invoices.POST("/:id/cancel", middleware.RequireLandlord(), h.Invoice.CancelInvoice)
		invoices.GET("/:id/payment-instructions", h.Invoice.GetPaymentInstructions)

		invoices.POST("/:id/claims", h.Claim.SubmitClaim)
		invoices.GET("/:id/claims", h.Claim.ListClaims)
		invoices.POST("/:id/claims/proof-upload", h.Claim.RequestProofUpload)
	}

	claims := api.Group("/claims")
	{
		claims.GET("/pending", middleware.RequireLandlord(), h.Claim.ListPendingClaims)
		claims.GET("/:id", h.Claim.GetClaim)
		claims.POST("/:id/review", middleware.RequireLandlord(), h.Claim.ReviewClaim)
	}

	stats := api.Group("/stats")
	{
		stats.GET("/reconciliation", h.Stats.GetReconciliationStats)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireLandlord())
	{
		admin.POST("/sweeps/overdue", h.System.TriggerOverdueSweep)
	}
}
