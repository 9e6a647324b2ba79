package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	billingapp "github.com/rentledger/backend/internal/application/billing"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/infrastructure/auth"
	"github.com/rentledger/backend/internal/infrastructure/cache"
	"github.com/rentledger/backend/internal/infrastructure/config"
	"github.com/rentledger/backend/internal/infrastructure/persistence"
	"github.com/rentledger/backend/internal/infrastructure/persistence/models"
	"github.com/rentledger/backend/internal/infrastructure/storage"
	"github.com/rentledger/backend/internal/interfaces/http/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type routerFixture struct {
	engine     *gin.Engine
	jwtService *auth.JWTService
	tenantID   uuid.UUID
}

func setupRouter(t *testing.T) *routerFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.InvoiceModel{}, &models.TransferClaimModel{}))

	database := &persistence.Database{DB: db}
	invoiceRepo := persistence.NewGormInvoiceRepository(db)
	claimRepo := persistence.NewGormTransferClaimRepository(db)
	uow := persistence.NewGormUnitOfWork(database)
	idempotency := cache.NewInMemoryIdempotencyStore()

	invoiceService := billingapp.NewInvoiceService(billingapp.InvoiceServiceConfig{
		InvoiceRepo:       invoiceRepo,
		ClaimRepo:         claimRepo,
		UnitOfWork:        uow,
		IdempotencyStore:  idempotency,
		IdempotencyConfig: shared.DefaultIdempotencyConfig(),
	})
	reviewService := billingapp.NewTransferReviewService(billingapp.TransferReviewServiceConfig{
		InvoiceRepo:       invoiceRepo,
		ClaimRepo:         claimRepo,
		UnitOfWork:        uow,
		IdempotencyStore:  idempotency,
		IdempotencyConfig: shared.DefaultIdempotencyConfig(),
	})
	instructionService := billingapp.NewPaymentInstructionService(invoiceRepo, billing.BankAccount{
		BankName:      "Vietcombank",
		AccountNumber: "0071000123456",
		AccountName:   "NGUYEN VAN A",
	})
	statsService := billingapp.NewBillingStatsService(invoiceRepo)
	proofService := billingapp.NewProofUploadService(
		storage.NewStubProofImageStorage(""), "https://storage.example.com", nil)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "router-test-secret-key-32-chars!",
		AccessTokenExpiration: time.Minute,
		Issuer:                "test",
	})

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.HTTP.MaxBodySize = 1 << 20
	cfg.Telemetry.ServiceName = "rentledger-test"

	engine, err := New(Options{
		Config:     cfg,
		JWTService: jwtService,
		Handlers: Handlers{
			Invoice: handler.NewInvoiceHandler(invoiceService, instructionService),
			Claim:   handler.NewClaimHandler(reviewService, proofService),
			Stats:   handler.NewStatsHandler(statsService),
			System:  handler.NewSystemHandler(database, nil, "test"),
		},
	})
	require.NoError(t, err)

	return &routerFixture{
		engine:     engine,
		jwtService: jwtService,
		tenantID:   uuid.New(),
	}
}

func (f *routerFixture) token(t *testing.T, role string) string {
	t.Helper()
	token, _, err := f.jwtService.GenerateToken(auth.GenerateTokenInput{
		TenantID: f.tenantID,
		UserID:   uuid.New(),
		Role:     role,
	})
	require.NoError(t, err)
	return token
}

func (f *routerFixture) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthWithoutAuth(t *testing.T) {
	f := setupRouter(t)

	for _, path := range []string{"/health", "/healthz", "/ping"} {
		w := f.request(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouter_APIRequiresToken(t *testing.T) {
	f := setupRouter(t)

	w := f.request(t, http.MethodGet, "/api/v1/invoices", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_InvoiceFlowWithToken(t *testing.T) {
	f := setupRouter(t)
	token := f.token(t, auth.RoleLandlord)

	w := f.request(t, http.MethodPost, "/api/v1/invoices", token, billingapp.CreateInvoiceRequest{
		ContractID:  uuid.New(),
		RoomID:      uuid.New(),
		RenterID:    uuid.New(),
		PeriodMonth: 8,
		PeriodYear:  2026,
		Subtotal:    decimal.NewFromInt(2_000_000),
		DueDate:     time.Now().AddDate(0, 0, 14),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.request(t, http.MethodGet, "/api/v1/invoices", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_LandlordOnlyRoutes(t *testing.T) {
	f := setupRouter(t)
	renterToken := f.token(t, auth.RoleRenter)

	t.Run("renter cannot review claims", func(t *testing.T) {
		w := f.request(t, http.MethodPost, "/api/v1/claims/"+uuid.NewString()+"/review", renterToken, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("renter cannot see the pending queue", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/v1/claims/pending", renterToken, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("renter cannot cancel invoices", func(t *testing.T) {
		w := f.request(t, http.MethodPost, "/api/v1/invoices/"+uuid.NewString()+"/cancel", renterToken, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("landlord reaches the pending queue", func(t *testing.T) {
		w := f.request(t, http.MethodGet, "/api/v1/claims/pending", f.token(t, auth.RoleLandlord), nil)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRouter_SecurityHeaders(t *testing.T) {
	f := setupRouter(t)

	w := f.request(t, http.MethodGet, "/ping", "", nil)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
