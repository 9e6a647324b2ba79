package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	billingapp "github.com/rentledger/backend/internal/application/billing"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/infrastructure/cache"
	"github.com/rentledger/backend/internal/infrastructure/persistence"
	"github.com/rentledger/backend/internal/infrastructure/persistence/models"
	"github.com/rentledger/backend/internal/infrastructure/storage"
	"github.com/rentledger/backend/internal/interfaces/http/dto"
)

// handlerFixture wires handlers to real services over an in-memory database.
// Requests authenticate through the development header fallback.
type handlerFixture struct {
	router   *gin.Engine
	tenantID uuid.UUID
	userID   uuid.UUID
}

func setupHandlerTest(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	invoiceHandler := NewInvoiceHandler(invoiceService, instructionService)
	claimHandler := NewClaimHandler(reviewService, proofService)
	statsHandler := NewStatsHandler(statsService)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.POST("/invoices", invoiceHandler.CreateInvoice)
	v1.GET("/invoices", invoiceHandler.ListInvoices)
	v1.GET("/invoices/:id", invoiceHandler.GetInvoice)
	v1.GET("/invoices/by-number/:number", invoiceHandler.GetInvoiceByNumber)
	v1.POST("/invoices/:id/issue", invoiceHandler.IssueInvoice)
	v1.POST("/invoices/:id/payments", invoiceHandler.RecordPayment)
	v1.POST("/invoices/:id/cancel", invoiceHandler.CancelInvoice)
	v1.GET("/invoices/:id/payment-instructions", invoiceHandler.GetPaymentInstructions)
	v1.POST("/invoices/:id/claims", claimHandler.SubmitClaim)
	v1.GET("/invoices/:id/claims", claimHandler.ListClaims)
	v1.POST("/invoices/:id/claims/proof-upload", claimHandler.RequestProofUpload)
	v1.GET("/claims/pending", claimHandler.ListPendingClaims)
	v1.GET("/claims/:id", claimHandler.GetClaim)
	v1.POST("/claims/:id/review", claimHandler.ReviewClaim)
	v1.GET("/stats/reconciliation", statsHandler.GetReconciliationStats)

	return &handlerFixture{
		router:   router,
		tenantID: uuid.New(),
		userID:   uuid.New(),
	}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", f.tenantID.String())
	req.Header.Set("X-User-ID", f.userID.String())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) envelope {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Data, "expected a data payload, got: %s", w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
	return env
}

// createDraft creates a draft invoice through the API and returns it
func (f *handlerFixture) createDraft(t *testing.T, subtotal int64) billingapp.InvoiceResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/invoices", billingapp.CreateInvoiceRequest{
		ContractID:  uuid.New(),
		RoomID:      uuid.New(),
		RenterID:    uuid.New(),
		PeriodMonth: 8,
		PeriodYear:  2026,
		Subtotal:    decimal.NewFromInt(subtotal),
		DueDate:     time.Now().AddDate(0, 0, 14),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var inv billingapp.InvoiceResponse
	decodeData(t, w, &inv)
	return inv
}

// createSent creates a draft and issues it
func (f *handlerFixture) createSent(t *testing.T, subtotal int64) billingapp.InvoiceResponse {
	t.Helper()
	draft := f.createDraft(t, subtotal)

	w := f.do(t, http.MethodPost, "/api/v1/invoices/"+draft.ID.String()+"/issue", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var inv billingapp.InvoiceResponse
	decodeData(t, w, &inv)
	return inv
}

// submitClaim submits a transfer claim for an invoice
func (f *handlerFixture) submitClaim(t *testing.T, invoiceID uuid.UUID) billingapp.TransferClaimResponse {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/invoices/"+invoiceID.String()+"/claims", billingapp.SubmitClaimRequest{
		ProofImageURL: "https://storage.example.com/proofs/slip.jpg",
		Note:          "transferred this morning",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var claim billingapp.TransferClaimResponse
	decodeData(t, w, &claim)
	return claim
}
