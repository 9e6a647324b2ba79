package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Test fixtures

type invoiceServiceFixture struct {
	service     *InvoiceService
	invoiceRepo *MockInvoiceRepository
	claimRepo   *MockTransferClaimRepository
	idempotency *MockIdempotencyStore
	publisher   *MockEventPublisher
}

func newInvoiceServiceFixture() *invoiceServiceFixture {
	invoiceRepo := &MockInvoiceRepository{}
	claimRepo := &MockTransferClaimRepository{}
	idempotency := &MockIdempotencyStore{}
	publisher := &MockEventPublisher{}

	service := NewInvoiceService(InvoiceServiceConfig{
		InvoiceRepo:       invoiceRepo,
		ClaimRepo:         claimRepo,
		UnitOfWork:        &passthroughUnitOfWork{invoices: invoiceRepo, claims: claimRepo},
		IdempotencyStore:  idempotency,
		IdempotencyConfig: shared.DefaultIdempotencyConfig(),
		EventPublisher:    publisher,
	})

	return &invoiceServiceFixture{
		service:     service,
		invoiceRepo: invoiceRepo,
		claimRepo:   claimRepo,
		idempotency: idempotency,
		publisher:   publisher,
	}
}

func newDraftInvoice(t *testing.T, tenantID uuid.UUID) *billing.Invoice {
	inv, err := billing.NewInvoice(
		tenantID,
		"INV-2026-100",
		uuid.New(),
		uuid.New(),
		uuid.New(),
		8,
		2026,
		valueobject.NewMoneyVNDFromInt(1000000),
		valueobject.ZeroVND(),
		valueobject.ZeroVND(),
		time.Now().AddDate(0, 0, 14),
	)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

func newSentInvoice(t *testing.T, tenantID uuid.UUID) *billing.Invoice {
	inv := newDraftInvoice(t, tenantID)
	require.NoError(t, inv.Issue())
	inv.ClearDomainEvents()
	return inv
}

// =============================================================================
// CreateDraft Tests
// =============================================================================

func TestInvoiceService_CreateDraft(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	baseRequest := CreateInvoiceRequest{
		ContractID:  uuid.New(),
		RoomID:      uuid.New(),
		RenterID:    uuid.New(),
		PeriodMonth: 8,
		PeriodYear:  2026,
		Subtotal:    decimal.NewFromInt(1500000),
		DueDate:     time.Now().AddDate(0, 0, 14),
	}

	t.Run("generates invoice number when omitted", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		f.invoiceRepo.On("GenerateInvoiceNumber", ctx, tenantID).Return("INV-2026-0001", nil)
		f.invoiceRepo.On("Save", ctx, mock.AnythingOfType("*billing.Invoice")).Return(nil)

		resp, err := f.service.CreateDraft(ctx, tenantID, baseRequest)
		require.NoError(t, err)

		assert.Equal(t, "INV-2026-0001", resp.InvoiceNumber)
		assert.Equal(t, billing.InvoiceStatusDraft.String(), resp.Status)
		assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(1500000)))
		f.invoiceRepo.AssertExpectations(t)
		assert.NotEmpty(t, f.publisher.Events)
	})

	t.Run("rejects duplicate invoice number", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		req := baseRequest
		req.InvoiceNumber = "INV-2026-0042"
		f.invoiceRepo.On("ExistsByNumber", ctx, tenantID, "INV-2026-0042").Return(true, nil)

		_, err := f.service.CreateDraft(ctx, tenantID, req)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
		f.invoiceRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("propagates invalid period", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		req := baseRequest
		req.InvoiceNumber = "INV-1"
		req.PeriodMonth = 0
		f.invoiceRepo.On("ExistsByNumber", ctx, tenantID, "INV-1").Return(false, nil)

		_, err := f.service.CreateDraft(ctx, tenantID, req)
		assert.Error(t, err)
	})
}

// =============================================================================
// Issue Tests
// =============================================================================

func TestInvoiceService_Issue(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("issues draft invoice", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newDraftInvoice(t, tenantID)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, inv.ID).Return(inv, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

		resp, err := f.service.Issue(ctx, tenantID, inv.ID)
		require.NoError(t, err)

		assert.Equal(t, billing.InvoiceStatusSent.String(), resp.Status)
		assert.NotNil(t, resp.IssuedAt)
		f.invoiceRepo.AssertExpectations(t)
	})

	t.Run("returns not found for unknown invoice", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		id := uuid.New()
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, id).Return(nil, nil)

		_, err := f.service.Issue(ctx, tenantID, id)
		assert.Equal(t, shared.ErrNotFound, err)
	})

	t.Run("propagates save conflict", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newDraftInvoice(t, tenantID)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, inv.ID).Return(inv, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(shared.ErrConcurrencyConflict)

		_, err := f.service.Issue(ctx, tenantID, inv.ID)
		assert.Equal(t, shared.ErrConcurrencyConflict, err)
	})
}

// =============================================================================
// RecordDirectPayment Tests
// =============================================================================

func TestInvoiceService_RecordDirectPayment(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("settles invoice with cash", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newSentInvoice(t, tenantID)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, inv.ID).Return(inv, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

		resp, err := f.service.RecordDirectPayment(ctx, tenantID, inv.ID, RecordPaymentRequest{
			Method: billing.PaymentMethodCash.String(),
			Amount: decimal.NewFromInt(1000000),
			Note:   "paid at office",
		})
		require.NoError(t, err)

		assert.Equal(t, billing.InvoiceStatusPaid.String(), resp.Status)
		assert.True(t, resp.PaidAmount.Equal(resp.TotalAmount))
		assert.NotNil(t, resp.PaidAt)
		f.invoiceRepo.AssertExpectations(t)
	})

	t.Run("rejects partial amount without saving", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newSentInvoice(t, tenantID)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, inv.ID).Return(inv, nil)

		_, err := f.service.RecordDirectPayment(ctx, tenantID, inv.ID, RecordPaymentRequest{
			Method: billing.PaymentMethodCash.String(),
			Amount: decimal.NewFromInt(400000),
		})
		assert.Equal(t, shared.ErrAmountMismatch, err)
		f.invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("duplicate idempotency key returns current invoice without writing", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newSentInvoice(t, tenantID)
		require.NoError(t, inv.RecordDirectPayment(billing.PaymentMethodCash, valueobject.NewMoneyVNDFromInt(1000000), ""))
		inv.ClearDomainEvents()

		f.idempotency.On("MarkProcessed", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("time.Duration")).Return(false, nil)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, inv.ID).Return(inv, nil)

		resp, err := f.service.RecordDirectPayment(ctx, tenantID, inv.ID, RecordPaymentRequest{
			Method:         billing.PaymentMethodCash.String(),
			Amount:         decimal.NewFromInt(1000000),
			IdempotencyKey: "retry-123",
		})
		require.NoError(t, err)

		assert.Equal(t, billing.InvoiceStatusPaid.String(), resp.Status)
		f.invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("fresh idempotency key proceeds", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newSentInvoice(t, tenantID)
		f.idempotency.On("MarkProcessed", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("time.Duration")).Return(true, nil)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, inv.ID).Return(inv, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

		resp, err := f.service.RecordDirectPayment(ctx, tenantID, inv.ID, RecordPaymentRequest{
			Method:         billing.PaymentMethodOnlineGateway.String(),
			Amount:         decimal.NewFromInt(1000000),
			IdempotencyKey: "first-456",
		})
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusPaid.String(), resp.Status)
	})

	t.Run("failed payment releases the idempotency key", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newSentInvoice(t, tenantID)
		f.idempotency.On("MarkProcessed", ctx, mock.AnythingOfType("string"), mock.AnythingOfType("time.Duration")).Return(true, nil)
		f.idempotency.On("Release", ctx, mock.AnythingOfType("string")).Return(nil)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, inv.ID).Return(inv, nil)

		_, err := f.service.RecordDirectPayment(ctx, tenantID, inv.ID, RecordPaymentRequest{
			Method:         billing.PaymentMethodCash.String(),
			Amount:         decimal.NewFromInt(400000),
			IdempotencyKey: "pay-001",
		})
		assert.Equal(t, shared.ErrAmountMismatch, err)
		f.idempotency.AssertCalled(t, "Release", ctx, mock.AnythingOfType("string"))
		f.invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("rejects payment on paid invoice", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newSentInvoice(t, tenantID)
		require.NoError(t, inv.RecordDirectPayment(billing.PaymentMethodCash, valueobject.NewMoneyVNDFromInt(1000000), ""))
		inv.ClearDomainEvents()
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, inv.ID).Return(inv, nil)

		_, err := f.service.RecordDirectPayment(ctx, tenantID, inv.ID, RecordPaymentRequest{
			Method: billing.PaymentMethodCash.String(),
			Amount: decimal.NewFromInt(1000000),
		})
		assert.Equal(t, shared.ErrAlreadyTerminal, err)
	})
}

// =============================================================================
// Cancel Tests
// =============================================================================

func TestInvoiceService_Cancel(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	landlordID := uuid.New()

	t.Run("cancels sent invoice", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newSentInvoice(t, tenantID)
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, inv.ID).Return(inv, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

		resp, err := f.service.Cancel(ctx, tenantID, inv.ID, landlordID, "room vacated")
		require.NoError(t, err)

		assert.Equal(t, billing.InvoiceStatusCancelled.String(), resp.Status)
		assert.Equal(t, "room vacated", resp.CancelReason)
		f.claimRepo.AssertNotCalled(t, "FindPendingByInvoice", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects pending claim when cancelling", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newSentInvoice(t, tenantID)
		claim, err := billing.NewTransferClaim(tenantID, inv.ID, "https://x/proof.jpg", "")
		require.NoError(t, err)
		claim.ClearDomainEvents()
		require.NoError(t, inv.MarkTransferPending(claim.ID))
		inv.ClearDomainEvents()

		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, inv.ID).Return(inv, nil)
		f.claimRepo.On("FindPendingByInvoice", ctx, tenantID, inv.ID).Return(claim, nil)
		f.claimRepo.On("SaveWithLock", ctx, claim).Return(nil)
		f.invoiceRepo.On("SaveWithLock", ctx, inv).Return(nil)

		resp, err := f.service.Cancel(ctx, tenantID, inv.ID, landlordID, "duplicate billing")
		require.NoError(t, err)

		assert.Equal(t, billing.InvoiceStatusCancelled.String(), resp.Status)
		assert.True(t, claim.IsRejected())
		assert.Contains(t, claim.ReviewNote, "duplicate billing")
		f.claimRepo.AssertExpectations(t)
	})

	t.Run("rejects cancel on paid invoice", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newSentInvoice(t, tenantID)
		require.NoError(t, inv.RecordDirectPayment(billing.PaymentMethodCash, valueobject.NewMoneyVNDFromInt(1000000), ""))
		inv.ClearDomainEvents()
		f.invoiceRepo.On("FindByIDForTenant", ctx, tenantID, inv.ID).Return(inv, nil)

		_, err := f.service.Cancel(ctx, tenantID, inv.ID, landlordID, "too late")
		assert.Equal(t, shared.ErrAlreadyTerminal, err)
	})
}

// =============================================================================
// MarkOverdueBatch Tests
// =============================================================================

func TestInvoiceService_MarkOverdueBatch(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("marks past-due invoices", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		first := newSentInvoice(t, tenantID)
		first.DueDate = time.Now().AddDate(0, 0, -5)
		second := newSentInvoice(t, tenantID)
		second.DueDate = time.Now().AddDate(0, 0, -1)

		asOf := time.Now()
		f.invoiceRepo.On("FindDueForOverdue", ctx, asOf, 100).Return([]billing.Invoice{*first, *second}, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, mock.AnythingOfType("*billing.Invoice")).Return(nil)

		marked, err := f.service.MarkOverdueBatch(ctx, asOf, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, marked)
	})

	t.Run("second sweep finds nothing to do", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		asOf := time.Now()
		f.invoiceRepo.On("FindDueForOverdue", ctx, asOf, 100).Return([]billing.Invoice{}, nil)

		marked, err := f.service.MarkOverdueBatch(ctx, asOf, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, marked)
		f.invoiceRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("skips version conflicts and keeps going", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		contested := newSentInvoice(t, tenantID)
		contested.DueDate = time.Now().AddDate(0, 0, -2)
		quiet := newSentInvoice(t, tenantID)
		quiet.DueDate = time.Now().AddDate(0, 0, -2)

		asOf := time.Now()
		f.invoiceRepo.On("FindDueForOverdue", ctx, asOf, 100).Return([]billing.Invoice{*contested, *quiet}, nil)
		f.invoiceRepo.On("SaveWithLock", ctx, mock.MatchedBy(func(inv *billing.Invoice) bool {
			return inv.ID == contested.ID
		})).Return(shared.ErrConcurrencyConflict)
		f.invoiceRepo.On("SaveWithLock", ctx, mock.MatchedBy(func(inv *billing.Invoice) bool {
			return inv.ID == quiet.ID
		})).Return(nil)

		marked, err := f.service.MarkOverdueBatch(ctx, asOf, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, marked)
	})

	t.Run("propagates repository failure", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		asOf := time.Now()
		f.invoiceRepo.On("FindDueForOverdue", ctx, asOf, 100).Return([]billing.Invoice{}, errors.New("database error"))

		_, err := f.service.MarkOverdueBatch(ctx, asOf, 0)
		assert.Error(t, err)
	})
}

// =============================================================================
// ListInvoices Tests
// =============================================================================

func TestInvoiceService_ListInvoices(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("maps filter and returns responses", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		inv := newSentInvoice(t, tenantID)
		f.invoiceRepo.On("FindAllForTenant", ctx, tenantID, mock.AnythingOfType("billing.InvoiceFilter")).
			Return([]billing.Invoice{*inv}, nil)
		f.invoiceRepo.On("CountForTenant", ctx, tenantID, mock.AnythingOfType("billing.InvoiceFilter")).
			Return(int64(1), nil)

		responses, total, err := f.service.ListInvoices(ctx, tenantID, InvoiceListFilter{Status: "SENT", Page: 1, PageSize: 20})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, responses, 1)
		assert.Equal(t, inv.InvoiceNumber, responses[0].InvoiceNumber)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		f := newInvoiceServiceFixture()

		_, _, err := f.service.ListInvoices(ctx, tenantID, InvoiceListFilter{Status: "BOGUS"})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	})
}
