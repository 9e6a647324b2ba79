package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
	"github.com/rentledger/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceService provides application-level invoice lifecycle operations
type InvoiceService struct {
	invoiceRepo    billing.InvoiceRepository
	claimRepo      billing.TransferClaimRepository
	uow            billing.UnitOfWork
	idempotency    shared.IdempotencyStore
	idempotencyCfg shared.IdempotencyConfig
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// InvoiceServiceConfig holds the dependencies for InvoiceService
type InvoiceServiceConfig struct {
	InvoiceRepo       billing.InvoiceRepository
	ClaimRepo         billing.TransferClaimRepository
	UnitOfWork        billing.UnitOfWork
	IdempotencyStore  shared.IdempotencyStore
	IdempotencyConfig shared.IdempotencyConfig
	EventPublisher    shared.EventPublisher
	Logger            *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(config InvoiceServiceConfig) *InvoiceService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		invoiceRepo:    config.InvoiceRepo,
		claimRepo:      config.ClaimRepo,
		uow:            config.UnitOfWork,
		idempotency:    config.IdempotencyStore,
		idempotencyCfg: config.IdempotencyConfig,
		eventPublisher: config.EventPublisher,
		logger:         logger,
	}
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	ContractID     uuid.UUID       `json:"contract_id"`
	RoomID         uuid.UUID       `json:"room_id"`
	RenterID       uuid.UUID       `json:"renter_id"`
	PeriodMonth    int             `json:"period_month"`
	PeriodYear     int             `json:"period_year"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	LateFee        decimal.Decimal `json:"late_fee"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Remaining      decimal.Decimal `json:"remaining"`
	Status         string          `json:"status"`
	DueDate        time.Time       `json:"due_date"`
	IssuedAt       *time.Time      `json:"issued_at,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	PaymentNote    string          `json:"payment_note,omitempty"`
	PendingClaimID *uuid.UUID      `json:"pending_claim_id,omitempty"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

func toInvoiceResponse(inv *billing.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:             inv.ID,
		TenantID:       inv.TenantID,
		InvoiceNumber:  inv.InvoiceNumber,
		ContractID:     inv.ContractID,
		RoomID:         inv.RoomID,
		RenterID:       inv.RenterID,
		PeriodMonth:    inv.PeriodMonth,
		PeriodYear:     inv.PeriodYear,
		Subtotal:       inv.Subtotal,
		DiscountAmount: inv.DiscountAmount,
		LateFee:        inv.LateFee,
		TotalAmount:    inv.TotalAmount,
		PaidAmount:     inv.PaidAmount,
		Remaining:      inv.RemainingAmount(),
		Status:         inv.Status.String(),
		DueDate:        inv.DueDate,
		IssuedAt:       inv.IssuedAt,
		PaidAt:         inv.PaidAt,
		PaymentNote:    inv.PaymentNote,
		PendingClaimID: inv.PendingClaimID,
		CancelReason:   inv.CancelReason,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
		Version:        inv.Version,
	}
	if inv.PaymentMethod != nil {
		resp.PaymentMethod = inv.PaymentMethod.String()
	}
	return resp
}

// CreateInvoiceRequest is the input for creating a draft invoice.
// The amounts arrive finalized from the billing source; the engine never
// recomputes pricing.
type CreateInvoiceRequest struct {
	InvoiceNumber  string          `json:"invoice_number"`
	ContractID     uuid.UUID       `json:"contract_id"`
	RoomID         uuid.UUID       `json:"room_id"`
	RenterID       uuid.UUID       `json:"renter_id"`
	PeriodMonth    int             `json:"period_month"`
	PeriodYear     int             `json:"period_year"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	LateFee        decimal.Decimal `json:"late_fee"`
	DueDate        time.Time       `json:"due_date"`
}

// CreateDraft creates a new draft invoice. When no invoice number is given,
// one is generated from the tenant's sequence.
func (s *InvoiceService) CreateDraft(ctx context.Context, tenantID uuid.UUID, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	number := req.InvoiceNumber
	if number == "" {
		generated, err := s.invoiceRepo.GenerateInvoiceNumber(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		number = generated
	} else {
		exists, err := s.invoiceRepo.ExistsByNumber(ctx, tenantID, number)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Invoice number %s already exists", number))
		}
	}

	inv, err := billing.NewInvoice(
		tenantID,
		number,
		req.ContractID,
		req.RoomID,
		req.RenterID,
		req.PeriodMonth,
		req.PeriodYear,
		valueobject.NewMoneyVND(req.Subtotal),
		valueobject.NewMoneyVND(req.DiscountAmount),
		valueobject.NewMoneyVND(req.LateFee),
		req.DueDate,
	)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, inv)

	s.logger.Info("Invoice draft created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("total_amount", inv.TotalAmount.String()))

	return toInvoiceResponse(inv), nil
}

// Issue moves a draft invoice to sent
func (s *InvoiceService) Issue(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "issue")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
	)

	inv, err := s.loadInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := inv.Issue(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceNumber, inv.InvoiceNumber)

	s.publishEvents(ctx, inv)

	s.logger.Info("Invoice issued",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber))

	return toInvoiceResponse(inv), nil
}

// RecordPaymentRequest is the input for recording a direct payment
type RecordPaymentRequest struct {
	Method         string          `json:"method"`
	Amount         decimal.Decimal `json:"amount"`
	Note           string          `json:"note"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// RecordDirectPayment settles an invoice with a cash or gateway payment.
// When an idempotency key is supplied, a retry of an already-applied payment
// returns the current invoice instead of a terminal-state error.
func (s *InvoiceService) RecordDirectPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, req RecordPaymentRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "record_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
		telemetry.SpanAttrPaymentMethod, req.Method,
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	applied, err := s.markIdempotencyKey(ctx, "payment", invoiceID, req.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !applied {
		s.logger.Info("Duplicate payment request ignored",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("idempotency_key", req.IdempotencyKey))
		telemetry.AddEvent(span, "duplicate_payment_ignored")
		inv, err := s.loadInvoice(ctx, tenantID, invoiceID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		return toInvoiceResponse(inv), nil
	}

	inv, err := s.loadInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		s.releaseIdempotencyKey(ctx, "payment", invoiceID, req.IdempotencyKey)
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := inv.RecordDirectPayment(billing.PaymentMethod(req.Method), valueobject.NewMoneyVND(req.Amount), req.Note); err != nil {
		s.releaseIdempotencyKey(ctx, "payment", invoiceID, req.IdempotencyKey)
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
		s.releaseIdempotencyKey(ctx, "payment", invoiceID, req.IdempotencyKey)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, inv)

	telemetry.AddEvent(span, "payment_recorded",
		telemetry.SpanAttrInvoiceNumber, inv.InvoiceNumber,
		telemetry.SpanAttrInvoiceStatus, inv.Status.String(),
	)

	s.logger.Info("Direct payment recorded",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("method", req.Method),
		zap.String("amount", req.Amount.String()))

	return toInvoiceResponse(inv), nil
}

// Cancel voids an invoice. A pending transfer claim is rejected in the same
// transaction so the audit trail shows why it was closed.
func (s *InvoiceService) Cancel(ctx context.Context, tenantID, invoiceID uuid.UUID, cancelledBy uuid.UUID, reason string) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "cancel")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
	)

	var inv *billing.Invoice

	err := s.uow.Execute(ctx, func(invoices billing.InvoiceRepository, claims billing.TransferClaimRepository) error {
		loaded, err := invoices.FindByIDForTenant(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if loaded == nil {
			return shared.ErrNotFound
		}

		if loaded.HasPendingClaim() {
			claim, err := claims.FindPendingByInvoice(ctx, tenantID, invoiceID)
			if err != nil {
				return err
			}
			if claim != nil {
				if err := claim.Reject(cancelledBy, fmt.Sprintf("Invoice cancelled: %s", reason)); err != nil {
					return err
				}
				if err := claims.SaveWithLock(ctx, claim); err != nil {
					return err
				}
			}
		}

		if err := loaded.Cancel(reason); err != nil {
			return err
		}
		if err := invoices.SaveWithLock(ctx, loaded); err != nil {
			return err
		}

		inv = loaded
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, inv)

	s.logger.Info("Invoice cancelled",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("reason", reason))

	return toInvoiceResponse(inv), nil
}

// GetInvoice gets an invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.loadInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv), nil
}

// GetInvoiceByNumber gets an invoice by its number
func (s *InvoiceService) GetInvoiceByNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*InvoiceResponse, error) {
	inv, err := s.invoiceRepo.FindByNumber(ctx, tenantID, invoiceNumber)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.ErrNotFound
	}
	return toInvoiceResponse(inv), nil
}

// InvoiceListFilter defines filtering options for invoice list queries
type InvoiceListFilter struct {
	Search      string     `form:"search"`
	ContractID  *uuid.UUID `form:"contract_id"`
	RoomID      *uuid.UUID `form:"room_id"`
	RenterID    *uuid.UUID `form:"renter_id"`
	Status      string     `form:"status"`
	PeriodMonth *int       `form:"period_month"`
	PeriodYear  *int       `form:"period_year"`
	Page        int        `form:"page"`
	PageSize    int        `form:"page_size"`
}

// ListInvoices lists invoices with filtering
func (s *InvoiceService) ListInvoices(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) ([]InvoiceResponse, int64, error) {
	domainFilter := billing.InvoiceFilter{
		ContractID:  filter.ContractID,
		RoomID:      filter.RoomID,
		RenterID:    filter.RenterID,
		PeriodMonth: filter.PeriodMonth,
		PeriodYear:  filter.PeriodYear,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search

	if filter.Status != "" {
		status := billing.InvoiceStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown invoice status %q", filter.Status))
		}
		domainFilter.Status = &status
	}

	invoices, err := s.invoiceRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.invoiceRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = *toInvoiceResponse(&invoices[i])
	}

	return responses, total, nil
}

// MarkOverdueBatch runs one pass of the overdue sweep: every open invoice
// past its due date is flagged. The sweep is idempotent; invoices already
// overdue, settled or cancelled are skipped by the query and the guard.
// Version conflicts are skipped, not retried: a conflict means another
// request just changed the invoice and the next pass will see the result.
func (s *InvoiceService) MarkOverdueBatch(ctx context.Context, asOf time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	due, err := s.invoiceRepo.FindDueForOverdue(ctx, asOf, batchSize)
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range due {
		inv := &due[i]
		if !inv.MarkOverdue(asOf) {
			continue
		}
		if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
			if derr, ok := err.(*shared.DomainError); ok && derr.Code == shared.ErrConcurrencyConflict.Code {
				s.logger.Debug("Overdue sweep skipped invoice on version conflict",
					zap.String("invoice_id", inv.ID.String()))
				continue
			}
			return marked, err
		}
		s.publishEvents(ctx, inv)
		marked++
	}

	if marked > 0 {
		s.logger.Info("Overdue sweep completed", zap.Int("marked", marked))
	}

	return marked, nil
}

func (s *InvoiceService) loadInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.ErrNotFound
	}
	return inv, nil
}

// markIdempotencyKey returns false when the key was already processed.
// An empty key or a disabled store always allows the operation.
func (s *InvoiceService) markIdempotencyKey(ctx context.Context, operation string, invoiceID uuid.UUID, key string) (bool, error) {
	if key == "" || s.idempotency == nil || !s.idempotencyCfg.Enabled {
		return true, nil
	}
	fullKey := fmt.Sprintf("billing:%s:%s:%s", operation, invoiceID, key)
	return s.idempotency.MarkProcessed(ctx, fullKey, s.idempotencyCfg.TTL)
}

// releaseIdempotencyKey frees a consumed key after the operation behind it
// failed, so a corrected retry with the same key is not treated as a
// duplicate. The release error is only logged; the caller reports the
// original failure.
func (s *InvoiceService) releaseIdempotencyKey(ctx context.Context, operation string, invoiceID uuid.UUID, key string) {
	if key == "" || s.idempotency == nil || !s.idempotencyCfg.Enabled {
		return
	}
	fullKey := fmt.Sprintf("billing:%s:%s:%s", operation, invoiceID, key)
	if err := s.idempotency.Release(ctx, fullKey); err != nil {
		s.logger.Warn("Failed to release idempotency key",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("idempotency_key", key),
			zap.Error(err))
	}
}

// publishEvents publishes the aggregate's buffered events after a successful
// commit. A publish failure is logged, never propagated; the write already
// happened.
func (s *InvoiceService) publishEvents(ctx context.Context, inv *billing.Invoice) {
	if s.eventPublisher == nil || inv == nil {
		return
	}
	events := inv.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish invoice events",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err))
	}
	inv.ClearDomainEvents()
}
