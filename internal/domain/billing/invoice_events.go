package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceCreatedEvent is raised when a new draft invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ContractID    uuid.UUID       `json:"contract_id"`
	RoomID        uuid.UUID       `json:"room_id"`
	RenterID      uuid.UUID       `json:"renter_id"`
	PeriodMonth   int             `json:"period_month"`
	PeriodYear    int             `json:"period_year"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return "InvoiceCreated"
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCreated", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		ContractID:      inv.ContractID,
		RoomID:          inv.RoomID,
		RenterID:        inv.RenterID,
		PeriodMonth:     inv.PeriodMonth,
		PeriodYear:      inv.PeriodYear,
		TotalAmount:     inv.TotalAmount,
		DueDate:         inv.DueDate,
	}
}

// InvoiceIssuedEvent is raised when an invoice moves from draft to sent
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	RenterID      uuid.UUID       `json:"renter_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       time.Time       `json:"due_date"`
	IssuedAt      time.Time       `json:"issued_at"`
}

// EventType returns the event type name
func (e *InvoiceIssuedEvent) EventType() string {
	return "InvoiceIssued"
}

// NewInvoiceIssuedEvent creates a new InvoiceIssuedEvent
func NewInvoiceIssuedEvent(inv *Invoice) *InvoiceIssuedEvent {
	issuedAt := time.Now()
	if inv.IssuedAt != nil {
		issuedAt = *inv.IssuedAt
	}
	return &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceIssued", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		RenterID:        inv.RenterID,
		TotalAmount:     inv.TotalAmount,
		DueDate:         inv.DueDate,
		IssuedAt:        issuedAt,
	}
}

// InvoicePaidEvent is raised when an invoice reaches full settlement,
// whether by direct payment or by an approved transfer claim
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	RenterID      uuid.UUID       `json:"renter_id"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaidAt        time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return "InvoicePaid"
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice, method PaymentMethod) *InvoicePaidEvent {
	paidAt := time.Now()
	if inv.PaidAt != nil {
		paidAt = *inv.PaidAt
	}
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaid", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		RenterID:        inv.RenterID,
		PaidAmount:      inv.PaidAmount,
		PaymentMethod:   method,
		PaidAt:          paidAt,
	}
}

// InvoiceTransferPendingEvent is raised when a transfer claim puts the invoice under review
type InvoiceTransferPendingEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClaimID       uuid.UUID `json:"claim_id"`
}

// EventType returns the event type name
func (e *InvoiceTransferPendingEvent) EventType() string {
	return "InvoiceTransferPending"
}

// NewInvoiceTransferPendingEvent creates a new InvoiceTransferPendingEvent
func NewInvoiceTransferPendingEvent(inv *Invoice, claimID uuid.UUID) *InvoiceTransferPendingEvent {
	return &InvoiceTransferPendingEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceTransferPending", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		ClaimID:         claimID,
	}
}

// InvoiceReopenedEvent is raised when a rejected claim makes the invoice payable again
type InvoiceReopenedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClaimID       uuid.UUID `json:"claim_id"`
}

// EventType returns the event type name
func (e *InvoiceReopenedEvent) EventType() string {
	return "InvoiceReopened"
}

// NewInvoiceReopenedEvent creates a new InvoiceReopenedEvent
func NewInvoiceReopenedEvent(inv *Invoice, claimID uuid.UUID) *InvoiceReopenedEvent {
	return &InvoiceReopenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceReopened", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		ClaimID:         claimID,
	}
}

// InvoiceOverdueEvent is raised when the sweep flags an invoice as past due
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	RenterID      uuid.UUID       `json:"renter_id"`
	DueDate       time.Time       `json:"due_date"`
	Remaining     decimal.Decimal `json:"remaining"`
}

// EventType returns the event type name
func (e *InvoiceOverdueEvent) EventType() string {
	return "InvoiceOverdue"
}

// NewInvoiceOverdueEvent creates a new InvoiceOverdueEvent
func NewInvoiceOverdueEvent(inv *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceOverdue", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		RenterID:        inv.RenterID,
		DueDate:         inv.DueDate,
		Remaining:       inv.RemainingAmount(),
	}
}

// InvoiceCancelledEvent is raised when an invoice is voided
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	CancelReason  string    `json:"cancel_reason"`
}

// EventType returns the event type name
func (e *InvoiceCancelledEvent) EventType() string {
	return "InvoiceCancelled"
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCancelled", "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CancelReason:    inv.CancelReason,
	}
}
