package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft           InvoiceStatus = "DRAFT"            // Created, not yet visible to the renter
	InvoiceStatusSent            InvoiceStatus = "SENT"             // Issued and awaiting payment
	InvoiceStatusTransferPending InvoiceStatus = "TRANSFER_PENDING" // A bank-transfer claim is awaiting review
	InvoiceStatusPaid            InvoiceStatus = "PAID"             // Fully settled
	InvoiceStatusOverdue         InvoiceStatus = "OVERDUE"          // Past due date, still payable
	InvoiceStatusCancelled       InvoiceStatus = "CANCELLED"        // Voided before settlement
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusTransferPending,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice can no longer be mutated
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// CanAcceptPayment returns true if a direct payment or a fresh transfer claim
// can be taken in this status. Overdue invoices remain payable.
func (s InvoiceStatus) CanAcceptPayment() bool {
	return s == InvoiceStatusSent || s == InvoiceStatusOverdue
}

// Invoice is the aggregate root for a rental billing document.
// It is the single authority over status, paid amount and the timestamps that
// justify them; the transfer-review workflow and the instruction generator
// feed it events but never write these fields directly.
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber  string          `json:"invoice_number"`
	ContractID     uuid.UUID       `json:"contract_id"`
	RoomID         uuid.UUID       `json:"room_id"`
	RenterID       uuid.UUID       `json:"renter_id"`
	PeriodMonth    int             `json:"period_month"`
	PeriodYear     int             `json:"period_year"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	LateFee        decimal.Decimal `json:"late_fee"`
	TotalAmount    decimal.Decimal `json:"total_amount"` // subtotal - discount + late fee, fixed once issued
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Status         InvoiceStatus   `json:"status"`
	DueDate        time.Time       `json:"due_date"`
	IssuedAt       *time.Time      `json:"issued_at"`
	PaidAt         *time.Time      `json:"paid_at"`
	PaymentMethod  *PaymentMethod  `json:"payment_method"`
	PaymentNote    string          `json:"payment_note"`
	PendingClaimID *uuid.UUID      `json:"pending_claim_id"` // Set while a transfer claim awaits review
	CancelledAt    *time.Time      `json:"cancelled_at"`
	CancelReason   string          `json:"cancel_reason"`
}

// NewInvoice creates a new draft invoice for a tenancy period.
// The total is derived once here; issuance freezes it.
func NewInvoice(
	tenantID uuid.UUID,
	invoiceNumber string,
	contractID uuid.UUID,
	roomID uuid.UUID,
	renterID uuid.UUID,
	periodMonth int,
	periodYear int,
	subtotal valueobject.Money,
	discountAmount valueobject.Money,
	lateFee valueobject.Money,
	dueDate time.Time,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if contractID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTRACT", "Contract ID cannot be empty")
	}
	if roomID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ROOM", "Room ID cannot be empty")
	}
	if renterID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RENTER", "Renter ID cannot be empty")
	}
	if periodMonth < 1 || periodMonth > 12 {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period month must be between 1 and 12")
	}
	if periodYear < 2000 || periodYear > 2200 {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period year is out of range")
	}
	if subtotal.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Subtotal cannot be negative")
	}
	if discountAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Discount amount cannot be negative")
	}
	if lateFee.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Late fee cannot be negative")
	}
	if subtotal.Currency() != discountAmount.Currency() || subtotal.Currency() != lateFee.Currency() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "All invoice amounts must use the same currency")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be empty")
	}

	total := subtotal.Amount().Sub(discountAmount.Amount()).Add(lateFee.Amount())
	if total.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Discount cannot exceed subtotal plus late fee")
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceNumber:       invoiceNumber,
		ContractID:          contractID,
		RoomID:              roomID,
		RenterID:            renterID,
		PeriodMonth:         periodMonth,
		PeriodYear:          periodYear,
		Subtotal:            subtotal.Amount(),
		DiscountAmount:      discountAmount.Amount(),
		LateFee:             lateFee.Amount(),
		TotalAmount:         total,
		PaidAmount:          decimal.Zero,
		Status:              InvoiceStatusDraft,
		DueDate:             dueDate,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// Issue moves the invoice from draft to sent, freezing its total
func (inv *Invoice) Issue() error {
	if inv.Status.IsTerminal() {
		return shared.ErrAlreadyTerminal
	}
	if inv.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState
	}
	if inv.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Cannot issue an invoice with a non-positive total")
	}

	now := time.Now()
	inv.Status = InvoiceStatusSent
	inv.IssuedAt = &now
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))

	return nil
}

// RecordDirectPayment settles the invoice with a self-attested payment method
// (cash or gateway). Bank transfers must go through the claim workflow instead.
// Only full settlement is accepted; a partial amount is rejected.
// An unresolved transfer claim blocks direct payment even after the overdue
// sweep moved the invoice out of TRANSFER_PENDING; settling first would leave
// the claim unreviewable forever.
func (inv *Invoice) RecordDirectPayment(method PaymentMethod, amount valueobject.Money, note string) error {
	if inv.Status.IsTerminal() {
		return shared.ErrAlreadyTerminal
	}
	if !inv.Status.CanAcceptPayment() {
		return shared.ErrInvalidState
	}
	if inv.PendingClaimID != nil {
		return shared.ErrClaimAlreadyPending
	}
	if !method.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unknown payment method %q", method))
	}
	if !method.IsDirectlyTrusted() {
		return shared.ErrInvalidState
	}
	if !amount.Amount().Equal(inv.RemainingAmount()) {
		return shared.ErrAmountMismatch
	}

	now := time.Now()
	inv.PaidAmount = inv.TotalAmount
	inv.Status = InvoiceStatusPaid
	inv.PaidAt = &now
	inv.PaymentMethod = &method
	inv.PaymentNote = note
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoicePaidEvent(inv, method))

	return nil
}

// MarkTransferPending records that a transfer claim now awaits review.
// Driven by the claim workflow after the claim aggregate has been created.
func (inv *Invoice) MarkTransferPending(claimID uuid.UUID) error {
	if inv.Status.IsTerminal() {
		return shared.ErrAlreadyTerminal
	}
	if inv.PendingClaimID != nil {
		return shared.ErrClaimAlreadyPending
	}
	if !inv.Status.CanAcceptPayment() {
		return shared.ErrInvalidState
	}
	if claimID == uuid.Nil {
		return shared.NewDomainError("INVALID_CLAIM", "Claim ID cannot be empty")
	}

	inv.Status = InvoiceStatusTransferPending
	inv.PendingClaimID = &claimID
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceTransferPendingEvent(inv, claimID))

	return nil
}

// SettleByTransfer settles the invoice after the pending claim was approved.
// The claim ID must match the claim that put the invoice into review; this
// keeps a stale approval from settling against a newer claim.
func (inv *Invoice) SettleByTransfer(claimID uuid.UUID) error {
	if inv.Status.IsTerminal() {
		return shared.ErrAlreadyTerminal
	}
	if inv.PendingClaimID == nil || *inv.PendingClaimID != claimID {
		return shared.ErrInvalidState
	}

	now := time.Now()
	method := PaymentMethodBankTransfer
	inv.PaidAmount = inv.TotalAmount
	inv.Status = InvoiceStatusPaid
	inv.PaidAt = &now
	inv.PaymentMethod = &method
	inv.PendingClaimID = nil
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoicePaidEvent(inv, method))

	return nil
}

// ReopenAfterRejection makes the invoice payable again after its pending claim
// was rejected. The status returns to sent; the overdue sweep will flag it
// again on its next pass if the due date has lapsed.
func (inv *Invoice) ReopenAfterRejection(claimID uuid.UUID) error {
	if inv.Status.IsTerminal() {
		return shared.ErrAlreadyTerminal
	}
	if inv.PendingClaimID == nil || *inv.PendingClaimID != claimID {
		return shared.ErrInvalidState
	}

	inv.Status = InvoiceStatusSent
	inv.PendingClaimID = nil
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceReopenedEvent(inv, claimID))

	return nil
}

// MarkOverdue flags the invoice as past due. Idempotent: returns true only
// when a transition actually happened, false for every no-op case, so the
// sweep can run repeatedly without side effects. An invoice under transfer
// review keeps its pending claim; review operations still apply to it.
func (inv *Invoice) MarkOverdue(now time.Time) bool {
	if inv.Status != InvoiceStatusSent && inv.Status != InvoiceStatusTransferPending {
		return false
	}
	if !now.After(inv.DueDate) {
		return false
	}

	inv.Status = InvoiceStatusOverdue
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceOverdueEvent(inv))

	return true
}

// Cancel voids the invoice. Allowed from any non-terminal status; a pending
// claim is resolved by the caller before the invoice is cancelled.
func (inv *Invoice) Cancel(reason string) error {
	if inv.Status.IsTerminal() {
		return shared.ErrAlreadyTerminal
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}

	now := time.Now()
	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelReason = reason
	inv.PendingClaimID = nil
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))

	return nil
}

// UpdateAmounts replaces the draft amounts and re-derives the total.
// Only drafts are editable; issuance freezes the total.
func (inv *Invoice) UpdateAmounts(subtotal, discountAmount, lateFee valueobject.Money) error {
	if inv.Status.IsTerminal() {
		return shared.ErrAlreadyTerminal
	}
	if inv.Status != InvoiceStatusDraft {
		return shared.ErrInvalidState
	}
	if subtotal.IsNegative() || discountAmount.IsNegative() || lateFee.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Invoice amounts cannot be negative")
	}

	total := subtotal.Amount().Sub(discountAmount.Amount()).Add(lateFee.Amount())
	if total.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Discount cannot exceed subtotal plus late fee")
	}

	inv.Subtotal = subtotal.Amount()
	inv.DiscountAmount = discountAmount.Amount()
	inv.LateFee = lateFee.Amount()
	inv.TotalAmount = total
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// SetDueDate updates the due date for a not-yet-settled invoice
func (inv *Invoice) SetDueDate(dueDate time.Time) error {
	if inv.Status.IsTerminal() {
		return shared.ErrAlreadyTerminal
	}
	if dueDate.IsZero() {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be empty")
	}

	inv.DueDate = dueDate
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// Helper methods

// RemainingAmount returns the unpaid balance
func (inv *Invoice) RemainingAmount() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.PaidAmount)
}

// GetTotalAmountMoney returns total amount as Money
func (inv *Invoice) GetTotalAmountMoney() valueobject.Money {
	return valueobject.NewMoneyVND(inv.TotalAmount)
}

// GetPaidAmountMoney returns paid amount as Money
func (inv *Invoice) GetPaidAmountMoney() valueobject.Money {
	return valueobject.NewMoneyVND(inv.PaidAmount)
}

// GetRemainingAmountMoney returns the unpaid balance as Money
func (inv *Invoice) GetRemainingAmountMoney() valueobject.Money {
	return valueobject.NewMoneyVND(inv.RemainingAmount())
}

// IsDraft returns true if the invoice has not been issued
func (inv *Invoice) IsDraft() bool {
	return inv.Status == InvoiceStatusDraft
}

// IsPaid returns true if the invoice is fully settled
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsCancelled returns true if the invoice was voided
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}

// HasPendingClaim returns true while a transfer claim awaits review
func (inv *Invoice) HasPendingClaim() bool {
	return inv.PendingClaimID != nil
}

// IsPastDue returns true if the due date has lapsed and the invoice is still open
func (inv *Invoice) IsPastDue(now time.Time) bool {
	if inv.Status.IsTerminal() || inv.Status == InvoiceStatusDraft {
		return false
	}
	return now.After(inv.DueDate)
}

// Period returns the billing period formatted as MM/YYYY
func (inv *Invoice) Period() string {
	return fmt.Sprintf("%02d/%04d", inv.PeriodMonth, inv.PeriodYear)
}
