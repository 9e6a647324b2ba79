package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
)

// TransferClaimSubmittedEvent is raised when a renter submits a transfer claim
type TransferClaimSubmittedEvent struct {
	shared.BaseDomainEvent
	ClaimID     uuid.UUID `json:"claim_id"`
	InvoiceID   uuid.UUID `json:"invoice_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// EventType returns the event type name
func (e *TransferClaimSubmittedEvent) EventType() string {
	return "TransferClaimSubmitted"
}

// NewTransferClaimSubmittedEvent creates a new TransferClaimSubmittedEvent
func NewTransferClaimSubmittedEvent(c *TransferClaim) *TransferClaimSubmittedEvent {
	return &TransferClaimSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TransferClaimSubmitted", "TransferClaim", c.ID, c.TenantID),
		ClaimID:         c.ID,
		InvoiceID:       c.InvoiceID,
		SubmittedAt:     c.SubmittedAt,
	}
}

// TransferClaimApprovedEvent is raised when a landlord approves a claim
type TransferClaimApprovedEvent struct {
	shared.BaseDomainEvent
	ClaimID    uuid.UUID  `json:"claim_id"`
	InvoiceID  uuid.UUID  `json:"invoice_id"`
	ReviewedBy *uuid.UUID `json:"reviewed_by"`
}

// EventType returns the event type name
func (e *TransferClaimApprovedEvent) EventType() string {
	return "TransferClaimApproved"
}

// NewTransferClaimApprovedEvent creates a new TransferClaimApprovedEvent
func NewTransferClaimApprovedEvent(c *TransferClaim) *TransferClaimApprovedEvent {
	return &TransferClaimApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TransferClaimApproved", "TransferClaim", c.ID, c.TenantID),
		ClaimID:         c.ID,
		InvoiceID:       c.InvoiceID,
		ReviewedBy:      c.ReviewedBy,
	}
}

// TransferClaimRejectedEvent is raised when a landlord rejects a claim
type TransferClaimRejectedEvent struct {
	shared.BaseDomainEvent
	ClaimID    uuid.UUID  `json:"claim_id"`
	InvoiceID  uuid.UUID  `json:"invoice_id"`
	ReviewedBy *uuid.UUID `json:"reviewed_by"`
	Reason     string     `json:"reason"`
}

// EventType returns the event type name
func (e *TransferClaimRejectedEvent) EventType() string {
	return "TransferClaimRejected"
}

// NewTransferClaimRejectedEvent creates a new TransferClaimRejectedEvent
func NewTransferClaimRejectedEvent(c *TransferClaim) *TransferClaimRejectedEvent {
	return &TransferClaimRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TransferClaimRejected", "TransferClaim", c.ID, c.TenantID),
		ClaimID:         c.ID,
		InvoiceID:       c.InvoiceID,
		ReviewedBy:      c.ReviewedBy,
		Reason:          c.ReviewNote,
	}
}
