package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
)

// ReviewStatus represents the review state of a transfer claim
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "PENDING"
	ReviewStatusApproved ReviewStatus = "APPROVED"
	ReviewStatusRejected ReviewStatus = "REJECTED"
)

// IsValid checks if the status is a valid ReviewStatus
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewStatusPending, ReviewStatusApproved, ReviewStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of ReviewStatus
func (s ReviewStatus) String() string {
	return string(s)
}

// TransferClaim is a renter's unverified assertion of having paid an invoice
// by bank transfer. It is resolved only by landlord review and is never
// deleted; resolved claims stay as the invoice's audit trail.
type TransferClaim struct {
	shared.TenantAggregateRoot
	InvoiceID     uuid.UUID    `json:"invoice_id"`
	ProofImageURL string       `json:"proof_image_url"`
	Note          string       `json:"note"`
	SubmittedAt   time.Time    `json:"submitted_at"`
	ReviewStatus  ReviewStatus `json:"review_status"`
	ReviewedBy    *uuid.UUID   `json:"reviewed_by"`
	ReviewedAt    *time.Time   `json:"reviewed_at"`
	ReviewNote    string       `json:"review_note"`
}

// NewTransferClaim creates a new pending transfer claim for an invoice.
// The proof image reference is an opaque URL produced by the storage
// collaborator; the claim never holds raw bytes.
func NewTransferClaim(tenantID, invoiceID uuid.UUID, proofImageURL, note string) (*TransferClaim, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if proofImageURL == "" {
		return nil, shared.NewDomainError("INVALID_PROOF", "Proof image URL cannot be empty")
	}
	if len(proofImageURL) > 500 {
		return nil, shared.NewDomainError("INVALID_PROOF", "Proof image URL cannot exceed 500 characters")
	}

	claim := &TransferClaim{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceID:           invoiceID,
		ProofImageURL:       proofImageURL,
		Note:                note,
		SubmittedAt:         time.Now(),
		ReviewStatus:        ReviewStatusPending,
	}

	claim.AddDomainEvent(NewTransferClaimSubmittedEvent(claim))

	return claim, nil
}

// Approve accepts the claim as verified payment
func (c *TransferClaim) Approve(reviewerID uuid.UUID, note string) error {
	if c.ReviewStatus != ReviewStatusPending {
		return shared.ErrAlreadyReviewed
	}
	if reviewerID == uuid.Nil {
		return shared.NewDomainError("INVALID_REVIEWER", "Reviewer ID cannot be empty")
	}

	now := time.Now()
	c.ReviewStatus = ReviewStatusApproved
	c.ReviewedBy = &reviewerID
	c.ReviewedAt = &now
	c.ReviewNote = note
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewTransferClaimApprovedEvent(c))

	return nil
}

// Reject turns the claim down. A reason is required so the renter knows
// what to fix before resubmitting.
func (c *TransferClaim) Reject(reviewerID uuid.UUID, reason string) error {
	if c.ReviewStatus != ReviewStatusPending {
		return shared.ErrAlreadyReviewed
	}
	if reviewerID == uuid.Nil {
		return shared.NewDomainError("INVALID_REVIEWER", "Reviewer ID cannot be empty")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}

	now := time.Now()
	c.ReviewStatus = ReviewStatusRejected
	c.ReviewedBy = &reviewerID
	c.ReviewedAt = &now
	c.ReviewNote = reason
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewTransferClaimRejectedEvent(c))

	return nil
}

// IsPending returns true while the claim awaits review
func (c *TransferClaim) IsPending() bool {
	return c.ReviewStatus == ReviewStatusPending
}

// IsApproved returns true if the claim was accepted
func (c *TransferClaim) IsApproved() bool {
	return c.ReviewStatus == ReviewStatusApproved
}

// IsRejected returns true if the claim was turned down
func (c *TransferClaim) IsRejected() bool {
	return c.ReviewStatus == ReviewStatusRejected
}
