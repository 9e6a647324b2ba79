package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	TenantAggregateModel
	InvoiceNumber  string                 `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_tenant_number,priority:2"`
	ContractID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	RoomID         uuid.UUID              `gorm:"type:uuid;not null;index"`
	RenterID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	PeriodMonth    int                    `gorm:"not null"`
	PeriodYear     int                    `gorm:"not null;index"`
	Subtotal       decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	DiscountAmount decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	LateFee        decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	TotalAmount    decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	PaidAmount     decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Status         billing.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	DueDate        time.Time              `gorm:"not null;index"`
	IssuedAt       *time.Time
	PaidAt         *time.Time
	PaymentMethod  *billing.PaymentMethod `gorm:"type:varchar(20)"`
	PaymentNote    string                 `gorm:"type:varchar(500)"`
	PendingClaimID *uuid.UUID             `gorm:"type:uuid;index"`
	CancelledAt    *time.Time
	CancelReason   string                 `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		InvoiceNumber:       m.InvoiceNumber,
		ContractID:          m.ContractID,
		RoomID:              m.RoomID,
		RenterID:            m.RenterID,
		PeriodMonth:         m.PeriodMonth,
		PeriodYear:          m.PeriodYear,
		Subtotal:            m.Subtotal,
		DiscountAmount:      m.DiscountAmount,
		LateFee:             m.LateFee,
		TotalAmount:         m.TotalAmount,
		PaidAmount:          m.PaidAmount,
		Status:              m.Status,
		DueDate:             m.DueDate,
		IssuedAt:            m.IssuedAt,
		PaidAt:              m.PaidAt,
		PaymentMethod:       m.PaymentMethod,
		PaymentNote:         m.PaymentNote,
		PendingClaimID:      m.PendingClaimID,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.ContractID = inv.ContractID
	m.RoomID = inv.RoomID
	m.RenterID = inv.RenterID
	m.PeriodMonth = inv.PeriodMonth
	m.PeriodYear = inv.PeriodYear
	m.Subtotal = inv.Subtotal
	m.DiscountAmount = inv.DiscountAmount
	m.LateFee = inv.LateFee
	m.TotalAmount = inv.TotalAmount
	m.PaidAmount = inv.PaidAmount
	m.Status = inv.Status
	m.DueDate = inv.DueDate
	m.IssuedAt = inv.IssuedAt
	m.PaidAt = inv.PaidAt
	m.PaymentMethod = inv.PaymentMethod
	m.PaymentNote = inv.PaymentNote
	m.PendingClaimID = inv.PendingClaimID
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// TransferClaimModel is the persistence model for the TransferClaim aggregate root.
// Pending uniqueness per invoice is enforced by a partial unique index created
// in the migrations; GORM tags cannot express it.
type TransferClaimModel struct {
	TenantAggregateModel
	InvoiceID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	ProofImageURL string               `gorm:"type:varchar(500);not null"`
	Note          string               `gorm:"type:varchar(500)"`
	SubmittedAt   time.Time            `gorm:"not null;index"`
	ReviewStatus  billing.ReviewStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ReviewedBy    *uuid.UUID           `gorm:"type:uuid"`
	ReviewedAt    *time.Time
	ReviewNote    string               `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (TransferClaimModel) TableName() string {
	return "transfer_claims"
}

// ToDomain converts the persistence model to a domain TransferClaim.
func (m *TransferClaimModel) ToDomain() *billing.TransferClaim {
	return &billing.TransferClaim{
		TenantAggregateRoot: m.ToDomainTenantAggregateRoot(),
		InvoiceID:           m.InvoiceID,
		ProofImageURL:       m.ProofImageURL,
		Note:                m.Note,
		SubmittedAt:         m.SubmittedAt,
		ReviewStatus:        m.ReviewStatus,
		ReviewedBy:          m.ReviewedBy,
		ReviewedAt:          m.ReviewedAt,
		ReviewNote:          m.ReviewNote,
	}
}

// FromDomain populates the persistence model from a domain TransferClaim.
func (m *TransferClaimModel) FromDomain(claim *billing.TransferClaim) {
	m.FromDomainTenantAggregateRoot(claim.TenantAggregateRoot)
	m.InvoiceID = claim.InvoiceID
	m.ProofImageURL = claim.ProofImageURL
	m.Note = claim.Note
	m.SubmittedAt = claim.SubmittedAt
	m.ReviewStatus = claim.ReviewStatus
	m.ReviewedBy = claim.ReviewedBy
	m.ReviewedAt = claim.ReviewedAt
	m.ReviewNote = claim.ReviewNote
}

// TransferClaimModelFromDomain creates a new persistence model from a domain TransferClaim.
func TransferClaimModelFromDomain(claim *billing.TransferClaim) *TransferClaimModel {
	m := &TransferClaimModel{}
	m.FromDomain(claim)
	return m
}
