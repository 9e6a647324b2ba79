package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	ContractID  *uuid.UUID     // Filter by contract
	RoomID      *uuid.UUID     // Filter by room
	RenterID    *uuid.UUID     // Filter by renter
	Status      *InvoiceStatus // Filter by status
	PeriodMonth *int           // Filter by billing month
	PeriodYear  *int           // Filter by billing year
	DueFrom     *time.Time     // Filter by due date range start
	DueTo       *time.Time     // Filter by due date range end
}

// StatusAggregate is one row of the reconciliation breakdown: the count and
// amount totals for a single invoice status. Computed directly from the
// authoritative invoice fields, never from a separately maintained counter.
type StatusAggregate struct {
	Status      InvoiceStatus   `json:"status"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForTenant finds an invoice by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its number for a tenant
	FindByNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*Invoice, error)

	// FindAllForTenant finds all invoices for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// FindDueForOverdue finds open invoices whose due date has lapsed,
	// candidates for the overdue sweep
	FindDueForOverdue(ctx context.Context, asOf time.Time, limit int) ([]Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// CountForTenant counts invoices for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (int64, error)

	// ExistsByNumber checks if an invoice number exists for a tenant
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (bool, error)

	// GenerateInvoiceNumber generates a unique invoice number for a tenant
	GenerateInvoiceNumber(ctx context.Context, tenantID uuid.UUID) (string, error)

	// AggregateByStatus returns the per-status counts and sums for a tenant,
	// optionally restricted to one billing period
	AggregateByStatus(ctx context.Context, tenantID uuid.UUID, periodMonth, periodYear *int) ([]StatusAggregate, error)
}

// UnitOfWork executes a function with invoice and claim repositories bound to
// a single transaction. The claim workflow writes both aggregates together;
// either both land or neither does.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(invoices InvoiceRepository, claims TransferClaimRepository) error) error
}

// TransferClaimFilter defines filtering options for claim queries
type TransferClaimFilter struct {
	shared.Filter
	InvoiceID    *uuid.UUID    // Filter by invoice
	ReviewStatus *ReviewStatus // Filter by review status
}

// TransferClaimRepository defines the interface for transfer claim persistence
type TransferClaimRepository interface {
	// FindByID finds a claim by ID
	FindByID(ctx context.Context, id uuid.UUID) (*TransferClaim, error)

	// FindByIDForTenant finds a claim by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*TransferClaim, error)

	// FindPendingByInvoice finds the pending claim for an invoice, if any
	FindPendingByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*TransferClaim, error)

	// ListByInvoice returns the full claim history for an invoice,
	// ordered by submission time
	ListByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]TransferClaim, error)

	// FindAllForTenant finds claims for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter TransferClaimFilter) ([]TransferClaim, error)

	// Save creates or updates a claim
	Save(ctx context.Context, claim *TransferClaim) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, claim *TransferClaim) error

	// CountForTenant counts claims for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter TransferClaimFilter) (int64, error)
}
