package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories for Billing Service Tests
// =============================================================================

// MockInvoiceRepository is a mock implementation of billing.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindDueForOverdue(ctx context.Context, asOf time.Time, limit int) ([]billing.Invoice, error) {
	args := m.Called(ctx, asOf, limit)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (bool, error) {
	args := m.Called(ctx, tenantID, invoiceNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) GenerateInvoiceNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

func (m *MockInvoiceRepository) AggregateByStatus(ctx context.Context, tenantID uuid.UUID, periodMonth, periodYear *int) ([]billing.StatusAggregate, error) {
	args := m.Called(ctx, tenantID, periodMonth, periodYear)
	return args.Get(0).([]billing.StatusAggregate), args.Error(1)
}

// MockTransferClaimRepository is a mock implementation of billing.TransferClaimRepository
type MockTransferClaimRepository struct {
	mock.Mock
}

func (m *MockTransferClaimRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.TransferClaim, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.TransferClaim), args.Error(1)
}

func (m *MockTransferClaimRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.TransferClaim, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.TransferClaim), args.Error(1)
}

func (m *MockTransferClaimRepository) FindPendingByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*billing.TransferClaim, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.TransferClaim), args.Error(1)
}

func (m *MockTransferClaimRepository) ListByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]billing.TransferClaim, error) {
	args := m.Called(ctx, tenantID, invoiceID)
	return args.Get(0).([]billing.TransferClaim), args.Error(1)
}

func (m *MockTransferClaimRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.TransferClaimFilter) ([]billing.TransferClaim, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]billing.TransferClaim), args.Error(1)
}

func (m *MockTransferClaimRepository) Save(ctx context.Context, claim *billing.TransferClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockTransferClaimRepository) SaveWithLock(ctx context.Context, claim *billing.TransferClaim) error {
	args := m.Called(ctx, claim)
	return args.Error(0)
}

func (m *MockTransferClaimRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.TransferClaimFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// passthroughUnitOfWork runs the function against the mock repositories
// without any real transaction, mirroring how the gorm implementation binds
// repositories to a tx
type passthroughUnitOfWork struct {
	invoices billing.InvoiceRepository
	claims   billing.TransferClaimRepository
}

func (u *passthroughUnitOfWork) Execute(ctx context.Context, fn func(billing.InvoiceRepository, billing.TransferClaimRepository) error) error {
	return fn(u.invoices, u.claims)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockEventPublisher records published events for assertions
type MockEventPublisher struct {
	Events []shared.DomainEvent
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.Events = append(m.Events, events...)
	return nil
}
