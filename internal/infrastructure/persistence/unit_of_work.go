package persistence

import (
	"context"

	"github.com/rentledger/backend/internal/domain/billing"
	"gorm.io/gorm"
)

// GormUnitOfWork implements billing.UnitOfWork over a database transaction.
// Both repositories handed to the callback share the same transaction, so the
// claim and invoice writes of the review workflow commit or roll back together.
type GormUnitOfWork struct {
	database *Database
	invoices *GormInvoiceRepository
	claims   *GormTransferClaimRepository
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(database *Database) *GormUnitOfWork {
	return &GormUnitOfWork{
		database: database,
		invoices: NewGormInvoiceRepository(database.DB),
		claims:   NewGormTransferClaimRepository(database.DB),
	}
}

// Execute runs fn inside a single transaction with transaction-bound repositories
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(invoices billing.InvoiceRepository, claims billing.TransferClaimRepository) error) error {
	return u.database.Transaction(func(tx *gorm.DB) error {
		txc := tx.WithContext(ctx)
		return fn(u.invoices.WithTx(txc), u.claims.WithTx(txc))
	})
}

// Ensure GormUnitOfWork implements billing.UnitOfWork
var _ billing.UnitOfWork = (*GormUnitOfWork)(nil)
