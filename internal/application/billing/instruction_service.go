package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/billing"
	"github.com/rentledger/backend/internal/domain/shared"
)

// PaymentInstructionService produces bank-transfer instructions for open
// invoices. It is strictly read-only: requesting instructions and declaring
// a payment are separate operations, and this service only does the former.
type PaymentInstructionService struct {
	invoiceRepo billing.InvoiceRepository
	account     billing.BankAccount
}

// NewPaymentInstructionService creates a new PaymentInstructionService
func NewPaymentInstructionService(invoiceRepo billing.InvoiceRepository, account billing.BankAccount) *PaymentInstructionService {
	return &PaymentInstructionService{
		invoiceRepo: invoiceRepo,
		account:     account,
	}
}

// GetInstructions returns the transfer instructions for an invoice.
// Repeated calls return identical output; nothing is persisted or mutated.
func (s *PaymentInstructionService) GetInstructions(ctx context.Context, tenantID, invoiceID uuid.UUID) (*billing.PaymentInstruction, error) {
	inv, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.ErrNotFound
	}

	instruction, err := billing.BuildPaymentInstruction(s.account, inv)
	if err != nil {
		return nil, err
	}
	return &instruction, nil
}
