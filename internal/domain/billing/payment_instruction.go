package billing

import (
	"strings"

	"github.com/rentledger/backend/internal/domain/shared"
	"github.com/rentledger/backend/internal/domain/shared/valueobject"
)

// BankAccount holds the landlord's receiving account details as shown to
// the renter. Configured per deployment, not per invoice.
type BankAccount struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	QRImageURL    string `json:"qr_image_url,omitempty"`
}

// PaymentInstruction is the ephemeral payload a renter needs to pay an
// invoice by bank transfer. It is derived, never persisted: building it is a
// pure read and two calls for the same invoice yield identical output.
type PaymentInstruction struct {
	BankName      string            `json:"bank_name"`
	AccountNumber string            `json:"account_number"`
	AccountName   string            `json:"account_name"`
	QRImageURL    string            `json:"qr_image_url,omitempty"`
	TransferNote  string            `json:"transfer_note"`
	Amount        valueobject.Money `json:"amount"`
}

// TransferNoteFor derives the reconciliation tag for an invoice number.
// The tag is "TT" followed by the uppercased alphanumeric characters of the
// number, so bank statement entries can be matched back to the invoice.
// Deterministic: the same invoice number always yields the same tag.
func TransferNoteFor(invoiceNumber string) string {
	var b strings.Builder
	b.Grow(len(invoiceNumber) + 2)
	b.WriteString("TT")
	for _, r := range invoiceNumber {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		}
	}
	return b.String()
}

// BuildPaymentInstruction produces transfer instructions for an open invoice.
// Drafts have no payable number yet and closed invoices take no payment, so
// both are rejected. The invoice itself is not touched.
func BuildPaymentInstruction(account BankAccount, inv *Invoice) (PaymentInstruction, error) {
	if inv == nil {
		return PaymentInstruction{}, shared.ErrNotFound
	}
	if inv.Status.IsTerminal() || inv.Status == InvoiceStatusDraft {
		return PaymentInstruction{}, shared.ErrInvalidState
	}

	return PaymentInstruction{
		BankName:      account.BankName,
		AccountNumber: account.AccountNumber,
		AccountName:   account.AccountName,
		QRImageURL:    account.QRImageURL,
		TransferNote:  TransferNoteFor(inv.InvoiceNumber),
		Amount:        inv.GetRemainingAmountMoney(),
	}, nil
}
