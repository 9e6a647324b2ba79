package billing

// PaymentMethod represents how an invoice was (or is being) paid.
// The method set is closed: every caller must handle exactly these values.
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "CASH"
	PaymentMethodBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentMethodOnlineGateway PaymentMethod = "ONLINE_GATEWAY"
)

// IsValid checks if the payment method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodOnlineGateway:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// IsDirectlyTrusted returns true for methods whose payment is settled outside
// the system and accepted as-is (cash handed over, gateway already charged).
// Bank transfers are unverified claims and must pass landlord review instead.
func (m PaymentMethod) IsDirectlyTrusted() bool {
	return m == PaymentMethodCash || m == PaymentMethodOnlineGateway
}
