package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrAlreadyTerminal     = NewDomainError("ALREADY_TERMINAL", "Invoice is in a terminal state and cannot be modified")
	ErrAmountMismatch      = NewDomainError("AMOUNT_MISMATCH", "Payment amount does not match the remaining balance")
	ErrClaimAlreadyPending = NewDomainError("CLAIM_ALREADY_PENDING", "A transfer confirmation is already awaiting review for this invoice")
	ErrAlreadyReviewed     = NewDomainError("ALREADY_REVIEWED", "Transfer confirmation has already been reviewed")
)
