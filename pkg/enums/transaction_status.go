package enums

import "fmt"

// TransactionStatus tracks the lifecycle of a ledger transaction.
//
// Escrow transactions move temporary -> final (delivery) or temporary ->
// canceled (cancellation). Withdrawal transactions move pending -> completed
// or pending -> failed.
type TransactionStatus string

const (
	TransactionStatusTemporary TransactionStatus = "temporary"
	TransactionStatusFinal     TransactionStatus = "final"
	TransactionStatusCanceled  TransactionStatus = "canceled"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

var validTransactionStatuses = []TransactionStatus{
	TransactionStatusTemporary,
	TransactionStatusFinal,
	TransactionStatusCanceled,
	TransactionStatusPending,
	TransactionStatusCompleted,
	TransactionStatusFailed,
}

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	for _, candidate := range validTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status can no longer change.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusFinal, TransactionStatusCanceled, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	default:
		return false
	}
}

// ParseTransactionStatus converts raw input into a TransactionStatus.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	for _, candidate := range validTransactionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction status %q", value)
}
