package entity

import "time"

// PaymentStatus is the internal payment state. Provider status strings are
// normalized onto this set; everything except PendingUserAction is terminal.
type PaymentStatus string

const (
	PaymentStatusPendingUserAction PaymentStatus = "PENDING_USER_ACTION"
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusExpired           PaymentStatus = "EXPIRED"
)

func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusExpired:
		return true
	default:
		return false
	}
}

// PaymentAction is a provider-supplied instruction for the payer. A
// REDIRECT_CUSTOMER action's value is the URL the customer must be sent to.
type PaymentAction struct {
	Type       string  `json:"type"`
	Descriptor *string `json:"descriptor"`
	Value      string  `json:"value"`
}

type Payment struct {
	ID uint64

	OrderID  string
	Provider string

	ReferenceID      string
	PaymentRequestID *string
	ChannelCode      *string

	Amount   int64
	Currency string

	Status         PaymentStatus
	ProviderStatus string

	Actions   []PaymentAction
	ExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
