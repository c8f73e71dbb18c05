package entity

import "time"

// WebhookEvent is the append-only ledger row written for every inbound
// provider callback. The unique dedupe key is the duplicate-delivery guard.
type WebhookEvent struct {
	ID uint64

	Provider  string
	DedupeKey string

	ProviderEventID  *string
	WebhookID        *string
	PaymentRequestID *string
	ReferenceID      *string

	Status      string
	PayloadJSON string

	CreatedAt time.Time
}
