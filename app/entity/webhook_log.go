package entity

import "time"

// WebhookLog records the outcome of every webhook HTTP delivery, including
// ones rejected before processing.
type WebhookLog struct {
	ID uint64

	Source       string
	Status       string
	ResponseCode int32

	PayloadJSON  *string
	ErrorMessage *string

	CreatedAt time.Time
}
