package entity

import "time"

type Notification struct {
	ID uint64

	UserID string
	Type   string

	Title   string
	Message string

	Metadata map[string]string

	CreatedAt time.Time
}
