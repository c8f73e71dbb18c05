package entity

import "time"

const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

// Booking is the order being paid for: a reserved court slot. Rows are created
// by the booking flow in pending state and mutated here only through payment
// state transitions.
type Booking struct {
	ID     string
	UserID string
	Status string

	VenueID   *string
	VenueName *string
	CourtName *string

	BookingDate *string
	StartTime   *string

	PaymentState  *string
	PaymentMethod *string
	PaymentURL    *string

	NetVenuePrice *int64

	CustomerName  *string
	CustomerPhone *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
