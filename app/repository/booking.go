package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
)

var ErrBookingNotFound = errors.New("booking not found")

// BookingUpdate is a partial update: only non-nil fields are written.
type BookingUpdate struct {
	Status        *string
	PaymentState  *string
	PaymentMethod *string
	PaymentURL    *string
}

func (u BookingUpdate) empty() bool {
	return u.Status == nil && u.PaymentState == nil && u.PaymentMethod == nil && u.PaymentURL == nil
}

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, user_id, status, venue_id, venue_name, court_name,
		booking_date, start_time, payment_state, payment_method, payment_url,
		net_venue_price, customer_name, customer_phone, created_at, updated_at`

func (r *BookingRepository) FindByID(ctx context.Context, id string) (*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = ?
	`

	booking := &entity.Booking{}
	if err := scanBooking(r.db.QueryRowContext(ctx, query, id), booking); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return booking, nil
}

func (r *BookingRepository) Update(ctx context.Context, id string, update BookingUpdate) error {
	if update.empty() {
		return nil
	}

	assignments := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)

	if update.Status != nil {
		assignments = append(assignments, "status = ?")
		args = append(args, *update.Status)
	}
	if update.PaymentState != nil {
		assignments = append(assignments, "payment_state = ?")
		args = append(args, *update.PaymentState)
	}
	if update.PaymentMethod != nil {
		assignments = append(assignments, "payment_method = ?")
		args = append(args, *update.PaymentMethod)
	}
	if update.PaymentURL != nil {
		assignments = append(assignments, "payment_url = ?")
		args = append(args, *update.PaymentURL)
	}

	assignments = append(assignments, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := "UPDATE bookings SET " + strings.Join(assignments, ", ") + " WHERE id = ?"

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

func (r *BookingRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = ?
		  AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, entity.BookingStatusPending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*entity.Booking, 0)
	for rows.Next() {
		item := &entity.Booking{}
		if err := scanBooking(rows, item); err != nil {
			return nil, err
		}
		bookings = append(bookings, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

func scanBooking(scan rowScanner, booking *entity.Booking) error {
	var venueID sql.NullString
	var venueName sql.NullString
	var courtName sql.NullString
	var bookingDate sql.NullString
	var startTime sql.NullString
	var paymentState sql.NullString
	var paymentMethod sql.NullString
	var paymentURL sql.NullString
	var netVenuePrice sql.NullInt64
	var customerName sql.NullString
	var customerPhone sql.NullString

	err := scan.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.Status,
		&venueID,
		&venueName,
		&courtName,
		&bookingDate,
		&startTime,
		&paymentState,
		&paymentMethod,
		&paymentURL,
		&netVenuePrice,
		&customerName,
		&customerPhone,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return err
	}

	booking.VenueID = stringPtrFromNull(venueID)
	booking.VenueName = stringPtrFromNull(venueName)
	booking.CourtName = stringPtrFromNull(courtName)
	booking.BookingDate = stringPtrFromNull(bookingDate)
	booking.StartTime = stringPtrFromNull(startTime)
	booking.PaymentState = stringPtrFromNull(paymentState)
	booking.PaymentMethod = stringPtrFromNull(paymentMethod)
	booking.PaymentURL = stringPtrFromNull(paymentURL)
	booking.NetVenuePrice = int64PtrFromNull(netVenuePrice)
	booking.CustomerName = stringPtrFromNull(customerName)
	booking.CustomerPhone = stringPtrFromNull(customerPhone)

	return nil
}
