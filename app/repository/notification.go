package repository

import (
	"context"
	"time"

	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	metadataJSON, err := serializeMetadata(notification.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (user_id, type, title, message, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	notification.CreatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Message,
		metadataJSON,
		notification.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	notification.ID = uint64(id)
	return nil
}

// ExistsForBooking reports whether the user already has a notification of the
// given type carrying the booking id in its metadata. Used to keep booking
// event notifications single-shot across replays and reminder runs.
func (r *NotificationRepository) ExistsForBooking(ctx context.Context, userID, notificationType, bookingID string) (bool, error) {
	query := `
		SELECT COUNT(1)
		FROM notifications
		WHERE user_id = ?
		  AND type = ?
		  AND JSON_UNQUOTE(JSON_EXTRACT(metadata_json, '$.booking_id')) = ?
	`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, userID, notificationType, bookingID).Scan(&count); err != nil {
		return false, err
	}

	return count > 0, nil
}
