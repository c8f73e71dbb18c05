package notification

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
	"github.com/courtside-solutions/ms-go-booking-payments/app/factory"
)

const (
	TypeBookingConfirmed = "booking_confirmed"
	TypeBookingCancelled = "booking_cancelled"
	TypePaymentReminder  = "payment_reminder"
)

// BookingInfo is the slice of a booking a notification needs.
type BookingInfo struct {
	ID          string
	UserID      string
	BookingDate *string
	StartTime   *string
	VenueName   *string
	CourtName   *string
}

type BookingEventInput struct {
	Type    string
	Booking BookingInfo
}

type notificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	ExistsForBooking(ctx context.Context, userID, notificationType, bookingID string) (bool, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, key string, payload interface{}) error
}

type Service struct {
	repo      notificationRepository
	publisher eventPublisher
	logger    logrus.FieldLogger
}

// NewService builds the booking notification collaborator. publisher may be
// nil when no broker is configured; notifications are then row-only.
func NewService(repo notificationRepository, publisher eventPublisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    factory.NewModuleLogger("notifications"),
	}
}

// CreateBookingEventNotification records one notification per booking and
// event type. Replays are skipped via the existence check; the broker publish
// is best effort and never fails the caller.
func (s *Service) CreateBookingEventNotification(ctx context.Context, input BookingEventInput) error {
	switch input.Type {
	case TypeBookingConfirmed, TypeBookingCancelled, TypePaymentReminder:
	default:
		return fmt.Errorf("unsupported booking notification type: %s", input.Type)
	}

	exists, err := s.repo.ExistsForBooking(ctx, input.Booking.UserID, input.Type, input.Booking.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	title, message := buildBookingMessage(input.Type, input.Booking)
	notification := &entity.Notification{
		UserID:  input.Booking.UserID,
		Type:    input.Type,
		Title:   title,
		Message: message,
		Metadata: map[string]string{
			"booking_id": input.Booking.ID,
		},
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	if s.publisher != nil {
		event := map[string]interface{}{
			"type":       input.Type,
			"booking_id": input.Booking.ID,
			"user_id":    input.Booking.UserID,
			"title":      title,
			"message":    message,
		}
		if err := s.publisher.Publish(ctx, input.Booking.ID, event); err != nil {
			s.logger.WithError(err).
				WithField("booking_id", input.Booking.ID).
				Warn("failed to publish notification event")
		}
	}

	return nil
}

func buildBookingMessage(notificationType string, booking BookingInfo) (string, string) {
	venueLabel := "venue pilihanmu"
	if booking.VenueName != nil && *booking.VenueName != "" {
		venueLabel = *booking.VenueName
	}
	courtLabel := "lapangan pilihanmu"
	if booking.CourtName != nil && *booking.CourtName != "" {
		courtLabel = *booking.CourtName
	}
	scheduleLabel := formatScheduleLabel(booking.BookingDate, booking.StartTime)

	switch notificationType {
	case TypeBookingConfirmed:
		if scheduleLabel != "" {
			return "Booking Dikonfirmasi",
				fmt.Sprintf("Booking %s di %s pada %s sudah dikonfirmasi. Sampai jumpa di lapangan!", courtLabel, venueLabel, scheduleLabel)
		}
		return "Booking Dikonfirmasi",
			fmt.Sprintf("Booking %s di %s sudah dikonfirmasi. Sampai jumpa di lapangan!", courtLabel, venueLabel)
	case TypeBookingCancelled:
		return "Booking Dibatalkan",
			fmt.Sprintf("Booking %s di %s dibatalkan karena pembayaran tidak selesai.", courtLabel, venueLabel)
	default:
		if scheduleLabel != "" {
			return "Selesaikan Pembayaran",
				fmt.Sprintf("Segera selesaikan pembayaran booking %s di %s pada %s sebelum slotmu hangus.", courtLabel, venueLabel, scheduleLabel)
		}
		return "Selesaikan Pembayaran",
			fmt.Sprintf("Segera selesaikan pembayaran booking %s di %s sebelum slotmu hangus.", courtLabel, venueLabel)
	}
}

func formatScheduleLabel(bookingDate, startTime *string) string {
	if bookingDate == nil || *bookingDate == "" {
		return ""
	}
	if startTime == nil || *startTime == "" {
		return *bookingDate
	}
	start := *startTime
	if len(start) > 5 {
		start = start[:5]
	}
	return *bookingDate + " " + start
}
