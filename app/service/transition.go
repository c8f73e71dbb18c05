package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
	"github.com/courtside-solutions/ms-go-booking-payments/app/notification"
	"github.com/courtside-solutions/ms-go-booking-payments/app/partner"
	"github.com/courtside-solutions/ms-go-booking-payments/app/repository"
)

const fallbackCustomerName = "PWA User"

// TransitionParams carries one observed provider state into the applier.
// Zero-valued optionals (empty strings, nil slices and pointers) mean the
// observation did not include that field and the stored value is kept.
type TransitionParams struct {
	OrderID          string
	Status           entity.PaymentStatus
	ProviderStatus   string
	PaymentRequestID string
	ReferenceID      string
	ChannelCode      string
	Actions          []entity.PaymentAction
	Amount           *int64
	ExpiresAt        *time.Time
	SetExpiresAt     bool
}

// ApplyPaymentStateTransition is the single writer for payment state. It
// refreshes the payment row, moves the booking, and fires the paid/cancelled
// side effects. Side effects are gated on the booking status read before the
// write, which is what makes webhook replays and reconcile passes converge on
// exactly one notification and one partner sync per outcome.
func (s *PaymentService) ApplyPaymentStateTransition(ctx context.Context, params TransitionParams) error {
	booking, err := s.bookingRepo.FindByID(ctx, params.OrderID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", params.OrderID).Error("failed to fetch booking during state transition")
		return nil
	}
	if booking == nil {
		s.logger.WithField("order_id", params.OrderID).Warn("booking not found during state transition")
		return nil
	}

	if params.PaymentRequestID != "" {
		if err := s.upsertPaymentForTransition(ctx, params); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"order_id":           params.OrderID,
				"payment_request_id": params.PaymentRequestID,
			}).Error("failed updating payment during state transition")
		}
	}

	paymentState := string(params.Status)
	update := repository.BookingUpdate{PaymentState: &paymentState}

	if params.ChannelCode != "" {
		channelCode := params.ChannelCode
		update.PaymentMethod = &channelCode
	}
	if params.Actions != nil {
		if url := redirectURL(params.Actions); url != "" {
			update.PaymentURL = &url
		}
	}

	switch params.Status {
	case entity.PaymentStatusPaid:
		status := entity.BookingStatusConfirmed
		update.Status = &status
	case entity.PaymentStatusFailed, entity.PaymentStatusExpired:
		status := entity.BookingStatusCancelled
		update.Status = &status
	}

	if err := s.bookingRepo.Update(ctx, params.OrderID, update); err != nil {
		s.logger.WithError(err).WithField("order_id", params.OrderID).Error("failed to update booking payment state")
		return err
	}

	// Side-effect failures surface to the caller so a webhook delivery is
	// not acked while a notification or partner sync is still outstanding.
	var firstErr error
	if params.Status == entity.PaymentStatusPaid && booking.Status != entity.BookingStatusConfirmed {
		firstErr = keepFirstErr(firstErr, s.notifyBookingEvent(ctx, notification.TypeBookingConfirmed, booking))
		firstErr = keepFirstErr(firstErr, s.syncPaidBookingToPartner(ctx, booking, params))
	}

	if (params.Status == entity.PaymentStatusFailed || params.Status == entity.PaymentStatusExpired) &&
		booking.Status != entity.BookingStatusCancelled {
		firstErr = keepFirstErr(firstErr, s.notifyBookingEvent(ctx, notification.TypeBookingCancelled, booking))
	}

	return firstErr
}

// upsertPaymentForTransition merges the observation into the stored payment
// row. Fields absent from the observation keep their stored values.
func (s *PaymentService) upsertPaymentForTransition(ctx context.Context, params TransitionParams) error {
	payment, err := s.paymentRepo.FindByOrderID(ctx, params.OrderID)
	if err != nil {
		return err
	}

	if payment == nil {
		payment = &entity.Payment{
			OrderID:     params.OrderID,
			Provider:    providerName,
			ReferenceID: BuildReferenceID(params.OrderID),
			Currency:    s.currency(""),
		}
	}

	paymentRequestID := params.PaymentRequestID
	payment.PaymentRequestID = &paymentRequestID
	payment.Status = params.Status
	payment.ProviderStatus = params.ProviderStatus

	if params.ReferenceID != "" {
		payment.ReferenceID = params.ReferenceID
	}
	if params.ChannelCode != "" {
		channelCode := params.ChannelCode
		payment.ChannelCode = &channelCode
	}
	if params.Actions != nil {
		payment.Actions = params.Actions
	}
	if params.Amount != nil {
		payment.Amount = *params.Amount
	}
	if params.SetExpiresAt {
		payment.ExpiresAt = params.ExpiresAt
	}

	return s.paymentRepo.Upsert(ctx, payment)
}

func (s *PaymentService) notifyBookingEvent(ctx context.Context, eventType string, booking *entity.Booking) error {
	if s.notifier == nil {
		return nil
	}

	err := s.notifier.CreateBookingEventNotification(ctx, notification.BookingEventInput{
		Type: eventType,
		Booking: notification.BookingInfo{
			ID:          booking.ID,
			UserID:      booking.UserID,
			BookingDate: booking.BookingDate,
			StartTime:   booking.StartTime,
			VenueName:   booking.VenueName,
			CourtName:   booking.CourtName,
		},
	})
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id": booking.ID,
			"type":     eventType,
		}).Error("failed to create booking notification")
	}
	return err
}

func (s *PaymentService) syncPaidBookingToPartner(ctx context.Context, booking *entity.Booking, params TransitionParams) error {
	if s.partnerSync == nil || booking.VenueID == nil || *booking.VenueID == "" {
		return nil
	}

	var totalAmount int64
	if params.Amount != nil {
		totalAmount = *params.Amount
	}

	paidAmount := totalAmount
	if booking.NetVenuePrice != nil {
		paidAmount = *booking.NetVenuePrice
	}

	paymentMethod := params.ChannelCode
	if paymentMethod == "" {
		paymentMethod = "XENDIT"
	}

	customerName := fallbackCustomerName
	if booking.CustomerName != nil && *booking.CustomerName != "" {
		customerName = *booking.CustomerName
	}

	payload := &partner.BookingPaidPayload{
		Event:         "booking.paid",
		BookingID:     booking.ID,
		VenueID:       *booking.VenueID,
		Status:        "LUNAS",
		PaymentStatus: string(entity.PaymentStatusPaid),
		TotalAmount:   totalAmount,
		PaidAmount:    paidAmount,
		PaymentMethod: paymentMethod,
		CustomerName:  customerName,
	}
	if booking.CustomerPhone != nil {
		payload.CustomerPhone = *booking.CustomerPhone
	}

	if err := s.partnerSync.SyncBookingPaid(ctx, payload); err != nil {
		s.logger.WithError(err).WithField("order_id", booking.ID).Error("partner sync failed")
		return err
	}
	return nil
}
