package service

import (
	"context"
	"time"

	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
	"github.com/courtside-solutions/ms-go-booking-payments/app/notification"
)

// OrderPaymentSnapshot is the combined booking-plus-payment view served to
// status readers.
type OrderPaymentSnapshot struct {
	OrderID          string
	OrderStatus      string
	PaymentStatus    string
	ProviderStatus   string
	PaymentRequestID string
	ReferenceID      string
	ChannelCode      string
	Amount           int64
	Currency         string
	Actions          []entity.PaymentAction
	ExpiresAt        *time.Time
	UpdatedAt        *time.Time
}

// GetOrderPaymentStatus reads the stored state for an order. With
// syncFromProvider set, a non-terminal payment is refreshed from the provider
// first; a provider outage degrades to the stored snapshot instead of
// failing the read.
func (s *PaymentService) GetOrderPaymentStatus(ctx context.Context, orderID string, syncFromProvider bool) (*OrderPaymentSnapshot, error) {
	booking, err := s.bookingRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrOrderNotFound
	}

	payment, err := s.paymentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if syncFromProvider && payment != nil && payment.PaymentRequestID != nil && *payment.PaymentRequestID != "" && !payment.Status.Terminal() {
		if err := s.syncPaymentFromProvider(ctx, orderID, *payment.PaymentRequestID); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID).Error("failed to sync payment status from provider")
		} else {
			// The transition may have rewritten both rows; re-read them so
			// the snapshot reflects the post-sync state.
			refreshed, err := s.paymentRepo.FindByOrderID(ctx, orderID)
			if err != nil {
				return nil, err
			}
			payment = refreshed

			booking, err = s.bookingRepo.FindByID(ctx, orderID)
			if err != nil {
				return nil, err
			}
			if booking == nil {
				return nil, ErrOrderNotFound
			}
		}
	}

	snapshot := &OrderPaymentSnapshot{
		OrderID:     orderID,
		OrderStatus: booking.Status,
	}
	if booking.PaymentState != nil {
		snapshot.PaymentStatus = *booking.PaymentState
	}

	if payment != nil {
		snapshot.PaymentStatus = string(payment.Status)
		snapshot.ProviderStatus = payment.ProviderStatus
		snapshot.ReferenceID = payment.ReferenceID
		snapshot.Amount = payment.Amount
		snapshot.Currency = payment.Currency
		snapshot.Actions = payment.Actions
		snapshot.ExpiresAt = payment.ExpiresAt
		updatedAt := payment.UpdatedAt
		snapshot.UpdatedAt = &updatedAt
		if payment.PaymentRequestID != nil {
			snapshot.PaymentRequestID = *payment.PaymentRequestID
		}
		if payment.ChannelCode != nil {
			snapshot.ChannelCode = *payment.ChannelCode
		}
	}

	return snapshot, nil
}

func (s *PaymentService) syncPaymentFromProvider(ctx context.Context, orderID, paymentRequestID string) error {
	snapshot, err := s.GetPaymentRequestStatus(ctx, paymentRequestID)
	if err != nil {
		return err
	}

	var amount *int64
	if snapshot.RequestAmount > 0 {
		requestAmount := snapshot.RequestAmount
		amount = &requestAmount
	}

	return s.ApplyPaymentStateTransition(ctx, TransitionParams{
		OrderID:          orderID,
		Status:           snapshot.Status,
		ProviderStatus:   snapshot.ProviderStatus,
		PaymentRequestID: paymentRequestID,
		ReferenceID:      snapshot.ReferenceID,
		ChannelCode:      snapshot.ChannelCode,
		Actions:          snapshot.Actions,
		Amount:           amount,
		ExpiresAt:        snapshot.ExpiresAt,
		SetExpiresAt:     true,
	})
}

// RunReconcileBatch sweeps payments stuck awaiting the payer and replays the
// provider's current state through the transition applier. Covers webhook
// deliveries that never arrived.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) error {
	now := time.Now().UTC()
	before := now.Add(-s.paymentsCfg.ReconcileStaleAfter)

	items, err := s.paymentRepo.ListStaleNonTerminal(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, payment := range items {
		if payment == nil || payment.PaymentRequestID == nil || *payment.PaymentRequestID == "" {
			continue
		}

		if err := s.syncPaymentFromProvider(ctx, payment.OrderID, *payment.PaymentRequestID); err != nil {
			s.logger.WithError(err).WithField("order_id", payment.OrderID).Error("reconcile pass failed for payment")
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunPaymentReminderBatch nudges users whose bookings are still pending past
// the reminder window. The notification layer's per-booking existence check
// keeps repeated runs from sending twice.
func (s *PaymentService) RunPaymentReminderBatch(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}

	now := time.Now().UTC()
	cutoff := now.Add(-s.paymentsCfg.ReminderAfter)

	bookings, err := s.bookingRepo.ListPendingCreatedBefore(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, booking := range bookings {
		if booking == nil {
			continue
		}

		err := s.notifier.CreateBookingEventNotification(ctx, notification.BookingEventInput{
			Type: notification.TypePaymentReminder,
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
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}
