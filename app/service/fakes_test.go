package service

import (
	"context"
	"errors"
	"time"

	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
	"github.com/courtside-solutions/ms-go-booking-payments/app/notification"
	"github.com/courtside-solutions/ms-go-booking-payments/app/partner"
	"github.com/courtside-solutions/ms-go-booking-payments/app/provider"
	"github.com/courtside-solutions/ms-go-booking-payments/app/repository"
	"github.com/courtside-solutions/ms-go-booking-payments/config"
)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

type fakeBookingRepo struct {
	bookings map[string]*entity.Booking
	updates  []repository.BookingUpdate
	findErr  error
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: map[string]*entity.Booking{}}
}

func (f *fakeBookingRepo) FindByID(_ context.Context, id string) (*entity.Booking, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	booking, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	clone := *booking
	return &clone, nil
}

func (f *fakeBookingRepo) Update(_ context.Context, id string, update repository.BookingUpdate) error {
	booking, ok := f.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}

	f.updates = append(f.updates, update)

	if update.Status != nil {
		booking.Status = *update.Status
	}
	if update.PaymentState != nil {
		booking.PaymentState = strPtr(*update.PaymentState)
	}
	if update.PaymentMethod != nil {
		booking.PaymentMethod = strPtr(*update.PaymentMethod)
	}
	if update.PaymentURL != nil {
		booking.PaymentURL = strPtr(*update.PaymentURL)
	}
	booking.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeBookingRepo) ListPendingCreatedBefore(_ context.Context, cutoff time.Time, limit int32) ([]*entity.Booking, error) {
	items := make([]*entity.Booking, 0)
	for _, booking := range f.bookings {
		if booking.Status != entity.BookingStatusPending {
			continue
		}
		if booking.CreatedAt.After(cutoff) {
			continue
		}
		clone := *booking
		items = append(items, &clone)
		if int32(len(items)) >= limit {
			break
		}
	}
	return items, nil
}

type fakePaymentRepo struct {
	payments  map[string]*entity.Payment
	upserts   int
	upsertErr error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[string]*entity.Payment{}}
}

func (f *fakePaymentRepo) Upsert(_ context.Context, payment *entity.Payment) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	clone := *payment
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now().UTC()
	}
	clone.UpdatedAt = time.Now().UTC()
	f.payments[payment.OrderID] = &clone
	return nil
}

func (f *fakePaymentRepo) FindByOrderID(_ context.Context, orderID string) (*entity.Payment, error) {
	payment, ok := f.payments[orderID]
	if !ok {
		return nil, nil
	}
	clone := *payment
	return &clone, nil
}

func (f *fakePaymentRepo) FindOrderIDByPaymentRequestID(_ context.Context, paymentRequestID string) (string, error) {
	for orderID, payment := range f.payments {
		if payment.PaymentRequestID != nil && *payment.PaymentRequestID == paymentRequestID {
			return orderID, nil
		}
	}
	return "", nil
}

func (f *fakePaymentRepo) ListStaleNonTerminal(_ context.Context, before time.Time, limit int32) ([]*entity.Payment, error) {
	items := make([]*entity.Payment, 0)
	for _, payment := range f.payments {
		if payment.Status.Terminal() || payment.PaymentRequestID == nil {
			continue
		}
		if payment.UpdatedAt.After(before) {
			continue
		}
		clone := *payment
		items = append(items, &clone)
		if int32(len(items)) >= limit {
			break
		}
	}
	return items, nil
}

type fakeWebhookRepo struct {
	rows []entity.WebhookEvent
	seen map[string]bool
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{seen: map[string]bool{}}
}

func (f *fakeWebhookRepo) Insert(_ context.Context, event *entity.WebhookEvent) error {
	if f.seen[event.DedupeKey] {
		return repository.ErrDuplicateWebhookEvent
	}
	f.seen[event.DedupeKey] = true
	f.rows = append(f.rows, *event)
	return nil
}

type fakeProviderClient struct {
	createResponse *provider.PaymentRequest
	createErr      error
	createCalls    int

	getResponse *provider.PaymentRequest
	getErr      error
	getCalls    int
}

func (f *fakeProviderClient) CreatePaymentRequest(_ context.Context, _ *provider.CreatePaymentRequestPayload) (*provider.PaymentRequest, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createResponse == nil {
		return nil, errors.New("no scripted create response")
	}
	clone := *f.createResponse
	return &clone, nil
}

func (f *fakeProviderClient) GetPaymentRequest(_ context.Context, _ string) (*provider.PaymentRequest, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getResponse == nil {
		return nil, errors.New("no scripted get response")
	}
	clone := *f.getResponse
	return &clone, nil
}

type fakeNotifier struct {
	inputs []notification.BookingEventInput
	err    error
}

func (f *fakeNotifier) CreateBookingEventNotification(_ context.Context, input notification.BookingEventInput) error {
	if f.err != nil {
		return f.err
	}
	f.inputs = append(f.inputs, input)
	return nil
}

type fakePartnerSync struct {
	payloads []partner.BookingPaidPayload
	err      error
}

func (f *fakePartnerSync) SyncBookingPaid(_ context.Context, payload *partner.BookingPaidPayload) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, *payload)
	return nil
}

type testEnv struct {
	service     *PaymentService
	bookingRepo *fakeBookingRepo
	paymentRepo *fakePaymentRepo
	webhookRepo *fakeWebhookRepo
	provider    *fakeProviderClient
	notifier    *fakeNotifier
	partnerSync *fakePartnerSync
}

func newTestEnv() *testEnv {
	env := &testEnv{
		bookingRepo: newFakeBookingRepo(),
		paymentRepo: newFakePaymentRepo(),
		webhookRepo: newFakeWebhookRepo(),
		provider:    &fakeProviderClient{},
		notifier:    &fakeNotifier{},
		partnerSync: &fakePartnerSync{},
	}

	env.service = NewPaymentService(
		env.bookingRepo,
		env.paymentRepo,
		env.webhookRepo,
		env.provider,
		env.notifier,
		env.partnerSync,
		config.PaymentsConfig{
			AppBaseURL:          "https://app.example.com",
			DefaultChannelCode:  "QRIS",
			Country:             "ID",
			Currency:            "IDR",
			ReconcileStaleAfter: 10 * time.Minute,
			ReminderAfter:       30 * time.Minute,
			JobBatchSize:        50,
		},
	)
	return env
}

func seedBooking(env *testEnv, id string) *entity.Booking {
	booking := &entity.Booking{
		ID:            id,
		UserID:        "user-1",
		Status:        entity.BookingStatusPending,
		VenueID:       strPtr("venue-1"),
		VenueName:     strPtr("GOR Senayan"),
		CourtName:     strPtr("Lapangan 2"),
		BookingDate:   strPtr("2026-09-01"),
		StartTime:     strPtr("19:00:00"),
		NetVenuePrice: int64Ptr(45000),
		CustomerName:  strPtr("Budi Santoso"),
		CustomerPhone: strPtr("+628123456789"),
		CreatedAt:     time.Now().UTC().Add(-time.Hour),
	}
	env.bookingRepo.bookings[id] = booking
	return booking
}
