package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
	"github.com/courtside-solutions/ms-go-booking-payments/app/factory"
	"github.com/courtside-solutions/ms-go-booking-payments/app/notification"
	"github.com/courtside-solutions/ms-go-booking-payments/app/partner"
	"github.com/courtside-solutions/ms-go-booking-payments/app/provider"
	"github.com/courtside-solutions/ms-go-booking-payments/app/repository"
	"github.com/courtside-solutions/ms-go-booking-payments/config"
)

const defaultBatchSize = int32(100)

type bookingRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Booking, error)
	Update(ctx context.Context, id string, update repository.BookingUpdate) error
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Booking, error)
}

type paymentRepository interface {
	Upsert(ctx context.Context, payment *entity.Payment) error
	FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error)
	FindOrderIDByPaymentRequestID(ctx context.Context, paymentRequestID string) (string, error)
	ListStaleNonTerminal(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error)
}

type webhookEventRepository interface {
	Insert(ctx context.Context, event *entity.WebhookEvent) error
}

type bookingNotifier interface {
	CreateBookingEventNotification(ctx context.Context, input notification.BookingEventInput) error
}

type partnerSyncClient interface {
	SyncBookingPaid(ctx context.Context, payload *partner.BookingPaidPayload) error
}

type PaymentService struct {
	bookingRepo    bookingRepository
	paymentRepo    paymentRepository
	webhookRepo    webhookEventRepository
	providerClient provider.Client
	notifier       bookingNotifier
	partnerSync    partnerSyncClient
	paymentsCfg    config.PaymentsConfig
	logger         logrus.FieldLogger
}

// NewPaymentService wires the payment pipeline. notifier and partnerSync may
// be nil; the matching side effects are then skipped.
func NewPaymentService(
	bookingRepo bookingRepository,
	paymentRepo paymentRepository,
	webhookRepo webhookEventRepository,
	providerClient provider.Client,
	notifier bookingNotifier,
	partnerSync partnerSyncClient,
	paymentsCfg config.PaymentsConfig,
) *PaymentService {
	return &PaymentService{
		bookingRepo:    bookingRepo,
		paymentRepo:    paymentRepo,
		webhookRepo:    webhookRepo,
		providerClient: providerClient,
		notifier:       notifier,
		partnerSync:    partnerSync,
		paymentsCfg:    paymentsCfg,
		logger:         factory.NewModuleLogger("payment-service"),
	}
}

type InitiatePaymentInput struct {
	OrderID           string
	Amount            int64
	ChannelCode       string
	Currency          string
	Country           string
	Description       string
	ChannelProperties map[string]any
	Metadata          map[string]any
}

type InitiatePaymentResult struct {
	OrderID          string
	PaymentRequestID string
	ReferenceID      string
	Status           entity.PaymentStatus
	ProviderStatus   string
	Actions          []entity.PaymentAction
	ExpiresAt        *time.Time
}

// CreatePaymentRequestForOrder opens (or resumes) a provider payment request
// for the order. An existing non-terminal request is returned as-is instead
// of minting a second one, so retried checkouts stay idempotent.
func (s *PaymentService) CreatePaymentRequestForOrder(ctx context.Context, input InitiatePaymentInput) (*InitiatePaymentResult, error) {
	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" || input.Amount <= 0 {
		return nil, ErrInvalidRequest
	}

	referenceID := BuildReferenceID(orderID)
	channelCode := s.channelCode(input.ChannelCode)
	country := s.country(input.Country)
	currency := s.currency(input.Currency)

	existing, err := s.paymentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("failed checking existing payment")
		return nil, err
	}

	if existing != nil && existing.PaymentRequestID != nil && *existing.PaymentRequestID != "" && !existing.Status.Terminal() {
		result := &InitiatePaymentResult{
			OrderID:          orderID,
			PaymentRequestID: *existing.PaymentRequestID,
			ReferenceID:      existing.ReferenceID,
			Status:           existing.Status,
			ProviderStatus:   normalizeProviderStatus(existing.ProviderStatus),
			Actions:          existing.Actions,
			ExpiresAt:        existing.ExpiresAt,
		}
		if result.ReferenceID == "" {
			result.ReferenceID = referenceID
		}
		return result, nil
	}

	payload := &provider.CreatePaymentRequestPayload{
		ReferenceID:       referenceID,
		Type:              "PAY",
		Country:           country,
		Currency:          currency,
		RequestAmount:     input.Amount,
		ChannelCode:       channelCode,
		ChannelProperties: s.channelProperties(orderID, input.ChannelProperties),
		Description:       input.Description,
		Metadata:          s.requestMetadata(orderID, input.Metadata),
	}

	paymentRequest, err := s.providerClient.CreatePaymentRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	providerStatus := normalizeProviderStatus(paymentRequest.Status)
	status := MapProviderStatus(providerStatus)
	actions := normalizeActions(paymentRequest.Actions)
	expiresAt := parseExpiry(paymentRequest.ExpiresAt)

	payment := &entity.Payment{
		OrderID:          orderID,
		Provider:         providerName,
		ReferenceID:      referenceID,
		PaymentRequestID: &paymentRequest.ID,
		ChannelCode:      &channelCode,
		Amount:           input.Amount,
		Currency:         currency,
		Status:           status,
		ProviderStatus:   providerStatus,
		Actions:          actions,
		ExpiresAt:        expiresAt,
	}
	if existing != nil {
		payment.ID = existing.ID
		payment.CreatedAt = existing.CreatedAt
	}

	if err := s.paymentRepo.Upsert(ctx, payment); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"order_id":     orderID,
			"reference_id": referenceID,
		}).Error("failed to upsert payment row")
		return nil, err
	}

	paymentState := string(status)
	update := repository.BookingUpdate{
		PaymentState:  &paymentState,
		PaymentMethod: &channelCode,
	}
	if url := redirectURL(actions); url != "" {
		update.PaymentURL = &url
	}

	if err := s.bookingRepo.Update(ctx, orderID, update); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("failed to update booking payment metadata")
		return nil, err
	}

	return &InitiatePaymentResult{
		OrderID:          orderID,
		PaymentRequestID: paymentRequest.ID,
		ReferenceID:      referenceID,
		Status:           status,
		ProviderStatus:   providerStatus,
		Actions:          actions,
		ExpiresAt:        expiresAt,
	}, nil
}

// ProviderSnapshot is the provider's current view of a payment request,
// already normalized.
type ProviderSnapshot struct {
	PaymentRequestID string
	Status           entity.PaymentStatus
	ProviderStatus   string
	Actions          []entity.PaymentAction
	ExpiresAt        *time.Time
	ChannelCode      string
	ReferenceID      string
	RequestAmount    int64
}

func (s *PaymentService) GetPaymentRequestStatus(ctx context.Context, paymentRequestID string) (*ProviderSnapshot, error) {
	paymentRequest, err := s.providerClient.GetPaymentRequest(ctx, paymentRequestID)
	if err != nil {
		return nil, err
	}

	providerStatus := normalizeProviderStatus(paymentRequest.Status)

	return &ProviderSnapshot{
		PaymentRequestID: paymentRequestID,
		Status:           MapProviderStatus(providerStatus),
		ProviderStatus:   providerStatus,
		Actions:          normalizeActions(paymentRequest.Actions),
		ExpiresAt:        parseExpiry(paymentRequest.ExpiresAt),
		ChannelCode:      strings.TrimSpace(paymentRequest.ChannelCode),
		ReferenceID:      strings.TrimSpace(paymentRequest.ReferenceID),
		RequestAmount:    paymentRequest.RequestAmount,
	}, nil
}

func (s *PaymentService) channelCode(requested string) string {
	if code := strings.TrimSpace(requested); code != "" {
		return code
	}
	if s.paymentsCfg.DefaultChannelCode != "" {
		return s.paymentsCfg.DefaultChannelCode
	}
	return "QRIS"
}

func (s *PaymentService) country(requested string) string {
	if country := strings.TrimSpace(requested); country != "" {
		return country
	}
	if s.paymentsCfg.Country != "" {
		return s.paymentsCfg.Country
	}
	return "ID"
}

func (s *PaymentService) currency(requested string) string {
	if currency := strings.TrimSpace(requested); currency != "" {
		return currency
	}
	if s.paymentsCfg.Currency != "" {
		return s.paymentsCfg.Currency
	}
	return "IDR"
}

func (s *PaymentService) channelProperties(orderID string, overrides map[string]any) map[string]any {
	baseURL := strings.TrimRight(s.paymentsCfg.AppBaseURL, "/")

	properties := map[string]any{
		"success_return_url": baseURL + "/bookings/history?payment=success&booking_id=" + orderID,
		"failure_return_url": baseURL + "/bookings/history?payment=failed&booking_id=" + orderID,
	}
	for key, value := range overrides {
		properties[key] = value
	}
	return properties
}

func (s *PaymentService) requestMetadata(orderID string, overrides map[string]any) map[string]any {
	metadata := map[string]any{"order_id": orderID}
	for key, value := range overrides {
		metadata[key] = value
	}
	return metadata
}

func (s *PaymentService) batchSize() int32 {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func keepFirstErr(current, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
