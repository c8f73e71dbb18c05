package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
	"github.com/courtside-solutions/ms-go-booking-payments/app/repository"
)

// WebhookEvent is a provider callback reduced to the fields the pipeline acts
// on. Empty strings mean the payload did not carry the field.
type WebhookEvent struct {
	EventType        string
	ProviderEventID  string
	WebhookID        string
	PaymentRequestID string
	ReferenceID      string
	ProviderStatus   string
	InternalStatus   entity.PaymentStatus
	Amount           *int64
	ChannelCode      string
	DedupeKey        string
}

// WebhookOutcome reports what a callback delivery did. Duplicates and
// unresolvable events are acknowledged, not errors.
type WebhookOutcome struct {
	Duplicate bool
	Ignored   bool
	Reason    string
	OrderID   string
	Event     WebhookEvent
}

func stringField(body map[string]any, key string) string {
	if body == nil {
		return ""
	}
	if value, ok := body[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// numberField treats a present zero as absent so the amount fallback chain
// moves on to the next candidate field.
func numberField(body map[string]any, key string) *int64 {
	if body == nil {
		return nil
	}
	if value, ok := body[key].(float64); ok && value != 0 {
		amount := int64(value)
		return &amount
	}
	return nil
}

func recordField(body map[string]any, key string) map[string]any {
	if body == nil {
		return nil
	}
	if value, ok := body[key].(map[string]any); ok {
		return value
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func headerField(headers http.Header, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(headers.Get(key)); value != "" {
			return value
		}
	}
	return ""
}

// NormalizeWebhookEvent flattens the provider's callback envelope variants.
// Payment data may sit at the top level, under data, or under the value (and
// optionally value.data) of a paymentCapture, paymentAuthorization or
// paymentFailure wrapper. The dedupe key prefers provider-assigned ids and
// falls back to a request-plus-status composite.
func NormalizeWebhookEvent(payload []byte, headers http.Header) WebhookEvent {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil || body == nil {
		body = map[string]any{}
	}

	captureValue := recordField(recordField(body, "paymentCapture"), "value")
	authorizationValue := recordField(recordField(body, "paymentAuthorization"), "value")
	failureValue := recordField(recordField(body, "paymentFailure"), "value")

	nestedData := recordField(body, "data")
	if nestedData == nil {
		nestedData = recordField(captureValue, "data")
	}
	if nestedData == nil {
		nestedData = recordField(authorizationValue, "data")
	}
	if nestedData == nil {
		nestedData = recordField(failureValue, "data")
	}
	if nestedData == nil {
		nestedData = body
	}

	providerStatus := firstNonEmpty(
		stringField(nestedData, "status"),
		stringField(captureValue, "status"),
		stringField(authorizationValue, "status"),
		stringField(failureValue, "status"),
		stringField(body, "status"),
		defaultProviderStatus,
	)

	paymentRequestID := firstNonEmpty(
		stringField(nestedData, "payment_request_id"),
		stringField(body, "payment_request_id"),
	)

	referenceID := firstNonEmpty(
		stringField(nestedData, "reference_id"),
		stringField(nestedData, "external_id"),
		stringField(body, "reference_id"),
		stringField(body, "external_id"),
	)

	webhookID := firstNonEmpty(
		headerField(headers, "x-webhook-id", "webhook-id", "x-callback-id", "x-callback-idempotency-key"),
		stringField(body, "id"),
	)

	providerEventID := firstNonEmpty(
		stringField(nestedData, "payment_id"),
		stringField(body, "event_id"),
	)

	eventType := firstNonEmpty(
		stringField(body, "event"),
		stringField(captureValue, "event"),
		stringField(authorizationValue, "event"),
		stringField(failureValue, "event"),
	)

	amount := numberField(nestedData, "request_amount")
	if amount == nil {
		amount = numberField(nestedData, "paid_amount")
	}
	if amount == nil {
		amount = numberField(nestedData, "amount")
	}

	channelCode := firstNonEmpty(
		stringField(nestedData, "channel_code"),
		stringField(body, "channel_code"),
	)

	dedupeKey := firstNonEmpty(providerEventID, webhookID)
	if dedupeKey == "" {
		dedupeKey = firstNonEmpty(paymentRequestID, referenceID, "unknown") + ":" + providerStatus
	}

	return WebhookEvent{
		EventType:        eventType,
		ProviderEventID:  providerEventID,
		WebhookID:        webhookID,
		PaymentRequestID: paymentRequestID,
		ReferenceID:      referenceID,
		ProviderStatus:   providerStatus,
		InternalStatus:   MapProviderStatus(providerStatus),
		Amount:           amount,
		ChannelCode:      channelCode,
		DedupeKey:        dedupeKey,
	}
}

// PersistWebhookEvent appends the delivery to the ledger. The second return
// is true when the dedupe key was already recorded.
func (s *PaymentService) PersistWebhookEvent(ctx context.Context, payload []byte, event WebhookEvent) (bool, error) {
	row := &entity.WebhookEvent{
		Provider:    providerName,
		DedupeKey:   event.DedupeKey,
		Status:      event.ProviderStatus,
		PayloadJSON: string(payload),
	}
	if event.ProviderEventID != "" {
		row.ProviderEventID = &event.ProviderEventID
	}
	if event.WebhookID != "" {
		row.WebhookID = &event.WebhookID
	}
	if event.PaymentRequestID != "" {
		row.PaymentRequestID = &event.PaymentRequestID
	}
	if event.ReferenceID != "" {
		row.ReferenceID = &event.ReferenceID
	}

	if err := s.webhookRepo.Insert(ctx, row); err != nil {
		if errors.Is(err, repository.ErrDuplicateWebhookEvent) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// HandleProviderWebhook runs the full callback pipeline: normalize, record in
// the ledger, resolve the order, apply the transition. Deliveries that repeat
// a dedupe key or reference no known order are acknowledged without effect.
func (s *PaymentService) HandleProviderWebhook(ctx context.Context, payload []byte, headers http.Header) (*WebhookOutcome, error) {
	event := NormalizeWebhookEvent(payload, headers)

	duplicate, err := s.PersistWebhookEvent(ctx, payload, event)
	if err != nil {
		return nil, err
	}
	if duplicate {
		return &WebhookOutcome{Duplicate: true, Ignored: true, Reason: "duplicate_event", Event: event}, nil
	}

	orderID, err := s.resolveOrderID(ctx, event)
	if err != nil {
		return nil, err
	}
	if orderID == "" {
		s.logger.WithFields(logrus.Fields{
			"dedupe_key":         event.DedupeKey,
			"payment_request_id": event.PaymentRequestID,
		}).Warn("webhook ignored: cannot resolve order id")
		return &WebhookOutcome{Ignored: true, Reason: "order_not_found", Event: event}, nil
	}

	err = s.ApplyPaymentStateTransition(ctx, TransitionParams{
		OrderID:          orderID,
		Status:           event.InternalStatus,
		ProviderStatus:   event.ProviderStatus,
		PaymentRequestID: event.PaymentRequestID,
		ReferenceID:      event.ReferenceID,
		ChannelCode:      event.ChannelCode,
		Amount:           event.Amount,
	})
	if err != nil {
		return nil, err
	}

	return &WebhookOutcome{OrderID: orderID, Event: event}, nil
}

func (s *PaymentService) resolveOrderID(ctx context.Context, event WebhookEvent) (string, error) {
	if event.ReferenceID != "" {
		return ParseOrderIDFromReference(event.ReferenceID), nil
	}
	if event.PaymentRequestID == "" {
		return "", nil
	}

	orderID, err := s.paymentRepo.FindOrderIDByPaymentRequestID(ctx, event.PaymentRequestID)
	if err != nil {
		s.logger.WithError(err).WithField("payment_request_id", event.PaymentRequestID).Error("failed to resolve order by payment request id")
		return "", nil
	}
	return orderID, nil
}
