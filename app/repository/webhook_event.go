package repository

import (
	"context"
	"errors"
	"time"

	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
)

// ErrDuplicateWebhookEvent reports that the ledger already holds a row with
// the same dedupe key. The unique constraint is the only duplicate-delivery
// detection; no existence check precedes the insert.
var ErrDuplicateWebhookEvent = errors.New("duplicate webhook event")

type WebhookEventRepository struct {
	db DBTX
}

func NewWebhookEventRepository(db DBTX) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Insert(ctx context.Context, event *entity.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (
			provider, dedupe_key, provider_event_id, webhook_id,
			payment_request_id, reference_id, status, payload_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	event.CreatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		event.Provider,
		event.DedupeKey,
		nullableStringValue(event.ProviderEventID),
		nullableStringValue(event.WebhookID),
		nullableStringValue(event.PaymentRequestID),
		nullableStringValue(event.ReferenceID),
		event.Status,
		event.PayloadJSON,
		event.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateWebhookEvent
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}
