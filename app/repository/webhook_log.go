package repository

import (
	"context"
	"time"

	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
)

type WebhookLogRepository struct {
	db DBTX
}

func NewWebhookLogRepository(db DBTX) *WebhookLogRepository {
	return &WebhookLogRepository{db: db}
}

func (r *WebhookLogRepository) Insert(ctx context.Context, log *entity.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (source, status, response_code, payload_json, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	log.CreatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		log.Source,
		log.Status,
		log.ResponseCode,
		nullableStringValue(log.PayloadJSON),
		nullableStringValue(log.ErrorMessage),
		log.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	log.ID = uint64(id)
	return nil
}
