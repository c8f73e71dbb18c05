package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
)

var ErrPaymentNotFound = errors.New("payment not found")

const paymentColumns = `id, order_id, provider, reference_id, payment_request_id, channel_code,
		amount, currency, status, provider_status, actions_json, expires_at, created_at, updated_at`

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Upsert writes the payment keyed by order_id. The unique key on order_id is
// the safety net for concurrent creation; last write wins on conflict.
func (r *PaymentRepository) Upsert(ctx context.Context, payment *entity.Payment) error {
	actionsJSON, err := serializeActions(payment.Actions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			order_id, provider, reference_id, payment_request_id, channel_code,
			amount, currency, status, provider_status, actions_json, expires_at,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			provider = VALUES(provider),
			reference_id = VALUES(reference_id),
			payment_request_id = VALUES(payment_request_id),
			channel_code = VALUES(channel_code),
			amount = VALUES(amount),
			currency = VALUES(currency),
			status = VALUES(status),
			provider_status = VALUES(provider_status),
			actions_json = VALUES(actions_json),
			expires_at = VALUES(expires_at),
			updated_at = VALUES(updated_at)
	`

	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	_, err = r.db.ExecContext(ctx, query,
		payment.OrderID,
		payment.Provider,
		payment.ReferenceID,
		nullableStringValue(payment.PaymentRequestID),
		nullableStringValue(payment.ChannelCode),
		payment.Amount,
		payment.Currency,
		string(payment.Status),
		payment.ProviderStatus,
		actionsJSON,
		nullableTimeValue(payment.ExpiresAt),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	return err
}

func (r *PaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE order_id = ?
		LIMIT 1
	`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, orderID), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return payment, nil
}

// FindOrderIDByPaymentRequestID returns "" when no payment references the
// given provider payment-request id.
func (r *PaymentRepository) FindOrderIDByPaymentRequestID(ctx context.Context, paymentRequestID string) (string, error) {
	query := `
		SELECT order_id
		FROM payments
		WHERE payment_request_id = ?
		LIMIT 1
	`

	var orderID string
	if err := r.db.QueryRowContext(ctx, query, paymentRequestID).Scan(&orderID); err == sql.ErrNoRows {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return orderID, nil
}

func (r *PaymentRepository) ListStaleNonTerminal(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = ?
		  AND payment_request_id IS NOT NULL
		  AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, string(entity.PaymentStatusPendingUserAction), before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.Payment, 0)
	for rows.Next() {
		item := &entity.Payment{}
		if err := scanPayment(rows, item); err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(scan rowScanner, payment *entity.Payment) error {
	var paymentRequestID sql.NullString
	var channelCode sql.NullString
	var status string
	var actionsJSON string
	var expiresAt sql.NullTime

	err := scan.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.Provider,
		&payment.ReferenceID,
		&paymentRequestID,
		&channelCode,
		&payment.Amount,
		&payment.Currency,
		&status,
		&payment.ProviderStatus,
		&actionsJSON,
		&expiresAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.PaymentRequestID = stringPtrFromNull(paymentRequestID)
	payment.ChannelCode = stringPtrFromNull(channelCode)
	payment.Status = entity.PaymentStatus(status)
	payment.ExpiresAt = timePtrFromNull(expiresAt)

	actions, err := parseActions(actionsJSON)
	if err != nil {
		return err
	}
	payment.Actions = actions

	return nil
}
