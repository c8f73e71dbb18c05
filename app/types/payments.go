package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type InitiatePaymentRequest struct {
	OrderID           string         `json:"order_id"`
	Amount            int64          `json:"amount"`
	ChannelCode       string         `json:"channel_code"`
	Currency          string         `json:"currency"`
	Country           string         `json:"country"`
	Description       string         `json:"description"`
	ChannelProperties map[string]any `json:"channel_properties"`
	Metadata          map[string]any `json:"metadata"`
}

func NewInitiatePaymentRequestFromContext(ctx echo.Context) (*InitiatePaymentRequest, error) {
	var body InitiatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.OrderID = strings.TrimSpace(body.OrderID)
	body.ChannelCode = strings.TrimSpace(body.ChannelCode)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))
	body.Country = strings.ToUpper(strings.TrimSpace(body.Country))
	body.Description = strings.TrimSpace(body.Description)

	return &body, nil
}

func (r *InitiatePaymentRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order_id is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be > 0")
	}
	if r.Currency != "" && len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	if r.Country != "" && len(r.Country) != 2 {
		return errors.New("country must be 2 letters")
	}
	return nil
}

type GetOrderPaymentStatusRequest struct {
	OrderID string
	Sync    bool
}

func NewGetOrderPaymentStatusRequestFromContext(ctx echo.Context) (*GetOrderPaymentStatusRequest, error) {
	req := &GetOrderPaymentStatusRequest{
		OrderID: strings.TrimSpace(ctx.Param("orderId")),
		Sync:    strings.EqualFold(strings.TrimSpace(ctx.QueryParam("sync")), "true"),
	}
	return req, nil
}

func (r *GetOrderPaymentStatusRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order id is required")
	}
	return nil
}

type PaymentActionResponse struct {
	Type       string `json:"type"`
	Descriptor string `json:"descriptor,omitempty"`
	Value      string `json:"value"`
}

type InitiatePaymentResponse struct {
	OrderID          string                  `json:"order_id"`
	PaymentRequestID string                  `json:"payment_request_id"`
	ReferenceID      string                  `json:"reference_id"`
	Status           string                  `json:"status"`
	ProviderStatus   string                  `json:"provider_status"`
	Actions          []PaymentActionResponse `json:"actions"`
	ExpiresAt        string                  `json:"expires_at,omitempty"`
}

type OrderPaymentStatusResponse struct {
	OrderID          string                  `json:"order_id"`
	OrderStatus      string                  `json:"order_status"`
	PaymentStatus    string                  `json:"payment_status,omitempty"`
	ProviderStatus   string                  `json:"provider_status,omitempty"`
	PaymentRequestID string                  `json:"payment_request_id,omitempty"`
	ReferenceID      string                  `json:"reference_id,omitempty"`
	ChannelCode      string                  `json:"channel_code,omitempty"`
	Amount           int64                   `json:"amount"`
	Currency         string                  `json:"currency,omitempty"`
	Actions          []PaymentActionResponse `json:"actions"`
	ExpiresAt        string                  `json:"expires_at,omitempty"`
	UpdatedAt        string                  `json:"updated_at,omitempty"`
}

type WebhookAckResponse struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
