package provider

import "context"

// Action is a provider-supplied payer instruction as returned on a payment
// request. Value is untyped on the wire; callers normalize it.
type Action struct {
	Type       string `json:"type"`
	Descriptor string `json:"descriptor"`
	Value      any    `json:"value"`
}

type PaymentRequest struct {
	ID            string   `json:"id"`
	ReferenceID   string   `json:"reference_id"`
	Status        string   `json:"status"`
	ChannelCode   string   `json:"channel_code"`
	Country       string   `json:"country"`
	Currency      string   `json:"currency"`
	RequestAmount int64    `json:"request_amount"`
	Actions       []Action `json:"actions"`
	ExpiresAt     string   `json:"expires_at"`
}

type CreatePaymentRequestPayload struct {
	ReferenceID       string         `json:"reference_id"`
	Type              string         `json:"type"`
	Country           string         `json:"country"`
	Currency          string         `json:"currency"`
	RequestAmount     int64          `json:"request_amount"`
	ChannelCode       string         `json:"channel_code"`
	ChannelProperties map[string]any `json:"channel_properties,omitempty"`
	Description       string         `json:"description,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

type Client interface {
	CreatePaymentRequest(ctx context.Context, payload *CreatePaymentRequestPayload) (*PaymentRequest, error)
	GetPaymentRequest(ctx context.Context, paymentRequestID string) (*PaymentRequest, error)
}
