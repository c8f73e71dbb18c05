package partner

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/courtside-solutions/ms-go-booking-payments/app/factory"
	"github.com/courtside-solutions/ms-go-booking-payments/config"
)

// BookingPaidPayload is the revenue-sync event pushed to the partner system
// when a booking is paid.
type BookingPaidPayload struct {
	Event         string `json:"event"`
	BookingID     string `json:"booking_id"`
	VenueID       string `json:"venue_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	TotalAmount   int64  `json:"total_amount"`
	PaidAmount    int64  `json:"paid_amount"`
	PaymentMethod string `json:"payment_method"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

type Client struct {
	cfg    config.PartnerConfig
	client *http.Client
	logger logrus.FieldLogger
}

func NewClient(cfg config.PartnerConfig) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: factory.NewModuleLogger("partner-sync"),
	}
}

func (c *Client) SyncBookingPaid(ctx context.Context, payload *BookingPaidPayload) error {
	if strings.TrimSpace(c.cfg.SyncURL) == "" {
		return errors.New("partner sync url is not configured")
	}

	if payload.Timestamp == "" {
		payload.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SyncURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("x-pwa-signature", Signature(body, c.cfg.Secret))

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("partner sync failed: status=%d body=%s", resp.StatusCode, string(raw))
	}

	c.logger.WithField("booking_id", payload.BookingID).Info("partner sync delivered")
	return nil
}

// Signature is the hex HMAC-SHA256 of the payload. Empty when no secret is
// configured, which the partner side treats as unsigned traffic.
func Signature(payload []byte, secret string) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
