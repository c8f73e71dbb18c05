package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/courtside-solutions/ms-go-booking-payments/app/factory"
	"github.com/courtside-solutions/ms-go-booking-payments/config"
)

const (
	createMaxRetries = 2
	fetchMaxRetries  = 1
	retryBaseDelay   = 250 * time.Millisecond
)

type XenditClient struct {
	cfg    config.XenditConfig
	client *http.Client
	logger logrus.FieldLogger
}

func NewXenditClient(cfg config.XenditConfig) *XenditClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.xendit.co"
	}

	return &XenditClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: factory.NewModuleLogger("xendit-client"),
	}
}

func (c *XenditClient) CreatePaymentRequest(ctx context.Context, payload *CreatePaymentRequestPayload) (*PaymentRequest, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	raw, err := c.request(ctx, http.MethodPost, "/v3/payment_requests", body, createMaxRetries)
	if err != nil {
		return nil, err
	}

	return decodePaymentRequest(raw)
}

func (c *XenditClient) GetPaymentRequest(ctx context.Context, paymentRequestID string) (*PaymentRequest, error) {
	if strings.TrimSpace(paymentRequestID) == "" {
		return nil, errors.New("payment request id is required")
	}

	raw, err := c.request(ctx, http.MethodGet, "/v3/payment_requests/"+url.PathEscape(paymentRequestID), nil, fetchMaxRetries)
	if err != nil {
		return nil, err
	}

	return decodePaymentRequest(raw)
}

// request issues a single-shot call with limited retries: transient network
// failures and 5xx responses retry with a linear backoff, 4xx responses fail
// immediately with the response body attached.
func (c *XenditClient) request(ctx context.Context, method, path string, body []byte, maxRetries int) ([]byte, error) {
	secretKey := strings.TrimSpace(c.cfg.SecretKey)
	if secretKey == "" {
		return nil, errors.New("xendit secret key is not configured")
	}

	attempt := 0
	for {
		attempt++

		raw, retryable, err := c.do(ctx, method, path, body, secretKey)
		if err == nil {
			return raw, nil
		}

		c.logger.WithError(err).
			WithField("path", path).
			WithField("attempt", attempt).
			Error("xendit request failed")

		if !retryable || attempt > maxRetries {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBaseDelay):
		}
	}
}

func (c *XenditClient) do(ctx context.Context, method, path string, body []byte, secretKey string) ([]byte, bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", BasicAuthHeader(secretKey))
	if apiVersion := strings.TrimSpace(c.cfg.APIVersion); apiVersion != "" {
		req.Header.Set("api-version", apiVersion)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}
	if resp.StatusCode >= 400 {
		retryable := resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("xendit request failed: path=%s status=%d body=%s", path, resp.StatusCode, string(raw))
	}

	return raw, false, nil
}

// BasicAuthHeader builds the provider auth header: the secret key as basic
// auth username with an empty password.
func BasicAuthHeader(secretKey string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(secretKey+":"))
}

func decodePaymentRequest(raw []byte) (*PaymentRequest, error) {
	var paymentRequest PaymentRequest
	if err := json.Unmarshal(raw, &paymentRequest); err != nil {
		return nil, err
	}
	if strings.TrimSpace(paymentRequest.ID) == "" {
		return nil, errors.New("xendit payment request id missing in response")
	}
	return &paymentRequest, nil
}
