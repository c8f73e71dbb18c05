package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
	"github.com/courtside-solutions/ms-go-booking-payments/app/provider"
	"github.com/courtside-solutions/ms-go-booking-payments/app/repository"
	"github.com/courtside-solutions/ms-go-booking-payments/app/service"
	"github.com/courtside-solutions/ms-go-booking-payments/config"
)

type controllerBookingRepo struct {
	findByIDFn func(ctx context.Context, id string) (*entity.Booking, error)
	updateFn   func(ctx context.Context, id string, update repository.BookingUpdate) error
}

func (r *controllerBookingRepo) FindByID(ctx context.Context, id string) (*entity.Booking, error) {
	if r.findByIDFn != nil {
		return r.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (r *controllerBookingRepo) Update(ctx context.Context, id string, update repository.BookingUpdate) error {
	if r.updateFn != nil {
		return r.updateFn(ctx, id, update)
	}
	return nil
}

func (r *controllerBookingRepo) ListPendingCreatedBefore(context.Context, time.Time, int32) ([]*entity.Booking, error) {
	return []*entity.Booking{}, nil
}

type controllerPaymentRepo struct {
	upsertFn        func(ctx context.Context, payment *entity.Payment) error
	findByOrderIDFn func(ctx context.Context, orderID string) (*entity.Payment, error)
}

func (r *controllerPaymentRepo) Upsert(ctx context.Context, payment *entity.Payment) error {
	if r.upsertFn != nil {
		return r.upsertFn(ctx, payment)
	}
	return nil
}

func (r *controllerPaymentRepo) FindByOrderID(ctx context.Context, orderID string) (*entity.Payment, error) {
	if r.findByOrderIDFn != nil {
		return r.findByOrderIDFn(ctx, orderID)
	}
	return nil, nil
}

func (r *controllerPaymentRepo) FindOrderIDByPaymentRequestID(context.Context, string) (string, error) {
	return "", nil
}

func (r *controllerPaymentRepo) ListStaleNonTerminal(context.Context, time.Time, int32) ([]*entity.Payment, error) {
	return []*entity.Payment{}, nil
}

type controllerWebhookRepo struct {
	seen map[string]bool
}

func (r *controllerWebhookRepo) Insert(_ context.Context, event *entity.WebhookEvent) error {
	if r.seen == nil {
		r.seen = map[string]bool{}
	}
	if r.seen[event.DedupeKey] {
		return repository.ErrDuplicateWebhookEvent
	}
	r.seen[event.DedupeKey] = true
	return nil
}

type controllerWebhookLogRepo struct {
	rows []entity.WebhookLog
}

func (r *controllerWebhookLogRepo) Insert(_ context.Context, log *entity.WebhookLog) error {
	r.rows = append(r.rows, *log)
	return nil
}

type controllerProvider struct {
	createFn func(ctx context.Context, payload *provider.CreatePaymentRequestPayload) (*provider.PaymentRequest, error)
}

func (p *controllerProvider) CreatePaymentRequest(ctx context.Context, payload *provider.CreatePaymentRequestPayload) (*provider.PaymentRequest, error) {
	if p.createFn != nil {
		return p.createFn(ctx, payload)
	}
	return &provider.PaymentRequest{
		ID:          "pr-1",
		ReferenceID: payload.ReferenceID,
		Status:      "REQUIRES_ACTION",
		ChannelCode: payload.ChannelCode,
		Actions: []provider.Action{
			{Type: "REDIRECT_CUSTOMER", Value: "https://pay.example.com/pr-1"},
		},
	}, nil
}

func (p *controllerProvider) GetPaymentRequest(context.Context, string) (*provider.PaymentRequest, error) {
	return &provider.PaymentRequest{ID: "pr-1", Status: "REQUIRES_ACTION"}, nil
}

type controllerLimiter struct {
	allowed bool
}

func (l *controllerLimiter) Allow(context.Context, string) (bool, error) {
	return l.allowed, nil
}

type controllerTestDeps struct {
	bookingRepo    *controllerBookingRepo
	paymentRepo    *controllerPaymentRepo
	webhookLogRepo *controllerWebhookLogRepo
	limiter        rateLimiter
}

func newControllerForTest(deps controllerTestDeps) (*PaymentController, *controllerWebhookLogRepo) {
	if deps.bookingRepo == nil {
		deps.bookingRepo = &controllerBookingRepo{
			findByIDFn: func(context.Context, string) (*entity.Booking, error) {
				return &entity.Booking{ID: "order-1", UserID: "user-1", Status: entity.BookingStatusPending}, nil
			},
		}
	}
	if deps.paymentRepo == nil {
		deps.paymentRepo = &controllerPaymentRepo{}
	}
	if deps.webhookLogRepo == nil {
		deps.webhookLogRepo = &controllerWebhookLogRepo{}
	}

	paymentService := service.NewPaymentService(
		deps.bookingRepo,
		deps.paymentRepo,
		&controllerWebhookRepo{},
		&controllerProvider{},
		nil,
		nil,
		config.PaymentsConfig{
			AppBaseURL:         "https://app.example.com",
			DefaultChannelCode: "QRIS",
			Country:            "ID",
			Currency:           "IDR",
		},
	)

	ctrl := NewPaymentController(paymentService, deps.webhookLogRepo, deps.limiter, config.XenditConfig{
		WebhookToken: "cb-token",
	})
	return ctrl, deps.webhookLogRepo
}

func TestInitiatePaymentBadBody(t *testing.T) {
	ctrl, _ := newControllerForTest(controllerTestDeps{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString("{bad"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := ctrl.InitiatePayment(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestInitiatePaymentSuccess(t *testing.T) {
	ctrl, _ := newControllerForTest(controllerTestDeps{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(`{"order_id":"order-1","amount":53000}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.InitiatePayment(ctx)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload struct {
		PaymentRequestID string `json:"payment_request_id"`
		Status           string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.PaymentRequestID != "pr-1" || payload.Status != "PENDING_USER_ACTION" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestInitiatePaymentValidation(t *testing.T) {
	ctrl, _ := newControllerForTest(controllerTestDeps{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(`{"order_id":"order-1","amount":0}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.InitiatePayment(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetOrderPaymentStatusNotFound(t *testing.T) {
	ctrl, _ := newControllerForTest(controllerTestDeps{
		bookingRepo: &controllerBookingRepo{},
	})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/payments/orders/missing", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("orderId")
	ctx.SetParamValues("missing")

	_ = ctrl.GetOrderPaymentStatus(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetOrderPaymentStatusSuccess(t *testing.T) {
	ctrl, _ := newControllerForTest(controllerTestDeps{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/payments/orders/order-1", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("orderId")
	ctx.SetParamValues("order-1")

	_ = ctrl.GetOrderPaymentStatus(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload struct {
		OrderID     string `json:"order_id"`
		OrderStatus string `json:"order_status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.OrderID != "order-1" || payload.OrderStatus != "pending" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func newWebhookRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/xendit", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("x-callback-token", "cb-token")
	return req
}

func TestHandleProviderWebhookWrongContentType(t *testing.T) {
	ctrl, logRepo := newControllerForTest(controllerTestDeps{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/xendit", bytes.NewBufferString("data"))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.HandleProviderWebhook(ctx)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
	if len(logRepo.rows) != 1 || logRepo.rows[0].Status != "rejected" {
		t.Fatalf("expected rejected log row, got %+v", logRepo.rows)
	}
}

func TestHandleProviderWebhookBadToken(t *testing.T) {
	ctrl, logRepo := newControllerForTest(controllerTestDeps{})
	e := echo.New()
	req := newWebhookRequest(`{"status":"SUCCEEDED"}`)
	req.Header.Set("x-callback-token", "wrong")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.HandleProviderWebhook(ctx)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if len(logRepo.rows) != 1 || logRepo.rows[0].Status != "unauthorized" {
		t.Fatalf("expected unauthorized log row, got %+v", logRepo.rows)
	}
}

func TestHandleProviderWebhookRateLimited(t *testing.T) {
	ctrl, logRepo := newControllerForTest(controllerTestDeps{limiter: &controllerLimiter{allowed: false}})
	e := echo.New()
	req := newWebhookRequest(`{"status":"SUCCEEDED"}`)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.HandleProviderWebhook(ctx)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if len(logRepo.rows) != 1 || logRepo.rows[0].Status != "rate_limited" {
		t.Fatalf("expected rate_limited log row, got %+v", logRepo.rows)
	}
}

func TestHandleProviderWebhookNonJSONBody(t *testing.T) {
	ctrl, logRepo := newControllerForTest(controllerTestDeps{})
	e := echo.New()
	req := newWebhookRequest("not json at all")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.HandleProviderWebhook(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(logRepo.rows) != 1 || logRepo.rows[0].Status != "rejected" {
		t.Fatalf("expected rejected log row, got %+v", logRepo.rows)
	}
}

func TestHandleProviderWebhookProcessed(t *testing.T) {
	ctrl, logRepo := newControllerForTest(controllerTestDeps{})
	e := echo.New()
	req := newWebhookRequest(`{"event_id":"evt-1","reference_id":"booking_order-1","status":"SUCCEEDED","request_amount":53000}`)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.HandleProviderWebhook(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(logRepo.rows) != 1 || logRepo.rows[0].Status != "processed" {
		t.Fatalf("expected processed log row, got %+v", logRepo.rows)
	}
}

func TestHandleProviderWebhookDuplicateStillAcked(t *testing.T) {
	ctrl, logRepo := newControllerForTest(controllerTestDeps{})
	e := echo.New()
	body := `{"event_id":"evt-1","reference_id":"booking_order-1","status":"SUCCEEDED"}`

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		ctx := e.NewContext(newWebhookRequest(body), rec)
		_ = ctrl.HandleProviderWebhook(ctx)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d", i, rec.Code)
		}
	}

	if len(logRepo.rows) != 2 {
		t.Fatalf("expected 2 log rows, got %d", len(logRepo.rows))
	}
	if logRepo.rows[1].Status != "duplicate" {
		t.Fatalf("expected duplicate log row, got %s", logRepo.rows[1].Status)
	}
}

func TestHandleProviderWebhookIPAllowlist(t *testing.T) {
	ctrl, logRepo := newControllerForTest(controllerTestDeps{})
	ctrl.xenditCfg.WebhookIPAllowlist = []string{"10.0.0.1"}
	e := echo.New()
	req := newWebhookRequest(`{"status":"SUCCEEDED"}`)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.HandleProviderWebhook(ctx)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if len(logRepo.rows) != 1 || logRepo.rows[0].Status != "forbidden" {
		t.Fatalf("expected forbidden log row, got %+v", logRepo.rows)
	}
}
