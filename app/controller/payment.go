package controller

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/courtside-solutions/ms-go-booking-payments/app/entity"
	"github.com/courtside-solutions/ms-go-booking-payments/app/factory"
	"github.com/courtside-solutions/ms-go-booking-payments/app/mapper"
	"github.com/courtside-solutions/ms-go-booking-payments/app/service"
	"github.com/courtside-solutions/ms-go-booking-payments/app/types"
	"github.com/courtside-solutions/ms-go-booking-payments/config"
)

const webhookSource = "xendit"

type webhookLogRepository interface {
	Insert(ctx context.Context, log *entity.WebhookLog) error
}

type rateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type PaymentController struct {
	paymentService *service.PaymentService
	webhookLogRepo webhookLogRepository
	limiter        rateLimiter
	xenditCfg      config.XenditConfig
	logger         logrus.FieldLogger
}

// NewPaymentController wires the HTTP surface. limiter may be nil; webhook
// rate limiting is then disabled.
func NewPaymentController(
	paymentService *service.PaymentService,
	webhookLogRepo webhookLogRepository,
	limiter rateLimiter,
	xenditCfg config.XenditConfig,
) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		webhookLogRepo: webhookLogRepo,
		limiter:        limiter,
		xenditCfg:      xenditCfg,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) InitiatePayment(ctx echo.Context) error {
	req, err := types.NewInitiatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.CreatePaymentRequestForOrder(ctx.Request().Context(), service.InitiatePaymentInput{
		OrderID:           req.OrderID,
		Amount:            req.Amount,
		ChannelCode:       req.ChannelCode,
		Currency:          req.Currency,
		Country:           req.Country,
		Description:       req.Description,
		ChannelProperties: req.ChannelProperties,
		Metadata:          req.Metadata,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		c.logger.WithError(err).Error("Initiate payment failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusCreated, mapper.InitiateResultToResponse(result))
}

func (c *PaymentController) GetOrderPaymentStatus(ctx echo.Context) error {
	req, err := types.NewGetOrderPaymentStatusRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	snapshot, err := c.paymentService.GetOrderPaymentStatus(ctx.Request().Context(), req.OrderID, req.Sync)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		}
		c.logger.WithError(err).Error("Get order payment status failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.OrderSnapshotToResponse(snapshot))
}

// HandleProviderWebhook guards the callback endpoint before handing the
// payload to the pipeline. Every delivery leaves a webhook_logs row,
// including the ones rejected here.
func (c *PaymentController) HandleProviderWebhook(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	contentType := ctx.Request().Header.Get(echo.HeaderContentType)
	if !strings.Contains(strings.ToLower(contentType), echo.MIMEApplicationJSON) {
		c.appendWebhookLog(reqCtx, "rejected", http.StatusUnsupportedMediaType, nil, "unsupported content-type, JSON required")
		return c.writeError(ctx, http.StatusUnsupportedMediaType, "Unsupported Media Type")
	}

	if c.xenditCfg.WebhookToken == "" {
		c.logger.Error("webhook token is not configured")
		c.appendWebhookLog(reqCtx, "failed", http.StatusInternalServerError, nil, "webhook token is not configured")
		return c.writeError(ctx, http.StatusInternalServerError, "Webhook token not configured")
	}

	clientIP := ctx.RealIP()

	if c.limiter != nil {
		allowed, err := c.limiter.Allow(reqCtx, clientIP)
		if err != nil {
			c.logger.WithError(err).Warn("webhook rate limit check failed")
		} else if !allowed {
			c.appendWebhookLog(reqCtx, "rate_limited", http.StatusTooManyRequests, nil, "rate limited for IP "+clientIP)
			return c.writeError(ctx, http.StatusTooManyRequests, "Too many requests")
		}
	}

	if len(c.xenditCfg.WebhookIPAllowlist) > 0 && !containsIP(c.xenditCfg.WebhookIPAllowlist, clientIP) {
		c.appendWebhookLog(reqCtx, "forbidden", http.StatusForbidden, nil, "IP "+clientIP+" is not allowlisted")
		return c.writeError(ctx, http.StatusForbidden, "Forbidden")
	}

	callbackToken := ctx.Request().Header.Get("x-callback-token")
	if subtle.ConstantTimeCompare([]byte(callbackToken), []byte(c.xenditCfg.WebhookToken)) != 1 {
		c.logger.Warn("unauthorized webhook callback token")
		c.appendWebhookLog(reqCtx, "unauthorized", http.StatusUnauthorized, nil, "invalid callback token")
		return c.writeError(ctx, http.StatusUnauthorized, "Unauthorized")
	}

	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil || len(payload) == 0 || !json.Valid(payload) {
		c.appendWebhookLog(reqCtx, "rejected", http.StatusBadRequest, nil, "invalid JSON payload")
		return c.writeError(ctx, http.StatusBadRequest, "Invalid JSON payload")
	}

	outcome, err := c.paymentService.HandleProviderWebhook(reqCtx, payload, ctx.Request().Header)
	if err != nil {
		c.logger.WithError(err).Error("Handle provider webhook failed")
		c.appendWebhookLog(reqCtx, "failed", http.StatusInternalServerError, payload, err.Error())
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	switch {
	case outcome.Duplicate:
		c.appendWebhookLog(reqCtx, "duplicate", http.StatusOK, payload, "")
		return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Received: true, Duplicate: true, Ignored: true, Reason: outcome.Reason})
	case outcome.Ignored:
		c.appendWebhookLog(reqCtx, "ignored", http.StatusOK, payload, outcome.Reason)
		return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Received: true, Ignored: true, Reason: outcome.Reason})
	default:
		c.appendWebhookLog(reqCtx, "processed", http.StatusOK, payload, "")
		c.logger.WithFields(logrus.Fields{
			"order_id":   outcome.OrderID,
			"dedupe_key": outcome.Event.DedupeKey,
			"status":     outcome.Event.InternalStatus,
		}).Info("webhook processed")
		return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Received: true})
	}
}

func (c *PaymentController) appendWebhookLog(ctx context.Context, status string, responseCode int, payload []byte, errorMessage string) {
	row := &entity.WebhookLog{
		Source:       webhookSource,
		Status:       status,
		ResponseCode: int32(responseCode),
	}
	if len(payload) > 0 {
		payloadJSON := string(payload)
		row.PayloadJSON = &payloadJSON
	}
	if errorMessage != "" {
		row.ErrorMessage = &errorMessage
	}

	if err := c.webhookLogRepo.Insert(ctx, row); err != nil {
		c.logger.WithError(err).Warn("failed to append webhook log")
	}
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}

func containsIP(allowlist []string, ip string) bool {
	for _, allowed := range allowlist {
		if allowed == ip {
			return true
		}
	}
	return false
}
