package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtside-solutions/ms-go-booking-payments/app/controller"
	appkafka "github.com/courtside-solutions/ms-go-booking-payments/app/kafka"
	"github.com/courtside-solutions/ms-go-booking-payments/app/notification"
	"github.com/courtside-solutions/ms-go-booking-payments/app/partner"
	"github.com/courtside-solutions/ms-go-booking-payments/app/provider"
	"github.com/courtside-solutions/ms-go-booking-payments/app/ratelimit"
	"github.com/courtside-solutions/ms-go-booking-payments/app/repository"
	"github.com/courtside-solutions/ms-go-booking-payments/app/service"
	"github.com/courtside-solutions/ms-go-booking-payments/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Start the HTTP (Echo) server for payment initiation, status reads, and provider webhooks.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, deps, cleanup := mustCreateServiceDeps()
	defer cleanup()

	var limiter *ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		limiter = ratelimit.NewLimiter(redisClient, int64(cfg.Payments.WebhookRateLimit), cfg.Payments.WebhookRateWindow)
	}

	paymentController := controller.NewPaymentController(deps.paymentService, deps.webhookLogRepo, limiterOrNil(limiter), cfg.Xendit)

	e := setupHTTPServer(paymentController)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}

	logrus.Info("Server stopped")
}

// Optional collaborators are passed as nil interfaces when unconfigured. A
// typed nil pointer wrapped in an interface would defeat the consumers' nil
// checks, hence these conversions.

type rateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

func limiterOrNil(limiter *ratelimit.Limiter) rateLimiter {
	if limiter == nil {
		return nil
	}
	return limiter
}

func setupHTTPServer(paymentController *controller.PaymentController) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.GET("/health", paymentController.Health)

	payments := e.Group("/payments")
	payments.POST("", paymentController.InitiatePayment)
	payments.GET("/orders/:orderId", paymentController.GetOrderPaymentStatus)

	webhooks := e.Group("/webhooks")
	webhooks.POST("/xendit", paymentController.HandleProviderWebhook)

	return e
}

type serviceDeps struct {
	paymentService *service.PaymentService
	webhookLogRepo *repository.WebhookLogRepository
}

func mustCreateServiceDeps() (*config.Config, *serviceDeps, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	webhookLogRepo := repository.NewWebhookLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var producer *appkafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = appkafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic)
	}
	notifier := notification.NewService(notificationRepo, publisherOrNil(producer))

	var partnerClient *partner.Client
	if cfg.Partner.SyncURL != "" {
		partnerClient = partner.NewClient(cfg.Partner)
	}

	xenditClient := provider.NewXenditClient(cfg.Xendit)

	paymentService := service.NewPaymentService(
		bookingRepo,
		paymentRepo,
		webhookEventRepo,
		xenditClient,
		notifier,
		partnerOrNil(partnerClient),
		cfg.Payments,
	)

	cleanup := func() {
		if producer != nil {
			if err := producer.Close(); err != nil {
				logrus.WithError(err).Warn("Failed to close Kafka producer")
			}
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, &serviceDeps{paymentService: paymentService, webhookLogRepo: webhookLogRepo}, cleanup
}

type eventPublisher interface {
	Publish(ctx context.Context, key string, payload interface{}) error
}

func publisherOrNil(producer *appkafka.Producer) eventPublisher {
	if producer == nil {
		return nil
	}
	return producer
}

type partnerSyncClient interface {
	SyncBookingPaid(ctx context.Context, payload *partner.BookingPaidPayload) error
}

func partnerOrNil(client *partner.Client) partnerSyncClient {
	if client == nil {
		return nil
	}
	return client
}
