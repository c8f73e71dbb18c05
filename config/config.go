package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	MySQL    MySQLConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Log      LogConfig
	Xendit   XenditConfig
	Payments PaymentsConfig
	Partner  PartnerConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers            []string
	NotificationsTopic string
}

type LogConfig struct {
	Level string
}

type XenditConfig struct {
	BaseURL            string
	SecretKey          string
	APIVersion         string
	WebhookToken       string
	WebhookIPAllowlist []string
	HTTPTimeout        time.Duration
}

type PaymentsConfig struct {
	AppBaseURL          string
	DefaultChannelCode  string
	Country             string
	Currency            string
	WebhookRateLimit    int
	WebhookRateWindow   time.Duration
	ReconcileStaleAfter time.Duration
	ReminderAfter       time.Duration
	JobBatchSize        int32
}

type PartnerConfig struct {
	SyncURL     string
	Secret      string
	HTTPTimeout time.Duration
}

type JobsConfig struct {
	ReconcileInterval time.Duration
	ReminderInterval  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "booking-payments-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:            getListEnv("KAFKA_BROKERS"),
			NotificationsTopic: getEnv("KAFKA_NOTIFICATIONS_TOPIC", "booking-notifications"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Xendit: XenditConfig{
			BaseURL:            getEnv("XENDIT_BASE_URL", "https://api.xendit.co"),
			SecretKey:          getEnv("XENDIT_SECRET_KEY", ""),
			APIVersion:         getEnv("XENDIT_API_VERSION", ""),
			WebhookToken:       getEnv("XENDIT_WEBHOOK_TOKEN", ""),
			WebhookIPAllowlist: getListEnv("XENDIT_WEBHOOK_IP_ALLOWLIST"),
			HTTPTimeout:        getSecondsEnv("XENDIT_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Payments: PaymentsConfig{
			AppBaseURL:          getEnv("APP_BASE_URL", "http://localhost:3000"),
			DefaultChannelCode:  getEnv("XENDIT_DEFAULT_CHANNEL_CODE", "QRIS"),
			Country:             getEnv("XENDIT_COUNTRY", "ID"),
			Currency:            getEnv("XENDIT_CURRENCY", "IDR"),
			WebhookRateLimit:    getIntEnv("PAYMENTS_WEBHOOK_RATE_LIMIT", 60),
			WebhookRateWindow:   getSecondsEnv("PAYMENTS_WEBHOOK_RATE_WINDOW_SECONDS", time.Minute),
			ReconcileStaleAfter: getMinutesEnv("PAYMENTS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			ReminderAfter:       getMinutesEnv("PAYMENTS_REMINDER_AFTER_MINUTES", 10*time.Minute),
			JobBatchSize:        int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
		},
		Partner: PartnerConfig{
			SyncURL:     getEnv("PARTNER_SYNC_URL", ""),
			Secret:      getEnv("PARTNER_WEBHOOK_SECRET", ""),
			HTTPTimeout: getSecondsEnv("PARTNER_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Jobs: JobsConfig{
			ReconcileInterval: getMinutesEnv("PAYMENTS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			ReminderInterval:  getMinutesEnv("PAYMENTS_REMINDER_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
