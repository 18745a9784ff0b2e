package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Encryption
	SecretKey     string
	InitVectorKey string

	// Provider endpoints (encrypted values, decrypted at startup)
	InfotechAPIBaseURL       string
	AttendanceAPIBaseURL     string
	ClockInPath              string
	GetUserInfoPath          string
	GetAttendanceHistoryPath string

	// App token guard
	FrontendHost    string
	EnforceAppToken bool

	// Provider client
	ProviderTimeout time.Duration

	// Queue
	QueuePollInterval   time.Duration
	QueueLeaseTime      time.Duration
	QueueBatchSize      int
	QueueMaxConcurrency int

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string
	AppEnv     string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	required := []struct {
		name string
		dest *string
	}{
		{"DATABASE_URL", &cfg.DatabaseURL},
		{"REDIS_ADDR", &cfg.RedisAddr},
		{"SECRET_KEY", &cfg.SecretKey},
		{"INIT_VECTOR_KEY", &cfg.InitVectorKey},
		{"INFOTECH_API_BASE_URL", &cfg.InfotechAPIBaseURL},
		{"ATTENDANCE_API_BASE_URL", &cfg.AttendanceAPIBaseURL},
		{"CLOCK_IN_PATH", &cfg.ClockInPath},
		{"GET_USER_INFO_PATH", &cfg.GetUserInfoPath},
		{"GET_ATTENDANCE_HISTORY_PATH", &cfg.GetAttendanceHistoryPath},
		{"FRONTEND_HOST", &cfg.FrontendHost},
	}
	for _, field := range required {
		*field.dest = os.Getenv(field.name)
		if *field.dest == "" {
			missing = append(missing, field.name)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second)
	cfg.QueuePollInterval = getEnvDuration("QUEUE_POLL_INTERVAL", time.Second)
	cfg.QueueLeaseTime = getEnvDuration("QUEUE_LEASE_TIME", 2*time.Minute)
	cfg.QueueBatchSize = getEnvInt("QUEUE_BATCH_SIZE", 10)
	cfg.QueueMaxConcurrency = getEnvInt("QUEUE_MAX_CONCURRENCY", 5)
	cfg.SMTPHost = getEnvString("SMTP_HOST", "localhost")
	cfg.SMTPPort = getEnvInt("SMTP_PORT", 587)
	cfg.SMTPUsername = getEnvString("SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnvString("SMTP_PASSWORD", "")
	cfg.MailFrom = getEnvString("MAIL_FROM", "noreply@localhost")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.AppEnv = getEnvString("APP_ENV", "development")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	// 本番環境ではワンタイムトークンの検証を常に有効にする。
	// それ以外の環境でもENFORCE_APP_TOKEN=trueで明示的に有効化できる。
	cfg.EnforceAppToken = cfg.AppEnv == "production" || getEnvBool("ENFORCE_APP_TOKEN", false)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
