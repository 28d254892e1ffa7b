// Package config содержит загрузку и валидацию конфигурации.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Режимы запуска
const (
	ModeDownload = "download"
	ModeProbe    = "probe"
)

// Config представляет конфигурацию приложения
type Config struct {
	// Exchange
	BaseURL    string
	LandingURL string
	Headers    HeadersConfig

	// Запуск
	Mode          string
	TradeDate     string
	Timezone      string
	DiscoverLinks bool

	// Таймауты на один кандидат
	ProbeTimeout    time.Duration
	DownloadTimeout time.Duration
	MaxProbeBytes   int64

	// Сохранение файла
	DownloadDir string
	FilePrefix  string
	FileExt     string

	// Logging
	LogLevel   string
	LogPath    string
	AppDataDir string

	// HTTP Client
	HTTPClientConfig HTTPClientConfig

	// Retry (зеркалирование и отправка метрик)
	RetryConfig RetryConfig

	// S3
	S3 S3Config

	// Metrics
	Metrics MetricsConfig
}

// HeadersConfig представляет заголовки браузера, отправляемые с каждым запросом
type HeadersConfig struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string
	Referer        string
}

// HTTPClientConfig представляет конфигурацию HTTP клиента
type HTTPClientConfig struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	DisableKeepAlives     bool
}

// RetryConfig представляет конфигурацию retry механизма
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// S3Config представляет настройки зеркалирования файлов в S3
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled сообщает, настроено ли зеркалирование
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// MetricsConfig представляет настройки отправки метрик в Pushgateway
type MetricsConfig struct {
	PushgatewayURL string
	Job            string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	config := &Config{
		BaseURL:    strings.TrimRight(getEnv("DCE_BASE_URL", "http://www.dce.com.cn"), "/"),
		LandingURL: getEnv("DCE_LANDING_URL", "http://www.dce.com.cn/dce/channel/list/181.html"),
		Headers: HeadersConfig{
			UserAgent:      getEnv("DCE_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			Accept:         getEnv("DCE_ACCEPT", "application/json, text/plain, */*"),
			AcceptLanguage: getEnv("DCE_ACCEPT_LANGUAGE", "zh-CN,zh;q=0.9,en;q=0.8"),
			Referer:        getEnv("DCE_REFERER", "http://www.dce.com.cn/dce/channel/list/181.html"),
		},
		Mode:            strings.ToLower(getEnv("DCE_MODE", ModeDownload)),
		TradeDate:       getEnv("DCE_TRADE_DATE", ""),
		Timezone:        getEnv("TIMEZONE", "Asia/Shanghai"),
		DiscoverLinks:   getEnvBool("DCE_DISCOVER_LINKS", false),
		ProbeTimeout:    getEnvDuration("DCE_PROBE_TIMEOUT", 10*time.Second),
		DownloadTimeout: getEnvDuration("DCE_DOWNLOAD_TIMEOUT", 30*time.Second),
		MaxProbeBytes:   int64(getEnvInt("DCE_MAX_PROBE_BYTES", 10<<20)),
		DownloadDir:     getEnv("DOWNLOAD_DIR", "./downloads"),
		FilePrefix:      getEnv("DCE_FILE_PREFIX", "dce_settlement"),
		FileExt:         strings.TrimPrefix(getEnv("DCE_FILE_EXT", "xls"), "."),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPath:         getEnv("LOG_PATH", ""),
		AppDataDir:      getEnv("APP_DATA_DIR", ""),
		HTTPClientConfig: HTTPClientConfig{
			MaxIdleConns:          getEnvInt("HTTP_MAX_IDLE_CONNS", 10),
			MaxIdleConnsPerHost:   getEnvInt("HTTP_MAX_IDLE_CONNS_PER_HOST", 2),
			IdleConnTimeout:       getEnvDuration("HTTP_IDLE_CONN_TIMEOUT", 90*time.Second),
			TLSHandshakeTimeout:   getEnvDuration("HTTP_TLS_HANDSHAKE_TIMEOUT", 10*time.Second),
			ResponseHeaderTimeout: getEnvDuration("HTTP_RESPONSE_HEADER_TIMEOUT", 30*time.Second),
			DisableKeepAlives:     getEnvBool("HTTP_DISABLE_KEEP_ALIVES", false),
		},
		RetryConfig: RetryConfig{
			MaxRetries:        getEnvInt("RETRY_MAX_RETRIES", 3),
			InitialDelay:      getEnvDuration("RETRY_INITIAL_DELAY", 1*time.Second),
			MaxDelay:          getEnvDuration("RETRY_MAX_DELAY", 30*time.Second),
			BackoffMultiplier: getEnvFloat("RETRY_BACKOFF_MULTIPLIER", 2.0),
		},
		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", ""),
			Prefix:          strings.Trim(getEnv("S3_PREFIX", "dce"), "/"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: getEnv("METRICS_PUSHGATEWAY_URL", ""),
			Job:            getEnv("METRICS_JOB", "dcefetch"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("DCE_BASE_URL must be an absolute URL, got %q", c.BaseURL)
	}

	if c.Mode != ModeDownload && c.Mode != ModeProbe {
		return fmt.Errorf("DCE_MODE must be %q or %q, got %q", ModeDownload, ModeProbe, c.Mode)
	}

	if c.TradeDate != "" {
		if _, err := time.Parse("20060102", c.TradeDate); err != nil {
			return fmt.Errorf("DCE_TRADE_DATE must be YYYYMMDD: %w", err)
		}
	}

	if c.ProbeTimeout <= 0 || c.DownloadTimeout <= 0 {
		return errors.New("request timeouts must be positive")
	}

	if c.DownloadDir == "" {
		return errors.New("DOWNLOAD_DIR is required")
	}

	if c.FilePrefix == "" || c.FileExt == "" {
		return errors.New("DCE_FILE_PREFIX and DCE_FILE_EXT are required")
	}

	if c.S3.Enabled() && c.S3.Region == "" {
		return errors.New("S3_REGION is required when S3_BUCKET is set")
	}

	return nil
}

// LoadLocation загружает часовой пояс, при ошибке возвращает UTC
func (c *Config) LoadLocation() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ResolveTradeDate возвращает дату торгов в формате YYYYMMDD
func (c *Config) ResolveTradeDate(now time.Time) string {
	if c.TradeDate != "" {
		return c.TradeDate
	}
	return now.In(c.LoadLocation()).Format("20060102")
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как time.Duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool получает переменную окружения как bool
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
