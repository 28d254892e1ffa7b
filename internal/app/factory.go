// Package app содержит фабрику компонентов и сценарий запуска.
package app

import (
	"context"
	"fmt"
	"io"

	"dcefetch/internal/config"
	"dcefetch/internal/external/exchange"
	"dcefetch/internal/infrastructure/metrics"
	"dcefetch/internal/infrastructure/retry"
	"dcefetch/internal/storage/fs"
	"dcefetch/internal/storage/s3"

	"go.uber.org/zap"
)

// metricsNamespace — префикс метрик Prometheus
const metricsNamespace = "dcefetch"

// ComponentFactory создает компоненты приложения
type ComponentFactory struct {
	config *config.Config
	logger *zap.Logger
}

// NewComponentFactory создает новую фабрику компонентов
func NewComponentFactory(config *config.Config, logger *zap.Logger) (*ComponentFactory, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &ComponentFactory{
		config: config,
		logger: logger,
	}, nil
}

// CreateSessionHeaders создает неизменяемый набор заголовков сессии
func (f *ComponentFactory) CreateSessionHeaders() exchange.SessionHeaders {
	h := f.config.Headers
	return exchange.NewSessionHeaders(h.UserAgent, h.Accept, h.AcceptLanguage, h.Referer)
}

// CreateHTTPClient создает HTTP сессию
func (f *ComponentFactory) CreateHTTPClient() *exchange.HTTPClient {
	c := f.config.HTTPClientConfig
	client := exchange.NewHTTPClient(exchange.HTTPClientConfig{
		MaxIdleConns:          c.MaxIdleConns,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		IdleConnTimeout:       c.IdleConnTimeout,
		TLSHandshakeTimeout:   c.TLSHandshakeTimeout,
		ResponseHeaderTimeout: c.ResponseHeaderTimeout,
		DisableKeepAlives:     c.DisableKeepAlives,
	}, f.CreateSessionHeaders(), f.logger)

	f.logger.Info("HTTP client created successfully")
	return client
}

// CreateMetrics создает метрики запуска
func (f *ComponentFactory) CreateMetrics() *metrics.Metrics {
	return metrics.New(metricsNamespace)
}

// CreateProber создает проверку метаданных
func (f *ComponentFactory) CreateProber(client exchange.Doer, observer exchange.AttemptObserver) *exchange.Prober {
	fetcher := exchange.NewFetcher(client, f.logger,
		exchange.WithVariant(config.ModeProbe),
		exchange.WithObserver(observer))

	return exchange.NewProber(fetcher,
		exchange.Candidates(f.config.BaseURL, exchange.ProbePaths()...),
		f.config.ProbeTimeout,
		f.config.MaxProbeBytes,
		f.logger)
}

// CreateDownloader создает выгрузку файла
func (f *ComponentFactory) CreateDownloader(client exchange.Doer, observer exchange.AttemptObserver) *exchange.Downloader {
	fetcher := exchange.NewFetcher(client, f.logger,
		exchange.WithVariant(config.ModeDownload),
		exchange.WithObserver(observer))

	return exchange.NewDownloader(fetcher,
		fs.NewStorage(f.config.DownloadDir, f.logger),
		exchange.DownloaderConfig{
			Candidates: exchange.Candidates(f.config.BaseURL, exchange.ExportPaths()...),
			Timeout:    f.config.DownloadTimeout,
			FilePrefix: f.config.FilePrefix,
			FileExt:    f.config.FileExt,
		},
		f.logger)
}

// CreateDiscoverer создает поиск ссылок выгрузки, если он включен
func (f *ComponentFactory) CreateDiscoverer(client *exchange.HTTPClient) *exchange.Discoverer {
	if !f.config.DiscoverLinks {
		f.logger.Debug("Link discovery is disabled")
		return nil
	}
	return exchange.NewDiscoverer(client.Headers(), client.Transport(), f.config.DownloadTimeout, f.logger)
}

// CreateMirror создает зеркало S3, если задан бакет
func (f *ComponentFactory) CreateMirror(ctx context.Context) (Mirror, error) {
	if !f.config.S3.Enabled() {
		f.logger.Debug("S3 mirror is disabled")
		return nil, nil
	}

	mirror, err := s3.New(ctx, f.config.S3, f.RetryConfig(), f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 mirror: %w", err)
	}
	return mirror, nil
}

// RetryConfig переводит настройки повторов в конфигурацию retry
func (f *ComponentFactory) RetryConfig() retry.Config {
	c := f.config.RetryConfig
	return retry.Config{
		MaxRetries:        c.MaxRetries,
		InitialDelay:      c.InitialDelay,
		MaxDelay:          c.MaxDelay,
		BackoffMultiplier: c.BackoffMultiplier,
	}
}

// CreateRunner создает сценарий запуска со всеми зависимостями
func (f *ComponentFactory) CreateRunner(ctx context.Context, out io.Writer) (*Runner, error) {
	client := f.CreateHTTPClient()
	m := f.CreateMetrics()

	mirror, err := f.CreateMirror(ctx)
	if err != nil {
		// Без зеркала файл все равно сохраняется локально
		f.logger.Warn("S3 mirror unavailable", zap.Error(err))
		mirror = nil
	}

	runner := &Runner{
		config:     f.config,
		logger:     f.logger,
		out:        out,
		client:     client,
		prober:     f.CreateProber(client, m),
		downloader: f.CreateDownloader(client, m),
		discoverer: f.CreateDiscoverer(client),
		mirror:     mirror,
		metrics:    m,
		retry:      f.RetryConfig(),
	}

	f.logger.Info("Runner created successfully", zap.String("mode", f.config.Mode))
	return runner, nil
}
