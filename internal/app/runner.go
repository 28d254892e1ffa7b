package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"dcefetch/internal/config"
	"dcefetch/internal/external/exchange"
	"dcefetch/internal/infrastructure/metrics"
	"dcefetch/internal/infrastructure/retry"

	"go.uber.org/zap"
)

// Mirror копирует сохраненный файл во внешнее хранилище
type Mirror interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Runner выполняет один запуск: проверку метаданных или выгрузку файла
type Runner struct {
	config     *config.Config
	logger     *zap.Logger
	out        io.Writer
	client     *exchange.HTTPClient
	prober     *exchange.Prober
	downloader *exchange.Downloader
	discoverer *exchange.Discoverer
	mirror     Mirror
	metrics    metrics.Interface
	retry      retry.Config
}

// Run выполняет сценарий для даты торгов, вычисленной от now.
// Возвращает true, если данные получены; ошибки только печатаются и логируются.
func (r *Runner) Run(ctx context.Context, now time.Time) bool {
	if r.client != nil {
		defer r.client.CloseIdleConnections()
	}

	date := r.config.ResolveTradeDate(now)
	r.logger.Info("Run started", zap.String("mode", r.config.Mode), zap.String("trade_date", date))

	var ok bool
	switch r.config.Mode {
	case config.ModeProbe:
		ok = r.runProbe(ctx, date)
	default:
		ok = r.runDownload(ctx, date)
	}

	r.pushMetrics(ctx)
	return ok
}

// runProbe выполняет проверку метаданных
func (r *Runner) runProbe(ctx context.Context, date string) bool {
	result, found, err := r.prober.Probe(ctx, date)
	r.metrics.RecordResult(config.ModeProbe, found && err == nil)

	switch {
	case err != nil:
		r.logger.Error("Probe failed", zap.Error(err))
		fmt.Fprintf(r.out, "[ERROR] 读取响应失败: %v\n", err)
		return false
	case !found:
		r.logger.Error("No settlement params endpoint responded", zap.String("trade_date", date))
		fmt.Fprintln(r.out, "[ERROR] 未能获取结算参数数据")
		return false
	}

	fmt.Fprintln(r.out, "[SUCCESS] 获取数据成功")
	fmt.Fprintf(r.out, "  URL: %s\n  Status: %d\n  Content-Type: %s\n  Size: %d bytes\n",
		result.URL, result.StatusCode, result.ContentType, len(result.Body))
	return true
}

// runDownload печатает инструкцию и пытается скачать файл напрямую
func (r *Runner) runDownload(ctx context.Context, date string) bool {
	PrintCaptureGuide(r.out)

	extra := r.discover(ctx)

	result, found, err := r.downloader.Download(ctx, date, extra...)
	r.metrics.RecordResult(config.ModeDownload, found && err == nil)

	switch {
	case err != nil:
		r.logger.Error("Download interrupted", zap.Error(err))
		fmt.Fprintf(r.out, "[ERROR] 下载中断: %v\n", err)
		PrintFallbackHint(r.out)
		return false
	case !found:
		r.logger.Error("No export endpoint returned a spreadsheet", zap.String("trade_date", date))
		fmt.Fprintln(r.out, "[ERROR] 未能直接下载，请使用 Selenium/Playwright 方案")
		PrintFallbackHint(r.out)
		return false
	}

	r.metrics.RecordDownloadBytes(result.Bytes)
	fmt.Fprintf(r.out, "[SUCCESS] 文件已保存: %s\n", result.Path)

	r.mirrorFile(ctx, result.Path)
	return true
}

// discover добавляет ссылки со страницы раздела, ошибки не прерывают запуск
func (r *Runner) discover(ctx context.Context) []exchange.Candidate {
	if r.discoverer == nil {
		return nil
	}
	links, err := r.discoverer.Discover(ctx, r.config.LandingURL)
	if err != nil {
		r.logger.Warn("Link discovery failed", zap.Error(err))
		return nil
	}
	return links
}

// mirrorFile копирует файл в S3, ошибки только логируются
func (r *Runner) mirrorFile(ctx context.Context, path string) {
	if r.mirror == nil {
		return
	}
	key, err := r.mirror.Upload(ctx, path)
	r.metrics.RecordMirror(err == nil)
	if err != nil {
		r.logger.Warn("Mirror upload failed", zap.String("path", path), zap.Error(err))
		return
	}
	r.logger.Info("Mirror upload done", zap.String("key", key))
}

// pushMetrics отправляет метрики, если указан Pushgateway
func (r *Runner) pushMetrics(ctx context.Context) {
	cfg := r.config.Metrics
	if cfg.PushgatewayURL == "" {
		return
	}
	err := retry.WithRetry(ctx, r.logger, r.retry, "metrics push", func(ctx context.Context) error {
		return r.metrics.Push(ctx, cfg.PushgatewayURL, cfg.Job)
	})
	if err != nil {
		r.logger.Warn("Metrics push failed", zap.Error(err))
	}
}
