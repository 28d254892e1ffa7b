package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// FileSink сохраняет поток под заданным именем и возвращает итоговый путь
type FileSink interface {
	Save(ctx context.Context, name string, r io.Reader) (path string, written int64, err error)
}

// DownloaderConfig представляет настройки выгрузки файла
type DownloaderConfig struct {
	Candidates []Candidate
	Timeout    time.Duration
	FilePrefix string
	FileExt    string
}

// Downloader скачивает файл выгрузки с первого подходящего адреса
type Downloader struct {
	fetcher *Fetcher
	sink    FileSink
	config  DownloaderConfig
	logger  *zap.Logger
}

// Download описывает сохраненный файл
type Download struct {
	URL         string
	Path        string
	Filename    string
	ContentType string
	Bytes       int64
}

// NewDownloader создает Downloader
func NewDownloader(fetcher *Fetcher, sink FileSink, config DownloaderConfig, logger *zap.Logger) *Downloader {
	return &Downloader{
		fetcher: fetcher,
		sink:    sink,
		config:  config,
		logger:  logger,
	}
}

// Download перебирает кандидатов (настроенные, затем extra) и сохраняет первый
// ответ с файлом таблицы. Обрыв тела или ошибка записи считаются неудачей
// кандидата, и перебор продолжается со следующего. found=false — ни один
// кандидат не подошел; ошибка возвращается только при отмене контекста.
func (d *Downloader) Download(ctx context.Context, date string, extra ...Candidate) (*Download, bool, error) {
	candidates := make([]Candidate, 0, len(d.config.Candidates)+len(extra))
	candidates = append(candidates, d.config.Candidates...)
	candidates = append(candidates, extra...)

	for len(candidates) > 0 {
		start := time.Now()
		resp, idx, ok := d.fetcher.fetchFirst(ctx, candidates, date, SpreadsheetDownload(), d.config.Timeout)
		if !ok {
			return nil, false, nil
		}
		candidates = candidates[idx+1:]

		result, err := d.save(ctx, resp, date)
		if err == nil {
			return result, true, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, fmt.Errorf("download interrupted: %w", ctxErr)
		}
		d.fetcher.reportBodyFailure(resp.Request.URL.String(), time.Since(start), err)
	}

	d.logger.Warn("No candidate left after failed saves")
	return nil, false, nil
}

// save сохраняет тело подошедшего ответа и закрывает его
func (d *Downloader) save(ctx context.Context, resp *http.Response, date string) (*Download, error) {
	defer resp.Body.Close()

	fallback := DefaultFilename(d.config.FilePrefix, date, d.config.FileExt)
	name := FilenameFromResponse(resp, fallback)

	path, written, err := d.sink.Save(ctx, name, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", name, err)
	}

	result := &Download{
		URL:         resp.Request.URL.String(),
		Path:        path,
		Filename:    name,
		ContentType: resp.Header.Get("Content-Type"),
		Bytes:       written,
	}

	d.logger.Info("File saved",
		zap.String("path", path),
		zap.String("url", result.URL),
		zap.Int64("bytes", written))

	return result, nil
}
