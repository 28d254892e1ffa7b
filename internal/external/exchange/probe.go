package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Result представляет успешный ответ проверки метаданных
type Result struct {
	URL         string
	StatusCode  int
	Header      http.Header
	ContentType string
	Filename    string
	Body        []byte
	Truncated   bool
}

// Prober выполняет проверку метаданных: первый ответ со статусом 200
type Prober struct {
	fetcher    *Fetcher
	candidates []Candidate
	timeout    time.Duration
	maxBytes   int64
	logger     *zap.Logger
}

// NewProber создает Prober
func NewProber(fetcher *Fetcher, candidates []Candidate, timeout time.Duration, maxBytes int64, logger *zap.Logger) *Prober {
	return &Prober{
		fetcher:    fetcher,
		candidates: candidates,
		timeout:    timeout,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

// Probe возвращает первый ответ 200 целиком прочитанным.
// found=false означает, что ни один кандидат не подошел.
func (p *Prober) Probe(ctx context.Context, date string) (*Result, bool, error) {
	resp, ok := p.fetcher.FetchFirstSuccess(ctx, p.candidates, date, StatusOK(), p.timeout)
	if !ok {
		return nil, false, nil
	}
	defer resp.Body.Close()

	body, truncated, err := readLimited(resp.Body, p.maxBytes)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}
	if truncated {
		p.logger.Warn("Response body truncated", zap.Int64("max_bytes", p.maxBytes))
	}

	result := &Result{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		Header:      resp.Header.Clone(),
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    FilenameFromDisposition(resp.Header.Get("Content-Disposition")),
		Body:        body,
		Truncated:   truncated,
	}

	p.logger.Info("Settlement params fetched",
		zap.String("url", result.URL),
		zap.String("content_type", result.ContentType),
		zap.Int("bytes", len(body)))

	return result, true, nil
}

// readLimited читает не больше limit байт; limit<=0 снимает ограничение
func readLimited(r io.Reader, limit int64) ([]byte, bool, error) {
	if limit <= 0 {
		b, err := io.ReadAll(r)
		return b, false, err
	}
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) > limit {
		return b[:limit], true, nil
	}
	return b, false, nil
}
