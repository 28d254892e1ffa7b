package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Discoverer ищет ссылки выгрузки на странице раздела параметров расчета
type Discoverer struct {
	headers   SessionHeaders
	transport http.RoundTripper
	timeout   time.Duration
	logger    *zap.Logger
}

// NewDiscoverer создает Discoverer, использующий транспорт и заголовки сессии
func NewDiscoverer(headers SessionHeaders, transport http.RoundTripper, timeout time.Duration, logger *zap.Logger) *Discoverer {
	return &Discoverer{
		headers:   headers,
		transport: transport,
		timeout:   timeout,
		logger:    logger,
	}
}

// newCollector создает Colly collector с заголовками сессии, привязанный к ctx
func (d *Discoverer) newCollector(ctx context.Context) *colly.Collector {
	collector := colly.NewCollector(
		colly.UserAgent(d.headers.UserAgent()),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)

	if d.transport != nil {
		collector.WithTransport(d.transport)
	}
	if d.timeout > 0 {
		collector.SetRequestTimeout(d.timeout)
	}

	collector.OnRequest(func(r *colly.Request) {
		for key, values := range d.headers.Header() {
			if key == "User-Agent" {
				continue
			}
			r.Headers.Set(key, values[0])
		}
		d.logger.Debug("Making request", zap.String("url", r.URL.String()))
	})

	collector.OnResponse(func(r *colly.Response) {
		d.logger.Debug("Received response",
			zap.String("url", r.Request.URL.String()),
			zap.Int("status", r.StatusCode),
			zap.Int("size", len(r.Body)))
	})

	return collector
}

// Discover возвращает абсолютные ссылки выгрузки в порядке появления на странице
func (d *Discoverer) Discover(ctx context.Context, pageURL string) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collector := d.newCollector(ctx)
	seen := make(map[string]struct{})
	var found []Candidate

	collector.OnHTML("body", func(e *colly.HTMLElement) {
		e.DOM.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			abs := e.Request.AbsoluteURL(strings.TrimSpace(href))
			if abs == "" || !isExportLink(abs, s.Text()) {
				return
			}
			if _, dup := seen[abs]; dup {
				return
			}
			seen[abs] = struct{}{}
			found = append(found, Candidate(abs))
		})
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit %s: %w", pageURL, err)
	}

	d.logger.Info("Export links discovered",
		zap.String("page", pageURL),
		zap.Int("count", len(found)))

	return found, nil
}

// isExportLink решает по адресу и тексту ссылки, похожа ли она на выгрузку
func isExportLink(rawURL, text string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}

	p := strings.ToLower(u.Path)
	if strings.HasSuffix(p, ".xls") || strings.HasSuffix(p, ".xlsx") {
		return true
	}
	if strings.Contains(strings.ToLower(rawURL), "export") {
		return true
	}
	return strings.Contains(text, "导出")
}
