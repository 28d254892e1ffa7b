// Package exchange содержит HTTP сессию и перебор угаданных адресов сайта биржи DCE.
package exchange

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPClientConfig представляет конфигурацию HTTP клиента
type HTTPClientConfig struct {
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	DisableKeepAlives     bool
}

// Doer выполняет HTTP запрос
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient представляет переиспользуемую HTTP сессию с фиксированными заголовками
type HTTPClient struct {
	client  *http.Client
	headers SessionHeaders
	logger  *zap.Logger
}

var _ Doer = (*HTTPClient)(nil)

// NewHTTPClient создает новую HTTP сессию.
// Таймаут задается на каждый запрос через контекст, поэтому у http.Client его нет.
func NewHTTPClient(config HTTPClientConfig, headers SessionHeaders, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		DisableKeepAlives:     config.DisableKeepAlives,
	}

	return &HTTPClient{
		client:  &http.Client{Transport: transport},
		headers: headers,
		logger:  logger,
	}
}

// Do выполняет запрос, подставляя заголовки сессии
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.headers.Apply(req.Header)

	c.logger.Debug("Making request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()))

	return c.client.Do(req)
}

// Transport возвращает транспорт сессии для переиспользования соединений
func (c *HTTPClient) Transport() http.RoundTripper {
	return c.client.Transport
}

// Headers возвращает заголовки сессии
func (c *HTTPClient) Headers() SessionHeaders {
	return c.headers
}

// CloseIdleConnections закрывает простаивающие соединения пула
func (c *HTTPClient) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}
