package exchange

import "net/http"

// SessionHeaders представляет неизменяемый набор заголовков сессии.
// Значение создается один раз при старте и передается клиенту явно.
type SessionHeaders struct {
	userAgent      string
	accept         string
	acceptLanguage string
	referer        string
}

// NewSessionHeaders создает набор заголовков браузера
func NewSessionHeaders(userAgent, accept, acceptLanguage, referer string) SessionHeaders {
	return SessionHeaders{
		userAgent:      userAgent,
		accept:         accept,
		acceptLanguage: acceptLanguage,
		referer:        referer,
	}
}

// UserAgent возвращает значение User-Agent
func (h SessionHeaders) UserAgent() string { return h.userAgent }

// Accept возвращает значение Accept
func (h SessionHeaders) Accept() string { return h.accept }

// AcceptLanguage возвращает значение Accept-Language
func (h SessionHeaders) AcceptLanguage() string { return h.acceptLanguage }

// Referer возвращает значение Referer
func (h SessionHeaders) Referer() string { return h.referer }

// Apply выставляет непустые заголовки в запрос
func (h SessionHeaders) Apply(header http.Header) {
	set := func(key, value string) {
		if value != "" {
			header.Set(key, value)
		}
	}
	set("User-Agent", h.userAgent)
	set("Accept", h.accept)
	set("Accept-Language", h.acceptLanguage)
	set("Referer", h.referer)
}

// Header возвращает копию заголовков в виде http.Header
func (h SessionHeaders) Header() http.Header {
	header := make(http.Header, 4)
	h.Apply(header)
	return header
}
