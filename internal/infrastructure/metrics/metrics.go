// Package metrics собирает метрики запуска в Prometheus и отправляет их в Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics реализует Interface поверх собственного реестра Prometheus
type Metrics struct {
	registry *prometheus.Registry

	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	resultsTotal    *prometheus.CounterVec
	downloadBytes   prometheus.Gauge
	mirrorTotal     *prometheus.CounterVec
	lastRun         prometheus.Gauge
}

var _ Interface = (*Metrics)(nil)

// New создает метрики с префиксом namespace в отдельном реестре
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Candidate requests by variant and outcome.",
		}, []string{"variant", "outcome"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Candidate request duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"variant"}),
		resultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Fetch results by variant; found=false means every candidate was exhausted.",
		}, []string{"variant", "found"}),
		downloadBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "download_bytes",
			Help:      "Size of the last saved file.",
		}),
		mirrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_total",
			Help:      "S3 mirror uploads by status.",
		}, []string{"status"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last push.",
		}),
	}

	m.registry.MustRegister(
		m.attemptsTotal,
		m.attemptDuration,
		m.resultsTotal,
		m.downloadBytes,
		m.mirrorTotal,
		m.lastRun,
	)

	return m
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveAttempt записывает попытку запроса к кандидату
func (m *Metrics) ObserveAttempt(variant, outcome string, duration time.Duration) {
	m.attemptsTotal.WithLabelValues(variant, outcome).Inc()
	m.attemptDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

// RecordResult записывает итог перебора кандидатов
func (m *Metrics) RecordResult(variant string, found bool) {
	m.resultsTotal.WithLabelValues(variant, fmt.Sprintf("%t", found)).Inc()
}

// RecordDownloadBytes записывает размер сохраненного файла
func (m *Metrics) RecordDownloadBytes(bytes int64) {
	m.downloadBytes.Set(float64(bytes))
}

// RecordMirror записывает итог зеркалирования в S3
func (m *Metrics) RecordMirror(success bool) {
	status := "error"
	if success {
		status = "success"
	}
	m.mirrorTotal.WithLabelValues(status).Inc()
}

// Push отправляет метрики в Pushgateway
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	m.lastRun.SetToCurrentTime()
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
