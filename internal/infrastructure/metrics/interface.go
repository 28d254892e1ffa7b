package metrics

import (
	"context"
	"time"
)

// Interface определяет интерфейс для системы метрик
type Interface interface {
	// ObserveAttempt записывает попытку запроса к кандидату
	ObserveAttempt(variant, outcome string, duration time.Duration)

	// RecordResult записывает итог перебора кандидатов
	RecordResult(variant string, found bool)

	// RecordDownloadBytes записывает размер сохраненного файла
	RecordDownloadBytes(bytes int64)

	// RecordMirror записывает итог зеркалирования в S3
	RecordMirror(success bool)

	// Push отправляет метрики в Pushgateway
	Push(ctx context.Context, url, job string) error
}
