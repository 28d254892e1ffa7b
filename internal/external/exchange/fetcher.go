package exchange

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Исходы одной попытки
const (
	OutcomeMatched        = "matched"
	OutcomeRejected       = "rejected"
	OutcomeTransportError = "transport_error"
)

// drainLimit ограничивает дочитывание тела отклоненного ответа
const drainLimit = 64 << 10

// ErrNoCandidates возвращается в лог, когда список кандидатов пуст
var ErrNoCandidates = errors.New("no candidate urls")

// AttemptObserver получает сведения о каждой попытке
type AttemptObserver interface {
	ObserveAttempt(variant, outcome string, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(string, string, time.Duration) {}

// Fetcher перебирает кандидатов по порядку до первого ответа, прошедшего предикат
type Fetcher struct {
	doer     Doer
	logger   *zap.Logger
	observer AttemptObserver
	variant  string
}

// FetcherOption настраивает Fetcher
type FetcherOption func(*Fetcher)

// WithObserver подключает наблюдателя попыток
func WithObserver(observer AttemptObserver) FetcherOption {
	return func(f *Fetcher) {
		if observer != nil {
			f.observer = observer
		}
	}
}

// WithVariant задает имя варианта для логов и метрик
func WithVariant(variant string) FetcherOption {
	return func(f *Fetcher) {
		f.variant = variant
	}
}

// NewFetcher создает новый Fetcher
func NewFetcher(doer Doer, logger *zap.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		doer:     doer,
		logger:   logger,
		observer: nopObserver{},
		variant:  "fetch",
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(zap.String("variant", f.variant))
	return f
}

// FetchFirstSuccess делает по одному GET на кандидата в заданном порядке и возвращает
// первый ответ, прошедший match. Тело возвращенного ответа открыто, закрывает его вызывающий.
// Ошибки транспорта и неподходящие ответы одинаково ведут к следующему кандидату;
// если ни один не подошел, возвращается (nil, false).
func (f *Fetcher) FetchFirstSuccess(ctx context.Context, candidates []Candidate, date string, match Predicate, timeout time.Duration) (*http.Response, bool) {
	resp, _, ok := f.fetchFirst(ctx, candidates, date, match, timeout)
	return resp, ok
}

// fetchFirst работает как FetchFirstSuccess и дополнительно возвращает индекс подошедшего кандидата
func (f *Fetcher) fetchFirst(ctx context.Context, candidates []Candidate, date string, match Predicate, timeout time.Duration) (*http.Response, int, bool) {
	if len(candidates) == 0 {
		f.logger.Warn("Nothing to fetch", zap.Error(ErrNoCandidates))
		return nil, -1, false
	}

	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			f.logger.Warn("Fetch interrupted", zap.Int("tried", i), zap.Error(err))
			return nil, -1, false
		}

		url := candidate.Resolve(date)
		resp, ok := f.try(ctx, url, match, timeout)
		if ok {
			f.logger.Info("Candidate matched",
				zap.String("url", url),
				zap.Int("attempt", i+1),
				zap.Int("status", resp.StatusCode))
			return resp, i, true
		}
	}

	f.logger.Warn("All candidates exhausted", zap.Int("candidates", len(candidates)))
	return nil, -1, false
}

// reportBodyFailure учитывает обрыв тела уже подошедшего ответа как ошибку транспорта
func (f *Fetcher) reportBodyFailure(url string, duration time.Duration, err error) {
	f.logger.Warn("Response body failed", zap.String("url", url), zap.Error(err))
	f.observer.ObserveAttempt(f.variant, OutcomeTransportError, duration)
}

// try выполняет одну попытку
func (f *Fetcher) try(ctx context.Context, url string, match Predicate, timeout time.Duration) (*http.Response, bool) {
	start := time.Now()
	f.logger.Info("Trying candidate", zap.String("url", url))

	// timeout ограничивает ожидание заголовков, а затем каждое чтение тела
	reqCtx, cancelCtx := context.WithCancel(ctx)
	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, cancelCtx)
	}
	cancel := func() {
		if timer != nil {
			timer.Stop()
		}
		cancelCtx()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		f.logger.Warn("Invalid candidate url", zap.String("url", url), zap.Error(err))
		f.observer.ObserveAttempt(f.variant, OutcomeTransportError, time.Since(start))
		return nil, false
	}

	resp, err := f.doer.Do(req)
	if err != nil {
		cancel()
		f.logger.Warn("Request failed", zap.String("url", url), zap.Error(err))
		f.observer.ObserveAttempt(f.variant, OutcomeTransportError, time.Since(start))
		return nil, false
	}
	if resp.Body == nil {
		resp.Body = http.NoBody
	}
	if resp.Request == nil {
		resp.Request = req
	}

	if !match(resp) {
		drainAndClose(resp.Body)
		cancel()
		f.logger.Debug("Response rejected",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
			zap.String("content_type", resp.Header.Get("Content-Type")))
		f.observer.ObserveAttempt(f.variant, OutcomeRejected, time.Since(start))
		return nil, false
	}

	if timer != nil {
		timer.Stop()
	}
	resp.Body = &idleTimeoutBody{ReadCloser: resp.Body, timer: timer, timeout: timeout, cancel: cancel}
	f.observer.ObserveAttempt(f.variant, OutcomeMatched, time.Since(start))
	return resp, true
}

// idleTimeoutBody прерывает запрос, если очередное чтение тела длится дольше timeout,
// и освобождает контекст запроса при закрытии
type idleTimeoutBody struct {
	io.ReadCloser
	timer   *time.Timer
	timeout time.Duration
	cancel  func()
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	if b.timer != nil {
		b.timer.Reset(b.timeout)
		defer b.timer.Stop()
	}
	return b.ReadCloser.Read(p)
}

func (b *idleTimeoutBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, drainLimit))
	_ = body.Close()
}
