package exchange

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// stubDoer отдает заранее заданные ответы по URL и запоминает порядок запросов
type stubDoer struct {
	mu        sync.Mutex
	responses map[string]func() (*http.Response, error)
	requested []string
}

func newStubDoer() *stubDoer {
	return &stubDoer{responses: make(map[string]func() (*http.Response, error))}
}

func (s *stubDoer) respond(url string, status int, contentType, body string) {
	s.responses[url] = func() (*http.Response, error) {
		header := make(http.Header)
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
		return &http.Response{
			StatusCode: status,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	}
}

func (s *stubDoer) fail(url string, err error) {
	s.responses[url] = func() (*http.Response, error) { return nil, err }
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	s.requested = append(s.requested, req.URL.String())
	s.mu.Unlock()

	if fn, ok := s.responses[req.URL.String()]; ok {
		return fn()
	}
	return nil, errors.New("dial tcp: no such host")
}

type recordingObserver struct {
	outcomes []string
}

func (r *recordingObserver) ObserveAttempt(_ string, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}

func TestFetchFirstSuccess_StopsAtFirstMatch(t *testing.T) {
	doer := newStubDoer()
	doer.respond("http://dce.test/a?d=20240101", http.StatusNotFound, "text/html", "nope")
	doer.respond("http://dce.test/b?d=20240101", http.StatusOK, "application/vnd.ms-excel", "B")
	doer.respond("http://dce.test/c?d=20240101", http.StatusOK, "application/vnd.ms-excel", "C")

	observer := &recordingObserver{}
	f := NewFetcher(doer, zap.NewNop(), WithObserver(observer), WithVariant("download"))
	candidates := []Candidate{"http://dce.test/a?d={date}", "http://dce.test/b?d={date}", "http://dce.test/c?d={date}"}

	resp, ok := f.FetchFirstSuccess(context.Background(), candidates, "20240101", SpreadsheetDownload(), time.Second)
	require.True(t, ok)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "B", string(body))
	assert.Equal(t, []string{"http://dce.test/a?d=20240101", "http://dce.test/b?d=20240101"}, doer.requested)
	assert.Equal(t, []string{OutcomeRejected, OutcomeMatched}, observer.outcomes)
}

func TestFetchFirstSuccess_NthCandidate(t *testing.T) {
	for n := 1; n <= 4; n++ {
		doer := newStubDoer()
		candidates := make([]Candidate, 5)
		for i := range candidates {
			url := "http://dce.test/" + string(rune('a'+i))
			candidates[i] = Candidate(url)
			status := http.StatusInternalServerError
			if i == n-1 {
				status = http.StatusOK
			}
			doer.respond(url, status, "text/plain", url)
		}

		f := NewFetcher(doer, zap.NewNop())
		resp, ok := f.FetchFirstSuccess(context.Background(), candidates, "20240101", StatusOK(), time.Second)
		require.True(t, ok)
		resp.Body.Close()

		assert.Len(t, doer.requested, n)
		assert.Equal(t, string(candidates[n-1]), resp.Request.URL.String())
	}
}

func TestFetchFirstSuccess_Exhausted(t *testing.T) {
	doer := newStubDoer()
	doer.respond("http://dce.test/a", http.StatusOK, "text/html", "<html>")
	doer.respond("http://dce.test/b", http.StatusForbidden, "application/vnd.ms-excel", "")
	doer.fail("http://dce.test/c", errors.New("connection refused"))

	f := NewFetcher(doer, zap.NewNop())
	resp, ok := f.FetchFirstSuccess(context.Background(),
		[]Candidate{"http://dce.test/a", "http://dce.test/b", "http://dce.test/c"},
		"20240101", SpreadsheetDownload(), time.Second)

	assert.False(t, ok)
	assert.Nil(t, resp)
	assert.Len(t, doer.requested, 3)
}

func TestFetchFirstSuccess_TransportErrorIsNonMatch(t *testing.T) {
	doer := newStubDoer()
	doer.fail("http://dce.test/a", context.DeadlineExceeded)
	doer.respond("http://dce.test/b", http.StatusOK, "application/json", `{"ok":true}`)

	observer := &recordingObserver{}
	f := NewFetcher(doer, zap.NewNop(), WithObserver(observer))

	resp, ok := f.FetchFirstSuccess(context.Background(),
		[]Candidate{"http://dce.test/a", "http://dce.test/b"}, "20240101", StatusOK(), time.Second)
	require.True(t, ok)
	resp.Body.Close()

	assert.Equal(t, []string{OutcomeTransportError, OutcomeMatched}, observer.outcomes)
}

func TestFetchFirstSuccess_InvalidURLIsNonMatch(t *testing.T) {
	doer := newStubDoer()
	doer.respond("http://dce.test/ok", http.StatusOK, "text/plain", "ok")

	f := NewFetcher(doer, zap.NewNop())
	resp, ok := f.FetchFirstSuccess(context.Background(),
		[]Candidate{"http://[::1", "http://dce.test/ok"}, "20240101", StatusOK(), time.Second)
	require.True(t, ok)
	resp.Body.Close()

	assert.Equal(t, []string{"http://dce.test/ok"}, doer.requested)
}

func TestFetchFirstSuccess_EmptyCandidates(t *testing.T) {
	doer := newStubDoer()
	f := NewFetcher(doer, zap.NewNop())

	resp, ok := f.FetchFirstSuccess(context.Background(), nil, "20240101", StatusOK(), time.Second)
	assert.False(t, ok)
	assert.Nil(t, resp)
	assert.Empty(t, doer.requested)
}

func TestFetchFirstSuccess_CancelledContext(t *testing.T) {
	doer := newStubDoer()
	doer.respond("http://dce.test/a", http.StatusOK, "text/plain", "ok")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(doer, zap.NewNop())
	_, ok := f.FetchFirstSuccess(ctx, []Candidate{"http://dce.test/a"}, "20240101", StatusOK(), time.Second)
	assert.False(t, ok)
	assert.Empty(t, doer.requested)
}

// Сквозной сценарий: A — 404, B — Excel, C не запрашивается
func TestFetchFirstSuccess_HTTPServer(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	var gotHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		gotHeaders = r.Header.Clone()
		mu.Unlock()

		switch r.URL.Path {
		case "/B":
			w.Header().Set("Content-Type", "application/vnd.ms-excel")
			_, _ = w.Write([]byte("settlement"))
		case "/C":
			w.Header().Set("Content-Type", "application/vnd.ms-excel")
			_, _ = w.Write([]byte("too late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	headers := NewSessionHeaders("test-agent", "*/*", "zh-CN", "http://www.dce.com.cn/")
	client := NewHTTPClient(HTTPClientConfig{MaxIdleConns: 2, MaxIdleConnsPerHost: 2}, headers, zap.NewNop())
	f := NewFetcher(client, zap.NewNop())

	resp, ok := f.FetchFirstSuccess(context.Background(),
		Candidates(server.URL, "/A", "/B", "/C"), "20240101", SpreadsheetDownload(), 5*time.Second)
	require.True(t, ok)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "settlement", string(body))
	assert.Equal(t, []string{"/A", "/B"}, paths)
	assert.Equal(t, "test-agent", gotHeaders.Get("User-Agent"))
	assert.Equal(t, "zh-CN", gotHeaders.Get("Accept-Language"))
	assert.Equal(t, "http://www.dce.com.cn/", gotHeaders.Get("Referer"))
}

func TestFetchFirstSuccess_Timeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer fast.Close()

	client := NewHTTPClient(HTTPClientConfig{}, SessionHeaders{}, zap.NewNop())
	f := NewFetcher(client, zap.NewNop())

	start := time.Now()
	resp, ok := f.FetchFirstSuccess(context.Background(),
		[]Candidate{Candidate(slow.URL), Candidate(fast.URL)}, "20240101", StatusOK(), 100*time.Millisecond)
	require.True(t, ok)
	resp.Body.Close()

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, fast.URL, resp.Request.URL.String())
}

func TestFetchFirstSuccess_LogsEachAttempt(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	doer := newStubDoer()
	doer.respond("http://dce.test/a", http.StatusForbidden, "text/html", "denied")

	f := NewFetcher(doer, zap.New(core), WithVariant("probe"))
	_, ok := f.FetchFirstSuccess(context.Background(), []Candidate{"http://dce.test/a", "http://dce.test/b"}, "20240101", StatusOK(), time.Second)
	require.False(t, ok)

	assert.Equal(t, 2, logs.FilterMessage("Trying candidate").Len())
	assert.Equal(t, 1, logs.FilterMessage("Response rejected").Len())
	assert.Equal(t, 1, logs.FilterMessage("Request failed").Len())

	exhausted := logs.FilterMessage("All candidates exhausted").All()
	require.Len(t, exhausted, 1)
	assert.Equal(t, "probe", exhausted[0].ContextMap()["variant"])
	assert.EqualValues(t, 2, exhausted[0].ContextMap()["candidates"])
}

// Тело, которое отдается дольше timeout, но без пауз длиннее timeout, читается целиком
func TestFetchFirstSuccess_TimeoutAppliesPerRead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.ms-excel")
		flusher := w.(http.Flusher)
		for i := 0; i < 6; i++ {
			_, _ = io.WriteString(w, "chunk;")
			flusher.Flush()
			time.Sleep(40 * time.Millisecond)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPClientConfig{}, SessionHeaders{}, zap.NewNop())
	f := NewFetcher(client, zap.NewNop())

	resp, ok := f.FetchFirstSuccess(context.Background(),
		[]Candidate{Candidate(server.URL)}, "20240101", SpreadsheetDownload(), 150*time.Millisecond)
	require.True(t, ok)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("chunk;", 6), string(body))
}

func TestFetchFirstSuccess_StalledBodyIsCut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.ms-excel")
		_, _ = io.WriteString(w, "head;")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client := NewHTTPClient(HTTPClientConfig{}, SessionHeaders{}, zap.NewNop())
	f := NewFetcher(client, zap.NewNop())

	resp, ok := f.FetchFirstSuccess(context.Background(),
		[]Candidate{Candidate(server.URL)}, "20240101", SpreadsheetDownload(), 100*time.Millisecond)
	require.True(t, ok)
	defer resp.Body.Close()

	start := time.Now()
	_, err := io.ReadAll(resp.Body)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
