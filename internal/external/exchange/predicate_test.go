package exchange

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func response(status int, contentType string) *http.Response {
	header := make(http.Header)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &http.Response{StatusCode: status, Header: header}
}

func TestSpreadsheetDownload(t *testing.T) {
	match := SpreadsheetDownload()

	tests := []struct {
		name     string
		resp     *http.Response
		expected bool
	}{
		{"xls", response(http.StatusOK, "application/vnd.ms-excel"), true},
		{"xlsx", response(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"), true},
		{"octet stream", response(http.StatusOK, "application/octet-stream"), true},
		{"upper case", response(http.StatusOK, "Application/Vnd.MS-Excel; charset=GBK"), true},
		{"html page", response(http.StatusOK, "text/html; charset=utf-8"), false},
		{"no content type", response(http.StatusOK, ""), false},
		{"excel but 404", response(http.StatusNotFound, "application/vnd.ms-excel"), false},
		{"redirect", response(http.StatusFound, "application/octet-stream"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, match(tt.resp))
		})
	}
}

func TestStatusOK(t *testing.T) {
	match := StatusOK()
	assert.True(t, match(response(http.StatusOK, "text/html")))
	assert.False(t, match(response(http.StatusNoContent, "")))
	assert.False(t, match(nil))
}

func TestAll(t *testing.T) {
	yes := func(*http.Response) bool { return true }
	no := func(*http.Response) bool { return false }

	assert.True(t, All()(response(http.StatusOK, "")))
	assert.True(t, All(yes, yes)(response(http.StatusOK, "")))
	assert.False(t, All(yes, no)(response(http.StatusOK, "")))
}

func TestCandidates(t *testing.T) {
	got := Candidates("http://www.dce.com.cn/", "/api/settleParams?date={date}", "export.html", "https://mirror.test/{date}.xls")

	assert.Equal(t, []Candidate{
		"http://www.dce.com.cn/api/settleParams?date={date}",
		"http://www.dce.com.cn/export.html",
		"https://mirror.test/{date}.xls",
	}, got)

	assert.Equal(t, "http://www.dce.com.cn/api/settleParams?date=20240101", got[0].Resolve("20240101"))
	assert.Equal(t, "http://www.dce.com.cn/export.html", got[1].Resolve("20240101"))
}

func TestDefaultPaths(t *testing.T) {
	assert.Len(t, ProbePaths(), 3)
	assert.Len(t, ExportPaths(), 3)
	for _, p := range append(ProbePaths(), ExportPaths()...) {
		assert.Contains(t, p, DatePlaceholder)
	}
}

func TestSessionHeaders(t *testing.T) {
	h := NewSessionHeaders("ua", "application/json", "zh-CN", "http://www.dce.com.cn/")

	header := h.Header()
	assert.Equal(t, "ua", header.Get("User-Agent"))
	assert.Equal(t, "application/json", header.Get("Accept"))
	assert.Equal(t, "zh-CN", header.Get("Accept-Language"))
	assert.Equal(t, "http://www.dce.com.cn/", header.Get("Referer"))

	// Изменение копии не затрагивает набор сессии
	header.Set("User-Agent", "changed")
	assert.Equal(t, "ua", h.Header().Get("User-Agent"))

	empty := SessionHeaders{}.Header()
	assert.Empty(t, empty)
}
