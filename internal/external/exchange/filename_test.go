package exchange

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestDefaultFilename(t *testing.T) {
	assert.Equal(t, "dce_settlement_20240101.xls", DefaultFilename("dce_settlement", "20240101", "xls"))
	assert.Equal(t, "dce_settlement_20240101.xlsx", DefaultFilename("dce_settlement", "20240101", ".xlsx"))
}

func TestFilenameFromResponse(t *testing.T) {
	fallback := DefaultFilename("dce_settlement", "20240101", "xls")

	gbkName, err := simplifiedchinese.GBK.NewEncoder().String("结算参数.xls")
	if err != nil {
		t.Fatalf("failed to encode GBK name: %v", err)
	}

	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{"quoted filename", `attachment; filename="x.xls"`, "x.xls"},
		{"bare filename", `attachment; filename=x.xls`, "x.xls"},
		{"no header", "", fallback},
		{"inline without filename", "inline", fallback},
		{"rfc5987 wins", `attachment; filename="fallback.xls"; filename*=UTF-8''%E7%BB%93%E7%AE%97%E5%8F%82%E6%95%B0.xls`, "结算参数.xls"},
		{"percent encoded", `attachment; filename=%E7%BB%93%E7%AE%97.xls`, "结算.xls"},
		{"gbk bytes", `attachment; filename="` + gbkName + `"`, "结算参数.xls"},
		{"path traversal", `attachment; filename="../../etc/passwd"`, "passwd"},
		{"windows path", `attachment; filename="C:\\tmp\\report.xls"`, "report.xls"},
		{"dot dot only", `attachment; filename=".."`, fallback},
		{"broken header", `attachment; filename="x.xls`, "x.xls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: make(http.Header)}
			if tt.header != "" {
				resp.Header.Set("Content-Disposition", tt.header)
			}
			assert.Equal(t, tt.expected, FilenameFromResponse(resp, fallback))
		})
	}
}

func TestFilenameFromResponse_NilResponse(t *testing.T) {
	assert.Equal(t, "fallback.xls", FilenameFromResponse(nil, "fallback.xls"))
}
