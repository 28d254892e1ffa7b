package exchange

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// DefaultFilename собирает имя файла вида <prefix>_<date>.<ext>
func DefaultFilename(prefix, date, ext string) string {
	return fmt.Sprintf("%s_%s.%s", prefix, date, strings.TrimPrefix(ext, "."))
}

// FilenameFromResponse возвращает имя из Content-Disposition либо fallback
func FilenameFromResponse(resp *http.Response, fallback string) string {
	if resp == nil {
		return fallback
	}
	name := FilenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		return fallback
	}
	return name
}

// FilenameFromDisposition извлекает безопасное имя файла из Content-Disposition.
// Возвращает пустую строку, если имени нет.
func FilenameFromDisposition(cd string) string {
	if !strings.Contains(cd, "filename") {
		return ""
	}

	var name string
	if _, params, err := mime.ParseMediaType(cd); err == nil {
		// mime раскрывает filename* (RFC 5987) в ключ filename
		name = params["filename"]
	}
	if name == "" {
		name = rawFilename(cd)
	}

	return sanitizeFilename(decodeFilename(name))
}

// rawFilename разбирает заголовок вручную, когда сервер нарушает RFC
func rawFilename(cd string) string {
	idx := strings.LastIndex(cd, "filename=")
	if idx < 0 {
		return ""
	}
	value := cd[idx+len("filename="):]
	if semi := strings.IndexByte(value, ';'); semi >= 0 {
		value = value[:semi]
	}
	return strings.Trim(strings.TrimSpace(value), `"'`)
}

// decodeFilename раскрывает %XX и GBK, которые отдают китайские серверы
func decodeFilename(name string) string {
	if strings.Contains(name, "%") {
		if unescaped, err := url.PathUnescape(name); err == nil {
			name = unescaped
		}
	}
	if utf8.ValidString(name) {
		return name
	}
	decoded, err := simplifiedchinese.GB18030.NewDecoder().String(name)
	if err != nil {
		return name
	}
	return decoded
}

// sanitizeFilename оставляет только последний элемент пути
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}
