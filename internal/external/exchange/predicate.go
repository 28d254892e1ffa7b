package exchange

import (
	"net/http"
	"strings"
)

// Predicate решает, считается ли ответ успешным и останавливает ли он перебор
type Predicate func(resp *http.Response) bool

// StatusOK принимает любой ответ со статусом 200
func StatusOK() Predicate {
	return func(resp *http.Response) bool {
		return resp != nil && resp.StatusCode == http.StatusOK
	}
}

// spreadsheetMarkers — подстроки Content-Type, означающие файл выгрузки
var spreadsheetMarkers = []string{"excel", "spreadsheet", "octet-stream"}

// IsSpreadsheet проверяет, похож ли Content-Type на файл таблицы
func IsSpreadsheet(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, marker := range spreadsheetMarkers {
		if strings.Contains(ct, marker) {
			return true
		}
	}
	return false
}

// SpreadsheetDownload принимает ответ 200 с Content-Type таблицы или бинарного потока
func SpreadsheetDownload() Predicate {
	return All(StatusOK(), func(resp *http.Response) bool {
		return IsSpreadsheet(resp.Header.Get("Content-Type"))
	})
}

// All объединяет предикаты через логическое И
func All(predicates ...Predicate) Predicate {
	return func(resp *http.Response) bool {
		for _, p := range predicates {
			if !p(resp) {
				return false
			}
		}
		return true
	}
}
