package exchange

import "strings"

// DatePlaceholder подставляется датой торгов в шаблон кандидата
const DatePlaceholder = "{date}"

// Candidate представляет шаблон URL, который пробуем по порядку
type Candidate string

// Resolve подставляет дату в шаблон
func (c Candidate) Resolve(date string) string {
	return strings.ReplaceAll(string(c), DatePlaceholder, date)
}

// Candidates собирает абсолютные шаблоны из базового адреса и путей
func Candidates(baseURL string, paths ...string) []Candidate {
	base := strings.TrimRight(baseURL, "/")
	out := make([]Candidate, 0, len(paths))
	for _, p := range paths {
		if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
			out = append(out, Candidate(p))
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		out = append(out, Candidate(base+p))
	}
	return out
}

// ProbePaths возвращает угаданные адреса JSON/HTML с параметрами расчета
func ProbePaths() []string {
	return []string{
		"/publicweb/quotesdata/settleParams.html?tradeDate={date}",
		"/dalianshangpin/yw/fw/ywcs/jscs/settleParams_{date}.json",
		"/api/settleParams?date={date}",
	}
}

// ExportPaths возвращает угаданные адреса выгрузки Excel
func ExportPaths() []string {
	return []string{
		"/publicweb/quotesdata/exportSettleParams.html?tradeDate={date}&exportType=excel",
		"/dalianshangpin/yw/fw/ywcs/jscs/export.html?date={date}",
		"/api/export/settleParams?date={date}&format=xlsx",
	}
}
