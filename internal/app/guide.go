package app

import (
	"fmt"
	"io"
)

// FallbackScript — скрипт с браузерной автоматизацией для ручного запуска
const FallbackScript = "python scripts/dce_export.py"

const captureGuide = `
    ==================== 如何抓取下载 URL ====================

    1. 打开浏览器访问大商所结算参数页面
    2. 按 F12 打开开发者工具
    3. 切换到 Network (网络) 标签页
    4. 勾选 "Preserve log" (保留日志)
    5. 点击页面上的 "导出表格" 按钮
    6. 在 Network 列表中找到下载请求（通常是 .xls 或包含 export 的请求）
    7. 右键该请求 -> Copy -> Copy URL
    8. 将 URL 填入 DCE_BASE_URL 或开启 DCE_DISCOVER_LINKS=true

    =========================================================
`

// PrintCaptureGuide печатает инструкцию по поиску ссылки выгрузки в браузере
func PrintCaptureGuide(w io.Writer) {
	fmt.Fprint(w, captureGuide)
}

// PrintFallbackHint печатает подсказку запустить браузерный вариант
func PrintFallbackHint(w io.Writer) {
	fmt.Fprintln(w, "\n如果直接下载失败，请使用以下命令运行 Selenium 版本：")
	fmt.Fprintf(w, "  %s\n", FallbackScript)
}
