package generate_excel

import (
	"log/slog"
	"net/http"
	"time"

	"agro-report/http-server/respond"
	"agro-report/internal/service/excel"
)

type ExcelExporter interface {
	Export() ([]byte, error)
}

// GenerateReportExcel handles GET /api/report/excel
func GenerateReportExcel(log *slog.Logger, gen ExcelExporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.report.GenerateReportExcel"

		excelBytes, err := gen.Export()
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		fileName := excel.FileName(time.Now())

		w.Header().Set("Content-Type", excel.ContentType)
		w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
		if _, err := w.Write(excelBytes); err != nil {
			log.Error("failed to write excel", slog.String("op", op), slog.String("error", err.Error()))
		}
	}
}
