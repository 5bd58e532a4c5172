package import_excel

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"agro-report/http-server/respond"
)

const maxUpload = 20 << 20

type ExcelImporter interface {
	Import(ctx context.Context, r io.Reader) (int, error)
}

type ImportResponse struct {
	Status string `json:"status"`
	Added  int    `json:"added"`
}

// ImportReportExcel handles POST /api/report/excel with a multipart "file".
func ImportReportExcel(log *slog.Logger, imp ExcelImporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handler.report.ImportReportExcel"

		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		file, header, err := r.FormFile("file")
		if err != nil {
			log.Warn("no file in request", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Bad request: multipart field \"file\" is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		added, err := imp.Import(ctx, file)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		log.Info("reports imported", slog.String("op", op), slog.String("file", header.Filename), slog.Int("added", added))
		render.JSON(w, r, ImportResponse{Status: respond.StatusSuccess, Added: added})
	}
}
