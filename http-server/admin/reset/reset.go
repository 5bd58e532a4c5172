package reset

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"agro-report/http-server/respond"
)

type ReportClearer interface {
	ClearReports(ctx context.Context) error
}

type AppResetter interface {
	Reset(ctx context.Context) error
}

// ClearReports handles DELETE /api/admin/reports
func ClearReports(log *slog.Logger, clearer ReportClearer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.ClearReports"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := clearer.ClearReports(ctx); err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		log.Warn("all reports deleted", slog.String("op", op))
		render.JSON(w, r, respond.Outcome{Status: respond.StatusSuccess, Message: "Semua data laporan telah dihapus!"})
	}
}

// ResetApp handles POST /api/admin/reset
func ResetApp(log *slog.Logger, resetter AppResetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.admin.ResetApp"

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		if err := resetter.Reset(ctx); err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		log.Warn("application reset", slog.String("op", op))
		render.JSON(w, r, respond.Outcome{Status: respond.StatusSuccess})
	}
}
