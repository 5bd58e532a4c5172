package remove

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"agro-report/http-server/respond"
	"agro-report/internal/storage"
)

type ReportDeleter interface {
	DeleteReport(ctx context.Context, id storage.ID) error
}

// DeleteReport handles DELETE /api/reports/{id}
func DeleteReport(log *slog.Logger, deleter ReportDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reports.DeleteReport"

		id := storage.ID(chi.URLParam(r, "id"))

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := deleter.DeleteReport(ctx, id); err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		log.Info("report deleted", slog.String("op", op), slog.String("id", id.String()))
		render.JSON(w, r, respond.Outcome{Status: respond.StatusSuccess})
	}
}
