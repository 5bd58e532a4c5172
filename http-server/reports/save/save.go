package save

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"agro-report/http-server/respond"
	"agro-report/internal/service/reports"
	"agro-report/internal/storage"
)

type ReportSaver interface {
	SaveReport(ctx context.Context, kind storage.Kind, f reports.Fields) (storage.Report, error)
}

type ReportEditor interface {
	EditReport(ctx context.Context, id storage.ID) (reports.EditForm, error)
}

type SaveResponse struct {
	Status string         `json:"status"`
	Report storage.Report `json:"report"`
}

// SaveReport handles POST /api/reports/{kind}
func SaveReport(log *slog.Logger, saver ReportSaver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reports.SaveReport"

		kind, ok := storage.ParseKind(chi.URLParam(r, "kind"))
		if !ok {
			http.Error(w, "unknown report type", http.StatusBadRequest)
			return
		}

		var f reports.Fields
		if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
			log.Error("Invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Bad request: invalid JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		rep, err := saver.SaveReport(ctx, kind, f)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		log.Info("report saved", slog.String("op", op), slog.String("id", rep.ID.String()), slog.String("type", string(rep.Type)))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, SaveResponse{Status: respond.StatusSuccess, Report: rep})
	}
}

// EditReport handles POST /api/reports/{id}/edit. The report is removed and
// returned as form fields.
func EditReport(log *slog.Logger, editor ReportEditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reports.EditReport"

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		form, err := editor.EditReport(ctx, storage.ID(chi.URLParam(r, "id")))
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, form)
	}
}
