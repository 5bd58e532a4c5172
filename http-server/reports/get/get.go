package get

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"agro-report/http-server/respond"
	"agro-report/internal/service/aggregate"
	"agro-report/internal/service/reports"
	"agro-report/internal/storage"
)

type ReportLister interface {
	ListReports(f reports.Filter) []storage.Report
	Stats() reports.Stats
}

type ReportViewer interface {
	ViewReport(id storage.ID) (storage.Report, string, error)
}

type MessageBuilder interface {
	DailyMessage(q aggregate.Query) (string, error)
}

type ListResponse struct {
	Reports []storage.Report `json:"reports"`
	Stats   reports.Stats    `json:"stats"`
}

type ViewResponse struct {
	Report storage.Report `json:"report"`
	Text   string         `json:"text"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ListReports handles GET /api/reports?date=&type=
func ListReports(log *slog.Logger, lister ReportLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reports.ListReports"

		filter := reports.Filter{Date: r.URL.Query().Get("date")}
		if t := r.URL.Query().Get("type"); t != "" {
			kind, ok := storage.ParseKind(t)
			if !ok {
				log.Warn("unknown report type", slog.String("op", op), slog.String("type", t))
				http.Error(w, "unknown report type", http.StatusBadRequest)
				return
			}
			filter.Kind = kind
		}

		list := lister.ListReports(filter)
		log.Debug("reports listed", slog.String("op", op), slog.Int("count", len(list)))

		render.JSON(w, r, ListResponse{Reports: list, Stats: lister.Stats()})
	}
}

// ViewReport handles GET /api/reports/{id}
func ViewReport(log *slog.Logger, viewer ReportViewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reports.ViewReport"

		id := storage.ID(chi.URLParam(r, "id"))
		rep, text, err := viewer.ViewReport(id)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, ViewResponse{Report: rep, Text: text})
	}
}

// DailyMessage handles GET /api/reports/message?type=&estate=&divisi=&date=
func DailyMessage(log *slog.Logger, builder MessageBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reports.DailyMessage"

		q := r.URL.Query()
		kind, ok := storage.ParseKind(q.Get("type"))
		if !ok {
			http.Error(w, "unknown report type", http.StatusBadRequest)
			return
		}

		division := 0
		if d := q.Get("divisi"); d != "" {
			n, err := strconv.Atoi(d)
			if err != nil {
				log.Warn("invalid division", slog.String("op", op), slog.String("divisi", d))
				http.Error(w, "divisi must be a number", http.StatusBadRequest)
				return
			}
			division = n
		}

		msg, err := builder.DailyMessage(aggregate.Query{
			Kind:     kind,
			Estate:   q.Get("estate"),
			Division: division,
			Date:     q.Get("date"),
		})
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, MessageResponse{Message: msg})
	}
}
