package get

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"agro-report/internal/storage"
)

type ActivityTypePool interface {
	ActivityTypes(kind storage.Kind) []storage.ActivityType
}

type JobAutofiller interface {
	Autofill(kind storage.Kind, code, job string) string
}

type AutofillResponse struct {
	Job string `json:"pekerjaan"`
}

// GetActivityTypes handles GET /api/acttypes?type=
func GetActivityTypes(log *slog.Logger, pool ActivityTypePool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.acttypes.GetActivityTypes"

		kind, ok := storage.ParseKind(r.URL.Query().Get("type"))
		if !ok {
			log.Warn("unknown category", slog.String("op", op), slog.String("type", r.URL.Query().Get("type")))
			http.Error(w, "unknown activity type category", http.StatusBadRequest)
			return
		}

		render.JSON(w, r, pool.ActivityTypes(kind))
	}
}

// Autofill handles GET /api/acttypes/autofill?type=&code=&job=
func Autofill(log *slog.Logger, filler JobAutofiller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		kind, ok := storage.ParseKind(q.Get("type"))
		if !ok {
			http.Error(w, "unknown activity type category", http.StatusBadRequest)
			return
		}

		render.JSON(w, r, AutofillResponse{Job: filler.Autofill(kind, q.Get("code"), q.Get("job"))})
	}
}
