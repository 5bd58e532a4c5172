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

type ActivityTypeRemover interface {
	RemoveActivityType(ctx context.Context, kind storage.Kind, code string) error
}

// RemoveActivityType handles DELETE /api/acttypes/{type}/{code}. Only custom
// entries can be removed.
func RemoveActivityType(log *slog.Logger, remover ActivityTypeRemover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.acttypes.RemoveActivityType"

		kind, ok := storage.ParseKind(chi.URLParam(r, "type"))
		if !ok {
			http.Error(w, "unknown activity type category", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := remover.RemoveActivityType(ctx, kind, chi.URLParam(r, "code")); err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, respond.Outcome{Status: respond.StatusSuccess})
	}
}
