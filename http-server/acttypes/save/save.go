package save

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"agro-report/http-server/respond"
	"agro-report/internal/storage"
)

type ActivityTypeAdder interface {
	AddActivityType(ctx context.Context, at storage.ActivityType) (storage.ActivityType, error)
}

// AddActivityType handles POST /api/acttypes
func AddActivityType(log *slog.Logger, adder ActivityTypeAdder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.acttypes.AddActivityType"

		var req storage.ActivityType
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Bad request: invalid JSON", http.StatusBadRequest)
			return
		}
		if kind, ok := storage.ParseKind(string(req.Category)); ok {
			req.Category = kind
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		added, err := adder.AddActivityType(ctx, req)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		log.Info("custom activity type added", slog.String("op", op), slog.String("key", added.Key()))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, added)
	}
}
