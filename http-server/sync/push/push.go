package push

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"agro-report/http-server/respond"
	"agro-report/internal/service/syncer"
)

type Pusher interface {
	Push(ctx context.Context) (syncer.PushResult, error)
}

type PushResponse struct {
	Status string `json:"status"`
	syncer.PushResult
}

// Push handles POST /api/sync/push
func Push(log *slog.Logger, pusher Pusher, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sync.Push"

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		res, err := pusher.Push(ctx)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, PushResponse{Status: respond.StatusSuccess, PushResult: res})
	}
}
