package pull

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"agro-report/http-server/respond"
)

type MasterPuller interface {
	PullMasterCatalog(ctx context.Context) (int, error)
}

type ActualPuller interface {
	PullActual(ctx context.Context) (int, error)
}

type PullResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// PullMaster handles POST /api/sync/pull-master
func PullMaster(log *slog.Logger, puller MasterPuller, timeout time.Duration) http.HandlerFunc {
	return pull(log, "handlers.sync.PullMaster", timeout, puller.PullMasterCatalog)
}

// PullActual handles POST /api/sync/pull-actual
func PullActual(log *slog.Logger, puller ActualPuller, timeout time.Duration) http.HandlerFunc {
	return pull(log, "handlers.sync.PullActual", timeout, puller.PullActual)
}

func pull(log *slog.Logger, op string, timeout time.Duration, fn func(ctx context.Context) (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		n, err := fn(ctx)
		if err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, PullResponse{Status: respond.StatusSuccess, Count: n})
	}
}
