package get

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"agro-report/internal/app"
	"agro-report/internal/service/reports"
	"agro-report/internal/storage"
)

type StatusProvider interface {
	Status() app.Status
	Stats() reports.Stats
	UserInfo() storage.UserInfo
	Online(ctx context.Context) bool
}

type StatusResponse struct {
	Status   app.Status       `json:"status"`
	Stats    reports.Stats    `json:"stats"`
	UserInfo storage.UserInfo `json:"userInfo"`
	Online   bool             `json:"online"`
}

// GetStatus handles GET /api/status
func GetStatus(log *slog.Logger, provider StatusProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		render.JSON(w, r, StatusResponse{
			Status:   provider.Status(),
			Stats:    provider.Stats(),
			UserInfo: provider.UserInfo(),
			Online:   provider.Online(ctx),
		})
	}
}
