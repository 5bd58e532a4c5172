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

type UserInfoSaver interface {
	SaveUserInfo(ctx context.Context, u storage.UserInfo) error
	UserInfo() storage.UserInfo
}

// SaveUserInfo handles PUT /api/user. Saving a NIK may trigger the first
// master catalog pull, so the timeout is the sync one.
func SaveUserInfo(log *slog.Logger, saver UserInfoSaver, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.user.SaveUserInfo"

		var req storage.UserInfo
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error("Invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
			http.Error(w, "Bad request: invalid JSON", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := saver.SaveUserInfo(ctx, req); err != nil {
			respond.Error(w, r, log, op, err)
			return
		}

		render.JSON(w, r, saver.UserInfo())
	}
}
