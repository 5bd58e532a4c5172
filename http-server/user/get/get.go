package get

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"agro-report/internal/storage"
)

type UserInfoProvider interface {
	UserInfo() storage.UserInfo
}

type LastInputsProvider interface {
	LastInputs() storage.LastInputs
}

// GetUserInfo handles GET /api/user
func GetUserInfo(log *slog.Logger, provider UserInfoProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, provider.UserInfo())
	}
}

// GetLastInputs handles GET /api/last-inputs
func GetLastInputs(log *slog.Logger, provider LastInputsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, provider.LastInputs())
	}
}
