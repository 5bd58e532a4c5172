package respond

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/render"

	"agro-report/internal/app"
	"agro-report/internal/remote"
	"agro-report/internal/service/aggregate"
	"agro-report/internal/service/catalog"
	"agro-report/internal/service/excel"
	"agro-report/internal/service/reports"
	"agro-report/internal/service/syncer"
)

// Outcome is the body of every successful or "nothing to do" answer.
type Outcome struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusNothing = "nothing"
)

// StatusCode maps service errors onto HTTP statuses.
func StatusCode(err error) int {
	var urlErr *url.Error

	switch {
	case errors.Is(err, reports.ErrValidation),
		errors.Is(err, catalog.ErrInvalidActivityType),
		errors.Is(err, excel.ErrEmptyFile),
		errors.Is(err, excel.ErrUnreadableFile),
		errors.Is(err, syncer.ErrNoPersonnelID):
		return http.StatusBadRequest
	case errors.Is(err, reports.ErrReportNotFound),
		errors.Is(err, catalog.ErrUnknownActivityType):
		return http.StatusNotFound
	case errors.Is(err, app.ErrBusy),
		errors.Is(err, catalog.ErrDuplicateActivityType):
		return http.StatusConflict
	case errors.Is(err, remote.ErrUnsuccessful),
		errors.Is(err, remote.ErrBadResponse),
		errors.Is(err, remote.ErrUnknownCallback),
		errors.As(err, &urlErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Nothing reports whether err only says there was nothing to do.
func Nothing(err error) bool {
	return errors.Is(err, syncer.ErrNothingToSync) ||
		errors.Is(err, excel.ErrNothingToImport) ||
		errors.Is(err, app.ErrNothingToExport) ||
		errors.Is(err, aggregate.ErrNoReports)
}

// Error writes err with its mapped status. "Nothing to do" errors are
// answered with 200 and a nothing status.
func Error(w http.ResponseWriter, r *http.Request, log *slog.Logger, op string, err error) {
	if Nothing(err) {
		log.Info("nothing to do", slog.String("op", op), slog.String("reason", err.Error()))
		render.JSON(w, r, Outcome{Status: StatusNothing, Message: nothingMessage(err)})
		return
	}

	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", slog.String("op", op), slog.String("error", err.Error()))
	} else {
		log.Warn("request rejected", slog.String("op", op), slog.String("error", err.Error()))
	}

	switch code {
	case http.StatusInternalServerError:
		http.Error(w, "Internal server error", code)
	case http.StatusBadGateway:
		http.Error(w, "Gagal sinkronisasi: "+err.Error(), code)
	case http.StatusBadRequest:
		if errors.Is(err, excel.ErrUnreadableFile) {
			http.Error(w, "Gagal mengimpor data. Pastikan format file sesuai!", code)
			return
		}
		http.Error(w, err.Error(), code)
	default:
		http.Error(w, err.Error(), code)
	}
}

func nothingMessage(err error) string {
	switch {
	case errors.Is(err, syncer.ErrNothingToSync):
		return "Semua data sudah tersinkronisasi!"
	case errors.Is(err, excel.ErrNothingToImport):
		return "Semua data dalam file sudah ada di sistem!"
	case errors.Is(err, app.ErrNothingToExport):
		return "Tidak ada data untuk diexport!"
	default:
		return "Tidak ada laporan pada tanggal tersebut!"
	}
}
