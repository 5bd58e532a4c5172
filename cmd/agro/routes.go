package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	getacttypes "agro-report/http-server/acttypes/get"
	removeacttype "agro-report/http-server/acttypes/remove"
	saveacttype "agro-report/http-server/acttypes/save"
	"agro-report/http-server/admin/reset"
	generate_excel "agro-report/http-server/generate-report/generate-excel"
	import_excel "agro-report/http-server/generate-report/import-excel"
	getreports "agro-report/http-server/reports/get"
	removereport "agro-report/http-server/reports/remove"
	savereport "agro-report/http-server/reports/save"
	getstatus "agro-report/http-server/status/get"
	"agro-report/http-server/sync/pull"
	"agro-report/http-server/sync/push"
	getuser "agro-report/http-server/user/get"
	saveuser "agro-report/http-server/user/save"
	"agro-report/internal/app"
	"agro-report/internal/config"
	"agro-report/internal/middleware/auth"
)

func routes(cfg config.Config, log *slog.Logger, a *app.App) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// reports
	router.Get("/api/reports", getreports.ListReports(log, a))
	router.Get("/api/reports/message", getreports.DailyMessage(log, a))
	router.Get("/api/reports/{id}", getreports.ViewReport(log, a))
	router.Post("/api/reports/{kind}", savereport.SaveReport(log, a))
	router.Post("/api/reports/{id}/edit", savereport.EditReport(log, a))
	router.Delete("/api/reports/{id}", removereport.DeleteReport(log, a))

	// activity types
	router.Get("/api/acttypes", getacttypes.GetActivityTypes(log, a))
	router.Get("/api/acttypes/autofill", getacttypes.Autofill(log, a))
	router.Post("/api/acttypes", saveacttype.AddActivityType(log, a))
	router.Delete("/api/acttypes/{type}/{code}", removeacttype.RemoveActivityType(log, a))

	router.Get("/api/user", getuser.GetUserInfo(log, a))
	router.Put("/api/user", saveuser.SaveUserInfo(log, a, cfg.Remote.SyncTimeout()))
	router.Get("/api/last-inputs", getuser.GetLastInputs(log, a))

	router.Post("/api/sync/push", push.Push(log, a, cfg.Remote.SyncTimeout()))
	router.Post("/api/sync/pull-master", pull.PullMaster(log, a, cfg.Remote.SyncTimeout()))
	router.Post("/api/sync/pull-actual", pull.PullActual(log, a, cfg.Remote.SyncTimeout()))

	router.Get("/api/status", getstatus.GetStatus(log, a))

	router.Get("/api/report/excel", generate_excel.GenerateReportExcel(log, a))
	router.Post("/api/report/excel", import_excel.ImportReportExcel(log, a))

	adminRouter := chi.NewRouter()
	adminRouter.Use(auth.BasicAuth(cfg.AdminLogin, cfg.AdminPass))

	adminRouter.Delete("/reports", reset.ClearReports(log, a))
	adminRouter.Post("/reset", reset.ResetApp(log, a))

	router.Mount("/api/admin", adminRouter)

	mountFrontend(router, log, cfg.FrontendDir)

	return router
}

// mountFrontend serves the built single page app when it is present.
func mountFrontend(router chi.Router, log *slog.Logger, frontendDir string) {
	if _, err := os.Stat(frontendDir); err != nil {
		log.Warn("frontend not found, serving API only", slog.String("path", frontendDir))
		return
	}

	fileServer := http.FileServer(http.Dir(frontendDir))

	router.Handle("/assets/*", fileServer)
	router.Handle("/js/*", fileServer)
	router.Handle("/css/*", fileServer)
	router.Handle("/img/*", fileServer)

	router.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(frontendDir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			http.ServeFile(w, r, path)
			return
		}
		http.ServeFile(w, r, filepath.Join(frontendDir, "index.html"))
	})
}
