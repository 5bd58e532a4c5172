package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"agro-report/internal/service/aggregate"
	"agro-report/internal/service/catalog"
	"agro-report/internal/service/excel"
	"agro-report/internal/service/migrate"
	"agro-report/internal/service/reports"
	"agro-report/internal/service/syncer"
	"agro-report/internal/storage"
)

var (
	// ErrBusy is returned when the same action is already running.
	ErrBusy = errors.New("operation already in progress")
	// ErrNothingToExport is returned by Export when there are no reports.
	ErrNothingToExport = errors.New("no reports to export")
)

// Remote is the primary endpoint: push, pulls and reachability.
type Remote interface {
	syncer.Remote
	Ping(ctx context.Context) error
}

// Status is the one-line message shown after an action.
type Status struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// State is everything besides reports and activity types that the
// controller keeps in memory. Reports and the catalog live in their managers.
type State struct {
	UserInfo   storage.UserInfo   `json:"userInfo"`
	LastInputs storage.LastInputs `json:"lastInputs"`
	Status     Status             `json:"status"`
}

type App struct {
	log        *slog.Logger
	store      storage.Store
	remote     Remote
	legacyDump string
	now        func() time.Time

	Reports *reports.Manager
	Catalog *catalog.Resolver
	Sync    *syncer.Engine

	mu    sync.RWMutex
	state State

	busyMu sync.Mutex
	busy   map[string]bool
	pings singleflight.Group
}

// New wires the controller. fallback may be nil, then a failed push is not
// retried.
func New(log *slog.Logger, store storage.Store, rc Remote, fallback syncer.Pusher, legacyDump string) *App {
	rm := reports.New(store, log)
	cat := catalog.New(store)

	return &App{
		log:        log,
		store:      store,
		remote:     rc,
		legacyDump: legacyDump,
		now:        time.Now,
		Reports:    rm,
		Catalog:    cat,
		Sync:       syncer.New(log, rm, cat, store, rc, fallback),
		busy:       make(map[string]bool),
	}
}

// Start migrates legacy data and loads every collection. Migration problems
// are logged and never stop the start.
func (a *App) Start(ctx context.Context) error {
	const op = "app.Start"

	log := a.log.With(slog.String("op", op))

	if a.legacyDump != "" {
		n, err := migrate.SeedLegacyDump(ctx, a.store, a.legacyDump)
		if err != nil {
			log.Error("cannot seed legacy dump", slog.String("path", a.legacyDump), slog.String("error", err.Error()))
		} else {
			log.Info("legacy dump seeded", slog.Int("keys", n))
		}
	}

	res, err := migrate.Run(ctx, a.store)
	if err != nil {
		log.Error("legacy migration failed", slog.String("error", err.Error()))
	} else if res.Migrated() {
		log.Info("legacy data migrated",
			slog.Int("reports", res.Reports),
			slog.Int("skipped_reports", res.SkippedReports),
			slog.Int("custom_act_types", res.CustomActTypes),
		)
	}

	if err := a.Reports.Load(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := a.Catalog.Load(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := getMeta[storage.UserInfo](ctx, a.store, storage.MetaUserInfo)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	last, err := getMeta[storage.LastInputs](ctx, a.store, storage.MetaLastInputs)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.mu.Lock()
	a.state.UserInfo = user
	a.state.LastInputs = last
	a.mu.Unlock()

	log.Info("state loaded", slog.Int("reports", len(a.Reports.All())), slog.Int("master_act_types", a.Catalog.MasterCount()))

	return nil
}

func (a *App) SaveReport(ctx context.Context, kind storage.Kind, f reports.Fields) (storage.Report, error) {
	const op = "app.SaveReport"

	r, err := a.Reports.Save(ctx, kind, f)
	if err != nil {
		return storage.Report{}, err
	}

	a.mu.Lock()
	a.state.LastInputs.Set(kind, storage.FormInputs{
		Estate:       r.Estate,
		Division:     f.Division.String(),
		ActivityType: r.ActivityType,
		Job:          r.Job,
	})
	last := a.state.LastInputs
	a.mu.Unlock()

	if err := storage.PutJSON(ctx, a.store, storage.CollMeta, storage.MetaLastInputs, last); err != nil {
		a.log.Warn("cannot save last inputs", slog.String("op", op), slog.String("error", err.Error()))
	}

	a.setStatus(LevelSuccess, fmt.Sprintf("Laporan %s berhasil disimpan!", r.Type))
	return r, nil
}

func (a *App) EditReport(ctx context.Context, id storage.ID) (reports.EditForm, error) {
	form, err := a.Reports.Edit(ctx, id)
	if err != nil {
		return reports.EditForm{}, err
	}
	a.setStatus(LevelInfo, "Laporan dimuat ke form untuk diedit. Silakan perbaiki data dan simpan kembali.")
	return form, nil
}

func (a *App) DeleteReport(ctx context.Context, id storage.ID) error {
	return a.Reports.Delete(ctx, id)
}

func (a *App) ListReports(f reports.Filter) []storage.Report {
	return a.Reports.List(f)
}

// ViewReport returns the report and its detail text.
func (a *App) ViewReport(id storage.ID) (storage.Report, string, error) {
	r, ok := a.Reports.Get(id)
	if !ok {
		return storage.Report{}, "", fmt.Errorf("app.ViewReport: %s: %w", id, reports.ErrReportNotFound)
	}
	return r, reports.Describe(r), nil
}

func (a *App) Stats() reports.Stats {
	return a.Reports.Stats()
}

func (a *App) DailyMessage(q aggregate.Query) (string, error) {
	if strings.TrimSpace(q.Estate) == "" || q.Division < 1 {
		return "", &reports.ValidationError{
			Missing: missingFilter(q),
			Message: "Estate dan Divisi harus diisi untuk filter laporan!",
		}
	}
	return aggregate.Message(q, a.Reports.All(), a.UserInfo())
}

func (a *App) ActivityTypes(kind storage.Kind) []storage.ActivityType {
	return a.Catalog.Pool(kind)
}

func (a *App) AddActivityType(ctx context.Context, at storage.ActivityType) (storage.ActivityType, error) {
	added, err := a.Catalog.AddCustom(ctx, at)
	if err != nil {
		return storage.ActivityType{}, err
	}
	a.setStatus(LevelSuccess, fmt.Sprintf("ActTyp %s - %s berhasil ditambahkan!", added.Code, added.Desc))
	return added, nil
}

func (a *App) RemoveActivityType(ctx context.Context, kind storage.Kind, code string) error {
	return a.Catalog.RemoveCustom(ctx, kind, code)
}

func (a *App) Autofill(kind storage.Kind, code, job string) string {
	return a.Catalog.AutofillJob(kind, code, job)
}

// SaveUserInfo stores the mentee and mentor. When a NIK is set and no master
// catalog has been pulled yet, the first pull runs right away.
func (a *App) SaveUserInfo(ctx context.Context, u storage.UserInfo) error {
	const op = "app.SaveUserInfo"

	return a.guard("user", func() error {
		u.MenteeName = strings.TrimSpace(u.MenteeName)
		u.MentorName = strings.TrimSpace(u.MentorName)
		u.NIK = strings.TrimSpace(u.NIK)

		var missing []string
		if u.MenteeName == "" {
			missing = append(missing, "menteeName")
		}
		if u.MentorName == "" {
			missing = append(missing, "mentorName")
		}
		if len(missing) > 0 {
			return &reports.ValidationError{Missing: missing, Message: "Nama Mentee dan Mentor harus diisi!"}
		}

		if err := storage.PutJSON(ctx, a.store, storage.CollMeta, storage.MetaUserInfo, u); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		a.mu.Lock()
		a.state.UserInfo = u
		a.mu.Unlock()

		if u.NIK != "" && a.Catalog.MasterCount() == 0 {
			if _, err := a.pullMaster(ctx); err != nil {
				a.log.Warn("first master pull failed", slog.String("op", op), slog.String("error", err.Error()))
			}
		}

		return nil
	})
}

func (a *App) UserInfo() storage.UserInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.UserInfo
}

func (a *App) LastInputs() storage.LastInputs {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.LastInputs
}

func (a *App) Push(ctx context.Context) (syncer.PushResult, error) {
	var res syncer.PushResult

	err := a.guard("push", func() error {
		a.setStatus(LevelWarning, "Menyinkronisasi data...")

		var err error
		res, err = a.Sync.Push(ctx)
		switch {
		case errors.Is(err, syncer.ErrNothingToSync):
			a.setStatus(LevelInfo, "Semua data sudah tersinkronisasi!")
		case err != nil:
			a.setStatus(LevelError, "Gagal sinkronisasi: "+err.Error())
		case res.Fallback:
			a.setStatus(LevelSuccess, fmt.Sprintf("Berhasil sinkronisasi %d laporan (JSONP)!", len(res.Synced)))
		default:
			a.setStatus(LevelSuccess, fmt.Sprintf("Berhasil sinkronisasi %d laporan!", len(res.Synced)))
		}
		return err
	})

	return res, err
}

func (a *App) PullMasterCatalog(ctx context.Context) (int, error) {
	var n int
	err := a.guard("pull-master", func() error {
		var err error
		n, err = a.pullMaster(ctx)
		return err
	})
	return n, err
}

func (a *App) pullMaster(ctx context.Context) (int, error) {
	n, err := a.Sync.PullMasterCatalog(ctx)
	if err != nil {
		a.setStatus(LevelError, "Gagal mengambil ActTyp master: "+err.Error())
		return 0, err
	}
	a.setStatus(LevelSuccess, fmt.Sprintf("Berhasil mengambil %d ActTyp master.", n))
	return n, nil
}

func (a *App) PullActual(ctx context.Context) (int, error) {
	var n int
	err := a.guard("pull-actual", func() error {
		var err error
		n, err = a.Sync.PullActualByPersonnelID(ctx)
		switch {
		case errors.Is(err, syncer.ErrNoPersonnelID):
			a.setStatus(LevelWarning, "NIK belum diisi pada data pengguna.")
		case err != nil:
			a.setStatus(LevelError, "Gagal mengambil data aktual: "+err.Error())
		default:
			a.setStatus(LevelSuccess, fmt.Sprintf("Berhasil mengambil %d laporan baru.", n))
		}
		return err
	})
	return n, err
}

// Export renders every report as a workbook.
func (a *App) Export() ([]byte, error) {
	all := a.Reports.All()
	if len(all) == 0 {
		return nil, ErrNothingToExport
	}
	return excel.Export(all)
}

// Import merges the workbook rows whose id is not known yet.
func (a *App) Import(ctx context.Context, r io.Reader) (int, error) {
	const op = "app.Import"

	rows, err := excel.Import(r)
	if err != nil {
		return 0, err
	}

	added, err := a.Reports.Merge(ctx, rows)
	if err != nil {
		return added, fmt.Errorf("%s: %w", op, err)
	}
	if added == 0 {
		return 0, excel.ErrNothingToImport
	}

	a.setStatus(LevelSuccess, fmt.Sprintf("Berhasil mengimpor %d laporan baru!", added))
	return added, nil
}

func (a *App) ClearReports(ctx context.Context) error {
	if err := a.Reports.ClearAll(ctx); err != nil {
		return err
	}
	a.setStatus(LevelSuccess, "Semua data laporan telah dihapus!")
	return nil
}

// Reset wipes every collection and seeds the default activity types. Writing
// the empty metadata afterwards is best effort.
func (a *App) Reset(ctx context.Context) error {
	const op = "app.Reset"

	for _, coll := range storage.Collections {
		if err := a.store.Clear(ctx, coll); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := a.Reports.Load(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	a.Catalog.Forget()
	if err := a.Catalog.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.mu.Lock()
	a.state = State{}
	a.mu.Unlock()

	if err := storage.PutJSON(ctx, a.store, storage.CollMeta, storage.MetaUserInfo, storage.UserInfo{}); err != nil {
		a.log.Warn("cannot write empty user info", slog.String("op", op), slog.String("error", err.Error()))
	}
	if err := storage.PutJSON(ctx, a.store, storage.CollMeta, storage.MetaLastInputs, storage.LastInputs{}); err != nil {
		a.log.Warn("cannot write empty last inputs", slog.String("op", op), slog.String("error", err.Error()))
	}

	a.log.Info("application reset", slog.String("op", op))
	return nil
}

func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Status
}

// Online pings the endpoint. Concurrent callers share one ping.
func (a *App) Online(ctx context.Context) bool {
	v, _, _ := a.pings.Do("ping", func() (any, error) {
		return a.remote.Ping(ctx) == nil, nil
	})
	return v.(bool)
}

// NotifyOnline is called when the connection comes back. It only reminds the
// user about pending reports and never pushes by itself.
func (a *App) NotifyOnline(ctx context.Context) {
	n := len(a.Reports.Unsynced())
	if n == 0 {
		return
	}
	a.setStatus(LevelWarning, fmt.Sprintf("Koneksi kembali online. Ada %d laporan belum tersinkronisasi.", n))
	a.log.Info("back online with unsynced reports", slog.Int("unsynced", n))
}

func (a *App) setStatus(level, msg string) {
	a.mu.Lock()
	a.state.Status = Status{Level: level, Message: msg, At: a.now()}
	a.mu.Unlock()
}

// guard runs fn unless the same action is already in flight.
func (a *App) guard(action string, fn func() error) error {
	a.busyMu.Lock()
	if a.busy[action] {
		a.busyMu.Unlock()
		return fmt.Errorf("%s: %w", action, ErrBusy)
	}
	a.busy[action] = true
	a.busyMu.Unlock()

	defer func() {
		a.busyMu.Lock()
		delete(a.busy, action)
		a.busyMu.Unlock()
	}()

	return fn()
}

func getMeta[T any](ctx context.Context, s storage.Getter, key string) (T, error) {
	v, err := storage.GetJSON[T](ctx, s, storage.CollMeta, key)
	if errors.Is(err, storage.ErrNotFound) {
		var zero T
		return zero, nil
	}
	return v, err
}

func missingFilter(q aggregate.Query) []string {
	var missing []string
	if strings.TrimSpace(q.Estate) == "" {
		missing = append(missing, "estate")
	}
	if q.Division < 1 {
		missing = append(missing, "divisi")
	}
	return missing
}
