package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agro-report/internal/remote"
	"agro-report/internal/storage"
)

var (
	ErrNothingToSync = errors.New("nothing to sync")
	ErrNoPersonnelID = errors.New("personnel id (NIK) is not set")
)

type Reports interface {
	Unsynced() []storage.Report
	MarkSynced(ctx context.Context, ids []storage.ID) (int, error)
	Merge(ctx context.Context, incoming []storage.Report) (int, error)
}

type Catalog interface {
	ReplaceMaster(ctx context.Context, items []storage.ActivityType) (int, error)
}

type MetaStore interface {
	Get(ctx context.Context, coll storage.Collection, key string) ([]byte, error)
	Put(ctx context.Context, coll storage.Collection, key string, value []byte) error
}

// Pusher delivers an appendData batch and returns the acknowledged ids.
type Pusher interface {
	AppendData(ctx context.Context, rows []remote.Row) ([]storage.ID, error)
}

type Puller interface {
	GetActivityTypes(ctx context.Context) ([]storage.ActivityType, error)
	GetActualByNIK(ctx context.Context, nik string) ([]storage.Report, error)
}

// Remote is the primary endpoint client.
type Remote interface {
	Pusher
	Puller
}

type Engine struct {
	log      *slog.Logger
	reports  Reports
	catalog  Catalog
	meta     MetaStore
	primary  Remote
	fallback Pusher
	now      func() time.Time
}

func New(log *slog.Logger, reports Reports, catalog Catalog, meta MetaStore, primary Remote, fallback Pusher) *Engine {
	return &Engine{
		log:      log,
		reports:  reports,
		catalog:  catalog,
		meta:     meta,
		primary:  primary,
		fallback: fallback,
		now:      time.Now,
	}
}

type PushResult struct {
	Synced   []storage.ID `json:"syncedIds"`
	Marked   int          `json:"marked"`
	Fallback bool         `json:"fallback"`
}

// Push sends every unsynced report in one batch. When the primary transport
// fails the batch is retried once through the fallback transport. Only ids
// acknowledged by the endpoint are marked synced.
func (e *Engine) Push(ctx context.Context) (PushResult, error) {
	const op = "service.syncer.Push"

	log := e.log.With(slog.String("op", op))

	unsynced := e.reports.Unsynced()
	if len(unsynced) == 0 {
		return PushResult{}, ErrNothingToSync
	}

	user, err := e.userInfo(ctx)
	if err != nil {
		return PushResult{}, fmt.Errorf("%s: %w", op, err)
	}
	rows := Rows(unsynced, user)

	var res PushResult
	ids, err := e.primary.AppendData(ctx, rows)
	if err != nil {
		log.Warn("primary transport failed, trying fallback", slog.String("error", err.Error()))
		if e.fallback == nil {
			return PushResult{}, fmt.Errorf("%s: %w", op, err)
		}

		ids, err = e.fallback.AppendData(ctx, rows)
		if err != nil {
			return PushResult{}, fmt.Errorf("%s: fallback: %w", op, err)
		}
		res.Fallback = true
	}

	marked, err := e.reports.MarkSynced(ctx, ids)
	if err != nil {
		return PushResult{}, fmt.Errorf("%s: %w", op, err)
	}
	res.Synced = ids
	res.Marked = marked

	e.touch(ctx, func(m *storage.SyncMeta, t time.Time) { m.LastPush = &t })
	log.Info("reports pushed", slog.Int("sent", len(rows)), slog.Int("acknowledged", len(ids)), slog.Bool("fallback", res.Fallback))

	return res, nil
}

// PullMasterCatalog replaces the master activity types with the remote list.
func (e *Engine) PullMasterCatalog(ctx context.Context) (int, error) {
	const op = "service.syncer.PullMasterCatalog"

	items, err := e.primary.GetActivityTypes(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := e.catalog.ReplaceMaster(ctx, items)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	e.touch(ctx, func(m *storage.SyncMeta, t time.Time) { m.LastMasterPull = &t })
	e.log.Info("master catalog pulled", slog.String("op", op), slog.Int("received", len(items)), slog.Int("stored", n))

	return n, nil
}

// PullActualByPersonnelID merges the reports the endpoint holds for the
// user's NIK. Merged reports are marked synced since they came from the sheet.
func (e *Engine) PullActualByPersonnelID(ctx context.Context) (int, error) {
	const op = "service.syncer.PullActualByPersonnelID"

	user, err := e.userInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if user.NIK == "" {
		return 0, ErrNoPersonnelID
	}

	items, err := e.primary.GetActualByNIK(ctx, user.NIK)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	for i := range items {
		items[i].Synced = true
	}

	added, err := e.reports.Merge(ctx, items)
	if err != nil {
		return added, fmt.Errorf("%s: %w", op, err)
	}

	e.touch(ctx, func(m *storage.SyncMeta, t time.Time) { m.LastActualPull = &t })
	e.log.Info("actual reports pulled", slog.String("op", op), slog.Int("received", len(items)), slog.Int("added", added))

	return added, nil
}

func (e *Engine) Meta(ctx context.Context) (storage.SyncMeta, error) {
	m, err := storage.GetJSON[storage.SyncMeta](ctx, e.meta, storage.CollMeta, storage.MetaSyncMeta)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.SyncMeta{}, nil
	}
	return m, err
}

func (e *Engine) userInfo(ctx context.Context) (storage.UserInfo, error) {
	u, err := storage.GetJSON[storage.UserInfo](ctx, e.meta, storage.CollMeta, storage.MetaUserInfo)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.UserInfo{}, nil
	}
	return u, err
}

// touch records a sync timestamp. Failures are logged only.
func (e *Engine) touch(ctx context.Context, set func(m *storage.SyncMeta, t time.Time)) {
	m, err := e.Meta(ctx)
	if err != nil {
		e.log.Warn("cannot read sync meta", slog.String("error", err.Error()))
	}

	set(&m, e.now().UTC())
	if err := storage.PutJSON(ctx, e.meta, storage.CollMeta, storage.MetaSyncMeta, m); err != nil {
		e.log.Warn("cannot save sync meta", slog.String("error", err.Error()))
	}
}
