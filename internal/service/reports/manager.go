package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"agro-report/internal/storage"
)

var ErrReportNotFound = errors.New("report not found")

type Store interface {
	Put(ctx context.Context, coll storage.Collection, key string, value []byte) error
	Delete(ctx context.Context, coll storage.Collection, key string) error
	Clear(ctx context.Context, coll storage.Collection) error
	GetAll(ctx context.Context, coll storage.Collection) ([]storage.Record, error)
}

// Manager keeps the report set in memory and writes every change through to
// the store before the in-memory copy is touched.
type Manager struct {
	store Store
	log   *slog.Logger
	now   func() time.Time

	mu      sync.RWMutex
	reports []storage.Report
	lastID  int64
}

func New(store Store, log *slog.Logger) *Manager {
	return &Manager{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

func (m *Manager) Load(ctx context.Context) error {
	const op = "service.reports.Load"

	records, err := m.store.GetAll(ctx, storage.CollReports)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	all := make([]storage.Report, 0, len(records))
	for _, rec := range records {
		var r storage.Report
		if err := json.Unmarshal(rec.Value, &r); err != nil {
			m.log.Warn("skipping unreadable report", slog.String("op", op), slog.String("key", rec.Key), slog.String("error", err.Error()))
			continue
		}
		if r.ID == "" {
			r.ID = storage.ID(rec.Key)
		}
		all = append(all, r)
	}

	m.mu.Lock()
	m.reports = all
	m.mu.Unlock()

	return nil
}

// Save validates the form and stores a new unsynced report.
func (m *Manager) Save(ctx context.Context, kind storage.Kind, f Fields) (storage.Report, error) {
	const op = "service.reports.Save"

	if !kind.Valid() {
		return storage.Report{}, fmt.Errorf("%s: unknown report type %q: %w", op, kind, ErrValidation)
	}
	if err := f.validate(); err != nil {
		return storage.Report{}, err
	}

	r := f.build(kind)

	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = m.nextIDLocked()
	r.Timestamp = m.now().UTC().Format(time.RFC3339Nano)
	r.Synced = false

	if err := storage.PutJSON(ctx, m.store, storage.CollReports, r.ID.String(), r); err != nil {
		return storage.Report{}, fmt.Errorf("%s: %w", op, err)
	}
	m.reports = append(m.reports, r)

	return r, nil
}

// EditForm is what the form needs to re-enter a report.
type EditForm struct {
	Kind   storage.Kind   `json:"type"`
	Fields Fields         `json:"fields"`
	Report storage.Report `json:"report"`
}

// Edit hands the report back as form fields and removes it from the set and
// the store, so that submitting the form again does not duplicate it.
func (m *Manager) Edit(ctx context.Context, id storage.ID) (EditForm, error) {
	const op = "service.reports.Edit"

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return EditForm{}, fmt.Errorf("%s: %s: %w", op, id, ErrReportNotFound)
	}
	r := m.reports[idx]

	if err := m.store.Delete(ctx, storage.CollReports, id.String()); err != nil {
		return EditForm{}, fmt.Errorf("%s: %w", op, err)
	}
	m.reports = append(m.reports[:idx], m.reports[idx+1:]...)

	return EditForm{Kind: r.Type, Fields: FieldsFrom(r), Report: r}, nil
}

func (m *Manager) Delete(ctx context.Context, id storage.ID) error {
	const op = "service.reports.Delete"

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%s: %s: %w", op, id, ErrReportNotFound)
	}

	if err := m.store.Delete(ctx, storage.CollReports, id.String()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.reports = append(m.reports[:idx], m.reports[idx+1:]...)

	return nil
}

func (m *Manager) ClearAll(ctx context.Context) error {
	const op = "service.reports.ClearAll"

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(ctx, storage.CollReports); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m.reports = nil

	return nil
}

type Filter struct {
	Date string
	Kind storage.Kind
}

// List returns matching reports, newest date first.
func (m *Manager) List(f Filter) []storage.Report {
	m.mu.RLock()
	out := make([]storage.Report, 0, len(m.reports))
	for _, r := range m.reports {
		if f.Date != "" && r.Date != f.Date {
			continue
		}
		if f.Kind != "" && r.Type != f.Kind {
			continue
		}
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// All returns a copy of the report set in insertion order.
func (m *Manager) All() []storage.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]storage.Report, len(m.reports))
	copy(out, m.reports)
	return out
}

func (m *Manager) Get(id storage.ID) (storage.Report, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if idx := m.indexLocked(id); idx >= 0 {
		return m.reports[idx], true
	}
	return storage.Report{}, false
}

func (m *Manager) Has(id storage.ID) bool {
	_, ok := m.Get(id)
	return ok
}

func (m *Manager) Unsynced() []storage.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []storage.Report
	for _, r := range m.reports {
		if !r.Synced {
			out = append(out, r)
		}
	}
	return out
}

// Merge adds reports whose id is not known yet and returns how many were
// added. Reports without an id get a fresh one.
func (m *Manager) Merge(ctx context.Context, incoming []storage.Report) (int, error) {
	const op = "service.reports.Merge"

	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, r := range incoming {
		if r.ID == "" {
			r.ID = m.nextIDLocked()
		}
		if m.indexLocked(r.ID) >= 0 {
			m.log.Debug("report already present, skipped", slog.String("id", r.ID.String()))
			continue
		}
		if r.Timestamp == "" {
			r.Timestamp = m.now().UTC().Format(time.RFC3339Nano)
		}

		if err := storage.PutJSON(ctx, m.store, storage.CollReports, r.ID.String(), r); err != nil {
			return added, fmt.Errorf("%s: %w", op, err)
		}
		m.reports = append(m.reports, r)
		added++
	}

	return added, nil
}

// MarkSynced flips the synced flag of the given ids. Unknown ids are ignored.
// It returns the number of reports that changed.
func (m *Manager) MarkSynced(ctx context.Context, ids []storage.ID) (int, error) {
	const op = "service.reports.MarkSynced"

	m.mu.Lock()
	defer m.mu.Unlock()

	changed := 0
	for _, id := range ids {
		idx := m.indexLocked(id)
		if idx < 0 || m.reports[idx].Synced {
			continue
		}

		r := m.reports[idx]
		r.Synced = true
		if err := storage.PutJSON(ctx, m.store, storage.CollReports, r.ID.String(), r); err != nil {
			return changed, fmt.Errorf("%s: %w", op, err)
		}
		m.reports[idx] = r
		changed++
	}

	return changed, nil
}

type Stats struct {
	Total       int `json:"total"`
	Maintenance int `json:"perawatan"`
	Harvest     int `json:"panen"`
	Unsynced    int `json:"unsynced"`
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{Total: len(m.reports)}
	for _, r := range m.reports {
		switch r.Type {
		case storage.KindMaintenance:
			s.Maintenance++
		case storage.KindHarvest:
			s.Harvest++
		}
		if !r.Synced {
			s.Unsynced++
		}
	}
	return s
}

func (m *Manager) indexLocked(id storage.ID) int {
	for i := range m.reports {
		if m.reports[i].ID == id {
			return i
		}
	}
	return -1
}

// nextIDLocked derives ids from the clock in milliseconds and never hands out
// the same value twice.
func (m *Manager) nextIDLocked() storage.ID {
	ms := m.now().UnixMilli()
	if ms <= m.lastID {
		ms = m.lastID + 1
	}
	for m.indexLocked(storage.ID(strconv.FormatInt(ms, 10))) >= 0 {
		ms++
	}
	m.lastID = ms
	return storage.ID(strconv.FormatInt(ms, 10))
}
