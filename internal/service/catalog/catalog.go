package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"agro-report/internal/storage"
)

var (
	ErrInvalidActivityType   = errors.New("activity type needs a category, a code and a description")
	ErrDuplicateActivityType = errors.New("activity type code already exists")
	ErrUnknownActivityType   = errors.New("activity type not found")
)

type Store interface {
	Put(ctx context.Context, coll storage.Collection, key string, value []byte) error
	Delete(ctx context.Context, coll storage.Collection, key string) error
	GetAll(ctx context.Context, coll storage.Collection) ([]storage.Record, error)
	ReplaceAll(ctx context.Context, coll storage.Collection, records []storage.Record) error
}

// Defaults are written to the custom catalog on application reset.
var Defaults = []storage.ActivityType{
	{Category: storage.KindMaintenance, Code: "TMPM01", Desc: "Pemupukan manual", Job: "Pemupukan"},
	{Category: storage.KindMaintenance, Code: "TMPM02", Desc: "Penyemprotan manual", Job: "Penyemprotan"},
	{Category: storage.KindMaintenance, Code: "TMPM03", Desc: "Pemangkasan manual", Job: "Pemangkasan"},
	{Category: storage.KindMaintenance, Code: "TMPM04", Desc: "Penyiangan manual", Job: "Penyiangan"},
	{Category: storage.KindHarvest, Code: "PNKT01", Desc: "Panen", Job: "Panen"},
	{Category: storage.KindHarvest, Code: "PNKT02", Desc: "Transport", Job: "Transport"},
}

// Resolver merges the master catalog pulled from the sheet with the custom
// catalog kept by the user. Custom entries win on (category, code) collisions.
// Every mutation is written to the store before the in-memory copy changes.
type Resolver struct {
	store Store

	mu     sync.RWMutex
	master map[string]storage.ActivityType
	custom map[string]storage.ActivityType
}

func New(store Store) *Resolver {
	return &Resolver{
		store:  store,
		master: make(map[string]storage.ActivityType),
		custom: make(map[string]storage.ActivityType),
	}
}

func (r *Resolver) Load(ctx context.Context) error {
	const op = "service.catalog.Load"

	master, err := storage.GetAllJSON[storage.ActivityType](ctx, r.store, storage.CollMasterActType)
	if err != nil {
		return fmt.Errorf("%s: master: %w", op, err)
	}
	custom, err := storage.GetAllJSON[storage.ActivityType](ctx, r.store, storage.CollCustomActType)
	if err != nil {
		return fmt.Errorf("%s: custom: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.master = index(master)
	r.custom = index(custom)
	return nil
}

// Pool returns one entry per code for the category, sorted by code.
func (r *Resolver) Pool(category storage.Kind) []storage.ActivityType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	merged := make(map[string]storage.ActivityType)
	for _, a := range r.master {
		if a.Category == category {
			merged[a.Code] = a
		}
	}
	for _, a := range r.custom {
		if a.Category == category {
			merged[a.Code] = a
		}
	}

	out := make([]storage.ActivityType, 0, len(merged))
	for _, a := range merged {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })

	return out
}

// Lookup matches the code case-insensitively.
func (r *Resolver) Lookup(category storage.Kind, code string) (storage.ActivityType, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return storage.ActivityType{}, false
	}

	for _, a := range r.Pool(category) {
		if strings.EqualFold(a.Code, code) {
			return a, true
		}
	}
	return storage.ActivityType{}, false
}

// AutofillJob returns the job text for the selected code. A non-empty job is
// returned untouched.
func (r *Resolver) AutofillJob(category storage.Kind, code, job string) string {
	if strings.TrimSpace(job) != "" {
		return job
	}

	a, ok := r.Lookup(category, code)
	if !ok {
		return job
	}
	if a.Job != "" {
		return a.Job
	}
	return a.Desc
}

func (r *Resolver) AddCustom(ctx context.Context, a storage.ActivityType) (storage.ActivityType, error) {
	const op = "service.catalog.AddCustom"

	a.Code = strings.ToUpper(strings.TrimSpace(a.Code))
	a.Desc = strings.TrimSpace(a.Desc)
	a.Job = strings.TrimSpace(a.Job)
	if !a.Category.Valid() || a.Code == "" || a.Desc == "" {
		return a, ErrInvalidActivityType
	}

	r.mu.RLock()
	_, exists := r.custom[a.Key()]
	r.mu.RUnlock()
	if exists {
		return a, fmt.Errorf("%s: %s %s: %w", op, a.Category, a.Code, ErrDuplicateActivityType)
	}

	if err := storage.PutJSON(ctx, r.store, storage.CollCustomActType, a.Key(), a); err != nil {
		return a, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	r.custom[a.Key()] = a
	r.mu.Unlock()

	return a, nil
}

func (r *Resolver) RemoveCustom(ctx context.Context, category storage.Kind, code string) error {
	const op = "service.catalog.RemoveCustom"

	key := storage.ActivityTypeKey(category, strings.ToUpper(strings.TrimSpace(code)))

	r.mu.RLock()
	_, exists := r.custom[key]
	r.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%s: %s: %w", op, key, ErrUnknownActivityType)
	}

	if err := r.store.Delete(ctx, storage.CollCustomActType, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	delete(r.custom, key)
	r.mu.Unlock()

	return nil
}

// ReplaceMaster swaps the whole master catalog. Codes are upper-cased like
// custom ones. Items without category or code are skipped, and of two items
// with the same key the first wins. The number kept is returned.
func (r *Resolver) ReplaceMaster(ctx context.Context, items []storage.ActivityType) (int, error) {
	const op = "service.catalog.ReplaceMaster"

	kept := make([]storage.ActivityType, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, a := range items {
		a.Code = strings.ToUpper(strings.TrimSpace(a.Code))
		if !a.Category.Valid() || a.Code == "" || seen[a.Key()] {
			continue
		}
		seen[a.Key()] = true
		kept = append(kept, a)
	}

	records, err := storage.EncodeRecords(kept, storage.ActivityType.Key)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := r.store.ReplaceAll(ctx, storage.CollMasterActType, records); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	r.master = index(kept)
	r.mu.Unlock()

	return len(kept), nil
}

// SeedDefaults replaces the custom catalog with Defaults.
func (r *Resolver) SeedDefaults(ctx context.Context) error {
	const op = "service.catalog.SeedDefaults"

	records, err := storage.EncodeRecords(Defaults, storage.ActivityType.Key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := r.store.ReplaceAll(ctx, storage.CollCustomActType, records); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	r.custom = index(Defaults)
	r.mu.Unlock()

	return nil
}

func (r *Resolver) MasterCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.master)
}

// Forget drops the in-memory catalogs after the store was wiped.
func (r *Resolver) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.master = make(map[string]storage.ActivityType)
	r.custom = make(map[string]storage.ActivityType)
}

func index(items []storage.ActivityType) map[string]storage.ActivityType {
	m := make(map[string]storage.ActivityType, len(items))
	for _, a := range items {
		m[a.Key()] = a
	}
	return m
}
