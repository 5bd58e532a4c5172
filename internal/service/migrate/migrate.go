package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"agro-report/internal/storage"
)

// Keys of the flat browser format, kept as raw JSON in the meta collection
// until migrated.
const (
	LegacyReports    = "klp1AgroReports"
	LegacyUserInfo   = "klp1AgroUserInfo"
	LegacyLastInputs = "klp1AgroLastInputs"
	LegacyActTyps    = "klp1AgroActTyps"
)

var LegacyKeys = []string{LegacyReports, LegacyUserInfo, LegacyLastInputs, LegacyActTyps}

type Store interface {
	Get(ctx context.Context, coll storage.Collection, key string) ([]byte, error)
	Put(ctx context.Context, coll storage.Collection, key string, value []byte) error
	Delete(ctx context.Context, coll storage.Collection, key string) error
}

type Result struct {
	Reports        int
	SkippedReports int
	CustomActTypes int
	UserInfo       bool
	LastInputs     bool
	RemovedKeys    []string
}

func (r Result) Migrated() bool {
	return len(r.RemovedKeys) > 0
}

type legacyActTyps map[storage.Kind][]struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Job  string `json:"job"`
}

// Run converts the legacy flat keys into the collections and removes them.
// Without legacy keys it does nothing. Records that already exist are never
// overwritten, so running it again after a partial failure is safe.
func Run(ctx context.Context, s Store) (Result, error) {
	const op = "service.migrate.Run"

	var res Result

	raw := make(map[string][]byte, len(LegacyKeys))
	for _, key := range LegacyKeys {
		val, err := s.Get(ctx, storage.CollMeta, key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return res, fmt.Errorf("%s: read %s: %w", op, key, err)
		}
		raw[key] = val
	}

	if len(raw) == 0 {
		return res, nil
	}

	if val, ok := raw[LegacyReports]; ok {
		n, skipped, err := migrateReports(ctx, s, val)
		if err != nil {
			return res, fmt.Errorf("%s: %w", op, err)
		}
		res.Reports, res.SkippedReports = n, skipped
	}

	if val, ok := raw[LegacyUserInfo]; ok {
		copied, err := copyMeta(ctx, s, storage.MetaUserInfo, val)
		if err != nil {
			return res, fmt.Errorf("%s: user info: %w", op, err)
		}
		res.UserInfo = copied
	}

	if val, ok := raw[LegacyLastInputs]; ok {
		copied, err := copyMeta(ctx, s, storage.MetaLastInputs, val)
		if err != nil {
			return res, fmt.Errorf("%s: last inputs: %w", op, err)
		}
		res.LastInputs = copied
	}

	if val, ok := raw[LegacyActTyps]; ok {
		n, err := migrateActTyps(ctx, s, val)
		if err != nil {
			return res, fmt.Errorf("%s: %w", op, err)
		}
		res.CustomActTypes = n
	}

	for _, key := range LegacyKeys {
		if _, ok := raw[key]; !ok {
			continue
		}
		if err := s.Delete(ctx, storage.CollMeta, key); err != nil {
			return res, fmt.Errorf("%s: remove %s: %w", op, key, err)
		}
		res.RemovedKeys = append(res.RemovedKeys, key)
	}

	return res, nil
}

func migrateReports(ctx context.Context, s Store, val []byte) (int, int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(val, &items); err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", LegacyReports, err)
	}

	added, skipped := 0, 0
	for _, item := range items {
		// stored in the normalised form so that loading never trips on it
		var r storage.Report
		if err := json.Unmarshal(item, &r); err != nil || r.ID == "" {
			skipped++
			continue
		}

		exists, err := has(ctx, s, storage.CollReports, r.ID.String())
		if err != nil {
			return added, skipped, err
		}
		if exists {
			skipped++
			continue
		}

		if err := storage.PutJSON(ctx, s, storage.CollReports, r.ID.String(), r); err != nil {
			return added, skipped, fmt.Errorf("copy report %s: %w", r.ID, err)
		}
		added++
	}

	return added, skipped, nil
}

func migrateActTyps(ctx context.Context, s Store, val []byte) (int, error) {
	var legacy legacyActTyps
	if err := json.Unmarshal(val, &legacy); err != nil {
		return 0, fmt.Errorf("decode %s: %w", LegacyActTyps, err)
	}

	n := 0
	for _, kind := range []storage.Kind{storage.KindMaintenance, storage.KindHarvest} {
		for _, a := range legacy[kind] {
			code := strings.TrimSpace(a.Code)
			if code == "" {
				continue
			}
			at := storage.ActivityType{Category: kind, Code: code, Desc: a.Desc, Job: a.Job}

			exists, err := has(ctx, s, storage.CollCustomActType, at.Key())
			if err != nil {
				return n, err
			}
			if exists {
				continue
			}

			if err := storage.PutJSON(ctx, s, storage.CollCustomActType, at.Key(), at); err != nil {
				return n, fmt.Errorf("custom activity type %s: %w", at.Key(), err)
			}
			n++
		}
	}

	return n, nil
}

func copyMeta(ctx context.Context, s Store, key string, val []byte) (bool, error) {
	exists, err := has(ctx, s, storage.CollMeta, key)
	if err != nil || exists {
		return false, err
	}
	if !json.Valid(val) {
		return false, fmt.Errorf("legacy value for %s is not JSON", key)
	}
	if err := s.Put(ctx, storage.CollMeta, key, val); err != nil {
		return false, err
	}
	return true, nil
}

func has(ctx context.Context, s Store, coll storage.Collection, key string) (bool, error) {
	_, err := s.Get(ctx, coll, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// SeedLegacyDump writes a browser localStorage dump (a JSON object of key to
// stringified value) into the legacy keys so that Run picks it up. Unknown
// keys are ignored.
func SeedLegacyDump(ctx context.Context, s Store, path string) (int, error) {
	const op = "service.migrate.SeedLegacyDump"

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var dump map[string]json.RawMessage
	if err := json.Unmarshal(data, &dump); err != nil {
		return 0, fmt.Errorf("%s: decode %s: %w", op, path, err)
	}

	n := 0
	for _, key := range LegacyKeys {
		val, ok := dump[key]
		if !ok {
			continue
		}

		// localStorage values are strings holding JSON
		var inner string
		if err := json.Unmarshal(val, &inner); err == nil {
			val = json.RawMessage(inner)
		}
		if !json.Valid(val) {
			return n, fmt.Errorf("%s: %s is not JSON", op, key)
		}

		if err := s.Put(ctx, storage.CollMeta, key, val); err != nil {
			return n, fmt.Errorf("%s: %w", op, err)
		}
		n++
	}

	return n, nil
}
