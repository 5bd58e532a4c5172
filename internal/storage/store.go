package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

type Collection string

const (
	CollMeta          Collection = "meta"
	CollReports       Collection = "reports"
	CollMasterActType Collection = "actTypesMaster"
	CollCustomActType Collection = "actTypesCustom"
)

var Collections = []Collection{CollMeta, CollReports, CollMasterActType, CollCustomActType}

type Record struct {
	Key   string
	Value []byte
}

// Store is the durable local store shared by every component. Implementations
// live in storage/sqldb and storage/redis.
type Store interface {
	Get(ctx context.Context, coll Collection, key string) ([]byte, error)
	Put(ctx context.Context, coll Collection, key string, value []byte) error
	Delete(ctx context.Context, coll Collection, key string) error
	Clear(ctx context.Context, coll Collection) error
	GetAll(ctx context.Context, coll Collection) ([]Record, error)
	ReplaceAll(ctx context.Context, coll Collection, records []Record) error
}

type Getter interface {
	Get(ctx context.Context, coll Collection, key string) ([]byte, error)
}

type Putter interface {
	Put(ctx context.Context, coll Collection, key string, value []byte) error
}

type Lister interface {
	GetAll(ctx context.Context, coll Collection) ([]Record, error)
}

func PutJSON[T any](ctx context.Context, s Putter, coll Collection, key string, v T) error {
	const op = "storage.PutJSON"

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: encode %s/%s: %w", op, coll, key, err)
	}
	return s.Put(ctx, coll, key, data)
}

// GetJSON returns ErrNotFound (wrapped) when the key is missing.
func GetJSON[T any](ctx context.Context, s Getter, coll Collection, key string) (T, error) {
	const op = "storage.GetJSON"

	var v T
	data, err := s.Get(ctx, coll, key)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%s: decode %s/%s: %w", op, coll, key, err)
	}
	return v, nil
}

func GetAllJSON[T any](ctx context.Context, s Lister, coll Collection) ([]T, error) {
	const op = "storage.GetAllJSON"

	records, err := s.GetAll(ctx, coll)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		var v T
		if err := json.Unmarshal(rec.Value, &v); err != nil {
			return nil, fmt.Errorf("%s: decode %s/%s: %w", op, coll, rec.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// EncodeRecords turns values into records keyed by keyFn, for ReplaceAll.
func EncodeRecords[T any](values []T, keyFn func(T) string) ([]Record, error) {
	const op = "storage.EncodeRecords"

	out := make([]Record, 0, len(values))
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, Record{Key: keyFn(v), Value: data})
	}
	return out, nil
}
