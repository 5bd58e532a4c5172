package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-redis/redis/v8"

	"agro-report/internal/config"
	"agro-report/internal/storage"
)

// Storage keeps each collection in one hash named prefix+collection.
type Storage struct {
	client *redis.Client
	prefix string
}

func New(ctx context.Context, cfg config.Storage) (*Storage, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: ping %s: %w", op, cfg.RedisAddr, err)
	}

	return NewWithClient(client, cfg.RedisPrefix), nil
}

func NewWithClient(client *redis.Client, prefix string) *Storage {
	return &Storage{client: client, prefix: prefix}
}

func (s *Storage) hash(coll storage.Collection) string {
	return s.prefix + string(coll)
}

func (s *Storage) Get(ctx context.Context, coll storage.Collection, key string) ([]byte, error) {
	const op = "storage.redis.Get"

	val, err := s.client.HGet(ctx, s.hash(coll), key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %s/%s: %w", op, coll, key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %s/%s: %w", op, coll, key, err)
	}

	return val, nil
}

func (s *Storage) Put(ctx context.Context, coll storage.Collection, key string, value []byte) error {
	const op = "storage.redis.Put"

	if err := s.client.HSet(ctx, s.hash(coll), key, value).Err(); err != nil {
		return fmt.Errorf("%s: %s/%s: %w", op, coll, key, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, coll storage.Collection, key string) error {
	const op = "storage.redis.Delete"

	if err := s.client.HDel(ctx, s.hash(coll), key).Err(); err != nil {
		return fmt.Errorf("%s: %s/%s: %w", op, coll, key, err)
	}
	return nil
}

func (s *Storage) Clear(ctx context.Context, coll storage.Collection) error {
	const op = "storage.redis.Clear"

	if err := s.client.Del(ctx, s.hash(coll)).Err(); err != nil {
		return fmt.Errorf("%s: %s: %w", op, coll, err)
	}
	return nil
}

// GetAll returns the records ordered by key, like the SQL store.
func (s *Storage) GetAll(ctx context.Context, coll storage.Collection) ([]storage.Record, error) {
	const op = "storage.redis.GetAll"

	m, err := s.client.HGetAll(ctx, s.hash(coll)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, coll, err)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]storage.Record, 0, len(keys))
	for _, k := range keys {
		records = append(records, storage.Record{Key: k, Value: []byte(m[k])})
	}

	return records, nil
}

func (s *Storage) ReplaceAll(ctx context.Context, coll storage.Collection, records []storage.Record) error {
	const op = "storage.redis.ReplaceAll"

	hash := s.hash(coll)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, hash)
		if len(records) == 0 {
			return nil
		}

		values := make([]interface{}, 0, len(records)*2)
		for _, rec := range records {
			values = append(values, rec.Key, rec.Value)
		}
		pipe.HSet(ctx, hash, values...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %s: %w", op, coll, err)
	}

	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}
