package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agro-report/internal/storage"
)

func (s *Storage) Get(ctx context.Context, coll storage.Collection, key string) ([]byte, error) {
	const op = "storage.sqldb.Get"

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM agro_records WHERE collection = ? AND record_key = ?`,
		string(coll), key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %s/%s: %w", op, coll, key, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %s/%s: %w", op, coll, key, err)
	}

	return []byte(value), nil
}

func (s *Storage) Put(ctx context.Context, coll storage.Collection, key string, value []byte) error {
	const op = "storage.sqldb.Put"

	_, err := s.db.ExecContext(ctx,
		`REPLACE INTO agro_records (collection, record_key, value, updated_at) VALUES (?, ?, ?, ?)`,
		string(coll), key, string(value), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%s: %s/%s: %w", op, coll, key, err)
	}

	return nil
}

func (s *Storage) Delete(ctx context.Context, coll storage.Collection, key string) error {
	const op = "storage.sqldb.Delete"

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM agro_records WHERE collection = ? AND record_key = ?`,
		string(coll), key,
	)
	if err != nil {
		return fmt.Errorf("%s: %s/%s: %w", op, coll, key, err)
	}

	return nil
}

func (s *Storage) Clear(ctx context.Context, coll storage.Collection) error {
	const op = "storage.sqldb.Clear"

	if _, err := s.db.ExecContext(ctx, `DELETE FROM agro_records WHERE collection = ?`, string(coll)); err != nil {
		return fmt.Errorf("%s: %s: %w", op, coll, err)
	}

	return nil
}

func (s *Storage) GetAll(ctx context.Context, coll storage.Collection) ([]storage.Record, error) {
	const op = "storage.sqldb.GetAll"

	rows, err := s.db.QueryContext(ctx,
		`SELECT record_key, value FROM agro_records WHERE collection = ? ORDER BY record_key`,
		string(coll),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, coll, err)
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		var (
			key   string
			value string
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%s: scan %s: %w", op, coll, err)
		}
		records = append(records, storage.Record{Key: key, Value: []byte(value)})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate %s: %w", op, coll, err)
	}

	return records, nil
}

// ReplaceAll clears the collection and inserts records in one transaction.
func (s *Storage) ReplaceAll(ctx context.Context, coll storage.Collection, records []storage.Record) error {
	const op = "storage.sqldb.ReplaceAll"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin transaction: %w", op, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM agro_records WHERE collection = ?`, string(coll)); err != nil {
		return fmt.Errorf("%s: clear %s: %w", op, coll, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`REPLACE INTO agro_records (collection, record_key, value, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%s: prepare insert: %w", op, err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, string(coll), rec.Key, string(rec.Value), now); err != nil {
			return fmt.Errorf("%s: insert %s/%s: %w", op, coll, rec.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit transaction: %w", op, err)
	}

	return nil
}
