package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"agro-report/internal/config"
)

// Storage keeps every collection in a single table keyed by
// (collection, record_key). The queries are shared by the sqlite and mysql
// drivers, only the table definition differs.
type Storage struct {
	db     *sql.DB
	driver string
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS agro_records (
	collection VARCHAR(64)  NOT NULL,
	record_key VARCHAR(191) NOT NULL,
	value      MEDIUMTEXT   NOT NULL,
	updated_at BIGINT       NOT NULL,
	PRIMARY KEY (collection, record_key)
)`

// Keys are compared byte for byte on mysql as they are on sqlite.
const mysqlSchema = `
CREATE TABLE IF NOT EXISTS agro_records (
	collection VARCHAR(64)  CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
	record_key VARCHAR(191) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
	value      MEDIUMTEXT   NOT NULL,
	updated_at BIGINT       NOT NULL,
	PRIMARY KEY (collection, record_key)
) DEFAULT CHARSET=utf8mb4`

func schema(driver string) string {
	if driver == "mysql" {
		return mysqlSchema
	}
	return sqliteSchema
}

func New(ctx context.Context, cfg config.Storage) (*Storage, error) {
	const op = "storage.sqldb.New"

	var driver string
	switch cfg.Driver {
	case "sqlite", "":
		driver = "sqlite"
	case "mysql":
		driver = "mysql"
	default:
		return nil, fmt.Errorf("%s: unsupported driver %q", op, cfg.Driver)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// one writer keeps sqlite away from SQLITE_BUSY and keeps :memory: databases alive
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	s := &Storage{db: db, driver: driver}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

// NewWithDB wraps an already opened database. The schema is not created;
// Migrate creates the sqlite flavour of it.
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.sqldb.Migrate"

	if _, err := s.db.ExecContext(ctx, schema(s.driver)); err != nil {
		return fmt.Errorf("%s: create agro_records: %w", op, err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
