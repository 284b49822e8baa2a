package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type kvRow struct {
	bun.BaseModel `bun:"table:kv_store"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SQLBackend stores keys in a single kv_store table.
type SQLBackend struct {
	Bun *bun.DB
}

// OpenSQLite opens (or creates) a SQLite database at path and ensures the
// kv_store table exists. ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLBackend, error) {
	dsn := "file:" + path
	memory := path == ":memory:"
	if memory {
		dsn = "file::memory:"
	} else if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	if memory {
		// Every connection to :memory: is a separate database.
		sqldb.SetMaxOpenConns(1)
	}
	b := &SQLBackend{Bun: bun.NewDB(sqldb, sqlitedialect.New())}
	if err := b.Migrate(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

// Migrate creates the kv_store table if missing.
func (b *SQLBackend) Migrate(ctx context.Context) error {
	_, err := b.Bun.NewCreateTable().
		Model((*kvRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: create kv_store: %w", err)
	}
	return nil
}

func (b *SQLBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var row kvRow
	err := b.Bun.NewSelect().
		Model(&row).
		Where(`"key" = ?`, key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: select %s: %w", key, err)
	}
	return []byte(row.Value), nil
}

func (b *SQLBackend) Put(ctx context.Context, key string, value []byte) error {
	row := kvRow{Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}
	_, err := b.Bun.NewInsert().
		Model(&row).
		On(`CONFLICT ("key") DO UPDATE`).
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: upsert %s: %w", key, err)
	}
	return nil
}

func (b *SQLBackend) Close() error {
	return b.Bun.Close()
}
