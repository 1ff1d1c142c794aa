package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eddielth/z2mgen/logger"
)

// SQLiteStorage keeps the state history in a local database file.
type SQLiteStorage struct {
	sqlRecorder
	path string
}

// NewSQLiteStorage opens (and creates) the database at dsn, which is either
// a file path or a file: URI.
func NewSQLiteStorage(dsn string) (*SQLiteStorage, error) {
	connStr, path := sqliteConnString(dsn)
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	storage := &SQLiteStorage{
		sqlRecorder: sqlRecorder{db: db, name: "SQLite", placeholder: questionMark},
		path:        path,
	}
	if err := storage.InitDatabase(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite数据库存储初始化成功: %s", dsn)
	return storage, nil
}

func sqliteConnString(dsn string) (connStr, path string) {
	if strings.HasPrefix(dsn, "file:") {
		path, _, _ = strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
		return dsn, path
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL", dsn), dsn
}

// InitDatabase 初始化数据库和表
func (ss *SQLiteStorage) InitDatabase() error {
	schema := `
	CREATE TABLE IF NOT EXISTS device_states (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL,
		device TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		state TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_states_address ON device_states(address);

	CREATE TABLE IF NOT EXISTS state_fields (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		state_id INTEGER NOT NULL REFERENCES device_states(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		value TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_fields_state_id ON state_fields(state_id);
	`
	if _, err := ss.db.Exec(schema); err != nil {
		return fmt.Errorf("创建SQLite表失败: %w", err)
	}
	return nil
}

// Store 将状态存储到SQLite数据库
func (ss *SQLiteStorage) Store(ctx context.Context, rec Record) error {
	return ss.store(ctx, rec)
}

// Close 关闭数据库连接
func (ss *SQLiteStorage) Close() error {
	return ss.close()
}
