package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eddielth/z2mgen/config"
)

func sample() Record {
	return Record{
		Address:   "0x60a423fffef1a847",
		Device:    "pc_room_light",
		Timestamp: time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC),
		State: map[string]any{
			"state":      "ON",
			"brightness": 120,
			"color":      map[string]any{"x": 3, "y": 4},
		},
	}
}

func TestFlatten(t *testing.T) {
	got := Flatten(sample().State)
	want := map[string]any{"state": "ON", "brightness": 120, "color.x": 3, "color.y": 4}
	if len(got) != len(want) {
		t.Fatalf("Flatten() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("Flatten()[%s] = %v, want %v", k, got[k], v)
		}
	}
}

func TestFileStorage(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}

	rec := sample()
	for i := 0; i < 3; i++ {
		if err := fs.Store(context.Background(), rec); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}

	files, err := filepath.Glob(filepath.Join(dir, rec.Address, "*.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 3 {
		t.Fatalf("wrote %d files, want one per update", len(files))
	}

	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatal(err)
	}
	var got Record
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("stored file is not JSON: %v", err)
	}
	if got.Device != rec.Device || got.State["state"] != "ON" {
		t.Fatalf("stored record = %+v", got)
	}
}

func TestSQLiteStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	db, err := NewDatabaseStorage("sqlite", path)
	if err != nil {
		t.Fatalf("NewDatabaseStorage() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Store(ctx, sample()); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	empty := sample()
	empty.State = map[string]any{}
	if err := db.Store(ctx, empty); err != nil {
		t.Fatalf("Store(empty) error = %v", err)
	}

	ss := db.(*SQLiteStorage)
	var states, fields int
	if err := ss.db.QueryRow("SELECT COUNT(*) FROM device_states").Scan(&states); err != nil {
		t.Fatal(err)
	}
	if err := ss.db.QueryRow("SELECT COUNT(*) FROM state_fields").Scan(&fields); err != nil {
		t.Fatal(err)
	}
	if states != 2 || fields != 4 {
		t.Fatalf("rows = %d states, %d fields, want 2, 4", states, fields)
	}

	var value string
	if err := ss.db.QueryRow("SELECT value FROM state_fields WHERE name = 'color.x'").Scan(&value); err != nil {
		t.Fatal(err)
	}
	if value != "3" {
		t.Fatalf("color.x = %s, want 3", value)
	}
}

func TestNewDatabaseStorageUnsupported(t *testing.T) {
	if _, err := NewDatabaseStorage("oracle", "x"); err == nil {
		t.Fatal("NewDatabaseStorage() accepted an unknown type")
	}
}

func TestParseMySQLDSN(t *testing.T) {
	tests := []struct {
		dsn, database, server string
		wantErr               bool
	}{
		{"user:pw@tcp(localhost:3306)/z2m?parseTime=true", "z2m", "user:pw@tcp(localhost:3306)/?parseTime=true", false},
		{"user:pw@tcp(localhost:3306)/z2m", "z2m", "user:pw@tcp(localhost:3306)/", false},
		{"user:pw@tcp(localhost:3306)/", "", "", true},
		{"nodatabase", "", "", true},
	}
	for _, tt := range tests {
		database, server, err := parseMySQLDSN(tt.dsn)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseMySQLDSN(%q) error = %v", tt.dsn, err)
		}
		if database != tt.database || server != tt.server {
			t.Fatalf("parseMySQLDSN(%q) = %q, %q, want %q, %q", tt.dsn, database, server, tt.database, tt.server)
		}
	}
}

func TestParsePostgreSQLDSN(t *testing.T) {
	tests := []struct {
		dsn, database, server string
		wantErr               bool
	}{
		{"postgres://u:p@localhost:5432/z2m?sslmode=disable", "z2m", "postgres://u:p@localhost:5432/postgres?sslmode=disable", false},
		{"host=localhost user=u dbname=z2m sslmode=disable", "z2m", "host=localhost user=u sslmode=disable dbname=postgres", false},
		{"host=localhost user=u", "", "", true},
		{"postgres://localhost", "", "", true},
	}
	for _, tt := range tests {
		database, server, err := parsePostgreSQLDSN(tt.dsn)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parsePostgreSQLDSN(%q) error = %v", tt.dsn, err)
		}
		if database != tt.database || server != tt.server {
			t.Fatalf("parsePostgreSQLDSN(%q) = %q, %q, want %q, %q", tt.dsn, database, server, tt.database, tt.server)
		}
	}
}

func TestSQLiteConnString(t *testing.T) {
	conn, path := sqliteConnString("file:/tmp/x.db?mode=rwc")
	if conn != "file:/tmp/x.db?mode=rwc" || path != "/tmp/x.db" {
		t.Fatalf("sqliteConnString(uri) = %q, %q", conn, path)
	}
	conn, path = sqliteConnString("./data/state.db")
	if path != "./data/state.db" || conn[:len("file:./data/state.db?")] != "file:./data/state.db?" {
		t.Fatalf("sqliteConnString(path) = %q, %q", conn, path)
	}
}

func TestNewPoint(t *testing.T) {
	rec := sample()
	rec.State["update"] = []any{"nested", "list"}
	point := newPoint(rec)
	if point == nil {
		t.Fatal("newPoint() = nil")
	}
	if point.Name() != influxMeasurement {
		t.Fatalf("measurement = %s", point.Name())
	}
	if n := len(point.FieldList()); n != 4 {
		t.Fatalf("fields = %d, want 4", n)
	}
	if n := len(point.TagList()); n != 2 {
		t.Fatalf("tags = %d, want 2", n)
	}

	rec.State = map[string]any{"update": []any{}}
	if newPoint(rec) != nil {
		t.Fatal("newPoint() built a point without fields")
	}
}

type failingBackend struct {
	stored int
	fail   bool
	closed bool
}

func (b *failingBackend) Store(context.Context, Record) error {
	b.stored++
	if b.fail {
		return errors.New("disk full")
	}
	return nil
}

func (b *failingBackend) Close() error {
	b.closed = true
	return nil
}

func TestManagerIsolatesBackendFailures(t *testing.T) {
	bad := &failingBackend{fail: true}
	good := &failingBackend{}
	m := NewManager([]StorageBackend{bad})
	m.AddBackend(good)

	m.Store(context.Background(), sample())
	if bad.stored != 1 || good.stored != 1 {
		t.Fatalf("stored = %d/%d, want 1/1", bad.stored, good.stored)
	}

	m.Close()
	if !bad.closed || !good.closed || m.Len() != 0 {
		t.Fatal("Close() did not close every backend")
	}
}

func TestNewManagerFromConfig(t *testing.T) {
	var cfg config.StorageConfig
	cfg.File.Enabled = true
	cfg.File.Path = t.TempDir()
	cfg.Database.Enabled = true
	cfg.Database.Type = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "state.db")

	m, err := NewManagerFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewManagerFromConfig() error = %v", err)
	}
	defer m.Close()
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}

	cfg.Database.Type = "oracle"
	if _, err := NewManagerFromConfig(cfg); err == nil {
		t.Fatal("NewManagerFromConfig() accepted an unknown database type")
	}
}
