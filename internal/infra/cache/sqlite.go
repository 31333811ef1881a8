// Package cache stores the last library scan in SQLite so tracks can be
// listed without walking the source again.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"
)

const (
	// CurrentSchemaVersion is bumped whenever the tracks table changes.
	CurrentSchemaVersion = "3"

	// DefaultDBPath is used when NewDB is given an empty path.
	DefaultDBPath = "data/library.db"
)

// Keys in cache_meta.
const (
	metaSchemaVersion = "schema_version"
	metaLastFullBuild = "last_full_build"
	metaLastUpdated   = "last_updated"
)

// ErrNotOpen is returned by operations on a closed database.
var ErrNotOpen = errors.New("database not open")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tracks (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	artist TEXT NOT NULL,
	audio_source TEXT NOT NULL UNIQUE,
	artwork_source TEXT,
	duration_ms INTEGER DEFAULT 0,
	created_at TEXT DEFAULT CURRENT_TIMESTAMP,
	updated_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS cache_meta (
	key TEXT PRIMARY KEY,
	value TEXT,
	updated_at TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_tracks_title ON tracks(title COLLATE NOCASE);
`

// DB is the snapshot database. It is safe for concurrent use; SQLite writes
// are serialized over a single connection.
type DB struct {
	path string

	mu       sync.RWMutex
	conn     *sql.DB
	building bool
	progress int
}

// NewDB returns an unopened database at path.
func NewDB(path string) *DB {
	if path == "" {
		path = DefaultDBPath
	}
	return &DB{path: path}
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Open creates the parent directory, opens the file in WAL mode and brings
// the schema to CurrentSchemaVersion.
func (d *DB) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", d.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := migrate(conn); err != nil {
		conn.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	d.conn = conn

	log.Info().Str("path", d.path).Msg("Cache database opened")
	return nil
}

// migrate creates the schema on a fresh file. An older snapshot is dropped
// and rebuilt on the next refresh.
func migrate(conn *sql.DB) error {
	version, _ := readMeta(conn, metaSchemaVersion)
	if version == CurrentSchemaVersion {
		return nil
	}

	if version != "" {
		log.Info().Str("current", version).Str("target", CurrentSchemaVersion).Msg("Discarding outdated cache schema")
		if _, err := conn.Exec("DROP TABLE IF EXISTS tracks"); err != nil {
			return fmt.Errorf("failed to drop tracks: %w", err)
		}
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return writeMeta(conn, metaSchemaVersion, CurrentSchemaVersion)
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func writeMeta(x execer, key, value string) error {
	_, err := x.Exec(`
		INSERT INTO cache_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Format(time.RFC3339))
	return err
}

// readMeta returns "" for a missing key or a missing cache_meta table.
func readMeta(q queryer, key string) (string, error) {
	var value string
	err := q.QueryRow("SELECT value FROM cache_meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func readMetaTime(q queryer, key string) time.Time {
	v, _ := readMeta(q, key)
	t, _ := time.Parse(time.RFC3339, v)
	return t
}

// Close closes the database. Closing twice is a no-op.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// GetStats counts the cached tracks and reports build state.
func (d *DB) GetStats() (*CacheStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.conn == nil {
		return nil, ErrNotOpen
	}

	stats := &CacheStats{IsBuilding: d.building, BuildProgress: d.progress}
	row := d.conn.QueryRow(`
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE artwork_source IS NULL OR artwork_source = '')
		FROM tracks`)
	if err := row.Scan(&stats.TrackCount, &stats.ArtworkMissing); err != nil {
		return nil, err
	}

	stats.SchemaVersion, _ = readMeta(d.conn, metaSchemaVersion)
	stats.LastFullBuild = readMetaTime(d.conn, metaLastFullBuild)
	stats.LastUpdated = readMetaTime(d.conn, metaLastUpdated)
	return stats, nil
}

// SetBuildingState records build progress (0-100) reported by GetStats.
func (d *DB) SetBuildingState(building bool, progress int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.building = building
	d.progress = progress
}

// IsBuilding reports whether a build is in progress.
func (d *DB) IsBuilding() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.building
}

// BeginTx starts a transaction on the single connection.
func (d *DB) BeginTx() (*sql.Tx, error) {
	conn := d.DB()
	if conn == nil {
		return nil, ErrNotOpen
	}
	return conn.Begin()
}

// Clear deletes every cached track, keeping the schema.
func (d *DB) Clear() error {
	conn := d.DB()
	if conn == nil {
		return ErrNotOpen
	}

	if _, err := conn.Exec("DELETE FROM tracks"); err != nil {
		return fmt.Errorf("failed to clear tracks: %w", err)
	}
	if err := writeMeta(conn, metaLastUpdated, time.Now().Format(time.RFC3339)); err != nil {
		return err
	}

	log.Info().Msg("Cache cleared")
	return nil
}

// MarkBuildComplete stamps the full-build and update times.
func (d *DB) MarkBuildComplete() error {
	conn := d.DB()
	if conn == nil {
		return ErrNotOpen
	}

	now := time.Now().Format(time.RFC3339)
	if err := writeMeta(conn, metaLastFullBuild, now); err != nil {
		return err
	}
	return writeMeta(conn, metaLastUpdated, now)
}

// DB returns the underlying connection, or nil when closed.
func (d *DB) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.conn
}
