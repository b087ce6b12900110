package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"sweep/internal/config"
	"sweep/internal/logging"
	"sweep/internal/scanio"
)

// probeFunc allows tests to stub scan-file inspection.
type probeFunc func(path string) (scanio.Meta, error)

// Store manages the scan catalog backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	probe  probeFunc
	logger *slog.Logger
}

// Scan is one cataloged volume-scan file.
type Scan struct {
	ID       int64
	Path     string
	ScanTime time.Time // zero when the file carries no timestamp
	Layers   int
	Rows     int
	Cols     int
	AddedAt  time.Time
}

// HasScanTime reports whether the cataloged file carried a timestamp.
func (s Scan) HasScanTime() bool { return !s.ScanTime.IsZero() }

// Open initializes or connects to the catalog database and applies the schema.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Paths.CatalogPath
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   dbPath,
		probe:  scanio.Probe,
		logger: logging.NewComponentLogger(logger, "catalog"),
	}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS scans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    scan_time TEXT,
    layers INTEGER NOT NULL,
    rows INTEGER NOT NULL,
    cols INTEGER NOT NULL,
    added_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scans_scan_time ON scans(scan_time);
`

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Rebuild reindexes every scan file under dir, replacing the previous
// contents. Files that fail to parse are skipped with a warning. The rebuild
// is guarded by a file lock so concurrent invocations do not interleave.
func (s *Store) Rebuild(ctx context.Context, dir string) (int, error) {
	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("catalog lock: %w", err)
	}
	if !locked {
		return 0, fmt.Errorf("catalog at %s is locked by another process", s.path)
	}
	defer lock.Unlock() //nolint:errcheck

	paths, err := listScanFiles(dir)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM scans`); err != nil {
		return 0, fmt.Errorf("clear catalog: %w", err)
	}

	added := 0
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, path := range paths {
		meta, err := s.probe(path)
		if err != nil {
			s.logger.Warn("skipping unreadable scan file",
				logging.String("path", path),
				logging.Error(err),
			)
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scans (path, scan_time, layers, rows, cols, added_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			path, nullableTime(meta.ScanTime), meta.Layers, meta.Rows, meta.Cols, now,
		); err != nil {
			return 0, fmt.Errorf("insert scan %q: %w", path, err)
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rebuild: %w", err)
	}
	s.logger.Info("catalog rebuilt",
		logging.String("dir", dir),
		logging.Int("scans", added),
	)
	return added, nil
}

// List returns all cataloged scans ordered by scan time, untimed files last.
func (s *Store) List(ctx context.Context) ([]Scan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, scan_time, layers, rows, cols, added_at
         FROM scans
         ORDER BY scan_time IS NULL, scan_time, path`)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var scans []Scan
	for rows.Next() {
		var (
			scan     Scan
			scanTime sql.NullString
			addedAt  string
		)
		if err := rows.Scan(&scan.ID, &scan.Path, &scanTime, &scan.Layers, &scan.Rows, &scan.Cols, &addedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if scanTime.Valid {
			t, err := time.Parse(time.RFC3339Nano, scanTime.String)
			if err != nil {
				return nil, fmt.Errorf("parse scan_time %q: %w", scanTime.String, err)
			}
			scan.ScanTime = t
		}
		if t, err := time.Parse(time.RFC3339Nano, addedAt); err == nil {
			scan.AddedAt = t
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// Paths returns the cataloged file paths in playback order.
func (s *Store) Paths(ctx context.Context) ([]string, error) {
	scans, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(scans))
	for _, scan := range scans {
		paths = append(paths, scan.Path)
	}
	return paths, nil
}

// Count returns the number of cataloged scans.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return n, nil
}

func listScanFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list scan dir %q: %w", dir, err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
