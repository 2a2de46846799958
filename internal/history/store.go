package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) SaveSnapshot(snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %d", snapshot.SchemaVersion)
	}

	commitTS := ""
	if !snapshot.CommitTimestamp.IsZero() {
		commitTS = snapshot.CommitTimestamp.UTC().Format(time.RFC3339Nano)
	}

	query := `
INSERT INTO runs (
  schema_version, ts_utc, commit_hash, commit_ts_utc, module_count, file_count,
  changed_count, impacted_count, warning_count, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ts_utc, commit_hash) DO UPDATE SET
  schema_version=excluded.schema_version,
  commit_ts_utc=excluded.commit_ts_utc,
  module_count=excluded.module_count,
  file_count=excluded.file_count,
  changed_count=excluded.changed_count,
  impacted_count=excluded.impacted_count,
  warning_count=excluded.warning_count,
  duration_ms=excluded.duration_ms
`
	_, err := s.db.Exec(query,
		snapshot.SchemaVersion,
		snapshot.Timestamp.UTC().Format(time.RFC3339Nano),
		snapshot.CommitHash,
		commitTS,
		snapshot.ModuleCount,
		snapshot.FileCount,
		snapshot.ChangedCount,
		snapshot.ImpactedCount,
		snapshot.WarningCount,
		snapshot.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert run snapshot: %w", err)
	}
	return nil
}

// LoadSnapshots returns runs since the cutoff, oldest first.
func (s *Store) LoadSnapshots(since time.Time) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
SELECT schema_version, ts_utc, commit_hash, commit_ts_utc, module_count, file_count,
       changed_count, impacted_count, warning_count, duration_ms
FROM runs
WHERE ts_utc >= ?
ORDER BY ts_utc ASC
`, since.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("query run snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var snap Snapshot
		var ts, commitTS string
		if err := rows.Scan(
			&snap.SchemaVersion, &ts, &snap.CommitHash, &commitTS,
			&snap.ModuleCount, &snap.FileCount, &snap.ChangedCount,
			&snap.ImpactedCount, &snap.WarningCount, &snap.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("scan run snapshot: %w", err)
		}
		if snap.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", ts, err)
		}
		if commitTS != "" {
			if snap.CommitTimestamp, err = time.Parse(time.RFC3339Nano, commitTS); err != nil {
				return nil, fmt.Errorf("parse commit timestamp %q: %w", commitTS, err)
			}
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}
