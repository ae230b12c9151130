package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"sysdash/internal/monitoring"
)

// DefaultLimit caps Samples when the caller passes no limit.
const DefaultLimit = 1000

// Point is one stored sample of a metric.
type Point struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// Store persists snapshot samples in SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// EnsureDB는 데이터베이스 파일의 디렉토리가 존재하는지 확인합니다.
func EnsureDB(path string) error {
	if path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Open opens (and if needed creates) the sample database at path. ":memory:"
// opens a private in-memory database.
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if err := EnsureDB(path); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite는 단일 writer; in-memory DB는 연결마다 별도이므로 하나로 고정
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Infow("history database ready", "path", path)
	return &Store{db: db, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collected_at INTEGER NOT NULL,
			metric TEXT NOT NULL,
			value REAL NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_samples_metric_time ON samples (metric, collected_at);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate samples table: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSnapshots stores the samples of every snapshot in one transaction.
func (s *Store) InsertSnapshots(ctx context.Context, snapshots []*monitoring.Snapshot) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO samples (collected_at, metric, value) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, snapshot := range snapshots {
		if snapshot == nil {
			continue
		}
		at := snapshot.CollectedAt.UnixMilli()
		for _, sample := range snapshot.Samples() {
			if _, err := stmt.ExecContext(ctx, at, sample.Metric, sample.Value); err != nil {
				return 0, fmt.Errorf("insert sample %s: %w", sample.Metric, err)
			}
			count++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit samples: %w", err)
	}
	return count, nil
}

// Samples returns the most recent points of metric collected at or after
// since, oldest first. A non-positive limit uses DefaultLimit.
func (s *Store) Samples(ctx context.Context, metric string, since time.Time, limit int) ([]Point, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT collected_at, value FROM samples
		 WHERE metric = ? AND collected_at >= ?
		 ORDER BY collected_at DESC, id DESC
		 LIMIT ?`,
		metric, since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	points := make([]Point, 0)
	for rows.Next() {
		var millis int64
		var p Point
		if err := rows.Scan(&millis, &p.Value); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		p.At = time.UnixMilli(millis).UTC()
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// Metrics lists the distinct stored metric names.
func (s *Store) Metrics(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT metric FROM samples ORDER BY metric")
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	metrics := make([]string, 0)
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// Prune deletes samples collected before olderThan and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM samples WHERE collected_at < ?", olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune samples: %w", err)
	}
	return res.RowsAffected()
}
