package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"storyreel/internal/config"
)

// Status tracks an artifact's lifecycle. Artifacts are only recorded after
// atomic promotion, so promoted is the steady state.
type Status string

const (
	StatusPromoted Status = "promoted"
)

// Artifact is one manifest row.
type Artifact struct {
	Key             string
	Path            string
	DurationSeconds float64
	Checksum        string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Store manages artifact persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the manifest database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.ManifestPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if err := applyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record upserts an artifact row, refreshing updated_at.
func (s *Store) Record(ctx context.Context, artifact Artifact) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if artifact.Status == "" {
		artifact.Status = StatusPromoted
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (key, path, duration_seconds, checksum, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET
             path = excluded.path,
             duration_seconds = excluded.duration_seconds,
             checksum = excluded.checksum,
             status = excluded.status,
             updated_at = excluded.updated_at`,
		artifact.Key, artifact.Path, artifact.DurationSeconds, artifact.Checksum,
		string(artifact.Status), now, now,
	)
	if err != nil {
		return fmt.Errorf("record artifact %s: %w", artifact.Key, err)
	}
	return nil
}

// Get returns the artifact for key, or nil when absent.
func (s *Store) Get(ctx context.Context, key string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, path, duration_seconds, checksum, status, created_at, updated_at
         FROM artifacts WHERE key = ?`, key)
	artifact, err := scanArtifact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get artifact %s: %w", key, err)
	}
	return artifact, nil
}

// Delete removes an artifact row (used by force rebuilds).
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete artifact %s: %w", key, err)
	}
	return nil
}

// List returns all artifacts ordered by key.
func (s *Store) List(ctx context.Context) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, path, duration_seconds, checksum, status, created_at, updated_at
         FROM artifacts ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, *artifact)
	}
	return artifacts, rows.Err()
}

// Valid reports whether a promoted artifact for key still matches the file
// on disk: the recorded path exists and, when expected is positive, the
// recorded duration matches within tolerance. It returns the artifact when
// valid.
func (s *Store) Valid(ctx context.Context, key string, expected, tolerance float64) (*Artifact, bool) {
	artifact, err := s.Get(ctx, key)
	if err != nil || artifact == nil || artifact.Status != StatusPromoted {
		return nil, false
	}
	info, err := os.Stat(artifact.Path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return nil, false
	}
	if expected > 0 && math.Abs(artifact.DurationSeconds-expected) > tolerance {
		return nil, false
	}
	return artifact, true
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row rowScanner) (*Artifact, error) {
	var (
		artifact             Artifact
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&artifact.Key, &artifact.Path, &artifact.DurationSeconds,
		&artifact.Checksum, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	artifact.Status = Status(status)
	artifact.CreatedAt = parseTime(createdAt)
	artifact.UpdatedAt = parseTime(updatedAt)
	return &artifact, nil
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
