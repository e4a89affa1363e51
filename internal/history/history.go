// Package history keeps an append-only SQLite archive of finished
// jobs. The live registry is in-memory only; the archive is what
// survives restarts for the history command and health reporting.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"scribe/internal/jobs"
)

const schema = `
CREATE TABLE IF NOT EXISTS job_history (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    title TEXT,
    author TEXT,
    engine TEXT,
    source TEXT,
    status TEXT NOT NULL,
    error_message TEXT,
    transcript_path TEXT,
    summary_path TEXT,
    duration_seconds REAL,
    created_at TEXT NOT NULL,
    completed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_history_completed_at ON job_history (completed_at);
`

// Entry is one archived terminal job.
type Entry struct {
	ID              string
	URL             string
	Title           string
	Author          string
	Engine          string
	Source          string
	Status          jobs.Status
	ErrorMessage    string
	TranscriptPath  string
	SummaryPath     string
	DurationSeconds float64
	CreatedAt       time.Time
	CompletedAt     time.Time
}

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(dbPath string) (*Store, error) {
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
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
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

// Record archives a terminal job. Non-terminal jobs are rejected;
// re-recording an id overwrites the previous row.
func (s *Store) Record(ctx context.Context, job jobs.Job) error {
	if !job.Terminal() || job.CompletedAt == nil {
		return errors.New("history: only terminal jobs are archived")
	}
	var title, author, source string
	var duration float64
	if job.Metadata != nil {
		title = job.Metadata.Title
		author = job.Metadata.Author
		source = job.Metadata.Source
		duration = job.Metadata.DurationSeconds
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO job_history (
            id, url, title, author, engine, source, status, error_message,
            transcript_path, summary_path, duration_seconds, created_at, completed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.URL,
		nullableString(title),
		nullableString(author),
		nullableString(job.Engine),
		nullableString(source),
		string(job.Status),
		nullableString(job.Error),
		nullableString(job.TranscriptPath),
		nullableString(job.SummaryPath),
		duration,
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		job.CompletedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record job: %w", err)
	}
	return nil
}

const entryColumns = "id, url, title, author, engine, source, status, error_message, transcript_path, summary_path, duration_seconds, created_at, completed_at"

// List returns archived jobs, most recently completed first. A
// non-positive limit returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM job_history ORDER BY completed_at DESC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get fetches one archived job by id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM job_history WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get history entry: %w", err)
	}
	return &entry, nil
}

// Prune removes entries completed before the cutoff and returns the
// count removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM job_history WHERE completed_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// Counts returns a count of archived jobs grouped by status.
func (s *Store) Counts(ctx context.Context) (map[jobs.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM job_history GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[jobs.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[jobs.Status(status)] = count
	}
	return counts, rows.Err()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry        Entry
		title        sql.NullString
		author       sql.NullString
		engine       sql.NullString
		source       sql.NullString
		statusStr    string
		errorMessage sql.NullString
		transcript   sql.NullString
		summary      sql.NullString
		duration     sql.NullFloat64
		createdRaw   string
		completedRaw string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.URL,
		&title,
		&author,
		&engine,
		&source,
		&statusStr,
		&errorMessage,
		&transcript,
		&summary,
		&duration,
		&createdRaw,
		&completedRaw,
	); err != nil {
		return entry, err
	}
	entry.Title = title.String
	entry.Author = author.String
	entry.Engine = engine.String
	entry.Source = source.String
	entry.Status = jobs.Status(statusStr)
	entry.ErrorMessage = errorMessage.String
	entry.TranscriptPath = transcript.String
	entry.SummaryPath = summary.String
	entry.DurationSeconds = duration.Float64
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if completed, err := time.Parse(time.RFC3339Nano, completedRaw); err == nil {
		entry.CompletedAt = completed
	}
	return entry, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
