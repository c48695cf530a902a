package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// InterruptedMessage is recorded on jobs a previous process left in flight.
const InterruptedMessage = "interrupted by process restart"

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore persists jobs in a SQLite file. Only one process should open a
// given file; the workspace lock enforces that for the CLI.
type SQLiteStore struct {
	db   *sql.DB
	path string
	opts storeOptions
	// writes serializes read-modify-write cycles so transitions stay atomic
	// per job without relying on SQLite lock upgrades.
	writes sync.Mutex
}

// OpenSQLite opens or creates the database at path and fails any job left
// queued or running by an earlier process.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("open sqlite store: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: path, opts: resolveOptions(opts)}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := store.failInterrupted(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const jobColumns = `id, status, topic, tone, target_duration_sec, visibility,
	result_json, failure_json, created_at, updated_at, finished_at`

func (s *SQLiteStore) Create(ctx context.Context, input Input) (Job, error) {
	if err := input.Validate(); err != nil {
		return Job{}, err
	}
	s.writes.Lock()
	defer s.writes.Unlock()
	now := s.opts.now()
	job := Job{
		ID:        s.opts.newID(),
		Status:    StatusQueued,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO jobs (id, status, topic, tone, target_duration_sec, visibility, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID, string(job.Status), input.Topic, string(input.Tone), input.TargetDurationSec,
			string(input.Visibility), formatTime(now), formatTime(now),
		)
		return execErr
	})
	if err != nil {
		return Job{}, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+jobColumns+" FROM jobs ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	if out == nil {
		out = []Job{}
	}
	return out, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, patch Patch) (Job, error) {
	s.writes.Lock()
	defer s.writes.Unlock()

	job, err := s.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if err := applyPatch(&job, patch, s.opts.now()); err != nil {
		return Job{}, err
	}
	if err := s.write(ctx, job); err != nil {
		return Job{}, err
	}
	return job, nil
}

func (s *SQLiteStore) write(ctx context.Context, job Job) error {
	resultJSON, err := encodeNullable(job.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	failureJSON, err := encodeNullable(job.Failure)
	if err != nil {
		return fmt.Errorf("encode failure: %w", err)
	}
	var finished sql.NullString
	if job.FinishedAt != nil {
		finished = sql.NullString{String: formatTime(*job.FinishedAt), Valid: true}
	}
	return retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, result_json = ?, failure_json = ?, updated_at = ?, finished_at = ?
			 WHERE id = ?`,
			string(job.Status), resultJSON, failureJSON, formatTime(job.UpdatedAt), finished, job.ID,
		)
		return execErr
	})
}

// failInterrupted marks every non-terminal job failed. Work is never resumed
// across processes, so such jobs can only end this way.
func (s *SQLiteStore) failInterrupted(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM jobs WHERE status IN (?, ?)",
		string(StatusQueued), string(StatusRunning))
	if err != nil {
		return 0, fmt.Errorf("find interrupted jobs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan interrupted job: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if err != nil {
			return 0, err
		}
		if job.Status == StatusQueued {
			if err := applyPatch(&job, MarkRunning(), s.opts.now()); err != nil {
				return 0, err
			}
		}
		if err := applyPatch(&job, MarkFailed("", InterruptedMessage), s.opts.now()); err != nil {
			return 0, err
		}
		if err := s.write(ctx, job); err != nil {
			return 0, fmt.Errorf("fail interrupted job %s: %w", id, err)
		}
	}
	return len(ids), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		job                     Job
		status, tone, vis       string
		resultJSON, failureJSON sql.NullString
		created, updated        string
		finished                sql.NullString
	)
	if err := row.Scan(&job.ID, &status, &job.Input.Topic, &tone, &job.Input.TargetDurationSec, &vis,
		&resultJSON, &failureJSON, &created, &updated, &finished); err != nil {
		return Job{}, err
	}
	job.Status = Status(status)
	job.Input.Tone = Tone(tone)
	job.Input.Visibility = Visibility(vis)
	job.CreatedAt = parseTime(created)
	job.UpdatedAt = parseTime(updated)
	if finished.Valid {
		t := parseTime(finished.String)
		job.FinishedAt = &t
	}
	if resultJSON.Valid && resultJSON.String != "" {
		var result Result
		if err := json.Unmarshal([]byte(resultJSON.String), &result); err != nil {
			return Job{}, fmt.Errorf("decode result: %w", err)
		}
		job.Result = &result
	}
	if failureJSON.Valid && failureJSON.String != "" {
		var failure Failure
		if err := json.Unmarshal([]byte(failureJSON.String), &failure); err != nil {
			return Job{}, fmt.Errorf("decode failure: %w", err)
		}
		job.Failure = &failure
	}
	return job, nil
}

func encodeNullable(value any) (sql.NullString, error) {
	switch v := value.(type) {
	case *Result:
		if v == nil {
			return sql.NullString{}, nil
		}
	case *Failure:
		if v == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
