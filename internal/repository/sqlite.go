package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	_ "modernc.org/sqlite"

	"github.com/formbridge/formbridge/constants"
	"github.com/formbridge/formbridge/internal/common"
)

// OpenSQLite opens (or creates) a local SQLite job store. Used when no
// Postgres DSN is configured and for tests; ":memory:" gives an ephemeral
// store.
func OpenSQLite(path string, logger *slog.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, common.WrapError(err, "apply sqlite pragma")
		}
	}
	logger.Info("sqlite job store opened", "path", path)
	return db, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS extraction_jobs (
	id            TEXT PRIMARY KEY,
	file_name     TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	schema_key    TEXT NOT NULL,
	case_type     TEXT NOT NULL DEFAULT '',
	case_sub_type TEXT NOT NULL DEFAULT '',
	user_id       TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	result_json   TEXT,
	error_text    TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
)`

// SQLiteJobStore implements JobStore on database/sql with the modernc
// driver.
type SQLiteJobStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteJobStore(db *sql.DB, logger *slog.Logger) *SQLiteJobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteJobStore{db: db, logger: logger}
}

// Migrate creates the extraction_jobs table when missing.
func (s *SQLiteJobStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteSchema)
	return common.WrapError(err, "migrate extraction_jobs")
}

func (s *SQLiteJobStore) Create(ctx context.Context, job *ExtractionJob) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extraction_jobs
			(id, file_name, content_hash, schema_key, case_type, case_sub_type, user_id, status, error_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)`,
		job.ID.String(), job.FileName, job.ContentHash, job.SchemaKey,
		job.CaseType, job.CaseSubType, job.UserID, string(job.Status),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	return common.WrapError(err, "insert extraction job")
}

func (s *SQLiteJobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.JobStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE extraction_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339Nano), id.String(),
	)
	return common.WrapError(err, "update job status")
}

func (s *SQLiteJobStore) MarkSucceeded(ctx context.Context, id uuid.UUID, resultJSON []byte) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE extraction_jobs SET status = ?, result_json = ?, updated_at = ? WHERE id = ?`,
		string(constants.JobStatusSucceeded), string(resultJSON),
		time.Now().UTC().Format(time.RFC3339Nano), id.String(),
	)
	return common.WrapError(err, "mark job succeeded")
}

func (s *SQLiteJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errText string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE extraction_jobs SET status = ?, error_text = ?, updated_at = ? WHERE id = ?`,
		string(constants.JobStatusFailed), errText,
		time.Now().UTC().Format(time.RFC3339Nano), id.String(),
	)
	return common.WrapError(err, "mark job failed")
}

func (s *SQLiteJobStore) GetByID(ctx context.Context, id uuid.UUID) (*ExtractionJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_name, content_hash, schema_key, case_type, case_sub_type, user_id, status,
		       COALESCE(result_json, ''), error_text, created_at, updated_at
		FROM extraction_jobs WHERE id = ?`, id.String())
	return scanJob(row)
}

func (s *SQLiteJobStore) List(ctx context.Context, from, to *time.Time) ([]*ExtractionJob, error) {
	lo, hi := windowBounds(from, to)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, content_hash, schema_key, case_type, case_sub_type, user_id, status,
		       COALESCE(result_json, ''), error_text, created_at, updated_at
		FROM extraction_jobs
		WHERE (? = '' OR created_at >= ?) AND (? = '' OR created_at <= ?)
		ORDER BY created_at`, lo, lo, hi, hi)
	if err != nil {
		return nil, common.WrapError(err, "list extraction jobs")
	}
	defer rows.Close()

	var jobs []*ExtractionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, common.WrapError(rows.Err(), "list extraction jobs")
}

var _ JobStore = (*SQLiteJobStore)(nil)

// rowScanner covers pgx.Row and *sql.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*ExtractionJob, error) {
	var (
		idStr, status, resultJSON string
		createdAt, updatedAt      string
		job                       ExtractionJob
	)
	err := row.Scan(&idStr, &job.FileName, &job.ContentHash, &job.SchemaKey,
		&job.CaseType, &job.CaseSubType, &job.UserID, &status,
		&resultJSON, &job.ErrorText, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError("JOB_GET", "extraction job", common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(err, "scan extraction job")
	}

	job.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, common.WrapError(err, "parse job id")
	}
	job.Status = constants.JobStatus(status)
	if resultJSON != "" {
		job.ResultJSON = []byte(resultJSON)
	}
	if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		job.CreatedAt = t
	}
	if t, perr := time.Parse(time.RFC3339Nano, updatedAt); perr == nil {
		job.UpdatedAt = t
	}
	return &job, nil
}
