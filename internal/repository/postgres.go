package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formbridge/formbridge/constants"
	"github.com/formbridge/formbridge/internal/common"
)

// Config for the Postgres pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// OpenPool creates a pgx pool for the extraction-job store.
func OpenPool(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "formbridge"

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return pool, nil
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return pool.Ping(ctx)
}

const pgSchema = `
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

// PostgresJobStore implements JobStore on a pgx pool.
type PostgresJobStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresJobStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresJobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{pool: pool, logger: logger}
}

// Migrate creates the extraction_jobs table when missing.
func (s *PostgresJobStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, pgSchema)
	return common.WrapError(err, "migrate extraction_jobs")
}

func (s *PostgresJobStore) Create(ctx context.Context, job *ExtractionJob) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	_, err := s.pool.Exec(ctx, `
		INSERT INTO extraction_jobs
			(id, file_name, content_hash, schema_key, case_type, case_sub_type, user_id, status, error_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '', $9, $10)`,
		job.ID.String(), job.FileName, job.ContentHash, job.SchemaKey,
		job.CaseType, job.CaseSubType, job.UserID, string(job.Status),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	return common.WrapError(err, "insert extraction job")
}

func (s *PostgresJobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.JobStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE extraction_jobs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC().Format(time.RFC3339Nano), id.String(),
	)
	return common.WrapError(err, "update job status")
}

func (s *PostgresJobStore) MarkSucceeded(ctx context.Context, id uuid.UUID, resultJSON []byte) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE extraction_jobs SET status = $1, result_json = $2, updated_at = $3 WHERE id = $4`,
		string(constants.JobStatusSucceeded), string(resultJSON),
		time.Now().UTC().Format(time.RFC3339Nano), id.String(),
	)
	return common.WrapError(err, "mark job succeeded")
}

func (s *PostgresJobStore) MarkFailed(ctx context.Context, id uuid.UUID, errText string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE extraction_jobs SET status = $1, error_text = $2, updated_at = $3 WHERE id = $4`,
		string(constants.JobStatusFailed), errText,
		time.Now().UTC().Format(time.RFC3339Nano), id.String(),
	)
	return common.WrapError(err, "mark job failed")
}

func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*ExtractionJob, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, file_name, content_hash, schema_key, case_type, case_sub_type, user_id, status,
		       COALESCE(result_json, ''), error_text, created_at, updated_at
		FROM extraction_jobs WHERE id = $1`, id.String())
	return scanJob(row)
}

func (s *PostgresJobStore) List(ctx context.Context, from, to *time.Time) ([]*ExtractionJob, error) {
	lo, hi := windowBounds(from, to)
	rows, err := s.pool.Query(ctx, `
		SELECT id, file_name, content_hash, schema_key, case_type, case_sub_type, user_id, status,
		       COALESCE(result_json, ''), error_text, created_at, updated_at
		FROM extraction_jobs
		WHERE ($1 = '' OR created_at >= $1) AND ($2 = '' OR created_at <= $2)
		ORDER BY created_at`, lo, hi)
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

var _ JobStore = (*PostgresJobStore)(nil)
