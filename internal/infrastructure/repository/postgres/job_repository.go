package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
)

// JobRepository persists research jobs and their lifecycle in Postgres.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS research_jobs (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	status TEXT NOT NULL,
	arxiv_id TEXT,
	paper_title TEXT,
	paper_url TEXT,
	report TEXT,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_research_jobs_status ON research_jobs(status);
CREATE INDEX IF NOT EXISTS idx_research_jobs_created_at ON research_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *JobRepository) Create(ctx context.Context, job *domain.ResearchJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO research_jobs (
	id, question, status, arxiv_id, paper_title, paper_url, report, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		job.ID, job.Question, string(job.Status),
		nullableString(job.ArxivID), nullableString(job.Title), nullableString(job.PDFURL),
		nullableString(job.Report), nullableString(job.Error),
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert research job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.ResearchJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, question, status,
	COALESCE(arxiv_id, ''), COALESCE(paper_title, ''), COALESCE(paper_url, ''),
	COALESCE(report, ''), COALESCE(error_message, ''),
	created_at, updated_at
FROM research_jobs
WHERE id = $1
`, id)

	var job domain.ResearchJob
	var status string
	err := row.Scan(
		&job.ID, &job.Question, &status,
		&job.ArxivID, &job.Title, &job.PDFURL,
		&job.Report, &job.Error,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get research job", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("get research job: %w", err)
	}
	job.Status = domain.JobStatus(status)
	return &job, nil
}

func (r *JobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE research_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), nullableString(errMessage), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update research job status: %w", err)
	}
	return requireRow(res, id, "update research job status")
}

func (r *JobRepository) SavePaper(ctx context.Context, id string, paper domain.PaperCandidate) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE research_jobs
SET arxiv_id = $2, paper_title = $3, paper_url = $4, updated_at = $5
WHERE id = $1
`, id, paper.ArxivID, paper.Title, paper.PDFURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save research paper: %w", err)
	}
	return requireRow(res, id, "save research paper")
}

func (r *JobRepository) SaveReport(ctx context.Context, id string, report domain.Report) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE research_jobs
SET report = $2, updated_at = $3
WHERE id = $1
`, id, report.Body, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save research report: %w", err)
	}
	return requireRow(res, id, "save research report")
}

func requireRow(res sql.Result, id, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrJobNotFound, op, fmt.Errorf("id %s", id))
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
