package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
)

func TestJobRepositoryGetByIDMapsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "question", "status", "arxiv_id", "paper_title", "paper_url", "report", "error_message", "created_at", "updated_at",
	}).AddRow("job-1", "what is attention", string(domain.StatusDone), "1706.03762", "Attention Is All You Need", "https://arxiv.org/pdf/1706.03762", "report body", "", now, now)

	mock.ExpectQuery("FROM research_jobs").
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if job.Status != domain.StatusDone {
		t.Fatalf("expected done status, got %s", job.Status)
	}
	if job.ArxivID != "1706.03762" || job.Report != "report body" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryGetByIDUnknownJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectQuery("FROM research_jobs").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected job-not-found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositoryUpdateStatusUnknownJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectExec("UPDATE research_jobs").
		WithArgs("missing", string(domain.StatusRunning), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateStatus(context.Background(), "missing", domain.StatusRunning, "")
	if !domain.IsKind(err, domain.ErrJobNotFound) {
		t.Fatalf("expected job-not-found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestJobRepositorySavePaper(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	repo := NewJobRepository(db)
	mock.ExpectExec("UPDATE research_jobs").
		WithArgs("job-1", "1706.03762", "Attention Is All You Need", "https://arxiv.org/pdf/1706.03762", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SavePaper(context.Background(), "job-1", domain.PaperCandidate{
		ArxivID: "1706.03762",
		Title:   "Attention Is All You Need",
		PDFURL:  "https://arxiv.org/pdf/1706.03762",
	})
	if err != nil {
		t.Fatalf("SavePaper() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
