package ports

import (
	"context"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
)

// PaperSearcher queries an academic search backend for candidate papers.
type PaperSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]domain.PaperCandidate, error)
}

// PaperSelector picks the single most relevant candidate for a question.
type PaperSelector interface {
	SelectPaper(ctx context.Context, question string, candidates []domain.PaperCandidate) (domain.PaperCandidate, error)
}

// PaperFetcher downloads the selected paper's PDF bytes.
type PaperFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TextExtractor extracts plain text from PDF bytes.
type TextExtractor interface {
	Extract(ctx context.Context, pdfData []byte) (string, error)
}

// Chunker splits extracted text into retrieval-sized chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunks under a per-job namespace and performs
// similarity search scoped to that namespace.
type VectorStore interface {
	UpsertChunks(ctx context.Context, namespace string, chunks []domain.Chunk, vectors [][]float32) error
	Query(ctx context.Context, namespace string, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
	DeleteNamespace(ctx context.Context, namespace string) error
}

// ReportGenerator creates the final cited report body.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, question string, paper domain.PaperCandidate, chunks []domain.RetrievedChunk) (string, error)
}

// ResearchJobRepository persists and reads research job state.
type ResearchJobRepository interface {
	Create(ctx context.Context, job *domain.ResearchJob) error
	GetByID(ctx context.Context, id string) (*domain.ResearchJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error
	SavePaper(ctx context.Context, id string, paper domain.PaperCandidate) error
	SaveReport(ctx context.Context, id string, report domain.Report) error
}

// MessageQueue publishes/consumes research job events.
type MessageQueue interface {
	PublishResearchRequested(ctx context.Context, jobID string) error
	SubscribeResearchRequested(ctx context.Context, handler func(context.Context, string) error) error
}
