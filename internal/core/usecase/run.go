package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
	"github.com/kirillkom/arxiv-copilot/internal/core/ports"
)

// RunOptions bounds the pipeline; zero values fall back to the defaults below.
type RunOptions struct {
	SearchPageSize   int
	RetrieveTopK     int
	CleanupNamespace bool
}

type RunResearchUseCase struct {
	repo      ports.ResearchJobRepository
	searcher  ports.PaperSearcher
	selector  ports.PaperSelector
	fetcher   ports.PaperFetcher
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	generator ports.ReportGenerator
	opts      RunOptions
}

func NewRunResearchUseCase(
	repo ports.ResearchJobRepository,
	searcher ports.PaperSearcher,
	selector ports.PaperSelector,
	fetcher ports.PaperFetcher,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	generator ports.ReportGenerator,
	opts RunOptions,
) *RunResearchUseCase {
	if opts.SearchPageSize <= 0 {
		opts.SearchPageSize = 10
	}
	if opts.RetrieveTopK <= 0 {
		opts.RetrieveTopK = 4
	}
	return &RunResearchUseCase{
		repo:      repo,
		searcher:  searcher,
		selector:  selector,
		fetcher:   fetcher,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
		generator: generator,
		opts:      opts,
	}
}

// RunByID executes the linear pipeline for one persisted job:
// search, select, ingest, index, retrieve, generate. The first stage error
// aborts the rest of the run and is recorded on the job.
func (uc *RunResearchUseCase) RunByID(ctx context.Context, jobID string) error {
	if err := uc.repo.UpdateStatus(ctx, jobID, domain.StatusRunning, ""); err != nil {
		return fmt.Errorf("set status=running: %w", err)
	}

	report, err := uc.runPipeline(ctx, jobID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, jobID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveReport(ctx, jobID, report); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, jobID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save report: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, jobID, domain.StatusDone, ""); err != nil {
		return fmt.Errorf("set status=done: %w", err)
	}

	if uc.opts.CleanupNamespace {
		// Best effort: the report is already persisted, so a leftover
		// namespace only costs storage until it expires.
		if err := uc.vectorDB.DeleteNamespace(ctx, jobID); err != nil {
			slog.Warn("namespace_cleanup_failed", "job_id", jobID, "error", err)
		}
	}

	return nil
}

func (uc *RunResearchUseCase) runPipeline(ctx context.Context, jobID string) (domain.Report, error) {
	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return domain.Report{}, fmt.Errorf("fetch job by id: %w", err)
	}

	paper, err := uc.searchAndSelect(ctx, job)
	if err != nil {
		return domain.Report{}, err
	}

	chunks, err := uc.ingest(ctx, paper)
	if err != nil {
		return domain.Report{}, err
	}

	if err := uc.index(ctx, job.ID, chunks); err != nil {
		return domain.Report{}, err
	}

	retrieved, err := uc.retrieve(ctx, job.ID, job.Question)
	if err != nil {
		return domain.Report{}, err
	}

	return uc.generate(ctx, job.Question, paper, retrieved)
}

func (uc *RunResearchUseCase) searchAndSelect(ctx context.Context, job *domain.ResearchJob) (domain.PaperCandidate, error) {
	candidates, err := uc.searcher.Search(ctx, job.Question, uc.opts.SearchPageSize)
	if err != nil {
		return domain.PaperCandidate{}, domain.WrapError(domain.ErrSearch, "search papers", err)
	}
	if len(candidates) == 0 {
		return domain.PaperCandidate{}, domain.WrapError(
			domain.ErrNoCandidates,
			"search papers",
			fmt.Errorf("no arxiv results for question %q", job.Question),
		)
	}

	paper, err := uc.selector.SelectPaper(ctx, job.Question, candidates)
	if err != nil {
		return domain.PaperCandidate{}, domain.WrapError(domain.ErrSelection, "select paper", err)
	}
	if !isMember(paper, candidates) {
		return domain.PaperCandidate{}, domain.WrapError(
			domain.ErrSelection,
			"select paper",
			fmt.Errorf("selected paper %q is not a search candidate", paper.ArxivID),
		)
	}

	if err := uc.repo.SavePaper(ctx, job.ID, paper); err != nil {
		return domain.PaperCandidate{}, fmt.Errorf("save selected paper: %w", err)
	}
	return paper, nil
}

func (uc *RunResearchUseCase) ingest(ctx context.Context, paper domain.PaperCandidate) ([]domain.Chunk, error) {
	pdfData, err := uc.fetcher.Fetch(ctx, paper.PDFURL)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIngestion, "fetch pdf", err)
	}

	text, err := uc.extractor.Extract(ctx, pdfData)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIngestion, "extract text", err)
	}
	if text == "" {
		return nil, domain.WrapError(domain.ErrIngestion, "extract text", errors.New("empty extracted text"))
	}

	pieces := uc.chunker.Split(text)
	if len(pieces) == 0 {
		return nil, domain.WrapError(domain.ErrIngestion, "chunk text", errors.New("chunking produced zero chunks"))
	}

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, domain.Chunk{
			Text:          piece,
			SequenceIndex: i,
			PaperID:       paper.ArxivID,
		})
	}
	return chunks, nil
}

func (uc *RunResearchUseCase) index(ctx context.Context, namespace string, chunks []domain.Chunk) error {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return domain.WrapError(domain.ErrIndexing, "embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(
			domain.ErrIndexing,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.vectorDB.UpsertChunks(ctx, namespace, chunks, vectors); err != nil {
		return domain.WrapError(domain.ErrIndexing, "upsert chunks", err)
	}
	return nil
}

func (uc *RunResearchUseCase) retrieve(ctx context.Context, namespace, question string) ([]domain.RetrievedChunk, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexing, "embed query", err)
	}

	retrieved, err := uc.vectorDB.Query(ctx, namespace, queryVector, uc.opts.RetrieveTopK)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexing, "query vector db", err)
	}
	return retrieved, nil
}

func (uc *RunResearchUseCase) generate(
	ctx context.Context,
	question string,
	paper domain.PaperCandidate,
	retrieved []domain.RetrievedChunk,
) (domain.Report, error) {
	body, err := uc.generator.GenerateReport(ctx, question, paper, retrieved)
	if err != nil {
		return domain.Report{}, domain.WrapError(domain.ErrGeneration, "generate report", err)
	}
	return domain.Report{
		Body:        body,
		SourceTitle: paper.Title,
		SourceURL:   paper.PDFURL,
	}, nil
}

func isMember(paper domain.PaperCandidate, candidates []domain.PaperCandidate) bool {
	for _, c := range candidates {
		if c.ArxivID == paper.ArxivID {
			return true
		}
	}
	return false
}
