package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/arxiv-copilot/internal/config"
	"github.com/kirillkom/arxiv-copilot/internal/core/ports"
	"github.com/kirillkom/arxiv-copilot/internal/core/usecase"
	"github.com/kirillkom/arxiv-copilot/internal/infrastructure/chunking"
	"github.com/kirillkom/arxiv-copilot/internal/infrastructure/download"
	"github.com/kirillkom/arxiv-copilot/internal/infrastructure/extractor/pdfdoc"
	"github.com/kirillkom/arxiv-copilot/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/arxiv-copilot/internal/infrastructure/queue/nats"
	"github.com/kirillkom/arxiv-copilot/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/arxiv-copilot/internal/infrastructure/resilience"
	"github.com/kirillkom/arxiv-copilot/internal/infrastructure/search/arxiv"
	"github.com/kirillkom/arxiv-copilot/internal/infrastructure/vector/pinecone"
	"github.com/kirillkom/arxiv-copilot/internal/observability/logging"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Repo     ports.ResearchJobRepository
	SubmitUC ports.ResearchSubmitter
	RunUC    ports.ResearchRunner

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewJSONLogger(service, cfg.LogLevel)

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewJobRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	geminiClient := gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiGenModel, cfg.GeminiEmbedModel, executor)
	selector := gemini.NewSelector(geminiClient)
	embedder := gemini.NewEmbedder(geminiClient)
	generator := gemini.NewGenerator(geminiClient)

	searcher := arxiv.New(cfg.ArxivBaseURL)
	fetcher := download.NewPDFFetcher(time.Duration(cfg.PDFFetchTimeout)*time.Second, int64(cfg.PDFMaxBytes))
	extractor := pdfdoc.NewExtractor()
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	vectorDB := pinecone.New(cfg.PineconeIndexHost, cfg.PineconeAPIKey, executor)

	submitUC := usecase.NewSubmitResearchUseCase(repo, queue)
	runUC := usecase.NewRunResearchUseCase(
		repo,
		searcher,
		selector,
		fetcher,
		extractor,
		chunker,
		embedder,
		vectorDB,
		generator,
		usecase.RunOptions{
			SearchPageSize:   cfg.SearchPageSize,
			RetrieveTopK:     cfg.RetrieveTopK,
			CleanupNamespace: cfg.CleanupNamespace,
		},
	)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		SubmitUC: submitUC,
		RunUC:    runUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
