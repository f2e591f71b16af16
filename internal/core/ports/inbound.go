package ports

import (
	"context"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
)

// ResearchSubmitter is the inbound contract for accepting a research question.
type ResearchSubmitter interface {
	Submit(ctx context.Context, question string) (*domain.ResearchJob, error)
}

// ResearchRunner is the inbound contract for executing a queued job.
type ResearchRunner interface {
	RunByID(ctx context.Context, jobID string) error
}

// ResearchReader is the inbound read model for job state and reports.
type ResearchReader interface {
	GetByID(ctx context.Context, id string) (*domain.ResearchJob, error)
}
