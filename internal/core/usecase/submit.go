package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
	"github.com/kirillkom/arxiv-copilot/internal/core/ports"
)

type SubmitResearchUseCase struct {
	repo  ports.ResearchJobRepository
	queue ports.MessageQueue
}

func NewSubmitResearchUseCase(
	repo ports.ResearchJobRepository,
	queue ports.MessageQueue,
) *SubmitResearchUseCase {
	return &SubmitResearchUseCase{
		repo:  repo,
		queue: queue,
	}
}

// Submit persists a pending job for the question and hands it to the worker
// queue. The question is validated here, before any network call is made.
func (uc *SubmitResearchUseCase) Submit(ctx context.Context, question string) (*domain.ResearchJob, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit research", errors.New("empty research question"))
	}

	now := time.Now().UTC()
	job := &domain.ResearchJob{
		ID:        uuid.NewString(),
		Question:  question,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create research job: %w", err)
	}

	if err := uc.queue.PublishResearchRequested(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish research job: %w", err)
	}

	return job, nil
}
