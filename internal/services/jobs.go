package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"flashdeck-backend/internal/models"
)

type JobStore interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Job, error)
}

// JobQueue hands serialized jobs to the worker pool.
type JobQueue interface {
	Push(ctx context.Context, payload string) error
}

type JobService struct {
	generation *GenerationService
	jobs       JobStore
	queue      JobQueue
}

func NewJobService(generation *GenerationService, jobs JobStore, queue JobQueue) *JobService {
	return &JobService{generation: generation, jobs: jobs, queue: queue}
}

// Enqueue validates a text generation request and schedules it for the
// worker pool. Progress is pushed to the user's WebSocket connections.
func (s *JobService) Enqueue(ctx context.Context, userID uuid.UUID, req models.GenerateRequest) (*models.Job, error) {
	if err := s.generation.ValidateText(ctx, userID, &req); err != nil {
		return nil, err
	}

	job := &models.Job{
		UserID: userID,
		DeckID: req.DeckID,
		Source: SourceText,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	payload := *job
	payload.Text = req.Text
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}
	if err := s.queue.Push(ctx, string(data)); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return job, nil
}

func (s *JobService) Get(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound()
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return job, nil
}
