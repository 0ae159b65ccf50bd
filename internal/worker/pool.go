package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"flashdeck-backend/internal/logger"
	"flashdeck-backend/internal/metrics"
	"flashdeck-backend/internal/models"
	"flashdeck-backend/internal/services"
)

const (
	popTimeout     = 5 * time.Second
	popErrorPause  = time.Second
	requeueTimeout = 5 * time.Second
)

type Queue interface {
	Push(ctx context.Context, payload string) error
	Pop(ctx context.Context, timeout time.Duration) (string, bool, error)
	Lock(ctx context.Context, jobID uuid.UUID) (bool, error)
	Unlock(ctx context.Context, jobID uuid.UUID) error
}

type JobStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Complete(ctx context.Context, id uuid.UUID, created int) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
}

type Generator interface {
	Generate(ctx context.Context, userID uuid.UUID, source string, req models.GenerateRequest) (*models.GenerationResult, error)
}

// Notifier delivers progress messages to a user's live connections.
type Notifier interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) error
}

// Pool runs queued generation jobs on a fixed number of goroutines.
type Pool struct {
	queue       Queue
	jobs        JobStore
	generator   Generator
	notifier    Notifier
	workerCount int

	afterFunc func(d time.Duration, f func()) (stop func() bool)
	stop      chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	retries map[uuid.UUID]pendingRetry
}

// pendingRetry is a failed job waiting out its backoff before re-queueing.
type pendingRetry struct {
	stop    func() bool
	requeue func()
}

func NewPool(queue Queue, jobs JobStore, generator Generator, notifier Notifier, workerCount int) *Pool {
	return &Pool{
		queue:       queue,
		jobs:        jobs,
		generator:   generator,
		notifier:    notifier,
		workerCount: workerCount,
		afterFunc:   func(d time.Duration, f func()) func() bool { return time.AfterFunc(d, f).Stop },
		stop:        make(chan struct{}),
		retries:     make(map[uuid.UUID]pendingRetry),
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	slog.Info("worker pool started", "workers", p.workerCount)
}

// Stop signals the workers, waits for in-flight jobs to finish, and
// re-queues any job still waiting out its retry backoff.
func (p *Pool) Stop() {
	close(p.stop)
	p.wg.Wait()

	p.mu.Lock()
	pending := p.retries
	p.retries = make(map[uuid.UUID]pendingRetry)
	p.mu.Unlock()

	for _, r := range pending {
		if r.stop() {
			r.requeue()
		}
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	log := slog.With("worker", id)

	for {
		select {
		case <-p.stop:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			return
		default:
		}

		payload, ok, err := p.queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("queue pop failed", "error", err)
			time.Sleep(popErrorPause)
			continue
		}
		if !ok {
			continue
		}

		p.handle(logger.WithContext(ctx, log), payload)
	}
}

// handle decodes, locks and runs one queued job.
func (p *Pool) handle(ctx context.Context, payload string) {
	log := logger.FromContext(ctx)

	var job models.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		log.Error("failed to decode job", "error", err)
		metrics.JobsProcessed.WithLabelValues("malformed").Inc()
		return
	}

	locked, err := p.queue.Lock(ctx, job.ID)
	if err != nil || !locked {
		log.Debug("job is locked by another worker", "job_id", job.ID, "error", err)
		return
	}
	defer func() {
		if err := p.queue.Unlock(ctx, job.ID); err != nil {
			log.Warn("failed to release job lock", "job_id", job.ID, "error", err)
		}
	}()

	log = log.With("job_id", job.ID, "user_id", job.UserID)
	ctx = logger.WithContext(ctx, log)
	log.Info("processing job", "attempt", job.RetryCount+1)

	if err := p.jobs.UpdateStatus(ctx, job.ID, models.JobProcessing); err != nil {
		log.Warn("failed to mark job processing", "error", err)
	}
	p.publish(ctx, job.UserID, models.WSMessage{
		Type:    "status_update",
		Payload: models.StatusUpdate{JobID: job.ID, Step: 1, StepName: "Generating flashcards"},
	})

	result, err := p.generator.Generate(ctx, job.UserID, job.Source, models.GenerateRequest{
		DeckID: job.DeckID,
		Text:   job.Text,
	})
	if err != nil {
		p.handleFailure(ctx, &job, err)
		return
	}
	p.handleSuccess(ctx, &job, result)
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, result *models.GenerationResult) {
	log := logger.FromContext(ctx)

	if err := p.jobs.Complete(ctx, job.ID, result.Created); err != nil {
		log.Error("failed to mark job completed", "error", err)
	}
	metrics.JobsProcessed.WithLabelValues("completed").Inc()

	p.publish(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:   job.ID,
			DeckID:  job.DeckID,
			Created: result.Created,
			Message: result.Message,
		},
	})
	log.Info("job completed", "created", result.Created)
}

// handleFailure re-queues transient failures with exponential backoff and
// fails the job once retries run out or the error cannot succeed on retry.
func (p *Pool) handleFailure(ctx context.Context, job *models.Job, cause error) {
	log := logger.FromContext(ctx)
	job.RetryCount++
	errMsg := cause.Error()

	maxRetries := job.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	if retryable(cause) && job.RetryCount < maxRetries {
		log.Warn("job failed, retrying", "attempt", job.RetryCount, "error", errMsg)
		if err := p.jobs.UpdateStatus(ctx, job.ID, models.JobPending); err != nil {
			log.Warn("failed to reset job status", "error", err)
		}
		if err := p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount); err != nil {
			log.Warn("failed to record job error", "error", err)
		}
		metrics.JobsProcessed.WithLabelValues("retried").Inc()

		data, err := json.Marshal(job)
		if err != nil {
			log.Error("failed to encode job for retry", "error", err)
			return
		}
		id, retryCount := job.ID, job.RetryCount
		requeue := func() { p.requeue(log, id, string(data), retryCount) }
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second

		p.mu.Lock()
		p.retries[id] = pendingRetry{
			stop: p.afterFunc(backoff, func() {
				p.mu.Lock()
				delete(p.retries, id)
				p.mu.Unlock()
				requeue()
			}),
			requeue: requeue,
		}
		p.mu.Unlock()
		return
	}

	log.Error("job failed permanently", "attempts", job.RetryCount, "error", errMsg)
	if err := p.jobs.UpdateStatus(ctx, job.ID, models.JobFailed); err != nil {
		log.Warn("failed to mark job failed", "error", err)
	}
	if err := p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount); err != nil {
		log.Warn("failed to record job error", "error", err)
	}
	metrics.JobsProcessed.WithLabelValues("failed").Inc()

	p.publish(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    "JOB_FAILED",
			ErrorMessage: userMessage(cause),
		},
	})
}

// requeue pushes a retried job back onto the queue. A job that cannot be
// pushed is marked failed so it does not stay pending forever.
func (p *Pool) requeue(log *slog.Logger, id uuid.UUID, payload string, retryCount int) {
	ctx, cancel := context.WithTimeout(context.Background(), requeueTimeout)
	defer cancel()

	pushErr := p.queue.Push(ctx, payload)
	if pushErr == nil {
		return
	}
	log.Error("failed to re-queue job", "error", pushErr)
	if err := p.jobs.UpdateStatus(ctx, id, models.JobFailed); err != nil {
		log.Warn("failed to mark job failed", "error", err)
	}
	if err := p.jobs.UpdateError(ctx, id, "failed to re-queue job: "+pushErr.Error(), retryCount); err != nil {
		log.Warn("failed to record job error", "error", err)
	}
	metrics.JobsProcessed.WithLabelValues("failed").Inc()
}

func (p *Pool) publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	if err := p.notifier.Publish(ctx, userID, msg); err != nil {
		logger.FromContext(ctx).Warn("failed to publish job update", "type", msg.Type, "error", err)
	}
}

func retryable(err error) bool {
	var verr *services.ValidationError
	var nf *services.NotFoundError
	return !errors.As(err, &verr) && !errors.As(err, &nf)
}

func userMessage(err error) string {
	var upstream *services.UpstreamError
	var nf *services.NotFoundError
	switch {
	case errors.As(err, &upstream):
		return upstream.Message
	case errors.As(err, &nf):
		return nf.Message
	default:
		return "Flashcard generation failed"
	}
}
