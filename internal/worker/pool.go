package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"dialogue-backend/internal/aibackend"
	"dialogue-backend/internal/apperrors"
	"dialogue-backend/internal/config"
	"dialogue-backend/internal/models"
)

type jobStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
	SetReference(ctx context.Context, id uuid.UUID, referenceID int64) error
}

type dialogueStore interface {
	Create(ctx context.Context, d *models.Dialogue) error
	GetByID(ctx context.Context, id int64) (*models.Dialogue, error)
	MarkCompleted(ctx context.Context, id int64) error
	CompleteInPlace(ctx context.Context, id int64, reply string) (bool, error)
	AppendReply(ctx context.Context, prompt *models.Dialogue, reply string) (*models.Dialogue, error)
}

type backendResolver interface {
	Resolve(ctx context.Context, modelID, versionID int64) (aibackend.Backend, error)
}

type listInvalidator interface {
	InvalidateList(ctx context.Context, userID uuid.UUID) error
}

type enqueuer interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

// Pool runs the two pipeline stages: dialogue-create persists the prompt and
// chains dialogue-respond, which asks the backend and stores the reply.
type Pool struct {
	redis        *redis.Client
	queue        enqueuer
	jobs         jobStore
	dialogues    dialogueStore
	backends     backendResolver
	lists        listInvalidator
	events       Publisher
	replyMode    string
	workerCount  int
	retryBackoff func(retry int) time.Duration
	pollTimeout  time.Duration
	promoteEvery time.Duration
	logger       *slog.Logger

	// pollCtx stops the BLPOP loops. workCtx is only cancelled once the
	// shutdown grace period runs out.
	pollCtx     context.Context
	stopPolling context.CancelFunc
	workCtx     context.Context
	cancelWork  context.CancelFunc
	wg          sync.WaitGroup
}

func NewPool(
	redisClient *redis.Client,
	queue enqueuer,
	jobs jobStore,
	dialogues dialogueStore,
	backends backendResolver,
	lists listInvalidator,
	events Publisher,
	replyMode string,
	workerCount int,
	logger *slog.Logger,
) *Pool {
	pollCtx, stopPolling := context.WithCancel(context.Background())
	workCtx, cancelWork := context.WithCancel(context.Background())
	return &Pool{
		redis:        redisClient,
		queue:        queue,
		jobs:         jobs,
		dialogues:    dialogues,
		backends:     backends,
		lists:        lists,
		events:       events,
		replyMode:    replyMode,
		workerCount:  workerCount,
		retryBackoff: exponentialBackoff,
		pollTimeout:  5 * time.Second,
		promoteEvery: time.Second,
		logger:       logger,
		pollCtx:      pollCtx,
		stopPolling:  stopPolling,
		workCtx:      workCtx,
		cancelWork:   cancelWork,
	}
}

func exponentialBackoff(retry int) time.Duration {
	return time.Duration(1<<uint(retry)) * time.Second
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.wg.Add(1)
	go p.promoter()

	p.logger.Info("started worker goroutines", "count", p.workerCount)
}

// Stop ends polling and waits for in-flight jobs to finish. Jobs still running
// when ctx expires are cancelled and pushed back onto their queue.
func (p *Pool) Stop(ctx context.Context) {
	p.stopPolling()

	drained := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		p.logger.Warn("shutdown grace period expired, interrupting in-flight jobs")
		p.cancelWork()
		<-drained
	}
	p.cancelWork()
}

func (p *Pool) stopping() bool {
	return p.pollCtx.Err() != nil
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	logger := p.logger.With("worker", id)

	for {
		if p.stopping() {
			logger.Info("worker shutting down")
			return
		}

		queue, raw, err := p.popNext(p.pollCtx)
		if err != nil {
			if !errors.Is(err, redis.Nil) && !p.stopping() {
				logger.Warn("failed to pop job", "error", err)
				time.Sleep(time.Second)
			}
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			logger.Error("failed to parse job", "queue", queue, "error", err)
			continue
		}

		// A popped job is processed even when Stop was called meanwhile.
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(p.workCtx, lockKey, "1", 10*time.Minute).Result()
		if err != nil {
			logger.Warn("failed to lock job, re-queueing", "job_id", job.ID, "error", err)
			p.requeue(context.Background(), queue, []byte(raw), &job)
			continue
		}
		if !locked {
			continue // Another worker has this job
		}

		p.process(p.workCtx, &job)

		p.redis.Del(context.Background(), lockKey)
	}
}

// popNext blocks for up to pollTimeout waiting on the queues in pollOrder.
func (p *Pool) popNext(ctx context.Context) (queue, raw string, err error) {
	result, err := p.redis.BLPop(ctx, p.pollTimeout, pollOrder...).Result()
	if err != nil {
		return "", "", err
	}
	if len(result) < 2 {
		return "", "", redis.Nil
	}
	return result[0], result[1], nil
}

// promoter moves due retries from the delayed set onto their queues.
func (p *Pool) promoter() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.promoteEvery)
	defer ticker.Stop()

	for {
		if err := p.promoteDue(p.pollCtx); err != nil && !p.stopping() {
			p.logger.Warn("failed to promote delayed jobs", "error", err)
		}
		select {
		case <-p.pollCtx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Pool) promoteDue(ctx context.Context) error {
	due, err := p.redis.ZRangeByScore(ctx, QueueDelayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return err
	}

	for _, raw := range due {
		// Only the caller that removes the member pushes it.
		removed, err := p.redis.ZRem(ctx, QueueDelayed, raw).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			p.logger.Error("dropping malformed delayed job", "error", err)
			continue
		}
		p.requeue(context.WithoutCancel(ctx), QueueName(job.Type), []byte(raw), &job)
	}
	return nil
}

func (p *Pool) requeue(ctx context.Context, queue string, jobBytes []byte, job *models.Job) {
	if err := p.redis.LPush(ctx, queue, jobBytes).Err(); err != nil {
		p.logger.Error("failed to re-queue job", "job_id", job.ID, "queue", queue, "error", err)
	}
}

// scheduleRetry pushes the job straight back when it is due now or the pool is
// stopping. Otherwise it parks the job in the delayed set.
func (p *Pool) scheduleRetry(ctx context.Context, job *models.Job, backoff time.Duration) {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		p.logger.Error("failed to encode retry", "job_id", job.ID, "error", err)
		return
	}

	if backoff <= 0 || p.stopping() {
		p.requeue(ctx, QueueName(job.Type), jobBytes, job)
		return
	}

	err = p.redis.ZAdd(ctx, QueueDelayed, redis.Z{
		Score:  float64(time.Now().Add(backoff).UnixMilli()),
		Member: jobBytes,
	}).Err()
	if err != nil {
		p.logger.Warn("failed to delay retry, re-queueing now", "job_id", job.ID, "error", err)
		p.requeue(ctx, QueueName(job.Type), jobBytes, job)
	}
}

func (p *Pool) process(ctx context.Context, job *models.Job) {
	logger := p.logger.With("job_id", job.ID, "job_type", job.Type, "user_id", job.UserID)
	logger.Info("processing job", "attempt", job.RetryCount+1)

	if err := p.jobs.UpdateStatus(ctx, job.ID, models.JobStatusProcessing); err != nil {
		logger.Warn("failed to mark job processing", "error", err)
	}

	var processErr error
	switch job.Type {
	case models.JobTypeDialogueCreate:
		processErr = p.processCreate(ctx, job)
	case models.JobTypeDialogueRespond:
		processErr = p.processRespond(ctx, job, logger)
	default:
		processErr = apperrors.NewValidationError("type", "unknown job type: "+job.Type)
	}

	if processErr != nil {
		p.handleFailure(ctx, job, processErr, logger)
	} else {
		p.handleSuccess(ctx, job, logger)
	}
}

// processCreate persists the prompt and chains the respond stage. A retried
// job that already created its dialogue only re-enqueues the next stage.
func (p *Pool) processCreate(ctx context.Context, job *models.Job) error {
	payload, err := job.Payload()
	if err != nil {
		return apperrors.NewValidationError("config", "malformed job payload")
	}

	if job.ReferenceID == nil {
		d := &models.Dialogue{
			UserID:         job.UserID,
			Content:        payload.Content,
			ModelID:        payload.ModelID,
			ModelVersionID: &payload.ModelVersionID,
		}
		if err := p.dialogues.Create(ctx, d); err != nil {
			return err
		}
		job.ReferenceID = &d.ID
		if err := p.jobs.SetReference(ctx, job.ID, d.ID); err != nil {
			p.logger.Warn("failed to record dialogue on job", "job_id", job.ID, "dialogue_id", d.ID, "error", err)
		}
	}

	nextConfig, err := json.Marshal(models.DialoguePayload{
		ModelID:        payload.ModelID,
		ModelVersionID: payload.ModelVersionID,
	})
	if err != nil {
		return err
	}

	next := &models.Job{
		UserID:      job.UserID,
		Type:        models.JobTypeDialogueRespond,
		ReferenceID: job.ReferenceID,
		ParentID:    &job.ID,
		ConfigJSON:  nextConfig,
		MaxRetries:  job.MaxRetries,
	}
	return p.queue.Enqueue(ctx, next)
}

// processRespond is safe to repeat: a dialogue that is already COMPLETED is
// left untouched and the vendor is not called again.
func (p *Pool) processRespond(ctx context.Context, job *models.Job, logger *slog.Logger) error {
	if job.ReferenceID == nil {
		return apperrors.NewValidationError("reference_id", "respond job has no dialogue")
	}
	payload, err := job.Payload()
	if err != nil {
		return apperrors.NewValidationError("config", "malformed job payload")
	}

	d, err := p.dialogues.GetByID(ctx, *job.ReferenceID)
	if err != nil {
		return err
	}
	if d.Status == models.StatusCompleted {
		logger.Info("dialogue already completed, skipping", "dialogue_id", d.ID)
		return nil
	}
	if !d.Status.CanTransition(models.StatusCompleted) {
		return apperrors.NewValidationError("status", fmt.Sprintf("dialogue %d has invalid status %q", d.ID, d.Status))
	}

	backend, err := p.backends.Resolve(ctx, payload.ModelID, payload.ModelVersionID)
	if err != nil {
		return err
	}

	reply, err := backend.ChatWithAI(ctx, d.UserID, d.Content)
	if err != nil {
		return err
	}

	switch p.replyMode {
	case config.ReplyAppend:
		if _, err := p.dialogues.AppendReply(ctx, d, reply); err != nil {
			return err
		}
		if err := p.dialogues.MarkCompleted(ctx, d.ID); err != nil {
			return err
		}
	default:
		updated, err := p.dialogues.CompleteInPlace(ctx, d.ID, reply)
		if err != nil {
			return err
		}
		if !updated {
			logger.Info("dialogue completed concurrently", "dialogue_id", d.ID)
		}
	}

	if err := p.lists.InvalidateList(ctx, d.UserID); err != nil {
		logger.Warn("failed to invalidate dialogue list cache", "error", err)
	}

	logger.Info("dialogue completed", "dialogue_id", d.ID, "backend", backend.Family())
	return nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, logger *slog.Logger) {
	ctx = context.WithoutCancel(ctx)
	if err := p.jobs.UpdateStatus(ctx, job.ID, models.JobStatusCompleted); err != nil {
		logger.Warn("failed to mark job completed", "error", err)
	}

	if job.Type == models.JobTypeDialogueRespond && job.ReferenceID != nil {
		p.events.Publish(ctx, job.UserID, models.WSMessage{
			Type: EventDialogueCompleted,
			Payload: models.DialogueCompletedEvent{
				JobID:      job.ID,
				DialogueID: *job.ReferenceID,
				Status:     models.StatusCompleted,
			},
		})
	}

	logger.Info("job completed successfully")
}

// handleFailure retries transient errors with exponential backoff. Missing
// references and unsupported models fail at once. A job interrupted by
// shutdown goes back on its queue without using up a retry. The dialogue
// itself stays ACTIVE either way.
func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error, logger *slog.Logger) {
	interrupted := ctx.Err() != nil
	ctx = context.WithoutCancel(ctx)
	errMsg := err.Error()

	if interrupted {
		logger.Warn("job interrupted by shutdown, re-queueing", "error", errMsg)
		p.jobs.UpdateStatus(ctx, job.ID, models.JobStatusPending)
		p.scheduleRetry(ctx, job, 0)
		return
	}

	job.RetryCount++

	if !apperrors.IsPermanent(err) && job.RetryCount < job.MaxRetries {
		backoff := p.retryBackoff(job.RetryCount)
		logger.Warn("job failed, retrying", "attempt", job.RetryCount, "backoff", backoff, "error", errMsg)
		p.jobs.UpdateStatus(ctx, job.ID, models.JobStatusPending)
		p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
		p.scheduleRetry(ctx, job, backoff)
		return
	}

	logger.Error("job failed permanently", "attempts", job.RetryCount, "error", errMsg)
	p.jobs.UpdateStatus(ctx, job.ID, models.JobStatusFailed)
	p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

	p.events.Publish(ctx, job.UserID, models.WSMessage{
		Type: EventError,
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			DialogueID:   job.ReferenceID,
			ErrorCode:    errorCode(err),
			ErrorMessage: publicMessage(err),
		},
	})
}

func errorCode(err error) string {
	var (
		aiErr       *apperrors.AIModelError
		notFound    *apperrors.NotFoundError
		unsupported *apperrors.UnsupportedModelError
		validation  *apperrors.ValidationError
	)
	switch {
	case errors.As(err, &aiErr):
		return "AI_MODEL_ERROR"
	case errors.As(err, &unsupported):
		return "UNSUPPORTED_MODEL"
	case errors.As(err, &notFound):
		return "NOT_FOUND"
	case errors.As(err, &validation):
		return "VALIDATION_ERROR"
	default:
		return "JOB_FAILED"
	}
}

// publicMessage hides vendor and infrastructure detail from clients.
func publicMessage(err error) string {
	var (
		aiErr       *apperrors.AIModelError
		notFound    *apperrors.NotFoundError
		unsupported *apperrors.UnsupportedModelError
	)
	switch {
	case errors.As(err, &aiErr):
		return aiErr.Message
	case errors.As(err, &unsupported):
		return unsupported.Error()
	case errors.As(err, &notFound):
		return notFound.Message
	default:
		return "Failed to generate a reply."
	}
}
