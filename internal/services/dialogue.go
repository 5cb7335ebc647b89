package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"dialogue-backend/internal/apperrors"
	"dialogue-backend/internal/cache"
	"dialogue-backend/internal/models"
)

const fieldRequired = "This field is required."

// JobQueue persists a job and hands it to the pipeline.
type JobQueue interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

type dialogueStore interface {
	GetByID(ctx context.Context, id int64) (*models.Dialogue, error)
	ListCompleted(ctx context.Context, userID uuid.UUID) ([]*models.Dialogue, error)
	ListCompletedAfter(ctx context.Context, userID uuid.UUID, afterID int64) ([]*models.Dialogue, error)
	LatestForUser(ctx context.Context, userID uuid.UUID) (*models.Dialogue, error)
}

type catalogLookup interface {
	GetAIModel(ctx context.Context, id int64) (*models.AIModel, error)
	GetModelVersionForModel(ctx context.Context, modelID, versionID int64) (*models.ModelVersion, error)
	GetModelVersionByName(ctx context.Context, name string) (*models.ModelVersion, error)
}

type jobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

type DialogueServiceConfig struct {
	ListCacheTTL      time.Duration
	LatestDialogueTTL time.Duration
	JobMaxRetries     int
}

type DialogueService struct {
	dialogues dialogueStore
	catalog   catalogLookup
	jobs      jobReader
	queue     JobQueue
	cache     cache.Store
	cfg       DialogueServiceConfig
	logger    *slog.Logger
}

func NewDialogueService(
	dialogues dialogueStore,
	catalog catalogLookup,
	jobs jobReader,
	queue JobQueue,
	store cache.Store,
	cfg DialogueServiceConfig,
	logger *slog.Logger,
) *DialogueService {
	return &DialogueService{
		dialogues: dialogues,
		catalog:   catalog,
		jobs:      jobs,
		queue:     queue,
		cache:     store,
		cfg:       cfg,
		logger:    logger,
	}
}

// Create validates the request and enqueues the create/respond chain. No
// dialogue row exists until the first stage runs.
func (s *DialogueService) Create(ctx context.Context, userID uuid.UUID, req models.CreateDialogueRequest) (*models.Job, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("content", fieldRequired)
	}

	payload, err := s.resolveSelection(ctx, req)
	if err != nil {
		return nil, err
	}
	payload.Content = content

	config, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		UserID:     userID,
		Type:       models.JobTypeDialogueCreate,
		ConfigJSON: config,
		MaxRetries: s.cfg.JobMaxRetries,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("dialogue enqueued",
		"job_id", job.ID, "user_id", userID,
		"model_id", payload.ModelID, "model_version_id", payload.ModelVersionID)
	return job, nil
}

// resolveSelection turns either the id pair or the simplified version name
// into a validated (model, version) pair.
func (s *DialogueService) resolveSelection(ctx context.Context, req models.CreateDialogueRequest) (models.DialoguePayload, error) {
	var p models.DialoguePayload

	if req.ModelID == nil && req.ModelVersionID == nil && req.Model != "" {
		version, err := s.catalog.GetModelVersionByName(ctx, req.Model)
		if err != nil {
			return p, asFieldError(err, "model", "Invalid model.")
		}
		p.ModelID = version.AIModelID
		p.ModelVersionID = version.ID
		return p, nil
	}

	missing := map[string]string{}
	if req.ModelID == nil {
		missing["model_id"] = fieldRequired
	}
	if req.ModelVersionID == nil {
		missing["model_version_id"] = fieldRequired
	}
	if len(missing) > 0 {
		return p, &apperrors.ValidationError{Fields: missing}
	}

	model, err := s.catalog.GetAIModel(ctx, *req.ModelID)
	if err != nil {
		return p, asFieldError(err, "model_id", "Invalid AI model ID.")
	}
	version, err := s.catalog.GetModelVersionForModel(ctx, model.ID, *req.ModelVersionID)
	if err != nil {
		return p, asFieldError(err, "model_version_id", "Invalid model version ID.")
	}

	p.ModelID = model.ID
	p.ModelVersionID = version.ID
	return p, nil
}

// List returns the user's COMPLETED dialogues. Once a polling cursor is set
// by UpdateLatest only dialogues newer than it are returned.
func (s *DialogueService) List(ctx context.Context, userID uuid.UUID) ([]*models.Dialogue, error) {
	var latestID int64
	err := cache.GetJSON(ctx, s.cache, cache.LatestDialogueKey(userID), &latestID)
	switch {
	case err == nil && latestID > 0:
		return s.dialogues.ListCompletedAfter(ctx, userID, latestID)
	case err != nil && !errors.Is(err, cache.ErrMiss):
		s.logger.Warn("failed to read dialogue cursor", "user_id", userID, "error", err)
	}

	listKey := cache.DialogueListKey(userID)
	var cached []*models.Dialogue
	err = cache.GetJSON(ctx, s.cache, listKey, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("failed to read dialogue list cache", "user_id", userID, "error", err)
	}

	dialogues, err := s.dialogues.ListCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, listKey, dialogues, s.cfg.ListCacheTTL); err != nil {
		s.logger.Warn("failed to cache dialogue list", "user_id", userID, "error", err)
	}
	return dialogues, nil
}

// Get returns a dialogue owned by userID. Other users' dialogues are reported
// as not found.
func (s *DialogueService) Get(ctx context.Context, userID uuid.UUID, id int64) (*models.Dialogue, error) {
	d, err := s.dialogues.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, &apperrors.NotFoundError{Message: "Dialogue not found"}
	}
	return d, nil
}

// UpdateLatest stores the user's newest dialogue id as the polling cursor.
func (s *DialogueService) UpdateLatest(ctx context.Context, userID uuid.UUID) (*models.Dialogue, error) {
	latest, err := s.dialogues.LatestForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, s.cache, cache.LatestDialogueKey(userID), latest.ID, s.cfg.LatestDialogueTTL); err != nil {
		return nil, err
	}
	return latest, nil
}

// InvalidateList drops the cached list snapshot so the next List reads the store.
func (s *DialogueService) InvalidateList(ctx context.Context, userID uuid.UUID) error {
	return s.cache.Delete(ctx, cache.DialogueListKey(userID))
}

// GetJob returns a pipeline job owned by userID.
func (s *DialogueService) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, &apperrors.NotFoundError{Message: "Job not found"}
	}
	return job, nil
}

// asFieldError reports a missing reference as a field error and passes
// infrastructure errors through.
func asFieldError(err error, field, message string) error {
	var nf *apperrors.NotFoundError
	if errors.As(err, &nf) {
		return apperrors.NewValidationError(field, message)
	}
	return err
}
