package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dialogue-backend/internal/models"
)

type JobRepo struct {
	db DBTX
}

func NewJobRepo(db DBTX) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) Create(ctx context.Context, j *models.Job) error {
	j.ID = uuid.New()
	j.Status = models.JobStatusPending
	j.RetryCount = 0
	if j.MaxRetries <= 0 {
		j.MaxRetries = 3
	}

	configBytes := []byte(j.ConfigJSON)
	if len(configBytes) == 0 {
		configBytes = []byte("{}")
	}

	query := `INSERT INTO jobs (id, user_id, type, reference_id, parent_id, config_json, status, retry_count, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		j.ID, j.UserID, j.Type, j.ReferenceID, j.ParentID, configBytes, j.Status, j.RetryCount, j.MaxRetries,
	).Scan(&j.CreatedAt)
	return mapError(err, "User not found")
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j := &models.Job{}
	query := `SELECT id, user_id, type, reference_id, parent_id, config_json, status, retry_count, max_retries,
		error_message, created_at, completed_at
		FROM jobs WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.UserID, &j.Type, &j.ReferenceID, &j.ParentID, &j.ConfigJSON, &j.Status,
		&j.RetryCount, &j.MaxRetries, &j.ErrorMessage, &j.CreatedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, mapError(err, "Job not found")
	}
	return j, nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := "UPDATE jobs SET status = $1 WHERE id = $2"
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		now := time.Now()
		query = "UPDATE jobs SET status = $1, completed_at = $2 WHERE id = $3"
		_, err := r.db.Exec(ctx, query, status, now, id)
		return err
	}
	_, err := r.db.Exec(ctx, query, status, id)
	return err
}

func (r *JobRepo) UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error {
	_, err := r.db.Exec(ctx,
		"UPDATE jobs SET error_message = $1, retry_count = $2 WHERE id = $3",
		errMsg, retryCount, id,
	)
	return err
}

// SetReference records the dialogue a job produced or operates on.
func (r *JobRepo) SetReference(ctx context.Context, id uuid.UUID, referenceID int64) error {
	_, err := r.db.Exec(ctx, "UPDATE jobs SET reference_id = $1 WHERE id = $2", referenceID, id)
	return err
}
