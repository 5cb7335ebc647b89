package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"dialogue-backend/internal/models"
)

const (
	QueueDialogueCreate  = "queue:dialogue-create"
	QueueDialogueRespond = "queue:dialogue-respond"

	// QueueDelayed is a sorted set of retries scored by the unix millisecond
	// at which they become due.
	QueueDelayed = "queue:delayed"
)

// pollOrder lists the respond queue first so chains already started finish
// before new ones begin.
var pollOrder = []string{QueueDialogueRespond, QueueDialogueCreate}

type jobCreator interface {
	Create(ctx context.Context, j *models.Job) error
}

// RedisQueue records a job row and then pushes the job onto its Redis list.
type RedisQueue struct {
	redis *redis.Client
	jobs  jobCreator
}

func NewRedisQueue(redisClient *redis.Client, jobs jobCreator) *RedisQueue {
	return &RedisQueue{redis: redisClient, jobs: jobs}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *models.Job) error {
	if err := q.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("failed to record %s job: %w", job.Type, err)
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.redis.RPush(ctx, QueueName(job.Type), jobBytes).Err(); err != nil {
		return fmt.Errorf("failed to enqueue %s job %s: %w", job.Type, job.ID, err)
	}
	return nil
}

func QueueName(jobType string) string {
	switch jobType {
	case models.JobTypeDialogueCreate:
		return QueueDialogueCreate
	case models.JobTypeDialogueRespond:
		return QueueDialogueRespond
	default:
		return "queue:" + jobType
	}
}
