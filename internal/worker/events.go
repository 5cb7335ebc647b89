package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"dialogue-backend/internal/models"
)

const (
	EventDialogueCompleted = "dialogue_completed"
	EventError             = "error"
)

// Publisher pushes pipeline events to a user's live connections.
type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

// UserChannel is the pub/sub channel the websocket hub subscribes to.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_updates:%s", userID.String())
}

type RedisPublisher struct {
	redis  *redis.Client
	logger *slog.Logger
}

func NewRedisPublisher(redisClient *redis.Client, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{redis: redisClient, logger: logger}
}

// Publish is best effort; a user without open connections simply misses the event.
func (p *RedisPublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("failed to encode event", "type", msg.Type, "error", err)
		return
	}
	if err := p.redis.Publish(ctx, UserChannel(userID), data).Err(); err != nil {
		p.logger.Warn("failed to publish event", "type", msg.Type, "user_id", userID, "error", err)
	}
}
