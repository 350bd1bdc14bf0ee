package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"english-hub-backend/internal/models"
)

// Publisher fans a session change out to the user's open websockets.
type Publisher interface {
	Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: client}
}

// Publish is fire-and-forget; a lost update only delays the next render.
func (p *RedisPublisher) Publish(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("publish %s: encode: %v", msg.Type, err)
		return
	}
	if err := p.redis.Publish(ctx, models.SessionUpdatesChannel(userID), data).Err(); err != nil {
		log.Printf("publish %s for user %s: %v", msg.Type, userID, err)
	}
}

// NopPublisher is used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, uuid.UUID, models.WSMessage) {}
