package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"english-hub-backend/internal/models"
)

// RedisQueue pushes ratings onto the list the Pool consumes. Jobs carry the
// user's bearer token, so the list expires jobTTL after the last push.
type RedisQueue struct {
	redis *redis.Client
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{redis: client}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job models.RatingJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode rating job: %w", err)
	}
	_, err = q.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, RatingQueueKey, data)
		pipe.Expire(ctx, RatingQueueKey, jobTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue rating job: %w", err)
	}
	return nil
}

// InlineQueue relays ratings in the background without Redis. Used when
// the server runs single-instance.
type InlineQueue struct {
	rater Rater
}

func NewInlineQueue(rater Rater) *InlineQueue {
	return &InlineQueue{rater: rater}
}

func (q *InlineQueue) Enqueue(_ context.Context, job models.RatingJob) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), rateTimeout)
		defer cancel()
		if err := q.rater.RateFlashcard(ctx, job.AuthToken, job.CardID, job.Rating); err != nil {
			log.Printf("Rating for card %s (user %s) dropped: %v", job.CardID, job.UserID, err)
		}
	}()
	return nil
}
