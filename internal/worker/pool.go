package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"english-hub-backend/internal/models"
)

// RatingQueueKey is the Redis list holding pending flashcard ratings.
const RatingQueueKey = "queue:flashcard-rating"

const (
	popTimeout  = 5 * time.Second
	lockTTL     = 2 * time.Minute
	rateTimeout = 15 * time.Second

	// jobTTL bounds how long a queued job, and the token in it, is kept.
	jobTTL = 15 * time.Minute
)

type Rater interface {
	RateFlashcard(ctx context.Context, token, cardID string, rating int) error
}

// Pool relays queued ratings to the backend scheduler. Failed ratings are
// logged and dropped.
type Pool struct {
	redis       *redis.Client
	rater       Rater
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewPool(redisClient *redis.Client, rater Rater, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		redis:       redisClient,
		rater:       rater,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Printf("Started %d rating relay workers", p.workerCount)
}

// Stop cancels in-flight pops and waits for workers to exit.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		if p.ctx.Err() != nil {
			log.Printf("Worker %d shutting down", id)
			return
		}

		result, err := p.redis.BLPop(p.ctx, popTimeout, RatingQueueKey).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && p.ctx.Err() == nil {
				log.Printf("Worker %d: pop failed: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		if err := p.process(p.ctx, result[1]); err != nil {
			log.Printf("Worker %d: %v", id, err)
		}
	}
}

// process relays one raw job. A job already claimed by another worker is
// skipped without error.
func (p *Pool) process(ctx context.Context, raw string) error {
	var job models.RatingJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return fmt.Errorf("failed to parse rating job: %w", err)
	}
	if time.Since(job.EnqueuedAt) > jobTTL {
		return fmt.Errorf("rating for card %s (user %s) expired in queue", job.CardID, job.UserID)
	}

	lockKey := fmt.Sprintf("job_lock:%s", job.ID)
	locked, err := p.redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
	if err != nil {
		return fmt.Errorf("lock job %s: %w", job.ID, err)
	}
	if !locked {
		return nil
	}

	rateCtx, cancel := context.WithTimeout(ctx, rateTimeout)
	defer cancel()
	if err := p.rater.RateFlashcard(rateCtx, job.AuthToken, job.CardID, job.Rating); err != nil {
		return fmt.Errorf("rating for card %s (user %s) dropped: %w", job.CardID, job.UserID, err)
	}
	return nil
}
