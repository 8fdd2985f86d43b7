package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/audience-sync/internal/domain"
	"github.com/ignite/audience-sync/internal/pkg/logger"
)

// queueKey is the Redis list holding pending sync task ids.
const queueKey = "audience_sync:warehouse:tasks"

// Queue is the Redis-backed task queue between the enqueuer and the sync
// workers. Tasks are integration ids; all other state lives in Postgres,
// so a lost task is re-enqueued on the next scan.
type Queue struct {
	rdb *redis.Client
}

// NewQueue creates a queue on the given Redis client.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Enqueue pushes an integration id onto the queue.
func (q *Queue) Enqueue(ctx context.Context, integrationID string) error {
	if err := q.rdb.LPush(ctx, queueKey, integrationID).Err(); err != nil {
		return fmt.Errorf("enqueuing task %s: %w", integrationID, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next task. ok is false when the
// queue stayed empty.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error) {
	res, err := q.rdb.BRPop(ctx, timeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("dequeuing task: %w", err)
	}
	// BRPOP returns [key, value].
	return res[1], true, nil
}

// Len returns the number of pending tasks.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, queueKey).Result()
}

// IntegrationLister pages over all configured integrations.
type IntegrationLister interface {
	List(ctx context.Context, offset, limit int) ([]domain.Integration, error)
}

// Enqueuer scans the integration table and queues every integration for
// the workers. Due-ness is decided by the sync job at execution time, so
// the scan stays a cheap full pass.
type Enqueuer struct {
	integrations IntegrationLister
	queue        *Queue
	batchSize    int
}

// NewEnqueuer creates an enqueuer over the given store and queue.
func NewEnqueuer(integrations IntegrationLister, queue *Queue, batchSize int) *Enqueuer {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Enqueuer{integrations: integrations, queue: queue, batchSize: batchSize}
}

// Run queues one task per integration and returns the number queued.
func (e *Enqueuer) Run(ctx context.Context) (int, error) {
	queued := 0
	for offset := 0; ; offset += e.batchSize {
		integrations, err := e.integrations.List(ctx, offset, e.batchSize)
		if err != nil {
			return queued, fmt.Errorf("listing integrations at offset %d: %w", offset, err)
		}
		if len(integrations) == 0 {
			break
		}

		for _, in := range integrations {
			if err := e.queue.Enqueue(ctx, in.ID); err != nil {
				return queued, err
			}
			queued++
		}

		if len(integrations) < e.batchSize {
			break
		}
	}

	if queued > 0 {
		logger.Debug("sync tasks enqueued", "count", queued)
	}
	return queued, nil
}
