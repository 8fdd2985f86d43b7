package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ignite/audience-sync/internal/pkg/distlock"
)

const (
	// dequeueTimeout bounds each BRPOP so workers notice shutdown.
	dequeueTimeout = 5 * time.Second

	// SyncLockTTL caps how long a crashed worker can hold an integration.
	SyncLockTTL = 30 * time.Minute
)

// TaskQueue is the read side of the warehouse task queue.
type TaskQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error)
}

// Syncer executes one integration's sync.
type Syncer interface {
	Sync(ctx context.Context, integrationID string) error
}

// LockFactory builds a distributed lock for a key. Injected so tests can
// substitute an in-process lock.
type LockFactory func(key string) distlock.DistLock

// SyncConsumer drains the warehouse task queue with a small worker pool.
// A per-integration lock keeps two queued tasks for the same integration
// from double-running across processes; the loser is dropped, not
// requeued, because the enqueuer will queue the integration again on its
// next scan.
type SyncConsumer struct {
	queue   TaskQueue
	syncer  Syncer
	locks   LockFactory
	workers int
}

// NewSyncConsumer creates a consumer with the given pool size.
func NewSyncConsumer(queue TaskQueue, syncer Syncer, locks LockFactory, workers int) *SyncConsumer {
	if workers <= 0 {
		workers = 4
	}
	return &SyncConsumer{queue: queue, syncer: syncer, locks: locks, workers: workers}
}

// Start runs the pool. It blocks until ctx is cancelled and all workers
// have drained their in-flight task.
func (c *SyncConsumer) Start(ctx context.Context) {
	log.Printf("[SyncConsumer] Starting (workers=%d)", c.workers)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.loop(ctx, id)
		}(i)
	}
	wg.Wait()
	log.Println("[SyncConsumer] Stopped")
}

func (c *SyncConsumer) loop(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		integrationID, ok, err := c.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[SyncConsumer] worker %d dequeue error: %v", worker, err)
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}

		c.handle(ctx, integrationID)
	}
}

func (c *SyncConsumer) handle(ctx context.Context, integrationID string) {
	lock := c.locks("audience_sync:lock:integration:" + integrationID)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		log.Printf("[SyncConsumer] lock error for %s: %v", integrationID, err)
		return
	}
	if !acquired {
		log.Printf("[SyncConsumer] integration %s already syncing, dropping task", integrationID)
		return
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			log.Printf("[SyncConsumer] releasing lock for %s: %v", integrationID, err)
		}
	}()

	if err := c.syncer.Sync(ctx, integrationID); err != nil {
		log.Printf("[SyncConsumer] sync failed for %s: %v", integrationID, err)
	}
}
